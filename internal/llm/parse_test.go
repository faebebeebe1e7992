package llm

import (
	"errors"
	"testing"

	"github.com/tpotops/threatbrief/pkg/models"
)

func TestParseBriefing(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			name: "bare JSON object",
			raw:  `{"summary":"SSH brute force.","threat_type":"SSH Brute-Force","recommendations":["Rotate keys","Enable fail2ban"]}`,
		},
		{
			name: "fenced with json hint",
			raw: "```json\n" +
				`{"summary":"Scanning.","threat_type":"Automated Scanning","recommendations":["Review firewall"]}` +
				"\n```",
		},
		{
			name: "fenced without hint",
			raw: "```\n" +
				`{"summary":"Scanning.","threat_type":"Automated Scanning","recommendations":["Review firewall"]}` +
				"\n```",
		},
		{
			name: "surrounding whitespace",
			raw:  "\n\n  {\"summary\":\"Probing.\",\"threat_type\":\"Web Server Probing\",\"recommendations\":[\"Patch\"]}  \n",
		},
		{
			name:    "plain prose",
			raw:     "I could not produce an analysis this time.",
			wantErr: true,
		},
		{
			name:    "truncated JSON",
			raw:     `{"summary":"SSH brute force.","threat_type":`,
			wantErr: true,
		},
		{
			name:    "empty after stripping fences",
			raw:     "```json\n```",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBriefing(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, models.ErrSummarizationParse) {
					t.Fatalf("ParseBriefing() error = %v, want ErrSummarizationParse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBriefing() error = %v", err)
			}
			if b.Summary == "" || b.ThreatType == "" {
				t.Errorf("parsed briefing incomplete: %+v", b)
			}
		})
	}
}

// Missing fields are a validation concern, not a parse failure.
func TestParseBriefingMissingFieldStillParses(t *testing.T) {
	b, err := ParseBriefing(`{"summary":"Scanning only."}`)
	if err != nil {
		t.Fatalf("ParseBriefing() error = %v", err)
	}
	if b.ThreatType != "" {
		t.Errorf("ThreatType = %q, want empty", b.ThreatType)
	}
	if err := b.Validate(); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Validate() error = %v, want ErrValidation", err)
	}
}
