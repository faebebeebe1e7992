// Package analysis turns aggregation results into the text briefing and
// prompt sent to the summarization service, and owns the single cache
// slot the API serves analyses from.
package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/tpotops/threatbrief/internal/telemetry"
	"github.com/tpotops/threatbrief/pkg/models"
)

// ComposeBriefing renders the compact text briefing for one refresh
// cycle. Bucket order is preserved exactly as the store returned it.
// Returns ErrEmptyWindow when the window matched no events, so the caller
// keeps the previous analysis instead of overwriting it with nothing.
func ComposeBriefing(res *models.AggregationResult, window time.Duration) (string, error) {
	if res.TotalEvents == 0 {
		return "", models.ErrEmptyWindow
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Honeypot Security Briefing (last %d mins):\n", int(window.Minutes()))
	fmt.Fprintf(&sb, "- Total Events: %d\n", res.TotalEvents)
	fmt.Fprintf(&sb, "- Unique Attacker IPs: %d\n", res.CardinalityOf(telemetry.AggUniqueIPs))
	fmt.Fprintf(&sb, "- Top Attacking Countries: %s\n", keyList(res, telemetry.AggTopCountries))
	fmt.Fprintf(&sb, "- Top Targeted Honeypots: %s\n", keyList(res, telemetry.AggTopHoneypots))
	fmt.Fprintf(&sb, "- Top Targeted Ports: %s\n", keyList(res, telemetry.AggTopPorts))
	fmt.Fprintf(&sb, "- Top Passwords Attempted: %s\n", keyList(res, telemetry.AggTopPasswords))
	return sb.String(), nil
}

func keyList(res *models.AggregationResult, name string) string {
	keys := res.TermKeysOf(name)
	if len(keys) == 0 {
		return "none"
	}
	return strings.Join(keys, ", ")
}

const promptTemplate = `You are a senior cybersecurity analyst. Based on the following honeypot activity summary, provide a concise analysis in JSON format. The JSON object must have three keys: "summary", "threat_type", and "recommendations".

- "summary": A brief, one-sentence summary of the activity in plain English.
- "threat_type": A short, descriptive label for the dominant threat pattern (e.g., "Automated Scanning", "SSH Brute-Force", "Web Server Probing", "Coordinated Attack").
- "recommendations": A JSON array of 2 short, actionable mitigation steps a security admin should take.

Here is the data:
%s

Provide only the raw JSON object as your response.`

// BuildPrompt wraps a composed briefing in the analyst prompt. The
// briefing text is embedded verbatim.
func BuildPrompt(briefing string) string {
	return fmt.Sprintf(promptTemplate, briefing)
}
