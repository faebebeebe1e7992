package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tpotops/threatbrief/pkg/models"
)

// ParseBriefing extracts the structured three-field object from raw model
// output. The service is asked for a bare JSON object but tends to wrap
// its answer in markdown code fences; those are stripped before decoding.
// Syntactically broken JSON wraps ErrSummarizationParse. Field presence is
// NOT checked here — that is the orchestrator's validation step.
func ParseBriefing(raw string) (*models.Briefing, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response text", models.ErrSummarizationParse)
	}

	var b models.Briefing
	if err := json.Unmarshal([]byte(cleaned), &b); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSummarizationParse, err)
	}
	return &b, nil
}

// stripFences removes markdown code-fence markers around the answer.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
