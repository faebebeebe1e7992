package models

import (
	"fmt"
	"strings"
	"time"
)

// Briefing is the structured output of one successful analysis cycle and
// the unit stored in the analysis cache. Once published it is treated as
// immutable; a later cycle replaces it wholesale.
type Briefing struct {
	Summary         string    `json:"summary"`
	ThreatType      string    `json:"threat_type"`
	Recommendations []string  `json:"recommendations"`
	LastUpdated     time.Time `json:"last_updated,omitzero"`
}

// PlaceholderThreatType marks a briefing that predates the first
// successful refresh cycle.
const PlaceholderThreatType = "Initializing..."

// PlaceholderBriefing returns the value the analysis cache holds from
// process start until the first cycle commits. LastUpdated stays zero so
// consumers can tell it apart from a real analysis.
func PlaceholderBriefing() Briefing {
	return Briefing{
		Summary:         "AI analysis is initializing. Please check back in a few minutes...",
		ThreatType:      PlaceholderThreatType,
		Recommendations: []string{"Waiting for first data batch..."},
	}
}

// Validate checks that all three required fields are present. A briefing
// decoded from external text may be syntactically valid JSON and still
// miss fields; such a result must never reach the cache.
func (b Briefing) Validate() error {
	if strings.TrimSpace(b.Summary) == "" {
		return fmt.Errorf("%w: missing summary", ErrValidation)
	}
	if strings.TrimSpace(b.ThreatType) == "" {
		return fmt.Errorf("%w: missing threat_type", ErrValidation)
	}
	if len(b.Recommendations) == 0 {
		return fmt.Errorf("%w: missing recommendations", ErrValidation)
	}
	return nil
}
