package refresh

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tpotops/threatbrief/internal/analysis"
	"github.com/tpotops/threatbrief/internal/telemetry"
	"github.com/tpotops/threatbrief/pkg/models"
)

// mockStore implements telemetry.Store for pipeline tests.
type mockStore struct {
	result *models.AggregationResult
	err    error
	calls  int
}

func (m *mockStore) Aggregate(ctx context.Context, req models.AggregationRequest) (*models.AggregationResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockStore) Ping(ctx context.Context) error { return m.err }
func (m *mockStore) Close() error                   { return nil }

// mockSummarizer implements llm.Summarizer.
type mockSummarizer struct {
	briefing *models.Briefing
	err      error
	panics   bool
	prompt   string
}

func (m *mockSummarizer) Summarize(ctx context.Context, prompt string) (*models.Briefing, error) {
	m.prompt = prompt
	if m.panics {
		panic("summarizer exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	b := *m.briefing
	return &b, nil
}

func activeResult() *models.AggregationResult {
	return &models.AggregationResult{
		TotalEvents: 420,
		Cardinality: map[string]int64{telemetry.AggUniqueIPs: 33},
		Terms: map[string][]models.Bucket{
			telemetry.AggTopCountries: {{Key: "China", Count: 200}},
			telemetry.AggTopHoneypots: {{Key: "Cowrie", Count: 300}},
			telemetry.AggTopPorts:     {{Key: "22", Count: 250}},
			telemetry.AggTopPasswords: {{Key: "admin", Count: 90}},
		},
	}
}

func validBriefing() *models.Briefing {
	return &models.Briefing{
		Summary:         "SSH brute force against Cowrie sensors.",
		ThreatType:      "SSH Brute-Force",
		Recommendations: []string{"Rotate credentials", "Enable fail2ban"},
	}
}

func TestRunCycleCommits(t *testing.T) {
	cache := analysis.NewCache()
	sum := &mockSummarizer{briefing: validBriefing()}
	r := NewRefresher(&mockStore{result: activeResult()}, sum, cache, 15*time.Minute, 5, nil)

	before := time.Now().UTC()
	if err := r.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	got := cache.Get()
	if got.ThreatType != "SSH Brute-Force" {
		t.Errorf("ThreatType = %q", got.ThreatType)
	}
	if got.LastUpdated.Before(before) {
		t.Errorf("LastUpdated = %v, want >= %v", got.LastUpdated, before)
	}
	if sum.prompt == "" {
		t.Error("summarizer never received a prompt")
	}
}

func TestRunCycleSkipsKeepCachePrevious(t *testing.T) {
	tests := []struct {
		name       string
		store      *mockStore
		summarizer *mockSummarizer
		wantErr    error
		wantLabel  string
	}{
		{
			name:       "store unavailable",
			store:      &mockStore{err: fmt.Errorf("dial: %w", models.ErrStoreUnavailable)},
			summarizer: &mockSummarizer{briefing: validBriefing()},
			wantErr:    models.ErrStoreUnavailable,
			wantLabel:  "store_unavailable",
		},
		{
			name:       "store query rejected",
			store:      &mockStore{err: fmt.Errorf("bad agg: %w", models.ErrStoreQuery)},
			summarizer: &mockSummarizer{briefing: validBriefing()},
			wantErr:    models.ErrStoreQuery,
			wantLabel:  "store_query_error",
		},
		{
			name:       "empty window",
			store:      &mockStore{result: &models.AggregationResult{TotalEvents: 0}},
			summarizer: &mockSummarizer{briefing: validBriefing()},
			wantErr:    models.ErrEmptyWindow,
			wantLabel:  "empty_window",
		},
		{
			name:       "summarization unavailable",
			store:      &mockStore{result: activeResult()},
			summarizer: &mockSummarizer{err: fmt.Errorf("timeout: %w", models.ErrSummarizationUnavailable)},
			wantErr:    models.ErrSummarizationUnavailable,
			wantLabel:  "summarization_unavailable",
		},
		{
			name:       "summarization parse failure",
			store:      &mockStore{result: activeResult()},
			summarizer: &mockSummarizer{err: fmt.Errorf("prose: %w", models.ErrSummarizationParse)},
			wantErr:    models.ErrSummarizationParse,
			wantLabel:  "summarization_parse_error",
		},
		{
			name:       "validation failure",
			store:      &mockStore{result: activeResult()},
			summarizer: &mockSummarizer{briefing: &models.Briefing{Summary: "only a summary"}},
			wantErr:    models.ErrValidation,
			wantLabel:  "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := analysis.NewCache()
			previous := models.Briefing{
				Summary:         "Yesterday's scanning wave.",
				ThreatType:      "Automated Scanning",
				Recommendations: []string{"Review firewall rules"},
				LastUpdated:     time.Now().UTC().Add(-time.Hour),
			}
			cache.Set(previous)

			r := NewRefresher(tt.store, tt.summarizer, cache, 15*time.Minute, 5, nil)
			err := r.RunCycle(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RunCycle() error = %v, want %v", err, tt.wantErr)
			}
			if got := classify(err); got != tt.wantLabel {
				t.Errorf("classify() = %q, want %q", got, tt.wantLabel)
			}

			got := cache.Get()
			if got.ThreatType != previous.ThreatType || !got.LastUpdated.Equal(previous.LastUpdated) {
				t.Errorf("cache changed on skipped cycle: %+v", got)
			}
		})
	}
}

func TestRunCycleRecoversPanic(t *testing.T) {
	cache := analysis.NewCache()
	r := NewRefresher(&mockStore{result: activeResult()}, &mockSummarizer{panics: true}, cache, 15*time.Minute, 5, nil)

	err := r.RunCycle(context.Background())
	if err == nil {
		t.Fatal("RunCycle() should surface the recovered panic as an error")
	}
	if got := classify(err); got != "internal_error" {
		t.Errorf("classify() = %q, want internal_error", got)
	}
	if cache.Get().ThreatType != models.PlaceholderThreatType {
		t.Error("cache changed on panicked cycle")
	}
}

func TestRunCycleMonotonicLastUpdated(t *testing.T) {
	cache := analysis.NewCache()
	r := NewRefresher(&mockStore{result: activeResult()}, &mockSummarizer{briefing: validBriefing()}, cache, 15*time.Minute, 5, nil)

	if err := r.RunCycle(context.Background()); err != nil {
		t.Fatalf("first RunCycle() error = %v", err)
	}
	first := cache.Get().LastUpdated

	if err := r.RunCycle(context.Background()); err != nil {
		t.Fatalf("second RunCycle() error = %v", err)
	}
	second := cache.Get().LastUpdated

	if second.Before(first) {
		t.Errorf("LastUpdated went backwards: %v then %v", first, second)
	}
}
