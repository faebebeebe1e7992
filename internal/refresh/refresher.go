// Package refresh runs the periodic analysis pipeline: query the
// analytics store, compose a briefing, summarize it, validate the result
// and publish it into the shared analysis cache.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tpotops/threatbrief/internal/analysis"
	"github.com/tpotops/threatbrief/internal/llm"
	"github.com/tpotops/threatbrief/internal/telemetry"
	"github.com/tpotops/threatbrief/pkg/models"
)

// Refresher executes one refresh cycle at a time. It owns all
// failure/fallback policy: every error resolves to a skipped cycle with
// the previous cache value intact.
type Refresher struct {
	store      telemetry.Store
	summarizer llm.Summarizer
	cache      *analysis.Cache
	window     time.Duration
	topSize    int
	logger     *slog.Logger
}

// NewRefresher wires the pipeline. Window is the trailing period each
// cycle analyzes; topSize bounds the terms aggregations in the briefing.
func NewRefresher(store telemetry.Store, summarizer llm.Summarizer, cache *analysis.Cache, window time.Duration, topSize int, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		store:      store,
		summarizer: summarizer,
		cache:      cache,
		window:     window,
		topSize:    topSize,
		logger:     logger,
	}
}

// RunCycle executes one query → compose → summarize → validate → commit
// pass. A non-nil return means the cycle was skipped and the cache kept
// its previous value; the error wraps one of the models sentinel errors so
// callers can classify it. Panics anywhere in the cycle are recovered
// here: a bad cycle must never take down the scheduler or the process.
func (r *Refresher) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("refresh cycle panicked: %v", rec)
		}
	}()

	res, err := r.store.Aggregate(ctx, telemetry.BriefingRequest(r.window, r.topSize))
	if err != nil {
		return fmt.Errorf("aggregation query: %w", err)
	}

	briefing, err := analysis.ComposeBriefing(res, r.window)
	if err != nil {
		return err
	}

	parsed, err := r.summarizer.Summarize(ctx, analysis.BuildPrompt(briefing))
	if err != nil {
		return err
	}

	if err := parsed.Validate(); err != nil {
		return err
	}

	parsed.LastUpdated = time.Now().UTC()
	r.cache.Set(*parsed)
	return nil
}

// classify maps a cycle error onto its metrics/log label.
func classify(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, models.ErrEmptyWindow):
		return "empty_window"
	case errors.Is(err, models.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, models.ErrStoreQuery):
		return "store_query_error"
	case errors.Is(err, models.ErrSummarizationUnavailable):
		return "summarization_unavailable"
	case errors.Is(err, models.ErrSummarizationParse):
		return "summarization_parse_error"
	case errors.Is(err, models.ErrValidation):
		return "validation_error"
	default:
		return "internal_error"
	}
}
