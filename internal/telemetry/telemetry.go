// Package telemetry abstracts the analytics store that answers
// time-windowed aggregation queries over honeypot events.
package telemetry

import (
	"context"
	"fmt"

	"github.com/tpotops/threatbrief/pkg/models"
)

// Store is an analytics backend. Implementations are stateless per call
// and safe for concurrent use.
type Store interface {
	// Aggregate runs one aggregation query over the trailing window
	// described by the request. One network round trip, no retries;
	// errors wrap models.ErrStoreUnavailable or models.ErrStoreQuery.
	Aggregate(ctx context.Context, req models.AggregationRequest) (*models.AggregationResult, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Unavailable is the Store used when no backend could be constructed at
// startup. Every call reports ErrStoreUnavailable, which keeps the service
// running in degraded mode: refresh cycles skip forever and the API keeps
// serving the placeholder analysis.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Aggregate(ctx context.Context, req models.AggregationRequest) (*models.AggregationResult, error) {
	return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, u.Reason)
}

func (u Unavailable) Ping(ctx context.Context) error {
	return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, u.Reason)
}

func (u Unavailable) Close() error { return nil }
