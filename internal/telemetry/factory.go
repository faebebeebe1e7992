package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tpotops/threatbrief/internal/telemetry/clickhouse"
	"github.com/tpotops/threatbrief/internal/telemetry/elastic"
)

// Config selects and configures the analytics backend.
type Config struct {
	// Backend selects the analytics backend: "elasticsearch" or "clickhouse".
	Backend string

	Elasticsearch elastic.Config
	ClickHouse    clickhouse.Config
}

// DefaultConfig returns the configuration for a stock T-Pot deployment:
// the bundled Elasticsearch with logstash indices.
func DefaultConfig() Config {
	return Config{
		Backend:       "elasticsearch",
		Elasticsearch: elastic.DefaultConfig(),
		ClickHouse:    clickhouse.DefaultConfig(),
	}
}

// NewStore creates an analytics store based on configuration.
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "elasticsearch":
		return elastic.NewStore(cfg.Elasticsearch, logger)

	case "clickhouse":
		store, err := clickhouse.NewStore(ctx, cfg.ClickHouse, logger)
		if err != nil {
			return nil, fmt.Errorf("creating ClickHouse store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown telemetry backend: %s (supported: elasticsearch, clickhouse)", cfg.Backend)
	}
}
