package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// initializeSchema creates the events table when it does not exist yet.
// Deployments that ship events from the honeypot fleet into an existing
// table are unaffected.
func initializeSchema(ctx context.Context, conn driver.Conn, table string) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			timestamp  DateTime64(3) CODEC(Delta, ZSTD),
			source_ip  String,
			country    LowCardinality(String),
			honeypot   LowCardinality(String),
			dest_port  UInt16,
			username   String,
			password   String,
			lat        Nullable(Float64),
			lon        Nullable(Float64)
		) ENGINE = MergeTree()
		ORDER BY timestamp
		TTL toDateTime(timestamp) + INTERVAL 90 DAY
	`, table)

	if err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}
	return nil
}
