// Package clickhouse implements the telemetry store against a ClickHouse
// events table, for deployments that ship honeypot events into ClickHouse
// instead of the stock Elasticsearch.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/tpotops/threatbrief/pkg/models"
)

// columnMap translates logical event fields onto events-table columns.
// Only mapped fields are ever interpolated into SQL.
var columnMap = map[string]string{
	models.FieldSourceIP: "source_ip",
	models.FieldCountry:  "country",
	models.FieldHoneypot: "honeypot",
	models.FieldDestPort: "dest_port",
	models.FieldUsername: "username",
	models.FieldPassword: "password",
}

// Store implements telemetry.Store against ClickHouse.
type Store struct {
	conn   driver.Conn
	table  string
	logger *slog.Logger
}

// NewStore connects to ClickHouse and ensures the events table exists.
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Table == "" {
		cfg.Table = DefaultConfig().Table
	}

	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	if err := initializeSchema(ctx, conn, cfg.Table); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	return &Store{
		conn:   conn,
		table:  cfg.Table,
		logger: logger,
	}, nil
}

// Aggregate answers the request with one query per aggregation plus one
// total count. ClickHouse has no multiplexed aggregation body the way
// Elasticsearch does, so the round trips run sequentially over one
// connection; the caller still sees a single Aggregate call.
func (s *Store) Aggregate(ctx context.Context, req models.AggregationRequest) (*models.AggregationResult, error) {
	since := windowStart(time.Now().UTC(), req.Window, req.Round)

	result := &models.AggregationResult{
		Cardinality: make(map[string]int64),
		Terms:       make(map[string][]models.Bucket),
		Histograms:  make(map[string][]models.TimePoint),
	}

	total, err := s.totalEvents(ctx, since)
	if err != nil {
		return nil, err
	}
	result.TotalEvents = total

	for _, spec := range req.Aggregations {
		switch spec.Type {
		case models.AggCardinality:
			value, err := s.cardinality(ctx, spec, since)
			if err != nil {
				return nil, err
			}
			result.Cardinality[spec.Name] = value

		case models.AggTerms:
			buckets, err := s.terms(ctx, spec, since)
			if err != nil {
				return nil, err
			}
			result.Terms[spec.Name] = buckets

		case models.AggDateHistogram:
			points, err := s.histogram(ctx, spec, since)
			if err != nil {
				return nil, err
			}
			result.Histograms[spec.Name] = points
		}
	}

	if req.SampleSize > 0 {
		events, err := s.recentEvents(ctx, since, req.SampleSize)
		if err != nil {
			return nil, err
		}
		result.RecentEvents = events
	}

	return result, nil
}

// Ping checks server reachability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) totalEvents(ctx context.Context, since time.Time) (int64, error) {
	query := fmt.Sprintf(`SELECT count() FROM %s WHERE timestamp >= ?`, s.table)

	var total uint64
	if err := s.conn.QueryRow(ctx, query, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: total count: %v", models.ErrStoreQuery, err)
	}
	return int64(total), nil
}

func (s *Store) cardinality(ctx context.Context, spec models.AggregationSpec, since time.Time) (int64, error) {
	col, err := column(spec.Field)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT uniqExact(%s) FROM %s WHERE timestamp >= ?`, col, s.table)

	var value uint64
	if err := s.conn.QueryRow(ctx, query, since).Scan(&value); err != nil {
		return 0, fmt.Errorf("%w: aggregation %s: %v", models.ErrStoreQuery, spec.Name, err)
	}
	return int64(value), nil
}

func (s *Store) terms(ctx context.Context, spec models.AggregationSpec, since time.Time) ([]models.Bucket, error) {
	col, err := column(spec.Field)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT toString(%s) AS key, count() AS hits
		FROM %s
		WHERE timestamp >= ? AND %s != ''
		GROUP BY key
		ORDER BY hits DESC, key ASC
		LIMIT ?`, col, s.table, emptyGuard(col))

	rows, err := s.conn.Query(ctx, query, since, spec.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregation %s: %v", models.ErrStoreQuery, spec.Name, err)
	}
	defer rows.Close()

	var buckets []models.Bucket
	for rows.Next() {
		var key string
		var hits uint64
		if err := rows.Scan(&key, &hits); err != nil {
			return nil, fmt.Errorf("%w: aggregation %s: %v", models.ErrStoreQuery, spec.Name, err)
		}
		buckets = append(buckets, models.Bucket{Key: key, Count: int64(hits)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: aggregation %s: %v", models.ErrStoreQuery, spec.Name, err)
	}
	return buckets, nil
}

func (s *Store) histogram(ctx context.Context, spec models.AggregationSpec, since time.Time) ([]models.TimePoint, error) {
	query := fmt.Sprintf(`
		SELECT toStartOfInterval(timestamp, INTERVAL %d SECOND) AS bucket, count() AS hits
		FROM %s
		WHERE timestamp >= ?
		GROUP BY bucket
		ORDER BY bucket ASC`, int64(spec.Interval.Seconds()), s.table)

	rows, err := s.conn.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregation %s: %v", models.ErrStoreQuery, spec.Name, err)
	}
	defer rows.Close()

	var points []models.TimePoint
	for rows.Next() {
		var bucket time.Time
		var hits uint64
		if err := rows.Scan(&bucket, &hits); err != nil {
			return nil, fmt.Errorf("%w: aggregation %s: %v", models.ErrStoreQuery, spec.Name, err)
		}
		points = append(points, models.TimePoint{Start: bucket.UTC(), Count: int64(hits)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: aggregation %s: %v", models.ErrStoreQuery, spec.Name, err)
	}
	return points, nil
}

func (s *Store) recentEvents(ctx context.Context, since time.Time, limit int) ([]models.AttackEvent, error) {
	query := fmt.Sprintf(`
		SELECT timestamp, source_ip, country, honeypot, lat, lon
		FROM %s
		WHERE timestamp >= ?
		ORDER BY timestamp DESC
		LIMIT ?`, s.table)

	rows, err := s.conn.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent events: %v", models.ErrStoreQuery, err)
	}
	defer rows.Close()

	var events []models.AttackEvent
	for rows.Next() {
		var ev models.AttackEvent
		var lat, lon *float64
		if err := rows.Scan(&ev.Timestamp, &ev.SourceIP, &ev.Country, &ev.Honeypot, &lat, &lon); err != nil {
			return nil, fmt.Errorf("%w: recent events: %v", models.ErrStoreQuery, err)
		}
		if lat != nil && lon != nil {
			ev.Lat = *lat
			ev.Lon = *lon
			ev.HasLocation = true
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: recent events: %v", models.ErrStoreQuery, err)
	}
	return events, nil
}

// column resolves a logical field, rejecting anything outside the known
// set so request fields never reach SQL unchecked.
func column(field string) (string, error) {
	col, ok := columnMap[field]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", models.ErrStoreQuery, field)
	}
	return col, nil
}

// emptyGuard returns the column whose empty values a terms aggregation
// filters out. Numeric columns compare against toString instead.
func emptyGuard(col string) string {
	if col == "dest_port" {
		return "toString(dest_port)"
	}
	return col
}

// windowStart computes the inclusive lower bound of the trailing window,
// aligned the same way the Elasticsearch backend rounds its date math.
func windowStart(now time.Time, window, round time.Duration) time.Time {
	start := now.Add(-window)
	if round > 0 {
		start = start.Truncate(round)
	}
	return start
}
