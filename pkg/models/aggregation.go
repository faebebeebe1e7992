package models

import "time"

// Aggregation types the analytics store understands.
const (
	AggCardinality   = "cardinality"
	AggTerms         = "terms"
	AggDateHistogram = "date_histogram"
)

// Logical event field names. Each store backend maps these onto its own
// schema (logstash keyword fields for Elasticsearch, table columns for
// ClickHouse).
const (
	FieldSourceIP = "source_ip"
	FieldCountry  = "country"
	FieldHoneypot = "honeypot"
	FieldDestPort = "dest_port"
	FieldUsername = "username"
	FieldPassword = "password"
)

// AggregationSpec names one aggregation to compute over the queried window.
type AggregationSpec struct {
	Name  string
	Type  string
	Field string

	// Size bounds a terms aggregation (top-N buckets).
	Size int

	// Interval is the bucket width of a date_histogram aggregation.
	Interval time.Duration
}

// AggregationRequest describes one query against the analytics store: a
// trailing time window, the aggregations to compute over it, and how many
// raw most-recent events to return alongside.
type AggregationRequest struct {
	// Window is the trailing period ending now.
	Window time.Duration

	// Round aligns the window edges to this unit (Elasticsearch date-math
	// rounding, e.g. "now-15m/m"). Zero means no rounding.
	Round time.Duration

	Aggregations []AggregationSpec

	// SampleSize is the number of raw events (newest first) to return.
	// Zero means aggregations only.
	SampleSize int
}

// Bucket is one (key, count) pair of a terms aggregation. Order is
// preserved exactly as the store returned it (descending count).
type Bucket struct {
	Key   string `json:"name"`
	Count int64  `json:"value"`
}

// TimePoint is one slot of a date_histogram aggregation.
type TimePoint struct {
	Start time.Time
	Count int64
}

// AttackEvent is one raw telemetry event, reduced to the fields the
// dashboard's geo map needs.
type AttackEvent struct {
	Timestamp   time.Time
	SourceIP    string
	Country     string
	Honeypot    string
	Lat         float64
	Lon         float64
	HasLocation bool
}

// AggregationResult holds everything one store query returned. Immutable
// once returned by the store layer.
type AggregationResult struct {
	// TotalEvents is the raw matching-document count for the window.
	TotalEvents int64

	Cardinality  map[string]int64
	Terms        map[string][]Bucket
	Histograms   map[string][]TimePoint
	RecentEvents []AttackEvent
}

// CardinalityOf returns the named cardinality value, zero when absent.
func (r *AggregationResult) CardinalityOf(name string) int64 {
	return r.Cardinality[name]
}

// TermsOf returns the named terms buckets in store order, nil when absent.
func (r *AggregationResult) TermsOf(name string) []Bucket {
	return r.Terms[name]
}

// TermKeysOf returns just the bucket keys of a terms aggregation, in store
// order.
func (r *AggregationResult) TermKeysOf(name string) []string {
	buckets := r.Terms[name]
	keys := make([]string, 0, len(buckets))
	for _, b := range buckets {
		keys = append(keys, b.Key)
	}
	return keys
}

// HistogramOf returns the named date_histogram points, nil when absent.
func (r *AggregationResult) HistogramOf(name string) []TimePoint {
	return r.Histograms[name]
}
