// Package elastic implements the telemetry store against the
// Elasticsearch instance bundled with T-Pot.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"

	"github.com/tpotops/threatbrief/pkg/models"
)

// Config holds Elasticsearch connection parameters.
type Config struct {
	URL      string
	Index    string
	Username string
	Password string
	Timeout  time.Duration
}

// DefaultConfig returns the connection settings of a stock T-Pot install.
func DefaultConfig() Config {
	return Config{
		URL:     "http://localhost:64298",
		Index:   "logstash-*",
		Timeout: 30 * time.Second,
	}
}

// fieldMap translates logical event fields onto T-Pot's logstash mapping.
var fieldMap = map[string]string{
	models.FieldSourceIP: "source_ip.keyword",
	models.FieldCountry:  "geoip.country_name.keyword",
	models.FieldHoneypot: "honeypot.keyword",
	models.FieldDestPort: "dest_port",
	models.FieldUsername: "user.keyword",
	models.FieldPassword: "password.keyword",
}

const timestampField = "@timestamp"

// Store implements telemetry.Store against Elasticsearch.
type Store struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewStore creates an Elasticsearch-backed analytics store. The client is
// lazy: no connection is attempted until the first query, so construction
// succeeds even when the cluster is down.
func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("elasticsearch index pattern is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	return &Store{
		client:  client,
		index:   cfg.Index,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Aggregate runs one search with all requested aggregations and extracts
// the named buckets from the response.
func (s *Store) Aggregate(ctx context.Context, req models.AggregationRequest) (*models.AggregationResult, error) {
	body, err := json.Marshal(buildBody(req))
	if err != nil {
		return nil, fmt.Errorf("%w: encoding query: %v", models.ErrStoreQuery, err)
	}

	// Every call is bounded by the configured timeout; the caller's context
	// may be process-lifetime.
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
		s.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w: status %s: %s", models.ErrStoreQuery, res.Status(), snippet)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", models.ErrStoreQuery, err)
	}

	return extractResult(req, &parsed)
}

// Ping checks cluster reachability.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: status %s", models.ErrStoreUnavailable, res.Status())
	}
	return nil
}

// Close is a no-op: the underlying client keeps no persistent connections
// that need explicit teardown.
func (s *Store) Close() error { return nil }

// buildBody renders the request as an Elasticsearch search body.
func buildBody(req models.AggregationRequest) map[string]any {
	aggs := make(map[string]any, len(req.Aggregations))
	for _, spec := range req.Aggregations {
		switch spec.Type {
		case models.AggCardinality:
			aggs[spec.Name] = map[string]any{
				"cardinality": map[string]any{"field": esField(spec.Field)},
			}
		case models.AggTerms:
			aggs[spec.Name] = map[string]any{
				"terms": map[string]any{"field": esField(spec.Field), "size": spec.Size},
			}
		case models.AggDateHistogram:
			aggs[spec.Name] = map[string]any{
				"date_histogram": map[string]any{
					"field":          timestampField,
					"fixed_interval": intervalExpr(spec.Interval),
					"min_doc_count":  0,
					"extended_bounds": map[string]any{
						"min": windowExpr(req.Window, req.Round),
						"max": nowExpr(req.Round),
					},
				},
			}
		}
	}

	body := map[string]any{
		"size": req.SampleSize,
		"query": map[string]any{
			"range": map[string]any{
				timestampField: map[string]any{"gte": windowExpr(req.Window, req.Round)},
			},
		},
		"aggs": aggs,
	}
	if req.SampleSize > 0 {
		body["sort"] = []any{map[string]any{timestampField: "desc"}}
	}
	return body
}

func esField(logical string) string {
	if mapped, ok := fieldMap[logical]; ok {
		return mapped
	}
	return logical
}

// windowExpr renders the window start in Elasticsearch date math, e.g.
// "now-15m/m" or "now-24h/h".
func windowExpr(window, round time.Duration) string {
	return "now-" + intervalExpr(window) + roundSuffix(round)
}

func nowExpr(round time.Duration) string {
	return "now" + roundSuffix(round)
}

func intervalExpr(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return strconv.Itoa(int(d/time.Hour)) + "h"
	}
	return strconv.Itoa(int(d/time.Minute)) + "m"
}

func roundSuffix(round time.Duration) string {
	switch {
	case round == 0:
		return ""
	case round >= time.Hour:
		return "/h"
	default:
		return "/m"
	}
}

// Response decoding.

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source eventSource `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

type eventSource struct {
	Timestamp time.Time `json:"@timestamp"`
	SourceIP  string    `json:"source_ip"`
	Honeypot  string    `json:"honeypot"`
	GeoIP     struct {
		CountryName string `json:"country_name"`
		Location    *struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"location"`
	} `json:"geoip"`
}

type cardinalityAgg struct {
	Value int64 `json:"value"`
}

type termsAgg struct {
	Buckets []struct {
		Key      any   `json:"key"`
		DocCount int64 `json:"doc_count"`
	} `json:"buckets"`
}

type histogramAgg struct {
	Buckets []struct {
		Key      int64 `json:"key"`
		DocCount int64 `json:"doc_count"`
	} `json:"buckets"`
}

func extractResult(req models.AggregationRequest, parsed *searchResponse) (*models.AggregationResult, error) {
	result := &models.AggregationResult{
		TotalEvents: parsed.Hits.Total.Value,
		Cardinality: make(map[string]int64),
		Terms:       make(map[string][]models.Bucket),
		Histograms:  make(map[string][]models.TimePoint),
	}

	for _, spec := range req.Aggregations {
		raw, ok := parsed.Aggregations[spec.Name]
		if !ok {
			continue
		}
		switch spec.Type {
		case models.AggCardinality:
			var agg cardinalityAgg
			if err := json.Unmarshal(raw, &agg); err != nil {
				return nil, fmt.Errorf("%w: aggregation %s: %v", models.ErrStoreQuery, spec.Name, err)
			}
			result.Cardinality[spec.Name] = agg.Value

		case models.AggTerms:
			var agg termsAgg
			if err := json.Unmarshal(raw, &agg); err != nil {
				return nil, fmt.Errorf("%w: aggregation %s: %v", models.ErrStoreQuery, spec.Name, err)
			}
			buckets := make([]models.Bucket, 0, len(agg.Buckets))
			for _, b := range agg.Buckets {
				buckets = append(buckets, models.Bucket{Key: keyString(b.Key), Count: b.DocCount})
			}
			result.Terms[spec.Name] = buckets

		case models.AggDateHistogram:
			var agg histogramAgg
			if err := json.Unmarshal(raw, &agg); err != nil {
				return nil, fmt.Errorf("%w: aggregation %s: %v", models.ErrStoreQuery, spec.Name, err)
			}
			points := make([]models.TimePoint, 0, len(agg.Buckets))
			for _, b := range agg.Buckets {
				points = append(points, models.TimePoint{
					Start: time.UnixMilli(b.Key).UTC(),
					Count: b.DocCount,
				})
			}
			result.Histograms[spec.Name] = points
		}
	}

	for _, hit := range parsed.Hits.Hits {
		ev := models.AttackEvent{
			Timestamp: hit.Source.Timestamp,
			SourceIP:  hit.Source.SourceIP,
			Country:   hit.Source.GeoIP.CountryName,
			Honeypot:  hit.Source.Honeypot,
		}
		if loc := hit.Source.GeoIP.Location; loc != nil {
			ev.Lat = loc.Lat
			ev.Lon = loc.Lon
			ev.HasLocation = true
		}
		result.RecentEvents = append(result.RecentEvents, ev)
	}

	return result, nil
}

// keyString normalizes a terms bucket key: string fields come back as
// strings, numeric fields (dest_port) as float64.
func keyString(key any) string {
	switch v := key.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
