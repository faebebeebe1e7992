package api

import (
	"context"
	"time"

	"github.com/tpotops/threatbrief/internal/telemetry"
	"github.com/tpotops/threatbrief/pkg/models"
)

// Dashboard answers /api/dashboard by querying the analytics store
// directly (independently of the refresh cycle) and shaping the raw
// aggregation result into what the frontend consumes.
type Dashboard struct {
	store          telemetry.Store
	window         time.Duration
	interval       time.Duration
	topSize        int
	credentialSize int
	sampleSize     int

	now func() time.Time
}

// DashboardConfig bounds the dashboard query.
type DashboardConfig struct {
	Window            time.Duration
	BucketInterval    time.Duration
	TopSize           int
	CredentialTopSize int
	SampleSize        int
}

// DefaultDashboardConfig matches what the frontend charts were built for:
// a trailing day in hourly buckets, top-10 breakdowns, top-15 credentials
// and up to 200 recent events on the map.
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Window:            24 * time.Hour,
		BucketInterval:    time.Hour,
		TopSize:           10,
		CredentialTopSize: 15,
		SampleSize:        200,
	}
}

// NewDashboard creates the dashboard read path over the given store.
func NewDashboard(store telemetry.Store, cfg DashboardConfig) *Dashboard {
	return &Dashboard{
		store:          store,
		window:         cfg.Window,
		interval:       cfg.BucketInterval,
		topSize:        cfg.TopSize,
		credentialSize: cfg.CredentialTopSize,
		sampleSize:     cfg.SampleSize,
		now:            time.Now,
	}
}

// Ping reports whether the analytics store behind the dashboard is
// reachable.
func (d *Dashboard) Ping(ctx context.Context) error {
	return d.store.Ping(ctx)
}

// Load runs the dashboard aggregation query and shapes the response.
func (d *Dashboard) Load(ctx context.Context) (*models.DashboardData, error) {
	req := telemetry.DashboardRequest(d.window, d.interval, d.topSize, d.credentialSize, d.sampleSize)
	res, err := d.store.Aggregate(ctx, req)
	if err != nil {
		return nil, err
	}
	return d.shape(res), nil
}

func (d *Dashboard) shape(res *models.AggregationResult) *models.DashboardData {
	countries := res.TermsOf(telemetry.AggAttacksByCountry)
	honeypots := res.TermsOf(telemetry.AggAttacksByHoneypot)

	return &models.DashboardData{
		KPITotalAttacks:    res.TotalEvents,
		KPIUniqueAttackers: res.CardinalityOf(telemetry.AggUniqueAttackers),
		KPITopCountry:      topKey(countries),
		KPITopHoneypot:     topKey(honeypots),
		AttacksOverTime:    zeroFill(res.HistogramOf(telemetry.AggAttacksOverTime), d.now().UTC(), d.window, d.interval),
		AttacksByCountry:   orEmpty(countries),
		AttacksByHoneypot:  orEmpty(honeypots),
		TopPorts:           orEmpty(res.TermsOf(telemetry.AggTopAttackedPorts)),
		TopAttackers:       orEmpty(res.TermsOf(telemetry.AggTopAttackerIPs)),
		TopUsernames:       res.TermKeysOf(telemetry.AggTopUsernames),
		TopPasswords:       res.TermKeysOf(telemetry.AggTopPasswords),
		RecentAttacks:      geoAttacks(res.RecentEvents),
	}
}

// topKey returns the highest-count bucket key, or "N/A" when the window
// produced no buckets.
func topKey(buckets []models.Bucket) string {
	if len(buckets) == 0 {
		return "N/A"
	}
	return buckets[0].Key
}

// orEmpty keeps JSON arrays as [] instead of null.
func orEmpty(buckets []models.Bucket) []models.Bucket {
	if buckets == nil {
		return []models.Bucket{}
	}
	return buckets
}

// zeroFill expands a sparse histogram into exactly window/interval
// buckets covering the trailing window up to now, with zero counts for
// intervals the store returned nothing for.
func zeroFill(points []models.TimePoint, now time.Time, window, interval time.Duration) []models.TimeBucket {
	n := int(window / interval)

	counts := make(map[int64]int64, len(points))
	for _, p := range points {
		counts[p.Start.Truncate(interval).UnixMilli()] += p.Count
	}

	start := now.Truncate(interval).Add(-time.Duration(n-1) * interval)
	out := make([]models.TimeBucket, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * interval).UnixMilli()
		out = append(out, models.TimeBucket{Name: ts, Value: counts[ts]})
	}
	return out
}

// geoAttacks keeps only events carrying a resolvable geolocation.
func geoAttacks(events []models.AttackEvent) []models.GeoAttack {
	out := make([]models.GeoAttack, 0, len(events))
	for _, ev := range events {
		if !ev.HasLocation {
			continue
		}
		out = append(out, models.GeoAttack{
			Lat:      ev.Lat,
			Lon:      ev.Lon,
			IP:       ev.SourceIP,
			Country:  ev.Country,
			Honeypot: ev.Honeypot,
		})
	}
	return out
}
