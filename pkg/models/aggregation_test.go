package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAggregationResultAccessors(t *testing.T) {
	res := &AggregationResult{
		TotalEvents: 100,
		Cardinality: map[string]int64{"unique_ips": 7},
		Terms: map[string][]Bucket{
			"top_countries": {{Key: "China", Count: 60}, {Key: "Russia", Count: 40}},
		},
		Histograms: map[string][]TimePoint{
			"attacks_over_time": {{Start: time.Unix(0, 0), Count: 100}},
		},
	}

	if got := res.CardinalityOf("unique_ips"); got != 7 {
		t.Errorf("CardinalityOf = %d", got)
	}
	if got := res.CardinalityOf("missing"); got != 0 {
		t.Errorf("CardinalityOf(missing) = %d, want 0", got)
	}

	keys := res.TermKeysOf("top_countries")
	if len(keys) != 2 || keys[0] != "China" || keys[1] != "Russia" {
		t.Errorf("TermKeysOf = %v, want store order preserved", keys)
	}
	if got := res.TermKeysOf("missing"); len(got) != 0 || got == nil {
		t.Errorf("TermKeysOf(missing) = %v, want empty non-nil slice", got)
	}

	if got := res.TermsOf("missing"); got != nil {
		t.Errorf("TermsOf(missing) = %v, want nil", got)
	}
	if got := res.HistogramOf("attacks_over_time"); len(got) != 1 {
		t.Errorf("HistogramOf = %v", got)
	}
}

// The chart frontend consumes buckets as {name, value} pairs.
func TestBucketJSONShape(t *testing.T) {
	raw, err := json.Marshal(Bucket{Key: "China", Count: 640})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"name":"China","value":640}` {
		t.Errorf("bucket JSON = %s", raw)
	}
}
