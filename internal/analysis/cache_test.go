package analysis

import (
	"sync"
	"testing"
	"time"

	"github.com/tpotops/threatbrief/pkg/models"
)

func TestCacheSeededWithPlaceholder(t *testing.T) {
	cache := NewCache()

	got := cache.Get()
	if got.ThreatType != models.PlaceholderThreatType {
		t.Errorf("ThreatType = %q, want %q", got.ThreatType, models.PlaceholderThreatType)
	}
	if got.Summary == "" {
		t.Error("placeholder summary is empty")
	}
	if len(got.Recommendations) == 0 {
		t.Error("placeholder recommendations are empty")
	}
	if !got.LastUpdated.IsZero() {
		t.Errorf("placeholder LastUpdated = %v, want zero", got.LastUpdated)
	}
}

func TestCacheSetReplacesWholesale(t *testing.T) {
	cache := NewCache()

	first := models.Briefing{
		Summary:         "SSH brute force from a small botnet.",
		ThreatType:      "SSH Brute-Force",
		Recommendations: []string{"Rotate credentials", "Enable fail2ban"},
		LastUpdated:     time.Now().UTC(),
	}
	cache.Set(first)

	second := models.Briefing{
		Summary:         "Broad port scanning across the sensor fleet.",
		ThreatType:      "Automated Scanning",
		Recommendations: []string{"Review firewall rules"},
		LastUpdated:     time.Now().UTC(),
	}
	cache.Set(second)

	got := cache.Get()
	if got.ThreatType != second.ThreatType {
		t.Errorf("ThreatType = %q, want %q", got.ThreatType, second.ThreatType)
	}
	if len(got.Recommendations) != 1 {
		t.Errorf("Recommendations = %v, want the full replacement value", got.Recommendations)
	}
}

func TestCacheConcurrentReaders(t *testing.T) {
	cache := NewCache()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				b := cache.Get()
				// A reader must always observe a complete briefing.
				if b.Summary == "" || b.ThreatType == "" || len(b.Recommendations) == 0 {
					t.Error("observed incomplete briefing")
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		cache.Set(models.Briefing{
			Summary:         "Web server probing against exposed panels.",
			ThreatType:      "Web Server Probing",
			Recommendations: []string{"Patch exposed services", "Restrict admin panels"},
			LastUpdated:     time.Now().UTC(),
		})
	}

	close(stop)
	wg.Wait()
}
