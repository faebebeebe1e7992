package telemetry

import (
	"time"

	"github.com/tpotops/threatbrief/pkg/models"
)

// Aggregation names of the briefing cycle query (15-minute window).
const (
	AggUniqueIPs    = "unique_ips"
	AggTopCountries = "top_countries"
	AggTopHoneypots = "top_honeypots"
	AggTopPorts     = "top_ports"
	AggTopPasswords = "top_passwords"
)

// Aggregation names of the dashboard query (24-hour window).
const (
	AggUniqueAttackers   = "unique_attackers"
	AggAttacksOverTime   = "attacks_over_time"
	AggAttacksByCountry  = "attacks_by_country"
	AggAttacksByHoneypot = "attacks_by_honeypot"
	AggTopAttackedPorts  = "top_attacked_ports"
	AggTopAttackerIPs    = "top_attacker_ips"
	AggTopUsernames      = "top_usernames"
)

// BriefingRequest builds the aggregation query one refresh cycle runs:
// unique attacker IPs plus the top countries, honeypots, ports and
// passwords seen in the trailing window.
func BriefingRequest(window time.Duration, topSize int) models.AggregationRequest {
	return models.AggregationRequest{
		Window: window,
		Round:  time.Minute,
		Aggregations: []models.AggregationSpec{
			{Name: AggUniqueIPs, Type: models.AggCardinality, Field: models.FieldSourceIP},
			{Name: AggTopCountries, Type: models.AggTerms, Field: models.FieldCountry, Size: topSize},
			{Name: AggTopHoneypots, Type: models.AggTerms, Field: models.FieldHoneypot, Size: topSize},
			{Name: AggTopPorts, Type: models.AggTerms, Field: models.FieldDestPort, Size: topSize},
			{Name: AggTopPasswords, Type: models.AggTerms, Field: models.FieldPassword, Size: topSize},
		},
	}
}

// DashboardRequest builds the trailing-day query behind /api/dashboard:
// KPI cardinality, an hourly attack histogram, top-N breakdowns, attempted
// credentials and the most recent raw events for the geo map.
func DashboardRequest(window, interval time.Duration, topSize, credentialSize, sampleSize int) models.AggregationRequest {
	return models.AggregationRequest{
		Window:     window,
		Round:      interval,
		SampleSize: sampleSize,
		Aggregations: []models.AggregationSpec{
			{Name: AggUniqueAttackers, Type: models.AggCardinality, Field: models.FieldSourceIP},
			{Name: AggAttacksOverTime, Type: models.AggDateHistogram, Interval: interval},
			{Name: AggAttacksByCountry, Type: models.AggTerms, Field: models.FieldCountry, Size: topSize},
			{Name: AggAttacksByHoneypot, Type: models.AggTerms, Field: models.FieldHoneypot, Size: topSize},
			{Name: AggTopAttackedPorts, Type: models.AggTerms, Field: models.FieldDestPort, Size: topSize},
			{Name: AggTopAttackerIPs, Type: models.AggTerms, Field: models.FieldSourceIP, Size: topSize},
			{Name: AggTopUsernames, Type: models.AggTerms, Field: models.FieldUsername, Size: credentialSize},
			{Name: AggTopPasswords, Type: models.AggTerms, Field: models.FieldPassword, Size: credentialSize},
		},
	}
}
