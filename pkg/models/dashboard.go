package models

// TimeBucket is one entry of the attacks-over-time chart series. Name
// carries the bucket start as unix milliseconds, which is what the
// dashboard frontend plots on the x axis.
type TimeBucket struct {
	Name  int64 `json:"name"`
	Value int64 `json:"value"`
}

// GeoAttack is one geolocated event on the dashboard's attack map.
type GeoAttack struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	IP       string  `json:"ip"`
	Country  string  `json:"country"`
	Honeypot string  `json:"honeypot"`
}

// DashboardData is the response body of GET /api/dashboard. Field names
// match what the existing T-Pot dashboard frontend consumes.
type DashboardData struct {
	KPITotalAttacks    int64        `json:"kpi_total_attacks"`
	KPIUniqueAttackers int64        `json:"kpi_unique_attackers"`
	KPITopCountry      string       `json:"kpi_top_country"`
	KPITopHoneypot     string       `json:"kpi_top_honeypot"`
	AttacksOverTime    []TimeBucket `json:"chart_attacks_over_time"`
	AttacksByCountry   []Bucket     `json:"chart_attacks_by_country"`
	AttacksByHoneypot  []Bucket     `json:"chart_attacks_by_honeypot"`
	TopPorts           []Bucket     `json:"chart_top_ports"`
	TopAttackers       []Bucket     `json:"table_top_attackers"`
	TopUsernames       []string     `json:"list_top_usernames"`
	TopPasswords       []string     `json:"list_top_passwords"`
	RecentAttacks      []GeoAttack  `json:"map_recent_attacks"`
}
