package api

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// HealthResponse reports process health plus the state of the two things
// this service actually depends on: the analytics store and the freshness
// of the cached analysis.
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version,omitempty"`
	Uptime    string         `json:"uptime,omitempty"`
	Store     string         `json:"store"`
	Analysis  AnalysisHealth `json:"analysis"`
	Memory    *MemoryStats   `json:"memory,omitempty"`
}

// AnalysisHealth describes the cached briefing. Initializing stays true
// until the first refresh cycle commits.
type AnalysisHealth struct {
	Initializing bool      `json:"initializing"`
	LastUpdated  time.Time `json:"last_updated,omitzero"`
	Age          string    `json:"age,omitempty"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	AllocMB      uint64 `json:"alloc_mb"`
	TotalAllocMB uint64 `json:"total_alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
}

var startTime = time.Now()

const storePingTimeout = 2 * time.Second

// HandleHealth returns the health status of the application. The process
// itself reports ok even when the store is down (degraded mode is a
// deliberate serving state); the store field carries the outage.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	storeStatus := "ok"
	pingCtx, cancel := context.WithTimeout(r.Context(), storePingTimeout)
	defer cancel()
	if err := s.dashboard.Ping(pingCtx); err != nil {
		storeStatus = "unreachable"
	}

	briefing := s.cache.Get()
	analysis := AnalysisHealth{
		Initializing: briefing.LastUpdated.IsZero(),
		LastUpdated:  briefing.LastUpdated,
	}
	if !briefing.LastUpdated.IsZero() {
		analysis.Age = time.Since(briefing.LastUpdated).Round(time.Second).String()
	}

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime).String(),
		Store:     storeStatus,
		Analysis:  analysis,
		Memory: &MemoryStats{
			AllocMB:      m.Alloc / 1024 / 1024,
			TotalAllocMB: m.TotalAlloc / 1024 / 1024,
			SysMB:        m.Sys / 1024 / 1024,
			NumGC:        m.NumGC,
		},
	}

	s.respondJSON(w, http.StatusOK, response)
}
