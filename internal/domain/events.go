package domain

import "time"

// Sync operation names recorded in SyncEvent.
const (
	OpIndex  = "index"
	OpDelete = "delete"
	OpBatch  = "batch"
)

// SyncEvent is one observability record for a sync attempt. Held
// transiently in the shared cache as a bounded ring; no durability
// guarantee across restarts.
type SyncEvent struct {
	Kind          string    `json:"kind"`
	Operation     string    `json:"operation"`
	Success       bool      `json:"success"`
	DurationMS    int64     `json:"duration_ms"`
	DocumentCount int       `json:"document_count"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// QueryMetric is one latency/outcome sample for a search query.
type QueryMetric struct {
	Query     string    `json:"query"`
	LatencyMS int64     `json:"latency_ms"`
	Success   bool      `json:"success"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryStats aggregates the current QueryMetric ring. Derived on read,
// never stored incrementally.
type QueryStats struct {
	TotalQueries int     `json:"total_queries"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	MaxLatencyMS int64   `json:"max_latency_ms"`
	ErrorRate    float64 `json:"error_rate"`
}

// Health is the derived three-level classification of the engine.
type Health string

// Health values.
const (
	Healthy   Health = "healthy"
	Degraded  Health = "degraded"
	Unhealthy Health = "unhealthy"
)

// HealthReport is the outcome of a health check.
type HealthReport struct {
	Status          Health     `json:"status"`
	EngineReachable bool       `json:"engine_reachable"`
	Stats           QueryStats `json:"stats"`
	Reason          string     `json:"reason,omitempty"`
	CheckedAt       time.Time  `json:"checked_at"`
}

// Dashboard is the operator-facing status snapshot.
type Dashboard struct {
	Health        HealthReport  `json:"health"`
	Metrics       QueryStats    `json:"metrics"`
	RecentQueries []QueryMetric `json:"recent_queries"`
	RecentErrors  []SyncEvent   `json:"recent_errors"`
	SyncEvents    []SyncEvent   `json:"sync_events"`
}
