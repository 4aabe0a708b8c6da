// Package monitor records latency and outcome samples for queries and sync
// operations into the shared cache, derives aggregate metrics on read, and
// classifies system health against configurable thresholds.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lumenpress/searchsync/internal/cache"
	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/metrics"
)

// EnginePinger checks search engine reachability.
type EnginePinger interface {
	Health(ctx context.Context) error
}

// Thresholds classify health from aggregate query samples. Error rates are
// fractions (0.05 = 5%).
type Thresholds struct {
	DegradedLatencyMS  float64
	UnhealthyLatencyMS float64
	DegradedErrorRate  float64
	UnhealthyErrorRate float64
}

// DefaultThresholds returns the stock classification thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DegradedLatencyMS:  100,
		UnhealthyLatencyMS: 500,
		DegradedErrorRate:  0.01,
		UnhealthyErrorRate: 0.05,
	}
}

// Config tunes ring sizes and snapshot TTLs.
type Config struct {
	KeyPrefix     string
	QueryRingSize int64
	SyncRingSize  int64
	RingTTL       time.Duration
	HealthTTL     time.Duration
	Thresholds    Thresholds
}

// DefaultConfig returns the stock monitor configuration.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:     "searchsync:",
		QueryRingSize: 50,
		SyncRingSize:  10,
		RingTTL:       time.Hour,
		HealthTTL:     5 * time.Minute,
		Thresholds:    DefaultThresholds(),
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.KeyPrefix == "" {
		c.KeyPrefix = d.KeyPrefix
	}
	if c.QueryRingSize <= 0 {
		c.QueryRingSize = d.QueryRingSize
	}
	if c.SyncRingSize <= 0 {
		c.SyncRingSize = d.SyncRingSize
	}
	if c.RingTTL <= 0 {
		c.RingTTL = d.RingTTL
	}
	if c.HealthTTL <= 0 {
		c.HealthTTL = d.HealthTTL
	}
	if c.Thresholds == (Thresholds{}) {
		c.Thresholds = d.Thresholds
	}
}

// Monitor wraps query execution and sync recording. Safe for concurrent
// use: ring appends are atomic on the cache backend.
type Monitor struct {
	store  cache.Store
	engine EnginePinger
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

// New creates a Monitor.
func New(store cache.Store, engine EnginePinger, cfg Config, log *zap.Logger) *Monitor {
	cfg.applyDefaults()
	return &Monitor{store: store, engine: engine, cfg: cfg, log: log, now: time.Now}
}

func (m *Monitor) queryKey() string  { return m.cfg.KeyPrefix + "metrics:queries" }
func (m *Monitor) syncKey() string   { return m.cfg.KeyPrefix + "sync:events" }
func (m *Monitor) errorKey() string  { return m.cfg.KeyPrefix + "sync:errors" }
func (m *Monitor) healthKey() string { return m.cfg.KeyPrefix + "health" }

// TrackQuery measures fn, records a QueryMetric sample, and returns fn's
// outcome unchanged. Recording failures are logged, never surfaced.
func (m *Monitor) TrackQuery(ctx context.Context, query, userID string, fn func() error) error {
	start := m.now()
	err := fn()
	latency := m.now().Sub(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.QueriesTotal.WithLabelValues(status).Inc()
	metrics.QueryDuration.Observe(latency.Seconds())

	m.push(ctx, m.queryKey(), m.cfg.QueryRingSize, domain.QueryMetric{
		Query:     query,
		LatencyMS: latency.Milliseconds(),
		Success:   err == nil,
		UserID:    userID,
		Timestamp: start,
	})
	return err
}

// RecordSync appends a SyncEvent sample. Failed events are additionally
// kept in a separate error ring for the dashboard.
func (m *Monitor) RecordSync(
	ctx context.Context, kind, operation string, success bool,
	duration time.Duration, count int, cause error,
) {
	result := "success"
	if !success {
		result = "error"
	}
	metrics.SyncOperationsTotal.WithLabelValues(kind, operation, result).Inc()
	metrics.SyncDuration.WithLabelValues(kind, operation).Observe(duration.Seconds())
	if success && count > 0 {
		metrics.DocumentsSynced.WithLabelValues(kind).Add(float64(count))
	}

	event := domain.SyncEvent{
		Kind:          kind,
		Operation:     operation,
		Success:       success,
		DurationMS:    duration.Milliseconds(),
		DocumentCount: count,
		Timestamp:     m.now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	m.push(ctx, m.syncKey(), m.cfg.SyncRingSize, event)
	if !success {
		m.push(ctx, m.errorKey(), m.cfg.SyncRingSize, event)
	}
}

// Metrics aggregates the current query ring. Derived on every read, never
// stored incrementally.
func (m *Monitor) Metrics(ctx context.Context) (domain.QueryStats, error) {
	samples, err := m.recentQueries(ctx)
	if err != nil {
		return domain.QueryStats{}, err
	}
	return aggregate(samples), nil
}

// CheckHealth classifies the system: engine unreachable is unhealthy;
// otherwise aggregate latency and error rate decide. The verdict is cached
// briefly so dashboard polling does not hammer the engine.
func (m *Monitor) CheckHealth(ctx context.Context) domain.HealthReport {
	if cached, ok := m.cachedHealth(ctx); ok {
		return cached
	}

	report := m.classify(ctx)

	if payload, err := json.Marshal(report); err == nil {
		if err := m.store.Set(ctx, m.healthKey(), payload, m.cfg.HealthTTL); err != nil {
			m.log.Debug("health snapshot not cached", zap.Error(err))
		}
	}
	return report
}

func (m *Monitor) classify(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{CheckedAt: m.now()}

	if err := m.engine.Health(ctx); err != nil {
		report.Status = domain.Unhealthy
		report.Reason = "search engine unreachable"
		return report
	}
	report.EngineReachable = true

	stats, err := m.Metrics(ctx)
	if err != nil {
		// No samples available: reachable engine counts as healthy.
		m.log.Debug("query metrics unavailable for health check", zap.Error(err))
		report.Status = domain.Healthy
		return report
	}
	report.Stats = stats

	t := m.cfg.Thresholds
	switch {
	case stats.ErrorRate > t.UnhealthyErrorRate:
		report.Status = domain.Unhealthy
		report.Reason = "error rate above " + formatRate(t.UnhealthyErrorRate)
	case stats.AvgLatencyMS > t.UnhealthyLatencyMS:
		report.Status = domain.Unhealthy
		report.Reason = "average latency above " + formatMS(t.UnhealthyLatencyMS)
	case stats.ErrorRate > t.DegradedErrorRate:
		report.Status = domain.Degraded
		report.Reason = "error rate above " + formatRate(t.DegradedErrorRate)
	case stats.AvgLatencyMS > t.DegradedLatencyMS:
		report.Status = domain.Degraded
		report.Reason = "average latency above " + formatMS(t.DegradedLatencyMS)
	default:
		report.Status = domain.Healthy
	}
	return report
}

// Dashboard assembles the operator-facing status snapshot.
func (m *Monitor) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	queries, err := m.recentQueries(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	events, err := decodeRing[domain.SyncEvent](ctx, m.store, m.syncKey())
	if err != nil {
		return domain.Dashboard{}, err
	}
	failures, err := decodeRing[domain.SyncEvent](ctx, m.store, m.errorKey())
	if err != nil {
		return domain.Dashboard{}, err
	}

	return domain.Dashboard{
		Health:        m.CheckHealth(ctx),
		Metrics:       aggregate(queries),
		RecentQueries: queries,
		RecentErrors:  failures,
		SyncEvents:    events,
	}, nil
}

func (m *Monitor) recentQueries(ctx context.Context) ([]domain.QueryMetric, error) {
	return decodeRing[domain.QueryMetric](ctx, m.store, m.queryKey())
}

func (m *Monitor) cachedHealth(ctx context.Context) (domain.HealthReport, bool) {
	payload, err := m.store.Get(ctx, m.healthKey())
	if err != nil {
		if !errors.Is(err, cache.ErrKeyNotFound) {
			m.log.Debug("health snapshot read failed", zap.Error(err))
		}
		return domain.HealthReport{}, false
	}
	var report domain.HealthReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return domain.HealthReport{}, false
	}
	return report, true
}

// push appends one JSON-encoded sample to a bounded ring. Best effort:
// observability must never fail the operation it observes.
func (m *Monitor) push(ctx context.Context, key string, size int64, sample any) {
	payload, err := json.Marshal(sample)
	if err != nil {
		m.log.Warn("metric sample not encodable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := m.store.PushBounded(ctx, key, payload, size, m.cfg.RingTTL); err != nil {
		m.log.Warn("metric sample not recorded", zap.String("key", key), zap.Error(err))
	}
}

// decodeRing reads a bounded ring and unmarshals each entry, skipping
// entries that no longer parse.
func decodeRing[T any](ctx context.Context, store cache.Store, key string) ([]T, error) {
	entries, err := store.GetList(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, raw := range entries {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func aggregate(samples []domain.QueryMetric) domain.QueryStats {
	stats := domain.QueryStats{TotalQueries: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	var totalMS, failures int64
	for _, s := range samples {
		totalMS += s.LatencyMS
		if s.LatencyMS > stats.MaxLatencyMS {
			stats.MaxLatencyMS = s.LatencyMS
		}
		if !s.Success {
			failures++
		}
	}
	stats.AvgLatencyMS = float64(totalMS) / float64(len(samples))
	stats.ErrorRate = float64(failures) / float64(len(samples))
	return stats
}

func formatRate(r float64) string {
	return strconv.FormatFloat(r*100, 'g', -1, 64) + "%"
}

func formatMS(ms float64) string {
	return strconv.FormatFloat(ms, 'g', -1, 64) + "ms"
}
