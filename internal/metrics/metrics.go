package metrics

import (
	"sync"
	"time"
)

// TimerMetric captures timing information for one operation name.
type TimerMetric struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

type timerState struct {
	count       int64
	totalTimeMs int64
	minTimeMs   int64
	maxTimeMs   int64
}

// Metrics is an in-process collector for the assistant's counters,
// gauges, operation timings and component health. Exposed as JSON on the
// metrics endpoint.
type Metrics struct {
	mu        sync.RWMutex
	counters  map[string]int64
	gauges    map[string]int64
	timers    map[string]*timerState
	health    map[string]bool
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:  make(map[string]int64),
		gauges:    make(map[string]int64),
		timers:    make(map[string]*timerState),
		health:    make(map[string]bool),
		startTime: time.Now(),
	}
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the specified value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// RecordTimer records one timing measurement
func (m *Metrics) RecordTimer(name string, durationMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[name]
	if !ok {
		t = &timerState{minTimeMs: durationMs, maxTimeMs: durationMs}
		m.timers[name] = t
	}

	t.count++
	t.totalTimeMs += durationMs
	if durationMs < t.minTimeMs {
		t.minTimeMs = durationMs
	}
	if durationMs > t.maxTimeMs {
		t.maxTimeMs = durationMs
	}
}

// SetHealth sets the health status of a component
func (m *Metrics) SetHealth(component string, isHealthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health[component] = isHealthy
}

// GetCounters returns a snapshot of all counters
func (m *Metrics) GetCounters() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, value := range m.counters {
		counters[name] = value
	}
	return counters
}

// GetGauges returns a snapshot of all gauges
func (m *Metrics) GetGauges() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gauges := make(map[string]int64, len(m.gauges))
	for name, value := range m.gauges {
		gauges[name] = value
	}
	return gauges
}

// GetTimers returns a snapshot of all timers
func (m *Metrics) GetTimers() map[string]TimerMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	timers := make(map[string]TimerMetric, len(m.timers))
	for name, t := range m.timers {
		var average float64
		if t.count > 0 {
			average = float64(t.totalTimeMs) / float64(t.count)
		}
		timers[name] = TimerMetric{
			Count:         t.count,
			TotalTimeMs:   t.totalTimeMs,
			AverageTimeMs: average,
			MinTimeMs:     t.minTimeMs,
			MaxTimeMs:     t.maxTimeMs,
		}
	}
	return timers
}

// GetHealthChecks returns a snapshot of all component health states
func (m *Metrics) GetHealthChecks() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	checks := make(map[string]bool, len(m.health))
	for name, healthy := range m.health {
		checks[name] = healthy
	}
	return checks
}

// GetUptimeSeconds returns the service uptime in seconds
func (m *Metrics) GetUptimeSeconds() int64 {
	return int64(time.Since(m.startTime).Seconds())
}

// GetAllMetrics returns all metrics in a structured format
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": m.GetUptimeSeconds(),
		"counters":       m.GetCounters(),
		"gauges":         m.GetGauges(),
		"timers":         m.GetTimers(),
		"health_checks":  m.GetHealthChecks(),
	}
}
