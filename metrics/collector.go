// Package metrics provides metrics collection for query and export runs.
package metrics

import (
	"time"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncrementCounter increments a counter metric.
	IncrementCounter(name string, labels ...string)

	// RecordHistogram records a value in a histogram metric.
	RecordHistogram(name string, value float64, labels ...string)

	// RecordGauge records a gauge metric value.
	RecordGauge(name string, value float64, labels ...string)

	// StartTimer starts a timer for measuring duration.
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	// Stop returns the duration in seconds since the timer started.
	Stop() float64
}

// NoOpCollector is a no-op implementation of Collector.
type NoOpCollector struct{}

// NewNoOpCollector creates a new no-op collector.
func NewNoOpCollector() Collector {
	return &NoOpCollector{}
}

// IncrementCounter does nothing.
func (n *NoOpCollector) IncrementCounter(string, ...string) {}

// RecordHistogram does nothing.
func (n *NoOpCollector) RecordHistogram(string, float64, ...string) {}

// RecordGauge does nothing.
func (n *NoOpCollector) RecordGauge(string, float64, ...string) {}

// StartTimer returns a timer that still measures elapsed time.
func (n *NoOpCollector) StartTimer(string) Timer {
	return &timer{start: time.Now()}
}

// timer measures wall-clock time since start.
type timer struct {
	start time.Time
}

// Stop returns the elapsed time in seconds.
func (t *timer) Stop() float64 {
	return time.Since(t.start).Seconds()
}
