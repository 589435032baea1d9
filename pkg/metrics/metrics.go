// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-shadowshare.
//
// go-shadowshare is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for go-shadowshare
// operations. A CLI run is short-lived, so metrics are not scraped: they are
// written to a node_exporter textfile at exit when requested.
package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all shadowshare metrics
	Namespace = "shadowshare"

	// Label names
	LabelOperation = "operation"
	LabelStatus    = "status"

	// Status values
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusCheating = "cheating"

	// Operation names
	OpDistribute = "distribute"
	OpRecover    = "recover"
	OpEmbed      = "embed"
	OpExtract    = "extract"
)

var (
	// OperationsTotal tracks sharing operations by type and outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of sharing operations by type and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration tracks the wall time of sharing operations in seconds.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of sharing operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelOperation},
	)

	// BlocksProcessed counts pixel blocks turned into, or rebuilt from, shadows.
	BlocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "blocks_processed_total",
			Help:      "Total number of pixel blocks processed",
		},
		[]string{LabelOperation},
	)

	// CheatingDetected counts recoveries rejected by the consistency check.
	CheatingDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cheating_detected_total",
			Help:      "Total number of recoveries rejected because a share was inconsistent",
		},
	)

	// ShadowBytes counts shadow bytes embedded into or extracted from covers.
	ShadowBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "shadow_bytes_total",
			Help:      "Total number of shadow bytes embedded or extracted",
		},
		[]string{LabelOperation},
	)

	// Goroutines tracks the number of goroutines at collection time.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records a sharing operation with its duration and status.
//
// Example:
//
//	start := time.Now()
//	err := recoverer.Recover(ctx, covers, 0)
//	metrics.RecordOperation(metrics.OpRecover, metrics.StatusSuccess, time.Since(start).Seconds())
func RecordOperation(operation, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordBlocks adds n processed blocks for an operation.
func RecordBlocks(operation string, n int) {
	if !enabled.Load() {
		return
	}
	BlocksProcessed.WithLabelValues(operation).Add(float64(n))
}

// RecordShadowBytes adds n shadow bytes moved through the embedding layer.
func RecordShadowBytes(operation string, n int) {
	if !enabled.Load() {
		return
	}
	ShadowBytes.WithLabelValues(operation).Add(float64(n))
}

// RecordCheating increments the cheating counter.
func RecordCheating() {
	if !enabled.Load() {
		return
	}
	CheatingDetected.Inc()
}

// WriteTextfile gathers the default registry and writes it in the text
// exposition format to path, replacing the file atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("metrics: failed to write textfile %q: %w", path, err)
	}
	return nil
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
