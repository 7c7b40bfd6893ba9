// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics for the uiserver.
//
// # Description
//
// This package implements Prometheus metrics for monitoring session
// synchronization. Metrics include:
//   - Session lifecycle counters and an active-session gauge
//   - Sync frame counters and per-frame change histograms
//   - Navigation counters (by status)
//   - Push latency histograms
//
// # Integration
//
// Metrics are registered against a caller-supplied registry and exposed
// via the /metrics endpoint. There is no package-level default
// instance; each server constructs its own Metrics so tests and
// embedded uses never fight over a shared registry.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all uiserver metrics.
const metricsNamespace = "wheelhouse"

// Subsystem for state synchronization metrics.
const syncSubsystem = "uisync"

// Frame kinds for FramesTotal.
const (
	// FrameIncremental labels frames built from collected dirt.
	FrameIncremental = "incremental"

	// FrameFull labels snapshot frames built after a resync.
	FrameFull = "full"
)

// Navigation statuses for NavigationsTotal.
const (
	// NavOK labels navigations that resolved and rendered.
	NavOK = "ok"

	// NavNotFound labels navigations to unregistered routes.
	NavNotFound = "not_found"

	// NavError labels navigations that failed while reconciling.
	NavError = "error"
)

// Reject reasons for InboundRejectedTotal.
const (
	// RejectInvalid labels messages that failed envelope validation.
	RejectInvalid = "invalid"

	// RejectRateLimited labels messages dropped by the per-session
	// limiter.
	RejectRateLimited = "rate_limited"
)

// Metrics holds all Prometheus metrics for the uiserver.
//
// # Description
//
// Construct once per server with NewMetrics and thread through the
// handlers. Every instrument is registered against the registry given
// to NewMetrics.
//
// # Thread Safety
//
// All operations are thread-safe.
type Metrics struct {
	// SessionsTotal counts sessions ever created.
	SessionsTotal prometheus.Counter

	// SessionsActive tracks currently live sessions.
	SessionsActive prometheus.Gauge

	// SessionsEvictedTotal counts sessions removed, whether by the
	// idle reaper or an admin delete.
	SessionsEvictedTotal prometheus.Counter

	// FramesTotal counts sync frames pushed, by kind.
	// Labels: kind (incremental, full)
	FramesTotal *prometheus.CounterVec

	// ChangesPerFrame measures how many individual changes each frame
	// carried.
	ChangesPerFrame prometheus.Histogram

	// PushDurationSeconds measures websocket write latency per frame.
	PushDurationSeconds prometheus.Histogram

	// NavigationsTotal counts navigation requests by status.
	// Labels: status (ok, not_found, error)
	NavigationsTotal *prometheus.CounterVec

	// ResyncsTotal counts client-requested full resyncs.
	ResyncsTotal prometheus.Counter

	// InboundRejectedTotal counts dropped client messages by reason.
	// Labels: reason (invalid, rate_limited)
	InboundRejectedTotal *prometheus.CounterVec

	// ClientDisconnectsTotal counts websocket disconnections.
	ClientDisconnectsTotal prometheus.Counter
}

// NewMetrics creates and registers all uiserver metrics against reg.
//
// # Inputs
//
//   - reg: The registry to register against. Use a fresh
//     prometheus.NewRegistry() in tests.
//
// # Outputs
//
//   - *Metrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if the same registry is used twice (duplicate
//     registration), matching promauto behavior.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: syncSubsystem,
				Name:      "sessions_total",
				Help:      "Total number of sessions created",
			},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: syncSubsystem,
				Name:      "sessions_active",
				Help:      "Number of currently live sessions",
			},
		),

		SessionsEvictedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: syncSubsystem,
				Name:      "sessions_evicted_total",
				Help:      "Total number of sessions removed, by reaper or admin delete",
			},
		),

		FramesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: syncSubsystem,
				Name:      "frames_total",
				Help:      "Total sync frames pushed by kind",
			},
			[]string{"kind"},
		),

		ChangesPerFrame: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: syncSubsystem,
				Name:      "changes_per_frame",
				Help:      "Individual changes carried per sync frame",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 1000},
			},
		),

		PushDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: syncSubsystem,
				Name:      "push_duration_seconds",
				Help:      "Websocket write latency per frame in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
		),

		NavigationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: syncSubsystem,
				Name:      "navigations_total",
				Help:      "Total navigation requests by status",
			},
			[]string{"status"},
		),

		ResyncsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: syncSubsystem,
				Name:      "resyncs_total",
				Help:      "Total client-requested full resyncs",
			},
		),

		InboundRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: syncSubsystem,
				Name:      "inbound_rejected_total",
				Help:      "Total dropped client messages by reason",
			},
			[]string{"reason"},
		),

		ClientDisconnectsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: syncSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Total websocket disconnections",
			},
		),
	}
}
