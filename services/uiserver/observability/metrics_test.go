// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestMetrics creates a Metrics instance backed by an isolated
// registry so tests can run in parallel without registration clashes.
func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}

func TestNewMetrics_AllInstrumentsConstructed(t *testing.T) {
	m := newTestMetrics(t)

	if m.SessionsTotal == nil || m.SessionsActive == nil || m.SessionsEvictedTotal == nil {
		t.Fatal("session instruments not constructed")
	}
	if m.FramesTotal == nil || m.ChangesPerFrame == nil || m.PushDurationSeconds == nil {
		t.Fatal("frame instruments not constructed")
	}
	if m.NavigationsTotal == nil || m.ResyncsTotal == nil {
		t.Fatal("navigation instruments not constructed")
	}
	if m.InboundRejectedTotal == nil || m.ClientDisconnectsTotal == nil {
		t.Fatal("inbound instruments not constructed")
	}
}

func TestMetrics_SessionLifecycle(t *testing.T) {
	m := newTestMetrics(t)

	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
	m.SessionsActive.Dec()

	if got := testutil.ToFloat64(m.SessionsTotal); got != 2 {
		t.Errorf("SessionsTotal = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Errorf("SessionsActive = %v, want 1", got)
	}
}

func TestMetrics_FrameKinds(t *testing.T) {
	m := newTestMetrics(t)

	m.FramesTotal.WithLabelValues(FrameIncremental).Inc()
	m.FramesTotal.WithLabelValues(FrameIncremental).Inc()
	m.FramesTotal.WithLabelValues(FrameFull).Inc()

	if got := testutil.ToFloat64(m.FramesTotal.WithLabelValues(FrameIncremental)); got != 2 {
		t.Errorf("FramesTotal[incremental] = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FramesTotal.WithLabelValues(FrameFull)); got != 1 {
		t.Errorf("FramesTotal[full] = %v, want 1", got)
	}
}

func TestMetrics_NavigationStatuses(t *testing.T) {
	m := newTestMetrics(t)

	statuses := []string{NavOK, NavOK, NavNotFound, NavError}
	for _, s := range statuses {
		m.NavigationsTotal.WithLabelValues(s).Inc()
	}

	if got := testutil.ToFloat64(m.NavigationsTotal.WithLabelValues(NavOK)); got != 2 {
		t.Errorf("NavigationsTotal[ok] = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.NavigationsTotal.WithLabelValues(NavNotFound)); got != 1 {
		t.Errorf("NavigationsTotal[not_found] = %v, want 1", got)
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// Two servers in one process must not share counters.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.ResyncsTotal.Inc()

	if got := testutil.ToFloat64(b.ResyncsTotal); got != 0 {
		t.Errorf("second instance ResyncsTotal = %v, want 0", got)
	}
}

func TestMetrics_GatherExposesNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.SessionsTotal.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() == "wheelhouse_uisync_sessions_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected wheelhouse_uisync_sessions_total in gathered families")
	}
}
