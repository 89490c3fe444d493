/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package evidence

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks receipt cache effectiveness and ledger fetch health.
//
//   - attestor_evidence_receipt_cache_hits_total
//   - attestor_evidence_receipt_cache_misses_total
//   - attestor_evidence_receipt_cache_stores_total
//   - attestor_evidence_receipt_cache_entries
//   - attestor_evidence_block_fetch_failures_total
type Metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	stores        prometheus.Counter
	entries       prometheus.Gauge
	fetchFailures prometheus.Counter
}

// NewMetrics creates the evidence metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "attestor",
			Subsystem: "evidence",
			Name:      "receipt_cache_hits_total",
			Help:      "Total number of block receipt sets served from cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "attestor",
			Subsystem: "evidence",
			Name:      "receipt_cache_misses_total",
			Help:      "Total number of block receipt sets not found in cache",
		}),
		stores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "attestor",
			Subsystem: "evidence",
			Name:      "receipt_cache_stores_total",
			Help:      "Total number of block receipt sets added to cache",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "attestor",
			Subsystem: "evidence",
			Name:      "receipt_cache_entries",
			Help:      "Current number of cached block receipt sets",
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "attestor",
			Subsystem: "evidence",
			Name:      "block_fetch_failures_total",
			Help:      "Total number of failed ledger block fetches during reconciliation",
		}),
	}

	reg.MustRegister(m.hits, m.misses, m.stores, m.entries, m.fetchFailures)

	return m
}

func (m *Metrics) recordHit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) recordMiss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) recordStore(entries int) {
	if m != nil {
		m.stores.Inc()
		m.entries.Set(float64(entries))
	}
}

func (m *Metrics) recordFetchFailure() {
	if m != nil {
		m.fetchFailures.Inc()
	}
}
