// Copyright (c) 2025 DecisionWorks, Inc.
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@decisionworks.io for commercial licensing options.

package ceremony

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all passkey metrics.
	Namespace = "passkey"

	// Label names
	LabelCeremony = "ceremony"
	LabelStatus   = "status"
	LabelPhase    = "phase"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// CeremoniesTotal counts completed ceremonies by kind and status.
	CeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_total",
			Help:      "Total number of completed credential ceremonies by kind and status",
		},
		[]string{LabelCeremony, LabelStatus},
	)

	// CeremonyDuration tracks end-to-end ceremony duration in seconds.
	// Buckets cover the platform prompt, which can take tens of seconds
	// while awaiting user biometric/PIN input.
	CeremonyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ceremony_duration_seconds",
			Help:      "End-to-end duration of credential ceremonies in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{LabelCeremony},
	)

	// CeremonyFailuresTotal counts ceremony failures by kind and the
	// phase they failed in.
	CeremonyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremony_failures_total",
			Help:      "Total number of ceremony failures by kind and phase",
		},
		[]string{LabelCeremony, LabelPhase},
	)
)

// recordCeremony records the outcome of one completed ceremony.
func recordCeremony(kind Kind, start time.Time, failedPhase Phase, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
		CeremonyFailuresTotal.WithLabelValues(string(kind), string(failedPhase)).Inc()
	}
	CeremoniesTotal.WithLabelValues(string(kind), status).Inc()
	CeremonyDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}
