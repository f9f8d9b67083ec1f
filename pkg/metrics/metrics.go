// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package metrics declares the Prometheus collectors of the study economy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "study_session_outcomes_total",
			Help: "Total number of study sessions by terminal outcome",
		},
		[]string{"outcome", "mode"},
	)

	TamperEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "study_session_tamper_events_total",
			Help: "Total number of sessions paused because the timer was hidden",
		},
	)

	PurchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_purchases_total",
			Help: "Total number of purchase attempts by item kind and result",
		},
		[]string{"kind", "result"},
	)

	XPAwardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "economy_xp_awarded_total",
			Help: "Total XP awarded for verified study sessions",
		},
	)

	AuthorityRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authority_request_duration_seconds",
			Help:    "Latency of authority operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)
)

// Register adds every collector of this package to registry.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(
		SessionOutcomesTotal,
		TamperEventsTotal,
		PurchasesTotal,
		XPAwardedTotal,
		AuthorityRequestDuration,
	)
}

// Result maps an error to the label used by result dimensions.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
