package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks live downstream streaming sessions per account.
	ActiveSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "muxarr_active_sessions",
		Help: "Currently active streaming sessions per account",
	}, []string{"account"})

	// SessionsTotal counts session acquisitions by outcome.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muxarr_sessions_total",
		Help: "Streaming session acquisition attempts by outcome",
	}, []string{"outcome"}) // outcome=acquired|exhausted|error

	// SyncDuration observes catalog sync duration per account.
	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "muxarr_sync_duration_seconds",
		Help:    "Catalog sync duration per account",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"account"})

	// SyncChannels tracks channels seen in the last sync per account.
	SyncChannels = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "muxarr_sync_channels",
		Help: "Channels present in the last provider response per account",
	}, []string{"account"})

	// HealthChecksTotal counts health probe results by classification.
	HealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muxarr_health_checks_total",
		Help: "Channel health probe results by classification",
	}, []string{"result"})

	// EpgMappingsTotal counts EPG match results by match type.
	EpgMappingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muxarr_epg_mappings_total",
		Help: "EPG channel mappings created by match type",
	}, []string{"match_type"})
)
