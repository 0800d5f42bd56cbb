package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every pipeline collector. It is created once in main and
// passed by reference into the components that record to it.
type Metrics struct {
	ReadingsAccepted prometheus.Counter
	ReadingsRejected prometheus.Counter

	ProviderScores   *prometheus.CounterVec // label: provider
	ProviderFailures *prometheus.CounterVec // label: provider
	ScoreLatency     prometheus.Histogram

	AlertsFired *prometheus.CounterVec // label: kind

	BroadcastDropped prometheus.Counter

	WebhookDelivered prometheus.Counter
	WebhookFailed    prometheus.Counter
}

// New registers all fleetpulse collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReadingsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "fleetpulse_readings_accepted_total",
			Help: "Readings that passed validation and entered the pipeline.",
		}),
		ReadingsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "fleetpulse_readings_rejected_total",
			Help: "Readings rejected by ingest validation.",
		}),
		ProviderScores: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetpulse_provider_scores_total",
			Help: "Successful scoring calls per provider.",
		}, []string{"provider"}),
		ProviderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetpulse_provider_failures_total",
			Help: "Failed scoring calls per provider (timeout, bad response, out-of-range value).",
		}, []string{"provider"}),
		ScoreLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetpulse_score_latency_seconds",
			Help:    "End-to-end latency of one orchestrated scoring call.",
			Buckets: prometheus.DefBuckets,
		}),
		AlertsFired: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetpulse_alerts_fired_total",
			Help: "Alerts produced by the rule engine per kind.",
		}, []string{"kind"}),
		BroadcastDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "fleetpulse_broadcast_dropped_total",
			Help: "Events dropped from full subscriber queues.",
		}),
		WebhookDelivered: f.NewCounter(prometheus.CounterOpts{
			Name: "fleetpulse_webhook_delivered_total",
			Help: "Alert payloads delivered to the CMMS webhook.",
		}),
		WebhookFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "fleetpulse_webhook_failed_total",
			Help: "Alert payloads abandoned after exhausting delivery attempts.",
		}),
	}
}
