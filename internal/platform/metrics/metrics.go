package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	voteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusvote_vote_requests_total",
		Help: "Vote cast requests received, by outcome",
	}, []string{"status"})

	votesProjectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusvote_votes_projected_total",
		Help: "Ballot events applied to the live counters by the projector",
	})

	projectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "campusvote_projection_duration_seconds",
		Help:    "Time to apply one ballot event to the live counters",
		Buckets: prometheus.DefBuckets,
	})

	reconcileRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusvote_reconcile_runs_total",
		Help: "Counter rebuilds from the ballot ledger, by outcome",
	}, []string{"status"})

	activeVoteStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campusvote_active_vote_streams",
		Help: "Open live result streams",
	})
)

func ObserveVoteRequest(status string) {
	voteRequestsTotal.WithLabelValues(status).Inc()
}

func IncVoteProjected() {
	votesProjectedTotal.Inc()
}

func ObserveProjectionDuration(seconds float64) {
	projectionDuration.Observe(seconds)
}

func ObserveReconcileRun(status string) {
	reconcileRunsTotal.WithLabelValues(status).Inc()
}

func IncActiveVoteStreams() {
	activeVoteStreams.Inc()
}

func DecActiveVoteStreams() {
	activeVoteStreams.Dec()
}
