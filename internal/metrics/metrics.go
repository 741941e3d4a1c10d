package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type VotingMetrics struct {
	VotesRecorded  *prometheus.CounterVec
	VotesDuplicate prometheus.Counter
	BroadcastsSent prometheus.Counter
	Subscribers    prometheus.Gauge
}

// NewVotingMetrics registers the voting metrics on the given registerer.
// Taking the registerer as a parameter keeps tests free of global-registry
// double-registration panics.
func NewVotingMetrics(namespace string, reg prometheus.Registerer) *VotingMetrics {
	factory := promauto.With(reg)

	return &VotingMetrics{
		VotesRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_recorded_total",
				Help:      "Total number of votes durably recorded",
			},
			[]string{"option"},
		),
		VotesDuplicate: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_duplicate_total",
				Help:      "Total number of vote attempts ignored because the user had already voted",
			},
		),
		BroadcastsSent: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcasts_sent_total",
				Help:      "Total number of poll view updates published to the realtime hub",
			},
		),
		Subscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "realtime_subscribers",
				Help:      "Number of currently connected realtime subscribers",
			},
		),
	}
}
