package consensus

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "voting"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// 当前的VotingStatus
	Status metrics.Gauge
	// 共享状态里的round number
	RoundNumber metrics.Gauge

	// 本节点发出的pre-vote/pre-commit
	PreVotes   metrics.Counter
	PreCommits metrics.Counter

	// Vote Register收到的投票，以及被忽略的重复/空投票
	VotesRegistered metrics.Counter
	VotesIgnored    metrics.Counter

	// 生成的新round，以及没有达成quorum的重试round
	RoundsStarted metrics.Counter
	RoundsRetried metrics.Counter

	// 检测到和网络不同步的次数
	Desyncs metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Status: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "status",
			Help:      "Current voting status.",
		}, labels).With(labelsAndValues...),
		RoundNumber: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "round_number",
			Help:      "Number of the shared voting round.",
		}, labels).With(labelsAndValues...),
		PreVotes: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "pre_votes",
			Help:      "Number of pre-votes cast by this node.",
		}, labels).With(labelsAndValues...),
		PreCommits: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "pre_commits",
			Help:      "Number of pre-commits cast by this node.",
		}, labels).With(labelsAndValues...),
		VotesRegistered: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "votes_registered",
			Help:      "Number of votes added to the vote register.",
		}, labels).With(labelsAndValues...),
		VotesIgnored: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "votes_ignored",
			Help:      "Number of nil or duplicate votes ignored by the vote register.",
		}, labels).With(labelsAndValues...),
		RoundsStarted: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rounds_started",
			Help:      "Number of round descriptors produced.",
		}, labels).With(labelsAndValues...),
		RoundsRetried: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rounds_retried",
			Help:      "Number of rounds retried at the same number.",
		}, labels).With(labelsAndValues...),
		Desyncs: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "desyncs",
			Help:      "Number of times the node found itself out of sync.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Status:          discard.NewGauge(),
		RoundNumber:     discard.NewGauge(),
		PreVotes:        discard.NewCounter(),
		PreCommits:      discard.NewCounter(),
		VotesRegistered: discard.NewCounter(),
		VotesIgnored:    discard.NewCounter(),
		RoundsStarted:   discard.NewCounter(),
		RoundsRetried:   discard.NewCounter(),
		Desyncs:         discard.NewCounter(),
	}
}
