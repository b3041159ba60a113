package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "prediction_league"

// SyncMetrics records sync worker activity in its own Prometheus registry.
type SyncMetrics struct {
	registry *prometheus.Registry

	syncRuns        prometheus.Counter
	competitionRuns *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	matchesUpdated  prometheus.Counter
	writes          *prometheus.CounterVec
	feedErrors      *prometheus.CounterVec
}

func NewSyncMetrics() *SyncMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &SyncMetrics{
		registry: registry,
		syncRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sync_runs_total",
			Help:      "Number of sync passes started.",
		}),
		competitionRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "competition_tasks_total",
			Help:      "Per-competition sync tasks by final status.",
		}, []string{"status"}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "competition_task_duration_seconds",
			Help:      "Duration of per-competition sync tasks.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"status"}),
		matchesUpdated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "matches_updated_total",
			Help:      "Matches written by reconciliation.",
		}),
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "leaderboard_writes_total",
			Help:      "Documents written by leaderboard recalculation.",
		}, []string{"kind"}),
		feedErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "feed_errors_total",
			Help:      "Failed feed fetches by provider.",
		}, []string{"provider"}),
	}
}

func (m *SyncMetrics) IncSyncRun() {
	m.syncRuns.Inc()
}

func (m *SyncMetrics) ObserveCompetitionTask(status string, d time.Duration) {
	m.competitionRuns.WithLabelValues(status).Inc()
	m.taskDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *SyncMetrics) AddMatchesUpdated(n int) {
	if n > 0 {
		m.matchesUpdated.Add(float64(n))
	}
}

func (m *SyncMetrics) AddLeaderboardWrites(kind string, n int) {
	if n > 0 {
		m.writes.WithLabelValues(kind).Add(float64(n))
	}
}

func (m *SyncMetrics) IncFeedError(provider string) {
	m.feedErrors.WithLabelValues(provider).Inc()
}

func (m *SyncMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
