package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters/histograms for scheduling flows.
type SchedulerMetrics struct {
	planTotal       *prometheus.CounterVec
	submissionTotal *prometheus.CounterVec
	conflictTotal   *prometheus.CounterVec
	snapshotLatency *prometheus.HistogramVec
	cacheTotal      *prometheus.CounterVec
	dropoutTotal    *prometheus.CounterVec
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		planTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "plan_total",
			Help:      "Total schedule plan lookups by outcome",
		}, []string{"outcome"}),
		submissionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "submission_total",
			Help:      "Total schedule submissions by outcome",
		}, []string{"outcome"}),
		conflictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "conflict_total",
			Help:      "Stale selection conflicts found during revalidation",
		}, []string{"kind"}),
		snapshotLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scheduler",
			Subsystem: "availability",
			Name:      "snapshot_build_seconds",
			Help:      "Latency of fetching a booking snapshot and building its index",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "availability",
			Name:      "snapshot_cache_total",
			Help:      "Snapshot cache lookups by result",
		}, []string{"result"}),
		dropoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "dropout",
			Name:      "processed_total",
			Help:      "Dropouts processed by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.planTotal, m.submissionTotal, m.conflictTotal, m.snapshotLatency, m.cacheTotal, m.dropoutTotal)
	return m
}

func (m *SchedulerMetrics) ObservePlan(outcome string) {
	if m == nil {
		return
	}
	m.planTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) ObserveConflict(kind string) {
	if m == nil {
		return
	}
	m.conflictTotal.WithLabelValues(kind).Inc()
}

func (m *SchedulerMetrics) ObserveSnapshot(source string, seconds float64) {
	if m == nil {
		return
	}
	m.snapshotLatency.WithLabelValues(source).Observe(seconds)
}

func (m *SchedulerMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.cacheTotal.WithLabelValues(label).Inc()
}

func (m *SchedulerMetrics) ObserveDropout(outcome string) {
	if m == nil {
		return
	}
	m.dropoutTotal.WithLabelValues(outcome).Inc()
}
