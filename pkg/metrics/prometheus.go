package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder backed by Prometheus.
type PrometheusRecorder struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	generateRuns     *prometheus.CounterVec
	generateDuration prometheus.Histogram
	fairnessScore    prometheus.Gauge
	conflicts        *prometheus.CounterVec
	repairs          *prometheus.CounterVec
	optimizeSwaps    prometheus.Histogram
	resolutions      *prometheus.CounterVec
}

// Compile-time assertion that PrometheusRecorder implements Recorder.
var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheus creates a Prometheus-backed recorder.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: metrics namespace (defaults to "leave_scheduler" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "leave_scheduler"
	}

	return &PrometheusRecorder{reg: reg, namespace: namespace}
}

func (p *PrometheusRecorder) ensureRegistered() {
	p.once.Do(func() {
		p.generateRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "generate",
			Name:      "runs_total",
			Help:      "Total schedule generation runs by outcome.",
		}, []string{"outcome"})

		p.generateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "generate",
			Name:      "duration_seconds",
			Help:      "Duration of schedule generation runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms .. ~1s
		})

		p.fairnessScore = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "fairness_score",
			Help:      "Fairness score (0-100) of the current schedule.",
		})

		p.conflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "conflicts_total",
			Help:      "Total leave conflicts recorded by reason.",
		}, []string{"reason"})

		p.repairs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "command_repairs_total",
			Help:      "Command-presence repairs by result (swapped, rotated, unrepairable).",
		}, []string{"result"})

		p.optimizeSwaps = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "optimize",
			Name:      "swaps",
			Help:      "Swaps applied per optimize pass.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		})

		p.resolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "conflict_resolutions_total",
			Help:      "Conflict resolutions by action and outcome.",
		}, []string{"action", "outcome"})

		p.reg.MustRegister(p.generateRuns)
		p.reg.MustRegister(p.generateDuration)
		p.reg.MustRegister(p.fairnessScore)
		p.reg.MustRegister(p.conflicts)
		p.reg.MustRegister(p.repairs)
		p.reg.MustRegister(p.optimizeSwaps)
		p.reg.MustRegister(p.resolutions)
	})
}

// ObserveGenerate counts the run and records its duration.
func (p *PrometheusRecorder) ObserveGenerate(outcome string, duration time.Duration) {
	p.ensureRegistered()
	p.generateRuns.WithLabelValues(outcome).Inc()
	p.generateDuration.Observe(duration.Seconds())
}

// SetFairnessScore sets the current fairness gauge.
func (p *PrometheusRecorder) SetFairnessScore(score float64) {
	p.ensureRegistered()
	p.fairnessScore.Set(score)
}

// AddConflicts adds n conflicts for the reason.
func (p *PrometheusRecorder) AddConflicts(reason string, n int) {
	p.ensureRegistered()
	p.conflicts.WithLabelValues(reason).Add(float64(n))
}

// IncRepair counts a command-presence repair.
func (p *PrometheusRecorder) IncRepair(result string) {
	p.ensureRegistered()
	p.repairs.WithLabelValues(result).Inc()
}

// ObserveOptimize records the swap count of an optimize pass.
func (p *PrometheusRecorder) ObserveOptimize(swaps int) {
	p.ensureRegistered()
	p.optimizeSwaps.Observe(float64(swaps))
}

// IncResolution counts a conflict resolution attempt.
func (p *PrometheusRecorder) IncResolution(action, outcome string) {
	p.ensureRegistered()
	p.resolutions.WithLabelValues(action, outcome).Inc()
}
