package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/scan"
	"github.com/danielpatrickdp/cutscan/internal/store"
)

const namespace = "cutscan"

// #region recorder
// Recorder collects per-job batch metrics on a private registry, so several
// recorders (and tests) never collide on the default one.
type Recorder struct {
	reg *prometheus.Registry

	records      *prometheus.GaugeVec
	candidates   *prometheus.GaugeVec
	passes       *prometheus.GaugeVec
	significance *prometheus.GaugeVec
	duration     *prometheus.GaugeVec
	runs         *prometheus.CounterVec
	calls        prometheus.Gauge
	latency      *prometheus.GaugeVec
}

// NewRecorder registers the scan metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	job := []string{"job"}
	return &Recorder{
		reg: reg,
		records: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scan", Name: "records",
			Help: "Records read by the accumulation pass.",
		}, job),
		candidates: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scan", Name: "candidates",
			Help: "Candidate cuts evaluated.",
		}, job),
		passes: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scan", Name: "passes",
			Help: "Passes over the dataset.",
		}, job),
		significance: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scan", Name: "best_significance",
			Help: "Significance S/sqrt(S+B) of the selected cut, 0 when none qualified.",
		}, job),
		duration: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scan", Name: "duration_seconds",
			Help: "Wall time of the scan.",
		}, job),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scan", Name: "runs_total",
			Help: "Finished scans by status.",
		}, []string{"status"}),
		calls: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "classifier", Name: "calls",
			Help: "Classifier evaluations of the batch.",
		}),
		latency: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "classifier", Name: "latency_seconds",
			Help: "Classifier evaluation latency quantiles.",
		}, []string{"quantile"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// #endregion recorder

// #region observe
// Observe records one finished scan.
func (r *Recorder) Observe(out *scan.Outcome) {
	job := out.Job.Name
	r.records.WithLabelValues(job).Set(float64(out.Records))
	r.candidates.WithLabelValues(job).Set(float64(out.Table.Len()))
	r.passes.WithLabelValues(job).Set(float64(out.Passes))
	r.duration.WithLabelValues(job).Set(out.Elapsed.Seconds())
	status := store.StatusNoValidCandidate
	best := 0.0
	if out.Result != nil {
		status = store.StatusSelected
		best = out.Result.Stats.Significance
	}
	r.significance.WithLabelValues(job).Set(best)
	r.runs.WithLabelValues(status).Inc()
}

// ObserveLatency records the classifier call counts and latency quantiles.
func (r *Recorder) ObserveLatency(s classifier.LatencySummary) {
	r.calls.Set(float64(s.Calls))
	for q, d := range map[string]float64{
		"0.5":  s.P50.Seconds(),
		"0.9":  s.P90.Seconds(),
		"0.99": s.P99.Seconds(),
		"1":    s.Max.Seconds(),
	} {
		r.latency.WithLabelValues(q).Set(d)
	}
}

// #endregion observe

// #region textfile
// WriteTextfile writes the registry in the node exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return errors.Wrapf(err, "write metrics %s", path)
	}
	return nil
}

// #endregion textfile
