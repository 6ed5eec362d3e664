// Package metrics exports per-dataset run results as Prometheus gauges so a
// node_exporter textfile collector can pick them up after a batch run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/KaramelBytes/regdiag-cli/internal/pipeline"
)

const namespace = "regdiag"

// Recorder owns a private registry so repeated runs in one process do not
// collide with the default one.
type Recorder struct {
	reg           *prometheus.Registry
	runs          *prometheus.CounterVec
	observations  *prometheus.GaugeVec
	rSquared      *prometheus.GaugeVec
	lambda        *prometheus.GaugeVec
	failedChecks  *prometheus.GaugeVec
	refineSteps   *prometheus.GaugeVec
	converged     *prometheus.GaugeVec
	lastSuccessTS *prometheus.GaugeVec
}

// NewRecorder registers every metric on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	ds := []string{"dataset"}
	return &Recorder{
		reg: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Pipeline executions by outcome.",
		}, []string{"dataset", "outcome"}),
		observations: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "observations",
			Help: "Rows loaded from the dataset.",
		}, ds),
		rSquared: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "r_squared",
			Help: "R squared of the model by stage.",
		}, []string{"dataset", "stage"}),
		lambda: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "boxcox_lambda",
			Help: "Selected Box-Cox lambda.",
		}, ds),
		failedChecks: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "failed_checks",
			Help: "Assumption checks failing by stage.",
		}, []string{"dataset", "stage"}),
		refineSteps: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "refine_steps",
			Help: "Terms removed by the refinement loop.",
		}, ds),
		converged: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "refine_converged",
			Help: "1 when every assumption held after refinement.",
		}, ds),
		lastSuccessTS: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time the dataset last completed.",
		}, ds),
	}
}

// Observe records a completed run.
func (r *Recorder) Observe(run *pipeline.Run) {
	name := run.Dataset
	r.runs.WithLabelValues(name, "ok").Inc()
	r.observations.WithLabelValues(name).Set(float64(run.Observations))
	if run.Initial != nil {
		r.rSquared.WithLabelValues(name, "initial").Set(run.Initial.RSquared())
	}
	if run.InitialReport != nil {
		r.failedChecks.WithLabelValues(name, "initial").Set(float64(len(run.InitialReport.Failures())))
	}
	if ref := run.Refinement; ref != nil {
		r.lambda.WithLabelValues(name).Set(ref.Lambda)
		r.refineSteps.WithLabelValues(name).Set(float64(len(ref.Steps)))
		r.rSquared.WithLabelValues(name, "refined").Set(ref.Final.RSquared())
		r.failedChecks.WithLabelValues(name, "refined").Set(float64(len(ref.FinalReport.Failures())))
		conv := 0.0
		if ref.Converged {
			conv = 1
		}
		r.converged.WithLabelValues(name).Set(conv)
	}
	r.lastSuccessTS.WithLabelValues(name).Set(float64(run.FinishedAt.Unix()))
}

// Failed counts a dataset whose run returned an error.
func (r *Recorder) Failed(dataset string) {
	r.runs.WithLabelValues(dataset, "error").Inc()
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes the registry in the text exposition format, atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
