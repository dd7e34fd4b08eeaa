package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "tex2pdf"

// PrometheusRecorder records build metrics into a Prometheus registry.
// Methods are safe on a nil receiver.
type PrometheusRecorder struct {
	reg           *prom.Registry
	buildDuration *prom.HistogramVec
	buildOutcome  *prom.CounterVec
	passDuration  *prom.HistogramVec
	pages         prom.Histogram
}

// compilerBuckets covers a trivial document (~0.3s) up to a large book with
// a bibliography pass (~2min).
var compilerBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

// NewPrometheusRecorder constructs and registers the build metrics on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total duration of a build including decoding, by outcome",
			Buckets:   compilerBuckets,
		}, []string{"outcome"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Builds by final outcome",
		}, []string{"outcome"}),
		passDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compiler_pass_duration_seconds",
			Help:      "Duration of a single compiler invocation",
			Buckets:   compilerBuckets,
		}, []string{"pass"}),
		pages: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "document_pages",
			Help:      "Page count of generated documents",
			Buckets:   prom.ExponentialBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.passDuration, pr.pages)
	return pr
}

func (p *PrometheusRecorder) ObserveBuild(outcome string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(outcome).Observe(d.Seconds())
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObservePass(pass string, d time.Duration) {
	if p == nil || p.passDuration == nil {
		return
	}
	p.passDuration.WithLabelValues(pass).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePages(n int) {
	if p == nil || p.pages == nil {
		return
	}
	p.pages.Observe(float64(n))
}

// WriteTextfile writes the current registry contents to path in the text
// exposition format. The write is atomic, as the textfile collector expects.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if p == nil || p.reg == nil {
		return nil
	}
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
