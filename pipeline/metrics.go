package pipeline

import (
	"time"

	"voxchat/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	stageTranscribe = "transcribe"
	stageComplete   = "complete"
	stageSynthesize = "synthesize"
	stagePlayback   = "playback"
)

type Metrics struct {
	stageLatency *prometheus.HistogramVec
	stageResults *prometheus.CounterVec
	turns        prometheus.Counter
	state        prometheus.Gauge
}

// NewMetrics registers the pipeline collectors on reg. A nil reg gets a
// private registry, handy for tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		stageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voxchat_stage_latency_seconds",
			Help:    "Latency of remote pipeline stages in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}, []string{"stage"}),
		stageResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voxchat_stage_results_total",
			Help: "Pipeline stage outcomes",
		}, []string{"stage", "status"}),
		turns: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxchat_turns_total",
			Help: "Turns that reached transcription",
		}),
		state: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voxchat_pipeline_state",
			Help: "Current pipeline state (0=idle 1=recording 2=transcribing 3=generating 4=synthesizing 5=playing 6=failed)",
		}),
	}
}

func (m *Metrics) observe(stage string, start time.Time, err error) {
	m.stageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.stageResults.WithLabelValues(stage, status).Inc()
}

func (m *Metrics) setState(st models.State) {
	m.state.Set(float64(st))
}
