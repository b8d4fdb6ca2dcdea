// ABOUTME: Prometheus metrics for the transcription pipeline
// ABOUTME: Chunk, model load, topic analysis and tree build instruments
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chunk outcome labels
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all pipeline instruments
type Metrics struct {
	ChunksTotal          *prometheus.CounterVec
	ChunkSeconds         prometheus.Histogram
	ModelLoadSeconds     *prometheus.HistogramVec
	TranscriptionsTotal  *prometheus.CounterVec
	TopicAnalysisSeconds prometheus.Histogram
	TreesBuiltTotal      prometheus.Counter
	TreeTopics           prometheus.Gauge
	RendererClients      prometheus.Gauge
}

// New registers the pipeline metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindscribe_chunks_total",
				Help: "Recognition chunks processed by outcome",
			},
			[]string{"status"},
		),
		ChunkSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mindscribe_chunk_seconds",
				Help:    "Engine invocation latency per 30 second chunk",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		ModelLoadSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mindscribe_model_load_seconds",
				Help:    "Time to load an ASR model",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"status"},
		),
		TranscriptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindscribe_transcriptions_total",
				Help: "Whole-file transcriptions by outcome",
			},
			[]string{"status"},
		),
		TopicAnalysisSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mindscribe_topic_analysis_seconds",
				Help:    "Topic-analysis request latency",
				Buckets: prometheus.DefBuckets,
			},
		),
		TreesBuiltTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mindscribe_trees_built_total",
				Help: "Mind-map trees built",
			},
		),
		TreeTopics: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mindscribe_tree_topics",
				Help: "Topic nodes in the current tree",
			},
		),
		RendererClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mindscribe_renderer_clients",
				Help: "Connected websocket diagram clients",
			},
		),
	}
}

// Status maps an error to an outcome label
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// ChunkCompleted records one chunk invocation. It satisfies
// transcribe.Observer.
func (m *Metrics) ChunkCompleted(index int, elapsed time.Duration, err error) {
	m.ChunksTotal.WithLabelValues(Status(err)).Inc()
	m.ChunkSeconds.Observe(elapsed.Seconds())
}

// ModelLoaded records one model load
func (m *Metrics) ModelLoaded(elapsed time.Duration, err error) {
	m.ModelLoadSeconds.WithLabelValues(Status(err)).Observe(elapsed.Seconds())
}

// TranscriptionFinished records one whole-file transcription
func (m *Metrics) TranscriptionFinished(err error) {
	m.TranscriptionsTotal.WithLabelValues(Status(err)).Inc()
}

// TreeBuilt records a new tree with the given topic count
func (m *Metrics) TreeBuilt(topics int) {
	m.TreesBuiltTotal.Inc()
	m.TreeTopics.Set(float64(topics))
}
