package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itsupport_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itsupport_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RetrievalOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itsupport_retrieval_outcomes_total",
			Help: "Document retrievals by outcome (ok, not_found, failure).",
		},
		[]string{"status"},
	)

	VisionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itsupport_vision_outcomes_total",
			Help: "Image analyses by outcome.",
		},
		[]string{"status"},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itsupport_answers_total",
			Help: "Answers returned by outcome (answered, guidance, apology) and channel.",
		},
		[]string{"outcome", "channel"},
	)

	ModelCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itsupport_model_call_duration_seconds",
			Help:    "Language model call duration in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RetrievalOutcomes,
		VisionOutcomes,
		AnswersTotal,
		ModelCallDuration,
	)
}
