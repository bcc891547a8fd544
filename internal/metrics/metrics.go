// Package metrics exposes Prometheus collectors for the HTTP layer and the
// game domain. Recorder implements service.Metrics.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cityquest"

// Recorder owns a registry with every collector of the service
type Recorder struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	participationsStarted  prometheus.Counter
	participationsFinished *prometheus.CounterVec
	questScore             prometheus.Histogram
	questDuration          prometheus.Histogram
	samples                prometheus.Counter
	violations             prometheus.Counter
	answers                *prometheus.CounterVec
	questionsGenerated     *prometheus.CounterVec
	payments               *prometheus.CounterVec
	notifications          *prometheus.CounterVec
	streams                prometheus.Gauge
}

// New creates a recorder with its own registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
		participationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "participations_started_total",
			Help:      "Quests started by players.",
		}),
		participationsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "participations_finished_total",
			Help:      "Participations that reached a terminal status.",
		}, []string{"status"}),
		questScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "completed_score",
			Help:      "Final score of completed quests.",
			Buckets:   prometheus.LinearBuckets(0, 50, 10),
		}),
		questDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "completion_duration_seconds",
			Help:      "Time from start to completion of a quest.",
			Buckets:   prometheus.ExponentialBuckets(300, 1.5, 10), // 5m to ~3h
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "location_samples_total",
			Help:      "Location samples accepted.",
		}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "speed_violations_total",
			Help:      "Speed limit breaches counted against players.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "answers_total",
			Help:      "Answers submitted at checkpoints.",
		}, []string{"correct", "ai"}),
		questionsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "questions_generated_total",
			Help:      "Generated questions by source.",
		}, []string{"source"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "processed_total",
			Help:      "Payments processed by final status.",
		}, []string{"status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "deliveries_total",
			Help:      "Notification deliveries per channel.",
		}, []string{"channel", "result"}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "open_connections",
			Help:      "Open participation websocket streams.",
		}),
	}

	r.registry.MustRegister(
		r.httpInFlight,
		r.httpRequests,
		r.httpDuration,
		r.participationsStarted,
		r.participationsFinished,
		r.questScore,
		r.questDuration,
		r.samples,
		r.violations,
		r.answers,
		r.questionsGenerated,
		r.payments,
		r.notifications,
		r.streams,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return r
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler exposing the registered metrics
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Instrument wraps the router with HTTP metrics. It must sit directly around
// the ServeMux so the matched route pattern is visible after dispatch.
func (r *Recorder) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/metrics" {
			next.ServeHTTP(w, req)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		r.httpInFlight.Inc()
		defer r.httpInFlight.Dec()

		next.ServeHTTP(rec, req)

		route := routeLabel(req)
		method := strings.ToUpper(req.Method)
		r.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		r.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// ParticipationStarted implements service.Metrics
func (r *Recorder) ParticipationStarted() {
	r.participationsStarted.Inc()
}

// ParticipationFinished implements service.Metrics
func (r *Recorder) ParticipationFinished(status string, score int, elapsed time.Duration) {
	r.participationsFinished.WithLabelValues(status).Inc()
	if status == "completed" {
		r.questScore.Observe(float64(score))
		r.questDuration.Observe(elapsed.Seconds())
	}
}

// SampleRecorded implements service.Metrics
func (r *Recorder) SampleRecorded() {
	r.samples.Inc()
}

// SpeedViolation implements service.Metrics
func (r *Recorder) SpeedViolation() {
	r.violations.Inc()
}

// AnswerSubmitted implements service.Metrics
func (r *Recorder) AnswerSubmitted(correct, ai bool) {
	r.answers.WithLabelValues(strconv.FormatBool(correct), strconv.FormatBool(ai)).Inc()
}

// QuestionGenerated implements service.Metrics
func (r *Recorder) QuestionGenerated(source string) {
	r.questionsGenerated.WithLabelValues(source).Inc()
}

// PaymentProcessed implements service.Metrics
func (r *Recorder) PaymentProcessed(status string) {
	r.payments.WithLabelValues(status).Inc()
}

// NotificationDelivered implements service.Metrics
func (r *Recorder) NotificationDelivered(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.notifications.WithLabelValues(channel, result).Inc()
}

// StreamOpened counts an open websocket stream
func (r *Recorder) StreamOpened() {
	r.streams.Inc()
}

// StreamClosed releases a websocket stream
func (r *Recorder) StreamClosed() {
	r.streams.Dec()
}

// routeLabel uses the ServeMux pattern so IDs do not explode cardinality
func routeLabel(req *http.Request) string {
	if req.Pattern == "" {
		return "unmatched"
	}
	// "GET /v1/quests/{questId}" -> "/v1/quests/{questId}"
	if _, path, ok := strings.Cut(req.Pattern, " "); ok {
		return path
	}
	return req.Pattern
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes websocket upgrades through to the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}
