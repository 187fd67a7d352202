package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	StatusCodeCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"service", "category", "method", "path"},
	)

	// TransitionCounter counts workflow transitions by entity, action and outcome
	// (ok, rejected, conflict).
	TransitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Document and submission workflow transitions",
		},
		[]string{"entity", "action", "outcome"},
	)

	// NotificationCounter counts notification deliveries per channel.
	NotificationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// UploadBytes observes accepted upload sizes.
	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "document_upload_bytes",
			Help:    "Size of accepted document uploads",
			Buckets: prometheus.ExponentialBuckets(16<<10, 4, 6),
		},
	)

	registerOnce sync.Once
)

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDurationHistogram,
			StatusCodeCategoryCounter,
			TransitionCounter,
			NotificationCounter,
			UploadBytes,
		)
	})
}

// RecordTransition is called by the workflow service after each attempted transition.
func RecordTransition(entity, action, outcome string) {
	TransitionCounter.WithLabelValues(entity, action, outcome).Inc()
}

func RecordNotification(channel, outcome string) {
	NotificationCounter.WithLabelValues(channel, outcome).Inc()
}

func RecordUpload(size int64) {
	UploadBytes.Observe(float64(size))
}

// HTTPMetrics records request metrics for one service.
type HTTPMetrics struct {
	ServiceName string
}

func NewHTTPMetrics(serviceName string) *HTTPMetrics {
	Register()
	return &HTTPMetrics{ServiceName: serviceName}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count, duration and status category. The path label
// is the mux route template so ids do not explode label cardinality.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		status := strconv.Itoa(rec.status)

		RequestCounter.WithLabelValues(m.ServiceName, r.Method, path, status).Inc()
		RequestDurationHistogram.WithLabelValues(m.ServiceName, r.Method, path, status).Observe(time.Since(start).Seconds())
		if category := statusCategory(rec.status); category != "" {
			StatusCodeCategoryCounter.WithLabelValues(m.ServiceName, category, r.Method, path).Inc()
		}
	})
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
