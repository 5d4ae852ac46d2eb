// Package metrics exposes Prometheus collectors for playback and the HTTP
// control surface.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	framesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "radarplay_frames_delivered_total",
			Help: "Total number of frames handed to the delivery sink.",
		},
	)

	sinkErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "radarplay_sink_errors_total",
			Help: "Total number of frames the delivery sink rejected.",
		},
	)

	publishDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "radarplay_publish_dropped_total",
			Help: "Total number of stream messages dropped because a publish queue was full.",
		},
	)

	publishErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "radarplay_publish_errors_total",
			Help: "Total number of stream messages a downstream publisher rejected.",
		},
	)

	loopWraps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "radarplay_loop_wraps_total",
			Help: "Total number of times looping playback restarted at frame 0.",
		},
	)

	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radarplay_loads_total",
			Help: "Recording load attempts by result (ok or decode error kind).",
		},
		[]string{"result"},
	)

	playbackState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "radarplay_playback_state",
			Help: "1 for the current playback state, absent otherwise.",
		},
		[]string{"state"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radarplay_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radarplay_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(framesDelivered)
	prometheus.MustRegister(sinkErrors)
	prometheus.MustRegister(publishDropped)
	prometheus.MustRegister(publishErrors)
	prometheus.MustRegister(loopWraps)
	prometheus.MustRegister(loadsTotal)
	prometheus.MustRegister(playbackState)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// FrameDelivered counts one frame handed to the sink.
func FrameDelivered() { framesDelivered.Inc() }

// SinkError counts one frame the sink rejected.
func SinkError() { sinkErrors.Inc() }

// PublishDropped counts one message dropped by a full publish queue.
func PublishDropped() { publishDropped.Inc() }

// PublishError counts one message a downstream publisher rejected.
func PublishError() { publishErrors.Inc() }

// LoopWrap counts one wraparound to frame 0.
func LoopWrap() { loopWraps.Inc() }

// LoadResult counts a load attempt; result is "ok" or a decode error kind.
func LoadResult(result string) {
	loadsTotal.WithLabelValues(result).Inc()
}

// SetState marks state as the current playback state.
func SetState(state string) {
	playbackState.Reset()
	playbackState.WithLabelValues(state).Set(1)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the websocket upgrade needs for hijacking.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack lets WebSocket upgrades through the wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(rw.ResponseWriter).Hijack()
}

// routeLabel returns the matched mux pattern, or "other" for requests
// that matched nothing (bots, typos).
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "other"
	}
	return r.Pattern
}

// Middleware records request count and duration for each request. Requests
// are labelled by route pattern so recording names don't explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := routeLabel(r)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
