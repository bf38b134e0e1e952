// Package metrics provides the Prometheus collectors of the contacts client and server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contacts"

// Client counts and times the requests that the API client sends.
type Client struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewClient registers the client collectors with reg.
func NewClient(reg prometheus.Registerer) *Client {
	factory := promauto.With(reg)
	return &Client{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Requests sent to the contacts API, by method and status code.",
		}, []string{"method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Round trip time of requests to the contacts API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
}

// InstrumentRoundTripper wraps next so that every round trip is recorded.
func (m *Client) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(m.requests,
		promhttp.InstrumentRoundTripperDuration(m.duration, next))
}

// Requests returns the request counter for the given method and status code.
func (m *Client) Requests(method string, code int) prometheus.Counter {
	return m.requests.WithLabelValues(method, strconv.Itoa(code))
}

// Server counts and times the requests that a gin server answers.
type Server struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewServer registers the server collectors with reg. The subsystem separates the API server
// from the web frontend.
func NewServer(reg prometheus.Registerer, subsystem string) *Server {
	factory := promauto.With(reg)
	return &Server{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "HTTP requests answered, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Time spent answering HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Middleware records every request that passes through the gin engine. Unmatched routes are
// recorded with the route label "unmatched".
func (m *Server) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Requests returns the request counter for the given route, method and status code.
func (m *Server) Requests(route, method string, code int) prometheus.Counter {
	return m.requests.WithLabelValues(route, method, strconv.Itoa(code))
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
