package transport

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeOK = "ok"

// Metrics counts and times gateway calls by method, endpoint and outcome.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vendoriq_client_requests_total",
				Help: "Total number of backend requests by outcome.",
			},
			[]string{"method", "endpoint", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vendoriq_client_request_duration_seconds",
				Help:    "Duration of backend requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration)
	}
	return m
}

func (m *Metrics) observe(ex *Exchange) {
	method := http.MethodGet
	if ex.Request != nil {
		method = ex.Request.Method
	} else if ex.Failure != nil && ex.Failure.Method != "" {
		method = ex.Failure.Method
	}
	outcome := outcomeOK
	if ex.Failure != nil {
		outcome = string(ex.Failure.Kind())
	}
	endpoint := endpointLabel(ex.Path)
	m.Requests.WithLabelValues(method, endpoint, outcome).Inc()
	m.Duration.WithLabelValues(method, endpoint, outcome).Observe(ex.Duration.Seconds())
}

// endpointLabel collapses a path to its leading non-identifier segments so
// "products/12/" and "products/13/" share one series.
func endpointLabel(path string) string {
	var kept []string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" || isIdentifier(seg) {
			break
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return "/"
	}
	return strings.Join(kept, "/")
}

func isIdentifier(seg string) bool {
	for _, r := range seg {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
