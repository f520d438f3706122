// Package metrics exposes Prometheus counters for authentication
// operations. The counters are owned by a Recorder instance rather
// than package globals so tests and parallel coordinators never
// share state through the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements the coordinator's metrics sink.
type Recorder struct {
	registry *prometheus.Registry
	authOps  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewRecorder builds a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()

	authOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Authentication operations by operation and outcome.",
	}, []string{"operation", "status"})

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "failed_login_attempts_total",
		Help: "Failed login attempts by reason.",
	}, []string{"reason"})

	reg.MustRegister(authOps, failures)
	return &Recorder{registry: reg, authOps: authOps, failures: failures}
}

// AuthOperation counts one coordinator operation outcome.
func (r *Recorder) AuthOperation(op, status string) {
	r.authOps.WithLabelValues(op, status).Inc()
}

// FailedLogin counts one failed login attempt.
func (r *Recorder) FailedLogin(reason string) {
	r.failures.WithLabelValues(reason).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
