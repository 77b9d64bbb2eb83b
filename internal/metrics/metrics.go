// Package metrics holds the Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	enrollments      *prometheus.CounterVec
	verifications    *prometheus.CounterVec
	embeddingAppends prometheus.Counter
}

// New creates metrics registered on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry so
// parallel tests never collide on metric names.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		enrollments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facelock_enrollments_total",
			Help: "Enrollment attempts by outcome (success or error kind)",
		}, []string{"outcome"}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facelock_verifications_total",
			Help: "Verification attempts by outcome (accepted, rejected or error kind)",
		}, []string{"outcome"}),
		embeddingAppends: factory.NewCounter(prometheus.CounterOpts{
			Name: "facelock_embedding_appends_total",
			Help: "Reference embeddings appended by the incremental update path",
		}),
	}
}

// ObserveEnrollment counts one enrollment attempt.
func (m *Metrics) ObserveEnrollment(outcome string) {
	m.enrollments.WithLabelValues(outcome).Inc()
}

// ObserveVerification counts one verification attempt.
func (m *Metrics) ObserveVerification(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

// ObserveEmbeddingAppend counts one incremental reference-set update.
func (m *Metrics) ObserveEmbeddingAppend() {
	m.embeddingAppends.Inc()
}
