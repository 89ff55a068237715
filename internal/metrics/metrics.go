// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 8c1f4e2a-7b93-4d05-b6e8-3a9d0c5f2e71

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookmeta"

var (
	registerOnce sync.Once

	providerCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_calls_total",
		Help:      "Provider invocations by provider, capability and outcome",
	}, []string{"provider", "capability", "outcome"})
	providerCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_call_duration_seconds",
		Help:      "Provider invocation latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 11), // 50ms .. ~51s
	}, []string{"provider", "capability"})
	validationRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_rejections_total",
		Help:      "Provider results discarded by orchestrator validation",
	}, []string{"provider", "capability"})
	availabilityChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "availability_checks_total",
		Help:      "Provider availability checks by result",
	}, []string{"provider", "capability", "result"})
	quotaDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_decisions_total",
		Help:      "Quota admission decisions by quota key and reason",
	}, []string{"quota_key", "reason"})
	orchestrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orchestrations_total",
		Help:      "Orchestrator executions by capability, strategy and outcome",
	}, []string{"capability", "strategy", "outcome"})
	orchestrationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "orchestration_duration_seconds",
		Help:      "Orchestrator execution latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 10),
	}, []string{"capability", "strategy"})
	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Orchestrator result cache lookups by result",
	}, []string{"capability", "result"})
	registeredProviders = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "registered_providers",
		Help:      "Number of providers in the registry",
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		providerCalls, providerCallDuration, validationRejections, availabilityChecks,
		quotaDecisions, orchestrations, orchestrationDuration, cacheLookups, registeredProviders,
	}
}

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(collectors()...)
	})
}

// RegisterWith registers the collectors on a caller-owned registry.
func RegisterWith(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Provider call helpers
func IncProviderCall(provider, capability, outcome string) {
	providerCalls.WithLabelValues(provider, capability, outcome).Inc()
}
func ObserveProviderCall(provider, capability string, d time.Duration) {
	providerCallDuration.WithLabelValues(provider, capability).Observe(d.Seconds())
}
func IncValidationRejection(provider, capability string) {
	validationRejections.WithLabelValues(provider, capability).Inc()
}
func IncAvailabilityCheck(provider, capability, result string) {
	availabilityChecks.WithLabelValues(provider, capability, result).Inc()
}

// Quota
func IncQuotaDecision(quotaKey, reason string) {
	quotaDecisions.WithLabelValues(quotaKey, reason).Inc()
}

// Orchestration lifecycle
func IncOrchestration(capability, strategy, outcome string) {
	orchestrations.WithLabelValues(capability, strategy, outcome).Inc()
}
func ObserveOrchestration(capability, strategy string, d time.Duration) {
	orchestrationDuration.WithLabelValues(capability, strategy).Observe(d.Seconds())
}
func IncCacheLookup(capability string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(capability, result).Inc()
}

// Gauges
func SetRegisteredProviders(n int) { registeredProviders.Set(float64(n)) }
