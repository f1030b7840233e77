package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DecisionMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_authz_decisions_total",
			Help: "The authorization decisions partitioned by verdict and deciding provider",
		},
		[]string{"decision", "provider"},
	)
	EvaluationLatencyMetric = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Name: "gate_authz_evaluation_duration",
			Help: "A summary of the chain evaluation latency, in seconds",
		},
	)
	LatencyMetric = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Name: "gate_request_duration",
			Help: "A summary of the http request latency for auth checks, in seconds",
		},
	)
	StatusMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_request_status_total",
			Help: "The HTTP responses partitioned by status code and method",
		},
		[]string{"code", "method"},
	)
	CacheMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_decision_cache_total",
			Help: "Decision cache activity partitioned by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
