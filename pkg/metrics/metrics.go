package metrics

import "github.com/prometheus/client_golang/prometheus"

// Trigger and gateway outcome label values
const (
	OutcomeSuccess   = "success"
	OutcomeSkipped   = "skipped"
	OutcomeFailure   = "failure"
	OutcomeMalformed = "malformed"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "push_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// TriggerEvents counts routed store events by type and outcome
	TriggerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_trigger_events_total",
			Help: "Number of store events handled, by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// GatewayCalls counts push transport calls
	GatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_gateway_calls_total",
			Help: "Number of push transport calls, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCount, RequestDuration, TriggerEvents, GatewayCalls)
}

// Outcome maps a call error to a success or failure label
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
