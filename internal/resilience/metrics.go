package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "payment_gateway_breaker_state",
			Help: "Current gateway breaker state: 0=closed,1=open,2=half-open",
		},
		[]string{"gateway"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_breaker_transition_total",
			Help: "Count of gateway breaker state transitions",
		},
		[]string{"gateway", "from", "to"},
	)
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_breaker_open_total",
			Help: "Number of times a gateway breaker opened",
		},
		[]string{"gateway"},
	)
	GatewayAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_http_attempts_total",
			Help: "HTTP attempts issued to payment gateways by outcome",
		},
		[]string{"gateway", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, GatewayAttempts)
}
