package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PriceCalculationTotal counts price calculations by outcome.
	PriceCalculationTotal *prometheus.CounterVec
	// PaymentTotal counts payment dispatch outcomes per processor.
	PaymentTotal *prometheus.CounterVec
	// PaymentDuration records processor call latency in milliseconds.
	PaymentDuration *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PriceCalculationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_calculation_total",
			Help:      "Count of price calculations by result.",
		}, []string{"result"})
		PaymentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_total",
			Help:      "Count of payment attempts by processor and result.",
		}, []string{"processor", "result"})
		PaymentDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_duration_ms",
			Help:      "Latency of payment processor calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"processor"})

		mustRegisterCollector(reg, PriceCalculationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PriceCalculationTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				PaymentDuration = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
