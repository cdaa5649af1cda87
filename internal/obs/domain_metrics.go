package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts applied cart mutations by operation.
	CartMutationsTotal *prometheus.CounterVec
	// CartPersistFailures counts cart state saves that failed.
	CartPersistFailures prometheus.Counter
	// SalesCompletedTotal counts finalized sales by invoice status.
	SalesCompletedTotal *prometheus.CounterVec
	// SalesAmountTotal accumulates the grand total of finalized sales.
	SalesAmountTotal prometheus.Counter
	// SessionEventsTotal counts cash session transitions.
	SessionEventsTotal *prometheus.CounterVec
	// ReceiptDeliveriesTotal counts receipt delivery outcomes.
	ReceiptDeliveriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of applied cart mutations.",
		}, []string{"op"})
		CartPersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_persist_failures_total",
			Help:      "Number of cart state saves that failed.",
		})
		SalesCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_completed_total",
			Help:      "Count of finalized sales by invoice status.",
		}, []string{"status"})
		SalesAmountTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_amount_total",
			Help:      "Sum of grand totals of finalized sales.",
		})
		SessionEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cash_session_events_total",
			Help:      "Count of cash session transitions.",
		}, []string{"action"})
		ReceiptDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_deliveries_total",
			Help:      "Count of receipt delivery outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, CartPersistFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartPersistFailures = v
			}
		})
		mustRegisterCollector(reg, SalesCompletedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesCompletedTotal = v
			}
		})
		mustRegisterCollector(reg, SalesAmountTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SalesAmountTotal = v
			}
		})
		mustRegisterCollector(reg, SessionEventsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SessionEventsTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptDeliveriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptDeliveriesTotal = v
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
