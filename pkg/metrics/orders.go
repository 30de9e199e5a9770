package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts the order-engine events worth watching on a terminal.
type OrderMetrics struct {
	settlements      prometheus.Counter
	admissionDenials *prometheus.CounterVec
	kioskOrders      prometheus.Counter
}

// NewOrderMetrics registers the order engine metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	settlements := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Completed settlements.",
	})
	admissionDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "admission_denials_total",
		Help: "Cart mutations refused by admission control.",
	}, []string{"reason"})
	kioskOrders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_orders_total",
		Help: "Tickets submitted from the kiosk.",
	})
	reg.MustRegister(settlements, admissionDenials, kioskOrders)
	return &OrderMetrics{
		settlements:      settlements,
		admissionDenials: admissionDenials,
		kioskOrders:      kioskOrders,
	}
}

// IncSettlement increments the settlement counter.
func (o *OrderMetrics) IncSettlement() {
	if o == nil || o.settlements == nil {
		return
	}
	o.settlements.Inc()
}

// IncAdmissionDenial increments the denial counter for the given reason.
func (o *OrderMetrics) IncAdmissionDenial(reason string) {
	if o == nil || o.admissionDenials == nil {
		return
	}
	o.admissionDenials.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncKioskOrder increments the kiosk submission counter.
func (o *OrderMetrics) IncKioskOrder() {
	if o == nil || o.kioskOrders == nil {
		return
	}
	o.kioskOrders.Inc()
}
