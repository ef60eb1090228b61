package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the conversation flows.
type ChatMetrics struct {
	messagesTotal       *prometheus.CounterVec
	classifierFallbacks prometheus.Counter
	reserveConflicts    prometheus.Counter
	bookingsTotal       *prometheus.CounterVec
	turnLatency         *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cliniccall",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Total chat messages processed, by detected intent",
		}, []string{"intent"}),
		classifierFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cliniccall",
			Subsystem: "chat",
			Name:      "classifier_fallbacks_total",
			Help:      "Total classifications served by the keyword fallback",
		}),
		reserveConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cliniccall",
			Subsystem: "ledger",
			Name:      "reserve_conflicts_total",
			Help:      "Total reservations rejected because the slot was taken",
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cliniccall",
			Subsystem: "ledger",
			Name:      "bookings_total",
			Help:      "Total confirmed bookings, by department",
		}, []string{"department"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cliniccall",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a full conversation turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.classifierFallbacks, m.reserveConflicts, m.bookingsTotal, m.turnLatency)
	return m
}

func (m *ChatMetrics) ObserveMessage(intent string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(intent).Inc()
}

func (m *ChatMetrics) ObserveClassifierFallback() {
	if m == nil {
		return
	}
	m.classifierFallbacks.Inc()
}

func (m *ChatMetrics) ObserveReserveConflict() {
	if m == nil {
		return
	}
	m.reserveConflicts.Inc()
}

func (m *ChatMetrics) ObserveBooking(department string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(department).Inc()
}

func (m *ChatMetrics) ObserveTurnLatency(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(stage).Observe(seconds)
}
