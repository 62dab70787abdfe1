package metrics

import "github.com/prometheus/client_golang/prometheus"

// PresenceMetrics tracks live websocket connections and dropped deliveries.
type PresenceMetrics struct {
	connections *prometheus.GaugeVec
	dropped     *prometheus.CounterVec
}

// NewPresenceMetrics registers the presence gauge and drop counter on reg.
func NewPresenceMetrics(reg prometheus.Registerer) *PresenceMetrics {
	if reg == nil {
		return &PresenceMetrics{}
	}
	connections := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "presence_connections",
		Help: "Open realtime connections by actor kind.",
	}, []string{"kind"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_dropped_messages_total",
		Help: "Realtime events dropped because the recipient was offline or slow.",
	}, []string{"reason"})
	reg.MustRegister(connections, dropped)
	return &PresenceMetrics{connections: connections, dropped: dropped}
}

func (p *PresenceMetrics) Connected(kind string) {
	if p == nil || p.connections == nil {
		return
	}
	p.connections.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (p *PresenceMetrics) Disconnected(kind string) {
	if p == nil || p.connections == nil {
		return
	}
	p.connections.WithLabelValues(normalizeLabel(kind)).Dec()
}

// Dropped counts an undelivered event.
func (p *PresenceMetrics) Dropped(reason string) {
	if p == nil || p.dropped == nil {
		return
	}
	p.dropped.WithLabelValues(normalizeLabel(reason)).Inc()
}
