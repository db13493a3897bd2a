package collab

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the collaboration core.
// All methods are nil-safe so components can run unmetered in tests.
type Metrics struct {
	sessionsActive  prometheus.GaugeFunc
	roomsActive     prometheus.GaugeFunc
	locksHeld       prometheus.GaugeFunc
	messagesTotal   *prometheus.CounterVec
	malformedTotal  prometheus.Counter
	broadcastsTotal prometheus.Counter
	broadcastDrops  prometheus.Counter
	lockDenials     prometheus.Counter
	disconnects     prometheus.Counter
}

// NewMetrics registers the collaboration metrics with the given
// registerer under the "inkwell" namespace.
func NewMetrics(reg prometheus.Registerer, registry *Registry, directory *Directory, locks *LockManager) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		sessionsActive: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "inkwell",
			Name:      "active_sessions",
			Help:      "Number of live WebSocket sessions",
		}, func() float64 { return float64(registry.Count()) }),

		roomsActive: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "inkwell",
			Name:      "active_rooms",
			Help:      "Number of rooms with at least one member",
		}, func() float64 { return float64(directory.Len()) }),

		locksHeld: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "inkwell",
			Name:      "locks_held",
			Help:      "Number of annotation locks currently held",
		}, func() float64 { return float64(locks.Len()) }),

		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inkwell",
			Name:      "messages_total",
			Help:      "Total client messages processed, by type",
		}, []string{"type"}),

		malformedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Name:      "malformed_messages_total",
			Help:      "Total client messages rejected as malformed",
		}),

		broadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Name:      "broadcasts_total",
			Help:      "Total messages fanned out to room members",
		}),

		broadcastDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Name:      "broadcast_drops_total",
			Help:      "Total per-recipient deliveries dropped on full send queues",
		}),

		lockDenials: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Name:      "lock_denials_total",
			Help:      "Total denied lock and unlock requests",
		}),

		disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Name:      "disconnects_total",
			Help:      "Total completed disconnect cleanups",
		}),
	}
}

func (m *Metrics) recordMessage(msgType string) {
	if m != nil {
		m.messagesTotal.WithLabelValues(msgType).Inc()
	}
}

func (m *Metrics) recordMalformed() {
	if m != nil {
		m.malformedTotal.Inc()
	}
}

func (m *Metrics) recordBroadcast(delivered, dropped int) {
	if m != nil {
		m.broadcastsTotal.Add(float64(delivered))
		m.broadcastDrops.Add(float64(dropped))
	}
}

func (m *Metrics) recordLockDenial() {
	if m != nil {
		m.lockDenials.Inc()
	}
}

func (m *Metrics) recordDisconnect() {
	if m != nil {
		m.disconnects.Inc()
	}
}
