package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Call outcome labels.
const (
	outcomeInitiated  = "initiated"
	outcomeOffline    = "callee_offline"
	outcomeAccepted   = "accepted"
	outcomeRejected   = "rejected"
	outcomeEnded      = "ended"
	outcomeDropped    = "disconnected"
	outcomeTimeout    = "timeout"
	outcomeCallerGone = "caller_gone"
)

// Metrics holds the relay collectors. A nil *Metrics records nothing.
type Metrics struct {
	OnlineUsers prometheus.Gauge
	ActiveCalls prometheus.Gauge
	Pushes      *prometheus.CounterVec
	Calls       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatrelay",
			Name:      "online_users",
			Help:      "Users with a registered connection.",
		}),
		ActiveCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatrelay",
			Name:      "active_calls",
			Help:      "Call sessions that are ringing or accepted.",
		}),
		Pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatrelay",
			Name:      "pushes_total",
			Help:      "Outbound events by name and result.",
		}, []string{"event", "result"}),
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatrelay",
			Name:      "calls_total",
			Help:      "Call state transitions by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.OnlineUsers, m.ActiveCalls, m.Pushes, m.Calls)
	}
	return m
}

func (m *Metrics) pushed(event string, ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "dropped"
	}
	m.Pushes.WithLabelValues(event, result).Inc()
}

func (m *Metrics) call(outcome string) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setOnline(n int) {
	if m == nil {
		return
	}
	m.OnlineUsers.Set(float64(n))
}

func (m *Metrics) setActiveCalls(n int) {
	if m == nil {
		return
	}
	m.ActiveCalls.Set(float64(n))
}
