package invalidation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the channel's health to an operations dashboard. All
// fields are optional; a nil Metrics disables instrumentation.
type Metrics struct {
	Reconnects      prometheus.Counter
	DuplicateLogins prometheus.Counter
	ChannelState    prometheus.Gauge
}

// NewMetrics creates and registers the channel metric set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_session_channel_reconnects_total",
			Help: "Reconnect attempts scheduled for the session invalidation channel.",
		}),
		DuplicateLogins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_session_duplicate_logins_total",
			Help: "Duplicate-login signals received over the invalidation channel.",
		}),
		ChannelState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_session_channel_state",
			Help: "Current channel state (0 closed, 1 connecting, 2 open, 3 reconnect scheduled).",
		}),
	}
	reg.MustRegister(m.Reconnects, m.DuplicateLogins, m.ChannelState)
	return m
}

func (m *Metrics) reconnectScheduled() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

func (m *Metrics) duplicateLogin() {
	if m == nil {
		return
	}
	m.DuplicateLogins.Inc()
}

func (m *Metrics) stateChanged(s State) {
	if m == nil {
		return
	}
	m.ChannelState.Set(float64(s))
}
