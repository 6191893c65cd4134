package session

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSuccess     = "success"
	outcomeRejected    = "rejected"
	outcomeMalformed   = "malformed"
	outcomeUnreachable = "unreachable"
	outcomeError       = "error"
	outcomeSuperseded  = "superseded"
)

// Metrics counts refresh and identity outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	Refreshes       *prometheus.CounterVec
	IdentityFetches *prometheus.CounterVec
	Authenticated   prometheus.Gauge
}

// NewMetrics builds the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session",
			Name:      "refresh_total",
			Help:      "Access token refresh exchanges by outcome.",
		}, []string{"outcome"}),
		IdentityFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session",
			Name:      "identity_fetch_total",
			Help:      "Identity endpoint calls by outcome.",
		}, []string{"outcome"}),
		Authenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "session",
			Name:      "authenticated",
			Help:      "1 while an identity is loaded.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Refreshes, m.IdentityFetches, m.Authenticated)
	}
	return m
}

func (m *Metrics) refreshed(outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) identityFetched(outcome string) {
	if m == nil {
		return
	}
	m.IdentityFetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observe(st State) {
	if m == nil {
		return
	}
	if st.IsAuthenticated {
		m.Authenticated.Set(1)
	} else {
		m.Authenticated.Set(0)
	}
}
