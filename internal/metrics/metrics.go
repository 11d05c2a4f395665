// Package metrics holds the Prometheus collectors exposed at /metrics: an
// online-user gauge, a flips-published counter, a refresh-call counter, a
// focus-rejection counter, a claim-online counter, and a demo-registry gauge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors bundles every metric the presence fabric exports. A nil
// *Collectors is not valid; callers always get one from New.
type Collectors struct {
	OnlineUsers         prometheus.Gauge
	FlipsPublished      prometheus.Counter
	RefreshCalls        prometheus.Counter
	FocusRejections     prometheus.Counter
	ClaimOnlineCalls    prometheus.Counter
	DemoUsersRegistered prometheus.Gauge
}

// New registers every collector against the default registry and returns
// the bundle.
func New() *Collectors {
	return &Collectors{
		OnlineUsers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "presence",
			Name:      "online_users",
			Help:      "Number of users currently claimed online by this server process.",
		}),
		FlipsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "flips_published_total",
			Help:      "Total online/offline flip events published by this server.",
		}),
		RefreshCalls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "refresh_calls_total",
			Help:      "Total refresh_if_owner calls issued by this server's heartbeat loop.",
		}),
		FocusRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "focus_rejections_total",
			Help:      "Total focus() calls rejected for rate-limit or state reasons.",
		}),
		ClaimOnlineCalls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "claim_online_calls_total",
			Help:      "Total claim_online calls issued on successful auth.",
		}),
		DemoUsersRegistered: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "presence",
			Name:      "demo_users_registered",
			Help:      "Distinct user keys the demo login collaborator has ever seen.",
		}),
	}
}
