package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the bridge's operational counters.
//
// The metrics system is built on Prometheus and tracks:
//   - Room provisioning outcomes (success and failures by error code)
//   - Message relay volume toward Twitter
//   - Timeline subscription lifecycle and teardown outcomes
//   - Tweets delivered into bridged rooms
type Metrics struct {
	// RoomsProvisioned counts timeline rooms successfully provisioned.
	RoomsProvisioned prometheus.Counter

	// ProvisioningFailures counts failed alias resolutions.
	// Labels: code (NOT_FOUND|PROTECTED_ACCOUNT|UPLOAD_ERROR|...)
	ProvisioningFailures *prometheus.CounterVec

	// MessagesRelayed counts room messages forwarded to the outward-posting path.
	MessagesRelayed prometheus.Counter

	// RelayFailures counts outward-posting failures.
	RelayFailures prometheus.Counter

	// SubscriptionStartFailures counts subscriptions that failed to start
	// after their room was already created. Each increment is an
	// eventual-consistency gap: the room exists without a live feed.
	SubscriptionStartFailures prometheus.Counter

	// TeardownsCompleted counts owner-leave teardowns that ran to completion.
	TeardownsCompleted prometheus.Counter

	// RoomLeaveFailures counts failed service-identity room leaves during
	// teardown. Entry removal still proceeds when this fires.
	RoomLeaveFailures prometheus.Counter

	// ActiveSubscriptions tracks currently running timeline subscriptions.
	ActiveSubscriptions prometheus.Gauge

	// TweetsDelivered counts tweets posted into bridged rooms.
	TweetsDelivered prometheus.Counter
}

// NewMetrics creates the bridge metrics, registered against reg.
// Pass prometheus.NewRegistry() in tests to avoid global registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RoomsProvisioned: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_rooms_provisioned_total",
			Help: "Timeline rooms successfully provisioned.",
		}),
		ProvisioningFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_provisioning_failures_total",
			Help: "Failed alias provisioning requests by error code.",
		}, []string{"code"}),
		MessagesRelayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_messages_relayed_total",
			Help: "Room messages forwarded to the outward-posting path.",
		}),
		RelayFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_relay_failures_total",
			Help: "Outward-posting failures.",
		}),
		SubscriptionStartFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_subscription_start_failures_total",
			Help: "Feed subscriptions that failed to start after room creation.",
		}),
		TeardownsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_teardowns_completed_total",
			Help: "Owner-leave teardowns completed.",
		}),
		RoomLeaveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_room_leave_failures_total",
			Help: "Service identity room leaves that failed during teardown.",
		}),
		ActiveSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_active_subscriptions",
			Help: "Currently running timeline subscriptions.",
		}),
		TweetsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_tweets_delivered_total",
			Help: "Tweets posted into bridged rooms.",
		}),
	}
}
