// Package bridge implements the core of the Matrix-Twitter timeline bridge:
// alias provisioning, post-creation lifecycle, membership reconciliation and
// outbound message relay. All four components share one persisted timeline
// binding per external account and talk to the outside world only through
// the collaborator interfaces bundled in Services.
package bridge

import (
	"context"
	"log/slog"

	"github.com/birdbridge/birdbridge/internal/observability"
	"github.com/birdbridge/birdbridge/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

// RoomStore persists timeline bindings, keyed by their remote room data.
type RoomStore interface {
	UpsertEntry(ctx context.Context, binding *models.TimelineBinding) error
	RemoveEntriesByRemoteRoomData(ctx context.Context, remote models.RemoteRoomData) error
}

// FastLookupStore keeps the principal-to-timeline-room shortcut records.
type FastLookupStore interface {
	SetTimelineRoomRecord(ctx context.Context, principal, roomID string) error
	RemoveTimelineRoomRecord(ctx context.Context, principal string) error
}

// ProfileSource looks up Twitter profiles. A nil profile with a nil error
// means the screen name does not resolve to any account.
type ProfileSource interface {
	GetProfileByScreenName(ctx context.Context, name string) (*models.Profile, error)
}

// AssetStager uploads remote content into the Matrix content repository and
// returns the resulting mxc reference.
type AssetStager interface {
	UploadAsset(ctx context.Context, sourceURL string) (string, error)
}

// SubscriptionManager controls feed subscriptions. StartSubscription must
// deduplicate by external user ID; the coordinator always calls it the same
// way and relies on that. StopSubscription is keyed by the owning principal.
type SubscriptionManager interface {
	StartSubscription(ctx context.Context, externalUserID, roomID string, primary bool) error
	StopSubscription(ctx context.Context, principal string) error
}

// RoomService exposes the room operations the core needs from the Matrix side.
type RoomService interface {
	LeaveRoom(ctx context.Context, roomID string) error
	ServiceIdentity() string
}

// OutboundPoster is the outward-posting path for room messages.
type OutboundPoster interface {
	PostAsExternalMessage(ctx context.Context, evt models.RoomEvent, senderPrincipal string, remote models.RemoteRoomData) error
}

// Services bundles the collaborators the bridge components share. Passing it
// explicitly at construction keeps every component substitutable in tests.
type Services struct {
	RoomStore     RoomStore
	FastLookup    FastLookupStore
	Profiles      ProfileSource
	Assets        AssetStager
	Subscriptions SubscriptionManager
	Rooms         RoomService
	Outbound      OutboundPoster

	// Domain is the homeserver domain used to derive owner principals.
	Domain string

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Validate checks required collaborators and applies defaults.
func (s *Services) Validate() error {
	if s.RoomStore == nil {
		return ErrConfig("room store is required", nil)
	}
	if s.Rooms == nil {
		return ErrConfig("room service is required", nil)
	}
	if s.Domain == "" {
		return ErrConfig("homeserver domain is required", nil)
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Metrics == nil {
		s.Metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	return nil
}
