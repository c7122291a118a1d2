package bridge

import (
	"context"
	"log/slog"

	"github.com/birdbridge/birdbridge/pkg/models"
)

// LifecycleCoordinator finalizes a provisioned room once the host has
// created it: the binding is persisted, the owner's fast-lookup record is
// written, and the primary feed subscription is started.
type LifecycleCoordinator struct {
	services *Services
	logger   *slog.Logger
}

// NewLifecycleCoordinator creates a lifecycle coordinator.
func NewLifecycleCoordinator(services *Services) (*LifecycleCoordinator, error) {
	if err := services.Validate(); err != nil {
		return nil, err
	}
	if services.Subscriptions == nil {
		return nil, ErrConfig("subscription manager is required", nil)
	}
	if services.FastLookup == nil {
		return nil, ErrConfig("fast lookup store is required", nil)
	}
	return &LifecycleCoordinator{
		services: services,
		logger:   services.Logger.With("component", "lifecycle"),
	}, nil
}

// OnRoomCreated is invoked by the provisioning host after room creation for
// an alias succeeds. The binding entry carries the room ID assigned by the
// homeserver plus the remote data produced at resolution time.
//
// The call is idempotent at the binding-store level: re-invocation with the
// same entry upserts the same row and the subscription manager deduplicates
// by external user ID, so no duplicate subscription is started.
//
// A failed subscription start is not rolled back against the already-created
// room; the gap is logged and counted.
func (l *LifecycleCoordinator) OnRoomCreated(ctx context.Context, alias string, binding *models.TimelineBinding) {
	logger := l.logger.With(
		"alias", alias,
		"room_id", binding.RoomID,
		"twitter_user", binding.Remote.ExternalUserID,
	)

	if binding.RoomID == "" {
		logger.Error("room created callback without a room id, ignoring")
		return
	}

	if err := l.services.RoomStore.UpsertEntry(ctx, binding); err != nil {
		logger.Error("could not persist timeline binding", "error", err)
		return
	}

	if err := l.services.FastLookup.SetTimelineRoomRecord(ctx, binding.Remote.OwnerPrincipal, binding.RoomID); err != nil {
		logger.Error("could not record timeline room for owner", "error", err)
	}

	err := l.services.Subscriptions.StartSubscription(ctx, binding.Remote.ExternalUserID, binding.RoomID, true)
	if err != nil {
		// Accepted eventual-consistency gap: the room exists, the feed
		// does not. No rollback, no retry.
		l.services.Metrics.SubscriptionStartFailures.Inc()
		logger.Error("could not start timeline subscription", "error", err)
		return
	}

	logger.Info("timeline room linked and subscription started")
}
