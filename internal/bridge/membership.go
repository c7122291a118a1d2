package bridge

import (
	"context"
	"log/slog"

	"github.com/birdbridge/birdbridge/pkg/models"
)

// MembershipReconciler tears down a timeline binding when the owning
// principal leaves the bound room. Departures by anyone else are ignored.
type MembershipReconciler struct {
	services *Services
	logger   *slog.Logger
}

// NewMembershipReconciler creates a membership reconciler.
func NewMembershipReconciler(services *Services) (*MembershipReconciler, error) {
	if err := services.Validate(); err != nil {
		return nil, err
	}
	if services.Subscriptions == nil {
		return nil, ErrConfig("subscription manager is required", nil)
	}
	if services.FastLookup == nil {
		return nil, ErrConfig("fast lookup store is required", nil)
	}
	return &MembershipReconciler{
		services: services,
		logger:   services.Logger.With("component", "membership"),
	}, nil
}

// OnParticipantLeft handles a leave event in a bridged room.
//
// Teardown fires only when the binding is a user timeline and the departing
// participant is its owner. The subscription is stopped and the fast-lookup
// record removed before the room leave; the binding entries are removed
// after the leave resolves. A failed leave does not block entry removal:
// a stuck binding would make the account unprovisionable forever, so the
// entries are force-removed and the failure is logged and counted.
func (r *MembershipReconciler) OnParticipantLeft(ctx context.Context, evt models.RoomEvent, hctx models.HandlerContext) {
	if err := hctx.Validate(); err != nil {
		r.logger.Error("invalid handler context", "error", err)
		return
	}

	remote := hctx.Binding.Remote
	if remote.Kind != models.KindUserTimeline || evt.Sender != remote.OwnerPrincipal {
		return
	}

	logger := r.logger.With(
		"room_id", evt.RoomID,
		"owner", remote.OwnerPrincipal,
		"twitter_user", remote.ExternalUserID,
	)
	logger.Info("owner left timeline room, tearing down")

	if err := r.services.Subscriptions.StopSubscription(ctx, evt.Sender); err != nil {
		logger.Error("could not stop timeline subscription", "error", err)
	}

	if err := r.services.FastLookup.RemoveTimelineRoomRecord(ctx, evt.Sender); err != nil {
		logger.Error("could not remove timeline room record", "error", err)
	}

	if err := r.services.Rooms.LeaveRoom(ctx, evt.RoomID); err != nil {
		r.services.Metrics.RoomLeaveFailures.Inc()
		logger.Error("service identity could not leave room", "error", err)
	}

	if err := r.services.RoomStore.RemoveEntriesByRemoteRoomData(ctx, remote); err != nil {
		logger.Error("could not remove binding entries", "error", err)
		return
	}

	r.services.Metrics.TeardownsCompleted.Inc()
	logger.Info("timeline binding removed")
}
