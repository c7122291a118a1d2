package bridge

import (
	"context"
	"testing"

	"github.com/birdbridge/birdbridge/pkg/models"
)

func aliceBinding() *models.TimelineBinding {
	return &models.TimelineBinding{
		RoomID: "!room:example.com",
		Remote: models.RemoteRoomData{
			RemoteID:       "timeline_42",
			Kind:           models.KindUserTimeline,
			ExternalUserID: "42",
			OwnerPrincipal: "@_twitter_42:example.com",
		},
		Display: models.DisplayMetadata{Name: "Alice Example"},
	}
}

func TestOnRoomCreatedLinksAndSubscribes(t *testing.T) {
	rec := newRecorder()
	lifecycle, err := NewLifecycleCoordinator(testServices(rec))
	if err != nil {
		t.Fatalf("NewLifecycleCoordinator() error = %v", err)
	}

	lifecycle.OnRoomCreated(context.Background(), "alice", aliceBinding())

	if len(rec.upserts) != 1 {
		t.Fatalf("expected one persisted binding, got %d", len(rec.upserts))
	}
	if rec.upserts[0].RoomID != "!room:example.com" {
		t.Errorf("persisted binding has wrong room id %q", rec.upserts[0].RoomID)
	}
	if len(rec.fastSet) != 1 || rec.fastSet[0] != "@_twitter_42:example.com" {
		t.Errorf("expected fast-lookup record for the owner, got %v", rec.fastSet)
	}
	if roomID, ok := rec.started["42"]; !ok || roomID != "!room:example.com" {
		t.Errorf("expected subscription for user 42 in the new room, got %v", rec.started)
	}
}

func TestOnRoomCreatedIdempotent(t *testing.T) {
	rec := newRecorder()
	lifecycle, err := NewLifecycleCoordinator(testServices(rec))
	if err != nil {
		t.Fatalf("NewLifecycleCoordinator() error = %v", err)
	}

	lifecycle.OnRoomCreated(context.Background(), "alice", aliceBinding())
	lifecycle.OnRoomCreated(context.Background(), "alice", aliceBinding())

	if len(rec.started) != 1 {
		t.Errorf("expected one effective subscription after double invocation, got %d", len(rec.started))
	}
	if len(rec.upserts) != 2 {
		t.Errorf("expected the same entry upserted twice, got %d", len(rec.upserts))
	}
	if rec.upserts[0].Remote != rec.upserts[1].Remote {
		t.Error("re-invocation must persist the same remote data")
	}
}

func TestNewLifecycleCoordinatorRequiresFastLookup(t *testing.T) {
	rec := newRecorder()
	services := testServices(rec)
	services.FastLookup = nil

	if _, err := NewLifecycleCoordinator(services); err == nil {
		t.Fatal("expected an error without a fast lookup store")
	}
}

func TestOnRoomCreatedWithoutRoomID(t *testing.T) {
	rec := newRecorder()
	lifecycle, err := NewLifecycleCoordinator(testServices(rec))
	if err != nil {
		t.Fatalf("NewLifecycleCoordinator() error = %v", err)
	}

	binding := aliceBinding()
	binding.RoomID = ""
	lifecycle.OnRoomCreated(context.Background(), "alice", binding)

	if len(rec.upserts) != 0 {
		t.Errorf("expected nothing persisted without a room id, got %d upserts", len(rec.upserts))
	}
	if len(rec.started) != 0 {
		t.Errorf("expected no subscription without a room id, got %v", rec.started)
	}
}

func TestOnRoomCreatedSubscriptionFailureKeepsBinding(t *testing.T) {
	rec := newRecorder()
	rec.startErr = errBoom
	lifecycle, err := NewLifecycleCoordinator(testServices(rec))
	if err != nil {
		t.Fatalf("NewLifecycleCoordinator() error = %v", err)
	}

	lifecycle.OnRoomCreated(context.Background(), "alice", aliceBinding())

	// The room already exists; a failed subscription start is not rolled back.
	if len(rec.upserts) != 1 {
		t.Errorf("expected the binding to stay persisted, got %d upserts", len(rec.upserts))
	}
	if len(rec.removedRemotes) != 0 {
		t.Errorf("expected no entry removal on subscription failure, got %v", rec.removedRemotes)
	}
}
