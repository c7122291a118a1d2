package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/birdbridge/birdbridge/pkg/models"
)

// recorder implements every collaborator interface and records the calls in
// arrival order so teardown sequencing can be asserted.
type recorder struct {
	mu    sync.Mutex
	calls []string

	profiles   map[string]*models.Profile
	profileErr error

	uploads   []string
	uploadErr error

	upserts   []models.TimelineBinding
	upsertErr error

	removedRemotes []models.RemoteRoomData

	fastSet     []string
	fastRemoved []string

	started  map[string]string // external user ID -> room ID
	startErr error
	stopped  []string

	left     []string
	leaveErr error

	posted  []models.RoomEvent
	postErr error
}

func newRecorder() *recorder {
	return &recorder{
		profiles: make(map[string]*models.Profile),
		started:  make(map[string]string),
	}
}

func (r *recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) GetProfileByScreenName(ctx context.Context, name string) (*models.Profile, error) {
	r.record("get_profile:" + name)
	if r.profileErr != nil {
		return nil, r.profileErr
	}
	return r.profiles[name], nil
}

func (r *recorder) UploadAsset(ctx context.Context, sourceURL string) (string, error) {
	r.record("upload_asset:" + sourceURL)
	if r.uploadErr != nil {
		return "", r.uploadErr
	}
	r.uploads = append(r.uploads, sourceURL)
	return "mxc://example.com/avatar", nil
}

func (r *recorder) UpsertEntry(ctx context.Context, binding *models.TimelineBinding) error {
	r.record("upsert_entry:" + binding.Remote.RemoteID)
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserts = append(r.upserts, *binding)
	return nil
}

func (r *recorder) RemoveEntriesByRemoteRoomData(ctx context.Context, remote models.RemoteRoomData) error {
	r.record("remove_entries:" + remote.RemoteID)
	r.removedRemotes = append(r.removedRemotes, remote)
	return nil
}

func (r *recorder) SetTimelineRoomRecord(ctx context.Context, principal, roomID string) error {
	r.record("set_timeline_room:" + principal)
	r.fastSet = append(r.fastSet, principal)
	return nil
}

func (r *recorder) RemoveTimelineRoomRecord(ctx context.Context, principal string) error {
	r.record("remove_timeline_room:" + principal)
	r.fastRemoved = append(r.fastRemoved, principal)
	return nil
}

func (r *recorder) StartSubscription(ctx context.Context, externalUserID, roomID string, primary bool) error {
	r.record("start_subscription:" + externalUserID)
	if r.startErr != nil {
		return r.startErr
	}
	// Dedup by external user ID, like the real subscription manager.
	if _, exists := r.started[externalUserID]; !exists {
		r.started[externalUserID] = roomID
	}
	return nil
}

func (r *recorder) StopSubscription(ctx context.Context, principal string) error {
	r.record("stop_subscription:" + principal)
	r.stopped = append(r.stopped, principal)
	return nil
}

func (r *recorder) LeaveRoom(ctx context.Context, roomID string) error {
	r.record("leave_room:" + roomID)
	if r.leaveErr != nil {
		return r.leaveErr
	}
	r.left = append(r.left, roomID)
	return nil
}

func (r *recorder) ServiceIdentity() string {
	return "@twitterbot:example.com"
}

func (r *recorder) PostAsExternalMessage(ctx context.Context, evt models.RoomEvent, senderPrincipal string, remote models.RemoteRoomData) error {
	r.record("post_outward:" + evt.ID)
	if r.postErr != nil {
		return r.postErr
	}
	r.posted = append(r.posted, evt)
	return nil
}

func testServices(rec *recorder) *Services {
	return &Services{
		RoomStore:     rec,
		FastLookup:    rec,
		Profiles:      rec,
		Assets:        rec,
		Subscriptions: rec,
		Rooms:         rec,
		Outbound:      rec,
		Domain:        "example.com",
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

var errBoom = errors.New("boom")
