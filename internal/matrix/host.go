package matrix

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/birdbridge/birdbridge/internal/bridge"
	"github.com/birdbridge/birdbridge/internal/roomstore"
	"github.com/birdbridge/birdbridge/pkg/models"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
)

// commandPrefix triggers provisioning when a message in an unbound room
// starts with it, e.g. "!twitter jack".
const commandPrefix = "!twitter "

// Host is the provisioning host: it runs the sync loop, dispatches room
// events into the core handlers, and drives the provision-then-link flow.
// Provisioning is triggered by the "!twitter <screen name>" command in any
// room the service is in that carries no binding.
// Events for a room arrive in sync order; each handler invocation runs to
// completion before the next event of that room is dispatched.
type Host struct {
	service     *Service
	store       roomstore.Store
	provisioner *bridge.RoomProvisioner
	lifecycle   *bridge.LifecycleCoordinator
	membership  *bridge.MembershipReconciler
	relay       *bridge.MessageRelay
	logger      *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewHost wires the core handlers to the Matrix service.
func NewHost(service *Service, store roomstore.Store, provisioner *bridge.RoomProvisioner, lifecycle *bridge.LifecycleCoordinator, membership *bridge.MembershipReconciler, relay *bridge.MessageRelay) *Host {
	return &Host{
		service:     service,
		store:       store,
		provisioner: provisioner,
		lifecycle:   lifecycle,
		membership:  membership,
		relay:       relay,
		logger:      service.logger.With("component", "host"),
		stopCh:      make(chan struct{}),
	}
}

// Start registers the event handlers and begins syncing.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	syncer := h.service.client.Syncer.(*mautrix.DefaultSyncer)

	syncer.OnEventType(event.EventMessage, func(ctx context.Context, evt *event.Event) {
		h.handleMessage(ctx, evt)
	})

	syncer.OnEventType(event.StateMember, func(ctx context.Context, evt *event.Event) {
		h.handleMemberEvent(ctx, evt)
	})

	go h.syncLoop(ctx)

	h.logger.Info("bridge host started",
		"homeserver", h.service.config.Homeserver,
		"user_id", h.service.config.UserID)
	return nil
}

// Stop stops the sync loop.
func (h *Host) Stop(ctx context.Context) error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	close(h.stopCh)
	h.mu.Unlock()

	h.service.client.StopSync()

	h.logger.Info("bridge host stopped")
	return nil
}

// ProvisionRoom resolves an alias local part and, on success, creates the
// room and runs the lifecycle callback exactly once. Failures are logged
// and returned; no room exists after a failed resolution.
func (h *Host) ProvisionRoom(ctx context.Context, aliasLocalPart string) (string, error) {
	provisioned, err := h.provisioner.ResolveProvisioningRequest(ctx, aliasLocalPart)
	if err != nil {
		return "", err
	}

	roomID, err := h.service.CreateRoom(ctx, provisioned.Creation)
	if err != nil {
		return "", bridge.ErrRoomOperation("could not create room for alias "+aliasLocalPart, err)
	}

	binding := &models.TimelineBinding{
		RoomID:  roomID,
		Remote:  provisioned.Remote,
		Display: provisioned.Display,
	}
	h.lifecycle.OnRoomCreated(ctx, aliasLocalPart, binding)

	return roomID, nil
}

func (h *Host) syncLoop(ctx context.Context) {
	for {
		select {
		case <-h.stopCh:
			return
		case <-ctx.Done():
			return
		default:
			if err := h.service.client.SyncWithContext(ctx); err != nil {
				h.logger.Error("sync error", "error", err)

				select {
				case <-time.After(h.service.config.SyncBackoff):
				case <-h.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (h *Host) handleMessage(ctx context.Context, evt *event.Event) {
	// Ignore our own messages and the tweets we deliver.
	if string(evt.Sender) == h.service.config.UserID {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return
	}
	if content.MsgType != event.MsgText && content.MsgType != event.MsgEmote {
		return
	}

	binding, err := h.store.GetEntryByRoomID(ctx, string(evt.RoomID))
	if err != nil {
		h.logger.Error("binding lookup failed", "room_id", evt.RoomID, "error", err)
		return
	}
	if binding == nil {
		h.handleCommand(ctx, evt, content.Body)
		return
	}

	roomEvent := roomEventFrom(evt)
	roomEvent.Body = content.Body

	h.relay.OnMessageEvent(ctx, roomEvent, string(evt.Sender), binding.Remote)
}

// handleCommand answers provisioning commands in rooms without a binding.
// "!twitter <screen name>" bridges that account's timeline into a new room.
func (h *Host) handleCommand(ctx context.Context, evt *event.Event, body string) {
	if !strings.HasPrefix(body, commandPrefix) {
		return
	}
	alias := strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(body, commandPrefix)), "@")
	if alias == "" {
		return
	}

	roomID, err := h.ProvisionRoom(ctx, alias)
	if err != nil {
		h.logger.Error("provisioning command failed", "alias", alias, "error", err)
		h.reply(ctx, string(evt.RoomID), "Could not bridge @"+alias+": "+err.Error())
		return
	}
	h.reply(ctx, string(evt.RoomID), "Bridged @"+alias+" into "+roomID)
}

func (h *Host) reply(ctx context.Context, roomID, text string) {
	if err := h.service.SendNotice(ctx, roomID, text); err != nil {
		h.logger.Error("could not send reply", "room_id", roomID, "error", err)
	}
}

func (h *Host) handleMemberEvent(ctx context.Context, evt *event.Event) {
	content, ok := evt.Content.Parsed.(*event.MemberEventContent)
	if !ok {
		return
	}
	if content.Membership != event.MembershipLeave {
		return
	}

	binding, err := h.store.GetEntryByRoomID(ctx, string(evt.RoomID))
	if err != nil {
		h.logger.Error("binding lookup failed", "room_id", evt.RoomID, "error", err)
		return
	}
	if binding == nil {
		return
	}

	roomEvent := roomEventFrom(evt)
	roomEvent.Membership = string(content.Membership)

	h.membership.OnParticipantLeft(ctx, roomEvent, models.HandlerContext{
		Sender:  string(evt.Sender),
		Binding: *binding,
	})
}

// roomEventFrom converts a raw Matrix event into the core's event shape.
func roomEventFrom(evt *event.Event) models.RoomEvent {
	return models.RoomEvent{
		ID:        string(evt.ID),
		RoomID:    string(evt.RoomID),
		Sender:    string(evt.Sender),
		Type:      evt.Type.Type,
		Content:   evt.Content.Raw,
		Timestamp: time.UnixMilli(evt.Timestamp),
	}
}
