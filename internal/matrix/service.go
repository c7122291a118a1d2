// Package matrix hosts the bridge core on a Matrix homeserver: it owns the
// mautrix client, translates room creation descriptions into create-room
// requests, stages media, and feeds sync events into the core handlers.
package matrix

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/birdbridge/birdbridge/internal/twitter"
	"github.com/birdbridge/birdbridge/pkg/models"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// maxAvatarBytes bounds how much of a profile image we will stage.
const maxAvatarBytes = 4 << 20

// Service wraps the mautrix client with the room operations, media staging
// and tweet delivery the bridge needs.
type Service struct {
	config *Config
	client *mautrix.Client
	http   *http.Client
	logger *slog.Logger
}

// NewService creates the Matrix service.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}

	return &Service{
		config: &cfg,
		client: client,
		http:   http.DefaultClient,
		logger: cfg.Logger.With("component", "matrix"),
	}, nil
}

// ServiceIdentity returns the bridge service's Matrix user ID.
func (s *Service) ServiceIdentity() string {
	return s.config.UserID
}

// Domain returns the homeserver domain for derived principals.
func (s *Service) Domain() string {
	return s.config.Domain
}

// LeaveRoom makes the service identity leave the given room.
func (s *Service) LeaveRoom(ctx context.Context, roomID string) error {
	if _, err := s.client.LeaveRoom(ctx, id.RoomID(roomID)); err != nil {
		return fmt.Errorf("leave room %s: %w", roomID, err)
	}
	return nil
}

// CreateRoom creates a room from the description produced by the core and
// returns the new room ID. Alias uniqueness on the homeserver is what makes
// provisioning at-most-once: two racing requests for the same alias cannot
// both create a room.
func (s *Service) CreateRoom(ctx context.Context, desc models.RoomCreationDescription) (string, error) {
	req := &mautrix.ReqCreateRoom{
		Visibility:    desc.Visibility,
		RoomAliasName: desc.AliasLocalPart,
		Name:          desc.Name,
		Topic:         desc.Topic,
	}

	for _, user := range desc.Invite {
		req.Invite = append(req.Invite, id.UserID(user))
	}

	if len(desc.PowerLevels) > 0 {
		levels := &event.PowerLevelsEventContent{
			Users: make(map[id.UserID]int, len(desc.PowerLevels)),
		}
		for user, level := range desc.PowerLevels {
			levels.Users[id.UserID(user)] = level
		}
		req.PowerLevelOverride = levels
	}

	for _, state := range desc.InitialState {
		stateKey := state.StateKey
		req.InitialState = append(req.InitialState, &event.Event{
			Type:     event.NewEventType(state.Type),
			StateKey: &stateKey,
			Content:  event.Content{Raw: state.Content},
		})
	}

	resp, err := s.client.CreateRoom(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create room for alias %s: %w", desc.AliasLocalPart, err)
	}

	s.logger.Info("created timeline room",
		"room_id", resp.RoomID,
		"alias", desc.AliasLocalPart)
	return string(resp.RoomID), nil
}

// UploadAsset downloads the source URL and stages it in the Matrix content
// repository, returning the mxc reference.
func (s *Service) UploadAsset(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch asset %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch asset %s: status %d", sourceURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		return "", fmt.Errorf("read asset %s: %w", sourceURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	upload, err := s.client.UploadBytes(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload asset %s: %w", sourceURL, err)
	}

	return upload.ContentURI.String(), nil
}

// SendNotice posts a plain notice into a room.
func (s *Service) SendNotice(ctx context.Context, roomID, text string) error {
	content := &event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    text,
	}
	if _, err := s.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, content); err != nil {
		return fmt.Errorf("send notice to %s: %w", roomID, err)
	}
	return nil
}

// DeliverTweet posts a tweet into a bridged room as a notice.
func (s *Service) DeliverTweet(ctx context.Context, roomID string, tweet twitter.Tweet) error {
	content := &event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    fmt.Sprintf("%s (@%s): %s", tweet.User.Name, tweet.User.ScreenName, tweet.Body()),
	}

	if _, err := s.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, content); err != nil {
		return fmt.Errorf("deliver tweet to %s: %w", roomID, err)
	}
	return nil
}

// Healthy reports whether the homeserver answers for our identity.
func (s *Service) Healthy(ctx context.Context) bool {
	_, err := s.client.Whoami(ctx)
	return err == nil
}
