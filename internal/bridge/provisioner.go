package bridge

import (
	"context"
	"log/slog"

	"github.com/birdbridge/birdbridge/pkg/models"
	"github.com/google/uuid"
)

// Power levels granted in a freshly provisioned timeline room. The owner
// gets moderation rights without being able to demote the bridge service.
const (
	servicePowerLevel = 100
	ownerPowerLevel   = 75
)

// ProfileStateType is the custom state event type carrying the read-only
// profile snapshot embedded at room creation.
const ProfileStateType = "org.matrix.twitter.data"

// RoomProvisioner resolves alias provisioning requests into room creation
// descriptions. It is pure with respect to persistent state except for the
// avatar asset upload; the actual room is created by the provisioning host.
type RoomProvisioner struct {
	services *Services
	logger   *slog.Logger
}

// NewRoomProvisioner creates a room provisioner.
func NewRoomProvisioner(services *Services) (*RoomProvisioner, error) {
	if err := services.Validate(); err != nil {
		return nil, err
	}
	if services.Profiles == nil {
		return nil, ErrConfig("profile source is required", nil)
	}
	if services.Assets == nil {
		return nil, ErrConfig("asset stager is required", nil)
	}
	return &RoomProvisioner{
		services: services,
		logger:   services.Logger.With("component", "provisioner"),
	}, nil
}

// ResolveProvisioningRequest resolves the alias fragment after the global
// alias prefix into a provisioned room description.
//
// The account must exist and must not be protected. On success the account's
// avatar has been staged in the content repository; nothing else has been
// persisted.
func (p *RoomProvisioner) ResolveProvisioningRequest(ctx context.Context, aliasLocalPart string) (*models.ProvisionedRoom, error) {
	logger := p.logger.With("alias", aliasLocalPart, "request_id", uuid.NewString())
	logger.Info("looking up alias")

	room, err := p.resolve(ctx, aliasLocalPart, logger)
	if err != nil {
		p.services.Metrics.ProvisioningFailures.WithLabelValues(string(CodeOf(err))).Inc()
		logger.Error("could not provision timeline room", "error", err)
		return nil, err
	}

	p.services.Metrics.RoomsProvisioned.Inc()
	return room, nil
}

func (p *RoomProvisioner) resolve(ctx context.Context, alias string, logger *slog.Logger) (*models.ProvisionedRoom, error) {
	profile, err := p.services.Profiles.GetProfileByScreenName(ctx, alias)
	if err != nil {
		return nil, ErrInternal("profile lookup failed", err)
	}
	if profile == nil {
		return nil, ErrNotFound("user "+alias+" was not found", nil)
	}
	if profile.Protected {
		logger.Warn("account is protected, refusing to provision", "screen_name", profile.ScreenName)
		return nil, ErrProtected(profile.ScreenName+" is a protected account, so we can't read from it", nil)
	}

	logger.Info("user found, staging profile image", "twitter_user", profile.ID)
	avatar, err := p.services.Assets.UploadAsset(ctx, profile.ProfileImageURL)
	if err != nil {
		return nil, ErrUpload("could not stage profile image", err)
	}

	logger.Info("constructing timeline room", "twitter_user", profile.ID)
	return p.constructTimelineRoom(*profile, alias, avatar), nil
}

// constructTimelineRoom builds the creation description for one user's
// timeline room. The owner of the timeline receives power 75, the bridge
// service 100.
func (p *RoomProvisioner) constructTimelineRoom(profile models.Profile, alias, avatarMXC string) *models.ProvisionedRoom {
	serviceID := p.services.Rooms.ServiceIdentity()
	owner := models.TimelineOwnerPrincipal(profile.ID, p.services.Domain)

	topic := profile.Description + " | " + profile.ProfileURL()

	return &models.ProvisionedRoom{
		Creation: models.RoomCreationDescription{
			Visibility:     "public",
			AliasLocalPart: "_twitter_@" + alias,
			Name:           "[Twitter] " + profile.Name,
			Topic:          topic,
			Invite:         []string{owner},
			PowerLevels: map[string]int{
				serviceID: servicePowerLevel,
				owner:     ownerPowerLevel,
			},
			InitialState: []models.StateEvent{
				{
					Type:    "m.room.join_rules",
					Content: map[string]any{"join_rule": "public"},
				},
				{
					Type:    ProfileStateType,
					Content: profile.StateContent(),
				},
				{
					Type:    "m.room.avatar",
					Content: map[string]any{"url": avatarMXC},
				},
			},
		},
		Remote: models.RemoteRoomData{
			RemoteID:       models.TimelineRemoteID(profile.ID),
			Kind:           models.KindUserTimeline,
			ExternalUserID: profile.ID,
			OwnerPrincipal: owner,
			Bidirectional:  false,
		},
		Display: models.DisplayMetadata{
			Name:        profile.Name,
			Description: profile.Description,
			AvatarMXC:   avatarMXC,
		},
	}
}
