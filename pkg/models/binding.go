package models

import (
	"fmt"
	"time"
)

// BindingKind classifies what a remote binding mirrors on the Twitter side.
// New kinds (hashtag feeds, list feeds) can be added without touching the
// binding plumbing; the kind is fixed at creation and never changes.
type BindingKind string

const (
	// KindUserTimeline mirrors a single account's public timeline.
	KindUserTimeline BindingKind = "user_timeline"
)

// RemoteRoomData identifies the Twitter side of a binding. It is the key the
// room store matches on when entries are removed.
type RemoteRoomData struct {
	// RemoteID is the stable remote room identifier, e.g. "timeline_12345".
	RemoteID string `json:"remote_id"`

	// Kind is fixed at creation.
	Kind BindingKind `json:"kind"`

	// ExternalUserID is the opaque Twitter user ID (id_str, not screen name).
	ExternalUserID string `json:"external_user_id"`

	// OwnerPrincipal is the Matrix identity entitled to administer the
	// bound room. Fixed at creation.
	OwnerPrincipal string `json:"owner_principal"`

	// Bidirectional is fixed at creation. Timeline bindings are read-only
	// from the Twitter side, so this is currently always false.
	Bidirectional bool `json:"bidirectional"`
}

// DisplayMetadata is a denormalized snapshot of the external profile. It is
// refreshed opportunistically and is not authoritative.
type DisplayMetadata struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	AvatarMXC   string `json:"avatar_mxc,omitempty"`
}

// TimelineBinding links one external account to one bridged room. Exactly one
// live binding exists per (ExternalUserID, Kind) pair; RoomID is set once, at
// creation completion, and never changes.
type TimelineBinding struct {
	RoomID    string          `json:"room_id"`
	Remote    RemoteRoomData  `json:"remote"`
	Display   DisplayMetadata `json:"display"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TimelineOwnerPrincipal derives the Matrix user ID that owns the timeline
// room for the given Twitter user ID.
func TimelineOwnerPrincipal(externalUserID, domain string) string {
	return fmt.Sprintf("@_twitter_%s:%s", externalUserID, domain)
}

// TimelineRemoteID derives the remote room identifier for a user timeline.
func TimelineRemoteID(externalUserID string) string {
	return "timeline_" + externalUserID
}
