// Package roomstore persists timeline bindings and the per-principal
// timeline room fast-lookup records.
package roomstore

import (
	"context"

	"github.com/birdbridge/birdbridge/pkg/models"
)

// Store is the persistence contract for timeline bindings. A nil binding
// with a nil error from the getters means no matching entry exists.
type Store interface {
	// UpsertEntry inserts or replaces the binding keyed by its remote ID.
	UpsertEntry(ctx context.Context, binding *models.TimelineBinding) error

	// GetEntryByRemoteID returns the binding with the given remote room ID.
	GetEntryByRemoteID(ctx context.Context, remoteID string) (*models.TimelineBinding, error)

	// GetEntryByRoomID returns the binding for the given Matrix room.
	GetEntryByRoomID(ctx context.Context, roomID string) (*models.TimelineBinding, error)

	// ListEntries returns all live bindings.
	ListEntries(ctx context.Context) ([]*models.TimelineBinding, error)

	// RemoveEntriesByRemoteRoomData removes all entries whose remote data
	// matches the given remote ID, kind and external user ID.
	RemoveEntriesByRemoteRoomData(ctx context.Context, remote models.RemoteRoomData) error

	// SetTimelineRoomRecord records the timeline room owned by a principal.
	SetTimelineRoomRecord(ctx context.Context, principal, roomID string) error

	// GetTimelineRoom returns the room ID recorded for a principal, or ""
	// if no record exists.
	GetTimelineRoom(ctx context.Context, principal string) (string, error)

	// RemoveTimelineRoomRecord removes the principal's record. Removing a
	// record that does not exist is not an error.
	RemoveTimelineRoomRecord(ctx context.Context, principal string) error

	// Close releases the underlying resources.
	Close() error
}
