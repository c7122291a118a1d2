package roomstore

import (
	"context"
	"sync"
	"time"

	"github.com/birdbridge/birdbridge/pkg/models"
)

// MemoryStore is an in-memory implementation of the room store.
type MemoryStore struct {
	mu sync.RWMutex

	// entries maps remote_id -> binding
	entries map[string]*models.TimelineBinding

	// timelineRooms maps principal -> room_id for fast lookup
	timelineRooms map[string]string
}

// NewMemoryStore creates a new in-memory room store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:       make(map[string]*models.TimelineBinding),
		timelineRooms: make(map[string]string),
	}
}

// UpsertEntry inserts or replaces the binding keyed by its remote ID.
func (s *MemoryStore) UpsertEntry(ctx context.Context, binding *models.TimelineBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	clone := *binding
	if existing, ok := s.entries[binding.Remote.RemoteID]; ok {
		clone.CreatedAt = existing.CreatedAt
	} else {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now

	s.entries[binding.Remote.RemoteID] = &clone
	return nil
}

// GetEntryByRemoteID returns the binding with the given remote room ID.
func (s *MemoryStore) GetEntryByRemoteID(ctx context.Context, remoteID string) (*models.TimelineBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	binding, ok := s.entries[remoteID]
	if !ok {
		return nil, nil
	}
	clone := *binding
	return &clone, nil
}

// GetEntryByRoomID returns the binding for the given Matrix room.
func (s *MemoryStore) GetEntryByRoomID(ctx context.Context, roomID string) (*models.TimelineBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, binding := range s.entries {
		if binding.RoomID == roomID {
			clone := *binding
			return &clone, nil
		}
	}
	return nil, nil
}

// ListEntries returns all live bindings.
func (s *MemoryStore) ListEntries(ctx context.Context) ([]*models.TimelineBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.TimelineBinding, 0, len(s.entries))
	for _, binding := range s.entries {
		clone := *binding
		out = append(out, &clone)
	}
	return out, nil
}

// RemoveEntriesByRemoteRoomData removes all entries matching the remote data.
func (s *MemoryStore) RemoveEntriesByRemoteRoomData(ctx context.Context, remote models.RemoteRoomData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, binding := range s.entries {
		if binding.Remote.RemoteID == remote.RemoteID &&
			binding.Remote.Kind == remote.Kind &&
			binding.Remote.ExternalUserID == remote.ExternalUserID {
			delete(s.entries, id)
		}
	}
	return nil
}

// SetTimelineRoomRecord records the timeline room owned by a principal.
func (s *MemoryStore) SetTimelineRoomRecord(ctx context.Context, principal, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timelineRooms[principal] = roomID
	return nil
}

// GetTimelineRoom returns the room ID recorded for a principal.
func (s *MemoryStore) GetTimelineRoom(ctx context.Context, principal string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.timelineRooms[principal], nil
}

// RemoveTimelineRoomRecord removes the principal's record.
func (s *MemoryStore) RemoveTimelineRoomRecord(ctx context.Context, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.timelineRooms, principal)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
