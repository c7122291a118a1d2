package models

import (
	"fmt"
	"time"
)

// RoomEvent is the bridge's view of a Matrix room event. The hosting layer
// converts raw events into this shape and validates required fields before
// dispatching into the core handlers.
type RoomEvent struct {
	ID         string         `json:"event_id"`
	RoomID     string         `json:"room_id"`
	Sender     string         `json:"sender"`
	Type       string         `json:"type"`
	Body       string         `json:"body,omitempty"`
	Membership string         `json:"membership,omitempty"`
	Content    map[string]any `json:"content,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Validate checks the fields every handler depends on.
func (e RoomEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("room event: event_id is required")
	}
	if e.RoomID == "" {
		return fmt.Errorf("room event: room_id is required")
	}
	if e.Sender == "" {
		return fmt.Errorf("room event: sender is required")
	}
	if e.Type == "" {
		return fmt.Errorf("room event: type is required")
	}
	return nil
}

// HandlerContext carries the resolved binding for an inbound event.
type HandlerContext struct {
	// Sender is the Matrix principal the event is attributed to.
	Sender string

	// Binding is the timeline binding of the room the event arrived in.
	Binding TimelineBinding
}

// Validate checks the fields the membership and relay handlers depend on.
func (c HandlerContext) Validate() error {
	if c.Sender == "" {
		return fmt.Errorf("handler context: sender is required")
	}
	if c.Binding.Remote.RemoteID == "" {
		return fmt.Errorf("handler context: remote binding data is required")
	}
	return nil
}
