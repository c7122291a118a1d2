package models

import "testing"

func TestTimelineOwnerPrincipal(t *testing.T) {
	got := TimelineOwnerPrincipal("12345", "example.com")
	want := "@_twitter_12345:example.com"
	if got != want {
		t.Errorf("TimelineOwnerPrincipal() = %q, want %q", got, want)
	}
}

func TestTimelineRemoteID(t *testing.T) {
	got := TimelineRemoteID("12345")
	if got != "timeline_12345" {
		t.Errorf("TimelineRemoteID() = %q, want %q", got, "timeline_12345")
	}
}

func TestProfileURL(t *testing.T) {
	p := Profile{ScreenName: "alice"}
	if got := p.ProfileURL(); got != "https://twitter.com/alice" {
		t.Errorf("ProfileURL() = %q, want %q", got, "https://twitter.com/alice")
	}
}

func TestRoomEventValidate(t *testing.T) {
	valid := RoomEvent{ID: "$e", RoomID: "!r:example.com", Sender: "@u:example.com", Type: "m.room.message"}

	tests := []struct {
		name    string
		mutate  func(*RoomEvent)
		wantErr bool
	}{
		{"valid", func(e *RoomEvent) {}, false},
		{"missing id", func(e *RoomEvent) { e.ID = "" }, true},
		{"missing room", func(e *RoomEvent) { e.RoomID = "" }, true},
		{"missing sender", func(e *RoomEvent) { e.Sender = "" }, true},
		{"missing type", func(e *RoomEvent) { e.Type = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := valid
			tt.mutate(&evt)
			err := evt.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandlerContextValidate(t *testing.T) {
	valid := HandlerContext{
		Sender: "@u:example.com",
		Binding: TimelineBinding{
			Remote: RemoteRoomData{RemoteID: "timeline_42"},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	noSender := valid
	noSender.Sender = ""
	if err := noSender.Validate(); err == nil {
		t.Error("expected error for missing sender")
	}

	noBinding := valid
	noBinding.Binding = TimelineBinding{}
	if err := noBinding.Validate(); err == nil {
		t.Error("expected error for missing binding data")
	}
}
