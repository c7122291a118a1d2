package twitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/birdbridge/birdbridge/pkg/models"
)

func newTestPoster(t *testing.T, handler http.Handler) *Poster {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	poster, err := NewPoster(context.Background(), PosterConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewPoster() error = %v", err)
	}
	return poster
}

func timelineRemote() models.RemoteRoomData {
	return models.RemoteRoomData{
		RemoteID:       "timeline_42",
		Kind:           models.KindUserTimeline,
		ExternalUserID: "42",
		OwnerPrincipal: "@_twitter_42:example.com",
	}
}

func TestPostAsExternalMessage(t *testing.T) {
	var gotText string
	poster := newTestPoster(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		gotText = payload["text"]
		w.WriteHeader(http.StatusCreated)
	}))

	evt := models.RoomEvent{ID: "$msg", RoomID: "!room:example.com", Sender: "@bob:example.com", Type: "m.room.message", Body: "hello"}
	if err := poster.PostAsExternalMessage(context.Background(), evt, "@bob:example.com", timelineRemote()); err != nil {
		t.Fatalf("PostAsExternalMessage() error = %v", err)
	}
	if gotText != "hello" {
		t.Errorf("posted text = %q, want %q", gotText, "hello")
	}
}

func TestPostAsExternalMessageBodyFromContent(t *testing.T) {
	var gotText string
	poster := newTestPoster(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		gotText = payload["text"]
		w.WriteHeader(http.StatusCreated)
	}))

	evt := models.RoomEvent{
		ID:      "$msg",
		RoomID:  "!room:example.com",
		Sender:  "@bob:example.com",
		Type:    "m.room.message",
		Content: map[string]any{"body": "from content"},
	}
	if err := poster.PostAsExternalMessage(context.Background(), evt, "@bob:example.com", timelineRemote()); err != nil {
		t.Fatalf("PostAsExternalMessage() error = %v", err)
	}
	if gotText != "from content" {
		t.Errorf("posted text = %q, want %q", gotText, "from content")
	}
}

func TestPostAsExternalMessageEmptyBodySkipped(t *testing.T) {
	called := false
	poster := newTestPoster(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	evt := models.RoomEvent{ID: "$msg", RoomID: "!room:example.com", Sender: "@bob:example.com", Type: "m.room.message"}
	if err := poster.PostAsExternalMessage(context.Background(), evt, "@bob:example.com", timelineRemote()); err != nil {
		t.Fatalf("PostAsExternalMessage() error = %v", err)
	}
	if called {
		t.Error("empty messages must not hit the API")
	}
}

func TestPostAsExternalMessageRejectedStatus(t *testing.T) {
	poster := newTestPoster(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate tweet", http.StatusForbidden)
	}))

	evt := models.RoomEvent{ID: "$msg", RoomID: "!room:example.com", Sender: "@bob:example.com", Type: "m.room.message", Body: "hello"}
	if err := poster.PostAsExternalMessage(context.Background(), evt, "@bob:example.com", timelineRemote()); err == nil {
		t.Fatal("expected an error for a rejected post")
	}
}

func TestPosterConfigValidate(t *testing.T) {
	cfg := PosterConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error without a user token")
	}

	cfg = PosterConfig{UserToken: "tok"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if cfg.BaseURL == "" {
		t.Error("expected a default base URL")
	}
}
