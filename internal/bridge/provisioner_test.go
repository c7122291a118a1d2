package bridge

import (
	"context"
	"strings"
	"testing"

	"github.com/birdbridge/birdbridge/pkg/models"
)

func aliceProfile() *models.Profile {
	return &models.Profile{
		ID:              "42",
		ScreenName:      "alice",
		Name:            "Alice Example",
		Description:     "just tweeting",
		ProfileImageURL: "http://x/img.png",
		Protected:       false,
	}
}

func TestResolveProvisioningRequestNotFound(t *testing.T) {
	rec := newRecorder()
	provisioner, err := NewRoomProvisioner(testServices(rec))
	if err != nil {
		t.Fatalf("NewRoomProvisioner() error = %v", err)
	}

	room, err := provisioner.ResolveProvisioningRequest(context.Background(), "nobody")
	if err == nil {
		t.Fatal("expected error for unknown alias")
	}
	if CodeOf(err) != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, CodeOf(err))
	}
	if room != nil {
		t.Errorf("expected no room description, got %+v", room)
	}
}

func TestResolveProvisioningRequestProtected(t *testing.T) {
	rec := newRecorder()
	profile := aliceProfile()
	profile.Protected = true
	rec.profiles["alice"] = profile

	provisioner, err := NewRoomProvisioner(testServices(rec))
	if err != nil {
		t.Fatalf("NewRoomProvisioner() error = %v", err)
	}

	room, err := provisioner.ResolveProvisioningRequest(context.Background(), "alice")
	if err == nil {
		t.Fatal("expected error for protected account")
	}
	if CodeOf(err) != ErrCodeProtected {
		t.Errorf("expected code %s, got %s", ErrCodeProtected, CodeOf(err))
	}
	if room != nil {
		t.Errorf("expected no room description, got %+v", room)
	}
	if len(rec.uploads) != 0 {
		t.Errorf("asset stager must not be called for protected accounts, got %v", rec.uploads)
	}
	for _, call := range rec.calls {
		if strings.HasPrefix(call, "upload_asset:") {
			t.Errorf("asset stager must not be called for protected accounts, got call %s", call)
		}
	}
}

func TestResolveProvisioningRequestUploadFailure(t *testing.T) {
	rec := newRecorder()
	rec.profiles["alice"] = aliceProfile()
	rec.uploadErr = errBoom

	provisioner, err := NewRoomProvisioner(testServices(rec))
	if err != nil {
		t.Fatalf("NewRoomProvisioner() error = %v", err)
	}

	room, err := provisioner.ResolveProvisioningRequest(context.Background(), "alice")
	if err == nil {
		t.Fatal("expected error for failed upload")
	}
	if CodeOf(err) != ErrCodeUpload {
		t.Errorf("expected code %s, got %s", ErrCodeUpload, CodeOf(err))
	}
	if room != nil {
		t.Errorf("expected no room description, got %+v", room)
	}
}

func TestResolveProvisioningRequestSuccess(t *testing.T) {
	rec := newRecorder()
	rec.profiles["alice"] = aliceProfile()

	provisioner, err := NewRoomProvisioner(testServices(rec))
	if err != nil {
		t.Fatalf("NewRoomProvisioner() error = %v", err)
	}

	room, err := provisioner.ResolveProvisioningRequest(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ResolveProvisioningRequest() error = %v", err)
	}

	creation := room.Creation
	if creation.Visibility != "public" {
		t.Errorf("expected public visibility, got %q", creation.Visibility)
	}
	if !strings.Contains(creation.AliasLocalPart, "alice") {
		t.Errorf("alias local part %q does not contain the requested alias", creation.AliasLocalPart)
	}
	if creation.Name != "[Twitter] Alice Example" {
		t.Errorf("unexpected room name %q", creation.Name)
	}
	if !strings.HasSuffix(creation.Topic, "https://twitter.com/alice") {
		t.Errorf("topic %q does not end in the profile link", creation.Topic)
	}

	owner := "@_twitter_42:example.com"
	if len(creation.Invite) != 1 || creation.Invite[0] != owner {
		t.Errorf("expected invite list [%s], got %v", owner, creation.Invite)
	}

	if len(creation.PowerLevels) != 2 {
		t.Fatalf("expected exactly two power level entries, got %v", creation.PowerLevels)
	}
	if creation.PowerLevels["@twitterbot:example.com"] != 100 {
		t.Errorf("expected service principal at 100, got %d", creation.PowerLevels["@twitterbot:example.com"])
	}
	if creation.PowerLevels[owner] != 75 {
		t.Errorf("expected owner principal at 75, got %d", creation.PowerLevels[owner])
	}

	remote := room.Remote
	if remote.Kind != models.KindUserTimeline {
		t.Errorf("expected kind %s, got %s", models.KindUserTimeline, remote.Kind)
	}
	if remote.ExternalUserID != "42" {
		t.Errorf("expected external user id 42, got %s", remote.ExternalUserID)
	}
	if remote.OwnerPrincipal != owner {
		t.Errorf("expected owner %s, got %s", owner, remote.OwnerPrincipal)
	}
	if remote.Bidirectional {
		t.Error("timeline bindings must not be bidirectional")
	}
	if remote.RemoteID != "timeline_42" {
		t.Errorf("expected remote id timeline_42, got %s", remote.RemoteID)
	}

	var foundState []string
	for _, state := range creation.InitialState {
		foundState = append(foundState, state.Type)
	}
	for _, want := range []string{"m.room.join_rules", ProfileStateType, "m.room.avatar"} {
		ok := false
		for _, got := range foundState {
			if got == want {
				ok = true
			}
		}
		if !ok {
			t.Errorf("initial state missing %s, got %v", want, foundState)
		}
	}

	if len(rec.uploads) != 1 || rec.uploads[0] != "http://x/img.png" {
		t.Errorf("expected one staged asset for the profile image, got %v", rec.uploads)
	}
	if len(rec.upserts) != 0 {
		t.Errorf("resolution must not persist anything, got %d upserts", len(rec.upserts))
	}
}
