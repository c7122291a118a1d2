package models

// StateEvent is one initial state event in a room creation description.
type StateEvent struct {
	Type     string         `json:"type"`
	StateKey string         `json:"state_key"`
	Content  map[string]any `json:"content"`
}

// RoomCreationDescription describes the room the provisioning host should
// create for a resolved alias. The core produces it; the host turns it into
// an actual create-room request.
type RoomCreationDescription struct {
	Visibility     string         `json:"visibility"`
	AliasLocalPart string         `json:"alias_local_part"`
	Name           string         `json:"name"`
	Topic          string         `json:"topic"`
	Invite         []string       `json:"invite"`
	PowerLevels    map[string]int `json:"power_levels"`
	InitialState   []StateEvent   `json:"initial_state"`
}

// ProvisionedRoom is the result of resolving an alias provisioning request:
// the creation description plus the remote binding the new room will carry.
type ProvisionedRoom struct {
	Creation RoomCreationDescription
	Remote   RemoteRoomData
	Display  DisplayMetadata
}
