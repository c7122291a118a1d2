package roomstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/birdbridge/birdbridge/pkg/models"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SQLiteStore persists bindings in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Path to the database file. Empty means an in-memory database.
	Path string
}

const schema = `
CREATE TABLE IF NOT EXISTS bindings (
	remote_id           TEXT PRIMARY KEY,
	kind                TEXT NOT NULL,
	external_user_id    TEXT NOT NULL,
	owner_principal     TEXT NOT NULL,
	bidirectional       INTEGER NOT NULL DEFAULT 0,
	room_id             TEXT NOT NULL,
	display_name        TEXT NOT NULL DEFAULT '',
	display_description TEXT NOT NULL DEFAULT '',
	display_avatar      TEXT NOT NULL DEFAULT '',
	created_at          INTEGER NOT NULL,
	updated_at          INTEGER NOT NULL,
	UNIQUE (external_user_id, kind)
);

CREATE TABLE IF NOT EXISTS timeline_rooms (
	principal TEXT PRIMARY KEY,
	room_id   TEXT NOT NULL
);
`

// NewSQLiteStore opens (and if necessary initializes) a SQLite room store.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The modernc driver is not safe for concurrent writes over multiple
	// connections to the same file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// UpsertEntry inserts or replaces the binding keyed by its remote ID.
// The unique index on (external_user_id, kind) backs the at-most-one-binding
// invariant: a lost provisioning race surfaces as a constraint error here
// instead of a duplicate binding.
func (s *SQLiteStore) UpsertEntry(ctx context.Context, binding *models.TimelineBinding) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bindings (
			remote_id, kind, external_user_id, owner_principal, bidirectional,
			room_id, display_name, display_description, display_avatar,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (remote_id) DO UPDATE SET
			room_id = excluded.room_id,
			display_name = excluded.display_name,
			display_description = excluded.display_description,
			display_avatar = excluded.display_avatar,
			updated_at = excluded.updated_at`,
		binding.Remote.RemoteID,
		string(binding.Remote.Kind),
		binding.Remote.ExternalUserID,
		binding.Remote.OwnerPrincipal,
		boolToInt(binding.Remote.Bidirectional),
		binding.RoomID,
		binding.Display.Name,
		binding.Display.Description,
		binding.Display.AvatarMXC,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert binding %s: %w", binding.Remote.RemoteID, err)
	}
	return nil
}

// GetEntryByRemoteID returns the binding with the given remote room ID.
func (s *SQLiteStore) GetEntryByRemoteID(ctx context.Context, remoteID string) (*models.TimelineBinding, error) {
	row := s.db.QueryRowContext(ctx, selectBindings+" WHERE remote_id = ?", remoteID)
	return scanBinding(row)
}

// GetEntryByRoomID returns the binding for the given Matrix room.
func (s *SQLiteStore) GetEntryByRoomID(ctx context.Context, roomID string) (*models.TimelineBinding, error) {
	row := s.db.QueryRowContext(ctx, selectBindings+" WHERE room_id = ?", roomID)
	return scanBinding(row)
}

// ListEntries returns all live bindings.
func (s *SQLiteStore) ListEntries(ctx context.Context) ([]*models.TimelineBinding, error) {
	rows, err := s.db.QueryContext(ctx, selectBindings+" ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()

	var out []*models.TimelineBinding
	for rows.Next() {
		binding, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, binding)
	}
	return out, rows.Err()
}

// RemoveEntriesByRemoteRoomData removes all entries matching the remote data.
func (s *SQLiteStore) RemoveEntriesByRemoteRoomData(ctx context.Context, remote models.RemoteRoomData) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM bindings
		WHERE remote_id = ? AND kind = ? AND external_user_id = ?`,
		remote.RemoteID, string(remote.Kind), remote.ExternalUserID,
	)
	if err != nil {
		return fmt.Errorf("remove bindings for %s: %w", remote.RemoteID, err)
	}
	return nil
}

// SetTimelineRoomRecord records the timeline room owned by a principal.
func (s *SQLiteStore) SetTimelineRoomRecord(ctx context.Context, principal, roomID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timeline_rooms (principal, room_id) VALUES (?, ?)
		ON CONFLICT (principal) DO UPDATE SET room_id = excluded.room_id`,
		principal, roomID,
	)
	if err != nil {
		return fmt.Errorf("set timeline room for %s: %w", principal, err)
	}
	return nil
}

// GetTimelineRoom returns the room ID recorded for a principal.
func (s *SQLiteStore) GetTimelineRoom(ctx context.Context, principal string) (string, error) {
	var roomID string
	err := s.db.QueryRowContext(ctx,
		"SELECT room_id FROM timeline_rooms WHERE principal = ?", principal,
	).Scan(&roomID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get timeline room for %s: %w", principal, err)
	}
	return roomID, nil
}

// RemoveTimelineRoomRecord removes the principal's record.
func (s *SQLiteStore) RemoveTimelineRoomRecord(ctx context.Context, principal string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM timeline_rooms WHERE principal = ?", principal,
	)
	if err != nil {
		return fmt.Errorf("remove timeline room for %s: %w", principal, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectBindings = `
	SELECT remote_id, kind, external_user_id, owner_principal, bidirectional,
	       room_id, display_name, display_description, display_avatar,
	       created_at, updated_at
	FROM bindings`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBinding(row rowScanner) (*models.TimelineBinding, error) {
	var (
		binding       models.TimelineBinding
		kind          string
		bidirectional int
		createdAt     int64
		updatedAt     int64
	)
	err := row.Scan(
		&binding.Remote.RemoteID,
		&kind,
		&binding.Remote.ExternalUserID,
		&binding.Remote.OwnerPrincipal,
		&bidirectional,
		&binding.RoomID,
		&binding.Display.Name,
		&binding.Display.Description,
		&binding.Display.AvatarMXC,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan binding: %w", err)
	}
	binding.Remote.Kind = models.BindingKind(kind)
	binding.Remote.Bidirectional = bidirectional != 0
	binding.CreatedAt = time.Unix(createdAt, 0)
	binding.UpdatedAt = time.Unix(updatedAt, 0)
	return &binding, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
