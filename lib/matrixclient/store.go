// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrixclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/Gregoor/matrix-neo/lib/codec"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/sealed"
	"github.com/Gregoor/matrix-neo/lib/sqlitepool"
	"github.com/Gregoor/matrix-neo/messaging"
)

// storeSchema is applied on every connection. Every BLOB column holds
// age ciphertext of a CBOR value.
const storeSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS sync_token (
	id    INTEGER PRIMARY KEY CHECK (id = 1),
	since BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS rooms (
	room_id TEXT PRIMARY KEY,
	summary BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	room_id  TEXT NOT NULL,
	position INTEGER NOT NULL,
	event_id TEXT NOT NULL,
	payload  BLOB NOT NULL,
	PRIMARY KEY (room_id, position)
);
`

const ownerKey = "owner"

var errNoSealer = errors.New("matrixclient: store is not unlocked")

// roomSummary is the persisted form of a room's name inputs.
type roomSummary struct {
	Name    string            `json:"name,omitempty"`
	Alias   string            `json:"alias,omitempty"`
	Heroes  []ref.UserID      `json:"heroes,omitempty"`
	Members map[string]Member `json:"members,omitempty"`
}

type positionedEvent struct {
	Position int64
	Event    messaging.Event
}

// roomWrite is one room's share of a persisted sync response.
type roomWrite struct {
	Summary roomSummary
	// Reset deletes every stored event before Appended is written.
	Reset    bool
	Appended []positionedEvent
	// KeepFrom deletes stored events with a lower position.
	KeepFrom int64
}

// syncWrite is everything one /sync response changes on disk.
type syncWrite struct {
	Since   string
	Rooms   map[ref.RoomID]roomWrite
	Removed []ref.RoomID
}

// cachedState is what restore reads back.
type cachedState struct {
	Since  string
	Rooms  map[ref.RoomID]roomSummary
	Events map[ref.RoomID][]positionedEvent
}

// store persists the sync cache in sqlite, sealed with the client's
// age identity.
type store struct {
	pool   *sqlitepool.Pool
	sealer *sealed.Sealer
	logger *slog.Logger
}

func openStore(path string, logger *slog.Logger) (*store, error) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   path,
		Schema: storeSchema,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return &store{pool: pool, logger: logger}, nil
}

func (s *store) close() error {
	return s.pool.Close()
}

func (s *store) seal(v any) ([]byte, error) {
	if s.sealer == nil {
		return nil, errNoSealer
	}
	plaintext, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("matrixclient: encoding: %w", err)
	}
	return s.sealer.Seal(plaintext)
}

func (s *store) open(ciphertext []byte, v any) error {
	if s.sealer == nil {
		return errNoSealer
	}
	plaintext, err := s.sealer.Open(ciphertext)
	if err != nil {
		return err
	}
	if err := codec.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("matrixclient: decoding: %w", err)
	}
	return nil
}

// unlock installs sealer and checks that the cache belongs to owner. A
// cache written for another user, or under another key, is wiped. It
// reports whether a wipe happened.
func (s *store) unlock(ctx context.Context, sealer *sealed.Sealer, owner ref.UserID) (wiped bool, err error) {
	s.sealer = sealer

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, err
	}
	defer s.pool.Put(conn)

	var stored []byte
	err = sqlitex.Execute(conn, "SELECT value FROM meta WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{ownerKey},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			stored = columnBytes(stmt, 0)
			return nil
		},
	})
	if err != nil {
		return false, fmt.Errorf("matrixclient: reading store owner: %w", err)
	}

	if stored != nil {
		var storedOwner ref.UserID
		openErr := s.open(stored, &storedOwner)
		if openErr == nil && storedOwner == owner {
			return false, nil
		}
		s.logger.Warn("discarding local cache",
			"owner", owner,
			"stored_owner", storedOwner,
			"error", openErr,
		)
		wiped = true
	}

	sealedOwner, err := s.seal(owner)
	if err != nil {
		return false, err
	}
	if err := s.resetAll(conn, sealedOwner); err != nil {
		return false, err
	}
	return wiped, nil
}

func (s *store) resetAll(conn *sqlite.Conn, sealedOwner []byte) (err error) {
	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("matrixclient: begin reset: %w", err)
	}
	defer endTransaction(&err)

	if err = clearTables(conn); err != nil {
		return err
	}
	err = sqlitex.Execute(conn, "INSERT INTO meta (key, value) VALUES (?, ?)", &sqlitex.ExecOptions{
		Args: []any{ownerKey, sealedOwner},
	})
	if err != nil {
		return fmt.Errorf("matrixclient: writing store owner: %w", err)
	}
	return nil
}

func clearTables(conn *sqlite.Conn) error {
	for _, table := range []string{"meta", "sync_token", "rooms", "events"} {
		if err := sqlitex.ExecuteTransient(conn, "DELETE FROM "+table, nil); err != nil {
			return fmt.Errorf("matrixclient: clearing %s: %w", table, err)
		}
	}
	return nil
}

// wipeCache drops the sync token, rooms and events but keeps the owner
// row.
func (s *store) wipeCache(ctx context.Context) error {
	return s.pool.With(ctx, func(conn *sqlite.Conn) (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return fmt.Errorf("matrixclient: begin wipe: %w", err)
		}
		defer endTransaction(&err)
		for _, table := range []string{"sync_token", "rooms", "events"} {
			if err = sqlitex.ExecuteTransient(conn, "DELETE FROM "+table, nil); err != nil {
				return fmt.Errorf("matrixclient: clearing %s: %w", table, err)
			}
		}
		return nil
	})
}

// load reads the whole cache. Any undecryptable row fails the load.
func (s *store) load(ctx context.Context) (*cachedState, error) {
	state := &cachedState{
		Rooms:  make(map[ref.RoomID]roomSummary),
		Events: make(map[ref.RoomID][]positionedEvent),
	}
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "SELECT since FROM sync_token WHERE id = 1", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				return s.open(columnBytes(stmt, 0), &state.Since)
			},
		})
		if err != nil {
			return fmt.Errorf("matrixclient: loading sync token: %w", err)
		}

		err = sqlitex.Execute(conn, "SELECT room_id, summary FROM rooms", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				roomID, err := ref.ParseRoomID(stmt.ColumnText(0))
				if err != nil {
					return err
				}
				var summary roomSummary
				if err := s.open(columnBytes(stmt, 1), &summary); err != nil {
					return fmt.Errorf("room %s: %w", roomID, err)
				}
				state.Rooms[roomID] = summary
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("matrixclient: loading rooms: %w", err)
		}

		err = sqlitex.Execute(conn, "SELECT room_id, position, payload FROM events ORDER BY room_id, position", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				roomID, err := ref.ParseRoomID(stmt.ColumnText(0))
				if err != nil {
					return err
				}
				var event messaging.Event
				if err := s.open(columnBytes(stmt, 2), &event); err != nil {
					return fmt.Errorf("event in %s: %w", roomID, err)
				}
				state.Events[roomID] = append(state.Events[roomID], positionedEvent{
					Position: stmt.ColumnInt64(1),
					Event:    event,
				})
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("matrixclient: loading events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// save writes one sync response's changes in a single transaction.
func (s *store) save(ctx context.Context, write syncWrite) error {
	sealedSince, err := s.seal(write.Since)
	if err != nil {
		return err
	}

	return s.pool.With(ctx, func(conn *sqlite.Conn) (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return fmt.Errorf("matrixclient: begin save: %w", err)
		}
		defer endTransaction(&err)

		for _, roomID := range write.Removed {
			if err = deleteRoom(conn, roomID); err != nil {
				return err
			}
		}
		for roomID, room := range write.Rooms {
			if err = s.saveRoom(conn, roomID, room); err != nil {
				return err
			}
		}

		err = sqlitex.Execute(conn,
			"INSERT INTO sync_token (id, since) VALUES (1, ?) ON CONFLICT (id) DO UPDATE SET since = excluded.since",
			&sqlitex.ExecOptions{Args: []any{sealedSince}})
		if err != nil {
			return fmt.Errorf("matrixclient: saving sync token: %w", err)
		}
		return nil
	})
}

func (s *store) saveRoom(conn *sqlite.Conn, roomID ref.RoomID, room roomWrite) error {
	sealedSummary, err := s.seal(room.Summary)
	if err != nil {
		return err
	}
	err = sqlitex.Execute(conn,
		"INSERT INTO rooms (room_id, summary) VALUES (?, ?) ON CONFLICT (room_id) DO UPDATE SET summary = excluded.summary",
		&sqlitex.ExecOptions{Args: []any{roomID.String(), sealedSummary}})
	if err != nil {
		return fmt.Errorf("matrixclient: saving room %s: %w", roomID, err)
	}

	if room.Reset {
		err = sqlitex.Execute(conn, "DELETE FROM events WHERE room_id = ?", &sqlitex.ExecOptions{
			Args: []any{roomID.String()},
		})
		if err != nil {
			return fmt.Errorf("matrixclient: resetting events for %s: %w", roomID, err)
		}
	}

	for _, stored := range room.Appended {
		payload, err := s.seal(stored.Event)
		if err != nil {
			return err
		}
		err = sqlitex.Execute(conn,
			"INSERT OR REPLACE INTO events (room_id, position, event_id, payload) VALUES (?, ?, ?, ?)",
			&sqlitex.ExecOptions{Args: []any{roomID.String(), stored.Position, stored.Event.EventID.String(), payload}})
		if err != nil {
			return fmt.Errorf("matrixclient: saving event %s: %w", stored.Event.EventID, err)
		}
	}

	err = sqlitex.Execute(conn, "DELETE FROM events WHERE room_id = ? AND position < ?", &sqlitex.ExecOptions{
		Args: []any{roomID.String(), room.KeepFrom},
	})
	if err != nil {
		return fmt.Errorf("matrixclient: trimming events for %s: %w", roomID, err)
	}
	return nil
}

func deleteRoom(conn *sqlite.Conn, roomID ref.RoomID) error {
	for _, query := range []string{
		"DELETE FROM events WHERE room_id = ?",
		"DELETE FROM rooms WHERE room_id = ?",
	} {
		if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: []any{roomID.String()}}); err != nil {
			return fmt.Errorf("matrixclient: removing room %s: %w", roomID, err)
		}
	}
	return nil
}

func columnBytes(stmt *sqlite.Stmt, column int) []byte {
	buffer := make([]byte, stmt.ColumnLen(column))
	stmt.ColumnBytes(column, buffer)
	return buffer
}
