// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrixclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Gregoor/matrix-neo/lib/clock"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/sealed"
	"github.com/Gregoor/matrix-neo/messaging"
)

const (
	// DefaultTimelineLimit is the per-room event count requested from
	// /sync.
	DefaultTimelineLimit = 50
	// DefaultHistoryLimit bounds the events kept per room in memory and
	// in the cache.
	DefaultHistoryLimit = 500
	// DefaultSyncTimeout is the server-side long-poll duration.
	DefaultSyncTimeout = 30 * time.Second

	storeFileName = "sync.db"
	keyFileName   = "store.key"
)

// Config holds the parameters for New.
type Config struct {
	HomeserverURL string
	UserID        ref.UserID
	DeviceID      string
	AccessToken   string

	// HTTPClient overrides the transport. Nil uses a default client.
	HTTPClient *http.Client

	// StateDir holds the sealed cache and its key. Empty disables
	// persistence and InitEncryption becomes a no-op.
	StateDir string

	// Clock drives reconnect backoff. Nil uses the real clock.
	Clock clock.Clock

	Logger *slog.Logger

	TimelineLimit int
	HistoryLimit  int
	SyncTimeout   time.Duration
}

// Client is one live session. It is created per activation and never
// restarted: after Stop, build a new Client.
type Client struct {
	config  Config
	session *messaging.Session
	store   *store
	clock   clock.Clock
	logger  *slog.Logger

	mu       sync.RWMutex
	rooms    map[ref.RoomID]*Room
	since    string
	state    SyncState
	prepared bool
	started  bool
	stopped  bool

	syncListeners     listenerSet[SyncEvent]
	roomsListeners    listenerSet[struct{}]
	activityListeners listenerSet[ref.RoomID]

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Client bound to one access token and opens its local
// cache. No network traffic happens until Start.
func New(config Config) (*Client, error) {
	if config.UserID.IsZero() {
		return nil, fmt.Errorf("matrixclient: UserID is required")
	}
	if config.AccessToken == "" {
		return nil, fmt.Errorf("matrixclient: AccessToken is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.TimelineLimit <= 0 {
		config.TimelineLimit = DefaultTimelineLimit
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultHistoryLimit
	}
	if config.SyncTimeout <= 0 {
		config.SyncTimeout = DefaultSyncTimeout
	}
	logger := config.Logger.With("component", "matrixclient", "user_id", config.UserID)

	messagingClient, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: config.HomeserverURL,
		HTTPClient:    config.HTTPClient,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("matrixclient: %w", err)
	}
	session, err := messagingClient.SessionFromToken(config.UserID, config.DeviceID, config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("matrixclient: %w", err)
	}

	client := &Client{
		config:  config,
		session: session,
		clock:   config.Clock,
		logger:  logger,
		rooms:   make(map[ref.RoomID]*Room),
	}

	if config.StateDir != "" {
		if err := os.MkdirAll(config.StateDir, 0o700); err != nil {
			session.Close()
			return nil, fmt.Errorf("matrixclient: creating state directory: %w", err)
		}
		client.store, err = openStore(filepath.Join(config.StateDir, storeFileName), logger)
		if err != nil {
			session.Close()
			return nil, fmt.Errorf("matrixclient: opening local cache: %w", err)
		}
	}
	return client, nil
}

// UserID returns the user the client is bound to.
func (c *Client) UserID() ref.UserID { return c.config.UserID }

// OnSyncStateChange registers callback for every sync state change.
// Register before Start to observe SyncPrepared.
func (c *Client) OnSyncStateChange(callback func(SyncEvent)) (unsubscribe func()) {
	return c.syncListeners.add(callback)
}

// OnRoomsChanged registers callback for changes to the room list or
// to any room's name.
func (c *Client) OnRoomsChanged(callback func()) (unsubscribe func()) {
	return c.roomsListeners.add(func(struct{}) { callback() })
}

// OnRoomActivity registers callback for rooms whose timeline grew. It
// fires once per room per /sync response, after the room's timeline
// listeners.
func (c *Client) OnRoomActivity(callback func(ref.RoomID)) (unsubscribe func()) {
	return c.activityListeners.add(callback)
}

// SyncState returns the current sync state.
func (c *Client) SyncState() SyncState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// InitEncryption loads the cache's sealing key from the state
// directory, creating it on first use, and unlocks the cache. A cache
// that belongs to another user or key is discarded.
func (c *Client) InitEncryption(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	keypair, err := sealed.LoadOrCreateKeypair(filepath.Join(c.config.StateDir, keyFileName))
	if err != nil {
		return &CryptoInitError{Err: err}
	}
	defer keypair.Close()

	sealer, err := sealed.NewSealer(keypair)
	if err != nil {
		return &CryptoInitError{Err: err}
	}
	wiped, err := c.store.unlock(ctx, sealer, c.config.UserID)
	if err != nil {
		return &CryptoInitError{Err: err}
	}
	if wiped {
		c.logger.Info("local cache reset")
	}
	return nil
}

// Start validates the session and launches the sync loop. It returns
// once the loop is running; state changes arrive via OnSyncStateChange.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return fmt.Errorf("matrixclient: Start called twice")
	}
	c.started = true
	c.mu.Unlock()

	if c.store != nil && c.store.sealer == nil {
		return &CryptoInitError{Err: errNoSealer}
	}

	filter, err := c.syncFilter()
	if err != nil {
		return fmt.Errorf("matrixclient: %w", err)
	}

	whoami, err := c.session.WhoAmI(ctx)
	if err != nil {
		return &ConnectionError{Homeserver: c.session.HomeserverURL(), Err: err}
	}
	if whoami.UserID != c.config.UserID {
		return &ConnectionError{
			Homeserver: c.session.HomeserverURL(),
			Err:        fmt.Errorf("access token belongs to %s, expected %s", whoami.UserID, c.config.UserID),
		}
	}

	if c.store != nil {
		if err := c.restore(ctx); err != nil {
			c.logger.Warn("local cache unreadable, starting from a fresh sync", "error", err)
			c.resetRooms()
			if err := c.store.wipeCache(ctx); err != nil {
				c.logger.Warn("clearing local cache failed", "error", err)
			}
		}
	}

	loopContext, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		cancel()
		return ErrNotStarted
	}
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.syncLoop(loopContext, filter)
	return nil
}

// restore loads the cache into memory before the first sync.
func (c *Client) restore(ctx context.Context) error {
	cached, err := c.store.load(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.since = cached.Since
	for roomID, summary := range cached.Rooms {
		room := newRoom(roomID, c.config.UserID, c.config.HistoryLimit)
		room.restoreLocked(summary, cached.Events[roomID])
		c.rooms[roomID] = room
	}
	roomCount := len(c.rooms)
	c.mu.Unlock()

	c.logger.Debug("restored local cache", "rooms", roomCount, "has_since", cached.Since != "")
	if roomCount > 0 {
		c.roomsListeners.emit(struct{}{})
	}
	return nil
}

func (c *Client) resetRooms() {
	c.mu.Lock()
	c.since = ""
	c.rooms = make(map[ref.RoomID]*Room)
	c.mu.Unlock()
}

// Stop cancels the sync loop, waits for it to exit and releases the
// cache and the token. Idempotent; safe before Start.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.setState(SyncStopped, nil)

	if c.store != nil {
		if err := c.store.close(); err != nil {
			c.logger.Warn("closing local cache", "error", err)
		}
	}
	c.session.CloseIdleConnections()
	c.session.Close()
}

// Logout invalidates the access token on the server. Call it before
// Stop.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.session.Logout(ctx); err != nil {
		return fmt.Errorf("matrixclient: %w", err)
	}
	return nil
}

// Rooms returns the joined rooms that have a display name, ordered by
// name and then room ID.
func (c *Client) Rooms() []*Room {
	c.mu.RLock()
	rooms := make([]*Room, 0, len(c.rooms))
	for _, room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.mu.RUnlock()

	type namedRoom struct {
		room *Room
		name string
	}
	named := make([]namedRoom, 0, len(rooms))
	for _, room := range rooms {
		if name := room.Name(); name != "" {
			named = append(named, namedRoom{room: room, name: name})
		}
	}
	sort.Slice(named, func(i, j int) bool {
		left, right := strings.ToLower(named[i].name), strings.ToLower(named[j].name)
		if left != right {
			return left < right
		}
		return named[i].room.id.String() < named[j].room.id.String()
	})

	result := make([]*Room, len(named))
	for index, entry := range named {
		result[index] = entry.room
	}
	return result
}

// Room returns a joined room by ID.
func (c *Client) Room(roomID ref.RoomID) (*Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	room, ok := c.rooms[roomID]
	return room, ok
}

// SendMessage sends an m.room.message event. The event appears in the
// room's timeline when the next /sync delivers it.
func (c *Client) SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error) {
	c.mu.RLock()
	stopped := c.stopped
	c.mu.RUnlock()
	if stopped {
		return ref.EventID{}, &SendError{RoomID: roomID, Err: ErrNotStarted}
	}

	eventID, err := c.session.SendMessage(ctx, roomID, content)
	if err != nil {
		return ref.EventID{}, &SendError{RoomID: roomID, Err: err}
	}
	c.logger.Debug("message sent", "room_id", roomID, "event_id", eventID)
	return eventID, nil
}

// SendText sends a plain m.text message.
func (c *Client) SendText(ctx context.Context, roomID ref.RoomID, body string) (ref.EventID, error) {
	return c.SendMessage(ctx, roomID, messaging.NewTextMessage(body))
}

// setState records state and notifies listeners when it changed, or
// when err is set.
func (c *Client) setState(state SyncState, err error) {
	c.mu.Lock()
	changed := c.state != state
	c.state = state
	c.mu.Unlock()
	if changed || err != nil {
		c.syncListeners.emit(SyncEvent{State: state, Err: err})
	}
}
