// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Gregoor/matrix-neo/lib/credstore"
	"github.com/Gregoor/matrix-neo/lib/matrixclient"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/secret"
)

// ErrLoginInProgress is returned by Login when the controller is not
// LoggedOut, in particular while another login is pending. The call is
// ignored.
var ErrLoginInProgress = errors.New("session: login not possible in the current state")

// Config holds a Controller's collaborators and observers.
type Config struct {
	Store         *credstore.Store
	Authenticator Authenticator
	Connect       Connector
	Logger        *slog.Logger

	// OnChange is called after every state transition with the new
	// state, from whichever goroutine caused it. It must not block.
	OnChange func(State)

	// OnRoomsReady is called once per client, after its first sync.
	OnRoomsReady func()

	// OnRoomsChanged is called when the room list of a ready client
	// changes.
	OnRoomsChanged func()

	// OnSyncState receives the current client's sync state changes.
	// Events from replaced clients are not delivered.
	OnSyncState func(matrixclient.SyncEvent)

	// OnRoomActivity is called when a room of the current client
	// received timeline events.
	OnRoomActivity func(ref.RoomID)
}

// Controller is the session state machine. Its methods are safe for
// concurrent use; blocking methods take a context and are meant to run
// off the UI goroutine.
type Controller struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	client Client
	// generation identifies the current client. Every activation and
	// every teardown bumps it, so callbacks from replaced clients can
	// recognize themselves.
	generation  uint64
	roomsReady  bool
	unsubscribe []func()
}

// NewController returns a controller in the Loading state.
func NewController(config Config) (*Controller, error) {
	if config.Store == nil {
		return nil, errors.New("session: Store is required")
	}
	if config.Authenticator == nil {
		return nil, errors.New("session: Authenticator is required")
	}
	if config.Connect == nil {
		return nil, errors.New("session: Connect is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		config: config,
		logger: logger.With("component", "session"),
		state:  State{Kind: KindLoading},
	}, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Client returns the live client while Active, or nil.
func (c *Controller) Client() Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Kind != KindActive {
		return nil
	}
	return c.client
}

// RoomsReady reports whether the current client has completed its
// first sync.
func (c *Controller) RoomsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Kind == KindActive && c.roomsReady
}

// Rooms returns the current client's rooms, or nil before its first
// sync completes.
func (c *Controller) Rooms() []*matrixclient.Room {
	c.mu.Lock()
	client, ready := c.client, c.state.Kind == KindActive && c.roomsReady
	c.mu.Unlock()
	if !ready || client == nil {
		return nil
	}
	return client.Rooms()
}

// apply runs transition under the lock and notifies OnChange. It
// returns the new state.
func (c *Controller) apply(ev event) (State, error) {
	c.mu.Lock()
	next, err := c.applyLocked(ev)
	c.mu.Unlock()
	if err != nil {
		return next, err
	}
	c.notify(next)
	return next, nil
}

func (c *Controller) applyLocked(ev event) (State, error) {
	next, err := transition(c.state, ev)
	if err != nil {
		return c.state, err
	}
	c.logger.Debug("session transition", "from", c.state.Kind, "to", next.Kind, "event", ev.kind)
	c.state = next
	return next, nil
}

func (c *Controller) notify(state State) {
	if c.config.OnChange != nil {
		c.config.OnChange(state)
	}
}

// Start reads the credential store. With nothing stored the controller
// becomes LoggedOut; with a descriptor it becomes Active and starts a
// client. A load or startup failure leaves it Failed and is returned.
func (c *Controller) Start(ctx context.Context) error {
	if kind := c.State().Kind; kind != KindLoading {
		return fmt.Errorf("session: Start called in state %s", kind)
	}
	descriptor, err := c.config.Store.Load(ctx)
	switch {
	case err != nil:
		c.logger.Error("loading stored session failed", "error", err)
		if _, transitionErr := c.apply(event{kind: eventLoadFailed, err: err}); transitionErr != nil {
			return transitionErr
		}
		return err
	case descriptor == nil:
		_, err := c.apply(event{kind: eventNothingStored})
		return err
	}

	if _, err := c.apply(event{kind: eventStored, descriptor: *descriptor}); err != nil {
		return err
	}
	c.logger.Info("restored stored session", "user_id", descriptor.UserID, "homeserver", descriptor.HomeServer)
	return c.activate(ctx, *descriptor)
}

// Login authenticates and, on success, persists the descriptor and
// activates it. It returns ErrLoginInProgress without doing anything
// unless the controller is LoggedOut. A failed login returns the
// controller to LoggedOut with the error on the state and leaves the
// credential store untouched.
func (c *Controller) Login(ctx context.Context, username string, password *secret.Buffer) error {
	if _, err := c.apply(event{kind: eventLoginStarted}); err != nil {
		return ErrLoginInProgress
	}

	descriptor, err := c.config.Authenticator.Login(ctx, username, password)
	if err == nil {
		err = descriptor.Validate()
	}
	if err == nil {
		err = c.config.Store.Save(ctx, descriptor)
	}
	if err != nil {
		// Malformed descriptors keep their ValidationError type.
		var authErr *AuthError
		var validationErr *credstore.ValidationError
		if !errors.As(err, &authErr) && !errors.As(err, &validationErr) {
			err = &AuthError{Username: username, Err: err}
		}
		c.logger.Warn("login failed", "username", username, "error", err)
		if _, transitionErr := c.apply(event{kind: eventLoginFailed, err: err}); transitionErr != nil {
			return transitionErr
		}
		return err
	}

	if _, err := c.apply(event{kind: eventLoginSucceeded, descriptor: descriptor}); err != nil {
		return err
	}
	c.logger.Info("logged in", "user_id", descriptor.UserID, "device_id", descriptor.DeviceID)
	return c.activate(ctx, descriptor)
}

// activate builds, subscribes and starts a new client for descriptor.
// The controller must already be Active.
func (c *Controller) activate(ctx context.Context, descriptor credstore.SessionDescriptor) error {
	c.mu.Lock()
	c.generation++
	generation := c.generation
	c.roomsReady = false
	c.mu.Unlock()

	client, err := c.config.Connect(descriptor)
	if err != nil {
		return c.failActivation(generation, nil, err)
	}

	unsubscribeSync := client.OnSyncStateChange(func(syncEvent matrixclient.SyncEvent) {
		c.handleSyncEvent(generation, syncEvent)
	})
	unsubscribeRooms := client.OnRoomsChanged(func() {
		c.handleRoomsChanged(generation)
	})
	unsubscribeActivity := client.OnRoomActivity(func(roomID ref.RoomID) {
		c.handleRoomActivity(generation, roomID)
	})
	unsubscribe := []func(){unsubscribeSync, unsubscribeRooms, unsubscribeActivity}

	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		for _, release := range unsubscribe {
			release()
		}
		client.Stop()
		return fmt.Errorf("session: activation superseded")
	}
	c.client = client
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	if err := client.InitEncryption(ctx); err != nil {
		return c.failActivation(generation, client, err)
	}
	if err := client.Start(ctx); err != nil {
		return c.failActivation(generation, client, err)
	}
	return nil
}

// failActivation tears down client and moves to Failed, unless the
// activation was superseded in the meantime.
func (c *Controller) failActivation(generation uint64, client Client, cause error) error {
	c.logger.Error("starting client failed", "error", cause)

	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		if client != nil {
			client.Stop()
		}
		return cause
	}
	detached := c.detachLocked()
	next, err := c.applyLocked(event{kind: eventActivationFailed, err: cause})
	c.mu.Unlock()

	stopClient(detached)
	if err != nil {
		return err
	}
	c.notify(next)
	return cause
}

// detachedClient is a client removed from the controller, stopped
// outside the lock.
type detachedClient struct {
	client      Client
	unsubscribe []func()
}

func (c *Controller) detachLocked() detachedClient {
	detached := detachedClient{client: c.client, unsubscribe: c.unsubscribe}
	c.client = nil
	c.unsubscribe = nil
	c.roomsReady = false
	c.generation++
	return detached
}

func stopClient(detached detachedClient) {
	for _, unsubscribe := range detached.unsubscribe {
		unsubscribe()
	}
	if detached.client != nil {
		detached.client.Stop()
	}
}

func (c *Controller) handleSyncEvent(generation uint64, syncEvent matrixclient.SyncEvent) {
	if c.config.OnSyncState != nil {
		c.mu.Lock()
		current := c.generation == generation
		c.mu.Unlock()
		if current {
			c.config.OnSyncState(syncEvent)
		}
	}

	switch syncEvent.State {
	case matrixclient.SyncPrepared:
		c.mu.Lock()
		if c.generation != generation || c.roomsReady || c.state.Kind != KindActive {
			c.mu.Unlock()
			return
		}
		c.roomsReady = true
		c.mu.Unlock()
		c.logger.Info("initial sync complete")
		if c.config.OnRoomsReady != nil {
			c.config.OnRoomsReady()
		}

	case matrixclient.SyncError:
		if errors.Is(syncEvent.Err, matrixclient.ErrSessionRevoked) {
			// The callback runs on the client's sync goroutine, which
			// Stop waits for.
			go c.revoke(generation, syncEvent.Err)
		}
	}
}

func (c *Controller) handleRoomsChanged(generation uint64) {
	c.mu.Lock()
	current := c.generation == generation && c.roomsReady
	c.mu.Unlock()
	if current && c.config.OnRoomsChanged != nil {
		c.config.OnRoomsChanged()
	}
}

func (c *Controller) handleRoomActivity(generation uint64, roomID ref.RoomID) {
	c.mu.Lock()
	current := c.generation == generation && c.roomsReady
	c.mu.Unlock()
	if current && c.config.OnRoomActivity != nil {
		c.config.OnRoomActivity(roomID)
	}
}

// revoke ends a session the homeserver no longer accepts: the client
// is stopped, the stored credential is cleared and the controller
// returns to LoggedOut with the cause on the state.
func (c *Controller) revoke(generation uint64, cause error) {
	c.mu.Lock()
	if c.generation != generation || c.state.Kind != KindActive {
		c.mu.Unlock()
		return
	}
	detached := c.detachLocked()
	next, err := c.applyLocked(event{kind: eventRevoked, err: cause})
	c.mu.Unlock()

	c.logger.Warn("session revoked by homeserver", "error", cause)
	stopClient(detached)
	if clearErr := c.config.Store.Clear(context.Background()); clearErr != nil {
		c.logger.Error("clearing revoked session failed", "error", clearErr)
	}
	if err == nil {
		c.notify(next)
	}
}

// Logout ends the Active session, or abandons a Failed one. The server
// is told to invalidate the token (best effort), the client is stopped
// and the credential store is cleared.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	next, err := c.applyLocked(event{kind: eventLoggedOut})
	if err != nil {
		c.mu.Unlock()
		return err
	}
	detached := c.detachLocked()
	c.mu.Unlock()

	if detached.client != nil {
		if err := detached.client.Logout(ctx); err != nil {
			c.logger.Warn("server-side logout failed", "error", err)
		}
	}
	stopClient(detached)
	clearErr := c.config.Store.Clear(ctx)
	c.notify(next)
	if clearErr != nil {
		return fmt.Errorf("session: clearing stored session: %w", clearErr)
	}
	c.logger.Info("logged out")
	return nil
}

// Retry restarts from Loading after a failure.
func (c *Controller) Retry(ctx context.Context) error {
	if _, err := c.apply(event{kind: eventRetry}); err != nil {
		return err
	}
	return c.Start(ctx)
}

// Close stops the current client without changing state. Used on
// program exit.
func (c *Controller) Close() {
	c.mu.Lock()
	detached := c.detachLocked()
	c.mu.Unlock()
	stopClient(detached)
}
