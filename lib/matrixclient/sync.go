// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrixclient

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/messaging"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// syncFilter builds the inline filter for every /sync request: only
// the event types the room list and timelines render.
func (c *Client) syncFilter() (string, error) {
	return messaging.SyncFilter{
		TimelineLimit: c.config.TimelineLimit,
		TimelineTypes: []ref.EventType{
			ref.EventTypeMessage,
			ref.EventTypeRoomName,
			ref.EventTypeCanonicalAlias,
			ref.EventTypeMember,
		},
		StateTypes: []ref.EventType{
			ref.EventTypeRoomName,
			ref.EventTypeCanonicalAlias,
			ref.EventTypeMember,
		},
		LazyLoadMembers: true,
	}.Inline()
}

// syncLoop long-polls /sync until ctx is cancelled or the homeserver
// revokes the token.
//
// The first request of a Client is sent with timeout=0 so that a
// restored cache is brought up to date (or an initial snapshot is
// fetched) without waiting on the long-poll. Later requests long-poll
// for SyncTimeout.
//
// Transient failures move the state to SyncReconnecting and back off
// exponentially from 1s to 30s, or for the server's retry_after_ms on
// M_LIMIT_EXCEEDED. The access token is never refreshed: an
// M_UNKNOWN_TOKEN ends the loop in SyncError with ErrSessionRevoked.
func (c *Client) syncLoop(ctx context.Context, filter string) {
	defer close(c.done)

	backoff := initialBackoff
	first := true

	for {
		if ctx.Err() != nil {
			return
		}

		c.mu.RLock()
		since := c.since
		c.mu.RUnlock()

		options := messaging.SyncOptions{
			Since:      since,
			Timeout:    c.config.SyncTimeout,
			SetTimeout: true,
			Filter:     filter,
		}
		if first {
			options.Timeout = 0
		}

		response, err := c.session.Sync(ctx, options)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if isRevoked(err) {
				c.logger.Error("homeserver rejected the access token", "error", err)
				c.setState(SyncError, errors.Join(ErrSessionRevoked, err))
				return
			}

			delay := backoff
			var matrixErr *messaging.MatrixError
			if errors.As(err, &matrixErr) && matrixErr.RetryAfter() > 0 {
				delay = matrixErr.RetryAfter()
			}
			c.logger.Warn("sync failed, retrying", "error", err, "backoff", delay)
			c.setState(SyncReconnecting, err)
			c.session.CloseIdleConnections()

			select {
			case <-ctx.Done():
				return
			case <-c.clock.After(delay):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = initialBackoff
		first = false
		c.apply(ctx, response)

		c.mu.Lock()
		firstPrepared := !c.prepared
		c.prepared = true
		c.mu.Unlock()
		if firstPrepared {
			c.setState(SyncPrepared, nil)
		} else {
			c.setState(SyncSyncing, nil)
		}
	}
}

// isRevoked reports whether err means the token will never work again.
func isRevoked(err error) bool {
	return messaging.IsMatrixError(err, messaging.ErrCodeUnknownToken) ||
		messaging.IsMatrixError(err, messaging.ErrCodeMissingToken) ||
		messaging.IsMatrixError(err, messaging.ErrCodeDeactivated)
}

// timelineDelivery is one room's appended events, dispatched after the
// whole response is applied.
type timelineDelivery struct {
	room   *Room
	events []messaging.Event
}

// apply folds one /sync response into memory, persists it, then
// notifies listeners. Rooms are processed in room ID order so delivery
// order is deterministic across rooms.
func (c *Client) apply(ctx context.Context, response *messaging.SyncResponse) {
	write := syncWrite{
		Since: response.NextBatch,
		Rooms: make(map[ref.RoomID]roomWrite, len(response.Rooms.Join)),
	}
	var deliveries []timelineDelivery
	roomsChanged := false

	roomIDs := make([]ref.RoomID, 0, len(response.Rooms.Join))
	for roomID := range response.Rooms.Join {
		roomIDs = append(roomIDs, roomID)
	}
	sort.Slice(roomIDs, func(i, j int) bool { return roomIDs[i].String() < roomIDs[j].String() })

	c.mu.Lock()
	for _, roomID := range roomIDs {
		joined := response.Rooms.Join[roomID]
		room, exists := c.rooms[roomID]
		if !exists {
			room = newRoom(roomID, c.config.UserID, c.config.HistoryLimit)
			c.rooms[roomID] = room
			roomsChanged = true
		}

		update, appended, nameChanged := room.applySync(joined)
		if nameChanged {
			roomsChanged = true
		}
		write.Rooms[roomID] = update
		if len(appended) > 0 {
			deliveries = append(deliveries, timelineDelivery{room: room, events: appended})
		}
	}
	for roomID := range response.Rooms.Leave {
		if _, exists := c.rooms[roomID]; exists {
			delete(c.rooms, roomID)
			roomsChanged = true
		}
		write.Removed = append(write.Removed, roomID)
	}
	c.since = response.NextBatch
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.save(ctx, write); err != nil && ctx.Err() == nil {
			c.logger.Warn("writing local cache failed", "error", err)
		}
	}

	for _, delivery := range deliveries {
		for _, event := range delivery.events {
			delivery.room.timeline.emit(event)
		}
		c.activityListeners.emit(delivery.room.id)
	}
	if roomsChanged {
		c.roomsListeners.emit(struct{}{})
	}
}

// applySync folds a joined room's section of a /sync response into the
// room. It returns the cache write for the room, the events appended to
// the timeline, and whether the room's display name may have changed.
func (r *Room) applySync(joined messaging.JoinedRoom) (roomWrite, []messaging.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.nameLocked()

	if joined.Summary.Heroes != nil {
		r.heroes = append([]ref.UserID(nil), joined.Summary.Heroes...)
	}
	for _, event := range joined.State.Events {
		r.applyStateLocked(event)
	}

	var write roomWrite
	if joined.Timeline.Limited {
		r.resetTimelineLocked()
		write.Reset = true
	}
	appended := r.appendTimelineLocked(joined.Timeline.Events)
	write.Appended = appended
	write.KeepFrom = r.trimLocked()
	write.Summary = r.summaryLocked()

	events := make([]messaging.Event, len(appended))
	for index, stored := range appended {
		events[index] = stored.Event
	}
	return write, events, r.nameLocked() != before
}
