// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrixclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gregoor/matrix-neo/lib/clock"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/testutil"
	"github.com/Gregoor/matrix-neo/messaging"
)

const (
	testToken   = "syt_test_token"
	testTimeout = 5 * time.Second
)

// syncReply is one scripted /sync answer: either a response body or a
// Matrix error.
type syncReply struct {
	response     *messaging.SyncResponse
	status       int
	errcode      string
	retryAfterMS int64
}

// fakeHomeserver answers whoami, send, logout and scripted /sync
// requests. A /sync with nothing scripted blocks until the request is
// cancelled, like an idle long-poll.
type fakeHomeserver struct {
	t      *testing.T
	server *httptest.Server
	whoami ref.UserID
	syncs  chan syncReply
	done   chan struct{}

	mu        sync.Mutex
	syncQuery []string
	sent      []map[string]any
	sendCode  int
	loggedOut bool
}

func newFakeHomeserver(t *testing.T) *fakeHomeserver {
	t.Helper()
	homeserver := &fakeHomeserver{
		t:      t,
		whoami: testSelf,
		syncs:  make(chan syncReply, 16),
		done:   make(chan struct{}),
	}
	homeserver.server = httptest.NewServer(http.HandlerFunc(homeserver.serve))
	t.Cleanup(homeserver.server.Close)
	t.Cleanup(func() { close(homeserver.done) })
	return homeserver
}

func (h *fakeHomeserver) serve(writer http.ResponseWriter, request *http.Request) {
	if got := request.Header.Get("Authorization"); got != "Bearer "+testToken {
		writeError(writer, http.StatusUnauthorized, messaging.ErrCodeUnknownToken)
		return
	}
	path := request.URL.Path
	switch {
	case path == "/_matrix/client/v3/account/whoami":
		writeJSON(writer, messaging.WhoAmIResponse{UserID: h.whoami, DeviceID: "DEVICE1"})

	case path == "/_matrix/client/v3/sync":
		h.mu.Lock()
		h.syncQuery = append(h.syncQuery, request.URL.RawQuery)
		h.mu.Unlock()
		select {
		case reply := <-h.syncs:
			if reply.response != nil {
				writeJSON(writer, reply.response)
				return
			}
			writeMatrixError(writer, reply.status, messaging.MatrixError{
				Code:         reply.errcode,
				Message:      "scripted failure",
				RetryAfterMS: reply.retryAfterMS,
			})
		case <-request.Context().Done():
		case <-h.done:
		}

	case strings.HasPrefix(path, "/_matrix/client/v3/rooms/") && request.Method == http.MethodPut:
		h.mu.Lock()
		code := h.sendCode
		var content map[string]any
		json.NewDecoder(request.Body).Decode(&content)
		h.sent = append(h.sent, content)
		h.mu.Unlock()
		if code != 0 {
			writeError(writer, code, messaging.ErrCodeForbidden)
			return
		}
		writeJSON(writer, messaging.SendEventResponse{EventID: ref.MustParseEventID("$sent")})

	case path == "/_matrix/client/v3/logout":
		h.mu.Lock()
		h.loggedOut = true
		h.mu.Unlock()
		writeJSON(writer, struct{}{})

	default:
		http.NotFound(writer, request)
	}
}

func (h *fakeHomeserver) replySync(response *messaging.SyncResponse) {
	h.syncs <- syncReply{response: response}
}

func (h *fakeHomeserver) failSync(status int, errcode string) {
	h.syncs <- syncReply{status: status, errcode: errcode}
}

func (h *fakeHomeserver) queries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.syncQuery...)
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}

func writeError(writer http.ResponseWriter, status int, errcode string) {
	writeMatrixError(writer, status, messaging.MatrixError{Code: errcode, Message: "scripted failure"})
}

func writeMatrixError(writer http.ResponseWriter, status int, body messaging.MatrixError) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(body)
}

type clientOptions struct {
	stateDir string
	clock    clock.Clock
}

func newTestClient(t *testing.T, homeserver *fakeHomeserver, options clientOptions) *Client {
	t.Helper()
	if options.clock == nil {
		options.clock = clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	}
	client, err := New(Config{
		HomeserverURL: homeserver.server.URL,
		UserID:        testSelf,
		DeviceID:      "DEVICE1",
		AccessToken:   testToken,
		StateDir:      options.stateDir,
		Clock:         options.clock,
		Logger:        slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(client.Stop)
	return client
}

// watchStates forwards every sync state change into a channel.
func watchStates(client *Client) <-chan SyncEvent {
	events := make(chan SyncEvent, 32)
	client.OnSyncStateChange(func(event SyncEvent) { events <- event })
	return events
}

func requireState(t *testing.T, events <-chan SyncEvent, want SyncState) SyncEvent {
	t.Helper()
	event := testutil.RequireReceive(t, events, testTimeout, "waiting for %s", want)
	if event.State != want {
		t.Fatalf("sync state = %s (err %v), want %s", event.State, event.Err, want)
	}
	return event
}

func initialResponse() *messaging.SyncResponse {
	roomTwo := ref.MustParseRoomID("!two:example.org")
	unnamed := ref.MustParseRoomID("!unnamed:example.org")
	return &messaging.SyncResponse{
		NextBatch: "batch_1",
		Rooms: messaging.RoomsSection{Join: map[ref.RoomID]messaging.JoinedRoom{
			testRoomOne: {
				State: messaging.StateSection{Events: []messaging.Event{
					stateEvent("$n1", ref.EventTypeRoomName, "", map[string]any{"name": "zebra"}),
				}},
				Timeline: messaging.TimelineSection{Events: []messaging.Event{
					textEvent("$a", testBob, "hello", 1000),
				}},
			},
			roomTwo: {
				State: messaging.StateSection{Events: []messaging.Event{
					stateEvent("$n2", ref.EventTypeRoomName, "", map[string]any{"name": "Apple"}),
				}},
			},
			unnamed: {},
		}},
	}
}

func TestClientStartAndPrepared(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{})
	states := watchStates(client)
	roomsChanged := make(chan struct{}, 8)
	client.OnRoomsChanged(func() { roomsChanged <- struct{}{} })

	if err := client.InitEncryption(context.Background()); err != nil {
		t.Fatalf("InitEncryption failed: %v", err)
	}
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	homeserver.replySync(initialResponse())
	requireState(t, states, SyncPrepared)
	testutil.RequireReceive(t, roomsChanged, testTimeout, "waiting for rooms changed")

	rooms := client.Rooms()
	if len(rooms) != 2 {
		t.Fatalf("Rooms() returned %d rooms, want 2 (unnamed rooms hidden)", len(rooms))
	}
	if rooms[0].Name() != "Apple" || rooms[1].Name() != "zebra" {
		t.Errorf("Rooms() order = [%s %s], want [Apple zebra]", rooms[0].Name(), rooms[1].Name())
	}

	homeserver.replySync(&messaging.SyncResponse{NextBatch: "batch_2"})
	requireState(t, states, SyncSyncing)

	queries := homeserver.queries()
	if len(queries) < 2 {
		t.Fatalf("expected at least two sync requests, got %d", len(queries))
	}
	if !strings.Contains(queries[0], "timeout=0") {
		t.Errorf("first sync query %q should use timeout=0", queries[0])
	}
	if strings.Contains(queries[0], "since=") {
		t.Errorf("first sync query %q should not carry a since token", queries[0])
	}
	if !strings.Contains(queries[1], "since=batch_1") || !strings.Contains(queries[1], "timeout=30000") {
		t.Errorf("second sync query %q should long-poll from batch_1", queries[1])
	}

	// Another successful sync must not fire Prepared again or repeat
	// Syncing.
	homeserver.replySync(&messaging.SyncResponse{NextBatch: "batch_3"})
	testutil.RequireNoReceive(t, states, 100*time.Millisecond)

	client.Stop()
	requireState(t, states, SyncStopped)
}

func TestClientSyncFilter(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{})
	states := watchStates(client)
	if err := client.InitEncryption(context.Background()); err != nil {
		t.Fatalf("InitEncryption failed: %v", err)
	}
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	homeserver.replySync(initialResponse())
	requireState(t, states, SyncPrepared)

	query, err := url.ParseQuery(homeserver.queries()[0])
	if err != nil {
		t.Fatalf("parsing sync query: %v", err)
	}
	var filter struct {
		Room struct {
			Timeline struct {
				Types []string `json:"types"`
			} `json:"timeline"`
			State struct {
				Types           []string `json:"types"`
				LazyLoadMembers bool     `json:"lazy_load_members"`
			} `json:"state"`
		} `json:"room"`
	}
	if err := json.Unmarshal([]byte(query.Get("filter")), &filter); err != nil {
		t.Fatalf("filter %q is not JSON: %v", query.Get("filter"), err)
	}

	timelineTypes := strings.Join(filter.Room.Timeline.Types, ",")
	if timelineTypes != "m.room.message,m.room.name,m.room.canonical_alias,m.room.member" {
		t.Errorf("timeline types = %s", timelineTypes)
	}
	stateTypes := strings.Join(filter.Room.State.Types, ",")
	if stateTypes != "m.room.name,m.room.canonical_alias,m.room.member" {
		t.Errorf("state types = %s", stateTypes)
	}
	if !filter.Room.State.LazyLoadMembers {
		t.Error("lazy_load_members not requested")
	}
}

func TestClientTimelineDelivery(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{})
	states := watchStates(client)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	homeserver.replySync(initialResponse())
	requireState(t, states, SyncPrepared)

	room, ok := client.Room(testRoomOne)
	if !ok {
		t.Fatal("room one not found")
	}
	type delivered struct {
		eventID       string
		snapshotCount int
	}
	deliveries := make(chan delivered, 8)
	unsubscribe := room.OnTimelineEvent(func(event messaging.Event) {
		deliveries <- delivered{eventID: event.EventID.String(), snapshotCount: len(room.Snapshot())}
	})
	activity := make(chan ref.RoomID, 8)
	client.OnRoomActivity(func(roomID ref.RoomID) { activity <- roomID })

	homeserver.replySync(&messaging.SyncResponse{
		NextBatch: "batch_2",
		Rooms: messaging.RoomsSection{Join: map[ref.RoomID]messaging.JoinedRoom{
			testRoomOne: {Timeline: messaging.TimelineSection{Events: []messaging.Event{
				textEvent("$b", testBob, "second", 2000),
				textEvent("$c", testCarol, "third", 3000),
			}}},
		}},
	})

	first := testutil.RequireReceive(t, deliveries, testTimeout, "waiting for $b")
	second := testutil.RequireReceive(t, deliveries, testTimeout, "waiting for $c")
	if first.eventID != "$b" || second.eventID != "$c" {
		t.Errorf("delivery order = [%s %s], want [$b $c]", first.eventID, second.eventID)
	}
	if first.snapshotCount != 3 {
		t.Errorf("snapshot during delivery has %d events, want 3 (response applied before listeners)", first.snapshotCount)
	}
	if roomID := testutil.RequireReceive(t, activity, testTimeout, "waiting for room activity"); roomID != testRoomOne {
		t.Errorf("activity for %v, want %v", roomID, testRoomOne)
	}
	testutil.RequireNoReceive(t, activity, 50*time.Millisecond, "activity reported twice for one response")

	unsubscribe()
	if room.ListenerCount() != 0 {
		t.Errorf("ListenerCount() = %d after unsubscribe", room.ListenerCount())
	}
}

func TestClientLeftRoomRemoved(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{})
	states := watchStates(client)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	homeserver.replySync(initialResponse())
	requireState(t, states, SyncPrepared)

	homeserver.replySync(&messaging.SyncResponse{
		NextBatch: "batch_2",
		Rooms: messaging.RoomsSection{Leave: map[ref.RoomID]messaging.LeftRoom{
			testRoomOne: {},
		}},
	})
	requireState(t, states, SyncSyncing)
	if _, ok := client.Room(testRoomOne); ok {
		t.Error("left room still present")
	}
}

func TestClientStartConnectionError(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client, err := New(Config{
		HomeserverURL: homeserver.server.URL,
		UserID:        testSelf,
		AccessToken:   "wrong_token",
		Logger:        slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer client.Stop()

	err = client.Start(context.Background())
	var connectionErr *ConnectionError
	if !errors.As(err, &connectionErr) {
		t.Fatalf("Start error = %v, want *ConnectionError", err)
	}
	if !messaging.IsMatrixError(err, messaging.ErrCodeUnknownToken) {
		t.Errorf("ConnectionError should wrap the Matrix error, got %v", err)
	}
}

func TestClientStartUserMismatch(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	homeserver.whoami = testBob
	client := newTestClient(t, homeserver, clientOptions{})

	err := client.Start(context.Background())
	var connectionErr *ConnectionError
	if !errors.As(err, &connectionErr) {
		t.Fatalf("Start error = %v, want *ConnectionError", err)
	}
}

func TestClientStartTwice(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{})
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := client.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestClientStartRequiresEncryption(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{stateDir: t.TempDir()})

	err := client.Start(context.Background())
	var cryptoErr *CryptoInitError
	if !errors.As(err, &cryptoErr) {
		t.Fatalf("Start without InitEncryption = %v, want *CryptoInitError", err)
	}
}

func TestClientSyncRevoked(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{})
	states := watchStates(client)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	homeserver.failSync(http.StatusUnauthorized, messaging.ErrCodeUnknownToken)
	event := requireState(t, states, SyncError)
	if !errors.Is(event.Err, ErrSessionRevoked) {
		t.Errorf("SyncError err = %v, want ErrSessionRevoked", event.Err)
	}
}

func TestClientSyncReconnectBackoff(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	client := newTestClient(t, homeserver, clientOptions{clock: fakeClock})
	states := watchStates(client)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	homeserver.failSync(http.StatusBadGateway, messaging.ErrCodeUnknown)
	homeserver.failSync(http.StatusBadGateway, messaging.ErrCodeUnknown)
	homeserver.replySync(initialResponse())

	event := requireState(t, states, SyncReconnecting)
	if event.Err == nil {
		t.Error("SyncReconnecting should carry the failure")
	}
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Second)

	// The second failure keeps the state at SyncReconnecting but is
	// still reported, with a doubled backoff.
	requireState(t, states, SyncReconnecting)
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Second)
	testutil.RequireNoReceive(t, states, 50*time.Millisecond)
	fakeClock.Advance(time.Second)

	requireState(t, states, SyncPrepared)
}

func TestClientSyncRateLimited(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	client := newTestClient(t, homeserver, clientOptions{clock: fakeClock})
	states := watchStates(client)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	homeserver.syncs <- syncReply{
		status:       http.StatusTooManyRequests,
		errcode:      messaging.ErrCodeLimitExceeded,
		retryAfterMS: 1500,
	}
	homeserver.replySync(initialResponse())
	requireState(t, states, SyncReconnecting)

	// The server's retry_after_ms replaces the 1s default backoff.
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Second)
	testutil.RequireNoReceive(t, states, 50*time.Millisecond)
	fakeClock.Advance(500 * time.Millisecond)
	requireState(t, states, SyncPrepared)
}

func TestClientSendMessage(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{})

	eventID, err := client.SendText(context.Background(), testRoomOne, "hi there")
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if eventID.String() != "$sent" {
		t.Errorf("event ID = %s, want $sent", eventID)
	}
	homeserver.mu.Lock()
	sent := homeserver.sent
	homeserver.mu.Unlock()
	if len(sent) != 1 || sent[0]["body"] != "hi there" || sent[0]["msgtype"] != "m.text" {
		t.Errorf("sent content = %v", sent)
	}
}

func TestClientSendMessageError(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	homeserver.sendCode = http.StatusForbidden
	client := newTestClient(t, homeserver, clientOptions{})

	_, err := client.SendText(context.Background(), testRoomOne, "hi")
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("SendText error = %v, want *SendError", err)
	}
	if sendErr.RoomID != testRoomOne {
		t.Errorf("SendError.RoomID = %s, want %s", sendErr.RoomID, testRoomOne)
	}
	if !messaging.IsMatrixError(err, messaging.ErrCodeForbidden) {
		t.Errorf("SendError should wrap M_FORBIDDEN, got %v", err)
	}
}

func TestClientSendAfterStop(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{})
	client.Stop()

	_, err := client.SendText(context.Background(), testRoomOne, "hi")
	if !errors.Is(err, ErrNotStarted) {
		t.Errorf("SendText after Stop = %v, want ErrNotStarted", err)
	}
}

func TestClientLogout(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{})
	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	homeserver.mu.Lock()
	defer homeserver.mu.Unlock()
	if !homeserver.loggedOut {
		t.Error("homeserver did not see a logout request")
	}
}

func TestClientStopIdempotent(t *testing.T) {
	homeserver := newFakeHomeserver(t)
	client := newTestClient(t, homeserver, clientOptions{})
	states := watchStates(client)
	client.Stop()
	client.Stop()
	requireState(t, states, SyncStopped)
	testutil.RequireNoReceive(t, states, 50*time.Millisecond)
}

func TestClientRestoresCache(t *testing.T) {
	stateDir := t.TempDir()
	homeserver := newFakeHomeserver(t)

	first := newTestClient(t, homeserver, clientOptions{stateDir: stateDir})
	states := watchStates(first)
	if err := first.InitEncryption(context.Background()); err != nil {
		t.Fatalf("InitEncryption failed: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	homeserver.replySync(initialResponse())
	requireState(t, states, SyncPrepared)
	first.Stop()

	queriesBefore := len(homeserver.queries())
	second := newTestClient(t, homeserver, clientOptions{stateDir: stateDir})
	if err := second.InitEncryption(context.Background()); err != nil {
		t.Fatalf("InitEncryption (second) failed: %v", err)
	}
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("Start (second) failed: %v", err)
	}

	room, ok := second.Room(testRoomOne)
	if !ok {
		t.Fatal("restored client is missing room one")
	}
	if room.Name() != "zebra" {
		t.Errorf("restored name = %q, want zebra", room.Name())
	}
	snapshot := room.Snapshot()
	if len(snapshot) != 1 || snapshot[0].EventID.String() != "$a" {
		t.Errorf("restored timeline = %v, want [$a]", snapshot)
	}
	if body, _ := snapshot[0].ContentString("body"); body != "hello" {
		t.Errorf("restored body = %q, want hello", body)
	}

	deadline := time.Now().Add(testTimeout)
	for len(homeserver.queries()) == queriesBefore {
		if time.Now().After(deadline) {
			t.Fatal("restored client never sent a sync request")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if query := homeserver.queries()[queriesBefore]; !strings.Contains(query, "since=batch_1") {
		t.Errorf("restored client synced with %q, want since=batch_1", query)
	}
}
