// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Gregoor/matrix-neo/lib/compose"
	"github.com/Gregoor/matrix-neo/lib/credstore"
	"github.com/Gregoor/matrix-neo/lib/embed"
	"github.com/Gregoor/matrix-neo/lib/matrixclient"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/secret"
	"github.com/Gregoor/matrix-neo/lib/session"
	"github.com/Gregoor/matrix-neo/lib/timeline"
	"github.com/Gregoor/matrix-neo/lib/tui"
)

// FocusRegion identifies which part of the main screen receives
// keyboard input.
type FocusRegion int

const (
	// FocusComposer routes keys to the message input.
	FocusComposer FocusRegion = iota
	// FocusRooms routes keys to room list navigation.
	FocusRooms
	// FocusFilter routes keys to the room filter input.
	FocusFilter
)

// Layout constants.
const (
	roomPaneMinWidth = 18
	roomPaneMaxWidth = 32
	composerHeight   = 3
	composerMaxLines = 8
)

// actionResultMsg reports the outcome of a session command.
type actionResultMsg struct {
	action string
	err    error
}

// sendResultMsg reports the outcome of a message send.
type sendResultMsg struct {
	outgoing compose.Outgoing
	eventID  ref.EventID
	err      error
}

// embedResolvedMsg reports that a preview lookup finished, with or
// without a result.
type embedResolvedMsg struct {
	url string
}

// activityTickMsg drives the fade of the room activity highlight.
type activityTickMsg struct{}

// Config holds the collaborators of a Model.
type Config struct {
	// Backend is the session the interface drives. Required.
	Backend Backend

	// Bridge delivers session, sync and timeline notifications. It must
	// be the bridge whose methods are wired into the session
	// controller's callbacks. Required.
	Bridge *Bridge

	// Resolver fetches link previews. Nil disables previews.
	Resolver *embed.Resolver

	// Location buckets messages into days. Nil means UTC.
	Location *time.Location

	// Homeserver is shown on the login form. Empty means the server is
	// taken from the user ID.
	Homeserver string

	// Context bounds the commands the model starts. Nil means
	// context.Background.
	Context context.Context

	// Theme and Keys default to DefaultTheme and DefaultKeyMap when
	// zero.
	Theme *tui.Theme
	Keys  *KeyMap
}

// Model is the bubbletea model of the chat client. It follows the
// session state: a loading screen, the login form, an error screen
// with retry, or the two-pane room and timeline view.
type Model struct {
	ctx        context.Context
	backend    Backend
	bridge     *Bridge
	resolver   *embed.Resolver
	theme      tui.Theme
	keys       KeyMap
	homeserver string

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	state     session.State
	syncState matrixclient.SyncState
	userID    string

	login loginForm
	focus FocusRegion

	rooms    roomList
	unread   map[ref.RoomID]bool
	activity *tui.ActivityTracker
	ticking  bool

	// Open room and its latest timeline computation.
	selector *timeline.Selector
	openRoom Room
	current  timeline.Update
	viewport viewport.Model

	composer *compose.Composer
	input    textarea.Model

	// URLs with a preview lookup in flight.
	pendingEmbeds map[string]bool

	notice         string
	noticeLevel    slog.Level
	noticeSequence uint64

	showHelp bool
}

// NewModel creates a Model from config. The timeline selector it
// creates reports to config.Bridge.
func NewModel(config Config) Model {
	ctx := config.Context
	if ctx == nil {
		ctx = context.Background()
	}
	theme := tui.DefaultTheme
	if config.Theme != nil {
		theme = *config.Theme
	}
	keys := DefaultKeyMap
	if config.Keys != nil {
		keys = *config.Keys
	}

	input := textarea.New()
	input.Placeholder = "Message… (enter send, alt+enter newline)"
	input.Prompt = "│ "
	input.CharLimit = 0
	input.SetHeight(composerHeight)
	input.MaxHeight = composerMaxLines
	input.ShowLineNumbers = false
	input.FocusedStyle.CursorLine = lipgloss.NewStyle()
	input.BlurredStyle.CursorLine = lipgloss.NewStyle()
	input.KeyMap.InsertNewline = keys.Newline
	input.Focus()

	return Model{
		ctx:           ctx,
		backend:       config.Backend,
		bridge:        config.Bridge,
		resolver:      config.Resolver,
		theme:         theme,
		keys:          keys,
		homeserver:    config.Homeserver,
		state:         config.Backend.State(),
		login:         newLoginForm(),
		rooms:         newRoomList(),
		unread:        make(map[ref.RoomID]bool),
		activity:      tui.NewActivityTracker(),
		selector:      timeline.NewSelector(config.Location, config.Bridge.TimelineUpdated),
		viewport:      viewport.New(80, 20),
		composer:      compose.New(),
		input:         input,
		pendingEmbeds: make(map[string]bool),
	}
}

// Init implements tea.Model. Starts listening on the bridge and loads
// the stored session.
func (model Model) Init() tea.Cmd {
	return tea.Batch(
		model.bridge.listen(),
		model.sessionCmd("start", model.backend.Start),
		textarea.Blink,
	)
}

// sessionCmd runs a blocking session operation off the update loop.
func (model Model) sessionCmd(action string, operation func(context.Context) error) tea.Cmd {
	ctx := model.ctx
	return func() tea.Msg {
		return actionResultMsg{action: action, err: operation(ctx)}
	}
}

// loginCmd submits the login form. The password buffer is closed once
// the backend returns.
func (model Model) loginCmd(username, password string) tea.Cmd {
	ctx := model.ctx
	backend := model.backend
	return func() tea.Msg {
		buffer, err := secret.NewFromString(password)
		if err != nil {
			return actionResultMsg{action: "login", err: err}
		}
		defer buffer.Close()
		return actionResultMsg{action: "login", err: backend.Login(ctx, username, buffer)}
	}
}

// sendCmd delivers one composed message.
func (model Model) sendCmd(outgoing compose.Outgoing) tea.Cmd {
	ctx := model.ctx
	backend := model.backend
	return func() tea.Msg {
		eventID, err := backend.Send(ctx, outgoing)
		return sendResultMsg{outgoing: outgoing, eventID: eventID, err: err}
	}
}

// resolveCmd looks up one preview. The result lands in the resolver's
// cache; the message only triggers a re-render.
func (model Model) resolveCmd(rawURL string) tea.Cmd {
	ctx := model.ctx
	resolver := model.resolver
	return func() tea.Msg {
		resolver.Resolve(ctx, rawURL)
		return embedResolvedMsg{url: rawURL}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.updatePaneSizes()
		model.refreshViewport(true)
		return model, nil

	case sessionStateMsg:
		return model.handleSessionState(message.state)

	case roomsChangedMsg:
		model.refreshRooms()
		return model, model.bridge.listen()

	case syncStateMsg:
		model.syncState = message.event.State
		return model, model.bridge.listen()

	case roomActivityMsg:
		return model.handleRoomActivity(message.roomID)

	case timelineMsg:
		commands := []tea.Cmd{model.bridge.listen()}
		// A recomputation queued before the last selection change
		// belongs to a room that is no longer open.
		if model.selector.IsCurrent(message.update) && message.update.Sequence > model.current.Sequence {
			commands = append(commands, model.applyUpdate(message.update, false)...)
		}
		return model, tea.Batch(commands...)

	case embedResolvedMsg:
		delete(model.pendingEmbeds, message.url)
		model.refreshViewport(false)
		return model, nil

	case actionResultMsg:
		return model.handleActionResult(message)

	case sendResultMsg:
		return model.handleSendResult(message)

	case activityTickMsg:
		if model.activity.Active(time.Now()) {
			return model, scheduleActivityTick()
		}
		model.ticking = false
		return model, nil

	case logRecordMsg:
		return model, model.setNotice(message.Summary, message.Level)

	case statusFadeMsg:
		if message.sequence == model.noticeSequence {
			model.notice = ""
		}
		return model, nil
	}

	// Cursor blink and other widget messages.
	if model.state.Kind == session.KindActive && model.focus == FocusComposer {
		var cmd tea.Cmd
		model.input, cmd = model.input.Update(message)
		return model, cmd
	}
	if model.state.Kind == session.KindLoggedOut {
		var cmd tea.Cmd
		model.login, cmd = model.login.update(message)
		return model, cmd
	}
	return model, nil
}

// setNotice shows text in the status bar and schedules its removal.
func (model *Model) setNotice(text string, level slog.Level) tea.Cmd {
	model.noticeSequence++
	model.notice = text
	model.noticeLevel = level
	sequence := model.noticeSequence
	return tea.Tick(statusFadeDelay, func(time.Time) tea.Msg {
		return statusFadeMsg{sequence: sequence}
	})
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(message, model.keys.Quit) {
		return model, tea.Quit
	}
	if model.showHelp {
		if key.Matches(message, model.keys.Help) || key.Matches(message, model.keys.Escape) {
			model.showHelp = false
		}
		return model, nil
	}

	switch model.state.Kind {
	case session.KindLoggedOut:
		return model.handleLoginKeys(message)
	case session.KindFailed:
		switch {
		case key.Matches(message, model.keys.Retry):
			return model, model.sessionCmd("retry", model.backend.Retry)
		case key.Matches(message, model.keys.Logout):
			return model, model.sessionCmd("logout", model.backend.Logout)
		}
		return model, nil
	case session.KindActive:
		return model.handleMainKeys(message)
	}
	return model, nil
}

func (model Model) handleLoginKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.FocusNext):
		model.login.focusNext()
		return model, nil

	case message.Type == tea.KeyEnter:
		if model.login.focused == 0 {
			model.login.focusNext()
			return model, nil
		}
		if !model.login.complete() {
			return model, nil
		}
		username, password := model.login.credentials()
		model.login.clearPassword()
		return model, model.loginCmd(username, password)
	}

	var cmd tea.Cmd
	model.login, cmd = model.login.update(message)
	return model, cmd
}

func (model Model) handleMainKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Help):
		model.showHelp = true
		return model, nil

	case key.Matches(message, model.keys.Logout):
		return model, model.sessionCmd("logout", model.backend.Logout)

	case key.Matches(message, model.keys.PageUp):
		model.viewport.SetYOffset(model.viewport.YOffset - max(model.viewport.Height-1, 1))
		return model, nil

	case key.Matches(message, model.keys.PageDown):
		model.viewport.SetYOffset(model.viewport.YOffset + max(model.viewport.Height-1, 1))
		return model, nil

	case key.Matches(message, model.keys.Bottom):
		model.viewport.GotoBottom()
		return model, nil

	case key.Matches(message, model.keys.Filter):
		model.setFocus(FocusFilter)
		return model, nil
	}

	switch model.focus {
	case FocusFilter:
		return model.handleFilterKeys(message)
	case FocusRooms:
		return model.handleRoomKeys(message)
	default:
		return model.handleComposerKeys(message)
	}
}

func (model Model) handleRoomKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.FocusNext), key.Matches(message, model.keys.Escape):
		model.setFocus(FocusComposer)
		return model, nil
	case key.Matches(message, model.keys.Up):
		model.rooms.moveUp()
	case key.Matches(message, model.keys.Down):
		model.rooms.moveDown()
	case key.Matches(message, model.keys.Select):
		var commands []tea.Cmd
		if room := model.rooms.current(); room != nil {
			commands = model.openRoomByValue(room)
		}
		model.setFocus(FocusComposer)
		return model, tea.Batch(commands...)
	}
	return model, nil
}

func (model Model) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Escape):
		// Esc clears the filter text first, then leaves the filter.
		if model.rooms.filter.Value() != "" {
			model.rooms.filter.SetValue("")
			model.rooms.applyFilter()
		} else {
			model.setFocus(FocusRooms)
		}
		return model, nil
	case message.Type == tea.KeyUp:
		model.rooms.moveUp()
		return model, nil
	case message.Type == tea.KeyDown:
		model.rooms.moveDown()
		return model, nil
	case message.Type == tea.KeyEnter:
		var commands []tea.Cmd
		if room := model.rooms.current(); room != nil {
			commands = model.openRoomByValue(room)
		}
		model.setFocus(FocusComposer)
		return model, tea.Batch(commands...)
	case key.Matches(message, model.keys.FocusNext):
		model.setFocus(FocusRooms)
		return model, nil
	}

	var cmd tea.Cmd
	model.rooms.filter, cmd = model.rooms.filter.Update(message)
	model.rooms.applyFilter()
	return model, cmd
}

func (model Model) handleComposerKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(message, model.keys.FocusNext) {
		model.setFocus(FocusRooms)
		return model, nil
	}
	if message.Type == tea.KeyEnter && model.openRoom != nil {
		roomID := model.openRoom.ID()
		model.composer.SetDraft(roomID, model.input.Value())
		outgoing, ok := model.composer.Submit(roomID, compose.Key{Name: compose.KeyEnter, Shift: message.Alt})
		if ok {
			model.input.Reset()
			return model, model.sendCmd(outgoing)
		}
		if !message.Alt {
			// A blank draft: enter does nothing.
			return model, nil
		}
	}

	var cmd tea.Cmd
	model.input, cmd = model.input.Update(message)
	if model.openRoom != nil {
		model.composer.SetDraft(model.openRoom.ID(), model.input.Value())
	}
	return model, cmd
}

// setFocus moves keyboard focus, blurring and focusing the inputs
// involved.
func (model *Model) setFocus(region FocusRegion) {
	model.focus = region
	if region == FocusComposer {
		model.input.Focus()
	} else {
		model.input.Blur()
	}
	if region == FocusFilter {
		model.rooms.filter.Focus()
	} else {
		model.rooms.filter.Blur()
	}
}

func (model Model) handleSessionState(state session.State) (tea.Model, tea.Cmd) {
	previous := model.state.Kind
	model.state = state
	commands := []tea.Cmd{model.bridge.listen()}

	if descriptor, ok := state.Descriptor(); ok {
		model.userID = descriptor.UserID
	} else {
		model.userID = ""
	}

	if state.Kind != session.KindActive {
		model.closeSession()
	}
	if state.Kind == session.KindActive && previous != session.KindActive {
		model.syncState = matrixclient.SyncIdle
		model.setFocus(FocusComposer)
		model.refreshRooms()
	}
	return model, tea.Batch(commands...)
}

// closeSession drops everything tied to the previous live client.
// Drafts are kept: they belong to rooms, not to a client.
func (model *Model) closeSession() {
	model.selector.Select(nil)
	model.openRoom = nil
	model.current = timeline.Update{}
	model.rooms.setRooms(nil)
	model.unread = make(map[ref.RoomID]bool)
	model.input.Reset()
	model.viewport.SetContent("")
	model.syncState = matrixclient.SyncIdle
}

// refreshRooms re-reads the room list. The open room is re-resolved by
// ID and closed if it is gone.
func (model *Model) refreshRooms() {
	if model.state.Kind != session.KindActive {
		return
	}
	model.rooms.setRooms(model.backend.Rooms())
	if model.openRoom == nil {
		return
	}
	if model.rooms.find(model.openRoom.ID()) == nil {
		model.selector.Select(nil)
		model.openRoom = nil
		model.current = timeline.Update{}
		model.input.Reset()
		model.refreshViewport(true)
	}
}

// openRoomByValue selects room, restores its draft and renders its
// timeline scrolled to the bottom. Returns preview lookups to start.
func (model *Model) openRoomByValue(room Room) []tea.Cmd {
	if model.openRoom != nil && model.openRoom.ID() == room.ID() {
		return nil
	}
	update := model.selector.Select(room)
	model.openRoom = room
	delete(model.unread, room.ID())
	model.activity.Forget(room.ID().String())
	model.input.SetValue(model.composer.Draft(room.ID()))
	model.current = timeline.Update{}
	return model.applyUpdate(update, true)
}

// applyUpdate stores a timeline computation and re-renders. The view
// stays pinned to the bottom when it was there.
func (model *Model) applyUpdate(update timeline.Update, toBottom bool) []tea.Cmd {
	model.current = update
	model.refreshViewport(toBottom)
	return model.embedLookups(update.Messages)
}

// embedLookups starts preview lookups for every candidate URL that is
// neither cached nor already in flight.
func (model *Model) embedLookups(messages []timeline.Message) []tea.Cmd {
	if model.resolver == nil {
		return nil
	}
	var commands []tea.Cmd
	for _, message := range messages {
		for _, rawURL := range model.resolver.Candidates(message.Body) {
			if _, done := model.resolver.Cached(rawURL); done || model.pendingEmbeds[rawURL] {
				continue
			}
			model.pendingEmbeds[rawURL] = true
			commands = append(commands, model.resolveCmd(rawURL))
		}
	}
	return commands
}

// refreshViewport re-renders the timeline content.
func (model *Model) refreshViewport(toBottom bool) {
	atBottom := model.viewport.AtBottom()
	renderer := timelineRenderer{
		theme: model.theme,
		width: model.viewport.Width,
		room:  model.openRoom,
	}
	if resolver := model.resolver; resolver != nil {
		renderer.candidates = resolver.Candidates
		renderer.previews = func(rawURL string) *embed.Preview {
			preview, _ := resolver.Cached(rawURL)
			return preview
		}
	}
	model.viewport.SetContent(renderer.render(model.current.Groups))
	if toBottom || atBottom {
		model.viewport.GotoBottom()
	}
}

func (model Model) handleRoomActivity(roomID ref.RoomID) (tea.Model, tea.Cmd) {
	commands := []tea.Cmd{model.bridge.listen()}
	if model.openRoom != nil && model.openRoom.ID() == roomID {
		return model, tea.Batch(commands...)
	}
	model.unread[roomID] = true
	model.activity.Touch(roomID.String(), time.Now())
	if !model.ticking {
		model.ticking = true
		commands = append(commands, scheduleActivityTick())
	}
	return model, tea.Batch(commands...)
}

func scheduleActivityTick() tea.Cmd {
	return tea.Tick(tui.ActivityTickInterval, func(time.Time) tea.Msg {
		return activityTickMsg{}
	})
}

func (model Model) handleActionResult(message actionResultMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.err == nil:
		return model, nil
	case errors.Is(message.err, session.ErrLoginInProgress):
		return model, model.setNotice("a login is already in progress", slog.LevelWarn)
	case message.action == "start" || message.action == "retry" || message.action == "login":
		// The resulting state carries the error and picks the screen.
		return model, nil
	}
	return model, model.setNotice(fmt.Sprintf("%s failed: %v", message.action, message.err), slog.LevelError)
}

func (model Model) handleSendResult(message sendResultMsg) (tea.Model, tea.Cmd) {
	if message.err == nil {
		return model, nil
	}
	if model.composer.Restore(message.outgoing) && model.openRoom != nil && model.openRoom.ID() == message.outgoing.RoomID {
		model.input.SetValue(message.outgoing.Draft)
	}
	return model, model.setNotice(message.err.Error(), slog.LevelError)
}

// updatePaneSizes recalculates pane dimensions after a resize.
func (model *Model) updatePaneSizes() {
	rightWidth := model.timelineWidth()
	model.input.SetWidth(rightWidth)
	// Header line, separator above the composer, status bar.
	viewportHeight := model.height - model.input.Height() - 3
	model.viewport.Width = rightWidth
	model.viewport.Height = max(viewportHeight, 1)
}

// roomPaneWidth returns the width of the room list in columns.
func (model Model) roomPaneWidth() int {
	return min(max(model.width/4, roomPaneMinWidth), roomPaneMaxWidth)
}

// timelineWidth returns the width of the right pane: the rest of the
// screen minus the divider.
func (model Model) timelineWidth() int {
	return max(model.width-model.roomPaneWidth()-1, 10)
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}

	var output string
	switch model.state.Kind {
	case session.KindLoading:
		output = model.renderMessage("Loading session…", nil)
	case session.KindLoggedOut, session.KindAuthenticating:
		errorText := ""
		if model.state.Err != nil && !errors.Is(model.state.Err, matrixclient.ErrSessionRevoked) {
			errorText = describeLoginError(model.state.Err)
		} else if model.state.Err != nil {
			errorText = "The session was signed out by the homeserver. Sign in again."
		}
		output = model.login.view(model.theme, model.width, model.height, model.homeserver, errorText,
			model.state.Kind == session.KindAuthenticating)
	case session.KindFailed:
		body := capLines(wrapText(describeError(model.state.Err), 56), 4)
		body = append(body, "", lipgloss.NewStyle().Foreground(model.theme.HelpText).Render("C-r retry · C-o sign out · C-c quit"))
		output = model.renderMessage("Could not start the session", body)
	default:
		output = model.renderMain()
	}

	if model.showHelp {
		output = tui.CenterOverlay(output, model.renderHelpBox(), model.width, model.height)
	}
	return output
}

// renderMessage centers a titled box on an empty screen.
func (model Model) renderMessage(title string, body []string) string {
	box := tui.RenderBox(model.theme, title, body, min(64, model.width))
	return tui.CenterOverlay(strings.Repeat("\n", max(model.height-1, 0)), box, model.width, model.height)
}

func (model Model) renderMain() string {
	roomWidth := model.roomPaneWidth()
	contentHeight := max(model.height-1, 1)

	roomPane := model.rooms.view(roomListView{
		theme:     model.theme,
		width:     roomWidth,
		height:    contentHeight,
		focused:   model.focus != FocusComposer,
		filtering: model.focus == FocusFilter,
		openID:    model.openID(),
		unread:    model.unread,
		activity:  model.activity,
		now:       time.Now(),
	})

	divider := lipgloss.NewStyle().Foreground(model.theme.BorderColor).
		Render(strings.TrimSuffix(strings.Repeat("│\n", contentHeight), "\n"))

	rightPane := lipgloss.JoinVertical(lipgloss.Left,
		model.renderTimelineHeader(),
		model.renderTimelineBody(),
		lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render(strings.Repeat("─", model.timelineWidth())),
		model.input.View(),
	)

	content := lipgloss.JoinHorizontal(lipgloss.Top, roomPane, divider, rightPane)
	status := statusBar{
		theme:  model.theme,
		width:  model.width,
		sync:   model.syncState,
		userID: model.userID,
		notice: model.notice,
		level:  model.noticeLevel,
		hint:   "F1 help",
	}
	return content + "\n" + status.view()
}

func (model Model) openID() ref.RoomID {
	if model.openRoom == nil {
		return ref.RoomID{}
	}
	return model.openRoom.ID()
}

func (model Model) renderTimelineHeader() string {
	width := model.timelineWidth()
	style := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground).Width(width)
	if model.openRoom == nil {
		return style.Render("")
	}
	return style.Render(ansi.Truncate(model.openRoom.Name(), width, "…"))
}

func (model Model) renderTimelineBody() string {
	width := model.timelineWidth()
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	placeholder := func(text string) string {
		return lipgloss.NewStyle().Width(width).Height(model.viewport.Height).Render(faint.Render(text))
	}

	switch {
	case model.openRoom == nil && model.syncState == matrixclient.SyncIdle:
		return placeholder("Syncing…")
	case model.openRoom == nil:
		return placeholder("Select a room: Tab to the room list, Enter to open.")
	case len(model.current.Groups) == 0:
		return placeholder("No messages yet.")
	}

	body := model.viewport.View()
	scrollbar := tui.RenderScrollbar(model.theme, model.viewport.Height,
		model.viewport.TotalLineCount(), model.viewport.Height, model.viewport.YOffset)
	if scrollbar == "" {
		return body
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, body, scrollbar)
}

func (model Model) renderHelpBox() []string {
	bindings := []key.Binding{
		model.keys.FocusNext, model.keys.Filter, model.keys.Escape,
		model.keys.Up, model.keys.Down, model.keys.Select,
		model.keys.PageUp, model.keys.PageDown, model.keys.Bottom,
		model.keys.Newline, model.keys.Retry, model.keys.Logout,
		model.keys.Help, model.keys.Quit,
	}
	var body []string
	for _, binding := range bindings {
		help := binding.Help()
		body = append(body, fmt.Sprintf("%-10s %s", help.Key, help.Desc))
	}
	body = append(body, fmt.Sprintf("%-10s %s", "Enter", "send message"))
	return tui.RenderBox(model.theme, "Keys", body, min(40, model.width))
}

// describeLoginError renders a failed login for the sign-in form.
func describeLoginError(err error) string {
	var validationErr *credstore.ValidationError
	if errors.As(err, &validationErr) {
		detail := validationErr.Reason
		if validationErr.Field != "" {
			detail = validationErr.Field + ": " + detail
		}
		return "The homeserver returned a malformed session (" + detail + ")."
	}
	return describeError(err)
}

// describeError renders an error for display. Typed errors of the
// session layer already carry user-facing text.
func describeError(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
