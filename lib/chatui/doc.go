// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the terminal interface of the chat client, built on
// bubbletea.
//
// The [Model] follows the session controller through its states. While
// logged out it shows a username and password form. A failed startup
// shows the error with a retry key. An active session shows the room
// list on the left and the open room's timeline above the composer on
// the right, with a status bar for the connection state and recent log
// notices.
//
// Everything that blocks (loading the stored session, logging in,
// sending, fetching link previews) runs in tea.Cmd goroutines. The
// session controller, the sync loop and the timeline selector report
// back through a [Bridge], whose methods are the callbacks those
// components take. The model re-arms the bridge listener after every
// notification it consumes.
//
// [LogHandler] routes slog records into the status bar, since writing
// to stderr would corrupt the alternate screen.
package chatui
