// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timeline turns a room's raw event history into what the chat
// view renders.
//
// [Messages] filters raw events down to text messages. [Group] buckets
// messages by local calendar day and coalesces repeated senders and
// minute labels across the whole sequence, so a message right after
// midnight from the same sender as the last message of the previous
// day still hides its sender. [Selector] holds the one room whose
// timeline is live and recomputes its groups on every new event.
package timeline
