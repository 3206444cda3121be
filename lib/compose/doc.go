// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compose holds per-room message drafts and turns a submitted
// draft into an m.room.message.
//
// [Composer.Submit] accepts only Enter without Shift on a non-blank
// draft. Shift+Enter belongs to the text input as a newline. The draft is
// cleared on submit. [Send] does not retry. If it fails, the caller may
// [Composer.Restore] the draft so the text is not lost.
//
// Drafts are markdown. A draft that renders to anything beyond a single
// plain paragraph is sent with an HTML formatted_body alongside the
// plain body.
package compose
