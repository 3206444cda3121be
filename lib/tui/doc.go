// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides the terminal building blocks the chat interface
// is drawn with: the color theme, fzf-style fuzzy matching for the
// room filter, activity highlighting for rooms with new messages,
// centered overlays, and the scrollbar column.
//
// Nothing here knows about Matrix. Package chatui owns layout, input
// routing and domain rendering.
package tui
