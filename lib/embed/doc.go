// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package embed resolves links in message bodies to oEmbed previews.
//
// A [Registry] holds provider URL schemes, loaded from the built-in
// providers.jsonc and an optional user file. [Resolver.Candidates]
// picks the tokens of a body some provider can embed. [Resolver.Resolve]
// fetches and caches the preview. Only "rich" and "video" responses
// produce a preview. Failures are logged at debug level and reported as
// a missing preview, never as an error to the caller.
package embed
