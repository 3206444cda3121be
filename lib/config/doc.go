// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads neo's YAML configuration.
//
// The file is chosen by the --config flag or, failing that, the
// NEO_CONFIG environment variable. Without either, [Default] is used
// as-is: a chat client has to start on a machine that has never seen a
// config file. Values of the form ${VAR} or ${VAR:-default} in path
// fields are expanded from the environment after loading.
//
// Example:
//
//	homeserver: https://matrix.org
//	state_dir: ${XDG_STATE_HOME:-${HOME}/.local/state}/neo
//	timezone: Europe/Berlin
//	sync:
//	  timeout: 30s
//	  timeline_limit: 50
//	embed:
//	  enabled: true
//	  max_height: 300
//	  providers_file: ~/.config/neo/providers.jsonc
package config
