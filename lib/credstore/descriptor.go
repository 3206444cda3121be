// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/Gregoor/matrix-neo/lib/ref"
)

// SessionDescriptor is the persisted proof of a successful login. It is
// a value type; copies are independent.
type SessionDescriptor struct {
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
	HomeServer  string `json:"home_server"`
	UserID      string `json:"user_id"`
}

// ValidationError reports a descriptor that does not match the schema.
type ValidationError struct {
	// Field is the JSON field name at fault, or empty when the document
	// as a whole failed to decode.
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "credstore: invalid session descriptor: " + e.Reason
	}
	return fmt.Sprintf("credstore: invalid session descriptor: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks every field. The first failure is returned.
func (d SessionDescriptor) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"access_token", d.AccessToken},
		{"device_id", d.DeviceID},
		{"home_server", d.HomeServer},
		{"user_id", d.UserID},
	}
	for _, entry := range required {
		if entry.value == "" {
			return &ValidationError{Field: entry.field, Reason: "required"}
		}
	}

	parsed, err := url.Parse(d.HomeServer)
	if err != nil {
		return &ValidationError{Field: "home_server", Reason: "not a URL", Err: err}
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return &ValidationError{Field: "home_server", Reason: fmt.Sprintf("%q is not an absolute http(s) URL", d.HomeServer)}
	}

	if _, err := ref.ParseUserID(d.UserID); err != nil {
		return &ValidationError{Field: "user_id", Reason: err.Error(), Err: err}
	}
	return nil
}

// ParsedUserID returns UserID as a ref.UserID. It assumes Validate has
// passed and returns the zero value otherwise.
func (d SessionDescriptor) ParsedUserID() ref.UserID {
	userID, _ := ref.ParseUserID(d.UserID)
	return userID
}

// Redacted returns a copy safe to log: the access token is replaced.
func (d SessionDescriptor) Redacted() SessionDescriptor {
	if d.AccessToken != "" {
		d.AccessToken = "<redacted>"
	}
	return d
}

// Encode validates d and renders it as JSON.
func Encode(d SessionDescriptor) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("credstore: encoding descriptor: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses data strictly: unknown fields, non-string values,
// trailing data and missing fields are all *ValidationError.
func Decode(data []byte) (SessionDescriptor, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var descriptor SessionDescriptor
	if err := decoder.Decode(&descriptor); err != nil {
		return SessionDescriptor{}, &ValidationError{Reason: err.Error(), Err: err}
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return SessionDescriptor{}, &ValidationError{Reason: "trailing data after descriptor"}
	}
	if err := descriptor.Validate(); err != nil {
		return SessionDescriptor{}, err
	}
	return descriptor, nil
}
