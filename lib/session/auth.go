// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Gregoor/matrix-neo/lib/credstore"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/secret"
	"github.com/Gregoor/matrix-neo/messaging"
)

// AuthError reports a failed login. The cause is kept for errors.As;
// Error gives a message suitable for the login form.
type AuthError struct {
	Homeserver string
	Username   string
	Err        error
}

func (e *AuthError) Error() string {
	switch {
	case messaging.IsMatrixError(e.Err, messaging.ErrCodeForbidden):
		return "login failed: invalid username or password"
	case messaging.IsMatrixError(e.Err, messaging.ErrCodeDeactivated):
		return "login failed: account is deactivated"
	case messaging.IsMatrixError(e.Err, messaging.ErrCodeLimitExceeded):
		return "login failed: too many attempts, try again later"
	}
	return fmt.Sprintf("login failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Authenticator exchanges a username and password for a session
// descriptor. The password buffer stays owned by the caller.
type Authenticator interface {
	Login(ctx context.Context, username string, password *secret.Buffer) (credstore.SessionDescriptor, error)
}

// PasswordAuthenticator logs in with m.login.password.
type PasswordAuthenticator struct {
	// Homeserver is the server to log in to, as a URL or bare server
	// name. When empty, the username must be a full user ID and its
	// server name is used.
	Homeserver string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Login implements Authenticator. Every failure is an *AuthError.
func (a *PasswordAuthenticator) Login(ctx context.Context, username string, password *secret.Buffer) (credstore.SessionDescriptor, error) {
	username = strings.TrimSpace(username)
	homeserver, err := a.resolveHomeserver(username)
	if err != nil {
		return credstore.SessionDescriptor{}, &AuthError{Username: username, Err: err}
	}
	authErr := func(err error) error {
		return &AuthError{Homeserver: homeserver, Username: username, Err: err}
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: homeserver,
		HTTPClient:    a.HTTPClient,
		Logger:        a.Logger,
	})
	if err != nil {
		return credstore.SessionDescriptor{}, authErr(err)
	}
	defer client.CloseIdleConnections()

	session, err := client.Login(ctx, username, password)
	if err != nil {
		return credstore.SessionDescriptor{}, authErr(err)
	}
	defer session.Close()

	return credstore.SessionDescriptor{
		AccessToken: session.AccessToken(),
		DeviceID:    session.DeviceID(),
		HomeServer:  session.HomeserverURL(),
		UserID:      session.UserID().String(),
	}, nil
}

func (a *PasswordAuthenticator) resolveHomeserver(username string) (string, error) {
	raw := a.Homeserver
	if raw == "" {
		if !strings.HasPrefix(username, "@") {
			return "", errors.New("no homeserver configured; log in with a full user ID (@name:server)")
		}
		userID, err := ref.ParseUserID(username)
		if err != nil {
			return "", err
		}
		raw = userID.Server()
	}
	return messaging.NormalizeHomeserver(raw)
}
