// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Gregoor/matrix-neo/lib/netutil"
	"github.com/Gregoor/matrix-neo/lib/ref"
	"github.com/Gregoor/matrix-neo/lib/secret"
)

// DefaultDeviceDisplayName is the device name shown in other clients'
// session lists when ClientConfig leaves it empty.
const DefaultDeviceDisplayName = "neo"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the homeserver
	// (e.g., "https://matrix.org"). See NormalizeHomeserver.
	HomeserverURL string
	// HTTPClient is used for all requests. If nil, a client without a
	// timeout is used: /sync long-polls are bounded by their context.
	HTTPClient *http.Client
	// DeviceDisplayName is sent with password login.
	DeviceDisplayName string
	// Logger is used for structured logging. If nil, slog.Default() is
	// used.
	Logger *slog.Logger
}

// Client is an unauthenticated Matrix client.
type Client struct {
	baseURL           string
	httpClient        *http.Client
	deviceDisplayName string
	logger            *slog.Logger
}

// NewClient creates a Client for the given homeserver.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, fmt.Errorf("messaging: HomeserverURL is required")
	}
	parsed, err := url.Parse(config.HomeserverURL)
	if err != nil {
		return nil, fmt.Errorf("messaging: invalid HomeserverURL %q: %w", config.HomeserverURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("messaging: HomeserverURL %q must use http or https", config.HomeserverURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	deviceDisplayName := config.DeviceDisplayName
	if deviceDisplayName == "" {
		deviceDisplayName = DefaultDeviceDisplayName
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:           strings.TrimRight(config.HomeserverURL, "/"),
		httpClient:        httpClient,
		deviceDisplayName: deviceDisplayName,
		logger:            logger,
	}, nil
}

// NormalizeHomeserver turns user input into a homeserver base URL. A
// bare server name ("matrix.org", "localhost:8008") becomes
// https://<name>. Anything with a scheme must be http or https and have
// a host. Paths, queries and fragments are rejected.
func NormalizeHomeserver(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("homeserver is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid homeserver %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("homeserver %q must use http or https", raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("homeserver %q has no host", raw)
	}
	if strings.Trim(parsed.Path, "/") != "" || parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", fmt.Errorf("homeserver %q must not have a path, query or fragment", raw)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}

// BaseURL returns the homeserver URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CloseIdleConnections closes idle pooled connections so the next
// request dials fresh after a network disruption.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Login authenticates with username and password. The password buffer
// is read but not closed; the caller retains ownership.
//
// The returned Session's UserID, DeviceID and access token come from
// the server's response, which may normalize the username.
func (c *Client) Login(ctx context.Context, username string, password *secret.Buffer) (*Session, error) {
	if username == "" {
		return nil, fmt.Errorf("messaging: username is required for login")
	}
	if password == nil || password.Len() == 0 {
		return nil, fmt.Errorf("messaging: password is required for login")
	}

	loginRequest := LoginRequest{
		Type:                     "m.login.password",
		Identifier:               &UserIdentifier{Type: "m.id.user", User: username},
		Password:                 password.String(),
		InitialDeviceDisplayName: c.deviceDisplayName,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/login", nil, loginRequest)
	if err != nil {
		return nil, fmt.Errorf("messaging: login failed: %w", err)
	}

	var authResponse AuthResponse
	if err := json.Unmarshal(body, &authResponse); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse login response: %w", err)
	}
	if authResponse.AccessToken == "" || authResponse.UserID.IsZero() {
		return nil, fmt.Errorf("messaging: login response missing access_token or user_id")
	}

	c.logger.Info("logged in to matrix",
		"user_id", authResponse.UserID,
		"device_id", authResponse.DeviceID,
	)
	return c.SessionFromToken(authResponse.UserID, authResponse.DeviceID, authResponse.AccessToken)
}

// SessionFromToken creates a Session from a persisted access token. The
// token is not validated; call WhoAmI for that.
//
// The caller must Close the returned Session.
func (c *Client) SessionFromToken(userID ref.UserID, deviceID, accessToken string) (*Session, error) {
	tokenBuffer, err := secret.NewFromString(accessToken)
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	return &Session{
		client:      c,
		accessToken: tokenBuffer,
		userID:      userID,
		deviceID:    deviceID,
	}, nil
}

// doRequest performs a request against the homeserver and returns the
// response body. Non-2xx responses become *MatrixError. accessToken is
// nil for unauthenticated endpoints.
func (c *Client) doRequest(ctx context.Context, method, path string, accessToken *secret.Buffer, requestBody any, query ...url.Values) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 && len(query[0]) > 0 {
		requestURL += "?" + query[0].Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("messaging: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to create request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if accessToken != nil {
		request.Header.Set("Authorization", "Bearer "+accessToken.String())
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("messaging: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to read response body: %w", err)
	}
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	var matrixErr MatrixError
	if jsonErr := json.Unmarshal(responseBody, &matrixErr); jsonErr != nil || matrixErr.Code == "" {
		return nil, fmt.Errorf("messaging: unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	matrixErr.StatusCode = response.StatusCode
	return nil, &matrixErr
}
