package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/users"
)

const (
	DefaultRefreshPath  = "/token/refresh"
	DefaultIdentityPath = "/users/me"

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 512
)

// Client talks to the two auth endpoints of the backend API.
type Client struct {
	baseURL      string
	refreshPath  string
	identityPath string
	httpClient   *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithPaths(refreshPath, identityPath string) ClientOption {
	return func(c *Client) {
		if refreshPath != "" {
			c.refreshPath = refreshPath
		}
		if identityPath != "" {
			c.identityPath = identityPath
		}
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		refreshPath:  DefaultRefreshPath,
		identityPath: DefaultIdentityPath,
		httpClient:   http.DefaultClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	body, err := json.Marshal(RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("Client.Refresh marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.refreshPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Client.Refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out RefreshResponse
	if err := c.do(req, "Client.Refresh", &out); err != nil {
		return nil, err
	}
	if out.Access == "" {
		return nil, fmt.Errorf("Client.Refresh: %w: missing access", errs.ErrMalformedPayload)
	}
	return &out, nil
}

// Me fetches the identity behind accessToken. Intermediaries are told not to
// serve a cached copy.
func (c *Client) Me(ctx context.Context, accessToken string) (*users.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.identityPath, nil)
	if err != nil {
		return nil, fmt.Errorf("Client.Me request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	var out users.Response
	if err := c.do(req, "Client.Me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, errs.ErrMalformedPayload, err)
	}
	return nil
}

// RequestID returns the correlation id attached to req by the client.
func RequestID(req *http.Request) string {
	return req.Header.Get(requestIDHeader)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsUnauthorized reports a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsRejected reports an explicit credential rejection (401 or 403).
func IsRejected(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
