// Package codex fetches rate-limit status for Codex CLI accounts from the
// ChatGPT backend usage endpoint.
package codex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultUsageURL = "https://chatgpt.com/backend-api/wham/usage"
	requestTimeout  = 10 * time.Second
	maxBodySize     = 1 << 20
)

// ErrUnauthorized indicates the stored token was rejected even after a fresh
// re-read of the auth file.
var ErrUnauthorized = errors.New("codex: unauthorized (token rejected after refresh)")

// authFile mirrors the Codex CLI's ~/.codex/auth.json layout.
type authFile struct {
	Tokens struct {
		AccessToken string `json:"access_token"`
		AccountID   string `json:"account_id"`
	} `json:"tokens"`
}

// Window is one rolling rate-limit window.
type Window struct {
	UsedPercent     float64 `json:"used_percent"`
	WindowMinutes   int     `json:"window_minutes"`
	ResetsInSeconds int64   `json:"resets_in_seconds"`
}

// RateLimits pairs the short and long windows the backend reports.
type RateLimits struct {
	Primary   *Window `json:"primary"`
	Secondary *Window `json:"secondary"`
}

// UsageSnapshot is the parsed usage response.
type UsageSnapshot struct {
	PlanType   string     `json:"plan_type"`
	RateLimits RateLimits `json:"rate_limits"`
}

// AuthPath returns the default Codex CLI auth file location.
func AuthPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codex", "auth.json")
}

// ReadAuth reads the access token and account id from the auth file. Like the
// Anthropic credential file, it is re-read on every call because the CLI
// refreshes it out-of-band.
func ReadAuth(path string) (token, accountID string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading auth file: %w", err)
	}
	var af authFile
	if err := json.Unmarshal(data, &af); err != nil {
		return "", "", fmt.Errorf("parsing auth file: %w", err)
	}
	if af.Tokens.AccessToken == "" {
		return "", "", errors.New("auth file has no access token")
	}
	return af.Tokens.AccessToken, af.Tokens.AccountID, nil
}

// Client fetches usage snapshots for one auth file.
type Client struct {
	authPath string
	usageURL string
	http     *http.Client
}

// NewClient creates a client reading tokens from the given auth file.
func NewClient(authPath string) *Client {
	if authPath == "" {
		authPath = AuthPath()
	}
	return &Client{
		authPath: authPath,
		usageURL: defaultUsageURL,
		http:     &http.Client{},
	}
}

// FetchRateLimits returns the current usage snapshot, retrying exactly once
// with freshly re-read credentials on a 401.
func (c *Client) FetchRateLimits(ctx context.Context) (*UsageSnapshot, error) {
	token, accountID, err := ReadAuth(c.authPath)
	if err != nil {
		return nil, err
	}

	status, body, err := c.get(ctx, token, accountID)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		token, accountID, err = ReadAuth(c.authPath)
		if err != nil {
			return nil, err
		}
		status, body, err = c.get(ctx, token, accountID)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
	}

	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("codex: usage API status %d", status)
	}

	var snapshot UsageSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("codex: parsing usage response: %w", err)
	}
	return &snapshot, nil
}

// get performs one authenticated request and drains the body before the
// request timeout is released; returning an open body would let the deferred
// cancel kill a slow or chunked read mid-stream.
func (c *Client) get(ctx context.Context, token, accountID string) (status int, body []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.usageURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("codex: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if accountID != "" {
		req.Header.Set("ChatGPT-Account-Id", accountID)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("codex: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("codex: reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}
