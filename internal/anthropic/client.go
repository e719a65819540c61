// Package anthropic fetches rate-limit status from the Anthropic OAuth usage
// API, authenticating with the token the CLI keeps on disk.
package anthropic

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
	defaultUsageURL = "https://api.anthropic.com/api/oauth/usage"
	oauthBetaHeader = "oauth-2025-04-20"
	requestTimeout  = 10 * time.Second
	maxBodySize     = 1 << 20 // 1 MB
)

// ErrUnauthorized indicates the stored token was rejected even after a fresh
// re-read, meaning the user needs to re-authenticate the CLI.
var ErrUnauthorized = errors.New("anthropic: unauthorized (token rejected after refresh)")

// CredentialsPath returns the default CLI credential file location.
func CredentialsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", ".credentials.json")
}

// ReadAccessToken reads the bearer token from the credential file. The file
// is re-read on every call: the CLI refreshes it out-of-band, so caching the
// token in-process would serve stale values. An expired token is returned
// as-is and the API's 401 handles it.
func ReadAccessToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", fmt.Errorf("parsing credentials: %w", err)
	}
	if creds.ClaudeAiOauth.AccessToken == "" {
		return "", errors.New("credentials file has no access token")
	}
	return creds.ClaudeAiOauth.AccessToken, nil
}

// Client fetches usage snapshots for one credential file.
type Client struct {
	credentialsPath string
	usageURL        string
	http            *http.Client
}

// NewClient creates a client reading tokens from the given credential file.
func NewClient(credentialsPath string) *Client {
	if credentialsPath == "" {
		credentialsPath = CredentialsPath()
	}
	return &Client{
		credentialsPath: credentialsPath,
		usageURL:        defaultUsageURL,
		http:            &http.Client{},
	}
}

// FetchRateLimits returns the current usage snapshot. On a 401 the token is
// re-read from disk (the CLI may have refreshed it) and the request retried
// exactly once; a second rejection surfaces as ErrUnauthorized.
func (c *Client) FetchRateLimits(ctx context.Context) (*UsageSnapshot, error) {
	token, err := ReadAccessToken(c.credentialsPath)
	if err != nil {
		return nil, err
	}

	status, body, err := c.get(ctx, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		token, err = ReadAccessToken(c.credentialsPath)
		if err != nil {
			return nil, err
		}
		status, body, err = c.get(ctx, token)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
	}

	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("anthropic: usage API status %d", status)
	}

	var snapshot UsageSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("anthropic: parsing usage response: %w", err)
	}
	return &snapshot, nil
}

// get performs one authenticated request and drains the body before the
// request timeout is released; returning an open body would let the deferred
// cancel kill a slow or chunked read mid-stream.
func (c *Client) get(ctx context.Context, token string) (status int, body []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.usageURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("anthropic: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("anthropic-beta", oauthBetaHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("anthropic: reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}
