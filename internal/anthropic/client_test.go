package anthropic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCredentials(t *testing.T, path, token string) {
	t.Helper()
	data := `{"claudeAiOauth":{"accessToken":"` + token + `","subscriptionType":"max"}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	credPath := filepath.Join(t.TempDir(), ".credentials.json")
	c := NewClient(credPath)
	c.usageURL = srv.URL
	return c, credPath
}

func TestFetchRateLimits(t *testing.T) {
	var gotAuth, gotBeta string
	c, credPath := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBeta = r.Header.Get("anthropic-beta")
		_, _ = w.Write([]byte(`{
			"five_hour": {"utilization": 42.5, "resets_at": "2025-06-10T15:00:00Z"},
			"seven_day": {"utilization": 80, "resets_at": "2025-06-14T00:00:00Z"},
			"extra_usage": {"is_enabled": true, "monthly_limit": 5000, "used_credits": 123.4}
		}`))
	}))
	writeCredentials(t, credPath, "tok-123")

	snap, err := c.FetchRateLimits(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBeta != "oauth-2025-04-20" {
		t.Errorf("anthropic-beta = %q", gotBeta)
	}
	if snap.FiveHour == nil || snap.FiveHour.Utilization != 42.5 {
		t.Errorf("FiveHour = %+v", snap.FiveHour)
	}
	if snap.SevenDay == nil || snap.SevenDay.ResetsAt != "2025-06-14T00:00:00Z" {
		t.Errorf("SevenDay = %+v", snap.SevenDay)
	}
	if snap.SevenDayOpus != nil {
		t.Errorf("SevenDayOpus should be absent, got %+v", snap.SevenDayOpus)
	}
	if snap.ExtraUsage == nil || !snap.ExtraUsage.IsEnabled || snap.ExtraUsage.UsedCredits != 123.4 {
		t.Errorf("ExtraUsage = %+v", snap.ExtraUsage)
	}
}

func TestFetchRateLimits_StreamedResponseBody(t *testing.T) {
	// The server flushes a partial body and finishes it after a pause, so the
	// response cannot be buffered in a single read. The request context must
	// stay alive until the whole body has been drained.
	c, credPath := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"five_hour": {"utilization": 42.5,`))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`"resets_at": "2025-06-10T15:00:00Z"}}`))
	}))
	writeCredentials(t, credPath, "tok")

	snap, err := c.FetchRateLimits(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.FiveHour == nil || snap.FiveHour.Utilization != 42.5 {
		t.Errorf("FiveHour = %+v", snap.FiveHour)
	}
	if snap.FiveHour.ResetsAt != "2025-06-10T15:00:00Z" {
		t.Errorf("ResetsAt = %q", snap.FiveHour.ResetsAt)
	}
}

func TestFetchRateLimits_RetriesOnceAfterTokenRefresh(t *testing.T) {
	var tokens []string
	var credPath string
	c, p := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("Authorization"))
		if len(tokens) == 1 {
			// Reject the stale token and refresh the file on disk, the way
			// the CLI would out-of-band.
			writeCredentials(t, credPath, "fresh")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"five_hour":{"utilization":1,"resets_at":""}}`))
	}))
	credPath = p
	writeCredentials(t, credPath, "stale")

	snap, err := c.FetchRateLimits(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.FiveHour == nil {
		t.Fatal("expected snapshot after retry")
	}
	if len(tokens) != 2 || tokens[0] != "Bearer stale" || tokens[1] != "Bearer fresh" {
		t.Errorf("token sequence = %v", tokens)
	}
}

func TestFetchRateLimits_PersistentUnauthorized(t *testing.T) {
	calls := 0
	c, credPath := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	writeCredentials(t, credPath, "bad")

	_, err := c.FetchRateLimits(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want exactly 2 (one retry)", calls)
	}
}

func TestFetchRateLimits_ServerError(t *testing.T) {
	c, credPath := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	writeCredentials(t, credPath, "tok")

	if _, err := c.FetchRateLimits(context.Background()); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestReadAccessToken(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := ReadAccessToken(filepath.Join(dir, "nope.json")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		p := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(p, []byte("{"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadAccessToken(p); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty token", func(t *testing.T) {
		p := filepath.Join(dir, "empty.json")
		if err := os.WriteFile(p, []byte(`{"claudeAiOauth":{}}`), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadAccessToken(p); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("valid", func(t *testing.T) {
		p := filepath.Join(dir, "good.json")
		writeCredentials(t, p, "tok-xyz")
		tok, err := ReadAccessToken(p)
		if err != nil {
			t.Fatal(err)
		}
		if tok != "tok-xyz" {
			t.Errorf("token = %q", tok)
		}
	})
}
