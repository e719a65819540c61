package cli

import (
	"testing"
	"time"
)

func TestFormatTokens(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1234, "1.2K"},
		{1_234_567, "1.2M"},
		{1_234_567_890, "1.2B"},
	}
	for _, c := range cases {
		if got := FormatTokens(c.in); got != c.want {
			t.Errorf("FormatTokens(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatCost(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{15, "$15.00"},
		{1.5, "$1.50"},
		{0.5, "$0.500"},
		{0.01, "$0.010"},
		{0.0042, "$0.0042"},
	}
	for _, c := range cases {
		if got := FormatCost(c.in); got != c.want {
			t.Errorf("FormatCost(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}
	for _, c := range cases {
		if got := FormatNumber(c.in); got != c.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatLineCount(t *testing.T) {
	if got := FormatLineCount(1200, 34); got != "+1,200 -34" {
		t.Errorf("got %q", got)
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ts   string
		want string
	}{
		{"2025-06-10T11:59:40Z", "just now"},
		{"2025-06-10T11:30:00Z", "30m ago"},
		{"2025-06-10T08:00:00Z", "4h ago"},
		{"2025-06-07T12:00:00Z", "3d ago"},
		{"not-a-time", "not-a-time"},
	}
	for _, c := range cases {
		if got := FormatRelativeTime(c.ts, now); got != c.want {
			t.Errorf("FormatRelativeTime(%q) = %q, want %q", c.ts, got, c.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0s"},
		{45, "45s"},
		{125, "2m"},
		{3725, "1h 2m"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.in); got != c.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
