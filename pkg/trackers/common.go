// Package trackers provides shared HTTP infrastructure for the
// project-tracking API clients (Bugzilla, add-on registry, Discourse,
// GitHub, Pontoon).
//
// Each source lives in its own subpackage and embeds [Client], which
// handles response caching, retry logic, rate limiting, and common
// request headers.
package trackers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const httpTimeout = 30 * time.Second

// UserAgent identifies report runs to the tracker APIs.
const UserAgent = "trackstats/1.0"

var (
	// ErrNotFound is returned when a resource doesn't exist in the tracker.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with a standard timeout for tracker requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// URLEncode percent-encodes a string for use in URLs.
// This is a convenience wrapper around [url.QueryEscape].
func URLEncode(s string) string { return url.QueryEscape(s) }

// ParseTime parses a tracker timestamp. Tracker APIs emit RFC 3339
// timestamps, some with a trailing "Z" and some with a numeric offset;
// both forms are accepted. An empty string yields the zero time without
// error, since optional timestamp fields are omitted for open records.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, strings.TrimSpace(s))
}
