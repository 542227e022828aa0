// Package github fetches issue listings from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trackstats/trackstats/pkg/cache"
	"github.com/trackstats/trackstats/pkg/trackers"
)

// pageSize is the per_page value used for issue listings. GitHub caps
// pages at 100 rows.
const pageSize = 100

// Label is an issue label.
type Label struct {
	Name string `json:"name"`
}

// Reactions summarises the emoji reactions on an issue.
type Reactions struct {
	TotalCount int `json:"total_count"`
	PlusOne    int `json:"+1"`
	MinusOne   int `json:"-1"`
}

// Issue is one issue from the REST API, reduced to the fields the
// reports consume. Pull requests are filtered out at decode time by
// the client, not here.
type Issue struct {
	Number        int        `json:"number"`
	Title         string     `json:"title"`
	State         string     `json:"state"`
	Comments      int        `json:"comments"`
	Labels        []Label    `json:"labels"`
	Reactions     Reactions  `json:"reactions"`
	IsPullRequest bool       `json:"-"`
	Created       time.Time  `json:"-"`
	Closed        *time.Time `json:"-"`
}

// issueWire carries the raw timestamps and the pull_request marker.
type issueWire struct {
	Number      int             `json:"number"`
	Title       string          `json:"title"`
	State       string          `json:"state"`
	Comments    int             `json:"comments"`
	Labels      []Label         `json:"labels"`
	Reactions   Reactions       `json:"reactions"`
	PullRequest json.RawMessage `json:"pull_request"`
	CreatedAt   string          `json:"created_at"`
	ClosedAt    string          `json:"closed_at"`
}

// UnmarshalJSON decodes an issue and parses its timestamps. closed_at
// is null for open issues and leaves Closed nil.
func (is *Issue) UnmarshalJSON(data []byte) error {
	var w issueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	created, err := trackers.ParseTime(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("issue %d created_at: %w", w.Number, err)
	}

	*is = Issue{
		Number:        w.Number,
		Title:         w.Title,
		State:         w.State,
		Comments:      w.Comments,
		Labels:        w.Labels,
		Reactions:     w.Reactions,
		IsPullRequest: len(w.PullRequest) > 0 && string(w.PullRequest) != "null",
		Created:       created,
	}
	if closed, err := trackers.ParseTime(w.ClosedAt); err == nil && !closed.IsZero() {
		is.Closed = &closed
	}
	return nil
}

// MarshalJSON emits the wire form so cached snapshots round-trip. The
// pull_request marker survives as an empty object.
func (is Issue) MarshalJSON() ([]byte, error) {
	w := issueWire{
		Number:    is.Number,
		Title:     is.Title,
		State:     is.State,
		Comments:  is.Comments,
		Labels:    is.Labels,
		Reactions: is.Reactions,
		CreatedAt: is.Created.UTC().Format(time.RFC3339),
	}
	if is.IsPullRequest {
		w.PullRequest = json.RawMessage(`{}`)
	}
	if is.Closed != nil {
		w.ClosedAt = is.Closed.UTC().Format(time.RFC3339)
	}
	return json.Marshal(w)
}

// ResolutionDuration returns how long the issue stayed open, when it
// was closed. The second return value is false for open issues.
func (is Issue) ResolutionDuration() (time.Duration, bool) {
	if is.Closed == nil {
		return 0, false
	}
	return is.Closed.Sub(is.Created), true
}

// HasLabel reports whether the issue carries the named label.
func (is Issue) HasLabel(name string) bool {
	for _, l := range is.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Client provides access to the GitHub REST API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*trackers.Client
	baseURL string
}

// NewClient creates a GitHub client. baseURL is normally
// "https://api.github.com"; token may be empty for anonymous access at
// reduced rate limits.
func NewClient(backend cache.Cache, ttl time.Duration, baseURL, token string) *Client {
	headers := map[string]string{
		"Accept": "application/vnd.github+json",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  trackers.NewClient(backend, "github:", ttl, headers),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// IssueQuery describes an issue listing.
type IssueQuery struct {
	State  string    // "open", "closed" or "all" (empty means "all")
	Labels []string  // optional label filter, comma-joined
	Since  time.Time // only issues updated at or after this instant
}

// values converts the query into REST parameters.
func (q IssueQuery) values() url.Values {
	v := url.Values{}
	state := q.State
	if state == "" {
		state = "all"
	}
	v.Set("state", state)
	if len(q.Labels) > 0 {
		v.Set("labels", strings.Join(q.Labels, ","))
	}
	if !q.Since.IsZero() {
		v.Set("since", q.Since.UTC().Format(time.RFC3339))
	}
	return v
}

// ListIssues returns every issue in owner/repo matching the query,
// walking numbered pages until a short page signals the end. Pull
// requests, which the issues endpoint includes, are dropped. The full
// result set is cached per repository and query.
func (c *Client) ListIssues(ctx context.Context, owner, repo string, q IssueQuery, refresh bool) ([]Issue, error) {
	params := q.values()
	key := fmt.Sprintf("issues/%s/%s?%s", owner, repo, params.Encode())

	var issues []Issue
	err := c.Cached(ctx, key, refresh, &issues, func() error {
		fetched, err := c.fetchAll(ctx, owner, repo, params)
		if err != nil {
			return err
		}
		issues = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func (c *Client) fetchAll(ctx context.Context, owner, repo string, params url.Values) ([]Issue, error) {
	var all []Issue
	for pageNum := 1; ; pageNum++ {
		page := make(url.Values, len(params))
		for k, v := range params {
			page[k] = v
		}
		page.Set("per_page", strconv.Itoa(pageSize))
		page.Set("page", strconv.Itoa(pageNum))

		var resp []Issue
		u := fmt.Sprintf("%s/repos/%s/%s/issues?%s", c.baseURL, owner, repo, page.Encode())
		if err := c.Get(ctx, u, &resp); err != nil {
			return nil, fmt.Errorf("github issues page %d: %w", pageNum, err)
		}

		for _, is := range resp {
			if !is.IsPullRequest {
				all = append(all, is)
			}
		}
		if len(resp) < pageSize {
			return all, nil
		}
	}
}
