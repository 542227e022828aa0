// Package bugzilla fetches bug records from a Bugzilla REST API.
//
// Searches are paginated with offset/limit and cached as a single
// snapshot per query, so re-running a report against an unchanged cache
// is deterministic and free of API calls.
package bugzilla

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trackstats/trackstats/pkg/cache"
	"github.com/trackstats/trackstats/pkg/trackers"
)

// pageLimit is the page size used for search pagination. Bugzilla caps
// result pages at 1000 rows.
const pageLimit = 1000

// DefaultFields are the include_fields requested from the API. Limiting
// the field set keeps responses small enough for thousand-row pages.
var DefaultFields = []string{
	"id", "summary", "status", "resolution", "product", "component",
	"type", "priority", "severity", "keywords", "whiteboard", "creator",
	"votes", "duplicates", "is_open", "creation_time", "cf_last_resolved",
}

// Client provides access to a Bugzilla instance's REST API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*trackers.Client
	baseURL string
}

// NewClient creates a Bugzilla client for the given instance base URL,
// e.g. "https://bugzilla.mozilla.org". An apiKey may be empty for
// anonymous access to public bugs.
func NewClient(backend cache.Cache, ttl time.Duration, baseURL, apiKey string) *Client {
	var headers map[string]string
	if apiKey != "" {
		headers = map[string]string{"X-Bugzilla-API-Key": apiKey}
	}
	return &Client{
		Client:  trackers.NewClient(backend, "bugzilla:", ttl, headers),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Query describes a bug search.
type Query struct {
	Products   []string  // product names, at least one
	Components []string  // optional component filter
	Open       *bool     // nil for all bugs, otherwise filter on open state
	Since      time.Time // only bugs created at or after this instant (zero for all)
}

// values converts the query into REST parameters.
func (q Query) values() url.Values {
	v := url.Values{}
	for _, p := range q.Products {
		v.Add("product", p)
	}
	for _, c := range q.Components {
		v.Add("component", c)
	}
	if q.Open != nil {
		v.Set("is_open", strconv.FormatBool(*q.Open))
	}
	if !q.Since.IsZero() {
		v.Set("creation_time", q.Since.UTC().Format(time.RFC3339))
	}
	v.Set("include_fields", strings.Join(DefaultFields, ","))
	return v
}

// SearchBugs runs a paginated bug search and returns every matching bug.
// The full result set is cached under a key derived from the query; pass
// refresh to bypass the cache.
func (c *Client) SearchBugs(ctx context.Context, q Query, refresh bool) ([]Bug, error) {
	params := q.values()
	key := "search?" + params.Encode()

	var bugs []Bug
	err := c.Cached(ctx, key, refresh, &bugs, func() error {
		fetched, err := c.fetchAll(ctx, params)
		if err != nil {
			return err
		}
		bugs = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bugs, nil
}

// fetchAll walks offset/limit pages until a short page signals the end.
func (c *Client) fetchAll(ctx context.Context, params url.Values) ([]Bug, error) {
	var all []Bug
	for offset := 0; ; offset += pageLimit {
		page := make(url.Values, len(params))
		for k, v := range params {
			page[k] = v
		}
		page.Set("limit", strconv.Itoa(pageLimit))
		page.Set("offset", strconv.Itoa(offset))

		var resp struct {
			Bugs []Bug `json:"bugs"`
		}
		u := fmt.Sprintf("%s/rest/bug?%s", c.baseURL, page.Encode())
		if err := c.Get(ctx, u, &resp); err != nil {
			return nil, fmt.Errorf("bugzilla search (offset %d): %w", offset, err)
		}

		all = append(all, resp.Bugs...)
		if len(resp.Bugs) < pageLimit {
			return all, nil
		}
	}
}

// Index builds a lookup table from bug id to bug, as needed by the
// duplicate rollups.
func Index(bugs []Bug) map[int]Bug {
	index := make(map[int]Bug, len(bugs))
	for _, b := range bugs {
		index[b.ID] = b
	}
	return index
}
