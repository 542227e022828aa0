// Package amo fetches add-on listings and version compatibility data
// from an addons.mozilla.org style registry API.
package amo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trackstats/trackstats/pkg/cache"
	"github.com/trackstats/trackstats/pkg/trackers"
	"github.com/trackstats/trackstats/pkg/version"
)

// pageSize is the page size for search and version listings.
const pageSize = 50

// Addon is one listing from the registry search API.
type Addon struct {
	ID                int      `json:"id"`
	Slug              string   `json:"slug"`
	Name              string   `json:"name"`
	Type              string   `json:"type"`
	AverageDailyUsers int      `json:"average_daily_users"`
	WeeklyDownloads   int      `json:"weekly_downloads"`
	RatingsCount      int      `json:"ratings_count"`
	CurrentVersion    *Version `json:"current_version"`
}

// Version is one released version of an add-on, with its declared
// application compatibility ranges keyed by application name.
type Version struct {
	ID            int                      `json:"id"`
	Version       string                   `json:"version"`
	Compatibility map[string]version.Range `json:"compatibility"`
}

// CompatibleWith reports whether this add-on version declares
// compatibility with the given application at appVersion. Versions with
// no range for the application, or with unparsable bounds, count as
// incompatible.
func (v Version) CompatibleWith(app, appVersion string) bool {
	ok, err := v.CheckCompatible(app, appVersion)
	return err == nil && ok
}

// CheckCompatible is CompatibleWith with parse failures surfaced, so
// callers can log which version string broke. A version with no declared
// range for the application is incompatible without error.
func (v Version) CheckCompatible(app, appVersion string) (bool, error) {
	r, ok := v.Compatibility[app]
	if !ok {
		return false, nil
	}
	return version.Check(appVersion, r)
}

// page is the registry's standard paginated envelope.
type page[T any] struct {
	PageCount int    `json:"page_count"`
	Next      string `json:"next"`
	Results   []T    `json:"results"`
}

// Client provides access to the add-on registry API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*trackers.Client
	baseURL string
}

// NewClient creates a registry client for the given API base URL, e.g.
// "https://addons.thunderbird.net/api/v4".
func NewClient(backend cache.Cache, ttl time.Duration, baseURL string) *Client {
	return &Client{
		Client:  trackers.NewClient(backend, "amo:", ttl, nil),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// SearchQuery describes an add-on search.
type SearchQuery struct {
	App  string // application filter, e.g. "thunderbird"
	Type string // addon type filter, e.g. "extension"
	Sort string // sort order, e.g. "users"
}

// values converts the query into REST parameters.
func (q SearchQuery) values() url.Values {
	v := url.Values{}
	if q.App != "" {
		v.Set("app", q.App)
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

// SearchAddons returns every add-on matching the query, walking the
// page-numbered result pages. The full result set is cached per query.
func (c *Client) SearchAddons(ctx context.Context, q SearchQuery, refresh bool) ([]Addon, error) {
	params := q.values()
	key := "search?" + params.Encode()

	var addons []Addon
	err := c.Cached(ctx, key, refresh, &addons, func() error {
		fetched, err := fetchPages[Addon](ctx, c, "/addons/search/", params)
		if err != nil {
			return err
		}
		addons = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addons, nil
}

// ListVersions returns every released version of the add-on identified
// by slug, newest first as served by the API.
func (c *Client) ListVersions(ctx context.Context, slug string, refresh bool) ([]Version, error) {
	key := "versions/" + slug

	var versions []Version
	err := c.Cached(ctx, key, refresh, &versions, func() error {
		path := fmt.Sprintf("/addons/addon/%s/versions/", trackers.URLEncode(slug))
		fetched, err := fetchPages[Version](ctx, c, path, url.Values{})
		if err != nil {
			return err
		}
		versions = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// fetchPages walks numbered result pages until the API stops reporting
// a next page.
func fetchPages[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var all []T
	for pageNum := 1; ; pageNum++ {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(pageNum))
		q.Set("page_size", strconv.Itoa(pageSize))

		var resp page[T]
		u := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())
		if err := c.Get(ctx, u, &resp); err != nil {
			return nil, fmt.Errorf("registry page %d: %w", pageNum, err)
		}
		all = append(all, resp.Results...)

		if resp.Next == "" || pageNum >= resp.PageCount {
			return all, nil
		}
	}
}
