// Package pontoon fetches localization progress from a Pontoon
// instance's GraphQL endpoint.
//
// Pontoon exposes GraphQL over plain GET with the query passed as a URL
// parameter, so the shared HTTP client and cache apply unchanged.
package pontoon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trackstats/trackstats/pkg/cache"
	"github.com/trackstats/trackstats/pkg/trackers"
)

// LocaleStats is the translation progress of one locale within a
// project.
type LocaleStats struct {
	Code                 string `json:"code"`
	Name                 string `json:"name"`
	ApprovedStrings      int    `json:"approvedStrings"`
	PretranslatedStrings int    `json:"pretranslatedStrings"`
	MissingStrings       int    `json:"missingStrings"`
	TotalStrings         int    `json:"totalStrings"`
}

// Completion returns the approved share of the locale's strings in the
// range [0, 1]. Locales with no strings count as complete.
func (l LocaleStats) Completion() float64 {
	if l.TotalStrings == 0 {
		return 1
	}
	return float64(l.ApprovedStrings) / float64(l.TotalStrings)
}

// Project is a localization project with per-locale progress.
type Project struct {
	Slug    string        `json:"slug"`
	Name    string        `json:"name"`
	Locales []LocaleStats `json:"locales"`
}

// Client provides access to a Pontoon GraphQL endpoint.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*trackers.Client
	baseURL string
}

// NewClient creates a Pontoon client for the given instance base URL,
// e.g. "https://pontoon.mozilla.org".
func NewClient(backend cache.Cache, ttl time.Duration, baseURL string) *Client {
	return &Client{
		Client:  trackers.NewClient(backend, "pontoon:", ttl, nil),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// projectQuery is the GraphQL document for a single project's locale
// progress. Whitespace is collapsed before it goes on the wire.
const projectQuery = `{
	project(slug: "%s") {
		slug
		name
		localizations {
			locale { code name }
			approvedStrings
			pretranslatedStrings
			missingStrings
			totalStrings
		}
	}
}`

// ProjectStats returns the per-locale translation progress of the
// project identified by slug. The result is cached per project.
func (c *Client) ProjectStats(ctx context.Context, slug string, refresh bool) (*Project, error) {
	key := "project/" + slug

	var project Project
	err := c.Cached(ctx, key, refresh, &project, func() error {
		fetched, err := c.fetchProject(ctx, slug)
		if err != nil {
			return err
		}
		project = *fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) fetchProject(ctx context.Context, slug string) (*Project, error) {
	query := compact(fmt.Sprintf(projectQuery, slug))

	var resp struct {
		Data struct {
			Project *struct {
				Slug          string `json:"slug"`
				Name          string `json:"name"`
				Localizations []struct {
					Locale struct {
						Code string `json:"code"`
						Name string `json:"name"`
					} `json:"locale"`
					ApprovedStrings      int `json:"approvedStrings"`
					PretranslatedStrings int `json:"pretranslatedStrings"`
					MissingStrings       int `json:"missingStrings"`
					TotalStrings         int `json:"totalStrings"`
				} `json:"localizations"`
			} `json:"project"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	u := c.baseURL + "/graphql?query=" + trackers.URLEncode(query)
	if err := c.Get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("pontoon project %q: %w", slug, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("pontoon project %q: %s", slug, resp.Errors[0].Message)
	}
	if resp.Data.Project == nil {
		return nil, trackers.ErrNotFound
	}

	p := &Project{
		Slug: resp.Data.Project.Slug,
		Name: resp.Data.Project.Name,
	}
	for _, loc := range resp.Data.Project.Localizations {
		p.Locales = append(p.Locales, LocaleStats{
			Code:                 loc.Locale.Code,
			Name:                 loc.Locale.Name,
			ApprovedStrings:      loc.ApprovedStrings,
			PretranslatedStrings: loc.PretranslatedStrings,
			MissingStrings:       loc.MissingStrings,
			TotalStrings:         loc.TotalStrings,
		})
	}
	return p, nil
}

// compact collapses runs of whitespace so the query fits a URL cleanly.
func compact(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
