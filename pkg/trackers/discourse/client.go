// Package discourse fetches category and topic listings from a
// Discourse forum's JSON API.
package discourse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/trackstats/trackstats/pkg/cache"
	"github.com/trackstats/trackstats/pkg/trackers"
)

// Category is a forum category with its posting statistics.
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	TopicCount  int    `json:"topic_count"`
	PostCount   int    `json:"post_count"`
	Description string `json:"description_text"`
}

// Topic is one forum thread, reduced to the fields the reports consume.
//
// Timestamps are parsed at decode time; LastPosted is nil for topics
// with no replies.
type Topic struct {
	ID         int        `json:"id"`
	Title      string     `json:"title"`
	CategoryID int        `json:"category_id"`
	PostsCount int        `json:"posts_count"`
	ReplyCount int        `json:"reply_count"`
	LikeCount  int        `json:"like_count"`
	Views      int        `json:"views"`
	Closed     bool       `json:"closed"`
	Created    time.Time  `json:"-"`
	LastPosted *time.Time `json:"-"`
}

// topicWire carries the raw timestamp strings alongside the typed fields.
type topicWire struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	CategoryID int    `json:"category_id"`
	PostsCount int    `json:"posts_count"`
	ReplyCount int    `json:"reply_count"`
	LikeCount  int    `json:"like_count"`
	Views      int    `json:"views"`
	Closed     bool   `json:"closed"`
	Created    string `json:"created_at"`
	LastPosted string `json:"last_posted_at"`
}

// UnmarshalJSON decodes a topic and parses its timestamps. A malformed
// created_at is an error; a malformed or absent last_posted_at leaves
// LastPosted nil.
func (t *Topic) UnmarshalJSON(data []byte) error {
	var w topicWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	created, err := trackers.ParseTime(w.Created)
	if err != nil {
		return fmt.Errorf("topic %d created_at: %w", w.ID, err)
	}

	*t = Topic{
		ID:         w.ID,
		Title:      w.Title,
		CategoryID: w.CategoryID,
		PostsCount: w.PostsCount,
		ReplyCount: w.ReplyCount,
		LikeCount:  w.LikeCount,
		Views:      w.Views,
		Closed:     w.Closed,
		Created:    created,
	}
	if last, err := trackers.ParseTime(w.LastPosted); err == nil && !last.IsZero() {
		t.LastPosted = &last
	}
	return nil
}

// MarshalJSON emits the wire form so cached snapshots round-trip.
func (t Topic) MarshalJSON() ([]byte, error) {
	w := topicWire{
		ID:         t.ID,
		Title:      t.Title,
		CategoryID: t.CategoryID,
		PostsCount: t.PostsCount,
		ReplyCount: t.ReplyCount,
		LikeCount:  t.LikeCount,
		Views:      t.Views,
		Closed:     t.Closed,
		Created:    t.Created.UTC().Format(time.RFC3339),
	}
	if t.LastPosted != nil {
		w.LastPosted = t.LastPosted.UTC().Format(time.RFC3339)
	}
	return json.Marshal(w)
}

// Client provides access to a Discourse forum's JSON API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*trackers.Client
	baseURL string
}

// NewClient creates a forum client for the given base URL, e.g.
// "https://discuss.example.org". apiKey and apiUser may be empty for
// anonymous access.
func NewClient(backend cache.Cache, ttl time.Duration, baseURL, apiKey, apiUser string) *Client {
	var headers map[string]string
	if apiKey != "" {
		headers = map[string]string{
			"Api-Key":      apiKey,
			"Api-Username": apiUser,
		}
	}
	return &Client{
		Client:  trackers.NewClient(backend, "discourse:", ttl, headers),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// ListCategories returns the forum's categories.
func (c *Client) ListCategories(ctx context.Context, refresh bool) ([]Category, error) {
	var categories []Category
	err := c.Cached(ctx, "categories", refresh, &categories, func() error {
		var resp struct {
			CategoryList struct {
				Categories []Category `json:"categories"`
			} `json:"category_list"`
		}
		if err := c.Get(ctx, c.baseURL+"/categories.json", &resp); err != nil {
			return fmt.Errorf("discourse categories: %w", err)
		}
		categories = resp.CategoryList.Categories
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// ListTopics returns every topic in the category identified by slug and
// id, following more_topics_url until the listing is exhausted. The
// full listing is cached per category.
func (c *Client) ListTopics(ctx context.Context, slug string, id int, refresh bool) ([]Topic, error) {
	key := fmt.Sprintf("topics/%s/%d", slug, id)

	var topics []Topic
	err := c.Cached(ctx, key, refresh, &topics, func() error {
		fetched, err := c.fetchTopics(ctx, fmt.Sprintf("/c/%s/%d.json", slug, id))
		if err != nil {
			return err
		}
		topics = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return topics, nil
}

// fetchTopics follows the listing's more_topics_url chain. Discourse
// returns the next page's path there, or omits it on the last page.
func (c *Client) fetchTopics(ctx context.Context, path string) ([]Topic, error) {
	var all []Topic
	for page := 0; path != ""; page++ {
		var resp struct {
			TopicList struct {
				MoreTopicsURL string  `json:"more_topics_url"`
				Topics        []Topic `json:"topics"`
			} `json:"topic_list"`
		}
		if err := c.Get(ctx, c.baseURL+path, &resp); err != nil {
			return nil, fmt.Errorf("discourse topics page %d: %w", page, err)
		}
		all = append(all, resp.TopicList.Topics...)
		path = nextPath(resp.TopicList.MoreTopicsURL)
	}
	return all, nil
}

// nextPath converts a more_topics_url value into a fetchable JSON path.
// The API hands back paths like "/c/support/7?page=1" without the .json
// suffix the endpoint wants.
func nextPath(more string) string {
	if more == "" {
		return ""
	}
	base, query := more, ""
	if i := strings.Index(more, "?"); i >= 0 {
		base, query = more[:i], more[i:]
	}
	if !strings.HasSuffix(base, ".json") {
		base += ".json"
	}
	return base + query
}
