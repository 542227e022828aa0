package discourse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trackstats/trackstats/pkg/cache"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	client := NewClient(backend, time.Hour, server.URL, "", "")
	client.SetHTTPClient(server.Client())
	return client
}

func TestListCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/categories.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"category_list": map[string]any{
				"categories": []map[string]any{
					{"id": 7, "name": "Support", "slug": "support", "topic_count": 1200},
					{"id": 9, "name": "Add-ons", "slug": "add-ons", "topic_count": 340},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)

	categories, err := client.ListCategories(context.Background(), false)
	if err != nil {
		t.Fatalf("ListCategories() error: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("ListCategories() returned %d categories, want 2", len(categories))
	}
	if categories[0].Slug != "support" || categories[0].TopicCount != 1200 {
		t.Errorf("first category = %+v", categories[0])
	}
}

func TestListTopicsFollowsMoreTopicsURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path + "?" + r.URL.RawQuery {
		case "/c/support/7.json?":
			json.NewEncoder(w).Encode(map[string]any{
				"topic_list": map[string]any{
					"more_topics_url": "/c/support/7?page=1",
					"topics": []map[string]any{
						{"id": 1, "title": "first", "created_at": "2024-03-01T09:00:00Z"},
						{"id": 2, "title": "second", "created_at": "2024-03-02T09:00:00Z"},
					},
				},
			})
		case "/c/support/7.json?page=1":
			json.NewEncoder(w).Encode(map[string]any{
				"topic_list": map[string]any{
					"topics": []map[string]any{
						{"id": 3, "title": "third", "created_at": "2024-03-03T09:00:00Z", "last_posted_at": "2024-03-04T09:00:00Z"},
					},
				},
			})
		default:
			t.Errorf("unexpected request %q", r.URL.String())
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)

	topics, err := client.ListTopics(context.Background(), "support", 7, false)
	if err != nil {
		t.Fatalf("ListTopics() error: %v", err)
	}
	if len(topics) != 3 {
		t.Fatalf("ListTopics() returned %d topics, want 3", len(topics))
	}
	want := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	if !topics[0].Created.Equal(want) {
		t.Errorf("Created = %v, want %v", topics[0].Created, want)
	}
	if topics[0].LastPosted != nil {
		t.Error("LastPosted should be nil when last_posted_at is absent")
	}
	if topics[2].LastPosted == nil {
		t.Error("LastPosted should be set on the third topic")
	}
}

func TestListTopicsCaches(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(map[string]any{
			"topic_list": map[string]any{"topics": []any{}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)

	if _, err := client.ListTopics(context.Background(), "support", 7, false); err != nil {
		t.Fatalf("ListTopics() error: %v", err)
	}
	if _, err := client.ListTopics(context.Background(), "support", 7, false); err != nil {
		t.Fatalf("ListTopics() error: %v", err)
	}
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1 (second listing should hit cache)", requests)
	}
}

func TestTopicRoundTrip(t *testing.T) {
	last := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	in := Topic{
		ID:         12,
		Title:      "search is slow",
		PostsCount: 4,
		Created:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		LastPosted: &last,
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var out Topic
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if out.ID != in.ID || !out.Created.Equal(in.Created) {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.LastPosted == nil || !out.LastPosted.Equal(last) {
		t.Errorf("LastPosted round trip mismatch: %v", out.LastPosted)
	}
}

func TestNextPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/c/support/7?page=1", "/c/support/7.json?page=1"},
		{"/c/support/7.json?page=2", "/c/support/7.json?page=2"},
		{"/c/support/7", "/c/support/7.json"},
	}
	for _, tt := range tests {
		if got := nextPath(tt.input); got != tt.want {
			t.Errorf("nextPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
