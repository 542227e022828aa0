package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
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

	client := NewClient(backend, time.Hour, server.URL, "")
	client.SetHTTPClient(server.Client())
	return client
}

func TestListIssuesPaginates(t *testing.T) {
	// 150 issues need two pages at the 100-row page size.
	const total = 150

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/example/mailclient/issues" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept = %q", got)
		}
		pageNum, _ := strconv.Atoi(r.URL.Query().Get("page"))

		var issues []map[string]any
		for i := (pageNum - 1) * pageSize; i < total && i < pageNum*pageSize; i++ {
			issues = append(issues, map[string]any{
				"number":     i + 1,
				"title":      fmt.Sprintf("issue %d", i+1),
				"state":      "open",
				"created_at": "2024-03-15T10:30:00Z",
			})
		}
		json.NewEncoder(w).Encode(issues)
	}))
	defer server.Close()

	client := newTestClient(t, server)

	issues, err := client.ListIssues(context.Background(), "example", "mailclient", IssueQuery{}, false)
	if err != nil {
		t.Fatalf("ListIssues() error: %v", err)
	}
	if len(issues) != total {
		t.Fatalf("ListIssues() returned %d issues, want %d", len(issues), total)
	}
	if issues[total-1].Number != total {
		t.Errorf("last issue number = %d, want %d", issues[total-1].Number, total)
	}
}

func TestListIssuesDropsPullRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"number": 1, "title": "real issue", "state": "open", "created_at": "2024-03-15T10:30:00Z"},
			{
				"number": 2, "title": "a PR", "state": "open", "created_at": "2024-03-15T10:30:00Z",
				"pull_request": map[string]any{"url": "https://example.test/pulls/2"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)

	issues, err := client.ListIssues(context.Background(), "example", "mailclient", IssueQuery{}, false)
	if err != nil {
		t.Fatalf("ListIssues() error: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("ListIssues() returned %d issues, want 1 (pull request should be dropped)", len(issues))
	}
	if issues[0].Number != 1 {
		t.Errorf("kept issue number = %d, want 1", issues[0].Number)
	}
}

func TestIssueTimestampsAndReactions(t *testing.T) {
	data := []byte(`{
		"number": 7,
		"title": "crash on filter",
		"state": "closed",
		"comments": 3,
		"labels": [{"name": "bug"}, {"name": "crash"}],
		"reactions": {"total_count": 11, "+1": 9, "-1": 1},
		"created_at": "2024-01-01T00:00:00Z",
		"closed_at": "2024-01-08T00:00:00Z"
	}`)

	var is Issue
	if err := json.Unmarshal(data, &is); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if is.Reactions.TotalCount != 11 || is.Reactions.PlusOne != 9 {
		t.Errorf("Reactions = %+v", is.Reactions)
	}
	if !is.HasLabel("crash") || is.HasLabel("enhancement") {
		t.Error("HasLabel() mismatch")
	}

	d, ok := is.ResolutionDuration()
	if !ok {
		t.Fatal("ResolutionDuration() should report a duration")
	}
	if want := 7 * 24 * time.Hour; d != want {
		t.Errorf("ResolutionDuration() = %v, want %v", d, want)
	}
}

func TestIssueRoundTrip(t *testing.T) {
	closed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	in := Issue{
		Number:        3,
		Title:         "flaky sync",
		State:         "closed",
		IsPullRequest: true,
		Created:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Closed:        &closed,
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var out Issue
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !out.IsPullRequest {
		t.Error("IsPullRequest should survive a round trip")
	}
	if out.Closed == nil || !out.Closed.Equal(closed) {
		t.Errorf("Closed round trip mismatch: %v", out.Closed)
	}
}

func TestIssueQueryValues(t *testing.T) {
	q := IssueQuery{
		State:  "open",
		Labels: []string{"bug", "crash"},
		Since:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	v := q.values()
	if got := v.Get("labels"); got != "bug,crash" {
		t.Errorf("labels = %q, want %q", got, "bug,crash")
	}
	if got := v.Get("since"); got != "2024-01-01T00:00:00Z" {
		t.Errorf("since = %q", got)
	}

	if got := (IssueQuery{}).values().Get("state"); got != "all" {
		t.Errorf("default state = %q, want %q", got, "all")
	}
}
