package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/trackstats/trackstats/pkg/aggregate"
	"github.com/trackstats/trackstats/pkg/period"
	"github.com/trackstats/trackstats/pkg/render/chart"
	"github.com/trackstats/trackstats/pkg/report"
	"github.com/trackstats/trackstats/pkg/trackers/discourse"
)

// ForumCategory selects one category to include in the forum report.
type ForumCategory struct {
	Slug string
	ID   int
	Name string
}

// ForumSource reports on support forum activity.
type ForumSource struct {
	Client     *discourse.Client
	Categories []ForumCategory
}

func (s *ForumSource) Name() string { return "forum" }

// Fetch pulls the topic listings of every configured category.
func (s *ForumSource) Fetch(ctx context.Context, refresh bool) ([]discourse.Topic, error) {
	var all []discourse.Topic
	for _, c := range s.Categories {
		topics, err := s.Client.ListTopics(ctx, c.Slug, c.ID, refresh)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", c.Slug, err)
		}
		all = append(all, topics...)
	}
	return all, nil
}

// Build summarizes the topics into the forum activity report.
func (s *ForumSource) Build(topics []discourse.Topic, opts Options) (*report.Document, map[string][]byte, error) {
	doc := &report.Document{
		Title:     "Forum Report",
		Source:    s.Name(),
		Generated: time.Now().UTC(),
	}
	charts := make(map[string][]byte)

	windowed := topicsInWindow(topics, opts)

	posts := 0
	for _, t := range windowed {
		posts += t.PostsCount
	}
	doc.AddSection(report.Section{
		Title: "Overview",
		Tables: []report.Table{{
			Columns: []string{"Metric", "Value"},
			Rows: [][]string{
				{"New topics", strconv.Itoa(len(windowed))},
				{"Posts in new topics", strconv.Itoa(posts)},
			},
		}},
	})

	// New topics per period.
	buckets := aggregate.Bucket(windowed, topicCreated, opts.Granularity)
	periods := opts.Periods()
	series := aggregate.CountSeries(buckets, periods, opts.Granularity)

	labels := make([]string, len(periods))
	rows := make([][]string, len(periods))
	for i, p := range periods {
		labels[i] = period.Label(p, opts.Granularity)
		rows[i] = []string{labels[i], strconv.Itoa(series[i])}
	}
	activity := report.Section{
		Title: "New topics",
		Tables: []report.Table{{
			Title:     "Per period",
			Columns:   []string{"Period", "Topics"},
			Rows:      rows,
			Collapsed: len(rows) > opts.Top,
		}},
	}
	if opts.Charts {
		charts["charts/forum-topics.svg"] = chart.BarChart(labels, []chart.Series{
			{Label: "topics", Values: series},
		}, chart.WithTitle("New topics"), chart.WithGranularity(opts.Granularity))
		activity.Artifacts = []report.Artifact{{Name: "New topics", Path: "charts/forum-topics.svg"}}
	}
	doc.AddSection(activity)

	doc.AddSection(report.Section{
		Title: "Busiest topics",
		Tables: []report.Table{
			topicTable(topTopics(windowed, opts.Top)),
		},
	})

	byCategory := aggregate.CountBy(windowed, s.categoryName)
	doc.AddSection(report.Section{
		Title: "Per category",
		Tables: []report.Table{
			frequencyTable("New topics by category", "Category", byCategory, opts.Top),
		},
	})

	return doc, charts, nil
}

// categoryName resolves a topic's category id against the configured
// categories, falling back to the raw id.
func (s *ForumSource) categoryName(t discourse.Topic) string {
	for _, c := range s.Categories {
		if c.ID == t.CategoryID {
			if c.Name != "" {
				return c.Name
			}
			return c.Slug
		}
	}
	return strconv.Itoa(t.CategoryID)
}

func topicsInWindow(topics []discourse.Topic, opts Options) []discourse.Topic {
	var out []discourse.Topic
	for _, t := range topics {
		if opts.InWindow(t.Created) {
			out = append(out, t)
		}
	}
	return out
}

func topTopics(topics []discourse.Topic, top int) []discourse.Topic {
	sorted := make([]discourse.Topic, len(topics))
	copy(sorted, topics)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PostsCount != sorted[j].PostsCount {
			return sorted[i].PostsCount > sorted[j].PostsCount
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > top {
		sorted = sorted[:top]
	}
	return sorted
}

func topicTable(topics []discourse.Topic) report.Table {
	rows := make([][]string, len(topics))
	for i, t := range topics {
		rows[i] = []string{
			t.Title,
			strconv.Itoa(t.PostsCount),
			strconv.Itoa(t.LikeCount),
			strconv.Itoa(t.Views),
		}
	}
	return report.Table{
		Columns: []string{"Topic", "Posts", "Likes", "Views"},
		Rows:    rows,
	}
}

func topicCreated(t discourse.Topic) time.Time { return t.Created }
