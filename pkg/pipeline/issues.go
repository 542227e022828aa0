package pipeline

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/trackstats/trackstats/pkg/aggregate"
	"github.com/trackstats/trackstats/pkg/period"
	"github.com/trackstats/trackstats/pkg/render/chart"
	"github.com/trackstats/trackstats/pkg/report"
	"github.com/trackstats/trackstats/pkg/trackers/github"
)

// IssueSource reports on a GitHub issue tracker.
type IssueSource struct {
	Client *github.Client
	Owner  string
	Repo   string
	Query  github.IssueQuery
}

func (s *IssueSource) Name() string { return "issues" }

// Fetch pulls the issue listing for the configured repository.
func (s *IssueSource) Fetch(ctx context.Context, refresh bool) ([]github.Issue, error) {
	return s.Client.ListIssues(ctx, s.Owner, s.Repo, s.Query, refresh)
}

// Build summarizes the issues into the issue tracker report.
func (s *IssueSource) Build(issues []github.Issue, opts Options) (*report.Document, map[string][]byte, error) {
	doc := &report.Document{
		Title:     "Issue Report",
		Source:    s.Name(),
		Generated: time.Now().UTC(),
	}
	charts := make(map[string][]byte)

	open := 0
	for _, is := range issues {
		if is.State == "open" {
			open++
		}
	}
	doc.AddSection(report.Section{
		Title: "Overview",
		Tables: []report.Table{{
			Columns: []string{"Metric", "Value"},
			Rows: [][]string{
				{"Repository", s.Owner + "/" + s.Repo},
				{"Issues", strconv.Itoa(len(issues))},
				{"Open", strconv.Itoa(open)},
				{"Closed", strconv.Itoa(len(issues) - open)},
			},
		}},
	})

	// Created and closed series over the window.
	var createdIn, closedIn []github.Issue
	for _, is := range issues {
		if opts.InWindow(is.Created) {
			createdIn = append(createdIn, is)
		}
		if is.Closed != nil && opts.InWindow(*is.Closed) {
			closedIn = append(closedIn, is)
		}
	}

	periods := opts.Periods()
	createdSeries := aggregate.CountSeries(
		aggregate.Bucket(createdIn, issueCreated, opts.Granularity), periods, opts.Granularity)
	closedSeries := aggregate.CountSeries(
		aggregate.Bucket(closedIn, issueClosed, opts.Granularity), periods, opts.Granularity)
	netSeries := aggregate.Diff(createdSeries, closedSeries)

	labels := make([]string, len(periods))
	rows := make([][]string, len(periods))
	for i, p := range periods {
		labels[i] = period.Label(p, opts.Granularity)
		rows[i] = []string{
			labels[i],
			strconv.Itoa(createdSeries[i]),
			strconv.Itoa(closedSeries[i]),
			strconv.Itoa(netSeries[i]),
		}
	}
	trend := report.Section{
		Title: "Created and closed",
		Tables: []report.Table{{
			Title:     "Per period",
			Columns:   []string{"Period", "Created", "Closed", "Net"},
			Rows:      rows,
			Collapsed: len(rows) > opts.Top,
		}},
	}
	if opts.Charts {
		charts["charts/issues-created-closed.svg"] = chart.BarChart(labels, []chart.Series{
			{Label: "created", Values: createdSeries},
			{Label: "closed", Values: closedSeries},
		}, chart.WithTitle("Created vs closed"), chart.WithGranularity(opts.Granularity))
		trend.Artifacts = []report.Artifact{
			{Name: "Created vs closed", Path: "charts/issues-created-closed.svg"},
		}
	}
	doc.AddSection(trend)

	// Resolution time over issues closed in the window.
	var durations []time.Duration
	for _, is := range closedIn {
		if d, ok := is.ResolutionDuration(); ok {
			durations = append(durations, d)
		}
	}
	if stats, ok := aggregate.Summarize(durations); ok {
		doc.AddSection(report.Section{
			Title: "Resolution time",
			Tables: []report.Table{{
				Columns: []string{"Metric", "Value"},
				Rows: [][]string{
					{"Closed issues", strconv.Itoa(stats.Count)},
					{"Mean time to close", report.HumanDuration(stats.Mean)},
					{"Median time to close", report.HumanDuration(stats.Median)},
				},
			}},
		})
	} else {
		doc.AddSection(report.Section{
			Title: "Resolution time",
			Notes: []string{"No issues were closed in this window."},
		})
	}

	labelsFreq := aggregate.CountBy(flattenLabels(createdIn), func(l string) string { return l })
	doc.AddSection(report.Section{
		Title: "Labels",
		Tables: []report.Table{
			frequencyTable("New issues by label", "Label", labelsFreq, opts.Top),
		},
	})

	doc.AddSection(report.Section{
		Title: "Most reacted",
		Tables: []report.Table{
			issueTable(topByReactions(issues, opts.Top)),
		},
	})

	return doc, charts, nil
}

func flattenLabels(issues []github.Issue) []string {
	var out []string
	for _, is := range issues {
		for _, l := range is.Labels {
			out = append(out, l.Name)
		}
	}
	return out
}

func topByReactions(issues []github.Issue, top int) []github.Issue {
	sorted := make([]github.Issue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Reactions.TotalCount != sorted[j].Reactions.TotalCount {
			return sorted[i].Reactions.TotalCount > sorted[j].Reactions.TotalCount
		}
		return sorted[i].Number < sorted[j].Number
	})
	if len(sorted) > top {
		sorted = sorted[:top]
	}
	return sorted
}

func issueTable(issues []github.Issue) report.Table {
	rows := make([][]string, len(issues))
	for i, is := range issues {
		rows[i] = []string{
			"#" + strconv.Itoa(is.Number),
			is.Title,
			is.State,
			strconv.Itoa(is.Reactions.TotalCount),
			strconv.Itoa(is.Comments),
		}
	}
	return report.Table{
		Columns: []string{"Issue", "Title", "State", "Reactions", "Comments"},
		Rows:    rows,
	}
}

func issueCreated(is github.Issue) time.Time { return is.Created }

func issueClosed(is github.Issue) time.Time {
	if is.Closed == nil {
		return time.Time{}
	}
	return *is.Closed
}
