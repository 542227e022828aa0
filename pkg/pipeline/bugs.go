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
	"github.com/trackstats/trackstats/pkg/render/relgraph"
	"github.com/trackstats/trackstats/pkg/report"
	"github.com/trackstats/trackstats/pkg/rollup"
	"github.com/trackstats/trackstats/pkg/trackers/bugzilla"
)

// topDuplicateGraphs bounds how many duplicate trees get a diagram.
const topDuplicateGraphs = 3

// BugSource reports on a Bugzilla bug population.
type BugSource struct {
	Client *bugzilla.Client
	Query  bugzilla.Query
}

func (s *BugSource) Name() string { return "bugzilla" }

// Fetch pulls the full bug snapshot for the configured query.
func (s *BugSource) Fetch(ctx context.Context, refresh bool) ([]bugzilla.Bug, error) {
	return s.Client.SearchBugs(ctx, s.Query, refresh)
}

// Build summarizes the snapshot into the bug report document.
func (s *BugSource) Build(bugs []bugzilla.Bug, opts Options) (*report.Document, map[string][]byte, error) {
	doc := &report.Document{
		Title:     "Bug Report",
		Source:    s.Name(),
		Generated: time.Now().UTC(),
	}
	charts := make(map[string][]byte)

	doc.AddSection(bugOverview(bugs))

	trend, trendCharts := bugTrend(bugs, opts)
	doc.AddSection(trend)
	for path, data := range trendCharts {
		charts[path] = data
	}

	doc.AddSection(bugResolutionTimes(bugs, opts))
	doc.AddSection(bugFrequencies(bugs, opts))

	dupes, dupeCharts, err := bugDuplicates(bugs, opts)
	if err != nil {
		return nil, nil, err
	}
	doc.AddSection(dupes)
	for path, data := range dupeCharts {
		charts[path] = data
	}

	return doc, charts, nil
}

func bugOverview(bugs []bugzilla.Bug) report.Section {
	open, closed := 0, 0
	for _, b := range bugs {
		if b.IsOpen {
			open++
		} else {
			closed++
		}
	}
	return report.Section{
		Title: "Overview",
		Tables: []report.Table{{
			Columns: []string{"Metric", "Value"},
			Rows: [][]string{
				{"Total bugs", strconv.Itoa(len(bugs))},
				{"Open", strconv.Itoa(open)},
				{"Closed", strconv.Itoa(closed)},
			},
		}},
	}
}

// bugTrend builds the aligned created/closed/net series over the report
// window.
func bugTrend(bugs []bugzilla.Bug, opts Options) (report.Section, map[string][]byte) {
	created := aggregate.Bucket(filterByWindow(bugs, opts, creationTime), creationTime, opts.Granularity)

	var resolved []bugzilla.Bug
	for _, b := range bugs {
		if b.LastResolved != nil && opts.InWindow(*b.LastResolved) {
			resolved = append(resolved, b)
		}
	}
	closed := aggregate.Bucket(resolved, resolutionTime, opts.Granularity)

	periods := opts.Periods()
	createdSeries := aggregate.CountSeries(created, periods, opts.Granularity)
	closedSeries := aggregate.CountSeries(closed, periods, opts.Granularity)
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

	section := report.Section{
		Title: "Created and closed",
		Notes: []string{fmt.Sprintf("Bugs created and resolved per %s.", opts.Granularity)},
		Tables: []report.Table{{
			Columns:   []string{"Period", "Created", "Closed", "Net"},
			Rows:      rows,
			Collapsed: len(rows) > opts.Top,
			Title:     "Per period",
		}},
	}

	charts := make(map[string][]byte)
	if opts.Charts {
		charts["charts/bugs-created-closed.svg"] = chart.BarChart(labels, []chart.Series{
			{Label: "created", Values: createdSeries},
			{Label: "closed", Values: closedSeries},
		}, chart.WithTitle("Created vs closed"), chart.WithGranularity(opts.Granularity))
		charts["charts/bugs-net.svg"] = chart.LineChart(labels, []chart.Series{
			{Label: "net", Values: netSeries},
		}, chart.WithTitle("Net change"))
		section.Artifacts = []report.Artifact{
			{Name: "Created vs closed", Path: "charts/bugs-created-closed.svg"},
			{Name: "Net change", Path: "charts/bugs-net.svg"},
		}
	}
	return section, charts
}

// bugResolutionTimes summarizes how long bugs resolved in the window
// stayed open.
func bugResolutionTimes(bugs []bugzilla.Bug, opts Options) report.Section {
	var durations []time.Duration
	for _, b := range bugs {
		if b.LastResolved == nil || !opts.InWindow(*b.LastResolved) {
			continue
		}
		if d, ok := b.ResolutionDuration(); ok {
			durations = append(durations, d)
		}
	}

	stats, ok := aggregate.Summarize(durations)
	if !ok {
		return report.Section{
			Title: "Resolution time",
			Notes: []string{"No bugs were resolved in this window."},
		}
	}
	return report.Section{
		Title: "Resolution time",
		Tables: []report.Table{{
			Columns: []string{"Metric", "Value"},
			Rows: [][]string{
				{"Resolved bugs", strconv.Itoa(stats.Count)},
				{"Mean time to resolution", report.HumanDuration(stats.Mean)},
				{"Median time to resolution", report.HumanDuration(stats.Median)},
			},
		}},
	}
}

// bugFrequencies builds the component and severity frequency tables.
func bugFrequencies(bugs []bugzilla.Bug, opts Options) report.Section {
	windowed := filterByWindow(bugs, opts, creationTime)

	components := aggregate.CountBy(windowed, func(b bugzilla.Bug) string { return b.Component })
	severities := aggregate.CountBy(windowed, func(b bugzilla.Bug) string { return b.Severity })

	return report.Section{
		Title: "Where bugs land",
		Tables: []report.Table{
			frequencyTable("Components", "Component", components, opts.Top),
			frequencyTable("Severities", "Severity", severities, opts.Top),
		},
	}
}

// frequencyTable renders a CountBy result, collapsing past the cutoff.
func frequencyTable(title, keyColumn string, counts []aggregate.Count, top int) report.Table {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		key := c.Key
		if key == "" {
			key = "(none)"
		}
		rows[i] = []string{key, strconv.Itoa(c.N)}
	}
	return report.Table{
		Title:     title,
		Columns:   []string{keyColumn, "Count"},
		Rows:      rows,
		Collapsed: len(rows) > top,
	}
}

// bugDuplicates rolls up duplicate relations and reports the most
// duplicated bugs with their vote totals per discovery level.
func bugDuplicates(bugs []bugzilla.Bug, opts Options) (report.Section, map[string][]byte, error) {
	index := bugzilla.Index(bugs)

	records := make(map[int]rollup.Record[int], len(index))
	for id, b := range index {
		records[id] = rollup.Record[int]{Related: b.Duplicates, Value: b.Votes}
	}

	type rolled struct {
		id     int
		levels rollup.Levels
	}
	var ranked []rolled
	for _, b := range bugs {
		if len(b.Duplicates) == 0 {
			continue
		}
		levels := rollup.ByLevel(b.ID, records)
		if levels.Total() == 0 && len(levels) == 0 {
			continue
		}
		ranked = append(ranked, rolled{id: b.ID, levels: levels})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := dupCount(ranked[i].levels), dupCount(ranked[j].levels)
		if ci != cj {
			return ci > cj
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > opts.Top {
		ranked = ranked[:opts.Top]
	}

	rows := make([][]string, len(ranked))
	for i, r := range ranked {
		b := index[r.id]
		rows[i] = []string{
			strconv.Itoa(r.id),
			b.Summary,
			strconv.Itoa(dupCount(r.levels)),
			strconv.Itoa(r.levels.Total() + b.Votes),
		}
	}

	section := report.Section{
		Title: "Most duplicated",
		Notes: []string{"Duplicate chains are followed transitively; votes sum over the whole chain."},
		Tables: []report.Table{{
			Columns: []string{"Bug", "Summary", "Duplicates", "Votes incl. duplicates"},
			Rows:    rows,
		}},
	}

	charts := make(map[string][]byte)
	for i, r := range ranked {
		if i >= topDuplicateGraphs {
			break
		}
		nodes := make(map[int]relgraph.Node, len(index))
		for id, b := range index {
			nodes[id] = relgraph.Node{ID: id, Label: fmt.Sprintf("#%d %s", id, b.Summary), Related: b.Duplicates, Value: b.Votes}
		}
		dot := relgraph.ToDOT(r.id, nodes, relgraph.Options{Detailed: true})

		path := fmt.Sprintf("charts/duplicates-%d", r.id)
		if opts.GraphSVG {
			svg, err := relgraph.RenderSVG(dot)
			if err != nil {
				return report.Section{}, nil, fmt.Errorf("render duplicate graph for bug %d: %w", r.id, err)
			}
			charts[path+".svg"] = svg
			section.Artifacts = append(section.Artifacts, report.Artifact{
				Name: fmt.Sprintf("Duplicates of bug %d", r.id), Path: path + ".svg",
			})
		} else {
			charts[path+".gv"] = []byte(dot)
		}
	}
	return section, charts, nil
}

// dupCount counts the records reached by a rollup walk.
func dupCount(levels rollup.Levels) int {
	n := 0
	for _, c := range levels.Counts() {
		n += c
	}
	return n
}

func filterByWindow(bugs []bugzilla.Bug, opts Options, at func(bugzilla.Bug) time.Time) []bugzilla.Bug {
	var out []bugzilla.Bug
	for _, b := range bugs {
		if opts.InWindow(at(b)) {
			out = append(out, b)
		}
	}
	return out
}

func creationTime(b bugzilla.Bug) time.Time { return b.Created }

func resolutionTime(b bugzilla.Bug) time.Time {
	if b.LastResolved == nil {
		return time.Time{}
	}
	return *b.LastResolved
}
