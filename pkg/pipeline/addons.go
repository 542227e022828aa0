package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/trackstats/trackstats/pkg/aggregate"
	"github.com/trackstats/trackstats/pkg/render/chart"
	"github.com/trackstats/trackstats/pkg/report"
	"github.com/trackstats/trackstats/pkg/trackers/amo"
)

// AddonSource reports on the add-on ecosystem of one application
// release, keyed on declared compatibility ranges.
type AddonSource struct {
	Client *amo.Client
	Search amo.SearchQuery
	// App and AppVersion select the compatibility target, e.g.
	// "thunderbird" at "115.0".
	App        string
	AppVersion string
}

func (s *AddonSource) Name() string { return "addons" }

// Fetch pulls the full add-on listing for the configured search.
func (s *AddonSource) Fetch(ctx context.Context, refresh bool) ([]amo.Addon, error) {
	return s.Client.SearchAddons(ctx, s.Search, refresh)
}

// Build summarizes the listing into the add-on compatibility report.
func (s *AddonSource) Build(addons []amo.Addon, opts Options) (*report.Document, map[string][]byte, error) {
	doc := &report.Document{
		Title:     "Add-on Report",
		Source:    s.Name(),
		Generated: time.Now().UTC(),
	}
	charts := make(map[string][]byte)

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	compatible, incompatible, unknown := s.partition(addons, logger)

	doc.AddSection(report.Section{
		Title: "Overview",
		Notes: []string{fmt.Sprintf("Compatibility against %s %s.", s.App, s.AppVersion)},
		Tables: []report.Table{{
			Columns: []string{"Metric", "Value"},
			Rows: [][]string{
				{"Listed add-ons", strconv.Itoa(len(addons))},
				{"Compatible", strconv.Itoa(len(compatible))},
				{"Incompatible", strconv.Itoa(len(incompatible))},
				{"No compatibility data", strconv.Itoa(len(unknown))},
				{"Users on compatible add-ons", strconv.Itoa(sumUsers(compatible))},
				{"Users on incompatible add-ons", strconv.Itoa(sumUsers(incompatible))},
			},
		}},
	})

	if opts.Charts {
		labels := []string{"compatible", "incompatible", "unknown"}
		charts["charts/addons-compat.svg"] = chart.BarChart(labels, []chart.Series{{
			Label:  "add-ons",
			Values: []int{len(compatible), len(incompatible), len(unknown)},
		}}, chart.WithTitle(fmt.Sprintf("Add-on compatibility with %s %s", s.App, s.AppVersion)))
		doc.Sections[0].Artifacts = []report.Artifact{
			{Name: "Compatibility breakdown", Path: "charts/addons-compat.svg"},
		}
	}

	doc.AddSection(report.Section{
		Title: "Most used incompatible add-ons",
		Notes: []string{"Sorted by average daily users; these block upgrades the hardest."},
		Tables: []report.Table{
			addonTable(topByUsers(incompatible, opts.Top)),
		},
	})

	types := aggregate.CountBy(addons, func(a amo.Addon) string { return a.Type })
	doc.AddSection(report.Section{
		Title: "Add-on types",
		Tables: []report.Table{
			frequencyTable("By type", "Type", types, opts.Top),
		},
	})

	return doc, charts, nil
}

// partition splits the listing by declared compatibility with the
// configured application release. Add-ons whose version strings do not
// parse are reported at warning level and counted as unknown.
func (s *AddonSource) partition(addons []amo.Addon, logger *log.Logger) (compatible, incompatible, unknown []amo.Addon) {
	for _, a := range addons {
		if a.CurrentVersion == nil || len(a.CurrentVersion.Compatibility) == 0 {
			unknown = append(unknown, a)
			continue
		}
		ok, err := a.CurrentVersion.CheckCompatible(s.App, s.AppVersion)
		switch {
		case err != nil:
			logger.Warn("error parsing version", "addon", a.Slug, "err", err)
			unknown = append(unknown, a)
		case ok:
			compatible = append(compatible, a)
		default:
			incompatible = append(incompatible, a)
		}
	}
	return compatible, incompatible, unknown
}

func topByUsers(addons []amo.Addon, top int) []amo.Addon {
	sorted := make([]amo.Addon, len(addons))
	copy(sorted, addons)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].AverageDailyUsers != sorted[j].AverageDailyUsers {
			return sorted[i].AverageDailyUsers > sorted[j].AverageDailyUsers
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > top {
		sorted = sorted[:top]
	}
	return sorted
}

func addonTable(addons []amo.Addon) report.Table {
	rows := make([][]string, len(addons))
	for i, a := range addons {
		current := ""
		if a.CurrentVersion != nil {
			current = a.CurrentVersion.Version
		}
		rows[i] = []string{
			a.Name,
			current,
			strconv.Itoa(a.AverageDailyUsers),
			strconv.Itoa(a.WeeklyDownloads),
		}
	}
	return report.Table{
		Columns: []string{"Add-on", "Version", "Daily users", "Weekly downloads"},
		Rows:    rows,
	}
}

func sumUsers(addons []amo.Addon) int {
	n := 0
	for _, a := range addons {
		n += a.AverageDailyUsers
	}
	return n
}
