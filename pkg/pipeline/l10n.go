package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/trackstats/trackstats/pkg/report"
	"github.com/trackstats/trackstats/pkg/trackers/pontoon"
)

// completeThreshold is the approved share above which a locale counts
// as shippable.
const completeThreshold = 0.9

// L10nSource reports on localization progress of one project.
type L10nSource struct {
	Client  *pontoon.Client
	Project string
}

func (s *L10nSource) Name() string { return "l10n" }

// Fetch pulls the per-locale progress of the configured project.
func (s *L10nSource) Fetch(ctx context.Context, refresh bool) ([]pontoon.LocaleStats, error) {
	project, err := s.Client.ProjectStats(ctx, s.Project, refresh)
	if err != nil {
		return nil, err
	}
	return project.Locales, nil
}

// Build summarizes locale progress into the localization report.
func (s *L10nSource) Build(locales []pontoon.LocaleStats, opts Options) (*report.Document, map[string][]byte, error) {
	doc := &report.Document{
		Title:     "Localization Report",
		Source:    s.Name(),
		Generated: time.Now().UTC(),
	}

	complete := 0
	totalApproved, totalStrings := 0, 0
	for _, l := range locales {
		if l.Completion() >= completeThreshold {
			complete++
		}
		totalApproved += l.ApprovedStrings
		totalStrings += l.TotalStrings
	}
	overall := 1.0
	if totalStrings > 0 {
		overall = float64(totalApproved) / float64(totalStrings)
	}

	doc.AddSection(report.Section{
		Title: "Overview",
		Notes: []string{fmt.Sprintf("Project %q.", s.Project)},
		Tables: []report.Table{{
			Columns: []string{"Metric", "Value"},
			Rows: [][]string{
				{"Locales", strconv.Itoa(len(locales))},
				{"Shippable locales", strconv.Itoa(complete)},
				{"Overall completion", formatPercent(overall)},
			},
		}},
	})

	sorted := make([]pontoon.LocaleStats, len(locales))
	copy(sorted, locales)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := sorted[i].Completion(), sorted[j].Completion()
		if ci != cj {
			return ci > cj
		}
		return sorted[i].Code < sorted[j].Code
	})

	rows := make([][]string, len(sorted))
	for i, l := range sorted {
		rows[i] = []string{
			l.Code,
			l.Name,
			formatPercent(l.Completion()),
			strconv.Itoa(l.MissingStrings),
		}
	}
	doc.AddSection(report.Section{
		Title: "Per locale",
		Tables: []report.Table{{
			Columns:   []string{"Locale", "Name", "Completion", "Missing strings"},
			Rows:      rows,
			Collapsed: len(rows) > opts.Top,
		}},
	})

	return doc, nil, nil
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
