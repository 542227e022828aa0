// Package report defines the document model that the metric pipelines
// produce and the renderers consume.
//
// A report is a flat list of sections. Each section carries free-form
// notes, tables and references to chart artifacts written next to the
// report file. Keeping the model renderer-agnostic lets the same
// document go to markdown, CSV exports and the HTTP preview.
package report

import (
	"fmt"
	"time"
)

// Document is a complete generated report.
type Document struct {
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Generated time.Time `json:"generated"`
	Sections  []Section `json:"sections"`
}

// Section groups related tables and notes under one heading.
type Section struct {
	Title     string     `json:"title"`
	Notes     []string   `json:"notes,omitempty"`
	Tables    []Table    `json:"tables,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Table is a rendered-ready table. Every row must have exactly one cell
// per column. Collapsed tables render inside a folded details block so
// long tails do not dominate the page.
type Table struct {
	Title     string     `json:"title,omitempty"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Collapsed bool       `json:"collapsed,omitempty"`
}

// Artifact references a file generated alongside the report, such as an
// SVG chart. Path is relative to the report file.
type Artifact struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// AddSection appends a section and returns the document for chaining.
func (d *Document) AddSection(s Section) *Document {
	d.Sections = append(d.Sections, s)
	return d
}

// Validate checks that every table row matches its column count.
func (d *Document) Validate() error {
	for _, s := range d.Sections {
		for _, t := range s.Tables {
			for i, row := range t.Rows {
				if len(row) != len(t.Columns) {
					return fmt.Errorf("section %q table %q: row %d has %d cells, want %d",
						s.Title, t.Title, i, len(row), len(t.Columns))
				}
			}
		}
	}
	return nil
}

// HumanDuration formats a duration at the coarse granularity used in
// report tables. Durations under a minute render as seconds.
func HumanDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		days := int(d.Hours()) / 24
		hours := int(d.Hours()) % 24
		if hours == 0 {
			return fmt.Sprintf("%dd", days)
		}
		return fmt.Sprintf("%dd %dh", days, hours)
	case d >= time.Hour:
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
