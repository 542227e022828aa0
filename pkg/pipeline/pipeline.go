// Package pipeline provides the core reporting pipeline.
//
// This package implements the complete fetch → aggregate → render flow
// that both the CLI and the HTTP preview use. Centralizing it keeps the
// two entry points behaviorally identical.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Fetch: Pull records from a tracker API, through the response cache
//  2. Build: Bucket and summarize the records into a report document
//  3. Render: Emit markdown, CSV exports and chart artifacts
//
// Sources plug in through the [Source] interface; the record type stays
// generic so each tracker keeps its own typed snapshot.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	apperrors "github.com/trackstats/trackstats/pkg/errors"
	"github.com/trackstats/trackstats/pkg/period"
	"github.com/trackstats/trackstats/pkg/report"
)

const (
	// DefaultTop is the row cutoff for frequency tables.
	DefaultTop = 20

	// DefaultLookback bounds the report window when no explicit start
	// is given.
	DefaultLookback = 365 * 24 * time.Hour
)

// Artifact paths are relative to the report file.
const (
	FormatMarkdown = "md"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Options configures one report run.
type Options struct {
	// Granularity is the bucketing period.
	Granularity period.Granularity `json:"granularity"`
	// Start and End bound the report window, half-open [Start, End).
	// A zero Start falls back to End minus the default lookback; a
	// zero End means now.
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
	// Top is the row cutoff for frequency tables; rows beyond it move
	// into a collapsed tail.
	Top int `json:"top,omitempty"`
	// Charts enables SVG chart artifacts.
	Charts bool `json:"charts,omitempty"`
	// GraphSVG renders relation graphs through Graphviz instead of
	// emitting raw DOT. Needs the Graphviz WASM runtime, so tests and
	// fast paths leave it off.
	GraphSVG bool `json:"graph_svg,omitempty"`
	// Refresh bypasses the response cache.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if !o.Granularity.Valid() {
		return apperrors.New(apperrors.ErrCodeInvalidPeriod, "invalid granularity")
	}
	if o.End.IsZero() {
		o.End = time.Now().UTC()
	}
	if o.Start.IsZero() {
		o.Start = o.End.Add(-DefaultLookback)
	}
	if !o.Start.Before(o.End) {
		return apperrors.New(apperrors.ErrCodeInvalidPeriod, "start must precede end")
	}
	if o.Top <= 0 {
		o.Top = DefaultTop
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// Periods enumerates the start of every bucket in the report window.
func (o *Options) Periods() []time.Time {
	return period.Enumerate(o.Start, o.End, o.Granularity)
}

// InWindow reports whether t falls inside the report window.
func (o *Options) InWindow(t time.Time) bool {
	return !t.Before(o.Start) && t.Before(o.End)
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the structured report.
	Document *report.Document

	// SnapshotHash identifies the fetched records, for archive
	// cross-referencing.
	SnapshotHash string

	// Artifacts contains rendered outputs keyed by relative path, the
	// markdown page included.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RecordCount int
	FetchTime   time.Duration
	BuildTime   time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits per stage.
type CacheInfo struct {
	RenderHit bool // whether the rendered artifacts came from cache
}
