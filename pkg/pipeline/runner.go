package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/trackstats/trackstats/pkg/cache"
	"github.com/trackstats/trackstats/pkg/observability"
	"github.com/trackstats/trackstats/pkg/report"
)

// TTLReport bounds how long rendered artifacts stay cached. Snapshots
// carry their own TTL inside the tracker clients.
const TTLReport = 24 * time.Hour

// Source produces and summarizes the records of one tracker.
type Source[T any] interface {
	// Name identifies the source ("bugzilla", "addons", ...).
	Name() string

	// Fetch pulls the records, going through the response cache unless
	// refresh is set.
	Fetch(ctx context.Context, refresh bool) ([]T, error)

	// Build turns fetched records into a report document plus any
	// chart artifacts, keyed by relative path. Build must be
	// deterministic for a given record set and options.
	Build(records []T, opts Options) (*report.Document, map[string][]byte, error)
}

// Runner executes report pipelines with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely share one Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables artifact caching, a
// nil keyer selects the default key layout.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// Execute runs the complete fetch → build → render pipeline for one
// source. Rendered artifacts are cached under a key derived from the
// snapshot content, so an unchanged snapshot re-renders for free.
func Execute[T any](ctx context.Context, r *Runner, src Source[T], opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	hooks := observability.Report()

	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Fetch
	fetchStart := time.Now()
	hooks.OnFetchStart(ctx, src.Name())
	records, err := src.Fetch(ctx, opts.Refresh)
	hooks.OnFetchComplete(ctx, src.Name(), len(records), time.Since(fetchStart), err)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Name(), err)
	}
	result.Stats.FetchTime = time.Since(fetchStart)
	result.Stats.RecordCount = len(records)
	result.SnapshotHash = snapshotHash(records)

	r.Logger.Info("fetched records",
		"source", src.Name(),
		"count", len(records),
		"duration", result.Stats.FetchTime)

	// Cached artifacts short-circuit build and render.
	artifactKey := r.Keyer.ReportKey(result.SnapshotHash, cache.ReportKeyOpts{
		Granularity: opts.Granularity.String(),
		Sections:    artifactSections(opts),
	})
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, artifactKey); err == nil && hit {
			var cached cachedRun
			if err := json.Unmarshal(data, &cached); err == nil {
				result.Document = cached.Document
				result.Artifacts = cached.Artifacts
				result.CacheInfo.RenderHit = true
				return result, nil
			}
		}
	}

	// Stage 2: Build
	buildStart := time.Now()
	hooks.OnAggregateStart(ctx, src.Name(), len(records))
	doc, charts, err := src.Build(records, opts)
	hooks.OnAggregateComplete(ctx, src.Name(), time.Since(buildStart), err)
	if err != nil {
		return nil, fmt.Errorf("build %s report: %w", src.Name(), err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("build %s report: %w", src.Name(), err)
	}
	result.Document = doc
	result.Stats.BuildTime = time.Since(buildStart)

	r.Logger.Info("built report",
		"source", src.Name(),
		"sections", len(doc.Sections),
		"duration", result.Stats.BuildTime)

	// Stage 3: Render
	renderStart := time.Now()
	formats := renderFormats(opts)
	hooks.OnRenderStart(ctx, formats)
	artifacts, err := renderArtifacts(doc, charts)
	hooks.OnRenderComplete(ctx, formats, time.Since(renderStart), err)
	if err != nil {
		return nil, fmt.Errorf("render %s report: %w", src.Name(), err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)

	if data, err := json.Marshal(cachedRun{Document: doc, Artifacts: artifacts}); err == nil {
		_ = r.Cache.Set(ctx, artifactKey, data, TTLReport)
	}

	r.Logger.Info("rendered report",
		"source", src.Name(),
		"artifacts", len(artifacts),
		"duration", result.Stats.RenderTime)

	return result, nil
}

// cachedRun is the serialized form of a finished run.
type cachedRun struct {
	Document  *report.Document  `json:"document"`
	Artifacts map[string][]byte `json:"artifacts"`
}

// renderArtifacts produces the markdown page, one CSV per table and the
// chart files.
func renderArtifacts(doc *report.Document, charts map[string][]byte) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(charts)+1)
	artifacts["report.md"] = report.Markdown(doc)

	for _, s := range doc.Sections {
		for _, t := range s.Tables {
			data, err := report.CSV(t)
			if err != nil {
				return nil, err
			}
			artifacts["csv/"+slug(s.Title, t.Title)+".csv"] = data
		}
	}
	for path, data := range charts {
		artifacts[path] = data
	}
	return artifacts, nil
}

// slug flattens section and table titles into a file name.
func slug(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		for _, r := range strings.ToLower(p) {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				b.WriteRune(r)
			case r == ' ' || r == '-' || r == '_':
				b.WriteByte('-')
			}
		}
		b.WriteByte('-')
	}
	return strings.Trim(strings.ReplaceAll(b.String(), "--", "-"), "-")
}

// renderFormats lists the artifact formats a run produces.
func renderFormats(opts Options) []string {
	formats := []string{FormatMarkdown, FormatCSV}
	if opts.Charts {
		formats = append(formats, "svg")
	}
	return formats
}

// snapshotHash fingerprints a record set.
func snapshotHash[T any](records []T) string {
	data, _ := json.Marshal(records)
	return cache.Hash(data)
}

// artifactSections captures the option fields that change the rendered
// output, for the cache key.
func artifactSections(opts Options) []string {
	sections := []string{fmt.Sprintf("top=%d", opts.Top)}
	if opts.Charts {
		sections = append(sections, "charts")
	}
	if opts.GraphSVG {
		sections = append(sections, "graphsvg")
	}
	sections = append(sections,
		"start="+opts.Start.UTC().Format(time.RFC3339),
		"end="+opts.End.UTC().Format(time.RFC3339))
	return sections
}
