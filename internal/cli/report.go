package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/trackstats/trackstats/pkg/archive"
	"github.com/trackstats/trackstats/pkg/cache"
	"github.com/trackstats/trackstats/pkg/config"
	"github.com/trackstats/trackstats/pkg/period"
	"github.com/trackstats/trackstats/pkg/pipeline"
	"github.com/trackstats/trackstats/pkg/trackers/amo"
	"github.com/trackstats/trackstats/pkg/trackers/bugzilla"
	"github.com/trackstats/trackstats/pkg/trackers/discourse"
	"github.com/trackstats/trackstats/pkg/trackers/github"
	"github.com/trackstats/trackstats/pkg/trackers/pontoon"
)

// dateLayout is the flag format for --start and --end.
const dateLayout = "2006-01-02"

// reportFlags carries the flag values shared by every report subcommand.
type reportFlags struct {
	periodName string
	start      string
	end        string
	top        int
	charts     bool
	graphSVG   bool
	refresh    bool
	noCache    bool
	noArchive  bool
	outDir     string
}

// reportCommand creates the report command and its per-source subcommands.
func (c *CLI) reportCommand() *cobra.Command {
	f := &reportFlags{}

	cmd := &cobra.Command{
		Use:   "report [source]",
		Short: "Generate a metrics report for one tracker",
		Long: `Generate a metrics report for one tracker source.

Without a source argument an interactive picker is shown. Reports are
written as markdown with CSV exports, plus SVG charts when --charts is
set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := pickSource()
			if err != nil {
				return err
			}
			if name == "" {
				printInfo("No source selected")
				return nil
			}
			sub, _, err := cmd.Find([]string{name})
			if err != nil {
				return err
			}
			return sub.RunE(sub, nil)
		},
	}

	cmd.PersistentFlags().StringVarP(&f.periodName, "period", "p", "", "bucketing period: week, month, quarter or year")
	cmd.PersistentFlags().StringVar(&f.start, "start", "", "window start (YYYY-MM-DD)")
	cmd.PersistentFlags().StringVar(&f.end, "end", "", "window end, exclusive (YYYY-MM-DD)")
	cmd.PersistentFlags().IntVar(&f.top, "top", 0, "row cutoff for ranked tables")
	cmd.PersistentFlags().BoolVar(&f.charts, "charts", false, "render SVG charts")
	cmd.PersistentFlags().BoolVar(&f.graphSVG, "graph-svg", false, "render relation graphs as SVG instead of DOT")
	cmd.PersistentFlags().BoolVar(&f.refresh, "refresh", false, "bypass cached API responses")
	cmd.PersistentFlags().BoolVar(&f.noCache, "no-cache", false, "disable the response cache entirely")
	cmd.PersistentFlags().BoolVar(&f.noArchive, "no-archive", false, "skip archiving even when the archive is enabled")
	cmd.PersistentFlags().StringVarP(&f.outDir, "out", "o", "", "output directory (defaults to the configured one)")

	cmd.AddCommand(c.bugsCommand(f))
	cmd.AddCommand(c.addonsCommand(f))
	cmd.AddCommand(c.forumCommand(f))
	cmd.AddCommand(c.issuesCommand(f))
	cmd.AddCommand(c.l10nCommand(f))

	return cmd
}

// buildOptions merges flags over the configured report defaults.
func buildOptions(cfg *config.Config, f *reportFlags) (pipeline.Options, error) {
	name := f.periodName
	if name == "" {
		name = cfg.Report.Period
	}
	g, err := period.ParseGranularity(name)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{
		Granularity: g,
		Top:         cfg.Report.Top,
		Charts:      f.charts,
		GraphSVG:    f.graphSVG,
		Refresh:     f.refresh,
	}
	if f.top > 0 {
		opts.Top = f.top
	}
	if f.start != "" {
		t, err := time.Parse(dateLayout, f.start)
		if err != nil {
			return pipeline.Options{}, fmt.Errorf("invalid --start: %w", err)
		}
		opts.Start = t.UTC()
	}
	if f.end != "" {
		t, err := time.Parse(dateLayout, f.end)
		if err != nil {
			return pipeline.Options{}, fmt.Errorf("invalid --end: %w", err)
		}
		opts.End = t.UTC()
	}
	if opts.Start.IsZero() && cfg.Report.Lookback.Duration() > 0 {
		end := opts.End
		if end.IsZero() {
			end = time.Now().UTC()
		}
		opts.Start = end.Add(-cfg.Report.Lookback.Duration())
	}
	return opts, nil
}

// =============================================================================
// Per-Source Subcommands
// =============================================================================

func (c *CLI) bugsCommand(f *reportFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "bugs",
		Short: "Bug tracker report (created/resolved trends, duplicates)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, backend, err := c.setup(ctx, f)
			if err != nil {
				return err
			}
			bz := cfg.Sources.Bugzilla
			client := bugzilla.NewClient(backend, cfg.Cache.TTL.Duration(), bz.BaseURL, bz.APIKey)
			src := &pipeline.BugSource{
				Client: client,
				Query: bugzilla.Query{
					Products:   bz.Products,
					Components: bz.Components,
				},
			}
			return runReport(ctx, c, cfg, backend, src, f)
		},
	}
}

func (c *CLI) addonsCommand(f *reportFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "addons",
		Short: "Add-on compatibility report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, backend, err := c.setup(ctx, f)
			if err != nil {
				return err
			}
			ac := cfg.Sources.Addons
			client := amo.NewClient(backend, cfg.Cache.TTL.Duration(), ac.BaseURL)
			src := &pipeline.AddonSource{
				Client:     client,
				Search:     amo.SearchQuery{App: ac.App, Sort: "users"},
				App:        ac.App,
				AppVersion: ac.AppVersion,
			}
			return runReport(ctx, c, cfg, backend, src, f)
		},
	}
}

func (c *CLI) forumCommand(f *reportFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "forum",
		Short: "Support forum activity report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, backend, err := c.setup(ctx, f)
			if err != nil {
				return err
			}
			fc := cfg.Sources.Forum
			client := discourse.NewClient(backend, cfg.Cache.TTL.Duration(), fc.BaseURL, fc.APIKey, fc.APIUser)
			categories, err := resolveCategories(ctx, client, fc.Categories, f.refresh)
			if err != nil {
				return err
			}
			src := &pipeline.ForumSource{Client: client, Categories: categories}
			return runReport(ctx, c, cfg, backend, src, f)
		},
	}
}

func (c *CLI) issuesCommand(f *reportFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "issues",
		Short: "Issue tracker report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, backend, err := c.setup(ctx, f)
			if err != nil {
				return err
			}
			gc := cfg.Sources.GitHub
			if gc.Owner == "" || gc.Repo == "" {
				return fmt.Errorf("sources.github.owner and .repo must be configured")
			}
			client := github.NewClient(backend, cfg.Cache.TTL.Duration(), gc.BaseURL, gc.Token)
			src := &pipeline.IssueSource{
				Client: client,
				Owner:  gc.Owner,
				Repo:   gc.Repo,
				Query:  github.IssueQuery{Labels: gc.Labels},
			}
			return runReport(ctx, c, cfg, backend, src, f)
		},
	}
}

func (c *CLI) l10nCommand(f *reportFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "l10n",
		Short: "Localization progress report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, backend, err := c.setup(ctx, f)
			if err != nil {
				return err
			}
			lc := cfg.Sources.Localized
			if lc.Project == "" {
				return fmt.Errorf("sources.l10n.project must be configured")
			}
			client := pontoon.NewClient(backend, cfg.Cache.TTL.Duration(), lc.BaseURL)
			src := &pipeline.L10nSource{Client: client, Project: lc.Project}
			return runReport(ctx, c, cfg, backend, src, f)
		},
	}
}

// =============================================================================
// Shared Execution
// =============================================================================

// setup loads the configuration and opens the cache backend shared by
// the tracker client and the pipeline runner.
func (c *CLI) setup(ctx context.Context, f *reportFlags) (*config.Config, cache.Cache, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	backend, err := newCache(ctx, cfg, f.noCache)
	if err != nil {
		return nil, nil, err
	}
	return cfg, backend, nil
}

// runReport executes the pipeline for one source, writes the artifacts
// and optionally archives the run.
func runReport[T any](ctx context.Context, c *CLI, cfg *config.Config, backend cache.Cache, src pipeline.Source[T], f *reportFlags) error {
	runner := pipeline.NewRunner(backend, nil, c.Logger)
	defer runner.Close()

	opts, err := buildOptions(cfg, f)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Generating %s report", src.Name()))
	spinner.Start()
	result, err := pipeline.Execute(ctx, runner, src, opts)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("%s report failed", src.Name()))
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Generated %s report", src.Name()))
	printStats(result.Stats.RecordCount, result.CacheInfo.RenderHit)

	outDir := f.outDir
	if outDir == "" {
		outDir = cfg.Report.OutDir
	}
	dir := filepath.Join(outDir, src.Name())
	prog := newProgress(c.Logger)
	if err := writeArtifacts(dir, result.Artifacts); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Wrote %d artifacts", len(result.Artifacts)))
	for _, path := range artifactPaths(result.Artifacts) {
		printFile(filepath.Join(dir, path))
	}

	if cfg.Archive.Enabled && !f.noArchive {
		if err := archiveRun(ctx, cfg, result, opts); err != nil {
			printWarning("Archive failed: %v", err)
		}
	}

	printNextStep("Browse archived runs", "trackstats serve")
	return nil
}

// writeArtifacts materializes the rendered artifacts under dir,
// creating chart and CSV subdirectories as needed.
func writeArtifacts(dir string, artifacts map[string][]byte) error {
	for path, data := range artifacts {
		full := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(full, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// artifactPaths returns artifact paths in stable order.
func artifactPaths(artifacts map[string][]byte) []string {
	paths := make([]string, 0, len(artifacts))
	for p := range artifacts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// archiveRun stores the generated document in the run archive.
func archiveRun(ctx context.Context, cfg *config.Config, result *pipeline.Result, opts pipeline.Options) error {
	store, err := archive.NewStore(ctx, cfg.Archive.URI, cfg.Archive.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(ctx) }()

	run, err := store.Put(ctx, result.Document, opts.Granularity.String())
	if err != nil {
		return err
	}
	printDetail("Archived as run %s", run.ID)
	return nil
}

// resolveCategories maps configured category slugs onto the forum's
// category listing. An empty slug list selects every category.
func resolveCategories(ctx context.Context, client *discourse.Client, slugs []string, refresh bool) ([]pipeline.ForumCategory, error) {
	listed, err := client.ListCategories(ctx, refresh)
	if err != nil {
		return nil, err
	}

	if len(slugs) == 0 {
		out := make([]pipeline.ForumCategory, len(listed))
		for i, cat := range listed {
			out[i] = pipeline.ForumCategory{Slug: cat.Slug, ID: cat.ID, Name: cat.Name}
		}
		return out, nil
	}

	bySlug := make(map[string]discourse.Category, len(listed))
	for _, cat := range listed {
		bySlug[cat.Slug] = cat
	}
	out := make([]pipeline.ForumCategory, 0, len(slugs))
	for _, slug := range slugs {
		cat, ok := bySlug[slug]
		if !ok {
			return nil, fmt.Errorf("unknown forum category %q", slug)
		}
		out = append(out, pipeline.ForumCategory{Slug: cat.Slug, ID: cat.ID, Name: cat.Name})
	}
	return out, nil
}
