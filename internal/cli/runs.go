package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trackstats/trackstats/pkg/archive"
	apperrors "github.com/trackstats/trackstats/pkg/errors"
	"github.com/trackstats/trackstats/pkg/report"
)

// runsCommand creates the runs command for browsing the archive.
func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse archived report runs",
	}

	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())

	return cmd
}

// runsListCommand creates the "runs list" subcommand.
func (c *CLI) runsListCommand() *cobra.Command {
	var (
		source string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if source != "" {
				if err := apperrors.ValidateSourceName(source); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			store, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(ctx) }()

			runs, err := store.List(ctx, source, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No archived runs")
				return nil
			}
			for _, run := range runs {
				fmt.Printf("%s  %-8s  %-7s  %s\n",
					run.Generated.Format("2006-01-02 15:04"),
					run.Source,
					run.Granularity,
					StyleDim.Render(run.ID))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "filter by source name")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

// runsShowCommand creates the "runs show" subcommand.
func (c *CLI) runsShowCommand() *cobra.Command {
	var asMarkdown bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(ctx) }()

			run, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if asMarkdown {
				_, err := os.Stdout.Write(report.Markdown(&run.Document))
				return err
			}
			printKeyValue("Run", run.ID)
			printKeyValue("Source", run.Source)
			printKeyValue("Title", run.Title)
			printKeyValue("Period", run.Granularity)
			printKeyValue("Generated", run.Generated.Format("2006-01-02 15:04 UTC"))
			printKeyValue("Sections", fmt.Sprintf("%d", len(run.Document.Sections)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asMarkdown, "markdown", false, "print the rendered markdown report")
	return cmd
}

// openArchive connects to the configured run archive.
func (c *CLI) openArchive(ctx context.Context) (*archive.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Archive.URI == "" {
		return nil, fmt.Errorf("archive.uri must be configured")
	}
	return archive.NewStore(ctx, cfg.Archive.URI, cfg.Archive.Database)
}
