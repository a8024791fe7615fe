package internal

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/middleware"
	"github.com/researchartifacts/aestats/internal/notifier"
	"github.com/researchartifacts/aestats/internal/pipeline"
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect artifact data and regenerate the site files",
		Long: `Run the full collection pipeline once: list the conference directories of
the configured artifact sites, parse their results pages, verify artifact
links, collect repository statistics, match authors against DBLP, and write
the site's data files and charts.

Soft stage failures (link checks, statistics, bibliography) are reported as
warnings and the run still succeeds; only listings, results parsing or
site-data generation failing aborts it.`,
		Example: `  aestats run --output-dir ../stats-site
  aestats run --output-dir ../stats-site --conf-regex '.*2024' --interactive
  aestats run --output-dir ../stats-site --save-results --push`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sources, err := middleware.Get[[]config.Source](cmd, middleware.CtxKeySources)
			if err != nil {
				return err
			}

			opts, err := runOptionsFromFlags(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.LoadSettings(opts, nil)
			if err != nil {
				return middleware.LoggedError(err)
			}

			pl, err := pipeline.New(cfg, sources)
			if err != nil {
				return err
			}
			return executeRun(cmd.Context(), pl)
		},
	}

	addRunFlags(cmd)

	return cmd
}

// addRunFlags defines the pipeline flags, shared by run and schedule.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-dir", "o", "", "Site checkout to write data files into (required)")
	cmd.Flags().String("conf-regex", "", "Conference directory filter (default "+config.DefaultConfRegex+")")
	cmd.Flags().String("cache-dir", "", "Content cache location (default: user cache dir)")
	cmd.Flags().String("dblp-file", "", "DBLP dump location (default: <cache-dir>/dblp.xml.gz)")
	cmd.Flags().String("http-proxy", "", "Proxy for http:// requests")
	cmd.Flags().String("https-proxy", "", "Proxy for https:// requests")
	cmd.Flags().Bool("save-results", false, "Snapshot cache and outputs into the results repository")
	cmd.Flags().String("results-dir", "", "Results repository location (default: results)")
	cmd.Flags().Bool("push", false, "Push the snapshot commit")
	cmd.Flags().BoolP("interactive", "i", false, "Ask before re-downloading when freshness is unknown")
	cmd.Flags().String("sources", "", "YAML file overriding the built-in artifact sites")
}

func runOptionsFromFlags(cmd *cobra.Command) (config.RunOptions, error) {
	var opts config.RunOptions
	flags := cmd.Flags()

	var err error
	if opts.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return opts, err
	}
	if opts.ConfRegex, err = flags.GetString("conf-regex"); err != nil {
		return opts, err
	}
	if opts.CacheDir, err = flags.GetString("cache-dir"); err != nil {
		return opts, err
	}
	if opts.DBLPFile, err = flags.GetString("dblp-file"); err != nil {
		return opts, err
	}
	if opts.HTTPProxy, err = flags.GetString("http-proxy"); err != nil {
		return opts, err
	}
	if opts.HTTPSProxy, err = flags.GetString("https-proxy"); err != nil {
		return opts, err
	}
	if opts.SaveResults, err = flags.GetBool("save-results"); err != nil {
		return opts, err
	}
	if opts.ResultsDir, err = flags.GetString("results-dir"); err != nil {
		return opts, err
	}
	if opts.Push, err = flags.GetBool("push"); err != nil {
		return opts, err
	}
	if opts.Interactive, err = flags.GetBool("interactive"); err != nil {
		return opts, err
	}
	return opts, nil
}

// executeRun drives one collection run and folds the report into the
// process outcome: soft failures warn and exit 0, a fatal stage or a
// failed precondition exits 1.
func executeRun(ctx context.Context, pl *pipeline.Pipeline) error {
	rep, err := pl.Run(ctx)
	if err != nil {
		return err
	}

	rep.Print()
	confs, arts := pl.Totals()

	switch {
	case rep.Fatal():
		notifier.DisplayRunSummary(notifier.RunFailed, confs, arts, rep.SoftFailures())
		return fmt.Errorf("run aborted by a fatal stage failure")
	case rep.SoftFailures() > 0:
		notifier.DisplayRunSummary(notifier.RunWarnings, confs, arts, rep.SoftFailures())
	default:
		notifier.DisplayRunSummary(notifier.RunSucceeded, confs, arts, 0)
	}
	return nil
}
