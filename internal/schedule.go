package internal

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/errs"
	"github.com/researchartifacts/aestats/internal/middleware"
	"github.com/researchartifacts/aestats/internal/pipeline"
	"github.com/researchartifacts/aestats/internal/scheduler"
)

func NewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the collection pipeline on a cron schedule",
		Long: `Keep the process resident and execute the collection pipeline on a cron
schedule. Prompting is disabled: an unattended run always keeps the local
DBLP dump when its freshness cannot be verified.`,
		Example: `  aestats schedule --cron '0 3 * * *' --output-dir ../stats-site
  aestats schedule --cron '@weekly' --output-dir ../stats-site --save-results`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := cmd.Flags().GetString("cron")
			if err != nil {
				return err
			}
			if err := scheduler.Parse(spec); err != nil {
				return middleware.FlagComboError(errs.InvalidCronSpec, spec)
			}

			sources, err := middleware.Get[[]config.Source](cmd, middleware.CtxKeySources)
			if err != nil {
				return err
			}

			opts, err := runOptionsFromFlags(cmd)
			if err != nil {
				return err
			}
			opts.Interactive = false

			cfg, err := config.LoadSettings(opts, nil)
			if err != nil {
				return middleware.LoggedError(err)
			}

			// Every trigger gets a fresh pipeline: run state (listings,
			// parsed conferences, verdicts) must not leak across runs.
			sched, err := scheduler.New(spec, func(ctx context.Context) error {
				pl, err := pipeline.New(cfg, sources)
				if err != nil {
					return err
				}
				return executeRun(ctx, pl)
			})
			if err != nil {
				return err
			}
			return sched.Run(cmd.Context())
		},
	}

	addRunFlags(cmd)
	cmd.Flags().String("cron", "@daily", "Cron expression for scheduled runs")

	return cmd
}
