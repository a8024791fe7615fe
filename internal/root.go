package internal

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/version"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aestats",
		Short: "Artifact evaluation statistics collector",
		Long: `Aestats collects artifact-evaluation results from the sysartifacts and
secartifacts conference sites, enriches them with repository statistics and
DBLP author data, and writes the data files and charts of the statistics
website.`,
		Example: `aestats run --output-dir ../stats-site`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.ConfigureLoggerFromFlags()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			versionFlag, _ := cmd.Flags().GetBool("version")
			if versionFlag {
				version.PrintVersion()
				return
			}
			_ = cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolP("version", "v", false, "Print version information")

	pf := cmd.PersistentFlags()
	pf.BoolVar(&logger.FlagVerbose, "verbose", false, "Enable debug logging")
	pf.BoolVarP(&logger.FlagQuiet, "quiet", "q", false, "Only log errors")
	pf.BoolVar(&logger.FlagJSON, "json", false, "Log as JSON, for scheduled and CI runs")

	RegisterSubCommands(cmd)

	return cmd
}

func Execute() error {
	root := NewRootCmd()

	if os.Getenv("COMP_LINE") != "" ||
		(len(os.Args) > 1 && strings.HasPrefix(os.Args[1], "__complete")) {
		return root.Execute()
	}

	// SIGINT/SIGTERM cancel the run context; a resident schedule stops
	// cleanly and an in-flight run aborts on the next stage boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Debug("Failed to execute root command: %v", err)
		return err
	}
	return nil
}
