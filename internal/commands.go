package internal

import (
	"github.com/spf13/cobra"

	"github.com/researchartifacts/aestats/internal/middleware"
)

var defaultCommands = []middleware.CommandFactory{
	middleware.UseMiddlewareChain(middleware.LoadSources)(NewRunCmd),
	middleware.UseMiddlewareChain(middleware.LoadSources)(NewScheduleCmd),
	NewCacheCmd,
}

func RegisterSubCommands(cmd *cobra.Command) {
	for _, factory := range defaultCommands {
		cmd.AddCommand(factory())
	}
}
