package middleware

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/researchartifacts/aestats/internal/config"
)

// LoadSources resolves the artifact site definitions from the --sources
// flag (or the built-in defaults) and stashes them in the command
// context for the RunE to pick up.
func LoadSources(cmd *cobra.Command, args []string, next func(cmd *cobra.Command, args []string) error) error {
	path, err := cmd.Flags().GetString("sources")
	if err != nil {
		return err
	}

	sources, err := config.LoadSources(path)
	if err != nil {
		return err
	}

	ctx := context.WithValue(cmd.Context(), CtxKeySources, sources)
	cmd.SetContext(ctx)

	return next(cmd, args)
}
