package internal

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/researchartifacts/aestats/internal/cache"
	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/utils"
)

func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the content cache",
	}

	cmd.PersistentFlags().String("cache-dir", "", "Content cache location (default: user cache dir)")

	cmd.AddCommand(newCacheStatsCmd(), newCacheClearCmd())

	return cmd
}

func cacheFromFlags(cmd *cobra.Command) (*cache.Store, error) {
	override, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, err
	}
	dir, err := config.CacheDir(override)
	if err != nil {
		return nil, err
	}
	return cache.New(dir)
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-namespace cache usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := cacheFromFlags(cmd)
			if err != nil {
				return err
			}

			stats, err := store.Stats()
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				logger.Info("Cache at %s is empty", store.Dir())
				return nil
			}

			table := logger.CreateTable([]string{"Namespace", "Entries", "Size", "Oldest"})
			for _, ns := range stats {
				oldest := "-"
				if !ns.Oldest.IsZero() {
					oldest = ns.Oldest.Format("2006-01-02 15:04")
				}
				if err := table.Append([]string{
					ns.Name,
					strconv.Itoa(ns.Entries),
					utils.HumanSize(ns.SizeBytes),
					oldest,
				}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := cacheFromFlags(cmd)
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			logger.Success("Cache cleared at %s", store.Dir())
			return nil
		},
	}
}
