package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnrates/ratecrawl/internal/fetcher"
	"github.com/vnrates/ratecrawl/internal/source"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Fetch and persist rate data from the configured sources",
	Long:  "Runs each selected source once: download, parse, and upsert into its target table. Failures of any kind, including an unreachable database, are logged and the command still exits zero so cron sees a normal run. Only an unknown --sources name is a command error.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L()

		names, _ := cmd.Flags().GetStringSlice("sources")

		reg := source.NewRegistry(cfg)
		if _, err := reg.Select(names); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			log.Error("cannot open store, aborting crawl", zap.Error(err))
			return nil
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			log.Error("cannot migrate store, aborting crawl", zap.Error(err))
			return nil
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: cfg.Crawl.UserAgent,
			Timeout:   time.Duration(cfg.Crawl.TimeoutSecs) * time.Second,
		})

		eng := source.NewEngine(st, f, reg)
		summary, err := eng.Run(ctx, source.RunOpts{Sources: names})
		if err != nil {
			log.Error("crawl aborted", zap.Error(err))
			return nil
		}

		if summary.Failed > 0 {
			log.Warn("crawl finished with failures",
				zap.Int("failed", summary.Failed),
				zap.Int("succeeded", summary.Succeeded),
			)
		}
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringSlice("sources", nil, "source names to crawl (default: all)")
	rootCmd.AddCommand(crawlCmd)
}
