package main

import (
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run incidents continuously until interrupted",
	Long: `Runs one incident per interval until SIGINT or SIGTERM. Runs never overlap.
A failed run is logged and the loop continues. When metrics_addr is set,
Prometheus metrics are served alongside.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "time between runs (default from config)")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a := newApp(cfg, logger)
	defer a.Close()

	r, err := a.runner()
	if err != nil {
		return err
	}
	interval := cfg.Pipeline.WatchInterval
	if watchInterval > 0 {
		interval = watchInterval
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return a.serveMetrics(ctx) })
	g.Go(func() error {
		logger.Info("watching for incidents", "site_id", cfg.SiteID, "interval", interval)
		return r.Watch(ctx, interval)
	})
	return g.Wait()
}
