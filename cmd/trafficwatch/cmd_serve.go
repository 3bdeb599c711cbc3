package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/trafficwatch/internal/hub"
	"github.com/crimson-sun/trafficwatch/internal/lifecycle"
)

var serveLifecycle bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the development central server",
	Long: `Starts the central hub: it accepts violation reports over HTTP (and NATS
when hub.nats_responder is set), issues confirmation ids, records human
reviews and serves the feedback, training and deployment endpoints used
by "trafficwatch lifecycle" with lifecycle.provider=hub.

With --lifecycle the hub also runs the lifecycle check on the configured
interval.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveLifecycle, "lifecycle", false, "also run scheduled lifecycle checks")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a := newApp(cfg, logger)
	defer a.Close()

	store, err := hub.NewStore(cfg.Hub.CacheSize)
	if err != nil {
		return err
	}
	srv := hub.New(store,
		hub.WithSiteCode(cfg.SiteCode),
		hub.WithRecorder(a.metrics),
		hub.WithMetrics(a.reg),
		hub.WithLogger(logger),
	)

	if cfg.Hub.NATSResponder {
		nc, err := a.natsConn()
		if err != nil {
			return err
		}
		sub, err := srv.Subscribe(nc, cfg.Transmit.Subject)
		if err != nil {
			return err
		}
		defer sub.Unsubscribe()
		logger.Info("answering report submissions over nats", "subject", sub.Subject)
	}

	var sched *lifecycle.Scheduler
	if serveLifecycle {
		mgr, err := a.lifecycleManager()
		if err != nil {
			return err
		}
		sched = lifecycle.NewScheduler(mgr, cfg.Lifecycle.Interval, logger)
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return listen(ctx, &http.Server{Addr: cfg.Hub.Addr, Handler: srv.Handler()}, logger)
	})
	if sched != nil {
		g.Go(func() error { return sched.Run(ctx) })
	}
	return g.Wait()
}
