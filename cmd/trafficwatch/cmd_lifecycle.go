package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/trafficwatch/internal/lifecycle"
)

var (
	lifecycleWatch bool
	lifecycleJSON  bool
)

var lifecycleCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Check review feedback and retrain the model if it has drifted",
	Long: `Reads the misclassification feedback for the configured window. If the
rate exceeds the drift threshold, a retraining pipeline is started and the
resulting model is deployed. With --watch the check repeats on the
configured interval; a check still in flight causes the next tick to be
skipped.`,
	RunE: runLifecycle,
}

func init() {
	lifecycleCmd.Flags().BoolVar(&lifecycleWatch, "watch", false, "repeat the check every lifecycle interval")
	lifecycleCmd.Flags().BoolVar(&lifecycleJSON, "json", false, "print the outcome as JSON")
}

func runLifecycle(cmd *cobra.Command, _ []string) error {
	a := newApp(cfg, logger)
	defer a.Close()

	mgr, err := a.lifecycleManager()
	if err != nil {
		return err
	}

	if lifecycleWatch {
		sched := lifecycle.NewScheduler(mgr, cfg.Lifecycle.Interval, logger)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error { return a.serveMetrics(ctx) })
		g.Go(func() error { return sched.Run(ctx) })
		return g.Wait()
	}

	out, err := mgr.Check(cmd.Context())
	if lifecycleJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			return encErr
		}
	} else if !out.CheckedAt.IsZero() {
		fmt.Fprintln(cmd.OutOrStdout(), out.Summary())
	}
	return err
}
