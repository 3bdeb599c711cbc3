package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one incident: capture, classify and report",
	Long: `Captures one clip, classifies it and, if a violation was detected,
submits it to the central server. A clip classified as "No Violation" is
not submitted.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run result as JSON")
}

func runRun(cmd *cobra.Command, _ []string) error {
	a := newApp(cfg, logger)
	defer a.Close()

	r, err := a.runner()
	if err != nil {
		return err
	}
	res, err := r.Run(cmd.Context())
	if err != nil {
		return err
	}
	return printRun(cmd.OutOrStdout(), res, runJSON)
}

func printRun(w io.Writer, res model.RunResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if res.Result.NoAction {
		_, err := fmt.Fprintf(w, "No violation detected: %s.\n", res.Result.Reason)
		return err
	}
	rep := res.Result.Report
	_, err := fmt.Fprintf(w, "Violation reported: %s (confidence %.2f). Confirmation ID: %s\n",
		rep.Classification.ViolationType, rep.Classification.ConfidenceScore, rep.ConfirmationID)
	return err
}
