package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/trafficwatch/internal/config"
	"github.com/crimson-sun/trafficwatch/internal/lifecycle"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Artifacts.Dir = filepath.Join(t.TempDir(), "clips")
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger.ndjson")
	cfg.Inference.Seed = 7
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunWithDefaults(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(cfg, quietLogger())

	r, err := a.runner()
	require.NoError(t, err)
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, cfg.SiteID, res.SiteID)

	ledger, err := os.ReadFile(cfg.Ledger.Path)
	require.NoError(t, err)
	if res.Result.NoAction {
		assert.Equal(t, model.NoActionReason, res.Result.Reason)
		assert.Empty(t, ledger)
		return
	}
	require.NotNil(t, res.Result.Report)
	assert.True(t, strings.HasPrefix(res.Result.Report.ConfirmationID, "VIOL-HWY231-"))
	assert.Contains(t, string(ledger), res.Result.Report.ConfirmationID)
}

func TestLifecycleWithDefaults(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(cfg, quietLogger())
	defer a.Close()

	mgr, err := a.lifecycleManager()
	require.NoError(t, err)
	out, err := mgr.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Triggered)
	assert.Equal(t, lifecycle.SimulatedPipelineID, out.PipelineID)
	assert.Equal(t, lifecycle.SimulatedModelID, out.DeployedModelID)
}

func TestLedgerSharedAcrossPaths(t *testing.T) {
	a := newApp(testConfig(t), quietLogger())
	defer a.Close()

	l1, err := a.ledger()
	require.NoError(t, err)
	l2, err := a.ledger()
	require.NoError(t, err)
	assert.Same(t, l1, l2)
}

func TestServeFailsBeforeListening(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c := testConfig(t)
	c.Hub.Addr = addr
	c.Ledger.Path = filepath.Join(blocker, "ledger.ndjson")

	prevCfg, prevLogger, prevLifecycle := cfg, logger, serveLifecycle
	cfg, logger, serveLifecycle = c, quietLogger(), true
	defer func() { cfg, logger, serveLifecycle = prevCfg, prevLogger, prevLifecycle }()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.Error(t, runServe(cmd, nil))

	time.Sleep(50 * time.Millisecond)
	l, err = net.Listen("tcp", addr)
	require.NoError(t, err, "hub listener outlived a failed serve")
	l.Close()
}

func TestPrintRun(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRun(&buf, model.RunResult{
		Result: model.ReportResult{NoAction: true, Reason: model.NoActionReason},
	}, false))
	assert.Equal(t, "No violation detected: no action taken.\n", buf.String())

	buf.Reset()
	require.NoError(t, printRun(&buf, model.RunResult{
		Result: model.ReportResult{Report: &model.ViolationReport{
			Classification: model.ClassificationRecord{ViolationType: model.RedLight, ConfidenceScore: 0.92},
			ConfirmationID: "VIOL-HWY231-1700000000",
			ReportedAt:     time.Unix(1700000000, 0),
		}},
	}, false))
	assert.Equal(t, "Violation reported: Red Light Violation (confidence 0.92). Confirmation ID: VIOL-HWY231-1700000000\n", buf.String())
}

func TestLabelsCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"labels", "--log-level", "error"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "Red Light")
	assert.Contains(t, out, "No Violation")
}
