package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/crimson-sun/trafficwatch/internal/artifact"
	"github.com/crimson-sun/trafficwatch/internal/artifact/fs"
	"github.com/crimson-sun/trafficwatch/internal/artifact/s3store"
	"github.com/crimson-sun/trafficwatch/internal/capture"
	"github.com/crimson-sun/trafficwatch/internal/config"
	"github.com/crimson-sun/trafficwatch/internal/engine"
	"github.com/crimson-sun/trafficwatch/internal/engine/classifier"
	"github.com/crimson-sun/trafficwatch/internal/engine/gate"
	"github.com/crimson-sun/trafficwatch/internal/engine/onnx"
	"github.com/crimson-sun/trafficwatch/internal/engine/taxonomy"
	"github.com/crimson-sun/trafficwatch/internal/incident"
	"github.com/crimson-sun/trafficwatch/internal/lifecycle"
	"github.com/crimson-sun/trafficwatch/internal/lifecycle/hubclient"
	"github.com/crimson-sun/trafficwatch/internal/metrics"
	"github.com/crimson-sun/trafficwatch/internal/pipeline"
	"github.com/crimson-sun/trafficwatch/internal/sink"
	"github.com/crimson-sun/trafficwatch/internal/sink/file"
	"github.com/crimson-sun/trafficwatch/internal/sink/multi"
	"github.com/crimson-sun/trafficwatch/internal/sink/stdout"
	"github.com/crimson-sun/trafficwatch/internal/transmit"
	"github.com/crimson-sun/trafficwatch/internal/transmit/local"
	"github.com/crimson-sun/trafficwatch/internal/transmit/natsbus"
	"github.com/crimson-sun/trafficwatch/internal/transmit/webhook"

	// Register capture providers.
	_ "github.com/crimson-sun/trafficwatch/internal/capture/simulated"
	_ "github.com/crimson-sun/trafficwatch/internal/capture/spool"
)

// app holds the components built from config for one command and the
// resources that must be released when it exits.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics

	nc      *nats.Conn
	led     sink.Sink
	closers []func() error
}

func newApp(cfg config.Config, logger *slog.Logger) *app {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &app{cfg: cfg, logger: logger, reg: reg, metrics: metrics.New(reg)}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) natsConn() (*nats.Conn, error) {
	if a.nc != nil {
		return a.nc, nil
	}
	nc, err := nats.Connect(a.cfg.NATS.URL,
		nats.Name("trafficwatch-"+a.cfg.SiteID),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", a.cfg.NATS.URL, err)
	}
	a.nc = nc
	a.closers = append(a.closers, func() error { nc.Close(); return nil })
	return nc, nil
}

func (a *app) artifactStore() (artifact.Store, error) {
	switch a.cfg.Artifacts.Backend {
	case "s3":
		s3cfg := s3store.Config{
			Endpoint:  a.cfg.Artifacts.S3.Endpoint,
			Region:    a.cfg.Artifacts.S3.Region,
			Bucket:    a.cfg.Artifacts.S3.Bucket,
			Prefix:    a.cfg.Artifacts.S3.Prefix,
			AccessKey: a.cfg.Artifacts.S3.AccessKey,
			SecretKey: a.cfg.Artifacts.S3.SecretKey,
		}
		return s3store.New(s3store.Connect(s3cfg), s3cfg)
	default:
		return fs.New(a.cfg.Artifacts.Dir)
	}
}

func (a *app) classifier(tax *taxonomy.Taxonomy, store artifact.Store) (classifier.Classifier, error) {
	ic := a.cfg.Inference
	switch ic.Provider {
	case "onnx":
		c, err := onnx.New(ic.ModelPath, tax, store,
			onnx.WithLibraryPath(ic.LibraryPath),
			onnx.WithThreads(ic.Threads),
		)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	default:
		opts := []classifier.SimulatedOption{classifier.WithDelay(ic.Delay)}
		if ic.Seed != 0 {
			opts = append(opts, classifier.WithRand(rand.New(rand.NewPCG(ic.Seed, 0))))
		}
		return classifier.NewSimulated(opts...), nil
	}
}

func (a *app) transmitter() (transmit.Transmitter, error) {
	tc := a.cfg.Transmit
	switch tc.Provider {
	case "webhook":
		return webhook.New(tc.Endpoint,
			webhook.WithToken(tc.Token),
			webhook.WithTimeout(tc.Timeout),
			webhook.WithMaxRetries(tc.MaxRetries),
		), nil
	case "nats":
		nc, err := a.natsConn()
		if err != nil {
			return nil, err
		}
		return natsbus.New(nc, tc.Subject), nil
	default:
		return local.New(local.WithSiteCode(a.cfg.SiteCode), local.WithLatency(tc.Latency)), nil
	}
}

// ledger is built once per app so the run and lifecycle paths share one file.
func (a *app) ledger() (sink.Sink, error) {
	if a.led != nil {
		return a.led, nil
	}
	var sinks []sink.Sink
	if a.cfg.Ledger.Path != "" {
		f, err := file.New(a.cfg.Ledger.Path, file.WithMaxSize(a.cfg.Ledger.MaxSize))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, f)
	}
	if a.cfg.Ledger.Stdout {
		sinks = append(sinks, stdout.New(a.cfg.Ledger.Pretty))
	}
	if len(sinks) == 0 {
		a.led = sink.Discard{}
		return a.led, nil
	}
	m := multi.New(sinks...)
	a.closers = append(a.closers, m.Close)
	a.led = m
	return m, nil
}

// runner wires Capture -> Classify -> Report from config.
func (a *app) runner() (*incident.Runner, error) {
	store, err := a.artifactStore()
	if err != nil {
		return nil, err
	}
	ctor, err := capture.Get(a.cfg.Capture.Provider)
	if err != nil {
		return nil, err
	}
	src, err := ctor(capture.Config{
		Provider: a.cfg.Capture.Provider,
		SiteID:   a.cfg.SiteID,
		SpoolDir: a.cfg.Capture.SpoolDir,
	}, store)
	if err != nil {
		return nil, err
	}

	tax := taxonomy.Default()
	cls, err := a.classifier(tax, store)
	if err != nil {
		return nil, err
	}
	eng := engine.New(cls, gate.New(tax), engine.WithLogger(a.logger))

	tx, err := a.transmitter()
	if err != nil {
		return nil, err
	}
	reporter := incident.NewReporter(tx, store, a.cfg.SiteID,
		incident.WithArtifactPolicy(incident.ArtifactPolicy(a.cfg.Pipeline.NoViolationArtifacts)),
		incident.WithReporterLogger(a.logger),
	)

	ledger, err := a.ledger()
	if err != nil {
		return nil, err
	}
	seq := pipeline.New(
		pipeline.WithStageTimeout(a.cfg.Pipeline.StageTimeout),
		pipeline.WithLogger(a.logger),
		pipeline.WithObserver(a.metrics),
	)
	return incident.NewRunner(incident.Stages(src, eng, reporter), a.cfg.SiteID,
		incident.WithSequencer(seq),
		incident.WithLedger(ledger),
		incident.WithRecorder(a.metrics),
		incident.WithLogger(a.logger),
	), nil
}

// lifecycleManager wires the retraining check from config.
func (a *app) lifecycleManager() (*lifecycle.Manager, error) {
	lc := a.cfg.Lifecycle
	var (
		source   lifecycle.FeedbackSource
		trainer  lifecycle.Trainer
		deployer lifecycle.Deployer
	)
	switch lc.Provider {
	case "hub":
		c := hubclient.New(lc.Endpoint, lc.Token, a.cfg.Transmit.Timeout)
		source, trainer, deployer = c, c, c
	default:
		source, trainer, deployer = lifecycle.SimulatedFeedback{}, lifecycle.SimulatedTrainer{}, lifecycle.SimulatedDeployer{}
	}

	ledger, err := a.ledger()
	if err != nil {
		return nil, err
	}
	eval := lifecycle.NewEvaluator(trainer, deployer,
		lifecycle.WithThreshold(lc.Threshold),
		lifecycle.WithMinSamples(lc.MinSamples),
	)
	return lifecycle.NewManager(source, eval,
		lifecycle.WithWindow(lc.Window),
		lifecycle.WithLedger(ledger),
		lifecycle.WithRecorder(a.metrics),
		lifecycle.WithLogger(a.logger),
	), nil
}

// serveMetrics exposes /metrics on cfg.MetricsAddr until ctx is done. It is a
// no-op when no address is configured.
func (a *app) serveMetrics(ctx context.Context) error {
	if a.cfg.MetricsAddr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.reg))
	return listen(ctx, &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}, a.logger)
}

// listen runs srv until ctx is cancelled, then shuts it down gracefully.
func listen(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
