package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all trafficwatch configuration.
type Config struct {
	SiteID      string          `yaml:"site_id"`
	SiteCode    string          `yaml:"site_code"` // code embedded in confirmation ids
	MetricsAddr string          `yaml:"metrics_addr"`
	Log         LogConfig       `yaml:"log"`
	Capture     CaptureConfig   `yaml:"capture"`
	Artifacts   ArtifactConfig  `yaml:"artifacts"`
	Inference   InferenceConfig `yaml:"inference"`
	Transmit    TransmitConfig  `yaml:"transmit"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
	Lifecycle   LifecycleConfig `yaml:"lifecycle"`
	Hub         HubConfig       `yaml:"hub"`
	Ledger      LedgerConfig    `yaml:"ledger"`
	NATS        NATSConfig      `yaml:"nats"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "text"
}

// CaptureConfig selects the camera source.
type CaptureConfig struct {
	Provider string `yaml:"provider"` // "simulated", "spool"
	SpoolDir string `yaml:"spool_dir"`
}

// ArtifactConfig selects where clips are held between capture and report.
type ArtifactConfig struct {
	Backend string   `yaml:"backend"` // "fs", "s3"
	Dir     string   `yaml:"dir"`     // fs: empty means the OS temp dir
	S3      S3Config `yaml:"s3"`
}

// S3Config locates an S3 or MinIO bucket.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// InferenceConfig selects the classifier.
type InferenceConfig struct {
	Provider    string        `yaml:"provider"` // "simulated", "onnx"
	ModelPath   string        `yaml:"model_path"`
	LibraryPath string        `yaml:"library_path"`
	Threads     int           `yaml:"threads"`
	Delay       time.Duration `yaml:"delay"` // simulated only
	Seed        uint64        `yaml:"seed"`  // simulated only; 0 = time-based
}

// TransmitConfig selects how reports reach the central server.
type TransmitConfig struct {
	Provider   string        `yaml:"provider"` // "local", "webhook", "nats"
	Endpoint   string        `yaml:"endpoint"` // webhook: hub base URL
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"` // transport-level, webhook only
	Latency    time.Duration `yaml:"latency"`     // local only
	Subject    string        `yaml:"subject"`     // nats only
}

// PipelineConfig holds incident run settings.
type PipelineConfig struct {
	StageTimeout         time.Duration `yaml:"stage_timeout"`
	NoViolationArtifacts string        `yaml:"no_violation_artifacts"` // "retain", "delete"
	WatchInterval        time.Duration `yaml:"watch_interval"`
}

// LifecycleConfig holds retraining check settings.
type LifecycleConfig struct {
	Provider   string        `yaml:"provider"` // "simulated", "hub"
	Endpoint   string        `yaml:"endpoint"`
	Token      string        `yaml:"token"`
	Threshold  float64       `yaml:"threshold"`
	MinSamples int           `yaml:"min_samples"`
	Window     time.Duration `yaml:"window"`
	Interval   time.Duration `yaml:"interval"`
}

// HubConfig holds the development central server settings.
type HubConfig struct {
	Addr          string `yaml:"addr"`
	CacheSize     int    `yaml:"cache_size"`
	NATSResponder bool   `yaml:"nats_responder"`
}

// LedgerConfig selects where reports and outcomes are recorded.
type LedgerConfig struct {
	Path    string `yaml:"path"` // empty disables the file ledger
	MaxSize int64  `yaml:"max_size"`
	Stdout  bool   `yaml:"stdout"`
	Pretty  bool   `yaml:"pretty"`
}

// NATSConfig holds the NATS connection.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SiteID:   "CROSSROAD_HWY_231_MAIN_ST",
		SiteCode: "HWY231",
		Log:      LogConfig{Level: "info", Format: "json"},
		Capture:  CaptureConfig{Provider: "simulated"},
		Artifacts: ArtifactConfig{
			Backend: "fs",
			S3:      S3Config{Region: "us-east-1"},
		},
		Inference: InferenceConfig{
			Provider:  "simulated",
			ModelPath: "models/violations.onnx",
			Threads:   4,
		},
		Transmit: TransmitConfig{
			Provider: "local",
			Endpoint: "http://127.0.0.1:8080",
			Timeout:  10 * time.Second,
			Subject:  "trafficwatch.reports.submit",
		},
		Pipeline: PipelineConfig{
			StageTimeout:         30 * time.Second,
			NoViolationArtifacts: "retain",
			WatchInterval:        time.Minute,
		},
		Lifecycle: LifecycleConfig{
			Provider:   "simulated",
			Endpoint:   "http://127.0.0.1:8080",
			Threshold:  0.05,
			MinSamples: 1,
			Window:     24 * time.Hour,
			Interval:   time.Hour,
		},
		Hub:  HubConfig{Addr: ":8080", CacheSize: 1024},
		NATS: NATSConfig{URL: "nats://127.0.0.1:4222"},
	}
}

// Load reads configuration from environment variables over the defaults.
func Load() Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile decodes a YAML file over the defaults, then applies environment
// variables. Unknown keys are rejected.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.SiteID = getenv("TRAFFICWATCH_SITE_ID", c.SiteID)
	c.SiteCode = getenv("TRAFFICWATCH_SITE_CODE", c.SiteCode)
	c.MetricsAddr = getenv("TRAFFICWATCH_METRICS_ADDR", c.MetricsAddr)
	c.Log.Level = getenv("TRAFFICWATCH_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("TRAFFICWATCH_LOG_FORMAT", c.Log.Format)

	c.Capture.Provider = getenv("TRAFFICWATCH_CAPTURE", c.Capture.Provider)
	c.Capture.SpoolDir = getenv("TRAFFICWATCH_SPOOL_DIR", c.Capture.SpoolDir)

	c.Artifacts.Backend = getenv("TRAFFICWATCH_ARTIFACTS", c.Artifacts.Backend)
	c.Artifacts.Dir = getenv("TRAFFICWATCH_ARTIFACT_DIR", c.Artifacts.Dir)
	c.Artifacts.S3.Endpoint = getenv("TRAFFICWATCH_S3_ENDPOINT", c.Artifacts.S3.Endpoint)
	c.Artifacts.S3.Region = getenv("TRAFFICWATCH_S3_REGION", c.Artifacts.S3.Region)
	c.Artifacts.S3.Bucket = getenv("TRAFFICWATCH_S3_BUCKET", c.Artifacts.S3.Bucket)
	c.Artifacts.S3.Prefix = getenv("TRAFFICWATCH_S3_PREFIX", c.Artifacts.S3.Prefix)
	c.Artifacts.S3.AccessKey = getenv("TRAFFICWATCH_S3_ACCESS_KEY", c.Artifacts.S3.AccessKey)
	c.Artifacts.S3.SecretKey = getenv("TRAFFICWATCH_S3_SECRET_KEY", c.Artifacts.S3.SecretKey)

	c.Inference.Provider = getenv("TRAFFICWATCH_INFERENCE", c.Inference.Provider)
	c.Inference.ModelPath = getenv("TRAFFICWATCH_MODEL_PATH", c.Inference.ModelPath)
	c.Inference.LibraryPath = getenv("TRAFFICWATCH_ORT_LIBRARY", c.Inference.LibraryPath)
	c.Inference.Threads = getenvInt("TRAFFICWATCH_ORT_THREADS", c.Inference.Threads)
	c.Inference.Delay = getenvDuration("TRAFFICWATCH_INFERENCE_DELAY", c.Inference.Delay)
	c.Inference.Seed = uint64(getenvInt("TRAFFICWATCH_INFERENCE_SEED", int(c.Inference.Seed)))

	c.Transmit.Provider = getenv("TRAFFICWATCH_TRANSMIT", c.Transmit.Provider)
	c.Transmit.Endpoint = getenv("TRAFFICWATCH_TRANSMIT_ENDPOINT", c.Transmit.Endpoint)
	c.Transmit.Token = getenv("TRAFFICWATCH_TRANSMIT_TOKEN", c.Transmit.Token)
	c.Transmit.Timeout = getenvDuration("TRAFFICWATCH_TRANSMIT_TIMEOUT", c.Transmit.Timeout)
	c.Transmit.MaxRetries = getenvInt("TRAFFICWATCH_TRANSMIT_MAX_RETRIES", c.Transmit.MaxRetries)
	c.Transmit.Latency = getenvDuration("TRAFFICWATCH_TRANSMIT_LATENCY", c.Transmit.Latency)
	c.Transmit.Subject = getenv("TRAFFICWATCH_TRANSMIT_SUBJECT", c.Transmit.Subject)

	c.Pipeline.StageTimeout = getenvDuration("TRAFFICWATCH_STAGE_TIMEOUT", c.Pipeline.StageTimeout)
	c.Pipeline.NoViolationArtifacts = getenv("TRAFFICWATCH_NO_VIOLATION_ARTIFACTS", c.Pipeline.NoViolationArtifacts)
	c.Pipeline.WatchInterval = getenvDuration("TRAFFICWATCH_WATCH_INTERVAL", c.Pipeline.WatchInterval)

	c.Lifecycle.Provider = getenv("TRAFFICWATCH_LIFECYCLE", c.Lifecycle.Provider)
	c.Lifecycle.Endpoint = getenv("TRAFFICWATCH_LIFECYCLE_ENDPOINT", c.Lifecycle.Endpoint)
	c.Lifecycle.Token = getenv("TRAFFICWATCH_LIFECYCLE_TOKEN", c.Lifecycle.Token)
	c.Lifecycle.Threshold = getenvFloat("TRAFFICWATCH_DRIFT_THRESHOLD", c.Lifecycle.Threshold)
	c.Lifecycle.MinSamples = getenvInt("TRAFFICWATCH_DRIFT_MIN_SAMPLES", c.Lifecycle.MinSamples)
	c.Lifecycle.Window = getenvDuration("TRAFFICWATCH_FEEDBACK_WINDOW", c.Lifecycle.Window)
	c.Lifecycle.Interval = getenvDuration("TRAFFICWATCH_LIFECYCLE_INTERVAL", c.Lifecycle.Interval)

	c.Hub.Addr = getenv("TRAFFICWATCH_HUB_ADDR", c.Hub.Addr)
	c.Hub.CacheSize = getenvInt("TRAFFICWATCH_HUB_CACHE_SIZE", c.Hub.CacheSize)
	c.Hub.NATSResponder = getenvBool("TRAFFICWATCH_HUB_NATS", c.Hub.NATSResponder)

	c.Ledger.Path = getenv("TRAFFICWATCH_LEDGER_PATH", c.Ledger.Path)
	c.Ledger.MaxSize = int64(getenvInt("TRAFFICWATCH_LEDGER_MAX_SIZE", int(c.Ledger.MaxSize)))
	c.Ledger.Stdout = getenvBool("TRAFFICWATCH_LEDGER_STDOUT", c.Ledger.Stdout)
	c.Ledger.Pretty = getenvBool("TRAFFICWATCH_LEDGER_PRETTY", c.Ledger.Pretty)

	c.NATS.URL = getenv("TRAFFICWATCH_NATS_URL", c.NATS.URL)
}

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error
	if c.SiteID == "" {
		errs = append(errs, errors.New("site_id is required (TRAFFICWATCH_SITE_ID)"))
	}
	if !oneOf(strings.ToLower(c.Log.Level), "debug", "info", "warn", "warning", "error") {
		errs = append(errs, fmt.Errorf("log level %q must be debug, info, warn, or error", c.Log.Level))
	}
	if !oneOf(c.Log.Format, "json", "text") {
		errs = append(errs, fmt.Errorf("log format %q must be json or text", c.Log.Format))
	}

	switch c.Capture.Provider {
	case "simulated":
	case "spool":
		if c.Capture.SpoolDir == "" {
			errs = append(errs, errors.New("capture provider spool requires spool_dir (TRAFFICWATCH_SPOOL_DIR)"))
		} else if c.Artifacts.Backend == "fs" && sameDir(c.Capture.SpoolDir, c.artifactDir()) {
			errs = append(errs, fmt.Errorf("spool_dir %s must differ from the artifact dir", c.Capture.SpoolDir))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown capture provider %q", c.Capture.Provider))
	}

	switch c.Artifacts.Backend {
	case "fs":
	case "s3":
		if c.Artifacts.S3.Bucket == "" {
			errs = append(errs, errors.New("artifact backend s3 requires a bucket (TRAFFICWATCH_S3_BUCKET)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown artifact backend %q", c.Artifacts.Backend))
	}

	switch c.Inference.Provider {
	case "simulated":
		if c.Inference.Delay < 0 {
			errs = append(errs, fmt.Errorf("inference delay must be >= 0, got %v", c.Inference.Delay))
		}
	case "onnx":
		if _, err := os.Stat(c.Inference.ModelPath); err != nil {
			errs = append(errs, fmt.Errorf("model file not found: %s", c.Inference.ModelPath))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown inference provider %q", c.Inference.Provider))
	}

	switch c.Transmit.Provider {
	case "local", "nats":
	case "webhook":
		if c.Transmit.Endpoint == "" {
			errs = append(errs, errors.New("transmit provider webhook requires an endpoint (TRAFFICWATCH_TRANSMIT_ENDPOINT)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transmit provider %q", c.Transmit.Provider))
	}
	if c.Transmit.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("transmit max_retries must be >= 0, got %d", c.Transmit.MaxRetries))
	}

	if c.Pipeline.StageTimeout < 0 {
		errs = append(errs, fmt.Errorf("stage timeout must be >= 0, got %v", c.Pipeline.StageTimeout))
	}
	if !oneOf(c.Pipeline.NoViolationArtifacts, "retain", "delete") {
		errs = append(errs, fmt.Errorf("no_violation_artifacts %q must be retain or delete", c.Pipeline.NoViolationArtifacts))
	}
	if c.Pipeline.WatchInterval <= 0 {
		errs = append(errs, fmt.Errorf("watch interval must be > 0, got %v", c.Pipeline.WatchInterval))
	}

	if !oneOf(c.Lifecycle.Provider, "simulated", "hub") {
		errs = append(errs, fmt.Errorf("unknown lifecycle provider %q", c.Lifecycle.Provider))
	}
	if c.Lifecycle.Threshold < 0 || c.Lifecycle.Threshold > 1 {
		errs = append(errs, fmt.Errorf("drift threshold must be between 0 and 1, got %v", c.Lifecycle.Threshold))
	}
	if c.Lifecycle.MinSamples < 1 {
		errs = append(errs, fmt.Errorf("drift min_samples must be >= 1, got %d", c.Lifecycle.MinSamples))
	}
	if c.Lifecycle.Window <= 0 {
		errs = append(errs, fmt.Errorf("feedback window must be > 0, got %v", c.Lifecycle.Window))
	}
	if c.Lifecycle.Interval <= 0 {
		errs = append(errs, fmt.Errorf("lifecycle interval must be > 0, got %v", c.Lifecycle.Interval))
	}

	if c.Hub.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("hub cache_size must be > 0, got %d", c.Hub.CacheSize))
	}
	if c.Ledger.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("ledger max_size must be >= 0, got %d", c.Ledger.MaxSize))
	}
	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// artifactDir is the directory the fs artifact store will use.
func (c Config) artifactDir() string {
	if c.Artifacts.Dir == "" {
		return os.TempDir()
	}
	return c.Artifacts.Dir
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
