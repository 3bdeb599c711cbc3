package trafficwatch

import "os"

type options struct {
	modelPath   string
	libraryPath string
	threads     int
	seed        uint64
	scratchDir  string
}

// Option configures a Detector.
type Option func(*options)

// WithModelPath selects the ONNX classifier loaded from path. Without it the
// simulated classifier is used.
func WithModelPath(path string) Option {
	return func(o *options) {
		o.modelPath = path
	}
}

// WithLibraryPath sets the ONNX Runtime shared library. Default:
// libonnxruntime.so next to the model.
func WithLibraryPath(path string) Option {
	return func(o *options) {
		o.libraryPath = path
	}
}

// WithThreads sets ONNX Runtime intra-op threads. Default: 4.
func WithThreads(n int) Option {
	return func(o *options) {
		o.threads = n
	}
}

// WithSeed makes the simulated classifier deterministic.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithScratchDir sets where clips are staged while they are classified.
// Default: the OS temp directory.
func WithScratchDir(dir string) Option {
	return func(o *options) {
		o.scratchDir = dir
	}
}

func defaultOptions() options {
	return options{
		threads:    4,
		scratchDir: os.TempDir(),
	}
}
