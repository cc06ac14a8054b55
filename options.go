package snapsweep

import (
	"log/slog"

	"github.com/hupe1980/snapsweep/hasher"
	"github.com/hupe1980/snapsweep/imaging"
	"github.com/hupe1980/snapsweep/mining"
	"github.com/hupe1980/snapsweep/resource"
)

type options struct {
	hasher           hasher.ContentHasher
	decoder          imaging.Decoder
	batchCount       int
	miningParams     mining.MinerParams
	resources        *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Analyzer constructor behavior.
type Option func(*options)

// WithHasher overrides the content hasher. The default hashes file
// bytes with SHA-256 using GOMAXPROCS workers.
func WithHasher(h hasher.ContentHasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}

// WithDecoder overrides the image decoder. The default reads from the
// local filesystem and validates jpeg, png and gif.
func WithDecoder(d imaging.Decoder) Option {
	return func(o *options) {
		if d != nil {
			o.decoder = d
		}
	}
}

// WithBatchCount sets the number of embedding batches an index update
// splits new items into. If 0, a default is used.
func WithBatchCount(count int) Option {
	return func(o *options) {
		o.batchCount = count
	}
}

// WithMiningParams configures duplicate mining (similarity threshold,
// chunk sizes, per-row and overall pair caps). Zero-valued fields fall
// back to defaults.
func WithMiningParams(params mining.MinerParams) Option {
	return func(o *options) {
		o.miningParams = params
	}
}

// WithResourceController bounds decode concurrency, in-flight image
// memory and embed request rate. Pass nil for no limits.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &snapsweep.BasicMetricsCollector{}
//	a, _ := snapsweep.New(vs, embedder, snapsweep.WithMetricsCollector(metrics))
//	// ... use a ...
//	stats := metrics.GetStats()
//	fmt.Printf("Updates: %d, Pairs: %d\n", stats.UpdateCount, stats.PairsFound)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := snapsweep.NewJSONLogger(slog.LevelInfo)
//	a, _ := snapsweep.New(vs, embedder, snapsweep.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		hasher:           hasher.NewSHA256(0),
		decoder:          imaging.NewFileDecoder(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
