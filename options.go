package recall

import (
	"log/slog"

	"github.com/medivault/recall/blobstore"
	"github.com/medivault/recall/codec"
	"github.com/medivault/recall/persistence"
)

// DefaultOverfetchFactor is the multiplier applied to k when a filtered
// search pulls candidates from the vector store. Filtering discards
// non-matching candidates, so the store is over-queried to keep the odds of
// filling k results in one pass high; the fetch size doubles from there until
// k matches are found or the store is exhausted.
const DefaultOverfetchFactor = 3

type options struct {
	logger          *Logger
	metrics         MetricsCollector
	codec           codec.Codec
	blobs           blobstore.BlobStore
	compression     persistence.CompressionType
	overfetchFactor int
	artifactPrefix  string
}

// Option configures Manager construction.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := recall.NewJSONLogger(slog.LevelInfo)
//	mgr, _ := recall.New(768, recall.WithLogger(logger))
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

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &recall.BasicMetricsCollector{}
//	mgr, _ := recall.New(768, recall.WithMetricsCollector(metrics))
//	// ... use mgr ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithCodec configures the codec used for the metadata artifact.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithBlobStore configures the persistence substrate holding the artifact
// pairs. Without one, Persist and Restore fail with a ConfigurationError;
// in-memory use needs no blob store.
func WithBlobStore(bs blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobs = bs
	}
}

// WithCompression selects the block compression applied to vector snapshots.
// The default is zstd.
func WithCompression(c persistence.CompressionType) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithOverfetchFactor overrides DefaultOverfetchFactor for filtered searches.
// The factor must be at least 1.
func WithOverfetchFactor(factor int) Option {
	return func(o *options) {
		o.overfetchFactor = factor
	}
}

// WithArtifactPrefix prepends a name prefix to both artifacts of every
// collection pair, e.g. "staging_" yields "staging_diseases.index". The
// prefix must not contain path separators; use the blob store's own prefix
// support for buckets and directories.
func WithArtifactPrefix(prefix string) Option {
	return func(o *options) {
		o.artifactPrefix = prefix
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:          NoopLogger(),
		metrics:         NoopMetricsCollector{},
		codec:           codec.Default,
		compression:     persistence.CompressionZSTD,
		overfetchFactor: DefaultOverfetchFactor,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
