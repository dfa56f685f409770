package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/medivault/recall"
	"github.com/medivault/recall/blobstore"
	"github.com/medivault/recall/codec"
	"github.com/medivault/recall/embedding"
	"github.com/medivault/recall/internal/config"
	"github.com/medivault/recall/persistence"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "recalld",
	Short:        "Semantic search service over disease and patient record indices",
	SilenceUsage: true, // operational errors should not dump usage text
	Long: `recalld maintains two vector indices, a shared disease reference set and a
per-user patient record set, and serves similarity search over them.

Typical flow:
  recalld init     build the index artifacts from the configured sources
  recalld serve    run the HTTP search service
  recalld status   inspect the artifacts on disk`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (YAML); built-in defaults apply when omitted")
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the service zap logger from the logging config.
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging.level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// slogLevel maps a config level name onto the index manager's slog level.
func slogLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildEmbedder assembles the configured embedding provider, wrapped in an
// LRU cache when embedding.cache_size is set.
func buildEmbedder(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	var inner embedding.Embedder

	switch cfg.Provider {
	case "mock":
		inner = embedding.NewMock(cfg.Dimension)
	case "google":
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, errors.New("GOOGLE_API_KEY is not set; export it or put it in a .env file")
		}
		g, err := embedding.NewGoogle(apiKey, func(o *embedding.GoogleOptions) {
			o.Model = cfg.Model
			o.Dimension = cfg.Dimension
			o.BatchSize = cfg.BatchSize
			o.RequestsPerSecond = rate.Limit(cfg.RequestsPerSecond)
		})
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		return embedding.NewCached(inner, cfg.CacheSize), nil
	}
	return inner, nil
}

// buildManager assembles the index manager on a local blob store rooted at
// index.dir. Compression and codec names were validated with the config, so
// the lookups cannot miss here.
func buildManager(cfg *config.Config) (*recall.Manager, error) {
	blobs, err := blobstore.NewLocal(cfg.Index.Dir)
	if err != nil {
		return nil, fmt.Errorf("open index dir: %w", err)
	}

	compression, _ := persistence.CompressionByName(cfg.Index.Compression)
	metaCodec, _ := codec.ByName(cfg.Index.Codec)

	managerLogger := recall.NewJSONLogger(slogLevel(cfg.Logging.Level))
	if cfg.Logging.Development {
		managerLogger = recall.NewTextLogger(slogLevel(cfg.Logging.Level))
	}

	return recall.New(cfg.Embedding.Dimension,
		recall.WithBlobStore(blobs),
		recall.WithCompression(compression),
		recall.WithCodec(metaCodec),
		recall.WithOverfetchFactor(cfg.Index.OverfetchFactor),
		recall.WithArtifactPrefix(cfg.Index.ArtifactPrefix),
		recall.WithLogger(managerLogger),
	)
}

// artifactNames lists the artifact pair names of both collections, the file
// set the watcher and status command care about.
func artifactNames(prefix string) []string {
	collections := []recall.Collection{recall.CollectionDiseases, recall.CollectionRecords}
	names := make([]string, 0, 2*len(collections))
	for _, c := range collections {
		names = append(names, recall.VectorArtifact(prefix, c), recall.MetadataArtifact(prefix, c))
	}
	return names
}
