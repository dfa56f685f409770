package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/medivault/recall"
	"github.com/medivault/recall/embedding"
	"github.com/medivault/recall/internal/config"
	"github.com/medivault/recall/internal/loader"
)

var (
	flagDrop        bool
	flagSkipRecords bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Build the index artifacts from the configured sources",
	Long: `Init loads the disease CSV and the patient record database, embeds every
chunk, indexes the vectors and persists the artifact pair of each collection
into the index directory.

The index directory is locked for the duration of the build so a concurrent
init or an auto-reloading server never observes a half-written set.`,
	RunE: runInitIndices,
}

func init() {
	initCmd.Flags().BoolVar(&flagDrop, "drop", false, "rebuild from empty, overwriting existing artifacts")
	initCmd.Flags().BoolVar(&flagSkipRecords, "skip-records", false, "leave the patient record collection empty")
	rootCmd.AddCommand(initCmd)
}

func runInitIndices(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Index.Dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	lockPath := filepath.Join(cfg.Index.Dir, ".recalld.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("index directory is in use by another process (lock: %s)", lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	manager, err := buildManager(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if !flagDrop {
		if err := manager.RestoreAll(ctx); err != nil {
			return fmt.Errorf("restore existing artifacts: %w", err)
		}
		stats := manager.Stats()
		if stats.Diseases.Count > 0 || stats.Records.Count > 0 {
			return fmt.Errorf("artifacts in %s already hold %d disease and %d patient record vectors; pass --drop to rebuild",
				cfg.Index.Dir, stats.Diseases.Count, stats.Records.Count)
		}
	}

	fmt.Printf("Building diseases index from %s\n", cfg.Sources.DiseasesCSV)
	diseaseChunks, err := loader.LoadDiseases(cfg.Sources.DiseasesCSV)
	if err != nil {
		return err
	}
	diseaseCount, err := ingest(ctx, manager, embedder, recall.CollectionDiseases, diseaseChunks)
	if err != nil {
		return err
	}
	fmt.Printf("  indexed %d disease chunks\n", diseaseCount)

	recordCount := 0
	switch {
	case flagSkipRecords:
		fmt.Println("Skipping patient records (--skip-records)")
	case cfg.Sources.RecordsDB == "":
		fmt.Println("Skipping patient records (sources.records_db not configured)")
	default:
		fmt.Printf("Building patient records index from %s\n", cfg.Sources.RecordsDB)
		recordCount, err = ingestRecords(ctx, manager, embedder, cfg.Sources.RecordsDB)
		if err != nil {
			return err
		}
		fmt.Printf("  indexed %d patient record chunks\n", recordCount)
	}

	if err := manager.PersistAll(ctx); err != nil {
		return fmt.Errorf("persist artifacts: %w", err)
	}

	fmt.Printf("Done: %d disease and %d patient record vectors persisted to %s\n",
		diseaseCount, recordCount, cfg.Index.Dir)
	return nil
}

// ingest embeds the chunk texts in batches and indexes them with their
// metadata into the given collection.
func ingest(ctx context.Context, manager *recall.Manager, embedder embedding.Embedder, collection recall.Collection, chunks []loader.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := embedder.EmbedBatch(ctx, loader.Texts(chunks))
	if err != nil {
		return 0, fmt.Errorf("embed %s chunks: %w", collection, err)
	}
	if _, err := manager.Add(ctx, collection, vectors, loader.Records(chunks)); err != nil {
		return 0, fmt.Errorf("index %s chunks: %w", collection, err)
	}
	return len(chunks), nil
}

func ingestRecords(ctx context.Context, manager *recall.Manager, embedder embedding.Embedder, dbPath string) (int, error) {
	db, err := loader.OpenRecordDB(dbPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	chunks, err := db.LoadChunks(ctx)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		fmt.Println("  no patient records with content found")
		return 0, nil
	}
	return ingest(ctx, manager, embedder, recall.CollectionRecords, chunks)
}
