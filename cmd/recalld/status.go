package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/medivault/recall"
	"github.com/medivault/recall/blobstore"
	"github.com/medivault/recall/codec"
	"github.com/medivault/recall/internal/config"
	"github.com/medivault/recall/metadata"
	"github.com/medivault/recall/vectorstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Inspect the index artifacts on disk",
	Long: `Status reads each collection's artifact pair without modifying it, verifies
the vector snapshot checksum, and prints the vector count, dimension and
next identifier.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	blobs, err := blobstore.NewLocal(cfg.Index.Dir)
	if err != nil {
		return fmt.Errorf("open index dir: %w", err)
	}
	metaCodec, _ := codec.ByName(cfg.Index.Codec)

	fmt.Printf("Index directory: %s\n", cfg.Index.Dir)
	if cfg.Index.ArtifactPrefix != "" {
		fmt.Printf("Artifact prefix: %s\n", cfg.Index.ArtifactPrefix)
	}

	ctx := cmd.Context()
	for _, collection := range []recall.Collection{recall.CollectionDiseases, recall.CollectionRecords} {
		printCollectionStatus(ctx, blobs, metaCodec, cfg.Index.ArtifactPrefix, collection)
	}
	return nil
}

func printCollectionStatus(ctx context.Context, blobs blobstore.BlobStore, metaCodec codec.Codec, prefix string, collection recall.Collection) {
	fmt.Printf("\n%s:\n", collection)

	vectorCount := -1
	vectorName := recall.VectorArtifact(prefix, collection)
	blob, err := blobs.Open(ctx, vectorName)
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		fmt.Printf("  %-32s missing\n", vectorName)
	case err != nil:
		fmt.Printf("  %-32s error: %v\n", vectorName, err)
	default:
		size := blob.Size()
		store, loadErr := vectorstore.Load(blob)
		_ = blob.Close()
		if loadErr != nil {
			fmt.Printf("  %-32s corrupt: %v\n", vectorName, loadErr)
		} else {
			vectorCount = store.Size()
			fmt.Printf("  %-32s ok, %d bytes, %d vectors, dimension %d\n",
				vectorName, size, store.Size(), store.Dimension())
		}
	}

	metadataName := recall.MetadataArtifact(prefix, collection)
	blob, err = blobs.Open(ctx, metadataName)
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		fmt.Printf("  %-32s missing\n", metadataName)
	case err != nil:
		fmt.Printf("  %-32s error: %v\n", metadataName, err)
	default:
		size := blob.Size()
		payload, readErr := io.ReadAll(blob)
		_ = blob.Close()
		if readErr != nil {
			fmt.Printf("  %-32s error: %v\n", metadataName, readErr)
			break
		}
		table, decodeErr := metadata.UnmarshalTable(metaCodec, payload)
		if decodeErr != nil {
			fmt.Printf("  %-32s corrupt: %v\n", metadataName, decodeErr)
			break
		}
		line := fmt.Sprintf("  %-32s ok, %d bytes, %d records", metadataName, size, table.Len())
		if vectorCount >= 0 && table.Len() != vectorCount {
			line += fmt.Sprintf(" (disagrees with %d vectors)", vectorCount)
		}
		fmt.Println(line)
	}

	if vectorCount >= 0 {
		// Identifiers are row offsets, so the count is also the next id.
		fmt.Printf("  next id: %d\n", vectorCount)
	}
}
