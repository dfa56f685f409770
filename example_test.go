package recall_test

import (
	"context"
	"fmt"
	"log"

	"github.com/medivault/recall"
	"github.com/medivault/recall/blobstore"
	"github.com/medivault/recall/metadata"
)

// Example_add demonstrates adding vectors with their metadata records.
func Example_add() {
	ctx := context.Background()
	mgr, err := recall.New(3)
	if err != nil {
		log.Fatal(err)
	}

	ids, err := mgr.Add(ctx, recall.CollectionDiseases,
		[][]float32{{1.0, 0.0, 0.0}, {0.0, 1.0, 0.0}},
		[]metadata.Record{
			{"name": "influenza"},
			{"name": "measles"},
		},
	)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Inserted vectors with IDs: %v\n", ids)
	// Output: Inserted vectors with IDs: [0 1]
}

// Example_search demonstrates exact nearest-neighbor search with scores.
func Example_search() {
	ctx := context.Background()
	mgr, _ := recall.New(3)

	mgr.Add(ctx, recall.CollectionDiseases,
		[][]float32{{1.0, 0.0, 0.0}, {0.0, 0.0, 1.0}},
		[]metadata.Record{
			{"name": "influenza"},
			{"name": "measles"},
		},
	)

	matches, err := mgr.SearchDiseases(ctx, []float32{1.0, 0.0, 0.0}, 1)
	if err != nil {
		log.Fatal(err)
	}

	top := matches[0]
	fmt.Printf("%s (score %.2f)\n", top.Record["name"], top.Score)
	// Output: influenza (score 1.00)
}

// Example_ownerSearch demonstrates restricting patient record search to one user.
func Example_ownerSearch() {
	ctx := context.Background()
	mgr, _ := recall.New(2)

	mgr.Add(ctx, recall.CollectionRecords,
		[][]float32{{1.0, 0.0}, {0.9, 0.0}},
		[]metadata.Record{
			{"user_id": "alice", "title": "annual checkup"},
			{"user_id": "bob", "title": "follow-up visit"},
		},
	)

	// Bob's record is nearer, but the filter only admits Alice's.
	matches, err := mgr.SearchRecords(ctx, []float32{0.9, 0.0}, 1, "alice")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(matches[0].Record["title"])
	// Output: annual checkup
}

// Example_persistRestore demonstrates snapshotting collections and loading
// them into a fresh manager.
func Example_persistRestore() {
	ctx := context.Background()
	blobs := blobstore.NewMemory()

	mgr, _ := recall.New(2, recall.WithBlobStore(blobs))
	mgr.Add(ctx, recall.CollectionDiseases,
		[][]float32{{1.0, 0.0}},
		[]metadata.Record{{"name": "influenza"}},
	)

	if err := mgr.PersistAll(ctx); err != nil {
		log.Fatal(err)
	}

	restored, _ := recall.New(2, recall.WithBlobStore(blobs))
	if err := restored.RestoreAll(ctx); err != nil {
		log.Fatal(err)
	}

	stats := restored.Stats()
	fmt.Printf("Restored %d disease vectors\n", stats.Diseases.Count)
	// Output: Restored 1 disease vectors
}

// Example_combinedSearch demonstrates querying both collections at once.
func Example_combinedSearch() {
	ctx := context.Background()
	mgr, _ := recall.New(2)

	mgr.Add(ctx, recall.CollectionDiseases,
		[][]float32{{1.0, 0.0}},
		[]metadata.Record{{"name": "influenza"}},
	)
	mgr.Add(ctx, recall.CollectionRecords,
		[][]float32{{1.0, 0.1}},
		[]metadata.Record{{"user_id": "alice", "title": "flu shot"}},
	)

	results, err := mgr.Search(ctx, []float32{1.0, 0.0}, 3, recall.ScopeBoth, "alice")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Diseases: %d, patient records: %d\n", len(results.Diseases), len(results.Records))
	// Output: Diseases: 1, patient records: 1
}
