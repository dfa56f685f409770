package recall

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medivault/recall/blobstore"
	"github.com/medivault/recall/metadata"
	"github.com/medivault/recall/persistence"
)

func newTestUnit(t *testing.T, dimension int, optFns ...Option) *Unit {
	t.Helper()

	mgr, err := New(dimension, optFns...)
	require.NoError(t, err)

	u, err := mgr.Unit(CollectionRecords)
	require.NoError(t, err)
	return u
}

func diseaseRecord(name string) metadata.Record {
	return metadata.Record{
		"name":                  name,
		metadata.FieldChunkType: "disease",
		metadata.FieldSource:    "csv",
	}
}

func ownedRecord(owner, title string) metadata.Record {
	return metadata.Record{
		metadata.FieldOwner:     owner,
		"title":                 title,
		metadata.FieldChunkType: "patient_record",
		metadata.FieldSource:    "sqlite",
	}
}

func TestAddAssignsSequentialIdentifiers(t *testing.T) {
	ctx := context.Background()

	// Identifier assignment is gap-free regardless of how the adds are
	// batched.
	for _, batches := range [][]int{{6}, {1, 1, 1, 1, 1, 1}, {2, 3, 1}, {1, 5}} {
		t.Run(fmt.Sprintf("batches=%v", batches), func(t *testing.T) {
			u := newTestUnit(t, 2)

			var got []uint64
			for _, n := range batches {
				vectors := make([][]float32, n)
				records := make([]metadata.Record, n)
				for i := range n {
					vectors[i] = []float32{float32(i), float32(i)}
					records[i] = ownedRecord("alice", "r")
				}

				ids, err := u.Add(ctx, vectors, records)
				require.NoError(t, err)
				got = append(got, ids...)
			}

			require.Len(t, got, 6)
			for i, id := range got {
				assert.Equal(t, uint64(i), id)
			}
			assert.Equal(t, uint64(6), u.NextID())
		})
	}
}

func TestAddSizeParity(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	for i := 0; i < 5; i++ {
		_, err := u.Add(ctx,
			[][]float32{{float32(i), 0}},
			[]metadata.Record{ownedRecord("alice", "r")},
		)
		require.NoError(t, err)

		stats := u.Stats()
		assert.Equal(t, i+1, stats.Count)
		assert.Equal(t, uint64(i+1), stats.NextID)
	}
}

func TestAddRejectsLengthMismatch(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	_, err := u.Add(ctx,
		[][]float32{{1, 2}, {3, 4}},
		[]metadata.Record{ownedRecord("alice", "only one")},
	)

	var ia *InvalidArgumentError
	require.ErrorAs(t, err, &ia)
	assert.Equal(t, 0, u.Size())
	assert.Equal(t, uint64(0), u.NextID())
}

func TestAddDimensionEnforcement(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	_, err := u.Add(ctx, [][]float32{{1, 2}}, []metadata.Record{ownedRecord("alice", "ok")})
	require.NoError(t, err)

	// A three-component vector in a two-dimensional unit rejects the whole
	// batch, including its well-formed rows.
	_, err = u.Add(ctx,
		[][]float32{{5, 6}, {1, 2, 3}},
		[]metadata.Record{ownedRecord("alice", "a"), ownedRecord("alice", "b")},
	)

	var dm *DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)

	assert.Equal(t, 1, u.Size())
	assert.Equal(t, uint64(1), u.NextID())

	// The unit keeps accepting well-formed adds at the same identifier.
	ids, err := u.Add(ctx, [][]float32{{5, 6}}, []metadata.Record{ownedRecord("alice", "c")})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)
}

func TestAddEmptyBatch(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	ids, err := u.Add(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, uint64(0), u.NextID())
}

func TestSearchSelfQuery(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 3)

	vectors := [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	records := []metadata.Record{
		ownedRecord("alice", "first"),
		ownedRecord("alice", "second"),
		ownedRecord("alice", "third"),
	}
	_, err := u.Add(ctx, vectors, records)
	require.NoError(t, err)

	// Querying with a stored vector returns it first at distance 0, score 1.
	matches, err := u.Search(ctx, []float32{4, 5, 6}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, uint64(1), matches[0].ID)
	assert.Equal(t, float64(0), matches[0].Distance)
	assert.Equal(t, float64(1), matches[0].Score)
	assert.Equal(t, 1, matches[0].Rank)
	assert.Equal(t, "second", matches[0].Record["title"])
}

func TestSearchEmptyUnit(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	matches, err := u.Search(ctx, []float32{1, 2}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchValidation(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	_, err := u.Search(ctx, []float32{1, 2}, 0)
	var ia *InvalidArgumentError
	assert.ErrorAs(t, err, &ia)

	_, err = u.Search(ctx, []float32{1, 2, 3}, 5)
	var dm *DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
}

func TestSearchConcreteScenario(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	_, err := u.Add(ctx,
		[][]float32{{0, 0}, {10, 10}, {1, 0}},
		[]metadata.Record{
			ownedRecord("alice", "origin"),
			ownedRecord("alice", "far"),
			ownedRecord("alice", "near"),
		},
	)
	require.NoError(t, err)

	matches, err := u.Search(ctx, []float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, uint64(0), matches[0].ID)
	assert.Equal(t, float64(0), matches[0].Distance)
	assert.Equal(t, float64(1), matches[0].Score)
	assert.Equal(t, 1, matches[0].Rank)

	assert.Equal(t, uint64(2), matches[1].ID)
	assert.Equal(t, float64(1), matches[1].Distance)
	assert.Equal(t, 0.5, matches[1].Score)
	assert.Equal(t, 2, matches[1].Rank)
}

func TestSearchOwnerFilter(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	// Bob's vectors hug the origin; Alice's sit further out. An owner
	// filter for Alice must skip past every nearer Bob vector.
	_, err := u.Add(ctx,
		[][]float32{
			{0, 0}, {0.1, 0}, {0, 0.1}, {0.1, 0.1}, // bob
			{5, 5}, {6, 6}, // alice
		},
		[]metadata.Record{
			ownedRecord("bob", "b0"),
			ownedRecord("bob", "b1"),
			ownedRecord("bob", "b2"),
			ownedRecord("bob", "b3"),
			ownedRecord("alice", "a0"),
			ownedRecord("alice", "a1"),
		},
	)
	require.NoError(t, err)

	matches, err := u.Search(ctx, []float32{0, 0}, 2, WithOwner("alice"))
	require.NoError(t, err)
	require.Len(t, matches, 2)

	for _, m := range matches {
		assert.Equal(t, "alice", m.Record.Owner())
	}
	assert.Equal(t, uint64(4), matches[0].ID)
	assert.Equal(t, uint64(5), matches[1].ID)

	// Fewer matching records than k returns what exists.
	matches, err = u.Search(ctx, []float32{0, 0}, 10, WithOwner("alice"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	// An owner with no records returns empty without error.
	matches, err = u.Search(ctx, []float32{0, 0}, 2, WithOwner("carol"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchOverfetchDoubling(t *testing.T) {
	ctx := context.Background()

	// Factor 1 forces the doubling path: the first fetch returns only the
	// nearest k candidates, none of which survive the owner filter.
	u := newTestUnit(t, 2, WithOverfetchFactor(1))

	vectors := make([][]float32, 0, 9)
	records := make([]metadata.Record, 0, 9)
	for i := 0; i < 8; i++ {
		vectors = append(vectors, []float32{float32(i), 0})
		records = append(records, ownedRecord("bob", fmt.Sprintf("b%d", i)))
	}
	vectors = append(vectors, []float32{100, 0})
	records = append(records, ownedRecord("alice", "far away"))

	_, err := u.Add(ctx, vectors, records)
	require.NoError(t, err)

	matches, err := u.Search(ctx, []float32{0, 0}, 1, WithOwner("alice"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, uint64(8), matches[0].ID)
	assert.Equal(t, "alice", matches[0].Record.Owner())
}

func TestSearchCustomFilter(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	_, err := u.Add(ctx,
		[][]float32{{0, 0}, {1, 0}, {2, 0}},
		[]metadata.Record{
			ownedRecord("alice", "keep"),
			ownedRecord("alice", "drop"),
			ownedRecord("alice", "keep"),
		},
	)
	require.NoError(t, err)

	matches, err := u.Search(ctx, []float32{0, 0}, 3, WithFilter(func(id uint64, rec metadata.Record) bool {
		return rec["title"] == "keep"
	}))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, uint64(0), matches[0].ID)
	assert.Equal(t, uint64(2), matches[1].ID)
	assert.Equal(t, 1, matches[0].Rank)
	assert.Equal(t, 2, matches[1].Rank)
}

func TestSearchResultIsolation(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	_, err := u.Add(ctx, [][]float32{{0, 0}}, []metadata.Record{ownedRecord("alice", "original")})
	require.NoError(t, err)

	matches, err := u.Search(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// Mutating a returned record must not leak into the table.
	matches[0].Record["title"] = "mutated"

	again, err := u.Search(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "original", again[0].Record["title"])
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, count := range []int{0, 1, 7} {
		t.Run(fmt.Sprintf("vectors=%d", count), func(t *testing.T) {
			blobs := blobstore.NewMemory()
			u := newTestUnit(t, 3, WithBlobStore(blobs))

			vectors := make([][]float32, count)
			records := make([]metadata.Record, count)
			for i := range count {
				vectors[i] = []float32{float32(i), float32(i * 2), 0.5}
				records[i] = ownedRecord("alice", fmt.Sprintf("rec-%d", i))
			}
			if count > 0 {
				_, err := u.Add(ctx, vectors, records)
				require.NoError(t, err)
			}

			require.NoError(t, u.Persist(ctx))

			restored := newTestUnit(t, 3, WithBlobStore(blobs))
			require.NoError(t, restored.Restore(ctx))

			assert.Equal(t, count, restored.Size())
			assert.Equal(t, uint64(count), restored.NextID())
			assert.True(t, restored.Loaded())

			if count > 0 {
				want, err := u.Search(ctx, vectors[0], count)
				require.NoError(t, err)
				got, err := restored.Search(ctx, vectors[0], count)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			// Adds continue numbering past the restored identifiers.
			ids, err := restored.Add(ctx, [][]float32{{9, 9, 9}}, []metadata.Record{ownedRecord("bob", "new")})
			require.NoError(t, err)
			assert.Equal(t, []uint64{uint64(count)}, ids)
		})
	}
}

func TestRestoreMissingArtifacts(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2, WithBlobStore(blobstore.NewMemory()))

	// Nothing persisted yet: restore succeeds and leaves the unit empty.
	require.NoError(t, u.Restore(ctx))
	assert.Equal(t, 0, u.Size())
	assert.Equal(t, uint64(0), u.NextID())
	assert.False(t, u.Loaded())
}

func TestRestoreMissingMetadata(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemory()

	u := newTestUnit(t, 2, WithBlobStore(blobs))
	_, err := u.Add(ctx,
		[][]float32{{1, 0}, {0, 1}},
		[]metadata.Record{ownedRecord("alice", "a"), ownedRecord("bob", "b")},
	)
	require.NoError(t, err)
	require.NoError(t, u.Persist(ctx))

	// Drop the metadata artifact; the vector snapshot survives alone.
	require.NoError(t, blobs.Delete(ctx, "patient_records_metadata.json"))

	restored := newTestUnit(t, 2, WithBlobStore(blobs))
	require.NoError(t, restored.Restore(ctx))

	// The store is populated, the table empty, and identifiers resume past
	// the orphaned vectors so they are never reused.
	assert.Equal(t, 2, restored.Size())
	assert.Equal(t, uint64(2), restored.NextID())
	assert.True(t, restored.Loaded())

	// Orphaned vectors degrade gracefully: they are omitted, not errors.
	matches, err := restored.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Empty(t, matches)

	ids, err := restored.Add(ctx, [][]float32{{2, 2}}, []metadata.Record{ownedRecord("carol", "c")})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)

	matches, err = restored.Search(ctx, []float32{2, 2}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, uint64(2), matches[0].ID)
}

func TestRestoreMetadataOverhang(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemory()

	// One stored vector, but metadata claiming identifiers 0 and 5, as if
	// the vector artifact were replaced by an older generation.
	wb, err := blobs.Create(ctx, "patient_records.index")
	require.NoError(t, err)
	require.NoError(t, persistence.WriteVectors(wb, 2, 1, []float32{1, 0}, persistence.CompressionNone))
	require.NoError(t, wb.Commit())

	wb, err = blobs.Create(ctx, "patient_records_metadata.json")
	require.NoError(t, err)
	_, err = wb.Write([]byte(`{"0": {"title": "kept", "user_id": "alice"}, "5": {"title": "dangling", "user_id": "alice"}}`))
	require.NoError(t, err)
	require.NoError(t, wb.Commit())

	u := newTestUnit(t, 2, WithBlobStore(blobs))
	require.NoError(t, u.Restore(ctx))

	assert.Equal(t, 1, u.Size())
	assert.Equal(t, uint64(1), u.NextID())

	matches, err := u.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "kept", matches[0].Record["title"])

	// The dangling identifier was dropped, so adding works.
	ids, err := u.Add(ctx, [][]float32{{0, 1}}, []metadata.Record{ownedRecord("bob", "fresh")})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)
}

func TestRestoreCorruptVectorArtifact(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemory()

	wb, err := blobs.Create(ctx, "patient_records.index")
	require.NoError(t, err)
	_, err = wb.Write([]byte("this is not a vector snapshot, not even close"))
	require.NoError(t, err)
	require.NoError(t, wb.Commit())

	u := newTestUnit(t, 2, WithBlobStore(blobs))
	_, err = u.Add(ctx, [][]float32{{1, 1}}, []metadata.Record{ownedRecord("alice", "prior")})
	require.NoError(t, err)

	err = u.Restore(ctx)
	var corrupt *CorruptIndexError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "patient_records.index", corrupt.Name)

	// Prior in-memory state is retained.
	assert.Equal(t, 1, u.Size())
	matches, err := u.Search(ctx, []float32{1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "prior", matches[0].Record["title"])
}

func TestRestoreCorruptMetadataArtifact(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemory()

	u := newTestUnit(t, 2, WithBlobStore(blobs))
	_, err := u.Add(ctx, [][]float32{{1, 1}}, []metadata.Record{ownedRecord("alice", "prior")})
	require.NoError(t, err)
	require.NoError(t, u.Persist(ctx))

	wb, err := blobs.Create(ctx, "patient_records_metadata.json")
	require.NoError(t, err)
	_, err = wb.Write([]byte(`{"broken json`))
	require.NoError(t, err)
	require.NoError(t, wb.Commit())

	err = u.Restore(ctx)
	var corrupt *CorruptIndexError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "patient_records_metadata.json", corrupt.Name)
	assert.Equal(t, 1, u.Size())
}

func TestRestoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemory()

	// Persist through a 3-dimensional unit, restore through a 2-dimensional
	// one: the artifact is valid but foreign.
	mgr3, err := New(3, WithBlobStore(blobs))
	require.NoError(t, err)
	u3, err := mgr3.Unit(CollectionRecords)
	require.NoError(t, err)
	_, err = u3.Add(ctx, [][]float32{{1, 2, 3}}, []metadata.Record{ownedRecord("alice", "a")})
	require.NoError(t, err)
	require.NoError(t, u3.Persist(ctx))

	u2 := newTestUnit(t, 2, WithBlobStore(blobs))
	err = u2.Restore(ctx)
	var corrupt *CorruptIndexError
	require.ErrorAs(t, err, &corrupt)

	var dm *DimensionMismatchError
	assert.ErrorAs(t, err, &dm)
}

func TestPersistWithoutBlobStore(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	var cfg *ConfigurationError
	assert.ErrorAs(t, u.Persist(ctx), &cfg)
	assert.ErrorAs(t, u.Restore(ctx), &cfg)
}

func TestConcurrentAddAndSearch(t *testing.T) {
	ctx := context.Background()
	u := newTestUnit(t, 2)

	const writers = 4
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := u.Add(ctx,
					[][]float32{{float32(w), float32(i)}},
					[]metadata.Record{ownedRecord(fmt.Sprintf("owner-%d", w), "r")},
				)
				assert.NoError(t, err)
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			matches, err := u.Search(ctx, []float32{1, 1}, 3)
			assert.NoError(t, err)
			// Every visible match is fully committed: record present.
			for _, m := range matches {
				assert.NotNil(t, m.Record)
			}
		}
	}()

	wg.Wait()

	stats := u.Stats()
	assert.Equal(t, writers*perWriter, stats.Count)
	assert.Equal(t, uint64(writers*perWriter), stats.NextID)
}
