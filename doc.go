// Package recall implements the vector index manager behind MediVault's
// semantic search: two fixed-dimension collections of embedding vectors (a
// disease reference set and per-user patient records) with exact
// nearest-neighbor search, stable integer identifiers, metadata kept in
// lock-step with the vectors, and persist/restore of artifact pairs through a
// pluggable blob store.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	blobs, err := blobstore.NewLocal("./data/index")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mgr, err := recall.New(768,
//	    recall.WithBlobStore(blobs),
//	    recall.WithLogger(recall.NewTextLogger(slog.LevelInfo)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := mgr.Add(ctx, recall.CollectionDiseases, vectors, records)
//
//	matches, err := mgr.SearchDiseases(ctx, query, 5)
//	matches, err = mgr.SearchRecords(ctx, query, 5, "user-42")
//
//	if err := mgr.PersistAll(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// On the next start, RestoreAll reloads both collections from the same blob
// store and resumes identifier assignment where it left off:
//
//	if err := mgr.RestoreAll(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Identifiers
//
// Identifiers are assigned per collection in strictly increasing order
// starting at 0 and are never reused; re-indexing an entity issues a new
// identifier. Every stored vector has exactly one metadata record under the
// same identifier.
//
// # Scores
//
// Search results carry both the raw squared Euclidean distance and a bounded
// similarity score 1/(1+distance) in (0, 1], where 1 means an exact match.
//
// # Concurrency
//
// A Manager is safe for concurrent use. Mutations of one collection are
// serialized; searches run concurrently against a stable view and never
// observe a half-applied add. The two collections are independent.
package recall
