package recall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/medivault/recall/blobstore"
	"github.com/medivault/recall/codec"
	"github.com/medivault/recall/ident"
	"github.com/medivault/recall/metadata"
	"github.com/medivault/recall/persistence"
	"github.com/medivault/recall/vectorstore"
)

// Unit is the index for one collection: a dense vector store, the metadata
// table keyed by the same identifiers, and the allocator that issues those
// identifiers. Units grow monotonically; there is no deletion or in-place
// update, and re-indexing an entity issues a fresh identifier.
//
// A Unit is safe for concurrent use. Add holds the write lock for the whole
// append+insert+advance sequence, so searches observe either the pre-add or
// the post-add state, never a half-applied one. Persist excludes mutation of
// its unit for the duration of the snapshot; distinct units never block each
// other.
type Unit struct {
	name      Collection
	dimension int

	mu    sync.RWMutex
	store *vectorstore.DenseStore
	table *metadata.Table
	ids   *ident.Allocator

	// restored is set once a vector artifact has been loaded into this unit.
	restored bool

	// persistMu serializes Persist and Restore so two persist calls cannot
	// interleave a mismatched artifact pair.
	persistMu sync.Mutex

	logger          *Logger
	metrics         MetricsCollector
	codec           codec.Codec
	blobs           blobstore.BlobStore
	compression     persistence.CompressionType
	overfetchFactor int
	artifactPrefix  string
}

// UnitStats is a point-in-time snapshot of one collection's state.
type UnitStats struct {
	Collection Collection `json:"collection"`
	Loaded     bool       `json:"loaded"`
	Count      int        `json:"count"`
	NextID     uint64     `json:"next_id"`
}

func newUnit(name Collection, dimension int, o options) (*Unit, error) {
	store, err := vectorstore.New(dimension)
	if err != nil {
		return nil, translateError(err)
	}

	return &Unit{
		name:            name,
		dimension:       dimension,
		store:           store,
		table:           metadata.NewTable(),
		ids:             ident.New(),
		logger:          o.logger,
		metrics:         o.metrics,
		codec:           o.codec,
		blobs:           o.blobs,
		compression:     o.compression,
		overfetchFactor: o.overfetchFactor,
		artifactPrefix:  o.artifactPrefix,
	}, nil
}

// Name returns the collection this unit indexes.
func (u *Unit) Name() Collection {
	return u.name
}

// Dimension returns the fixed vector dimension of the unit.
func (u *Unit) Dimension() int {
	return u.dimension
}

// Size returns the number of indexed vectors.
func (u *Unit) Size() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.store.Size()
}

// NextID returns the identifier the next added vector would receive.
func (u *Unit) NextID() uint64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ids.Next()
}

// Loaded reports whether the unit holds data or completed a restore.
func (u *Unit) Loaded() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.restored || u.store.Size() > 0
}

// Stats returns a snapshot of the unit's state.
func (u *Unit) Stats() UnitStats {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return UnitStats{
		Collection: u.name,
		Loaded:     u.restored || u.store.Size() > 0,
		Count:      u.store.Size(),
		NextID:     u.ids.Next(),
	}
}

// Add indexes the given vectors with their metadata records and returns the
// assigned identifiers, consecutive and strictly increasing across calls.
// vectors and records must have equal length and every vector must match the
// unit's dimension; any violation rejects the whole batch and leaves the
// unit unchanged.
func (u *Unit) Add(ctx context.Context, vectors [][]float32, records []metadata.Record) ([]uint64, error) {
	start := time.Now()

	ids, err := u.add(ctx, vectors, records)

	var firstID uint64
	if len(ids) > 0 {
		firstID = ids[0]
	}
	u.metrics.RecordAdd(string(u.name), len(vectors), time.Since(start), err)
	u.logger.LogAdd(ctx, string(u.name), len(vectors), firstID, err)
	return ids, err
}

func (u *Unit) add(ctx context.Context, vectors [][]float32, records []metadata.Record) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(vectors) != len(records) {
		return nil, &InvalidArgumentError{
			Name:   "records",
			Reason: fmt.Sprintf("got %d records for %d vectors", len(records), len(vectors)),
		}
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	base := u.ids.Next()

	// The allocator hands out fresh identifiers, so a hit here means the unit
	// was restored from artifacts that disagree in a way restore could not
	// repair.
	for i := range records {
		if u.table.Has(base + uint64(i)) {
			return nil, &DuplicateIdentifierError{ID: base + uint64(i)}
		}
	}

	offset, err := u.store.Append(vectors)
	if err != nil {
		return nil, translateError(err)
	}
	if offset != base {
		return nil, fmt.Errorf("recall: allocator at %d but store appended at %d", base, offset)
	}

	ids := make([]uint64, len(vectors))
	for i, rec := range records {
		id := base + uint64(i)
		if err := u.table.Insert(id, rec); err != nil {
			return nil, &DuplicateIdentifierError{ID: id}
		}
		ids[i] = id
	}

	u.ids.Reserve(len(vectors))
	return ids, nil
}

// Search returns up to k matches for the query, ordered by ascending
// distance with ascending identifier breaking ties, ranked 1..n. An empty
// unit yields an empty result and no error. When an owner or filter option
// is set, rejected candidates are replaced by over-fetching from the vector
// store until k matches are collected or the store is exhausted.
func (u *Unit) Search(ctx context.Context, query []float32, k int, optFns ...func(o *SearchOptions)) ([]Match, error) {
	start := time.Now()

	var opts SearchOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	matches, err := u.search(ctx, query, k, opts)

	u.metrics.RecordSearch(string(u.name), k, time.Since(start), err)
	u.logger.LogSearch(ctx, string(u.name), k, len(matches), err)
	return matches, err
}

func (u *Unit) search(ctx context.Context, query []float32, k int, opts SearchOptions) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return nil, &InvalidArgumentError{Name: "k", Reason: "must be positive"}
	}
	if len(query) != u.dimension {
		return nil, &DimensionMismatchError{Expected: u.dimension, Actual: len(query)}
	}

	u.mu.RLock()
	defer u.mu.RUnlock()

	size := u.store.Size()
	if size == 0 {
		return nil, nil
	}

	// An owner with no records cannot produce matches; skip the scan.
	if opts.Owner != "" && u.table.OwnerCount(opts.Owner) == 0 {
		return nil, nil
	}

	filtered := opts.Owner != "" || opts.Filter != nil

	fetch := k
	if filtered {
		fetch = k * u.overfetchFactor
		if fetch < k {
			fetch = size
		}
	}

	var matches []Match
	for {
		if fetch > size {
			fetch = size
		}

		candidates, err := u.store.Search(ctx, query, fetch)
		if err != nil {
			return nil, translateError(err)
		}

		matches = matches[:0]
		for _, c := range candidates {
			if opts.Owner != "" && !u.table.OwnerContains(opts.Owner, c.ID) {
				continue
			}

			rec, ok := u.table.Get(c.ID)
			if !ok {
				// Upstream inconsistency; omit the result rather than
				// failing the query.
				u.logger.WarnContext(ctx, "identifier missing from metadata table",
					"collection", string(u.name),
					"id", c.ID,
				)
				continue
			}

			if opts.Filter != nil && !opts.Filter(c.ID, rec) {
				continue
			}

			distance := float64(c.Distance)
			matches = append(matches, Match{
				ID:       c.ID,
				Record:   rec.Clone(),
				Score:    Score(distance),
				Distance: distance,
			})
			if len(matches) == k {
				break
			}
		}

		if len(matches) == k || fetch >= size {
			break
		}
		fetch *= 2
	}

	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches, nil
}

// Persist writes the unit's artifact pair to the blob store: the vector
// snapshot first, then the metadata table. Each artifact is written
// atomically, but the pair as a whole is not: a metadata failure after the
// vector commit leaves the new vector artifact in place, and the caller
// should treat the pair as provisional until both writes succeed.
func (u *Unit) Persist(ctx context.Context) error {
	start := time.Now()
	err := u.persist(ctx)
	u.metrics.RecordPersist(string(u.name), time.Since(start), err)
	u.logger.LogPersist(ctx, string(u.name), u.Size(), err)
	return err
}

func (u *Unit) persist(ctx context.Context) error {
	if u.blobs == nil {
		return &ConfigurationError{Reason: "no blob store configured"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	u.persistMu.Lock()
	defer u.persistMu.Unlock()

	// Hold the read lock across both writes so the pair snapshots a single
	// committed state, per the unit's exclusion of persist and add.
	u.mu.RLock()
	defer u.mu.RUnlock()

	if err := u.writeVectorArtifact(ctx); err != nil {
		return fmt.Errorf("persist %s: %w", u.name, err)
	}
	if err := u.writeMetadataArtifact(ctx); err != nil {
		return fmt.Errorf("persist %s: vector artifact written, metadata failed: %w", u.name, err)
	}
	return nil
}

func (u *Unit) writeVectorArtifact(ctx context.Context) error {
	wb, err := u.blobs.Create(ctx, u.vectorArtifact())
	if err != nil {
		return fmt.Errorf("create %s: %w", u.vectorArtifact(), err)
	}
	defer wb.Close()

	if err := u.store.WriteTo(wb, u.compression); err != nil {
		return fmt.Errorf("write %s: %w", u.vectorArtifact(), err)
	}
	return wb.Commit()
}

func (u *Unit) writeMetadataArtifact(ctx context.Context) error {
	payload, err := u.table.Marshal(u.codec)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	wb, err := u.blobs.Create(ctx, u.metadataArtifact())
	if err != nil {
		return fmt.Errorf("create %s: %w", u.metadataArtifact(), err)
	}
	defer wb.Close()

	if _, err := wb.Write(payload); err != nil {
		return fmt.Errorf("write %s: %w", u.metadataArtifact(), err)
	}
	return wb.Commit()
}

// Restore replaces the unit's state with the artifact pair from the blob
// store. A missing vector artifact leaves the unit untouched and is not an
// error. A missing metadata artifact restores the vectors beside an empty
// table, and a table that disagrees with the vector count is cut back to the
// consistent subset; both are logged as warnings. Corrupt artifacts fail with
// CorruptIndexError and the prior in-memory state is kept. After a successful
// restore the allocator resumes exactly past the highest identifier of the
// restored pair.
func (u *Unit) Restore(ctx context.Context) error {
	start := time.Now()
	vectors, records, err := u.restore(ctx)
	u.metrics.RecordRestore(string(u.name), time.Since(start), err)
	u.logger.LogRestore(ctx, string(u.name), vectors, records, err)
	return err
}

func (u *Unit) restore(ctx context.Context) (int, int, error) {
	if u.blobs == nil {
		return 0, 0, &ConfigurationError{Reason: "no blob store configured"}
	}
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	u.persistMu.Lock()
	defer u.persistMu.Unlock()

	store, err := u.readVectorArtifact(ctx)
	if err != nil {
		var merr *MissingArtifactError
		if errors.As(err, &merr) {
			// A collection that has never been persisted legitimately has
			// no artifacts; start empty.
			u.logger.InfoContext(ctx, "no vector artifact, collection starts empty",
				"collection", string(u.name),
				"reason", merr,
			)
			return 0, 0, nil
		}
		return 0, 0, err
	}

	table, err := u.readMetadataArtifact(ctx)
	if err != nil {
		var merr *MissingArtifactError
		if !errors.As(err, &merr) {
			return 0, 0, err
		}
		table = metadata.NewTable()
	}

	// Metadata beyond the vector snapshot can never be returned by a search
	// and would collide with future identifiers; keep the consistent subset.
	dropped := table.Truncate(uint64(store.Size()))
	if table.Len() != store.Size() || dropped > 0 {
		u.logger.WarnContext(ctx, "restored artifacts disagree, proceeding with partial metadata",
			"collection", string(u.name),
			"dropped", dropped,
			"reason", &InconsistentRestoreError{VectorCount: store.Size(), MetadataCount: table.Len()},
		)
	}

	// For a consistent pair the store size is exactly max identifier + 1;
	// for a partial table it is the only seed that keeps new identifiers
	// unique.
	ids := ident.New()
	ids.Seed(uint64(store.Size()))

	u.mu.Lock()
	u.store = store
	u.table = table
	u.ids = ids
	u.restored = true
	u.mu.Unlock()

	return store.Size(), table.Len(), nil
}

func (u *Unit) readVectorArtifact(ctx context.Context) (*vectorstore.DenseStore, error) {
	name := u.vectorArtifact()

	blob, err := u.blobs.Open(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, &MissingArtifactError{Name: name, cause: err}
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer blob.Close()

	store, err := vectorstore.Load(blob)
	if err != nil {
		return nil, &CorruptIndexError{Name: name, cause: err}
	}
	if store.Dimension() != u.dimension {
		return nil, &CorruptIndexError{
			Name:  name,
			cause: &DimensionMismatchError{Expected: u.dimension, Actual: store.Dimension()},
		}
	}
	return store, nil
}

func (u *Unit) readMetadataArtifact(ctx context.Context) (*metadata.Table, error) {
	name := u.metadataArtifact()

	blob, err := u.blobs.Open(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, &MissingArtifactError{Name: name, cause: err}
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer blob.Close()

	payload, err := io.ReadAll(blob)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	table, err := metadata.UnmarshalTable(u.codec, payload)
	if err != nil {
		return nil, &CorruptIndexError{Name: name, cause: err}
	}
	return table, nil
}

func (u *Unit) vectorArtifact() string {
	return VectorArtifact(u.artifactPrefix, u.name)
}

func (u *Unit) metadataArtifact() string {
	return MetadataArtifact(u.artifactPrefix, u.name)
}

// VectorArtifact returns the blob name of a collection's vector snapshot
// under the given artifact prefix, e.g. "diseases.index".
func VectorArtifact(prefix string, collection Collection) string {
	return prefix + string(collection) + ".index"
}

// MetadataArtifact returns the blob name of a collection's metadata table
// under the given artifact prefix, e.g. "diseases_metadata.json".
func MetadataArtifact(prefix string, collection Collection) string {
	return prefix + string(collection) + "_metadata.json"
}
