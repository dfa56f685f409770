package metadata

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/medivault/recall/codec"
)

// ErrDuplicateID is returned when an identifier is inserted twice.
var ErrDuplicateID = errors.New("duplicate identifier")

// Table maps vector identifiers to their metadata records.
//
// Identifiers serialize as their decimal string form so the table stays a
// plain JSON object on disk; they are parsed back to integers on load.
// Not safe for concurrent use; the owning index unit synchronizes access.
type Table struct {
	records map[uint64]Record
	owners  map[string]*roaring64.Bitmap
	maxID   uint64
	hasAny  bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		records: make(map[uint64]Record),
		owners:  make(map[string]*roaring64.Bitmap),
	}
}

// Insert adds a record under id. Inserting an existing id fails with
// ErrDuplicateID and leaves the table unchanged.
func (t *Table) Insert(id uint64, rec Record) error {
	if _, exists := t.records[id]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}

	t.records[id] = rec
	if !t.hasAny || id > t.maxID {
		t.maxID = id
	}
	t.hasAny = true

	if owner := rec.Owner(); owner != "" {
		bm, ok := t.owners[owner]
		if !ok {
			bm = roaring64.New()
			t.owners[owner] = bm
		}
		bm.Add(id)
	}
	return nil
}

// Get returns the record for id.
func (t *Table) Get(id uint64) (Record, bool) {
	rec, ok := t.records[id]
	return rec, ok
}

// Has reports whether id is present.
func (t *Table) Has(id uint64) bool {
	_, ok := t.records[id]
	return ok
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// MaxID returns the largest inserted identifier. ok is false for an empty
// table.
func (t *Table) MaxID() (uint64, bool) {
	return t.maxID, t.hasAny
}

// OwnerContains reports whether id belongs to owner, using the owner index.
func (t *Table) OwnerContains(owner string, id uint64) bool {
	bm, ok := t.owners[owner]
	return ok && bm.Contains(id)
}

// OwnerCount returns how many records owner has.
func (t *Table) OwnerCount(owner string) uint64 {
	if bm, ok := t.owners[owner]; ok {
		return bm.GetCardinality()
	}
	return 0
}

// Truncate removes every record whose identifier is >= limit and returns the
// number removed. A restored metadata artifact can reference identifiers
// beyond the vector snapshot it was paired with; truncating to the vector
// count keeps future identifier assignment collision-free.
func (t *Table) Truncate(limit uint64) int {
	removed := 0
	for id, rec := range t.records {
		if id < limit {
			continue
		}

		delete(t.records, id)
		removed++

		if owner := rec.Owner(); owner != "" {
			if bm, ok := t.owners[owner]; ok {
				bm.Remove(id)
				if bm.IsEmpty() {
					delete(t.owners, owner)
				}
			}
		}
	}

	if removed > 0 {
		t.maxID = 0
		t.hasAny = false
		for id := range t.records {
			if !t.hasAny || id > t.maxID {
				t.maxID = id
			}
			t.hasAny = true
		}
	}
	return removed
}

// Range calls fn for every record in ascending identifier order, stopping
// early when fn returns false.
func (t *Table) Range(fn func(id uint64, rec Record) bool) {
	ids := make([]uint64, 0, len(t.records))
	for id := range t.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if !fn(id, t.records[id]) {
			return
		}
	}
}

// Marshal serializes the table as a JSON object keyed by decimal identifier
// strings.
func (t *Table) Marshal(c codec.Codec) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}

	wire := make(map[string]Record, len(t.records))
	for id, rec := range t.records {
		wire[strconv.FormatUint(id, 10)] = rec
	}
	return c.Marshal(wire)
}

// UnmarshalTable parses data written by Marshal into a fresh table,
// rebuilding the owner index and the max-identifier watermark.
func UnmarshalTable(c codec.Codec, data []byte) (*Table, error) {
	if c == nil {
		c = codec.Default
	}

	var wire map[string]Record
	if err := c.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	t := NewTable()
	for key, rec := range wire {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("metadata key %q is not an identifier: %w", key, err)
		}
		if err := t.Insert(id, rec); err != nil {
			return nil, err
		}
	}
	return t, nil
}
