// Package metadata keeps the per-vector records of an index unit and their
// serialized form.
//
// A record is an arbitrary JSON-shaped key/value map. Two system fields tag
// every record: "chunk_type" names the record's semantic kind and "source"
// its provenance. User-scoped records additionally carry "user_id", which the
// owner index tracks for filtered search.
package metadata

// Well-known record fields.
const (
	// FieldChunkType identifies the semantic kind of a record
	// (e.g. "disease", "patient_record").
	FieldChunkType = "chunk_type"
	// FieldSource identifies the provenance of a record
	// (e.g. "csv", "sqlite").
	FieldSource = "source"
	// FieldOwner is the owning user of a user-scoped record.
	FieldOwner = "user_id"
)

// Record is the metadata attached to one stored vector.
type Record map[string]any

// Owner returns the record's owner, or "" when the record has none.
func (r Record) Owner() string {
	return r.stringField(FieldOwner)
}

// ChunkType returns the record's semantic kind, or "".
func (r Record) ChunkType() string {
	return r.stringField(FieldChunkType)
}

// Source returns the record's provenance tag, or "".
func (r Record) Source() string {
	return r.stringField(FieldSource)
}

func (r Record) stringField(key string) string {
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
