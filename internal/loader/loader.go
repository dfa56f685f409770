// Package loader reads the source datasets that seed the vector collections:
// a diseases CSV and a patient-record SQLite database. Each source row becomes
// a Chunk, the text of which is embedded while the record travels alongside
// into the metadata table.
package loader

import "github.com/medivault/recall/metadata"

// Chunk pairs the text to embed with the metadata record stored next to the
// resulting vector.
type Chunk struct {
	Text   string
	Record metadata.Record
}

// Texts returns the embedding inputs of chunks, in order.
func Texts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

// Records returns the metadata records of chunks, in order.
func Records(chunks []Chunk) []metadata.Record {
	records := make([]metadata.Record, len(chunks))
	for i, c := range chunks {
		records[i] = c.Record
	}
	return records
}
