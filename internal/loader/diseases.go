package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/medivault/recall/metadata"
)

// disease CSV columns, matched case-insensitively against the header row.
const (
	columnCode       = "code"
	columnName       = "name"
	columnSymptoms   = "symptoms"
	columnTreatments = "treatments"
)

// LoadDiseases reads the diseases CSV at path and returns one chunk per row.
//
// The file must carry a header row naming the Code, Name, Symptoms and
// Treatments columns; column order is free.
func LoadDiseases(path string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open diseases csv: %w", err)
	}
	defer f.Close()

	return readDiseases(f)
}

func readDiseases(r io.Reader) ([]Chunk, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("loader: read diseases header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{columnCode, columnName, columnSymptoms, columnTreatments} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("loader: diseases csv missing column %q", required)
		}
	}

	var chunks []Chunk
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loader: read diseases row: %w", err)
		}

		code := strings.TrimSpace(row[cols[columnCode]])
		name := strings.TrimSpace(row[cols[columnName]])
		symptoms := strings.TrimSpace(row[cols[columnSymptoms]])
		treatments := strings.TrimSpace(row[cols[columnTreatments]])

		if name == "" {
			return nil, fmt.Errorf("loader: diseases csv line %d: empty disease name", line)
		}

		chunks = append(chunks, Chunk{
			Text: fmt.Sprintf("Disease: %s. Code: %s. Symptoms: %s. Treatments: %s.",
				name, code, symptoms, treatments),
			Record: metadata.Record{
				"code":                  code,
				"name":                  name,
				"symptoms":              symptoms,
				"treatments":            treatments,
				metadata.FieldChunkType: "disease",
				metadata.FieldSource:    "csv",
			},
		})
	}

	return chunks, nil
}
