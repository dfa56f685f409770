package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medivault/recall/metadata"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "diseases.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDiseases(t *testing.T) {
	path := writeCSV(t, strings.Join([]string{
		"Code,Name,Symptoms,Treatments",
		"A01,Typhoid fever,\"fever, headache, abdominal pain\",antibiotics",
		"B50,Malaria,\"fever, chills, sweating\",\"antimalarial drugs, rest\"",
	}, "\n"))

	chunks, err := LoadDiseases(path)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	first := chunks[0]
	assert.Equal(t, "Disease: Typhoid fever. Code: A01. Symptoms: fever, headache, abdominal pain. Treatments: antibiotics.", first.Text)
	assert.Equal(t, "A01", first.Record["code"])
	assert.Equal(t, "Typhoid fever", first.Record["name"])
	assert.Equal(t, "disease", first.Record.ChunkType())
	assert.Equal(t, "csv", first.Record.Source())

	assert.Equal(t, "Malaria", chunks[1].Record["name"])
}

func TestLoadDiseasesColumnOrder(t *testing.T) {
	// Header decides the mapping, not position.
	path := writeCSV(t, strings.Join([]string{
		"Name,Treatments,Code,Symptoms",
		"Influenza,rest and fluids,J11,\"fever, cough\"",
	}, "\n"))

	chunks, err := LoadDiseases(path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "J11", chunks[0].Record["code"])
	assert.Equal(t, "Influenza", chunks[0].Record["name"])
	assert.Equal(t, "fever, cough", chunks[0].Record["symptoms"])
}

func TestLoadDiseasesErrors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadDiseases(filepath.Join(t.TempDir(), "absent.csv"))
		assert.Error(t, err)
	})

	t.Run("MissingColumn", func(t *testing.T) {
		path := writeCSV(t, "Code,Name,Symptoms\nA01,Typhoid,fever\n")
		_, err := LoadDiseases(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "treatments")
	})

	t.Run("EmptyName", func(t *testing.T) {
		path := writeCSV(t, "Code,Name,Symptoms,Treatments\nA01,,fever,rest\n")
		_, err := LoadDiseases(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("RaggedRow", func(t *testing.T) {
		path := writeCSV(t, "Code,Name,Symptoms,Treatments\nA01,Typhoid\n")
		_, err := LoadDiseases(path)
		assert.Error(t, err)
	})
}

func TestChunkHelpers(t *testing.T) {
	chunks := []Chunk{
		{Text: "one", Record: metadata.Record{"name": "a"}},
		{Text: "two", Record: metadata.Record{"name": "b"}},
	}

	assert.Equal(t, []string{"one", "two"}, Texts(chunks))

	records := Records(chunks)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1]["name"])
}
