package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	tests := []struct {
		name   string
		expect string
		ok     bool
	}{
		{name: "json", expect: "json", ok: true},
		{name: "go-json", expect: "go-json", ok: true},
		{name: "msgpack", ok: false},
		{name: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := ByName(tt.name)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.expect, c.Name())
			}
		})
	}
}

func TestCodecsInterchangeable(t *testing.T) {
	in := map[string]any{
		"name":       "Influenza",
		"chunk_type": "disease",
		"ids":        []any{"0", "1"},
	}

	encoded, err := (JSON{}).Marshal(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, (GoJSON{}).Unmarshal(encoded, &out))
	assert.Equal(t, in, out)

	encoded, err = (GoJSON{}).Marshal(in)
	require.NoError(t, err)

	out = nil
	require.NoError(t, (JSON{}).Unmarshal(encoded, &out))
	assert.Equal(t, in, out)
}
