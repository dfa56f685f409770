// Package codec centralizes metadata and payload encoding.
//
// Codec selection is a compatibility boundary: metadata snapshots written by
// one codec must stay decodable by the others, which is why only JSON-shaped
// codecs are offered here.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name.
//
// Used by configuration surfaces that select the codec by string
// (e.g. the service config).
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}
