// Package codec centralizes the JSON encoding of shard metadata.
//
// Shard metadata values are stored as JSON text attributes, so any codec
// here must produce standard JSON: a shard written with one codec decodes
// with any other.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// The CLI uses this to select the codec from configuration.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json", "":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// EncodeText renders one metadata value as the JSON text stored in a string
// attribute. A nil codec means Default.
func EncodeText(c Codec, v any) (string, error) {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%s encode: %w", c.Name(), err)
	}
	return string(b), nil
}

// DecodeText parses a JSON text attribute. Numbers decode as float64,
// objects as map[string]any and arrays as []any.
func DecodeText(c Codec, text string) (any, error) {
	if c == nil {
		c = Default
	}
	var v any
	if err := c.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("%s decode: %w", c.Name(), err)
	}
	return v, nil
}

// MustMarshal is a helper for internal tests/benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
