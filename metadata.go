package histostore

import (
	"time"

	"github.com/hupe1980/histostore/internal/template"
	"github.com/hupe1980/histostore/internal/toy"
)

// ScalarMetadata is template metadata. Values must be strings, bools,
// integers or floats; they decode as string, int64, uint64, float64 or bool.
type ScalarMetadata map[string]any

// JSONMetadata is shard metadata. Each value is stored as JSON text, so
// nested maps and slices are allowed. Numbers decode as float64.
type JSONMetadata map[string]any

// DefaultScalarMetadata returns {version: "0.0", date: <now>} for templates.
func DefaultScalarMetadata() ScalarMetadata {
	return template.DefaultMetadata(time.Now())
}

// DefaultJSONMetadata returns {version: "0.0", date: <now>} for shards.
func DefaultJSONMetadata() JSONMetadata {
	return toy.DefaultMetadata(time.Now())
}
