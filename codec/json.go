package codec

import (
	"encoding/json"

	gojson "github.com/goccy/go-json"
)

// JSON encodes metadata with encoding/json.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSON) Name() string                       { return "json" }

// GoJSON encodes metadata with github.com/goccy/go-json. For maps, slices and
// scalars it writes the same bytes as JSON, with map keys sorted.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error)      { return gojson.Marshal(v) }
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }
func (GoJSON) Name() string                       { return "go-json" }

// Default is the codec used for shard metadata unless one is configured.
var Default Codec = GoJSON{}
