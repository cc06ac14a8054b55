package codec

import "encoding/json"

// JSON is the standard-library JSON codec.
//
// It is the most portable option: entry metadata is map-like and
// round-trips losslessly, and no extra dependency is pulled in.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for newly-written snapshots. Existing
// snapshots record their codec name and are decoded with whatever
// wrote them.
var Default Codec = GoJSON{}
