package codec

import "encoding/json"

// JSON is the default codec. Collections and nested structs are encoded
// recursively; use `json` struct tags for field names.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
