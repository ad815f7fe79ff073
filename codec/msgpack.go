package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack encodes values with vmihailenco/msgpack. The zero value reads
// `msgpack` struct tags. With JSONTags set it names fields by their `json`
// tags instead, so a type written for the JSON codec needs no second tag set.
type Msgpack[V any] struct {
	JSONTags bool
}

func (c Msgpack[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if c.JSONTags {
		enc.SetCustomStructTag("json")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	if c.JSONTags {
		dec.SetCustomStructTag("json")
	}
	err := dec.Decode(&v)
	return v, err
}
