// Package codec converts typed values to and from the bytes held by a store.
package codec

import "bytes"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

var jsonNull = []byte("null")

// NoValue reports whether raw stored bytes stand for "no value": empty, or the
// literal JSON null. Such payloads are never handed to a decoder.
func NoValue(b []byte) bool {
	return len(b) == 0 || bytes.Equal(bytes.TrimSpace(b), jsonNull)
}
