package codec

// Bytes stores []byte values as they are. Decode copies, so callers may keep
// the result after the store reuses its buffer.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil }

// String stores a string's bytes with no quoting. Note that the stored text
// "null" reads back as no value, like any other codec.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
