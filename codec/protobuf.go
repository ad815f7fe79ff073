package codec

import "google.golang.org/protobuf/proto"

// Protobuf stores proto messages in their binary wire form. T is the
// message pointer type and ctor allocates a fresh one for each Decode:
//
//	users := cacheaside.For[*userpb.User](svc,
//		codec.NewProtobuf(func() *userpb.User { return new(userpb.User) }))
//
// A message with every field unset marshals to zero bytes, and stored empty
// bytes read as no value. Such a message therefore comes back as a miss.
type Protobuf[T proto.Message] struct {
	new func() T
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) { return proto.Marshal(v) }

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	if err := proto.Unmarshal(b, m); err != nil {
		var zero T
		return zero, err
	}
	return m, nil
}
