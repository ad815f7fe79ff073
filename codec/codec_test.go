package codec

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type address struct {
	City string `json:"city" msgpack:"city" cbor:"city"`
	Zip  string `json:"zip,omitempty" msgpack:"zip,omitempty" cbor:"zip,omitempty"`
}

type profile struct {
	Name    string            `json:"name" msgpack:"name" cbor:"name"`
	Tags    []string          `json:"tags" msgpack:"tags" cbor:"tags"`
	Attrs   map[string]int    `json:"attrs" msgpack:"attrs" cbor:"attrs"`
	Home    *address          `json:"home" msgpack:"home" cbor:"home"`
	History []address         `json:"history" msgpack:"history" cbor:"history"`
	Extra   map[string]string `json:"extra,omitempty" msgpack:"extra,omitempty" cbor:"extra,omitempty"`
}

func sampleProfiles() []profile {
	return []profile{
		{},
		{Name: "ada", Tags: []string{"a", "b"}, Attrs: map[string]int{"x": 1}},
		{Name: "bob", Home: &address{City: "Oslo"}, History: []address{{City: "Bergen", Zip: "5003"}}},
	}
}

func roundTrip[V any](t *testing.T, name string, c Codec[V], in V) {
	t.Helper()
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("%s encode: %v", name, err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("%s decode: %v", name, err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("%s round trip mismatch:\n in=%+v\nout=%+v", name, in, out)
	}
}

func TestRoundTripStructured(t *testing.T) {
	for _, p := range sampleProfiles() {
		roundTrip[profile](t, "json", JSON[profile]{}, p)
		roundTrip[profile](t, "msgpack", Msgpack[profile]{}, p)
		roundTrip[profile](t, "cbor", MustCBOR[profile](false), p)
		roundTrip[profile](t, "cbor-det", MustCBOR[profile](true), p)
	}
}

func TestRoundTripScalarsAndCollections(t *testing.T) {
	roundTrip[int](t, "json int", JSON[int]{}, 42)
	roundTrip[string](t, "json string", JSON[string]{}, "héllo")
	roundTrip[[]int](t, "json slice", JSON[[]int]{}, []int{1, 2, 3})
	roundTrip[map[string][]string](t, "json nested", JSON[map[string][]string]{}, map[string][]string{"a": {"x"}})

	ts := time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC)
	roundTrip[time.Time](t, "json time", JSON[time.Time]{}, ts)
	roundTrip[time.Time](t, "cbor time", MustCBOR[time.Time](true), ts)

	roundTrip[[]byte](t, "bytes", Bytes{}, []byte{0, 1, 2})
	roundTrip[string](t, "string", String{}, "plain")
}

func TestMsgpackJSONTags(t *testing.T) {
	type tagged struct {
		UserID string `json:"user_id"`
		Age    int    `json:"age"`
	}
	c := Msgpack[tagged]{JSONTags: true}
	roundTrip[tagged](t, "msgpack json tags", c, tagged{UserID: "u1", Age: 36})

	b, err := c.Encode(tagged{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	m, err := Msgpack[map[string]any]{}.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m["user_id"]; !ok {
		t.Fatalf("expected json tag as key, got %v", m)
	}
}

func TestCBORRejectsDuplicateKeys(t *testing.T) {
	// {"a": 1, "a": 2}
	dup := []byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}
	if _, err := MustCBOR[map[string]int](false).Decode(dup); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestBytesDecodeCopies(t *testing.T) {
	src := []byte("abc")
	out, _ := Bytes{}.Decode(src)
	src[0] = 'z'
	if string(out) != "abc" {
		t.Fatalf("decode aliased input: %q", out)
	}
}

func TestDeterministicCBOR(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	a, err := c.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		b, _ := c.Encode(map[string]int{"c": 3, "a": 1, "b": 2})
		if string(a) != string(b) {
			t.Fatalf("deterministic encoding differs")
		}
	}
}

func TestJSONDecodeShapeMismatch(t *testing.T) {
	if _, err := (JSON[int]{}).Decode([]byte(`"not a number"`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := (JSON[profile]{}).Decode([]byte(`{"name":`)); err == nil {
		t.Fatalf("expected decode error on truncated input")
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if !proto.Equal(got, wrapperspb.String("hello")) {
		t.Fatalf("got %v", got)
	}
}

func TestProtobufEmptyMessageIsNoValue(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(&wrapperspb.StringValue{})
	if err != nil {
		t.Fatal(err)
	}
	if !NoValue(b) {
		t.Fatalf("empty message encoded to %x", b)
	}
	got, err := c.Decode([]byte{0xff, 0xff})
	if err == nil || got != nil {
		t.Fatalf("garbage decoded: got=%v err=%v", got, err)
	}
}

func TestLimitCodec(t *testing.T) {
	c := LimitCodec[string]{Inner: String{}, MaxDecode: 4}
	if _, err := c.Decode([]byte("12345")); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if v, err := c.Decode([]byte("1234")); err != nil || v != "1234" {
		t.Fatalf("got %q, %v", v, err)
	}
	unlimited := LimitCodec[string]{Inner: String{}}
	if _, err := unlimited.Decode(make([]byte, 1<<16)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNoValue(t *testing.T) {
	for _, b := range [][]byte{nil, {}, []byte("null"), []byte(" null\n")} {
		if !NoValue(b) {
			t.Fatalf("NoValue(%q) = false", b)
		}
	}
	for _, b := range [][]byte{[]byte(`""`), []byte("0"), []byte("nullx"), []byte("{}")} {
		if NoValue(b) {
			t.Fatalf("NoValue(%q) = true", b)
		}
	}
}
