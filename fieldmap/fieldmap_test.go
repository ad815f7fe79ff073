package fieldmap

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/cacheaside/errs"
)

type address struct {
	City string `json:"city"`
}

type user struct {
	Name     string
	Age      int
	Score    float64
	Active   bool
	Joined   time.Time
	Timeout  time.Duration
	Visits   int64
	Quota    uint64
	Nick     *string
	Tags     []string
	Home     *address
	Settings map[string]int
}

var userSchema = New(
	Scalar("name", func(u *user) *string { return &u.Name }, String),
	Scalar("age", func(u *user) *int { return &u.Age }, Int),
	Scalar("score", func(u *user) *float64 { return &u.Score }, Float64),
	Scalar("active", func(u *user) *bool { return &u.Active }, Bool),
	Scalar("joined", func(u *user) *time.Time { return &u.Joined }, Time),
	Scalar("timeout", func(u *user) *time.Duration { return &u.Timeout }, Duration),
	Scalar("visits", func(u *user) *int64 { return &u.Visits }, Int64),
	Scalar("quota", func(u *user) *uint64 { return &u.Quota }, Uint64),
	OptionalScalar("nick", func(u *user) **string { return &u.Nick }, String),
	Composite("tags", func(u *user) *[]string { return &u.Tags }),
	Composite("home", func(u *user) **address { return &u.Home }),
	Composite("settings", func(u *user) *map[string]int { return &u.Settings }),
)

func ptr[T any](v T) *T { return &v }

func TestRoundTripFull(t *testing.T) {
	in := user{
		Name:     "Ada",
		Age:      36,
		Score:    1.25,
		Active:   true,
		Joined:   time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC),
		Timeout:  1500 * time.Millisecond,
		Visits:   -7,
		Quota:    1 << 40,
		Nick:     ptr("ada"),
		Tags:     []string{"x", "y"},
		Home:     &address{City: "London"},
		Settings: map[string]int{"a": 1},
	}
	m, err := userSchema.ToFields(&in)
	if err != nil {
		t.Fatal(err)
	}
	if m["age"] != "36" || m["active"] != "true" || m["tags"] != `["x","y"]` || m["home"] != `{"city":"London"}` {
		t.Fatalf("unexpected encoding: %v", m)
	}
	out, err := userSchema.FromFields(m)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestNilFieldsOmitted(t *testing.T) {
	in := user{Name: "Bob"}
	m, err := userSchema.ToFields(&in)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"nick", "tags", "home", "settings"} {
		if _, ok := m[name]; ok {
			t.Fatalf("nil field %q should be omitted: %v", name, m)
		}
	}
	if m["name"] != "Bob" || m["age"] != "0" {
		t.Fatalf("scalars must always be emitted: %v", m)
	}
	out, err := userSchema.FromFields(m)
	if err != nil {
		t.Fatal(err)
	}
	if out.Nick != nil || out.Tags != nil || out.Home != nil || out.Settings != nil {
		t.Fatalf("omitted fields should read back as zero: %+v", out)
	}
}

func TestFromEmptyMapIsZero(t *testing.T) {
	out, err := userSchema.FromFields(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out, user{}) {
		t.Fatalf("want zero user, got %+v", out)
	}
	out, err = userSchema.FromFields(nil)
	if err != nil || !reflect.DeepEqual(out, user{}) {
		t.Fatalf("nil map: %+v, %v", out, err)
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	out, err := userSchema.FromFields(map[string]string{"name": "C", "legacy": "???"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Name != "C" {
		t.Fatalf("got %+v", out)
	}
}

func TestConversionError(t *testing.T) {
	cases := map[string]string{
		"age":     "forty",
		"active":  "maybe",
		"score":   "1.2.3",
		"joined":  "yesterday",
		"timeout": "5 parsecs",
		"quota":   "-1",
	}
	for field, val := range cases {
		_, err := userSchema.FromFields(map[string]string{field: val})
		if !errs.IsConversion(err) {
			t.Fatalf("%s=%q: expected conversion error, got %v", field, val, err)
		}
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error should name the field %q: %v", field, err)
		}
	}
}

func TestCompositeDecodeError(t *testing.T) {
	_, err := userSchema.FromFields(map[string]string{"tags": `{"not":"a list"}`})
	if !errs.IsDecode(err) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestCompositeNullReadsAsZero(t *testing.T) {
	out, err := userSchema.FromFields(map[string]string{"tags": "null"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Tags != nil {
		t.Fatalf("got %v", out.Tags)
	}
}

func TestToFieldsNil(t *testing.T) {
	if _, err := userSchema.ToFields(nil); !errs.IsUsage(err) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestFieldsTable(t *testing.T) {
	fs := userSchema.Fields()
	if len(fs) != 12 {
		t.Fatalf("got %d fields", len(fs))
	}
	if fs[0] != (FieldInfo{Name: "name", Kind: KindScalar}) {
		t.Fatalf("got %+v", fs[0])
	}
	if fs[9] != (FieldInfo{Name: "tags", Kind: KindComposite}) {
		t.Fatalf("got %+v", fs[9])
	}
	if KindComposite.String() != "composite" || KindScalar.String() != "scalar" {
		t.Fatal("kind names")
	}
}

func TestDuplicateFieldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate field")
		}
	}()
	New(
		Scalar("x", func(u *user) *string { return &u.Name }, String),
		Scalar("x", func(u *user) *int { return &u.Age }, Int),
	)
}
