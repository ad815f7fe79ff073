// Package fieldmap maps structs to flat field maps for hash storage.
//
// A Schema is declared once per type from accessor functions, so no runtime
// type introspection is needed:
//
//	var userSchema = fieldmap.New(
//		fieldmap.Scalar("name", func(u *User) *string { return &u.Name }, fieldmap.String),
//		fieldmap.Scalar("age", func(u *User) *int { return &u.Age }, fieldmap.Int),
//		fieldmap.OptionalScalar("nick", func(u *User) **string { return &u.Nick }, fieldmap.String),
//		fieldmap.Composite("tags", func(u *User) *[]string { return &u.Tags }),
//	)
//
// Scalars are stored as their literal text; composites (collections, nested
// structs) as JSON. Nil values are omitted and read back as zero values.
package fieldmap

import (
	"fmt"

	"github.com/unkn0wn-root/cacheaside/codec"
	"github.com/unkn0wn-root/cacheaside/errs"
)

// Kind is how a field's value is stored.
type Kind uint8

const (
	KindScalar Kind = iota
	KindComposite
)

func (k Kind) String() string {
	if k == KindComposite {
		return "composite"
	}
	return "scalar"
}

// FieldInfo is one row of a schema's field table.
type FieldInfo struct {
	Name string
	Kind Kind
}

// Field is a declared mapping between one struct field and one hash field.
type Field[T any] struct {
	name string
	kind Kind
	// get returns the stored text; ok=false omits the field.
	get func(*T) (s string, ok bool, err error)
	set func(*T, string) error
}

// Scalar declares a field that is always stored, as conv's text form.
func Scalar[T, F any](name string, ref func(*T) *F, conv Conv[F]) Field[T] {
	return Field[T]{
		name: name,
		kind: KindScalar,
		get: func(v *T) (string, bool, error) {
			return conv.Format(*ref(v)), true, nil
		},
		set: func(v *T, s string) error {
			f, err := conv.Parse(s)
			if err != nil {
				return err
			}
			*ref(v) = f
			return nil
		},
	}
}

// OptionalScalar declares a pointer field; a nil pointer is omitted.
func OptionalScalar[T, F any](name string, ref func(*T) **F, conv Conv[F]) Field[T] {
	return Field[T]{
		name: name,
		kind: KindScalar,
		get: func(v *T) (string, bool, error) {
			p := *ref(v)
			if p == nil {
				return "", false, nil
			}
			return conv.Format(*p), true, nil
		},
		set: func(v *T, s string) error {
			f, err := conv.Parse(s)
			if err != nil {
				return err
			}
			*ref(v) = &f
			return nil
		},
	}
}

// Composite declares a collection or nested struct stored as JSON. A value
// that encodes to null (nil slice, map or pointer) is omitted.
func Composite[T, F any](name string, ref func(*T) *F) Field[T] {
	c := codec.JSON[F]{}
	return Field[T]{
		name: name,
		kind: KindComposite,
		get: func(v *T) (string, bool, error) {
			b, err := c.Encode(*ref(v))
			if err != nil {
				return "", false, err
			}
			if codec.NoValue(b) {
				return "", false, nil
			}
			return string(b), true, nil
		},
		set: func(v *T, s string) error {
			if codec.NoValue([]byte(s)) {
				return nil
			}
			f, err := c.Decode([]byte(s))
			if err != nil {
				return err
			}
			*ref(v) = f
			return nil
		},
	}
}

// Schema is the field table for T. Immutable and safe for concurrent use.
type Schema[T any] struct {
	fields []Field[T]
}

// New builds a schema. Empty or duplicate field names panic.
func New[T any](fields ...Field[T]) *Schema[T] {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.name == "" {
			panic("fieldmap: empty field name")
		}
		if _, dup := seen[f.name]; dup {
			panic(fmt.Sprintf("fieldmap: duplicate field %q", f.name))
		}
		seen[f.name] = struct{}{}
	}
	out := make([]Field[T], len(fields))
	copy(out, fields)
	return &Schema[T]{fields: out}
}

// Fields returns the field table in declaration order.
func (s *Schema[T]) Fields() []FieldInfo {
	out := make([]FieldInfo, len(s.fields))
	for i, f := range s.fields {
		out[i] = FieldInfo{Name: f.name, Kind: f.kind}
	}
	return out
}

// ToFields flattens v. Nil fields are left out.
func (s *Schema[T]) ToFields(v *T) (map[string]string, error) {
	if v == nil {
		return nil, errs.Usagef("to_fields", "", "nil value")
	}
	m := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		str, ok, err := f.get(v)
		if err != nil {
			return nil, errs.Usage("to_fields", "", fmt.Errorf("field %q: %w", f.name, err))
		}
		if ok {
			m[f.name] = str
		}
	}
	return m, nil
}

// FromFields rebuilds a T starting from its zero value. Absent fields stay
// zero; unknown map entries are ignored. A scalar that does not parse is a
// conversion error; a composite that does not decode is a decode error.
func (s *Schema[T]) FromFields(m map[string]string) (T, error) {
	var v T
	for _, f := range s.fields {
		str, ok := m[f.name]
		if !ok {
			continue
		}
		if err := f.set(&v, str); err != nil {
			var zero T
			err = fmt.Errorf("field %q: %w", f.name, err)
			if f.kind == KindComposite {
				return zero, errs.Decode("from_fields", "", err)
			}
			return zero, errs.Conversion("from_fields", "", err)
		}
	}
	return v, nil
}
