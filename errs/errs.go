// Package errs defines the failure taxonomy shared by stores, codecs and the cache service.
//
// Every error produced at the store boundary carries a Kind. The cache-aside engine decides
// whether to fall back to the producer with a single check:
//
//	if errs.IsTransport(err) { ... }
//
// Kinds map to sentinels so errors.Is works on wrapped values:
//
//	errors.Is(err, errs.ErrDecode)
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindTransport: backend unreachable, timeout, backend-reported server error.
	KindTransport
	// KindDecode: stored bytes do not match the requested shape.
	KindDecode
	// KindConversion: a stored hash field cannot be converted to the target field type.
	KindConversion
	// KindUsage: malformed pattern, wrong-type access, invalid arguments.
	KindUsage
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindConversion:
		return "conversion"
	case KindUsage:
		return "usage"
	default:
		return "unknown"
	}
}

var (
	ErrTransport  = errors.New("transport failure")
	ErrDecode     = errors.New("decode error")
	ErrConversion = errors.New("conversion error")
	ErrUsage      = errors.New("usage error")

	// ErrAdminDisabled is wrapped (as KindUsage) by stores when an administrative
	// command is issued without admin permission.
	ErrAdminDisabled = errors.New("admin commands are disabled")
	// ErrUnsupported is wrapped (as KindUsage) by stores that lack a capability.
	ErrUnsupported = errors.New("operation not supported by store")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindDecode:
		return ErrDecode
	case KindConversion:
		return ErrConversion
	case KindUsage:
		return ErrUsage
	default:
		return nil
	}
}

// Error is a classified failure of a single operation.
type Error struct {
	Kind Kind
	Op   string // e.g. "get", "hgetall", "scan"
	Key  string // optional
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Key != "" && e.Err != nil:
		return fmt.Sprintf("cacheaside: %s %q: %s: %v", e.Op, e.Key, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("cacheaside: %s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Key != "":
		return fmt.Sprintf("cacheaside: %s %q: %s", e.Op, e.Key, e.Kind)
	default:
		return fmt.Sprintf("cacheaside: %s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Wrap classifies err. A nil err yields nil. An err that already carries a
// Kind is returned unchanged so the innermost classification wins.
func Wrap(kind Kind, op, key string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

// WithKey names key on a classified error built without one, such as a field
// mapping failure. Other errors are returned unchanged.
func WithKey(err error, key string) error {
	ce, ok := err.(*Error)
	if !ok || key == "" || ce.Key != "" {
		return err
	}
	cp := *ce
	cp.Key = key
	return &cp
}

func Transport(op, key string, err error) error  { return Wrap(KindTransport, op, key, err) }
func Decode(op, key string, err error) error     { return Wrap(KindDecode, op, key, err) }
func Conversion(op, key string, err error) error { return Wrap(KindConversion, op, key, err) }
func Usage(op, key string, err error) error      { return Wrap(KindUsage, op, key, err) }

// Usagef builds a usage error from a format string.
func Usagef(op, key, format string, args ...any) error {
	return &Error{Kind: KindUsage, Op: op, Key: key, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

func IsTransport(err error) bool  { return errors.Is(err, ErrTransport) }
func IsDecode(err error) bool     { return errors.Is(err, ErrDecode) }
func IsConversion(err error) bool { return errors.Is(err, ErrConversion) }
func IsUsage(err error) bool      { return errors.Is(err, ErrUsage) }
