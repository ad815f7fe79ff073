package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Variant is a value that can be stored without a static type at the read
// site. Its tag is written next to the payload and selects the constructor on
// decode.
type Variant interface {
	Variant() string
}

var (
	ErrUnknownVariant   = errors.New("codec: unknown variant")
	ErrMalformedVariant = errors.New("codec: malformed variant envelope")
)

// envelope is the stored layout: {"type":"<tag>","value":<json>}.
type envelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Registry maps variant tags to constructors. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]func() Variant
}

func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]func() Variant)}
}

// Register binds tag to *T. Decoded values are returned as *T.
// A tag may be registered once.
func Register[T any, PT interface {
	*T
	Variant
}](r *Registry, tag string) error {
	if tag == "" {
		return errors.New("codec: empty variant tag")
	}
	if got := PT(new(T)).Variant(); got != tag {
		return fmt.Errorf("codec: variant tag %q does not match type tag %q", tag, got)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ctors[tag]; dup {
		return fmt.Errorf("codec: variant %q already registered", tag)
	}
	r.ctors[tag] = func() Variant { return PT(new(T)) }
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any, PT interface {
	*T
	Variant
}](r *Registry, tag string) {
	if err := Register[T, PT](r, tag); err != nil {
		panic(err)
	}
}

// Tags lists the registered tags in no particular order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for t := range r.ctors {
		out = append(out, t)
	}
	return out
}

func (r *Registry) lookup(tag string) (func() Variant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.ctors[tag]
	return c, ok
}

// Encode writes v inside a tagged envelope. Only registered tags are
// accepted so every stored variant can be read back.
func (r *Registry) Encode(v Variant) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrMalformedVariant)
	}
	tag := v.Variant()
	if _, ok := r.lookup(tag); !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownVariant, tag)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: tag, Value: raw})
}

// Decode reads the discriminator and dispatches to the registered constructor.
func (r *Registry) Decode(b []byte) (Variant, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVariant, err)
	}
	if env.Type == "" || len(env.Value) == 0 {
		return nil, ErrMalformedVariant
	}
	ctor, ok := r.lookup(env.Type)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownVariant, env.Type)
	}
	v := ctor()
	if err := json.Unmarshal(env.Value, v); err != nil {
		return nil, fmt.Errorf("codec: variant %q: %w", env.Type, err)
	}
	return v, nil
}
