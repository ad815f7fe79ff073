// Package wire frames values held by the in-process memory store. Each entry
// carries its kind and an absolute expiry so per-key TTLs survive a backend
// that only supports a global life window.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version byte = 1
	hdrLen       = 4 + 1 + 1 + 8 + 4
)

// Kind is the type of value an entry holds.
type Kind byte

const (
	KindString Kind = 1
	KindHash   Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindHash:
		return "hash"
	default:
		return "unknown"
	}
}

var (
	ErrCorrupt = errors.New("cacheaside: corrupt entry")
	magic4     = [...]byte{'C', 'A', 'S', 'E'}
)

// Entry is one framed value. ExpiresAt is unix nanoseconds; 0 means no expiry.
type Entry struct {
	Kind      Kind
	ExpiresAt int64
	Payload   []byte
}

// Expired reports whether the entry's deadline has passed at now.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixNano() >= e.ExpiresAt
}

// Deadline converts a relative ttl to an ExpiresAt value. ttl <= 0 means none.
func Deadline(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now.Add(ttl).UnixNano()
}

// magic(4) | ver(1) | kind(1) | expiresAt(i64 be) | vlen(u32 be) | payload(vlen)
func Encode(e Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(byte(e.Kind))

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(e.ExpiresAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes()
}

// Decode parses an entry. The returned payload aliases b.
func Decode(b []byte) (Entry, error) {
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	kind := Kind(b[5])
	if kind != KindString && kind != KindHash {
		return Entry{}, ErrCorrupt
	}

	off := 6
	exp := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	if exp < 0 {
		return Entry{}, ErrCorrupt
	}

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off { // no trailing bytes
		return Entry{}, ErrCorrupt
	}

	return Entry{Kind: kind, ExpiresAt: exp, Payload: b[off : off+vlen]}, nil
}
