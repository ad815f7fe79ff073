// Package sloghooks reports cacheaside hook events to a *slog.Logger with
// optional sampling and key redaction.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/cacheaside"
)

type Options struct {
	// Sampling to avoid floods during an outage; 0/1 = log all.
	FallbackEvery uint64
	ProducerEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	fallbackCtr atomic.Uint64
	producerCtr atomic.Uint64
}

var _ cacheaside.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) BackendFallback(op, key string, err error) {
	if h.l == nil || !sample(h.opts.FallbackEvery, &h.fallbackCtr) {
		return
	}
	h.l.Warn("cacheaside.backend_fallback",
		"op", op,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) WriteBackDropped(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cacheaside.write_back_dropped",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) ProducerInvoked(key, reason string) {
	if h.l == nil || !sample(h.opts.ProducerEvery, &h.producerCtr) {
		return
	}
	h.l.Debug("cacheaside.producer_invoked",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) DecodeFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("cacheaside.decode_failed",
		"key", h.redact(key),
		"err", err)
}
