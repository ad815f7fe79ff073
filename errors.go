package cacheaside

import (
	"errors"

	"github.com/unkn0wn-root/cacheaside/errs"
)

// Kind sentinels, re-exported so callers can match with errors.Is without
// importing errs.
var (
	ErrTransport  = errs.ErrTransport
	ErrDecode     = errs.ErrDecode
	ErrConversion = errs.ErrConversion
	ErrUsage      = errs.ErrUsage
)

var (
	ErrNoVariants  = errors.New("no variant registry configured")
	ErrNilProducer = errors.New("nil producer")
)
