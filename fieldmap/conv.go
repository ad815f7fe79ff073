package fieldmap

import (
	"strconv"
	"time"
)

// Conv converts a scalar field to and from its literal text form.
type Conv[F any] struct {
	Format func(F) string
	Parse  func(string) (F, error)
}

var (
	String = Conv[string]{
		Format: func(s string) string { return s },
		Parse:  func(s string) (string, error) { return s, nil },
	}
	Int = Conv[int]{
		Format: strconv.Itoa,
		Parse: func(s string) (int, error) {
			n, err := strconv.ParseInt(s, 10, strconv.IntSize)
			return int(n), err
		},
	}
	Int64 = Conv[int64]{
		Format: func(n int64) string { return strconv.FormatInt(n, 10) },
		Parse:  func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
	}
	Uint64 = Conv[uint64]{
		Format: func(n uint64) string { return strconv.FormatUint(n, 10) },
		Parse:  func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) },
	}
	Float64 = Conv[float64]{
		Format: func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) },
		Parse:  func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
	}
	Bool = Conv[bool]{
		Format: strconv.FormatBool,
		Parse:  strconv.ParseBool,
	}
	// Time uses RFC 3339 with nanoseconds; the zone offset is kept.
	Time = Conv[time.Time]{
		Format: func(t time.Time) string { return t.Format(time.RFC3339Nano) },
		Parse:  func(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) },
	}
	Duration = Conv[time.Duration]{
		Format: time.Duration.String,
		Parse:  time.ParseDuration,
	}
)
