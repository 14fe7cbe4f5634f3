package poller

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Policy is the polling discipline against the job status endpoint.
type Policy struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
	Timeout    time.Duration
}

// DefaultPolicy polls at 600ms, growing by 1.5x up to 3s, for at most 120s.
func DefaultPolicy() Policy {
	return Policy{
		Initial:    600 * time.Millisecond,
		Multiplier: 1.5,
		Max:        3 * time.Second,
		Timeout:    120 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Initial <= 0 {
		p.Initial = d.Initial
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.Max <= 0 {
		p.Max = d.Max
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	return p
}

// next returns the delay that follows prev, capped at Max.
func (p Policy) next(prev time.Duration) time.Duration {
	n := time.Duration(float64(prev) * p.Multiplier)
	if n > p.Max {
		return p.Max
	}
	return n
}

// parseRetryAfter extracts the delay from a Retry-After header, either in
// seconds or as an HTTP date. Returns 0 if missing or invalid.
func parseRetryAfter(h http.Header) time.Duration {
	const maxRetryAfter = 5 * time.Minute

	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds <= 0 {
			return 0
		}
		d := time.Duration(seconds) * time.Second
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d <= 0 {
			return 0
		}
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d
	}
	return 0
}
