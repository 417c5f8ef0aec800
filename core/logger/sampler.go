package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratio lets num events through out of every den.
type ratio struct{ num, den uint64 }

type sampler struct {
	cfg  atomic.Pointer[ratio]
	seen atomic.Uint64
}

func newSampler(num, den int) *sampler {
	s := &sampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio. Non-positive values disable sampling.
func (s *sampler) Set(num, den int) {
	s.seen.Store(0)
	if num <= 0 || den <= 0 {
		s.cfg.Store(nil)
		return
	}
	s.cfg.Store(&ratio{num: uint64(min(num, den)), den: uint64(den)})
}

// Allow reports whether the next event passes.
func (s *sampler) Allow() bool {
	r := s.cfg.Load()
	if r == nil {
		return true
	}
	return (s.seen.Add(1)-1)%r.den < r.num
}

// parseRatio reads "n/d" or "d" (meaning 1/d). Unparseable input yields 0, 0.
func parseRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return n, d
	}
	if d, err := strconv.Atoi(raw); err == nil && d > 0 {
		return 1, d
	}
	return 0, 0
}
