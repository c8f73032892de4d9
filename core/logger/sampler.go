package logger

import (
	"strconv"
	"strings"
	"sync"
)

// ratioSampler admits num out of every den events, evenly from the start of
// each window. A zero denominator admits everything.
type ratioSampler struct {
	mu  sync.Mutex
	num uint64
	den uint64
	n   uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set configures the sampling ratio; non-positive values disable sampling.
func (s *ratioSampler) Set(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if num <= 0 || den <= 0 {
		s.num, s.den, s.n = 0, 0, 0
		return
	}
	if num > den {
		num = den
	}
	s.num, s.den, s.n = uint64(num), uint64(den), 0
}

// Allow reports whether the current event passes sampling.
func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	idx := s.n % s.den
	s.n++
	return idx < s.num
}

// parseRatioSpec understands "N/M" ("1/50") and bare "M" (meaning 1/M).
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	if num, den, ok := strings.Cut(spec, "/"); ok {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 == nil && err2 == nil {
			return n, d
		}
		return 0, 0
	}
	if v, err := strconv.Atoi(spec); err == nil && v > 0 {
		return 1, v
	}
	return 0, 0
}
