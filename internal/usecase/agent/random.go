package agent

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Random is the pseudo-random source used by analysis and apply phases.
// Injecting it keeps every stochastic decision reproducible in tests.
type Random interface {
	Float64() float64
	IntN(n int) int
}

type lockedRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a goroutine-safe PCG source seeded with seed.
func NewRandom(seed uint64) Random {
	return &lockedRandom{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSeededRandom seeds from the wall clock. Used outside tests.
func NewTimeSeededRandom() Random {
	return NewRandom(uint64(time.Now().UnixNano()))
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

// Jitter returns a value uniformly distributed in [-spread, spread).
func Jitter(r Random, spread float64) float64 {
	return (r.Float64()*2 - 1) * spread
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MetricSpec describes one synthetic metric: base + bonus + jitter, clamped.
type MetricSpec struct {
	Base   float64
	Spread float64
	Min    float64
	Max    float64
}

// Sample computes the metric for the given priority bonus.
func (m MetricSpec) Sample(r Random, bonus float64) float64 {
	return Clamp(m.Base+bonus+Jitter(r, m.Spread), m.Min, m.Max)
}

// Sample draws between min and max distinct items from vocab, in draw order.
func Sample(r Random, vocab []string, min, max int) []string {
	if len(vocab) == 0 || max <= 0 {
		return nil
	}
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	n := min + r.IntN(max-min+1)
	if n > len(vocab) {
		n = len(vocab)
	}
	pool := make([]string, len(vocab))
	copy(pool, vocab)
	for i := 0; i < n; i++ {
		j := i + r.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	out := make([]string, n)
	copy(out, pool[:n])
	return out
}
