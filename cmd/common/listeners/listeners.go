// Package listeners simulates live listener counts per song. Counts live for
// the session only and are never persisted.
package listeners

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// UpdateInterval is how often Run advances the simulation.
const UpdateInterval = 5 * time.Second

type Simulator struct {
	mu     sync.RWMutex
	rng    *rand.Rand
	counts map[string]int
}

// New creates a simulator. A nil rng uses a randomly seeded source.
func New(rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{rng: rng, counts: make(map[string]int)}
}

// Update advances every url one step of the random walk. Urls not passed in
// are dropped.
func (s *Simulator) Update(urls []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]int, len(urls))
	for _, url := range urls {
		next[url] = s.step(url)
	}
	s.counts = next
}

func (s *Simulator) step(url string) int {
	current, ok := s.counts[url]
	if !ok {
		current = s.rng.IntN(5)
	}

	// drifts slightly upward
	n := int(math.Round(float64(current) + (s.rng.Float64()-0.45)*5))

	if s.rng.Float64() < 0.05 {
		n += s.rng.IntN(20)
	}
	if s.rng.Float64() < 0.01 {
		n = s.rng.IntN(150)
	}
	if s.rng.Float64() < 0.05 && n > 10 {
		n -= s.rng.IntN(10)
	}
	return max(0, n)
}

// Counts returns a copy of the current counts.
func (s *Simulator) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Run updates immediately and then every interval until ctx is done.
// onUpdate, if set, is called after each step.
func (s *Simulator) Run(ctx context.Context, urls []string, interval time.Duration, onUpdate func()) {
	s.Update(urls)
	if onUpdate != nil {
		onUpdate()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Update(urls)
			if onUpdate != nil {
				onUpdate()
			}
		}
	}
}
