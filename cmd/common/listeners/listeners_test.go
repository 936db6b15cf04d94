package listeners

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"
)

func TestUpdate_NeverNegative(t *testing.T) {
	s := New(rand.New(rand.NewPCG(7, 7)))
	urls := []string{"a", "b", "c"}

	for range 2000 {
		s.Update(urls)
		for url, n := range s.Counts() {
			if n < 0 {
				t.Fatalf("count for %s went negative: %d", url, n)
			}
		}
	}
}

func TestUpdate_TracksOnlyGivenUrls(t *testing.T) {
	s := New(rand.New(rand.NewPCG(1, 1)))
	s.Update([]string{"a", "b"})
	s.Update([]string{"b"})

	counts := s.Counts()
	if _, ok := counts["a"]; ok {
		t.Error("a should have been dropped")
	}
	if _, ok := counts["b"]; !ok {
		t.Error("b should be tracked")
	}
}

func TestUpdate_InitialRange(t *testing.T) {
	for seed := range uint64(50) {
		s := New(rand.New(rand.NewPCG(seed, seed)))
		s.Update([]string{"a"})
		// start 0..4, drift at most +3, small spike < 20, big spike < 150
		if n := s.Counts()["a"]; n > 150 {
			t.Errorf("seed %d: first count %d out of range", seed, n)
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	updates := make(chan struct{}, 100)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, []string{"a"}, 10*time.Millisecond, func() { updates <- struct{}{} })
		close(done)
	}()

	for range 3 {
		select {
		case <-updates:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for update")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
