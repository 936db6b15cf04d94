// Package durations probes song lengths for songs missing from the duration cache.
package durations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2/mp3"
)

const (
	// Unknown is cached when probing fails so the song is not probed again.
	Unknown = -1.0

	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 4
	maxSongBytes       = 64 << 20
)

var ErrBadStatus = errors.New("unexpected http status")

// Cache is where probed durations are read from and merged into.
type Cache interface {
	Duration(url string) (float64, bool)
	MergeDurations(map[string]float64)
}

// Prober fetches songs and decodes their MP3 headers to find their length.
type Prober struct {
	Client      *http.Client
	Timeout     time.Duration
	Concurrency int

	// Decode returns the length in seconds of an encoded song.
	Decode func(data []byte) (float64, error)
}

func NewProber() *Prober {
	return &Prober{
		Client:      http.DefaultClient,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Decode:      DecodeMP3,
	}
}

// DecodeMP3 returns the duration in seconds of an in-memory MP3.
func DecodeMP3(data []byte) (float64, error) {
	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	n := streamer.Len()
	if n <= 0 {
		return 0, fmt.Errorf("mp3 stream has no length")
	}
	return format.SampleRate.D(n).Seconds(), nil
}

// Probe returns the duration of url in seconds, or Unknown on any failure or
// when the timeout expires.
func (p *Prober) Probe(ctx context.Context, url string) float64 {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		secs float64
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := p.fetch(ctx, url)
		if err != nil {
			done <- result{err: err}
			return
		}
		decode := p.Decode
		if decode == nil {
			decode = DecodeMP3
		}
		secs, err := decode(data)
		done <- result{secs: secs, err: err}
	}()

	select {
	case <-ctx.Done():
		slog.Warn("duration probe timed out", "url", url, "timeout", timeout)
		return Unknown
	case r := <-done:
		if r.err != nil {
			slog.Warn("duration probe failed", "url", url, "error", r.err)
			return Unknown
		}
		return r.secs
	}
}

// Open returns the raw bytes of a song from http(s), file:// or a local path.
func Open(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		f, err := os.Open(strings.TrimPrefix(url, "file://"))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxSongBytes))
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSongBytes))
}

func (p *Prober) fetch(ctx context.Context, url string) ([]byte, error) {
	return Open(ctx, p.Client, url)
}

// ProbeMissing probes every url the cache does not know yet, with bounded
// concurrency, and merges the results (Unknown included) into the cache.
func (p *Prober) ProbeMissing(ctx context.Context, urls []string, cache Cache) map[string]float64 {
	var missing []string
	for _, u := range urls {
		if _, ok := cache.Duration(u); !ok {
			missing = append(missing, u)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make(map[string]float64, len(missing))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, url := range missing {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			secs := p.Probe(ctx, url)
			mu.Lock()
			results[url] = secs
			mu.Unlock()
		}(url)
	}
	wg.Wait()

	cache.MergeDurations(results)
	return results
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
