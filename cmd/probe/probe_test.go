package probe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gigurra/jukebox/cmd/common/apptest"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubNetwork(t *testing.T) *atomic.Int32 {
	t.Helper()
	var fetches atomic.Int32
	origClient, origDecode := httpClient, decode
	httpClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		fetches.Add(1)
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(r.URL.Path))}, nil
	})}
	decode = func(data []byte) (float64, error) {
		if string(data) == "/d.mp3" {
			return 0, errors.New("not an mp3")
		}
		return 180, nil
	}
	t.Cleanup(func() { httpClient, decode = origClient, origDecode })
	return &fetches
}

func TestRun_View(t *testing.T) {
	dir := apptest.Env(t)
	fetches := stubNetwork(t)

	var out bytes.Buffer
	if err := Run(context.Background(), &Params{View: "Rock/Loud", Concurrency: 2, Catalog: dir}, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Probed 2 songs (2 known durations, 0 could not be read)") {
		t.Errorf("output = %q", out.String())
	}

	a := apptest.Open(t, dir)
	if d, ok := a.Library.Duration(apptest.Alpha); !ok || d != 180 {
		t.Errorf("alpha duration = %v, %v", d, ok)
	}
	if _, ok := a.Library.Duration(apptest.Charlie); ok {
		t.Error("songs outside the view should not be probed")
	}
	if got := fetches.Load(); got != 2 {
		t.Errorf("fetched %d songs, want 2", got)
	}
}

func TestRun_AllSkipsCached(t *testing.T) {
	dir := apptest.Env(t)
	fetches := stubNetwork(t)

	if err := Run(context.Background(), &Params{View: "Rock/Loud", Catalog: dir}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := Run(context.Background(), &Params{All: true, Catalog: dir}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Probed 2 songs (3 known durations, 1 could not be read)") {
		t.Errorf("output = %q", out.String())
	}
	if got := fetches.Load(); got != 4 {
		t.Errorf("fetched %d songs, want 4", got)
	}

	// Failures are cached too.
	out.Reset()
	if err := Run(context.Background(), &Params{All: true, Catalog: dir}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Probed 0 songs") || fetches.Load() != 4 {
		t.Errorf("second run output = %q, fetches %d", out.String(), fetches.Load())
	}
}
