package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/apptest"
	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/jukebox"
	"github.com/gigurra/jukebox/cmd/common/share"
	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/gigurra/jukebox/cmd/common/store"
	"github.com/gorilla/websocket"
)

const testIndex = `{
  "categories": [
    {"name": "Rock", "playlists": [{"name": "Loud", "file": "loud.txt"}, {"name": "Louder", "file": "louder.txt"}]}
  ]
}`

func newTestServer(t *testing.T, user, pass string) (*httptest.Server, *app.App) {
	t.Helper()
	c, err := catalog.Load(fstest.MapFS{
		"index.json": {Data: []byte(testIndex)},
		"loud.txt":   {Data: []byte("Alpha\nhttps://x/a.mp3\nBravo\nhttps://x/b.mp3\n")},
		"louder.txt": {Data: []byte("Charlie\nhttps://x/c.mp3\nDelta\nhttps://x/d.mp3\n")},
	})
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	a, err := app.New(app.Options{
		Store:   store.NewMemory(),
		Catalog: c,
		Audio:   jukebox.NewSilent(),
		Now:     func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
		Rand:    rand.New(rand.NewPCG(1, 2)),
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	s := NewServer(a, user, pass)
	srv := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Close()
		srv.Close()
		a.Close()
	})
	return srv, a
}

func post(t *testing.T, srv *httptest.Server, cmd string) (*http.Response, CommandResult) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/commands", "application/json", strings.NewReader(cmd))
	if err != nil {
		t.Fatalf("POST %s: %v", cmd, err)
	}
	defer resp.Body.Close()
	var out CommandResult
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("invalid response: %v", err)
		}
	}
	return resp, out
}

func get(t *testing.T, srv *httptest.Server, path string, v any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("invalid response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestState(t *testing.T) {
	srv, a := newTestServer(t, "", "")
	var st State
	if code := get(t, srv, "/api/state", &st); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if st.View.ID != a.DefaultView() || st.IsPlaying || st.Song != nil {
		t.Errorf("initial state = %+v", st)
	}
	if len(st.Playlist) == 0 {
		t.Error("initial state should carry the playlist")
	}
}

func TestCommands(t *testing.T) {
	srv, a := newTestServer(t, "", "")

	_, res := post(t, srv, `{"command": "play", "url": "https://x/b.mp3"}`)
	if res.State.Song == nil || res.State.Song.Title != "Bravo" || !res.State.IsPlaying {
		t.Fatalf("after play: %+v", res.State)
	}

	_, res = post(t, srv, `{"command": "enqueue", "urls": ["https://x/d.mp3", "https://x/c.mp3"]}`)
	if len(res.State.Queue) != 2 || res.State.Queue[0].Title != "Delta" {
		t.Errorf("queue = %v", res.State.Queue)
	}
	_, res = post(t, srv, `{"command": "next"}`)
	if res.State.Song.Title != "Alpha" || len(res.State.Queue) != 2 {
		t.Errorf("next played %q with queue %v, want Alpha and the queue untouched", res.State.Song.Title, res.State.Queue)
	}

	_, res = post(t, srv, `{"command": "volume", "value": 0.25}`)
	if res.State.Volume != 0.25 {
		t.Errorf("volume %v", res.State.Volume)
	}
	_, res = post(t, srv, `{"command": "repeat", "mode": "one"}`)
	if res.State.RepeatMode != "one" {
		t.Errorf("repeat %q", res.State.RepeatMode)
	}
	_, res = post(t, srv, `{"command": "shuffle"}`)
	if !res.State.Shuffled {
		t.Error("shuffle without on should toggle it on")
	}

	_, res = post(t, srv, `{"command": "vote", "url": "https://x/a.mp3", "mode": "up"}`)
	if got := a.Votes.Get("https://x/a.mp3").Mine(); got != social.Up {
		t.Errorf("vote = %q", got)
	}
	_, res = post(t, srv, `{"command": "favorite", "url": "https://x/a.mp3"}`)
	if res.Result != true || !a.Library.IsFavorite("https://x/a.mp3") {
		t.Errorf("favorite result %v", res.Result)
	}
}

func TestCommandErrors(t *testing.T) {
	srv, _ := newTestServer(t, "", "")
	tests := []struct {
		body string
		want int
	}{
		{`not json`, http.StatusBadRequest},
		{`{"command": "dance"}`, http.StatusBadRequest},
		{`{"command": "seek"}`, http.StatusBadRequest},
		{`{"command": "play", "url": "https://x/zzz.mp3"}`, http.StatusNotFound},
		{`{"command": "view", "view": "nope"}`, http.StatusNotFound},
		{`{"command": "repeat", "mode": "sometimes"}`, http.StatusBadRequest},
		{`{"command": "confirm"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		resp, _ := post(t, srv, tt.body)
		if resp.StatusCode != tt.want {
			t.Errorf("%s: status %d, want %d", tt.body, resp.StatusCode, tt.want)
		}
	}
}

func TestSharedLink(t *testing.T) {
	srv, _ := newTestServer(t, "", "")
	link, err := share.Link(share.DefaultBase, "https://x/c.mp3", 0)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(Command{Command: "open", Link: link})
	_, res := post(t, srv, string(body))
	if res.State.Shared == nil || res.State.Shared.Song.Title != "Charlie" {
		t.Fatalf("shared = %+v", res.State.Shared)
	}
	if res.State.Song != nil {
		t.Error("opening a link must not start playback")
	}
	_, res = post(t, srv, `{"command": "confirm"}`)
	if res.State.Song == nil || res.State.Song.Title != "Charlie" || res.State.Shared != nil {
		t.Errorf("after confirm: song %v shared %v", res.State.Song, res.State.Shared)
	}
}

func TestSongsAndSocial(t *testing.T) {
	srv, _ := newTestServer(t, "", "")

	var songs []catalog.Song
	if code := get(t, srv, "/api/songs?view=Rock/Louder&sort=title-desc", &songs); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(songs) != 2 || songs[0].Title != "Delta" {
		t.Errorf("songs = %v", songs)
	}

	post(t, srv, `{"command": "comment", "url": "https://x/c.mp3", "text": "great drop", "at": 42}`)
	var comments []social.Comment
	get(t, srv, "/api/comments?url=https://x/c.mp3", &comments)
	if len(comments) != 1 || comments[0].Text != "great drop" {
		t.Errorf("comments = %+v", comments)
	}

	for _, at := range []string{"10", "13", "16"} {
		post(t, srv, `{"command": "mark", "url": "https://x/c.mp3", "value": `+at+`}`)
	}
	var moments []social.Moment
	get(t, srv, "/api/moments?url=https://x/c.mp3&duration=200", &moments)
	if len(moments) != 1 {
		t.Errorf("moments = %+v", moments)
	}

	if code := get(t, srv, "/api/comments", nil); code != http.StatusBadRequest {
		t.Errorf("missing url: status %d", code)
	}
	if code := get(t, srv, "/api/songs/stats?url=https://x/zzz.mp3", nil); code != http.StatusNotFound {
		t.Errorf("unknown song: status %d", code)
	}
}

func TestBasicAuth(t *testing.T) {
	srv, _ := newTestServer(t, "dj", "s3cret")
	if code := get(t, srv, "/api/state", nil); code != http.StatusUnauthorized {
		t.Errorf("without credentials: status %d", code)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/state", nil)
	req.SetBasicAuth("dj", "s3cret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with credentials: status %d", resp.StatusCode)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s message: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func TestWebsocket(t *testing.T) {
	srv, a := newTestServer(t, "", "")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if msg := readUntil(t, conn, "state"); msg.State == nil || msg.State.Song != nil {
		t.Fatalf("initial state = %+v", msg.State)
	}

	if err := conn.WriteJSON(Command{Command: "play", URL: "https://x/a.mp3"}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, "result")
	if msg.State == nil || msg.State.Song == nil || msg.State.Song.Title != "Alpha" {
		t.Errorf("result state = %+v", msg.State)
	}

	a.Jukebox.Notify("hello")
	if msg := readUntil(t, conn, "toast"); msg.Message != "hello" {
		t.Errorf("toast = %q", msg.Message)
	}

	conn.WriteJSON(Command{Command: "dance"})
	if msg := readUntil(t, conn, "error"); !strings.Contains(msg.Error, "unknown command") {
		t.Errorf("error = %q", msg.Error)
	}
}

func TestIndex(t *testing.T) {
	srv, _ := newTestServer(t, "", "")
	resp, err := http.Get(srv.URL + "/?song=https://x/a.mp3&t=10")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("<title>jukebox</title>")) {
		t.Errorf("index: status %d", resp.StatusCode)
	}
	if code := get(t, srv, "/nope", nil); code != http.StatusNotFound {
		t.Errorf("unknown path: status %d", code)
	}
}

func TestRun(t *testing.T) {
	dir := apptest.Env(t)
	port := 45679

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- Run(ctx, &Params{
			Port:              port,
			Host:              "localhost",
			Catalog:           dir,
			Silent:            true,
			ReadTimeoutMillis: 1000,
			IdleTimeoutMillis: 1000,
			MaxHeaderBytes:    1 << 20,
		}, io.Discard)
	}()

	// Wait for server to start
	time.Sleep(200 * time.Millisecond)

	resp, err := http.Get("http://localhost:45679/api/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Run did not stop after cancel")
	}
}

func TestRun_AuthFlagsTogether(t *testing.T) {
	if err := Run(context.Background(), &Params{User: "dj"}, io.Discard); err == nil {
		t.Error("--user without --pass should fail")
	}
}

func TestRemoteURLs(t *testing.T) {
	got := remoteURLs("http", "localhost", 8080)
	if len(got) != 1 || got[0] != "http://localhost:8080" {
		t.Errorf("remoteURLs(localhost) = %v", got)
	}
	all := remoteURLs("https", "0.0.0.0", 9000)
	if len(all) == 0 || all[0] != "https://127.0.0.1:9000" {
		t.Errorf("remoteURLs(0.0.0.0) = %v", all)
	}
}

func TestCertificate(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	certPEM, keyPEM, err := generateCert(now, localIPs())
	if err != nil {
		t.Fatalf("generateCert: %v", err)
	}
	cfg, fp, err := parseCert(certPEM, keyPEM, now)
	if err != nil {
		t.Fatalf("parseCert: %v", err)
	}
	if len(cfg.Certificates) != 1 || len(fp) != 64 {
		t.Errorf("certificates %d, fingerprint %q", len(cfg.Certificates), fp)
	}
	if _, _, err := parseCert(certPEM, keyPEM, now.Add(2*certValidity)); err == nil {
		t.Error("expired certificate should be rejected")
	}
}
