package serve

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/jukebox"
	"github.com/gigurra/jukebox/cmd/common/library"
	"github.com/gigurra/jukebox/cmd/common/settings"
	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/gigurra/jukebox/cmd/list"
	"github.com/gigurra/jukebox/cmd/stats"
	"github.com/gigurra/jukebox/cmd/vote"
)

var errBadCommand = errors.New("bad command")

// Server exposes one App over HTTP and websockets.
type Server struct {
	app     *app.App
	handler http.Handler
	hub     *hub
}

func NewServer(a *app.App, user, pass string) *Server {
	s := &Server{app: a, hub: newHub()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/views", s.handleViews)
	mux.HandleFunc("GET /api/songs", s.handleSongs)
	mux.HandleFunc("GET /api/songs/stats", s.handleSongStats)
	mux.HandleFunc("GET /api/comments", s.handleComments)
	mux.HandleFunc("GET /api/moments", s.handleMoments)
	mux.HandleFunc("POST /api/commands", s.handleCommand)
	mux.HandleFunc("GET /ws", s.handleWS)

	s.handler = mux
	if user != "" {
		s.handler = basicAuth(user, pass, mux)
	}
	a.Jukebox.Subscribe(s.onEvent)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close disconnects every websocket client.
func (s *Server) Close() {
	s.hub.closeAll()
}

func basicAuth(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="jukebox"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// State is the response of GET /api/state.
type State struct {
	jukebox.Snapshot
	View    ViewState       `json:"view"`
	Shared  *app.Shared     `json:"shared,omitempty"`
	Spins   int             `json:"spins"`
	Unlocks library.Unlocks `json:"unlocks"`
}

// ViewState is the selected view and how it is narrowed.
type ViewState struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Sort   catalog.SortMode `json:"sort"`
	Window social.Window    `json:"window"`
	Search string           `json:"search,omitempty"`
	Styles []string         `json:"styles,omitempty"`
}

func (s *Server) state() State {
	q := s.app.Query()
	return State{
		Snapshot: s.app.Jukebox.Snapshot(),
		View: ViewState{
			ID:     q.View,
			Name:   s.app.ViewName(q.View),
			Sort:   q.Sort,
			Window: q.Window,
			Search: q.Filter.Search,
			Styles: q.Filter.Styles,
		},
		Shared:  s.app.PendingShared(),
		Spins:   s.app.Library.SpinCount(),
		Unlocks: s.app.Library.Unlocks(),
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Views())
}

func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if len(q) > 0 {
		query := list.Query{
			View:   q.Get("view"),
			Search: q.Get("q"),
			Styles: q["style"],
			Sort:   q.Get("sort"),
			Window: q.Get("window"),
		}
		if err := list.Apply(s.app, query); err != nil {
			writeError(w, err)
			return
		}
	}
	songs, err := s.app.Playlist()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (s *Server) songParam(w http.ResponseWriter, r *http.Request) (catalog.Song, bool) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, fmt.Errorf("%w: missing url parameter", errBadCommand))
		return catalog.Song{}, false
	}
	song, err := s.app.Song(url)
	if err != nil {
		writeError(w, err)
		return catalog.Song{}, false
	}
	return song, true
}

func (s *Server) handleSongStats(w http.ResponseWriter, r *http.Request) {
	if song, ok := s.songParam(w, r); ok {
		writeJSON(w, http.StatusOK, stats.Collect(s.app, song))
	}
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	if song, ok := s.songParam(w, r); ok {
		comments := s.app.Comments.Visible(song.URL)
		if comments == nil {
			comments = []social.Comment{}
		}
		writeJSON(w, http.StatusOK, comments)
	}
}

func (s *Server) handleMoments(w http.ResponseWriter, r *http.Request) {
	song, ok := s.songParam(w, r)
	if !ok {
		return
	}
	duration := song.Duration
	if d := r.URL.Query().Get("duration"); d != "" {
		v, err := strconv.ParseFloat(d, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: invalid duration %q", errBadCommand, d))
			return
		}
		duration = v
	}
	moments := social.TopMoments(s.app.Markers.Get(song.URL), duration)
	if moments == nil {
		moments = []social.Moment{}
	}
	writeJSON(w, http.StatusOK, moments)
}

// Command is one session action, posted to /api/commands or sent over the
// websocket. Which fields matter depends on Command.
type Command struct {
	Command  string          `json:"command"`
	URL      string          `json:"url,omitempty"`
	URLs     []string        `json:"urls,omitempty"`
	Value    *float64        `json:"value,omitempty"`
	On       *bool           `json:"on,omitempty"`
	Mode     string          `json:"mode,omitempty"`
	From     int             `json:"from,omitempty"`
	To       int             `json:"to,omitempty"`
	Text     string          `json:"text,omitempty"`
	At       *float64        `json:"at,omitempty"`
	ID       string          `json:"id,omitempty"`
	Link     string          `json:"link,omitempty"`
	View     string          `json:"view,omitempty"`
	Search   string          `json:"search,omitempty"`
	Sort     string          `json:"sort,omitempty"`
	Window   string          `json:"window,omitempty"`
	Settings *settings.Patch `json:"settings,omitempty"`
}

// CommandResult is the response of POST /api/commands.
type CommandResult struct {
	Result any   `json:"result,omitempty"`
	State  State `json:"state"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var c Command
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&c); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadCommand, err))
		return
	}
	result, err := s.exec(c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CommandResult{Result: result, State: s.state()})
}

func (s *Server) songs(c Command) ([]catalog.Song, error) {
	urls := c.URLs
	if c.URL != "" {
		urls = append([]string{c.URL}, urls...)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %s needs url or urls", errBadCommand, c.Command)
	}
	out := make([]catalog.Song, 0, len(urls))
	for _, u := range urls {
		song, err := s.app.Song(u)
		if err != nil {
			return nil, err
		}
		out = append(out, song)
	}
	return out, nil
}

func (s *Server) song(c Command) (catalog.Song, error) {
	if c.URL == "" {
		return catalog.Song{}, fmt.Errorf("%w: %s needs url", errBadCommand, c.Command)
	}
	return s.app.Song(c.URL)
}

func value(c Command) (float64, error) {
	if c.Value == nil {
		return 0, fmt.Errorf("%w: %s needs value", errBadCommand, c.Command)
	}
	return *c.Value, nil
}

// exec runs c against the app and returns its result, if any.
func (s *Server) exec(c Command) (any, error) {
	jb := s.app.Jukebox
	slog.Debug("command", "command", c.Command, "url", c.URL)

	switch c.Command {
	case "play":
		if c.URL == "" {
			return nil, s.app.PlayView()
		}
		song, err := s.song(c)
		if err != nil {
			return nil, err
		}
		jb.PlaySong(&song, false)
	case "toggle":
		jb.TogglePlayPause()
	case "pause":
		jb.Pause()
	case "resume":
		jb.Resume()
	case "next":
		jb.Next()
	case "prev":
		jb.Prev()
	case "seek":
		v, err := value(c)
		if err != nil {
			return nil, err
		}
		jb.Seek(v)
	case "volume":
		v, err := value(c)
		if err != nil {
			return nil, err
		}
		jb.SetVolume(v)
	case "mute":
		jb.SetMuted(boolOr(c.On, !jb.Settings().Muted))
	case "shuffle":
		jb.SetShuffle(boolOr(c.On, !jb.Settings().Shuffled))
	case "repeat":
		if c.Mode == "" {
			return jb.CycleRepeatMode(), nil
		}
		mode, err := settings.ParseRepeatMode(c.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadCommand, err)
		}
		jb.SetRepeatMode(mode)
	case "autoplay":
		jb.SetAutoplay(boolOr(c.On, !jb.Settings().Autoplay))
	case "crossfade":
		seconds := jb.Settings().CrossfadeDuration
		if c.Value != nil {
			seconds = *c.Value
		}
		jb.SetCrossfade(boolOr(c.On, !jb.Settings().CrossfadeEnabled), seconds)
	case "settings":
		if c.Settings == nil {
			return nil, fmt.Errorf("%w: settings needs settings", errBadCommand)
		}
		return jb.UpdateSettings(*c.Settings), nil
	case "enqueue", "append":
		songs, err := s.songs(c)
		if err != nil {
			return nil, err
		}
		if c.Command == "enqueue" {
			jb.EnqueueNext(songs)
		} else {
			jb.AppendToQueue(songs)
		}
	case "dequeue":
		if c.URL == "" {
			return nil, fmt.Errorf("%w: dequeue needs url", errBadCommand)
		}
		jb.RemoveFromQueue(c.URL)
	case "move":
		if err := jb.ReorderQueue(c.From, c.To); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadCommand, err)
		}
	case "clear":
		jb.ClearQueue()
	case "favorite":
		song, err := s.song(c)
		if err != nil {
			return nil, err
		}
		return s.app.ToggleFavorite(song.URL), nil
	case "vote":
		song, err := s.song(c)
		if err != nil {
			return nil, err
		}
		dir, err := vote.ParseDirection(c.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadCommand, err)
		}
		data := s.app.Vote(song.URL, dir)
		score, count := data.Tally(0)
		return map[string]any{"mine": data.Mine(), "score": score, "votes": count}, nil
	case "dismiss-vote":
		jb.DismissVotePrompt()
	case "comment":
		song, err := s.song(c)
		if err != nil {
			return nil, err
		}
		comment, err := s.app.AddComment(song.URL, c.Text, c.At)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadCommand, err)
		}
		return comment, nil
	case "report":
		if c.ID == "" {
			return nil, fmt.Errorf("%w: report needs id", errBadCommand)
		}
		s.app.ReportComment(c.ID)
	case "mark":
		song, err := s.song(c)
		if err != nil {
			return nil, err
		}
		t, err := value(c)
		if err != nil {
			return nil, err
		}
		return s.app.MarkMoment(song.URL, t), nil
	case "view":
		q := list.Query{View: c.View, Search: c.Search, Sort: c.Sort, Window: c.Window}
		if err := list.Apply(s.app, q); err != nil {
			return nil, err
		}
	case "open":
		return s.app.OpenLink(c.Link)
	case "confirm":
		return nil, s.app.ConfirmShared()
	case "dismiss":
		s.app.DismissShared()
	case "spin":
		n := 1
		if c.Value != nil {
			n = int(*c.Value)
		}
		return s.app.Spin(n), nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", errBadCommand, c.Command)
	}
	return nil, nil
}

func boolOr(p *bool, fallback bool) bool {
	if p != nil {
		return *p
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "err", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, catalog.ErrSongNotFound),
		errors.Is(err, catalog.ErrUnknownView),
		errors.Is(err, library.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrNoPendingShare):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}
