package social

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gigurra/jukebox/cmd/common/store"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var ErrEmptyComment = errors.New("comment text must not be empty")

type Comment struct {
	ID            string   `json:"id"`
	User          string   `json:"user"`
	Avatar        string   `json:"avatar"`
	Text          string   `json:"text"`
	Timestamp     int64    `json:"timestamp"`               // creation time, unix millis
	SongTimestamp *float64 `json:"songTimestamp,omitempty"` // seconds into the song
}

// Comments stores per-song comments newest first, plus the set of reported ids.
type Comments struct {
	mu       sync.Mutex
	store    store.Store
	now      func() time.Time
	comments map[string][]Comment
	reported map[string]bool
}

func NewComments(s store.Store, now func() time.Time) *Comments {
	if now == nil {
		now = time.Now
	}
	c := store.Load(s, store.KeyComments, map[string][]Comment{})
	if c == nil {
		c = map[string][]Comment{}
	}
	reported := store.Load(s, store.KeyReported, []string{})
	return &Comments{
		store:    s,
		now:      now,
		comments: c,
		reported: lo.SliceToMap(reported, func(id string) (string, bool) { return id, true }),
	}
}

// Add stamps c with a fresh id and creation time and puts it first.
func (c *Comments) Add(url string, comment Comment) (Comment, error) {
	comment.Text = strings.TrimSpace(comment.Text)
	if comment.Text == "" {
		return Comment{}, ErrEmptyComment
	}
	comment.ID = "comment-" + uuid.NewString()
	comment.Timestamp = c.now().UnixMilli()

	c.mu.Lock()
	c.comments[url] = append([]Comment{comment}, c.comments[url]...)
	all := lo.MapValues(c.comments, func(cs []Comment, _ string) []Comment { return slices.Clone(cs) })
	c.mu.Unlock()

	store.SaveOrLog(c.store, store.KeyComments, all)
	return comment, nil
}

// All returns every comment for url, reported ones included.
func (c *Comments) All(url string) []Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.comments[url])
}

// Visible returns the comments for url that have not been reported.
func (c *Comments) Visible(url string) []Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Filter(c.comments[url], func(cm Comment, _ int) bool { return !c.reported[cm.ID] })
}

// Report hides a comment without deleting it.
func (c *Comments) Report(id string) {
	c.mu.Lock()
	c.reported[id] = true
	ids := lo.Keys(c.reported)
	c.mu.Unlock()
	slices.Sort(ids)
	store.SaveOrLog(c.store, store.KeyReported, ids)
}

func (c *Comments) IsReported(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reported[id]
}
