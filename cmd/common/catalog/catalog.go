// Package catalog loads the static song catalog and resolves the song list
// behind every view of the player.
package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/samber/lo"
)

//go:embed data
var dataFS embed.FS

const (
	indexFile    = "index.json"
	metadataFile = "metadata.json"
	lyricsFile   = "lyrics.json"

	// Songs from this tab carry hand-made art and are excluded from art generation.
	specialCategory    = "Ðeffy Sings~"
	specialSubcategory = "Classics"
)

var (
	ErrNoSongs       = errors.New("catalog contains no songs")
	ErrSongNotFound  = errors.New("song not found")
	ErrAmbiguousSong = errors.New("ambiguous song reference")
)

// Song is an immutable catalog entry. The fields after Description are view
// fields joined in at read time and never persisted on the entity.
type Song struct {
	Title                     string `json:"title"`
	URL                       string `json:"url"`
	BPM                       int    `json:"bpm,omitempty"`
	Style                     string `json:"style,omitempty"`
	CoverArtURL               string `json:"coverArtUrl,omitempty"`
	Lyrics                    string `json:"lyrics,omitempty"`
	Description               string `json:"description,omitempty"`
	DisableAlbumArtGeneration bool   `json:"disableAlbumArtGeneration,omitempty"`

	IsFavorite bool    `json:"isFavorite,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	PlayCount  int     `json:"playCount,omitempty"`
	Score      float64 `json:"score,omitempty"`
	VoteCount  int     `json:"voteCount,omitempty"`
	Listeners  int     `json:"listeners,omitempty"`
}

// HasDuration reports whether a usable duration is known.
func (s Song) HasDuration() bool {
	return s.Duration > 0
}

// Metadata is the static per-song lookup keyed by url.
type Metadata struct {
	BPM         int    `json:"bpm,omitempty"`
	Style       string `json:"style,omitempty"`
	CoverArtURL string `json:"coverArtUrl,omitempty"`
	Description string `json:"description,omitempty"`
}

// Category is a top-level tab holding static playlists.
type Category struct {
	Name      string
	Playlists []StaticPlaylist
}

// StaticPlaylist is a subcategory parsed from title/url line pairs.
type StaticPlaylist struct {
	Name  string
	Songs []Song
}

type Catalog struct {
	categories []Category
	all        []Song
	byURL      map[string]Song
}

type index struct {
	Categories []struct {
		Name      string `json:"name"`
		Playlists []struct {
			Name string `json:"name"`
			File string `json:"file"`
		} `json:"playlists"`
	} `json:"categories"`
}

// Default loads the catalog compiled into the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(dataFS, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir loads a catalog from a directory laid out like the built-in one.
func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

// Load reads index.json plus the playlist text files it names. metadata.json
// and lyrics.json are optional.
func Load(fsys fs.FS) (*Catalog, error) {
	var idx index
	if err := readJSON(fsys, indexFile, &idx); err != nil {
		return nil, fmt.Errorf("read catalog index: %w", err)
	}

	meta := map[string]Metadata{}
	if err := readJSON(fsys, metadataFile, &meta); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read song metadata: %w", err)
	}
	lyrics := map[string]string{}
	if err := readJSON(fsys, lyricsFile, &lyrics); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read lyrics: %w", err)
	}

	c := &Catalog{byURL: make(map[string]Song)}
	for _, cat := range idx.Categories {
		category := Category{Name: cat.Name}
		for _, pl := range cat.Playlists {
			text, err := fs.ReadFile(fsys, path.Clean(pl.File))
			if err != nil {
				return nil, fmt.Errorf("read playlist %s/%s: %w", cat.Name, pl.Name, err)
			}
			special := cat.Name == specialCategory && pl.Name == specialSubcategory
			songs := Parse(string(text), special, meta, lyrics)
			category.Playlists = append(category.Playlists, StaticPlaylist{Name: pl.Name, Songs: songs})

			for _, s := range songs {
				if _, seen := c.byURL[s.URL]; !seen {
					c.byURL[s.URL] = s
					c.all = append(c.all, s)
				}
			}
		}
		c.categories = append(c.categories, category)
	}

	if len(c.all) == 0 {
		return nil, ErrNoSongs
	}
	return c, nil
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Parse reads alternating title and url lines. Lines are trimmed and blank
// lines ignored; a trailing title without a url is dropped.
func Parse(text string, special bool, meta map[string]Metadata, lyrics map[string]string) []Song {
	lines := lo.FilterMap(strings.Split(text, "\n"), func(l string, _ int) (string, bool) {
		l = strings.TrimSpace(l)
		return l, l != ""
	})

	var songs []Song
	for i := 0; i+1 < len(lines); i += 2 {
		url := lines[i+1]
		m := meta[url]
		songs = append(songs, Song{
			Title:                     lines[i],
			URL:                       url,
			BPM:                       m.BPM,
			Style:                     m.Style,
			CoverArtURL:               m.CoverArtURL,
			Description:               m.Description,
			Lyrics:                    lyrics[url],
			DisableAlbumArtGeneration: special,
		})
	}
	return songs
}

// All returns every unique song; the first occurrence of a url wins.
func (c *Catalog) All() []Song {
	return append([]Song(nil), c.all...)
}

func (c *Catalog) Categories() []Category {
	return c.categories
}

// Song looks up a song by url.
func (c *Catalog) Song(url string) (Song, bool) {
	s, ok := c.byURL[url]
	return s, ok
}

// Songs maps urls to songs in order, skipping urls not in the catalog.
func (c *Catalog) Songs(urls []string) []Song {
	return lo.FilterMap(urls, func(u string, _ int) (Song, bool) {
		s, ok := c.byURL[u]
		return s, ok
	})
}

// Styles lists every distinct style, in catalog order.
func (c *Catalog) Styles() []string {
	return lo.Uniq(lo.FilterMap(c.all, func(s Song, _ int) (string, bool) {
		return s.Style, s.Style != ""
	}))
}

// Search finds songs whose title or url contains query, case-insensitively.
func (c *Catalog) Search(query string) []Song {
	q := strings.ToLower(strings.TrimSpace(query))
	return lo.Filter(c.all, func(s Song, _ int) bool {
		return strings.Contains(strings.ToLower(s.Title), q) || strings.Contains(strings.ToLower(s.URL), q)
	})
}

// Resolve finds a song by exact url, or by a unique title match.
func (c *Catalog) Resolve(ref string) (Song, error) {
	if s, ok := c.byURL[ref]; ok {
		return s, nil
	}
	matches := lo.Filter(c.all, func(s Song, _ int) bool { return strings.EqualFold(s.Title, ref) })
	if len(matches) == 0 {
		matches = c.Search(ref)
	}
	switch len(matches) {
	case 0:
		return Song{}, fmt.Errorf("%w: %q", ErrSongNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return Song{}, fmt.Errorf("%w: %q matches %d songs", ErrAmbiguousSong, ref, len(matches))
	}
}
