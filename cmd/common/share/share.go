// Package share builds and parses deep links to a song at a start offset.
package share

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

// DefaultBase points at the local serve command.
const DefaultBase = "http://localhost:8080/"

var ErrNoSong = errors.New("link does not reference a song")

// Target is what a shared link points at.
type Target struct {
	URL   string `json:"url"`
	Start int    `json:"start"` // seconds, 0 when absent
}

// Link returns base with the song and t query parameters set.
func Link(base, songURL string, start int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("song", songURL)
	q.Set("t", strconv.Itoa(max(start, 0)))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Parse extracts the target of a link. Raw may be a full url or just its
// query string. The start offset is its leading digits and is ignored unless
// positive.
func Parse(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	query := raw
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		query = raw[i+1:]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return Target{}, fmt.Errorf("invalid link: %w", err)
	}
	song := values.Get("song")
	if song == "" {
		return Target{}, ErrNoSong
	}
	return Target{URL: song, Start: leadingInt(values.Get("t"))}, nil
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// QR renders link as a terminal-friendly QR code.
func QR(link string) (string, error) {
	code, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return code.ToSmallString(false), nil
}

// Timestamp formats seconds as m:ss for share messages.
func Timestamp(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
