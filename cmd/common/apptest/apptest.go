// Package apptest sets up an isolated data directory and a small catalog for
// command tests.
package apptest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gigurra/jukebox/cmd/common/app"
)

const index = `{
  "categories": [
    {"name": "Rock", "playlists": [{"name": "Loud", "file": "loud.txt"}, {"name": "Louder", "file": "louder.txt"}]}
  ]
}`

// Song urls of the test catalog. Rock/Loud holds Alpha and Bravo, Rock/Louder
// holds Charlie and Delta.
const (
	Alpha   = "https://x/a.mp3"
	Bravo   = "https://x/b.mp3"
	Charlie = "https://x/c.mp3"
	Delta   = "https://x/d.mp3"
)

var files = map[string]string{
	"index.json": index,
	"loud.txt":   "Alpha\n" + Alpha + "\nBravo\n" + Bravo + "\n",
	"louder.txt": "Charlie\n" + Charlie + "\nDelta\n" + Delta + "\n",
}

// Env points JUKEBOX_HOME at a fresh directory and writes the test catalog.
// It returns the catalog directory.
func Env(t *testing.T) string {
	t.Helper()
	t.Setenv("JUKEBOX_HOME", t.TempDir())

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

// Open opens the app over the current environment, for checking what a
// command persisted.
func Open(t *testing.T, catalogDir string) *app.App {
	t.Helper()
	a, err := app.Open(catalogDir, nil)
	if err != nil {
		t.Fatalf("app.Open: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}
