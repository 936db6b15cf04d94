// Package backupfile reads and writes user data backups: favorites, user
// playlists and settings as JSON, optionally compressed or archived, and
// optionally encrypted with a passphrase.
package backupfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"time"

	"filippo.io/age"
	"github.com/gigurra/jukebox/cmd/common/library"
	"github.com/gigurra/jukebox/cmd/common/settings"
	"github.com/mholt/archives"
)

// EntryName is the payload file inside archive backups.
const EntryName = "backup.json"

const ageHeader = "age-encryption.org/v1"

var (
	ErrInvalidBackup      = errors.New("invalid backup file")
	ErrPassphraseRequired = errors.New("backup is encrypted, a passphrase is required")
	ErrUnknownFormat      = errors.New("unknown backup format")
)

// Format is the container a backup is written in.
type Format string

const (
	FormatJSON  Format = "json"
	FormatGz    Format = "gz"
	FormatZip   Format = "zip"
	FormatTarGz Format = "tar.gz"
)

var Formats = []Format{FormatJSON, FormatGz, FormatZip, FormatTarGz}

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Data is the exported document.
type Data struct {
	Favorites     []string           `json:"favorites"`
	UserPlaylists []library.Playlist `json:"userPlaylists"`
	Settings      settings.Settings  `json:"settings"`
}

// Options control how a backup is written.
type Options struct {
	Format     Format
	Passphrase string
	ModTime    time.Time
}

// FileName is the suggested name of a backup written on day now.
func FileName(now time.Time, opts Options) string {
	name := "deffys-jukebox-backup-" + now.Format(time.DateOnly)
	switch opts.Format {
	case FormatGz:
		name += ".json.gz"
	case FormatZip, FormatTarGz:
		name += "." + string(opts.Format)
	default:
		name += ".json"
	}
	if opts.Passphrase != "" {
		name += ".age"
	}
	return name
}

// Write encodes d to w.
func Write(ctx context.Context, w io.Writer, d Data, opts Options) (err error) {
	payload, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}

	out := w
	if opts.Passphrase != "" {
		enc, encErr := encrypt(w, opts.Passphrase)
		if encErr != nil {
			return encErr
		}
		defer func() {
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
		}()
		out = enc
	}

	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	switch opts.Format {
	case FormatJSON, "":
		_, err = out.Write(payload)
		return err
	case FormatGz:
		zw, err := archives.Gz{}.OpenWriter(out)
		if err != nil {
			return err
		}
		if _, err := zw.Write(payload); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	case FormatZip:
		return archives.Zip{}.Archive(ctx, out, payloadFiles(payload, modTime))
	case FormatTarGz:
		format := archives.CompressedArchive{
			Compression: archives.Gz{},
			Archival:    archives.Tar{},
		}
		return format.Archive(ctx, out, payloadFiles(payload, modTime))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

func encrypt(w io.Writer, passphrase string) (io.WriteCloser, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, err
	}
	enc, err := age.Encrypt(w, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to start encryption: %w", err)
	}
	return enc, nil
}

func payloadFiles(payload []byte, modTime time.Time) []archives.FileInfo {
	info := memInfo{name: EntryName, size: int64(len(payload)), modTime: modTime}
	return []archives.FileInfo{{
		FileInfo:      info,
		NameInArchive: EntryName,
		Open: func() (fs.File, error) {
			return memFile{Reader: bytes.NewReader(payload), info: info}, nil
		},
	}}
}

// Read decodes a backup of any supported format. Encrypted backups need the
// passphrase they were written with.
func Read(ctx context.Context, r io.Reader, passphrase string) (Imported, error) {
	payload, err := Payload(ctx, r, passphrase)
	if err != nil {
		return Imported{}, err
	}
	return Parse(payload)
}

// Payload unwraps encryption, compression and archiving and returns the JSON
// document.
func Payload(ctx context.Context, r io.Reader, passphrase string) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(data, []byte(ageHeader)) {
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		identity, err := age.NewScryptIdentity(passphrase)
		if err != nil {
			return nil, err
		}
		dec, err := age.Decrypt(bytes.NewReader(data), identity)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt backup: %w", err)
		}
		if data, err = io.ReadAll(dec); err != nil {
			return nil, fmt.Errorf("failed to decrypt backup: %w", err)
		}
	}

	format, _, err := archives.Identify(ctx, "", bytes.NewReader(data))
	if errors.Is(err, archives.NoMatch) {
		return data, nil
	}
	if err != nil {
		return nil, err
	}

	switch f := format.(type) {
	case archives.Extractor:
		return extractEntry(ctx, f, data)
	case archives.Decompressor:
		rc, err := f.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format.Extension())
	}
}

func extractEntry(ctx context.Context, ex archives.Extractor, data []byte) ([]byte, error) {
	var payload []byte
	found := false
	err := ex.Extract(ctx, bytes.NewReader(data), func(ctx context.Context, f archives.FileInfo) error {
		if found || f.IsDir() || path.Base(f.NameInArchive) != EntryName {
			return nil
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		payload, err = io.ReadAll(rc)
		found = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: no %s in archive", ErrInvalidBackup, EntryName)
	}
	return payload, nil
}

// Imported holds the recognized fields of a backup. Nil fields were absent
// or malformed and must be left alone.
type Imported struct {
	Favorites []string
	Playlists []library.Playlist
	Settings  *settings.Patch
}

// Parse decodes payload field by field. Only a document that is not a JSON
// object is rejected as a whole.
func Parse(payload []byte) (Imported, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil || raw == nil {
		return Imported{}, ErrInvalidBackup
	}

	var out Imported
	if v, ok := raw["favorites"]; ok {
		var favs []string
		if json.Unmarshal(v, &favs) == nil && favs != nil {
			out.Favorites = favs
		}
	}
	if v, ok := raw["userPlaylists"]; ok {
		var pls []library.Playlist
		if json.Unmarshal(v, &pls) == nil && pls != nil {
			out.Playlists = pls
		}
	}
	if v, ok := raw["settings"]; ok {
		var p settings.Patch
		if !bytes.Equal(bytes.TrimSpace(v), []byte("null")) && json.Unmarshal(v, &p) == nil {
			out.Settings = &p
		}
	}
	return out, nil
}

type memInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return 0o644 }
func (i memInfo) ModTime() time.Time { return i.modTime }
func (i memInfo) IsDir() bool        { return false }
func (i memInfo) Sys() any           { return nil }

type memFile struct {
	*bytes.Reader
	info memInfo
}

func (f memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f memFile) Close() error               { return nil }
