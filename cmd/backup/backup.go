// Package backup implements the export and import commands for user data.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/backupfile"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type ExportParams struct {
	File       string `pos:"true" optional:"true" help:"Output file, - for stdout. Defaults to a dated file name in the current directory."`
	Format     string `short:"f" help:"Backup format (json, gz, zip, tar.gz)." default:"json"`
	Passphrase string `short:"p" optional:"true" help:"Encrypt the backup with this passphrase."`
}

type ImportParams struct {
	File       string `pos:"true" help:"Backup file to import, - for stdin."`
	Passphrase string `short:"p" optional:"true" help:"Passphrase of an encrypted backup."`
}

func ExportCmd() *cobra.Command {
	formats := strings.Join(lo.Map(backupfile.Formats, func(f backupfile.Format, _ int) string { return string(f) }), ", ")
	return boa.CmdT[ExportParams]{
		Use:   "export [file]",
		Short: "Export favorites, playlists and settings",
		Long: fmt.Sprintf(`Export favorites, user playlists and settings to a backup file.

Supported formats: %s. With --passphrase the backup is encrypted and
gets an .age suffix.`, formats),
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ExportParams, cmd *cobra.Command, args []string) {
			if err := RunExport(cmd.Context(), params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "export: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func ImportCmd() *cobra.Command {
	return boa.CmdT[ImportParams]{
		Use:   "import <file>",
		Short: "Import a backup file",
		Long: `Import favorites, user playlists and settings from a backup file.

Every recognized section replaces the current data. Sections missing from the
backup, or malformed, are left as they are.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ImportParams, cmd *cobra.Command, args []string) {
			if err := RunImport(cmd.Context(), params, os.Stdin, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "import: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func RunExport(ctx context.Context, params *ExportParams, stdout io.Writer) (err error) {
	format, err := backupfile.ParseFormat(params.Format)
	if err != nil {
		return err
	}
	opts := backupfile.Options{Format: format, Passphrase: params.Passphrase}

	a, err := app.Open("", nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if params.File == "-" {
		return a.Export(ctx, stdout, opts)
	}

	path := params.File
	if path == "" {
		path = backupfile.FileName(time.Now(), opts)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := a.Export(ctx, f, opts); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported %d favorites and %d playlists to %s\n",
		len(a.Library.Favorites()), len(a.Library.Playlists()), path)
	return nil
}

func RunImport(ctx context.Context, params *ImportParams, stdin io.Reader, stdout io.Writer) error {
	r := stdin
	if params.File != "-" {
		f, err := os.Open(params.File)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	a, err := app.Open("", nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Import(ctx, r, params.Passphrase); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Imported backup: %d favorites, %d playlists\n",
		len(a.Library.Favorites()), len(a.Library.Playlists()))
	return nil
}
