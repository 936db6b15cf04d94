package share

import (
	"fmt"
	"io"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/atotto/clipboard"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	sharelink "github.com/gigurra/jukebox/cmd/common/share"
	"github.com/spf13/cobra"
)

var clipboardWriteAll = clipboard.WriteAll

type Params struct {
	Song    string `pos:"true" help:"Song to share, by url or title."`
	At      string `short:"a" optional:"true" help:"Start offset, in seconds or m:ss."`
	Base    string `short:"b" help:"Base url of the player the link opens." default:"http://localhost:8080/"`
	QR      bool   `short:"q" help:"Also print the link as a QR code." default:"false"`
	Copy    bool   `short:"c" help:"Copy the link to the clipboard." default:"false"`
	Catalog string `optional:"true" help:"Directory holding an alternative catalog."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "share <song>",
		Short: "Create a link to a song at a moment",
		Long: `Create a deep link that opens a song, optionally at a start offset.

Open links with 'jukebox open <link>' or in the web player served by
'jukebox serve'.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "share: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func Run(params *Params, stdout io.Writer) error {
	start := 0
	if params.At != "" {
		secs, err := common.ParseTime(params.At)
		if err != nil {
			return err
		}
		start = int(secs)
	}

	a, err := app.Open(params.Catalog, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	song, err := a.Resolve(params.Song)
	if err != nil {
		return err
	}
	link, err := sharelink.Link(params.Base, song.URL, start)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, link)
	if params.QR {
		code, err := sharelink.QR(link)
		if err != nil {
			return fmt.Errorf("failed to render QR code: %w", err)
		}
		fmt.Fprint(stdout, code)
	}
	if params.Copy {
		if err := clipboardWriteAll(link); err != nil {
			return fmt.Errorf("failed to write to clipboard: %w", err)
		}
		if start > 0 {
			fmt.Fprintf(stdout, "Link to %q at %s copied to clipboard!\n", song.Title, sharelink.Timestamp(start))
		} else {
			fmt.Fprintln(stdout, "Link copied to clipboard!")
		}
	}
	return nil
}
