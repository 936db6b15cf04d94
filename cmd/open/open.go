package open

import (
	"fmt"
	"io"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/share"
	"github.com/gigurra/jukebox/cmd/play"
	"github.com/spf13/cobra"
)

type Params struct {
	Link    string `pos:"true" help:"Shared link, or just its query string (song=...&t=...)."`
	Play    bool   `short:"p" help:"Open the player and ask to start the song." default:"false"`
	JSON    bool   `long:"json" help:"Output as JSON."`
	Catalog string `optional:"true" help:"Directory holding an alternative catalog."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "open <link>",
		Short: "Show or play a shared song link",
		Long: `Show the song a shared link points at.

With --play the interactive player opens and asks to play the song from
the linked moment.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			err := Run(params, os.Stdout)
			if err == nil && params.Play {
				err = play.Run(&play.Params{Link: params.Link, Catalog: params.Catalog})
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "open: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// Run describes the linked song. It fails for links to songs that are not in
// the catalog.
func Run(params *Params, stdout io.Writer) error {
	a, err := app.Open(params.Catalog, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	shared, err := a.OpenLink(params.Link)
	if err != nil {
		return err
	}
	a.DismissShared()

	if params.JSON {
		return common.PrintJSON(stdout, shared)
	}

	s := shared.Song
	fmt.Fprintf(stdout, "%s\n", s.Title)
	if s.Style != "" {
		fmt.Fprintf(stdout, "  Style: %s\n", s.Style)
	}
	if s.BPM > 0 {
		fmt.Fprintf(stdout, "  BPM:   %d\n", s.BPM)
	}
	if shared.Start > 0 {
		fmt.Fprintf(stdout, "  Start: %s\n", share.Timestamp(shared.Start))
	}
	fmt.Fprintf(stdout, "  URL:   %s\n", s.URL)
	return nil
}
