package vote

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/spf13/cobra"
)

type Params struct {
	Song      string `pos:"true" help:"Song url or title."`
	Direction string `pos:"true" help:"up or down. Voting the same way twice clears the vote."`
	Catalog   string `optional:"true" help:"Directory holding an alternative catalog."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "vote <song> <up|down>",
		Short:       "Vote a song up or down",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "vote: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func ParseDirection(s string) (social.Direction, error) {
	switch strings.ToLower(s) {
	case "up", "+", "+1", "👍":
		return social.Up, nil
	case "down", "-", "-1", "👎":
		return social.Down, nil
	}
	return "", fmt.Errorf("invalid vote direction %q (want up or down)", s)
}

func Run(params *Params, stdout io.Writer) error {
	dir, err := ParseDirection(params.Direction)
	if err != nil {
		return err
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
	data := a.Vote(song.URL, dir)
	score, count := data.Tally(0)

	switch data.Mine() {
	case "":
		fmt.Fprintf(stdout, "Vote on \"%s\" cleared", song.Title)
	default:
		fmt.Fprintf(stdout, "Voted %s on \"%s\"", data.Mine(), song.Title)
	}
	fmt.Fprintf(stdout, " (score %+d, %d votes)\n", score, count)
	return nil
}
