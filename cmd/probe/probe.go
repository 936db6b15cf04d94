package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/durations"
	"github.com/gigurra/jukebox/cmd/list"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	httpClient = http.DefaultClient
	decode     = durations.DecodeMP3
)

type Params struct {
	View        string `pos:"true" optional:"true" help:"View whose songs to probe, by id or name."`
	All         bool   `short:"a" help:"Probe every song in the catalog." default:"false"`
	Concurrency int    `short:"j" help:"Songs fetched in parallel." default:"4"`
	Timeout     int    `short:"t" help:"Timeout per song in seconds." default:"10"`
	Catalog     string `optional:"true" help:"Directory holding an alternative catalog."`
	Verbose     bool   `short:"v" help:"Log debug output." default:"false"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "probe [view]",
		Short: "Find the length of songs with unknown durations",
		Long: `Fetch songs whose length is not cached yet and read it from their MP3 data.

Durations are cached, including failures, so each song is probed once.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(cmd.Context(), params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "probe: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func Run(ctx context.Context, params *Params, stdout io.Writer) error {
	common.SetupLogging(params.Verbose, false)

	a, err := app.Open(params.Catalog, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Prober.Client = httpClient
	a.Prober.Decode = decode
	a.Prober.Concurrency = params.Concurrency
	if params.Timeout > 0 {
		a.Prober.Timeout = time.Duration(params.Timeout) * time.Second
	}

	var probed int
	if params.All {
		urls := lo.Map(a.Catalog.All(), func(s catalog.Song, _ int) string { return s.URL })
		probed = len(a.Prober.ProbeMissing(ctx, urls, a.Library))
	} else {
		if err := list.Apply(a, list.Query{View: params.View}); err != nil {
			return err
		}
		if probed, err = a.ProbeDurations(ctx); err != nil {
			return err
		}
	}

	unknown := lo.CountBy(lo.Values(a.Library.Durations()), func(d float64) bool { return d == durations.Unknown })
	fmt.Fprintf(stdout, "Probed %d songs (%d known durations, %d could not be read)\n",
		probed, len(a.Library.Durations())-unknown, unknown)
	return nil
}
