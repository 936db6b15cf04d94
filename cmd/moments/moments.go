package moments

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var ErrUnknownDuration = errors.New("song duration unknown, run 'jukebox probe' or pass --duration")

const heatmapSegments = 40

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "moments",
		Short: "Mark and explore the crowd's favorite moments of a song",
		SubCmds: []*cobra.Command{
			MarkCmd(),
			TopCmd(),
		},
	}.ToCobra()
}

type MarkParams struct {
	Song    string `pos:"true" help:"Song url or title."`
	At      string `pos:"true" help:"Position in the song (seconds or m:ss)."`
	Catalog string `optional:"true" help:"Directory holding an alternative catalog."`
}

func MarkCmd() *cobra.Command {
	return boa.CmdT[MarkParams]{
		Use:         "mark <song> <time>",
		Short:       "Mark a moment in a song",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *MarkParams, cmd *cobra.Command, args []string) {
			if err := RunMark(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "moments mark: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func RunMark(params *MarkParams, stdout io.Writer) error {
	at, err := common.ParseTime(params.At)
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
	if !a.MarkMoment(song.URL, at) {
		fmt.Fprintf(stdout, "Too close to the previous mark, need %gs between marks\n", social.MarkerSpacing)
		return nil
	}
	fmt.Fprintf(stdout, "Marked %s in \"%s\"\n", common.FormatTime(at), song.Title)
	return nil
}

type TopParams struct {
	Song     string  `pos:"true" help:"Song url or title."`
	Duration float64 `help:"Song length in seconds, when it has not been probed." default:"0"`
	JSON     bool    `long:"json" help:"Output as JSON."`
	Catalog  string  `optional:"true" help:"Directory holding an alternative catalog."`
}

func TopCmd() *cobra.Command {
	return boa.CmdT[TopParams]{
		Use:         "top <song>",
		Short:       "Show a song's top moments and marker heatmap",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *TopParams, cmd *cobra.Command, args []string) {
			if err := RunTop(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "moments top: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func RunTop(params *TopParams, stdout io.Writer) error {
	a, err := app.Open(params.Catalog, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	song, err := a.Resolve(params.Song)
	if err != nil {
		return err
	}
	duration := params.Duration
	if duration <= 0 {
		duration = song.Duration
	}
	if duration <= 0 {
		return ErrUnknownDuration
	}

	markers := a.Markers.Get(song.URL)
	moments := social.TopMoments(markers, duration)

	if params.JSON {
		data, err := json.MarshalIndent(moments, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	fmt.Fprintf(stdout, "%s (%d markers)\n", song.Title, len(markers))
	if len(markers) > 0 {
		fmt.Fprintf(stdout, "[%s]\n", Heatmap(social.Heatmap(markers, duration, heatmapSegments)))
	}
	if len(moments) == 0 {
		fmt.Fprintln(stdout, "No top moments yet")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Time", "Marks"})
	for i, m := range moments {
		t.AppendRow(table.Row{i + 1, common.FormatTime(m.Time), m.Count})
	}
	t.Render()
	return nil
}

var shades = []rune(" ░▒▓█")

// Heatmap renders intensities in [0,1] as shaded blocks.
func Heatmap(intensity []float64) string {
	var b strings.Builder
	for _, v := range intensity {
		idx := int(v*float64(len(shades)-1) + 0.5)
		idx = min(max(idx, 0), len(shades)-1)
		b.WriteRune(shades[idx])
	}
	return b.String()
}
