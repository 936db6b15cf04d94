package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Params struct {
	Song    string `pos:"true" optional:"true" help:"Song url or title. Without it, shows the most played songs."`
	Top     int    `short:"n" help:"Number of most played songs to show." default:"10"`
	Reset   bool   `help:"Reset all play counts to zero."`
	JSON    bool   `long:"json" help:"Output as JSON."`
	Catalog string `optional:"true" help:"Directory holding an alternative catalog."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "stats [song]",
		Short:       "Show listening statistics",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "stats: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// SongStats is everything known about one song's listening history.
type SongStats struct {
	Song            catalog.Song `json:"song"`
	PlayCount       int          `json:"playCount"`
	TotalTimePlayed float64      `json:"totalTimePlayed"`
	Completions     int          `json:"completions"`
	DailyPlays      [7]int       `json:"dailyPlays"`
	Rating          int          `json:"rating"`
	Votes           int          `json:"votes"`
	Comments        int          `json:"comments"`
}

func Run(params *Params, stdout io.Writer) error {
	a, err := app.Open(params.Catalog, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if params.Reset {
		a.ResetPlayCounts()
		fmt.Fprintln(stdout, "Play counts reset")
		return nil
	}
	if params.Song == "" {
		return runTop(a, params, stdout)
	}

	song, err := a.Resolve(params.Song)
	if err != nil {
		return err
	}
	st := Collect(a, song)

	if params.JSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	fmt.Fprintf(stdout, "%s\n%s\n\n", song.Title, song.URL)
	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Plays", st.PlayCount},
		{"Listening time", common.FormatListeningTime(st.TotalTimePlayed)},
		{"Completions", st.Completions},
		{"Last 7 days", Sparkline(st.DailyPlays[:])},
		{"Rating", fmt.Sprintf("%+d (%d votes)", st.Rating, st.Votes)},
		{"Comments", st.Comments},
	})
	t.Render()
	return nil
}

// Collect gathers the stats of song.
func Collect(a *app.App, song catalog.Song) SongStats {
	stat := a.Library.Stat(song.URL)
	rating, votes := a.Votes.Get(song.URL).Tally(0)
	return SongStats{
		Song:            song,
		PlayCount:       a.Library.PlayCount(song.URL),
		TotalTimePlayed: stat.TotalTimePlayed,
		Completions:     stat.Completions,
		DailyPlays:      a.Library.DailyPlays(song.URL),
		Rating:          rating,
		Votes:           votes,
		Comments:        len(a.Comments.Visible(song.URL)),
	}
}

func runTop(a *app.App, params *Params, stdout io.Writer) error {
	urls := a.Library.TopPlayed(params.Top)
	songs := a.Resolver.Join(a.Catalog.Songs(urls))

	if params.JSON {
		data, err := json.MarshalIndent(songs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	if len(songs) == 0 {
		fmt.Fprintln(stdout, "Nothing played yet")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Title", "Plays", "Listening time"})
	var total float64
	for i, s := range songs {
		st := a.Library.Stat(s.URL)
		total += st.TotalTimePlayed
		t.AppendRow(table.Row{i + 1, common.Truncate(s.Title, 50), s.PlayCount, common.FormatListeningTime(st.TotalTimePlayed)})
	}
	t.AppendFooter(table.Row{"", "", "", common.FormatListeningTime(total)})
	t.Render()
	fmt.Fprintf(stdout, "\n%d plays in history\n", len(a.Library.History()))
	return nil
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders counts as block characters scaled to the largest value.
func Sparkline(counts []int) string {
	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}
	var b strings.Builder
	for _, c := range counts {
		if peak == 0 || c == 0 {
			b.WriteRune(' ')
			continue
		}
		idx := c * (len(sparks) - 1) / peak
		b.WriteRune(sparks[idx])
	}
	return b.String()
}
