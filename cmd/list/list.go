package list

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

type Params struct {
	View    string   `pos:"true" optional:"true" help:"View id or name. Defaults to the first catalog playlist."`
	Search  string   `short:"q" optional:"true" help:"Only songs whose title contains this text."`
	Style   []string `optional:"true" help:"Only songs with one of these styles."`
	MinBPM  int      `long:"min-bpm" help:"Lowest BPM to include." default:"0"`
	MaxBPM  int      `long:"max-bpm" help:"Highest BPM to include." default:"250"`
	Sort    string   `short:"s" optional:"true" help:"Sort mode (default, title-asc, title-desc, duration-asc, duration-desc, bpm-asc, bpm-desc, style-asc, style-desc, play-count-asc, play-count-desc, rating-desc)."`
	Window  string   `short:"w" optional:"true" help:"Rating window for Highest Rated (all, week, today)."`
	Limit   int      `short:"n" help:"Show at most this many songs (0 for all)." default:"0"`
	JSON    bool     `long:"json" help:"Output as JSON."`
	Catalog string   `optional:"true" help:"Directory holding an alternative catalog."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "list [view]",
		Aliases:     []string{"ls"},
		Short:       "List the songs of a view",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "list: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func Run(params *Params, stdout io.Writer) error {
	a, err := app.Open(params.Catalog, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := Apply(a, Query{
		View:   params.View,
		Search: params.Search,
		Styles: params.Style,
		MinBPM: params.MinBPM,
		MaxBPM: params.MaxBPM,
		Sort:   params.Sort,
		Window: params.Window,
	}); err != nil {
		return err
	}

	songs, err := a.Playlist()
	if err != nil {
		return err
	}
	if params.Limit > 0 && len(songs) > params.Limit {
		songs = songs[:params.Limit]
	}

	if params.JSON {
		data, err := json.MarshalIndent(songs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	view := a.Query().View
	fmt.Fprintf(stdout, "%s (%d songs)\n", a.ViewName(view), len(songs))
	RenderSongs(stdout, songs, view)
	return nil
}

// Query is the command-line form of catalog.Query.
type Query struct {
	View   string
	Search string
	Styles []string
	MinBPM int
	MaxBPM int
	Sort   string
	Window string
}

// Apply selects q's view on a and sets its filter, sort and window. Unset
// fields keep the view's defaults.
func Apply(a *app.App, q Query) error {
	if q.View != "" {
		id, err := a.FindView(q.View)
		if err != nil {
			return err
		}
		if err := a.SelectView(id); err != nil {
			return err
		}
	}
	if a.Query().View == catalog.ViewNowPlaying {
		a.SimulateListeners()
	}
	if q.Sort != "" {
		mode, err := catalog.ParseSortMode(q.Sort)
		if err != nil {
			return err
		}
		if err := a.SetSort(mode); err != nil {
			return err
		}
	}
	if q.Window != "" {
		w, ok := social.ParseWindow(q.Window)
		if !ok {
			return fmt.Errorf("invalid rating window %q (want all, week or today)", q.Window)
		}
		if err := a.SetWindow(w); err != nil {
			return err
		}
	}
	return a.SetFilter(catalog.Filter{
		Search: q.Search,
		Styles: q.Styles,
		MinBPM: q.MinBPM,
		MaxBPM: q.MaxBPM,
	})
}

// RenderSongs writes songs as a table. The last column depends on view.
func RenderSongs(w io.Writer, songs []catalog.Song, view string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(common.TerminalWidth(120))

	extra := extraColumn(view)
	header := table.Row{"#", "", "Title", "Style", "BPM", "Time", "Plays"}
	if extra != "" {
		header = append(header, extra)
	}
	t.AppendHeader(header)

	for i, s := range songs {
		fav := ""
		if s.IsFavorite {
			fav = text.FgHiMagenta.Sprint("♥")
		}
		bpm := ""
		if s.BPM > 0 {
			bpm = strconv.Itoa(s.BPM)
		}
		row := table.Row{
			i + 1,
			fav,
			common.Truncate(s.Title, 50),
			s.Style,
			bpm,
			common.FormatTime(durationOrUnknown(s)),
			s.PlayCount,
		}
		switch extra {
		case "Rating":
			row = append(row, fmt.Sprintf("%+d (%d votes)", int(s.Score), s.VoteCount))
		case "Score":
			row = append(row, fmt.Sprintf("%.2f", s.Score))
		case "Listeners":
			row = append(row, text.FgGreen.Sprint(s.Listeners))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func extraColumn(view string) string {
	switch view {
	case catalog.ViewHighestRated:
		return "Rating"
	case catalog.ViewMostPopular:
		return "Score"
	case catalog.ViewNowPlaying:
		return "Listeners"
	}
	return ""
}

func durationOrUnknown(s catalog.Song) float64 {
	if !s.HasDuration() {
		return -1
	}
	return s.Duration
}
