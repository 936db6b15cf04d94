package comment

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "comment",
		Short: "Read, post and report song comments",
		SubCmds: []*cobra.Command{
			AddCmd(),
			ListCmd(),
			ReportCmd(),
		},
	}.ToCobra()
}

type AddParams struct {
	Song    string `pos:"true" help:"Song url or title."`
	Text    string `pos:"true" help:"Comment text."`
	At      string `optional:"true" help:"Pin the comment to a position in the song (seconds or m:ss)."`
	Catalog string `optional:"true" help:"Directory holding an alternative catalog."`
}

func AddCmd() *cobra.Command {
	return boa.CmdT[AddParams]{
		Use:         "add <song> <text>",
		Short:       "Post a comment on a song",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *AddParams, cmd *cobra.Command, args []string) {
			if err := RunAdd(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "comment add: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func RunAdd(params *AddParams, stdout io.Writer) error {
	var at *float64
	if params.At != "" {
		secs, err := common.ParseTime(params.At)
		if err != nil {
			return err
		}
		at = &secs
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
	c, err := a.AddComment(song.URL, params.Text, at)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Comment %s posted on \"%s\"\n", c.ID, song.Title)
	return nil
}

type ListParams struct {
	Song    string `pos:"true" help:"Song url or title."`
	All     bool   `short:"a" help:"Include reported comments."`
	JSON    bool   `long:"json" help:"Output as JSON."`
	Catalog string `optional:"true" help:"Directory holding an alternative catalog."`
}

func ListCmd() *cobra.Command {
	return boa.CmdT[ListParams]{
		Use:         "list <song>",
		Aliases:     []string{"ls"},
		Short:       "List the comments on a song, newest first",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ListParams, cmd *cobra.Command, args []string) {
			if err := RunList(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "comment list: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func RunList(params *ListParams, stdout io.Writer) error {
	a, err := app.Open(params.Catalog, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	song, err := a.Resolve(params.Song)
	if err != nil {
		return err
	}
	comments := a.Comments.Visible(song.URL)
	if params.All {
		comments = a.Comments.All(song.URL)
	}

	if params.JSON {
		data, err := json.MarshalIndent(comments, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	if len(comments) == 0 {
		fmt.Fprintf(stdout, "No comments on \"%s\" yet\n", song.Title)
		return nil
	}

	now := time.Now()
	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(common.TerminalWidth(120))
	t.AppendHeader(table.Row{"ID", "User", "When", "At", "Comment"})
	for _, c := range comments {
		at := ""
		if c.SongTimestamp != nil {
			at = common.FormatTime(*c.SongTimestamp)
		}
		body := c.Text
		if a.Comments.IsReported(c.ID) {
			body = text.FgHiBlack.Sprint("[reported] " + body)
		}
		t.AppendRow(table.Row{c.ID, c.User, Ago(now, time.UnixMilli(c.Timestamp)), at, body})
	}
	t.Render()
	return nil
}

type ReportParams struct {
	ID string `pos:"true" help:"Comment id, as shown by 'comment list'."`
}

func ReportCmd() *cobra.Command {
	return boa.CmdT[ReportParams]{
		Use:         "report <id>",
		Short:       "Report a comment, hiding it",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ReportParams, cmd *cobra.Command, args []string) {
			if err := RunReport(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "comment report: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func RunReport(params *ReportParams, stdout io.Writer) error {
	a, err := app.Open("", nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Comments.IsReported(params.ID) {
		fmt.Fprintln(stdout, "Comment already reported")
		return nil
	}
	a.ReportComment(params.ID)
	fmt.Fprintln(stdout, "Comment reported and hidden.")
	return nil
}

// Ago renders how long before now t was, in the largest whole unit.
func Ago(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
