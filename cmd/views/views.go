package views

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

type Params struct {
	JSON    bool   `long:"json" help:"Output as JSON."`
	Catalog string `optional:"true" help:"Directory holding an alternative catalog."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "views",
		Short:       "List the views songs can be browsed and played from",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "views: %v\n", err)
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

	views := a.Views()
	if params.JSON {
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Kind", ""})
	for _, v := range views {
		flags := ""
		if v.ReadOnly {
			flags = text.FgHiBlack.Sprint("read-only")
		}
		t.AppendRow(table.Row{v.ID, v.Name, v.Kind, flags})
	}
	t.Render()
	return nil
}
