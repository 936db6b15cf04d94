package play

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/jukebox"
	"github.com/gigurra/jukebox/cmd/common/notify"
	"github.com/spf13/cobra"
)

type Params struct {
	View    string `short:"V" help:"View to open, by id or name (see 'jukebox views')." optional:"true"`
	Catalog string `help:"Directory holding an alternative catalog (index.json and playlist files)." optional:"true"`
	Link    string `short:"l" help:"Shared link to open. Playback starts once confirmed." optional:"true"`
	Shuffle bool   `short:"s" help:"Turn shuffle on before starting." default:"false"`
	Start   bool   `help:"Start playing the view right away." default:"false"`
	Silent  bool   `help:"Do not output audio, only simulate playback." default:"false"`
	Desktop bool   `short:"d" help:"Also show notifications on the desktop." default:"false"`
	Verbose bool   `short:"v" help:"Log debug output to the jukebox log file." default:"false"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "play",
		Short: "Open the interactive player",
		Long: `Open the interactive terminal player.

Browse views, queue songs, vote, comment and mark moments while music plays.
Press ? inside the player for keyboard shortcuts.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(params); err != nil {
				fmt.Fprintf(os.Stderr, "play: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// Audio picks the output for a session: the speaker when available, else a
// silent clock.
func Audio(silent bool) jukebox.Audio {
	if silent || !jukebox.AudioAvailable {
		return jukebox.NewSilent()
	}
	return jukebox.NewPlayer()
}

func Run(params *Params) error {
	common.SetupLogging(params.Verbose, true)

	a, err := app.Open(params.Catalog, Audio(params.Silent))
	if err != nil {
		return err
	}
	defer a.Close()

	if params.View != "" {
		id, err := a.FindView(params.View)
		if err != nil {
			return err
		}
		if err := a.SelectView(id); err != nil {
			return err
		}
	}
	if params.Shuffle {
		a.Jukebox.SetShuffle(true)
	}
	if params.Link != "" {
		if _, err := a.OpenLink(params.Link); err != nil {
			return err
		}
	}
	if params.Start {
		if err := a.PlayView(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)

	m := newModel(a)
	a.Jukebox.Subscribe(m.forward)
	if params.Desktop {
		// The player renders toasts itself.
		a.Jukebox.Subscribe(notify.New(io.Discard, true).Handle)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
