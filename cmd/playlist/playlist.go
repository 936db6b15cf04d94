package playlist

import (
	"fmt"
	"io"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/library"
	"github.com/gigurra/jukebox/cmd/common/notify"
	"github.com/gigurra/jukebox/cmd/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "playlist",
		Short: "Manage your own playlists",
		SubCmds: []*cobra.Command{
			ListCmd(),
			CreateCmd(),
			AddCmd(),
			RemoveCmd(),
			MoveCmd(),
			RenameCmd(),
			DeleteCmd(),
		},
	}.ToCobra()
}

// open opens the app with toasts printed to stdout as confirmations.
func open(catalogDir string, stdout io.Writer) (*app.App, error) {
	a, err := app.Open(catalogDir, nil)
	if err != nil {
		return nil, err
	}
	a.Jukebox.Subscribe(notify.New(stdout, false).Handle)
	return a, nil
}

func find(a *app.App, ref string) (library.Playlist, error) {
	p, ok := a.Library.FindPlaylist(ref)
	if !ok {
		return library.Playlist{}, fmt.Errorf("%w: %s", library.ErrPlaylistNotFound, ref)
	}
	return p, nil
}

func resolveURLs(a *app.App, refs []string) ([]string, error) {
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		s, err := a.Resolve(ref)
		if err != nil {
			return nil, err
		}
		urls = append(urls, s.URL)
	}
	return urls, nil
}

func run(name string, f func() error) {
	if err := f(); err != nil {
		fmt.Fprintf(os.Stderr, "playlist %s: %v\n", name, err)
		os.Exit(1)
	}
}

type ListParams struct {
	Playlist string `pos:"true" optional:"true" help:"Playlist name or id. Without it, lists all playlists."`
	JSON     bool   `long:"json" help:"Output as JSON."`
	Catalog  string `optional:"true" help:"Directory holding an alternative catalog."`
}

func ListCmd() *cobra.Command {
	return boa.CmdT[ListParams]{
		Use:         "list [playlist]",
		Aliases:     []string{"ls", "show"},
		Short:       "List playlists, or the songs of one",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ListParams, cmd *cobra.Command, args []string) {
			run("list", func() error { return RunList(params, os.Stdout) })
		},
	}.ToCobra()
}

func RunList(params *ListParams, stdout io.Writer) error {
	a, err := app.Open(params.Catalog, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if params.Playlist != "" {
		p, err := find(a, params.Playlist)
		if err != nil {
			return err
		}
		songs := a.Resolver.Join(a.Catalog.Songs(p.SongURLs))
		if params.JSON {
			return common.PrintJSON(stdout, songs)
		}
		fmt.Fprintf(stdout, "%s (%d songs)\n", p.Name, len(songs))
		if p.Description != "" {
			fmt.Fprintln(stdout, p.Description)
		}
		list.RenderSongs(stdout, songs, p.ID)
		return nil
	}

	playlists := a.Library.Playlists()
	if params.JSON {
		return common.PrintJSON(stdout, playlists)
	}
	if len(playlists) == 0 {
		fmt.Fprintln(stdout, "No playlists yet")
		fmt.Fprintln(stdout, "\nCreate one with: jukebox playlist create <name> [songs...]")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Songs", "Description", "ID"})
	for _, p := range playlists {
		t.AppendRow(table.Row{p.Name, len(p.SongURLs), common.Truncate(p.Description, 40), p.ID})
	}
	t.Render()
	return nil
}

type CreateParams struct {
	Name        string   `pos:"true" help:"Playlist name."`
	Songs       []string `pos:"true" optional:"true" help:"Songs to start with (urls or titles)."`
	Description string   `short:"d" optional:"true" help:"Playlist description."`
	Catalog     string   `optional:"true" help:"Directory holding an alternative catalog."`
}

func CreateCmd() *cobra.Command {
	return boa.CmdT[CreateParams]{
		Use:         "create <name> [songs...]",
		Short:       "Create a playlist",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *CreateParams, cmd *cobra.Command, args []string) {
			run("create", func() error { return RunCreate(params, os.Stdout) })
		},
	}.ToCobra()
}

func RunCreate(params *CreateParams, stdout io.Writer) error {
	a, err := open(params.Catalog, stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	urls, err := resolveURLs(a, params.Songs)
	if err != nil {
		return err
	}
	_, err = a.CreatePlaylist(params.Name, params.Description, urls)
	return err
}

type AddParams struct {
	Playlist string   `pos:"true" help:"Playlist name or id."`
	Songs    []string `pos:"true" help:"Songs to add (urls or titles)."`
	Catalog  string   `optional:"true" help:"Directory holding an alternative catalog."`
}

func AddCmd() *cobra.Command {
	return boa.CmdT[AddParams]{
		Use:         "add <playlist> <songs...>",
		Short:       "Add songs to a playlist",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *AddParams, cmd *cobra.Command, args []string) {
			run("add", func() error { return RunAdd(params, os.Stdout) })
		},
	}.ToCobra()
}

func RunAdd(params *AddParams, stdout io.Writer) error {
	a, err := open(params.Catalog, stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := find(a, params.Playlist)
	if err != nil {
		return err
	}
	urls, err := resolveURLs(a, params.Songs)
	if err != nil {
		return err
	}
	_, err = a.AddToPlaylist(p.ID, urls)
	return err
}

type RemoveParams struct {
	Playlist string `pos:"true" help:"Playlist name or id."`
	Song     string `pos:"true" help:"Song to remove (url or title)."`
	Catalog  string `optional:"true" help:"Directory holding an alternative catalog."`
}

func RemoveCmd() *cobra.Command {
	return boa.CmdT[RemoveParams]{
		Use:         "remove <playlist> <song>",
		Aliases:     []string{"rm"},
		Short:       "Remove a song from a playlist",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *RemoveParams, cmd *cobra.Command, args []string) {
			run("remove", func() error { return RunRemove(params, os.Stdout) })
		},
	}.ToCobra()
}

func RunRemove(params *RemoveParams, stdout io.Writer) error {
	a, err := open(params.Catalog, stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := find(a, params.Playlist)
	if err != nil {
		return err
	}
	song, err := a.Resolve(params.Song)
	if err != nil {
		return err
	}
	return a.RemoveFromPlaylist(p.ID, song.URL)
}

type MoveParams struct {
	Playlist string `pos:"true" help:"Playlist name or id."`
	From     int    `pos:"true" help:"Current position of the song (1-based)."`
	To       int    `pos:"true" help:"New position of the song (1-based)."`
}

func MoveCmd() *cobra.Command {
	return boa.CmdT[MoveParams]{
		Use:         "move <playlist> <from> <to>",
		Short:       "Move a song within a playlist",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *MoveParams, cmd *cobra.Command, args []string) {
			run("move", func() error { return RunMove(params, os.Stdout) })
		},
	}.ToCobra()
}

func RunMove(params *MoveParams, stdout io.Writer) error {
	a, err := app.Open("", nil)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := find(a, params.Playlist)
	if err != nil {
		return err
	}
	if err := a.Library.ReorderPlaylistSongs(p.ID, params.From-1, params.To-1); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Moved song %d to position %d in \"%s\"\n", params.From, params.To, p.Name)
	return nil
}

type RenameParams struct {
	Playlist    string `pos:"true" help:"Playlist name or id."`
	Name        string `pos:"true" help:"New name."`
	Description string `short:"d" optional:"true" help:"New description. Keeps the current one when omitted."`
}

func RenameCmd() *cobra.Command {
	return boa.CmdT[RenameParams]{
		Use:         "rename <playlist> <name>",
		Short:       "Rename a playlist",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *RenameParams, cmd *cobra.Command, args []string) {
			run("rename", func() error { return RunRename(params, os.Stdout) })
		},
	}.ToCobra()
}

func RunRename(params *RenameParams, stdout io.Writer) error {
	a, err := open("", stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := find(a, params.Playlist)
	if err != nil {
		return err
	}
	desc := p.Description
	if params.Description != "" {
		desc = params.Description
	}
	return a.UpdatePlaylist(p.ID, params.Name, desc)
}

type DeleteParams struct {
	Playlist string `pos:"true" help:"Playlist name or id."`
}

func DeleteCmd() *cobra.Command {
	return boa.CmdT[DeleteParams]{
		Use:         "delete <playlist>",
		Short:       "Delete a playlist",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *DeleteParams, cmd *cobra.Command, args []string) {
			run("delete", func() error { return RunDelete(params, os.Stdout) })
		},
	}.ToCobra()
}

func RunDelete(params *DeleteParams, stdout io.Writer) error {
	a, err := open("", stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := find(a, params.Playlist)
	if err != nil {
		return err
	}
	return a.DeletePlaylist(p.ID)
}
