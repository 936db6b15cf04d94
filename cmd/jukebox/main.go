package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/backup"
	"github.com/gigurra/jukebox/cmd/comment"
	"github.com/gigurra/jukebox/cmd/config"
	"github.com/gigurra/jukebox/cmd/list"
	"github.com/gigurra/jukebox/cmd/moments"
	"github.com/gigurra/jukebox/cmd/open"
	"github.com/gigurra/jukebox/cmd/play"
	"github.com/gigurra/jukebox/cmd/playlist"
	"github.com/gigurra/jukebox/cmd/probe"
	"github.com/gigurra/jukebox/cmd/serve"
	"github.com/gigurra/jukebox/cmd/share"
	"github.com/gigurra/jukebox/cmd/stats"
	"github.com/gigurra/jukebox/cmd/views"
	"github.com/gigurra/jukebox/cmd/vote"
	"github.com/spf13/cobra"
)

// Command group IDs
const (
	groupPlayback = "playback"
	groupLibrary  = "library"
	groupSocial   = "social"
	groupData     = "data"
)

// withGroup sets the GroupID on a command and returns it
func withGroup(cmd *cobra.Command, group string) *cobra.Command {
	cmd.GroupID = group
	return cmd
}

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "jukebox",
		Short:   "A music jukebox for the terminal",
		Version: appVersion(),
		Groups: []*cobra.Group{
			{ID: groupPlayback, Title: "Playback:"},
			{ID: groupLibrary, Title: "Library:"},
			{ID: groupSocial, Title: "Social:"},
			{ID: groupData, Title: "Data & Settings:"},
		},
		SubCmds: []*cobra.Command{
			// Playback
			withGroup(play.Cmd(), groupPlayback),
			withGroup(serve.Cmd(), groupPlayback),
			withGroup(open.Cmd(), groupPlayback),

			// Library
			withGroup(list.Cmd(), groupLibrary),
			withGroup(views.Cmd(), groupLibrary),
			withGroup(playlist.Cmd(), groupLibrary),
			withGroup(stats.Cmd(), groupLibrary),

			// Social
			withGroup(vote.Cmd(), groupSocial),
			withGroup(comment.Cmd(), groupSocial),
			withGroup(moments.Cmd(), groupSocial),
			withGroup(share.Cmd(), groupSocial),

			// Data & Settings
			withGroup(config.Cmd(), groupData),
			withGroup(backup.ExportCmd(), groupData),
			withGroup(backup.ImportCmd(), groupData),
			withGroup(probe.Cmd(), groupData),
		},
	}.Run()
}

func appVersion() string {
	bi, hasBuilInfo := debug.ReadBuildInfo()
	if !hasBuilInfo {
		return "unknown-(no build info)"
	}

	versionString := bi.Main.Version
	if versionString == "" {
		versionString = "unknown-(no version)"
	}

	return versionString
}
