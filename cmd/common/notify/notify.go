// Package notify delivers player toasts to the terminal and, optionally, to
// the desktop notification center.
package notify

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gen2brain/beeep"
	"github.com/gigurra/jukebox/cmd/common/jukebox"
)

const appName = "Jukebox"

// Notifier forwards toast events.
type Notifier struct {
	out     io.Writer
	desktop bool
	send    func(title, message string) error
}

// New creates a Notifier writing to out. A nil out skips terminal output.
func New(out io.Writer, desktop bool) *Notifier {
	beeep.AppName = appName
	return &Notifier{
		out:     out,
		desktop: desktop,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Handle is a jukebox subscriber.
func (n *Notifier) Handle(e jukebox.Event) {
	switch e.Kind {
	case jukebox.EventToast:
		n.Toast(e.Message)
	case jukebox.EventVotePrompt:
		if e.Song != nil && n.desktop {
			n.sendDesktop(fmt.Sprintf("How was \"%s\"? Rate it with up or down.", e.Song.Title))
		}
	}
}

// Toast shows a single message.
func (n *Notifier) Toast(msg string) {
	if n.out != nil {
		fmt.Fprintln(n.out, msg)
	}
	if n.desktop {
		n.sendDesktop(msg)
	}
}

func (n *Notifier) sendDesktop(msg string) {
	if err := n.send(appName, msg); err != nil {
		slog.Warn("desktop notification failed", "err", err)
	}
}
