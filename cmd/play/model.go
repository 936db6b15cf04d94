package play

import (
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/jukebox"
	"github.com/gigurra/jukebox/cmd/common/settings"
	"github.com/gigurra/jukebox/cmd/common/share"
	"github.com/gigurra/jukebox/cmd/common/social"
)

var (
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	playingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))  // Green
	favoriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")) // Pink
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	searchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	toastStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	badgeOn       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	badgeOff      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const (
	toastDuration = 3 * time.Second
	seekStep      = 5.0
	volumeStep    = 0.1
	eventBuffer   = 32
)

type tickMsg time.Time

type eventMsg jukebox.Event

type panel int

const (
	panelSongs panel = iota
	panelQueue
	panelViews
)

func (p panel) String() string {
	switch p {
	case panelQueue:
		return "Up Next"
	case panelViews:
		return "Views"
	default:
		return "Songs"
	}
}

var windows = []social.Window{social.AllTime, social.ThisWeek, social.Today}

type model struct {
	app    *app.App
	events chan jukebox.Event

	snap  jukebox.Snapshot
	songs []catalog.Song
	views []catalog.ViewInfo

	panel  panel
	cursor int
	width  int
	height int

	toast     string
	toastTime time.Time

	helpView      bool
	searchInput   string
	searchFocused bool
}

func newModel(a *app.App) model {
	m := model{
		app:         a,
		events:      make(chan jukebox.Event, eventBuffer),
		searchInput: a.Query().Filter.Search,
	}
	return m.refresh()
}

// forward hands controller events to the UI without ever blocking the
// controller. Snapshots are polled on every tick instead.
func (m model) forward(e jukebox.Event) {
	if e.Kind == jukebox.EventSnapshot {
		return
	}
	select {
	case m.events <- e:
	default:
	}
}

func waitForEvent(ch chan jukebox.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForEvent(m.events), tea.EnterAltScreen)
}

func tickCmd() tea.Cmd {
	return tea.Tick(jukebox.ClockInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) refresh() model {
	m.snap = m.app.Jukebox.Snapshot()
	if songs, err := m.app.Playlist(); err == nil {
		m.songs = songs
	} else {
		m.songs = nil
		m = m.showToast(err.Error())
	}
	m.views = m.app.Views()
	if n := m.itemCount(); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
	return m
}

func (m model) showToast(msg string) model {
	m.toast = msg
	m.toastTime = time.Now()
	return m
}

func (m model) itemCount() int {
	switch m.panel {
	case panelQueue:
		return len(m.snap.Queue)
	case panelViews:
		return len(m.views)
	default:
		return len(m.songs)
	}
}

// selectedSong is the song under the cursor in the songs or queue panel.
func (m model) selectedSong() (catalog.Song, bool) {
	var list []catalog.Song
	switch m.panel {
	case panelSongs:
		list = m.songs
	case panelQueue:
		list = m.snap.Queue
	}
	if m.cursor < 0 || m.cursor >= len(list) {
		return catalog.Song{}, false
	}
	return list[m.cursor], true
}

// targetSong is what rating and marking act on: the pending vote prompt's
// song, else the current song.
func (m model) targetSong() *catalog.Song {
	if m.snap.VotePrompt != nil {
		return m.snap.VotePrompt
	}
	return m.snap.Song
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.helpView {
			m.helpView = false
			return m, nil
		}
		if m.app.PendingShared() != nil {
			return m.updateShared(msg), nil
		}
		if m.searchFocused {
			return m.updateSearch(msg), nil
		}
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.updateKey(msg).refresh(), nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if m.toast != "" && time.Since(m.toastTime) > toastDuration {
			m.toast = ""
		}
		return m.refresh(), tickCmd()

	case eventMsg:
		switch msg.Kind {
		case jukebox.EventToast:
			m = m.showToast(msg.Message)
		case jukebox.EventVotePrompt:
			m = m.refresh()
		}
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m model) updateShared(msg tea.KeyMsg) model {
	switch msg.String() {
	case "y", "Y", "enter":
		if err := m.app.ConfirmShared(); err != nil {
			m = m.showToast(err.Error())
		}
	case "n", "N", "esc", "q":
		m.app.DismissShared()
	}
	return m.refresh()
}

func (m model) updateSearch(msg tea.KeyMsg) model {
	switch msg.String() {
	case "esc":
		if m.searchInput != "" {
			m.searchInput = ""
			m = m.applySearch()
		} else {
			m.searchFocused = false
		}
	case "enter":
		m.searchFocused = false
	case "backspace":
		if r := []rune(m.searchInput); len(r) > 0 {
			m.searchInput = string(r[:len(r)-1])
			m = m.applySearch()
		}
	case "ctrl+u":
		m.searchInput = ""
		m = m.applySearch()
	default:
		switch msg.Type {
		case tea.KeyRunes:
			m.searchInput += string(msg.Runes)
			m = m.applySearch()
		case tea.KeySpace:
			m.searchInput += " "
			m = m.applySearch()
		}
	}
	return m.refresh()
}

func (m model) applySearch() model {
	f := m.app.Query().Filter
	f.Search = m.searchInput
	if err := m.app.SetFilter(f); err != nil {
		return m.showToast(err.Error())
	}
	m.cursor = 0
	return m
}

func (m model) updateKey(msg tea.KeyMsg) model {
	jb := m.app.Jukebox
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.itemCount()-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(0, m.itemCount()-1)
	case "tab":
		m.panel = (m.panel + 1) % 3
		m.cursor = 0
	case "shift+tab":
		m.panel = (m.panel + 2) % 3
		m.cursor = 0
	case "h", "?":
		m.helpView = true
	case "/":
		m.panel = panelSongs
		m.searchFocused = true

	case "enter":
		return m.activate()
	case " ":
		jb.TogglePlayPause()
	case "n":
		jb.Next()
	case "p":
		jb.Prev()
	case "left":
		jb.Seek(max(0, m.snap.Position-seekStep))
	case "right":
		jb.Seek(m.snap.Position + seekStep)
	case "]":
		jb.SetVolume(min(1, m.snap.Volume+volumeStep))
	case "[":
		jb.SetVolume(max(0, m.snap.Volume-volumeStep))
	case "m":
		jb.SetMuted(!m.snap.Muted)
	case "s":
		jb.ToggleShuffle()
	case "r":
		jb.CycleRepeatMode()
	case "a":
		jb.SetAutoplay(!m.snap.Autoplay)
		if m.snap.Autoplay {
			m = m.showToast("Autoplay Off")
		} else {
			m = m.showToast("Autoplay On")
		}
	case "x":
		jb.SetCrossfade(!m.snap.CrossfadeEnabled, m.snap.CrossfadeDuration)
		if m.snap.CrossfadeEnabled {
			m = m.showToast("Crossfade Off")
		} else {
			m = m.showToast(fmt.Sprintf("Crossfade On (%gs)", m.snap.CrossfadeDuration))
		}
	case "P":
		if err := m.app.PlayView(); err != nil {
			m = m.showToast(err.Error())
		}

	case "f":
		if song, ok := m.selectedSong(); ok {
			m.app.ToggleFavorite(song.URL)
		} else if m.snap.Song != nil {
			m.app.ToggleFavorite(m.snap.Song.URL)
		}
	case "e":
		if song, ok := m.selectedSong(); ok && m.panel == panelSongs {
			jb.EnqueueNext([]catalog.Song{song})
		}
	case "E":
		if song, ok := m.selectedSong(); ok && m.panel == panelSongs {
			jb.AppendToQueue([]catalog.Song{song})
		}
	case "d", "delete":
		if song, ok := m.selectedSong(); ok && m.panel == panelQueue {
			jb.RemoveFromQueue(song.URL)
		}
	case "K", "shift+up":
		if m.panel == panelQueue && m.cursor > 0 {
			if err := jb.ReorderQueue(m.cursor, m.cursor-1); err == nil {
				m.cursor--
			}
		}
	case "J", "shift+down":
		if m.panel == panelQueue && m.cursor < len(m.snap.Queue)-1 {
			if err := jb.ReorderQueue(m.cursor, m.cursor+1); err == nil {
				m.cursor++
			}
		}
	case "c":
		if m.panel == panelQueue {
			jb.ClearQueue()
		}

	case "+":
		m = m.vote(social.Up)
	case "-":
		m = m.vote(social.Down)
	case "*":
		if m.snap.Song != nil {
			if m.app.MarkMoment(m.snap.Song.URL, m.snap.Position) {
				m = m.showToast("Moment marked at " + common.FormatTime(m.snap.Position))
			}
		}
	case "S":
		if m.snap.Song != nil {
			link, err := share.Link(share.DefaultBase, m.snap.Song.URL, int(m.snap.Position))
			if err != nil {
				m = m.showToast(err.Error())
			} else {
				m = m.showToast(link)
			}
		}
	case "o":
		m = m.cycleSort()
	case "w":
		m = m.cycleWindow()
	case "$":
		m.app.Spin(1)
	}
	return m
}

// activate is enter: play the selected song, or switch to the selected view.
func (m model) activate() model {
	if m.panel == panelViews {
		if m.cursor < len(m.views) {
			if err := m.app.SelectView(m.views[m.cursor].ID); err != nil {
				return m.showToast(err.Error())
			}
			m.panel = panelSongs
			m.cursor = 0
		}
		return m
	}
	if song, ok := m.selectedSong(); ok {
		m.app.Jukebox.Select(song)
	}
	return m
}

func (m model) vote(dir social.Direction) model {
	target := m.targetSong()
	if target == nil {
		return m
	}
	m.app.Vote(target.URL, dir)
	if m.snap.VotePrompt != nil {
		m.app.Jukebox.DismissVotePrompt()
		return m.showToast("Thanks for rating!")
	}
	return m
}

func (m model) cycleSort() model {
	cur := m.app.Query().Sort
	next := catalog.SortModes[(slices.Index(catalog.SortModes, cur)+1)%len(catalog.SortModes)]
	if err := m.app.SetSort(next); err != nil {
		return m.showToast(err.Error())
	}
	return m.showToast("Sort: " + string(next))
}

func (m model) cycleWindow() model {
	cur := m.app.Query().Window
	next := windows[(slices.Index(windows, cur)+1)%len(windows)]
	if err := m.app.SetWindow(next); err != nil {
		return m.showToast(err.Error())
	}
	return m.showToast("Rating window: " + string(next))
}

func (m model) View() string {
	if m.helpView {
		return renderHelpView()
	}

	width := m.width
	if width < 20 {
		width = 90
	}

	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(titleStyle.Render("♪ Jukebox"))
	b.WriteString(helpStyle.Render("  " + m.app.ViewName(m.app.Query().View)))
	b.WriteString("\n\n")
	b.WriteString(m.renderNowPlaying(width))
	b.WriteString("\n")

	b.WriteString("  ")
	for p := panelSongs; p <= panelViews; p++ {
		label := fmt.Sprintf(" %s ", p)
		if p == panelQueue {
			label = fmt.Sprintf(" %s (%d) ", p, len(m.snap.Queue))
		}
		if p == m.panel {
			b.WriteString(selectedStyle.Render(label))
		} else {
			b.WriteString(headerStyle.Render(label))
		}
	}
	if m.searchFocused {
		b.WriteString(searchStyle.Render("  Search: [" + m.searchInput + "_]"))
	} else if m.searchInput != "" {
		b.WriteString(searchStyle.Render("  Search: [" + m.searchInput + "]"))
	}
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("  " + strings.Repeat("─", min(width-4, 90))))
	b.WriteString("\n")

	b.WriteString(m.renderList(width))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	b.WriteString("\n")
	return b.String()
}

func (m model) renderNowPlaying(width int) string {
	var b strings.Builder
	s := m.snap
	if s.Song == nil {
		b.WriteString(helpStyle.Render("  Nothing playing. Press enter on a song or P to play this view."))
		b.WriteString("\n")
	} else {
		icon := "⏸"
		switch s.State {
		case jukebox.StatePlaying:
			icon = "▶"
		case jukebox.StateLoading:
			icon = "…"
		}
		b.WriteString("  " + playingStyle.Render(icon+" "+common.Truncate(s.Song.Title, width-8)))
		b.WriteString("\n  ")
		barWidth := min(width-20, 60)
		b.WriteString(progressBar(s.Position, s.Duration, barWidth))
		b.WriteString(fmt.Sprintf(" %s / %s", common.FormatTime(s.Position), formatDuration(s.Duration)))
		b.WriteString("\n")
	}

	volume := fmt.Sprintf("vol %d%%", int(s.Volume*100+0.5))
	if s.Muted {
		volume = "muted"
	}
	b.WriteString("  " + helpStyle.Render(volume) + "  ")
	b.WriteString(badge("shuffle", s.Shuffled) + " ")
	b.WriteString(badge("repeat: "+s.RepeatMode.Label(), s.RepeatMode != settings.RepeatOff) + " ")
	b.WriteString(badge("autoplay", s.Autoplay) + " ")
	b.WriteString(badge(fmt.Sprintf("crossfade %gs", s.CrossfadeDuration), s.CrossfadeEnabled))
	b.WriteString("\n")
	return b.String()
}

func badge(label string, on bool) string {
	if on {
		return badgeOn.Render("[" + label + "]")
	}
	return badgeOff.Render("[" + label + "]")
}

func progressBar(position, duration float64, width int) string {
	if width < 4 {
		return ""
	}
	filled := 0
	if duration > 0 {
		filled = min(width, int(position/duration*float64(width)))
	}
	return playingStyle.Render(strings.Repeat("━", filled)) + helpStyle.Render(strings.Repeat("─", width-filled))
}

func formatDuration(d float64) string {
	if d <= 0 {
		return "--:--"
	}
	return common.FormatTime(d)
}

func (m model) visibleRows() int {
	if m.height <= 0 {
		return 15
	}
	return max(3, m.height-12)
}

func (m model) renderList(width int) string {
	var b strings.Builder
	n := m.itemCount()
	if n == 0 {
		switch m.panel {
		case panelQueue:
			b.WriteString(helpStyle.Render("  Queue is empty. Press e or E on a song to add it."))
		case panelSongs:
			if m.searchInput != "" {
				b.WriteString("  No matches for \"" + m.searchInput + "\"")
			} else {
				b.WriteString(helpStyle.Render("  No songs in this view."))
			}
		}
		b.WriteString("\n")
		return b.String()
	}

	rows := m.visibleRows()
	offset := 0
	if m.cursor >= rows {
		offset = m.cursor - rows + 1
	}
	end := min(n, offset+rows)

	for i := offset; i < end; i++ {
		row := m.renderRow(i, width)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(row))
		} else {
			b.WriteString(row)
		}
		b.WriteString("\n")
	}
	if end < n {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  … %d more", n-end)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) renderRow(i, width int) string {
	if m.panel == panelViews {
		v := m.views[i]
		mark := "  "
		if v.ID == m.app.Query().View {
			mark = "▶ "
		}
		return fmt.Sprintf("  %s%-40s %s", mark, common.Truncate(v.Name, 40), helpStyle.Render(v.Kind))
	}

	var song catalog.Song
	if m.panel == panelQueue {
		song = m.snap.Queue[i]
	} else {
		song = m.songs[i]
	}

	mark := "  "
	if m.snap.Song != nil && m.snap.Song.URL == song.URL {
		mark = playingStyle.Render("▶ ")
	}
	fav := " "
	if song.IsFavorite {
		fav = favoriteStyle.Render("♥")
	}
	extra := ""
	if m.app.Query().View == catalog.ViewNowPlaying {
		extra = fmt.Sprintf("  %d listening", song.Listeners)
	} else if song.PlayCount > 0 {
		extra = fmt.Sprintf("  %d plays", song.PlayCount)
	}
	titleWidth := max(10, min(width-30, 60))
	return fmt.Sprintf("  %s%s %-*s %6s%s", mark, fav, titleWidth, common.Truncate(song.Title, titleWidth), formatDuration(song.Duration), extra)
}

func (m model) renderFooter() string {
	if shared := m.app.PendingShared(); shared != nil {
		msg := fmt.Sprintf("  Play shared song \"%s\"", shared.Song.Title)
		if shared.Start > 0 {
			msg += " from " + share.Timestamp(shared.Start)
		}
		return promptStyle.Render(msg + "? [y/n]")
	}
	if p := m.snap.VotePrompt; p != nil {
		return promptStyle.Render(fmt.Sprintf("  How was \"%s\"? + thumbs up • - thumbs down", p.Title))
	}
	if m.toast != "" {
		return toastStyle.Render("  " + m.toast)
	}
	return helpStyle.Render("  ? help • tab panel • enter play • space pause • n/p next/prev • / search • q quit")
}

func renderHelpView() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("  Jukebox - Keyboard Shortcuts"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("  Navigation"))
	b.WriteString("\n")
	b.WriteString("    ↑/k ↓/j   Move cursor\n")
	b.WriteString("    tab       Switch between songs, up next and views\n")
	b.WriteString("    enter     Play song / open view\n")
	b.WriteString("    /         Search titles\n")
	b.WriteString("    o         Cycle sort mode\n")
	b.WriteString("    w         Cycle rating window (Highest Rated)\n")
	b.WriteString("    q         Quit\n")
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("  Playback"))
	b.WriteString("\n")
	b.WriteString("    space     Play / pause\n")
	b.WriteString("    n / p     Next / previous\n")
	b.WriteString("    ← / →     Seek 5 seconds\n")
	b.WriteString("    [ / ]     Volume down / up\n")
	b.WriteString("    m         Mute\n")
	b.WriteString("    s         Shuffle\n")
	b.WriteString("    r         Cycle repeat mode\n")
	b.WriteString("    a         Autoplay\n")
	b.WriteString("    x         Crossfade\n")
	b.WriteString("    P         Play the whole view\n")
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("  Queue"))
	b.WriteString("\n")
	b.WriteString("    e / E     Play next / add to end of queue\n")
	b.WriteString("    d         Remove from queue\n")
	b.WriteString("    K / J     Move queued song up / down\n")
	b.WriteString("    c         Clear queue\n")
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("  Social"))
	b.WriteString("\n")
	b.WriteString("    f         Toggle favorite\n")
	b.WriteString("    + / -     Vote up / down\n")
	b.WriteString("    *         Mark a moment\n")
	b.WriteString("    S         Show share link for the current position\n")
	b.WriteString("\n")

	b.WriteString(helpStyle.Render("  Press any key to close"))
	b.WriteString("\n")
	return b.String()
}
