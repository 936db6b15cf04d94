package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/settings"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Params struct {
	Set   []string `pos:"true" optional:"true" help:"Settings to change, as key=value (e.g. volume=0.5 repeat=one crossfade=true)."`
	Reset bool     `help:"Restore every setting to its default."`
	JSON  bool     `long:"json" help:"Output as JSON."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "config [key=value...]",
		Short: "Show or change player settings",
		Long: `Show or change player settings.

Keys are the names shown by 'jukebox config'. Short aliases are accepted:
muted, repeat, shuffle, autoplay, crossfade, crossfade-duration, rate.
Values are JSON literals where that parses (true, 0.5, {"preset":"rock"}),
otherwise plain strings. Numbers are clamped to their valid ranges.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "config: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

var aliases = map[string]string{
	"muted":              "isMuted",
	"mute":               "isMuted",
	"repeat":             "repeatMode",
	"shuffle":            "isShuffled",
	"shuffled":           "isShuffled",
	"autoplay":           "isAutoplayEnabled",
	"crossfade":          "crossfadeEnabled",
	"crossfade-duration": "crossfadeDuration",
	"rate":               "playbackRate",
	"visualizer":         "visualizerEnabled",
}

// ParsePatch builds a settings patch from key=value pairs. Unknown keys are
// rejected.
func ParsePatch(pairs []string) (settings.Patch, error) {
	fields := map[string]json.RawMessage{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return settings.Patch{}, fmt.Errorf("invalid setting %q (want key=value)", pair)
		}
		if full, ok := aliases[key]; ok {
			key = full
		}
		raw := json.RawMessage(value)
		if !json.Valid(raw) {
			quoted, err := json.Marshal(value)
			if err != nil {
				return settings.Patch{}, err
			}
			raw = quoted
		}
		fields[key] = raw
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return settings.Patch{}, err
	}
	var p settings.Patch
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return settings.Patch{}, fmt.Errorf("invalid settings: %w", err)
	}
	if p.RepeatMode != nil {
		if _, err := settings.ParseRepeatMode(string(*p.RepeatMode)); err != nil {
			return settings.Patch{}, err
		}
	}
	return p, nil
}

// defaultsPatch is a patch that restores every patchable setting.
func defaultsPatch() (settings.Patch, error) {
	data, err := json.Marshal(settings.Default())
	if err != nil {
		return settings.Patch{}, err
	}
	var p settings.Patch
	err = json.Unmarshal(data, &p)
	return p, err
}

func Run(params *Params, stdout io.Writer) error {
	var patch settings.Patch
	var err error
	if params.Reset {
		patch, err = defaultsPatch()
	} else {
		patch, err = ParsePatch(params.Set)
	}
	if err != nil {
		return err
	}

	a, err := app.Open("", nil)
	if err != nil {
		return err
	}
	defer a.Close()

	current := a.Jukebox.Settings()
	if params.Reset || len(params.Set) > 0 {
		current = a.Jukebox.UpdateSettings(patch)
	}
	return render(stdout, current, params.JSON)
}

func render(w io.Writer, s settings.Settings, asJSON bool) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if asJSON {
		fmt.Fprintln(w, string(data))
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Setting", "Value"})
	for _, k := range keys {
		var compact bytes.Buffer
		if err := json.Compact(&compact, fields[k]); err != nil {
			return err
		}
		t.AppendRow(table.Row{k, strings.Trim(compact.String(), `"`)})
	}
	t.Render()
	return nil
}
