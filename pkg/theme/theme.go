// Package theme renders classified text with terminal colors.
package theme

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/Veraticus/colorout/pkg/types"
)

// DefaultColors maps tags to ANSI colors that read well on light and dark
// backgrounds.
var DefaultColors = map[types.ClassificationTag]string{
	types.BuildHeader: "2",  // green
	types.Error:       "1",  // red
	types.Warning:     "3",  // yellow
	types.Information: "4",  // blue
	types.Custom1:     "5",  // magenta
	types.Custom2:     "6",  // cyan
	types.Custom3:     "13", // bright magenta
	types.Custom4:     "14", // bright cyan
}

// Theme colors text by classification
type Theme struct {
	output *termenv.Output
	colors map[types.ClassificationTag]termenv.Color
	bold   map[types.ClassificationTag]bool
}

// New creates a theme writing to w. mode is "auto", "always" or "never";
// overrides replace entries of DefaultColors and accept ANSI numbers or
// "#rrggbb".
func New(w io.Writer, mode string, overrides map[types.ClassificationTag]string) *Theme {
	output := termenv.NewOutput(w, termenv.WithProfile(DetectProfile(w, mode)))

	t := &Theme{
		output: output,
		colors: make(map[types.ClassificationTag]termenv.Color),
		bold:   map[types.ClassificationTag]bool{types.BuildHeader: true},
	}
	for tag, c := range DefaultColors {
		t.colors[tag] = output.Color(c)
	}
	for tag, c := range overrides {
		if color := output.Color(c); color != nil {
			t.colors[tag] = color
		}
	}
	return t
}

// Enabled reports whether the theme emits any escape sequences
func (t *Theme) Enabled() bool {
	return t.output.Profile != termenv.Ascii
}

// Render returns text styled for tag. PlainText and disabled themes return
// text unchanged.
func (t *Theme) Render(tag types.ClassificationTag, text string) string {
	if text == "" || tag == types.PlainText || !t.Enabled() {
		return text
	}
	color, ok := t.colors[tag]
	if !ok {
		return text
	}
	style := t.output.String(text).Foreground(color)
	if t.bold[tag] {
		style = style.Bold()
	}
	return style.String()
}

// DetectProfile picks the color profile for w under mode ("auto", "always"
// or "never")
func DetectProfile(w io.Writer, mode string) termenv.Profile {
	switch mode {
	case "never":
		return termenv.Ascii
	case "always":
		profile := termenv.NewOutput(w, termenv.WithTTY(true)).EnvColorProfile()
		if profile == termenv.Ascii {
			profile = termenv.ANSI
		}
		return profile
	}

	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return termenv.Ascii
	}
	return termenv.NewOutput(w).EnvColorProfile()
}
