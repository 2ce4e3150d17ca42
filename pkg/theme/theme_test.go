package theme

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/colorout/pkg/types"
)

func TestTheme_Modes(t *testing.T) {
	tests := []struct {
		name        string
		mode        string
		wantEnabled bool
	}{
		{name: "never", mode: "never", wantEnabled: false},
		{name: "always", mode: "always", wantEnabled: true},
		{name: "auto on a buffer", mode: "auto", wantEnabled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := New(&bytes.Buffer{}, tt.mode, nil)
			assert.Equal(t, tt.wantEnabled, th.Enabled())

			out := th.Render(types.Error, "boom")
			assert.Contains(t, out, "boom")
			assert.Equal(t, tt.wantEnabled, strings.Contains(out, "\x1b["))
		})
	}
}

func TestTheme_PlainTextUnchanged(t *testing.T) {
	th := New(&bytes.Buffer{}, "always", nil)

	assert.Equal(t, "hello", th.Render(types.PlainText, "hello"))
	assert.Equal(t, "", th.Render(types.Error, ""))
}

func TestTheme_EveryTagStyled(t *testing.T) {
	th := New(&bytes.Buffer{}, "always", nil)

	for _, tag := range types.AllTags() {
		if tag == types.PlainText {
			continue
		}
		out := th.Render(tag, "x")
		assert.NotEqual(t, "x", out, "tag %s is not styled", tag)
		assert.True(t, strings.HasSuffix(out, "\x1b[0m"), "tag %s output not reset", tag)
	}
}

func TestTheme_Overrides(t *testing.T) {
	base := New(&bytes.Buffer{}, "always", nil)
	custom := New(&bytes.Buffer{}, "always", map[types.ClassificationTag]string{
		types.Warning: "5",
		types.Error:   "not-a-color",
	})

	assert.NotEqual(t, base.Render(types.Warning, "w"), custom.Render(types.Warning, "w"))
	// invalid override keeps the default
	assert.Equal(t, base.Render(types.Error, "e"), custom.Render(types.Error, "e"))
}

func TestDetectProfile(t *testing.T) {
	t.Setenv("NO_COLOR", "")

	assert.Equal(t, termenv.Ascii, DetectProfile(&bytes.Buffer{}, "never"))
	assert.NotEqual(t, termenv.Ascii, DetectProfile(&bytes.Buffer{}, "always"))
	assert.Equal(t, termenv.Ascii, DetectProfile(&bytes.Buffer{}, "auto"))

	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, termenv.Ascii, DetectProfile(&bytes.Buffer{}, "auto"))
}
