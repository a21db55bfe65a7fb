package htmltext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapText(t *testing.T) {
	t.Run("splits at the configured width", func(t *testing.T) {
		out := wrapText("aaaaaaaaaa bbbbbbbbbb", 10)
		assert.Equal(t, "aaaaaaaaaa\nbbbbbbbbbb", out)
		for _, line := range strings.Split(out, "\n") {
			assert.LessOrEqual(t, len([]rune(line)), 10)
		}
	})

	t.Run("keeps lines at or under the width untouched", func(t *testing.T) {
		assert.Equal(t, "short line", wrapText("short line", 10))
	})

	t.Run("never breaks a word longer than the width", func(t *testing.T) {
		assert.Equal(t, "supercalifragilistic", wrapText("supercalifragilistic", 10))
	})

	t.Run("keeps indentation as a hanging prefix", func(t *testing.T) {
		out := wrapText("  bullet point text that is long", 12)
		lines := strings.Split(out, "\n")
		assert.Equal(t, []string{"  bullet", "  point text", "  that is", "  long"}, lines)
	})

	t.Run("never wraps quoted lines", func(t *testing.T) {
		in := "> " + strings.Repeat("q ", 30)
		assert.Equal(t, in, wrapText(in, 10))
	})

	t.Run("never wraps table rows", func(t *testing.T) {
		in := "| one | two | three | four | five |"
		assert.Equal(t, in, wrapText(in, 10))
	})

	t.Run("measures width in runes", func(t *testing.T) {
		in := strings.Repeat("글", 5) + " " + strings.Repeat("글", 5)
		assert.Equal(t, strings.Repeat("글", 5)+"\n"+strings.Repeat("글", 5), wrapText(in, 5))
	})
}

func TestRender_WordWrap(t *testing.T) {
	t.Run("wraps through the full pipeline", func(t *testing.T) {
		opts := DefaultOptions()
		opts.WordWrap = 10
		assert.Equal(t, "aaaaaaaaaa\nbbbbbbbbbb",
			Render("<p>aaaaaaaaaa bbbbbbbbbb</p>", &opts))
	})

	t.Run("zero disables wrapping", func(t *testing.T) {
		opts := DefaultOptions()
		opts.WordWrap = 0
		long := strings.Repeat("a ", 100) + "end"
		assert.Equal(t, long, Render("<p>"+long+"</p>", &opts))
	})
}
