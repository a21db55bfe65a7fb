package htmltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderLists_Unordered(t *testing.T) {
	t.Run("items become bullet lines in source order", func(t *testing.T) {
		assert.Equal(t, "  • One\n  • Two",
			Render("<ul><li>One</li><li>Two</li></ul>", nil))
	})

	t.Run("bullet indent is configurable", func(t *testing.T) {
		opts := DefaultOptions()
		opts.BulletIndent = 4
		assert.Equal(t, "    • One\n    • Two",
			Render("<ul><li>One</li><li>Two</li></ul>", &opts))
	})

	t.Run("attributes on list tags are ignored", func(t *testing.T) {
		assert.Equal(t, "  • Item",
			Render(`<ul style="margin:0"><li class="x">Item</li></ul>`, nil))
	})

	t.Run("nested lists flatten to one level", func(t *testing.T) {
		assert.Equal(t, "  • a\n  • b",
			Render("<ul><li>a<ul><li>b</li></ul></li></ul>", nil))
	})
}

func TestRenderLists_Ordered(t *testing.T) {
	t.Run("items are numbered from one", func(t *testing.T) {
		assert.Equal(t, "  1. First\n  2. Second",
			Render("<ol><li>First</li><li>Second</li></ol>", nil))
	})

	t.Run("numbering resets for each list", func(t *testing.T) {
		assert.Equal(t, "  1. A\n  2. B\n  1. C",
			Render("<ol><li>A</li><li>B</li></ol><ol><li>C</li></ol>", nil))
	})

	t.Run("list indent is configurable", func(t *testing.T) {
		opts := DefaultOptions()
		opts.ListIndent = 0
		assert.Equal(t, "1. A\n2. B",
			Render("<ol><li>A</li><li>B</li></ol>", &opts))
	})

	t.Run("unclosed ordered list falls back to bullets", func(t *testing.T) {
		assert.Equal(t, "  • A", Render("<ol><li>A</li>", nil))
	})
}
