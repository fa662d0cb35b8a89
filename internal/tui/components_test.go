package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestRenderKeyHints(t *testing.T) {
	got := ansi.Strip(renderKeyHints(
		keyHint{"", "3 results"},
		keyHint{"Tab", "search box"},
		keyHint{"Esc", "back"},
	))
	assert.Equal(t, "3 results • Tab: search box • Esc: back", got)
	assert.Empty(t, ansi.Strip(renderKeyHints()))
}

func TestRenderPosition(t *testing.T) {
	assert.Equal(t, "empty", ansi.Strip(renderPosition(0, 0)))
	assert.Equal(t, "1 / 3", ansi.Strip(renderPosition(0, 3)))
	assert.Equal(t, "3 / 3", ansi.Strip(renderPosition(2, 3)))

	header := ansi.Strip(renderDeckHeader("World", 4, 10))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(header), "World"))
	assert.Contains(t, header, "5 / 10")
}

func TestRenderPanelFillsBox(t *testing.T) {
	out := renderPanel(40, 9, "title", "", "body")
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 9)
	for _, l := range lines {
		assert.Equal(t, 40, ansi.StringWidth(l))
	}
	assert.Contains(t, out, "title")
}

func TestRenderSearchBoxWidth(t *testing.T) {
	out := renderSearchBox("query", true, 20, 80)
	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[0], "search saved")
	// heading plus a three-line rounded frame
	assert.Len(t, lines, 4)
	frameWidth := ansi.StringWidth(lines[1])
	assert.GreaterOrEqual(t, frameWidth, 24)
	for _, l := range lines[1:] {
		assert.Equal(t, frameWidth, ansi.StringWidth(l))
	}
}
