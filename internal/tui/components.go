package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// keyHint pairs a key label with the action it triggers, e.g. {"r", "retry"}.
type keyHint struct {
	key    string
	action string
}

// renderKeyHints joins hints into the "key: action • key: action" line shown
// under panels and modals.
func renderKeyHints(hints ...keyHint) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		if h.key == "" {
			parts = append(parts, h.action)
			continue
		}
		parts = append(parts, h.key+": "+h.action)
	}
	return renderHelp(strings.Join(parts, " • "))
}

// renderPosition shows where the cursor sits in a deck of total cards.
func renderPosition(cursor, total int) string {
	if total <= 0 {
		return renderMuted("empty")
	}
	return renderMuted(fmt.Sprintf("%d / %d", cursor+1, total))
}

// renderDeckHeader is the category title followed by the card position.
func renderDeckHeader(title string, cursor, total int) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		TitleStyle.Render(title),
		" ",
		renderPosition(cursor, total),
	)
}

// renderPanel stacks rows in the middle of a width x height box. Loading,
// error and confirm screens are all panels.
func renderPanel(width, height int, rows ...string) string {
	return renderCentered(width, height, lipgloss.JoinVertical(lipgloss.Center, rows...))
}

// renderParagraph wraps body text to at most width cells, centered.
func renderParagraph(text string, width int) string {
	return lipgloss.NewStyle().
		Foreground(TextColor).
		Width(max(width, 1)).
		Align(lipgloss.Center).
		Render(text)
}

// renderSearchBox draws the search heading over the framed query input. The
// frame lights up while the input has focus.
func renderSearchBox(inputView string, focused bool, inputWidth, width int) string {
	borderColor := MutedColor
	if focused {
		borderColor = AccentColor
	}
	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(inputWidth + 4).
		Render(inputView)
	return lipgloss.JoinVertical(lipgloss.Top,
		HeaderStyle.Render(truncateEnd("› search saved", width-2)),
		frame,
	)
}

func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}
