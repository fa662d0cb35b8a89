package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/pager"
)

// renderDeck draws the card at the cursor, or two neighbouring cards
// side by side while the pager offset is non-zero.
func (a *App) renderDeck(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	cursor := a.pager.Cursor()
	shift := a.offsetCells(width)
	if shift == 0 {
		return a.renderCard(cursor, width, height)
	}

	// Pair up the two cards visible during the slide. While committing the
	// cursor already points at the incoming card.
	var left, right int
	switch {
	case a.pager.State() == pager.Committing && shift < 0:
		left, right = cursor-1, cursor
	case a.pager.State() == pager.Committing:
		left, right = cursor, cursor+1
	case shift < 0:
		left, right = cursor, cursor+1
	default:
		left, right = cursor-1, cursor
	}

	start := -shift
	if shift > 0 {
		start = width - shift
	}
	return slide(a.renderCard(left, width, height), a.renderCard(right, width, height), start, width)
}

// offsetCells converts the pager offset from px to terminal columns.
func (a *App) offsetCells(width int) int {
	cells := int(math.Round(a.pager.Offset() / a.cellWidth))
	return clamp(cells, -width, width)
}

// slide shows a width-wide window starting at column start over the two
// blocks placed next to each other.
func slide(left, right string, start, width int) string {
	ll := strings.Split(left, "\n")
	rl := strings.Split(right, "\n")
	n := max(len(ll), len(rl))

	out := make([]string, n)
	for i := 0; i < n; i++ {
		var l, r string
		if i < len(ll) {
			l = ll[i]
		}
		if i < len(rl) {
			r = rl[i]
		}
		joined := padRight(l, width) + padRight(r, width)
		out[i] = ansi.Truncate(ansi.TruncateLeft(joined, start, ""), width, "")
	}
	return strings.Join(out, "\n")
}

func padRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return ansi.Truncate(s, width, "")
}

// renderCard draws item i, or an empty slot when i is out of range.
func (a *App) renderCard(i, width, height int) string {
	style := CardStyle.
		Width(max(width-2, 0)).
		Height(max(height-2, 0)).
		MaxHeight(height)

	it, ok := a.items.At(i)
	if !ok {
		return lipgloss.NewStyle().Width(width).Height(height).Render("")
	}

	inner := max(width-8, 10)
	var rows []string

	var meta []string
	if it.SourceName != "" {
		meta = append(meta, SourceStyle.Render(truncateEnd(it.SourceName, inner/2)))
	}
	if it.PublishedAt != nil {
		meta = append(meta, TimeStyle.Render(feed.RelativeTime(it.PublishedAt, a.now())))
	}
	if len(meta) > 0 {
		rows = append(rows, strings.Join(meta, TimeStyle.Render(" • ")), "")
	}

	rows = append(rows, CardTitleStyle.Width(inner).Render(it.Title), "")

	if desc := strings.TrimSpace(it.Description); desc != "" {
		limit := a.cfg.UI.Article.MaxDescriptionLength
		if limit <= 0 {
			limit = 300
		}
		rows = append(rows, lipgloss.NewStyle().Foreground(TextColor).Width(inner).Render(truncateEnd(desc, limit)), "")
	}

	rows = append(rows, renderMuted(truncateMiddle(it.URL, inner)), "", a.savedBadge(it.URL))

	return style.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a *App) savedBadge(url string) string {
	switch {
	case a.sync.InFlight() && a.togglingURL == url:
		return UnsavedBadgeStyle.Render(a.spinner.View() + " working…")
	case a.sync.IsSaved(url):
		return SavedBadgeStyle.Render("★ saved")
	default:
		return UnsavedBadgeStyle.Render("☆ not saved")
	}
}
