package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return ""
	}
	bodyHeight := max(a.height-4, 1)

	var content string
	switch a.router.Current() {
	case ViewLoading:
		content = renderPanel(a.width, bodyHeight,
			GetCompactBanner(""),
			a.spinner.View()+" "+MsgLoadingCategory(a.category),
		)
	case ViewFeed:
		content = a.feedView(bodyHeight)
	case ViewError:
		content = a.errorView(bodyHeight)
	case ViewSaved:
		content = a.savedView(bodyHeight)
	case ViewSearch:
		content = a.searchView(bodyHeight)
	case ViewReader:
		content = a.readerView(bodyHeight)
	case ViewConfirmRemove:
		content = a.confirmView(bodyHeight)
	}

	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 0)))
	return lipgloss.JoinVertical(lipgloss.Left, content, separator, a.statusBar())
}

func (a *App) feedView(height int) string {
	header := renderDeckHeader(a.category.Title(), a.pager.Cursor(), len(a.items))

	deckHeight := max(height-2, 3)
	var deck string
	if len(a.items) == 0 {
		deck = renderCentered(a.width, deckHeight, renderHelp("No articles in this category right now"))
	} else {
		deck = a.renderDeck(a.width, deckHeight)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, "", deck)
}

func (a *App) errorView(height int) string {
	reason := "unknown error"
	if a.loadErr != nil {
		reason, _ = describeErr(a.loadErr)
	}
	return renderPanel(a.width, height,
		StatusErrorStyle.Render("✗ Couldn't load "+a.category.Title()+" news"),
		"",
		renderParagraph(reason, min(a.width-4, 60)),
		"",
		renderKeyHints(
			keyHint{a.keys.Refresh.Help().Key, "retry"},
			keyHint{a.keys.Category.Help().Key, "switch category"},
		),
	)
}

func (a *App) savedView(height int) string {
	if len(a.savedList.Items()) == 0 {
		msg := "No saved articles yet"
		if !a.list.Loaded() {
			msg = a.spinner.View() + " Loading saved articles…"
		}
		return renderCentered(a.width, height, renderHelp(msg))
	}
	return a.savedList.View()
}

func (a *App) searchView(height int) string {
	inputWidth := max(a.width-8, 10)
	a.searchInput.Width = inputWidth

	query := strings.TrimSpace(a.searchInput.Value())
	var hint string
	switch {
	case a.searchInput.Focused():
		hint = renderKeyHints(keyHint{"", "Type to search"}, keyHint{"Tab/↓", "results"}, keyHint{"Esc", "back"})
	case len(a.searchResults) > 0:
		hint = renderKeyHints(keyHint{"", MsgResultsCount(len(a.searchResults))}, keyHint{"Tab", "search box"}, keyHint{"Esc", "back"})
	default:
		hint = renderKeyHints(keyHint{"", MsgNoResults}, keyHint{"Tab", "search box"}, keyHint{"Esc", "back"})
	}

	body := ""
	if query != "" && len(a.searchResults) == 0 {
		body = renderHelp(MsgNoResults)
	} else {
		body = a.searchList.View()
	}

	return lipgloss.NewStyle().Width(a.width).Height(height).MaxHeight(height).Render(
		lipgloss.JoinVertical(lipgloss.Top,
			renderSearchBox(a.searchInput.View(), a.searchInput.Focused(), inputWidth, a.width),
			hint,
			"",
			body,
		),
	)
}

func (a *App) readerView(height int) string {
	if a.readerLoading {
		return renderCentered(a.width, height, a.spinner.View()+" "+renderMuted("Rendering article…"))
	}
	return a.viewport.View()
}

func (a *App) confirmView(height int) string {
	modalWidth := max(min((a.width*4)/5, 70), 15)
	title := a.pendingRemove.Title
	if title == "" {
		title = a.pendingRemove.URL
	}

	return renderPanel(a.width, height,
		StatusErrorStyle.Render("Remove saved article"),
		"",
		renderParagraph("Remove this article from your saved list?", modalWidth),
		"",
		SavedBadgeStyle.Width(modalWidth).Align(lipgloss.Center).
			Render(truncateEnd(title, modalWidth-4)),
		"",
		renderKeyHints(keyHint{"Enter/y", "remove"}, keyHint{"Esc/n", "cancel"}),
	)
}

func (a *App) statusBar() string {
	if a.status.text != "" {
		return StatusBarStyle().Width(a.width).
			Render(a.status.kind.style().Render(a.status.kind.icon() + a.status.text))
	}
	return StatusBarStyle().Width(a.width).Render(a.help.View(a.keys.forView(a.router.Current())))
}

func StatusBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MutedColor).Padding(0, 1)
}
