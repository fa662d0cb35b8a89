package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/pders01/flip/internal/debuglog"
	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/saved"
)

const (
	metaCategoryKey = "last_category"
	searchLimit     = 50
	searchDebounce  = 150 * time.Millisecond
	statusTTL       = 3 * time.Second
)

type feedLoadedMsg struct {
	token     uint64
	syncToken uint64
	category  feed.Category
	items     feed.Sequence
}

type feedFailedMsg struct {
	token    uint64
	category feed.Category
	err      error
}

type hydratedMsg struct {
	token uint64
	err   error
}

type toggledMsg struct {
	url     string
	outcome saved.Outcome
	err     error
}

type savedListMsg struct {
	err error
}

type removedMsg struct {
	id    int64
	title string
	err   error
}

type searchDebounceMsg struct {
	seq int
}

type searchResultsMsg struct {
	seq int
	ids []int64
	err error
}

type readerRenderedMsg struct {
	url     string
	content string
}

type openedMsg struct {
	err error
}

type frameMsg struct {
	seq int
	at  time.Time
}

type clearStatusMsg struct {
	seq int
}

// startLoad begins a new feed load for the current category. Results from
// any earlier load or hydration become stale.
func (a *App) startLoad() tea.Cmd {
	a.feedToken = a.loader.Begin()
	a.syncToken = a.sync.BeginEpoch()
	a.setStatus(MsgLoadingCategory(a.category), StatusInfo)

	loader, token, syncToken, category := a.loader, a.feedToken, a.syncToken, a.category
	timeout := a.feedTimeout
	fetch := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		items, err := loader.Load(ctx, token, category)
		if err != nil {
			return feedFailedMsg{token: token, category: category, err: err}
		}
		return feedLoadedMsg{token: token, syncToken: syncToken, category: category, items: items}
	}
	return tea.Batch(a.spinner.Tick, fetch)
}

func (a *App) hydrate(token uint64, items feed.Sequence) tea.Cmd {
	sync, timeout := a.sync, a.opTimeout
	return func() tea.Msg {
		// one check per item, so allow a timeout per item
		ctx, cancel := context.WithTimeout(context.Background(), timeout*time.Duration(max(1, len(items))))
		defer cancel()
		return hydratedMsg{token: token, err: sync.Hydrate(ctx, token, items)}
	}
}

func (a *App) toggleSave(it feed.Item) tea.Cmd {
	if it.URL == "" {
		return nil
	}
	if a.sync.InFlight() {
		return a.flash(MsgToggleBusy, StatusWarn)
	}
	a.togglingURL = it.URL
	if a.sync.IsSaved(it.URL) {
		a.setStatus(MsgUnsaving, StatusInfo)
	} else {
		a.setStatus(MsgSaving, StatusInfo)
	}

	sync, timeout := a.sync, a.opTimeout
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		out, err := sync.Toggle(ctx, it)
		return toggledMsg{url: it.URL, outcome: out, err: err}
	})
}

func (a *App) loadSaved() tea.Cmd {
	list, index, timeout := a.list, a.index, a.opTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := list.Load(ctx); err != nil {
			return savedListMsg{err: err}
		}
		if index != nil {
			if err := index.Replace(list.Items()); err != nil {
				debuglog.Warnf("indexing saved articles: %v", err)
			}
		}
		return savedListMsg{}
	}
}

func (a *App) removeSaved(rec saved.Record) tea.Cmd {
	list, index, timeout := a.list, a.index, a.opTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := list.Remove(ctx, rec.ID); err != nil {
			return removedMsg{id: rec.ID, title: rec.Title, err: err}
		}
		if index != nil {
			if err := index.Remove(rec.ID); err != nil {
				debuglog.Warnf("removing %d from search index: %v", rec.ID, err)
			}
		}
		return removedMsg{id: rec.ID, title: rec.Title}
	}
}

func (a *App) scheduleSearch() tea.Cmd {
	a.searchSeq++
	seq := a.searchSeq
	return tea.Tick(searchDebounce, func(time.Time) tea.Msg { return searchDebounceMsg{seq: seq} })
}

func (a *App) performSearch(seq int, query string) tea.Cmd {
	index := a.index
	if index == nil {
		return nil
	}
	return func() tea.Msg {
		ids, err := index.Search(query, searchLimit)
		return searchResultsMsg{seq: seq, ids: ids, err: err}
	}
}

func (a *App) openInBrowser(url string) tea.Cmd {
	if url == "" || a.opener == nil {
		return a.flash(MsgNothingToOpen, StatusWarn)
	}
	a.setStatus(MsgOpening, StatusInfo)
	opener := a.opener
	return func() tea.Msg {
		return openedMsg{err: opener.Open(url)}
	}
}

func (a *App) persistCategory(c feed.Category) tea.Cmd {
	meta := a.meta
	if meta == nil {
		return nil
	}
	return func() tea.Msg {
		if err := meta.SetMeta(metaCategoryKey, string(c)); err != nil {
			debuglog.Warnf("saving last category: %v", err)
		}
		return nil
	}
}

func (a *App) renderReader(it feed.Item) tea.Cmd {
	r, err := a.getRenderer()
	now := a.now()
	return func() tea.Msg {
		if err != nil {
			return readerRenderedMsg{url: it.URL, content: "Error initializing renderer: " + err.Error()}
		}
		rendered, err := r.Render(readerMarkdown(it, now))
		if err != nil {
			return readerRenderedMsg{url: it.URL, content: fmt.Sprintf("Failed to render article: %v", err)}
		}
		return readerRenderedMsg{url: it.URL, content: rendered}
	}
}

func readerMarkdown(it feed.Item, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(it.Title))

	var meta []string
	if it.SourceName != "" {
		meta = append(meta, it.SourceName)
	}
	if it.PublishedAt != nil {
		meta = append(meta, feed.RelativeTime(it.PublishedAt, now))
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, "*%s*\n\n", strings.Join(meta, " • "))
	}
	if it.ImageURL != "" {
		fmt.Fprintf(&b, "![image](%s)\n\n", it.ImageURL)
	}
	b.WriteString("---\n\n")
	if desc := strings.TrimSpace(it.Description); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}
	if it.URL != "" {
		fmt.Fprintf(&b, "[Read online](%s)\n", it.URL)
	}
	return b.String()
}

// getRenderer returns a glamour renderer sized for the current width,
// rebuilding it only when the width changed noticeably.
func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	art := a.cfg.UI.Article
	wordWrapWidth := (a.width * 9) / 10
	if art.WordWrapMaxWidth > 0 && wordWrapWidth > art.WordWrapMaxWidth {
		wordWrapWidth = art.WordWrapMaxWidth
	}
	if art.WordWrapMinWidth > 0 && wordWrapWidth < art.WordWrapMinWidth {
		wordWrapWidth = art.WordWrapMinWidth
	}
	if a.width > 0 && a.width < 50 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}
	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// flash shows a status line that clears itself after a few seconds.
func (a *App) flash(text string, kind StatusKind) tea.Cmd {
	a.setStatus(text, kind)
	seq := a.status.seq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

func (a *App) flashErr(err error) tea.Cmd {
	text, kind := describeErr(err)
	return a.flash(text, kind)
}

func isStale(err error) bool {
	return errors.Is(err, feed.ErrStale) || errors.Is(err, saved.ErrStale)
}
