package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/flip/internal/config"
	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/pager"
	"github.com/pders01/flip/internal/saved"
)

func TestAppLoadsFeedAndHydrates(t *testing.T) {
	h := newHarness(t)
	h.store.seed("Story B", "https://good.test/b")

	require.Equal(t, ViewLoading, h.app.Current())
	h.start(t)

	require.Equal(t, ViewFeed, h.app.Current())
	assert.Equal(t, 3, h.app.pager.Len())
	assert.Equal(t, 0, h.app.pager.Cursor())
	assert.NoError(t, h.app.LoadErr())

	assert.False(t, h.app.sync.IsSaved("https://good.test/a"))
	assert.True(t, h.app.sync.IsSaved("https://good.test/b"))

	view := h.app.View()
	assert.Contains(t, view, "1 / 3")
	assert.Contains(t, view, "Story https://good.test/a")
}

func TestAppIgnoresStaleFeed(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	old := h.app.feedToken
	drain(t, h.app, h.app.startLoad())
	require.NotEqual(t, old, h.app.feedToken)

	h.app.Update(feedLoadedMsg{token: old, category: feed.CategoryLocal, items: sequence("https://stale.test/1")})
	assert.Equal(t, 3, h.app.pager.Len(), "an outdated load must not replace the feed")

	h.app.Update(feedFailedMsg{token: old, category: feed.CategoryLocal, err: errOffline})
	assert.Equal(t, ViewFeed, h.app.Current())
	assert.NoError(t, h.app.LoadErr())
}

func TestAppLoadFailureAndRetry(t *testing.T) {
	h := newHarness(t)
	h.source.setErr(errOffline)
	h.start(t)

	require.Equal(t, ViewError, h.app.Current())
	require.ErrorIs(t, h.app.LoadErr(), errOffline)
	assert.Contains(t, h.app.View(), "Couldn't load")

	h.source.setErr(nil)
	h.key(t, runes("r"))

	assert.Equal(t, ViewFeed, h.app.Current())
	assert.NoError(t, h.app.LoadErr())
	assert.Equal(t, 3, h.app.pager.Len())
}

func TestAppEmptyFeed(t *testing.T) {
	h := newHarness(t)
	h.source.items[feed.CategoryLocal] = nil
	h.start(t)

	require.Equal(t, ViewFeed, h.app.Current())
	assert.Contains(t, h.app.View(), "No articles in this category right now")

	h.key(t, keyRight)
	assert.Equal(t, pager.Idle, h.app.pager.State())

	h.mouse(t, tea.MouseActionPress, 80)
	h.clock.advance(time.Second)
	h.mouse(t, tea.MouseActionMotion, 10)
	h.clock.advance(time.Second)
	h.mouse(t, tea.MouseActionRelease, 10)
	assert.Equal(t, pager.Settling, h.app.pager.State())
	finishAnimation(t, h.app)
	assert.Equal(t, 0, h.app.pager.Cursor())
}

func TestAppButtonNavigation(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.key(t, keyLeft)
	assert.Equal(t, pager.Idle, h.app.pager.State(), "previous at the first card is ignored")

	h.key(t, keyRight)
	assert.Equal(t, pager.Committing, h.app.pager.State())
	assert.Equal(t, 1, h.app.pager.Cursor())
	require.True(t, h.app.animating)

	h.key(t, keyRight)
	assert.Equal(t, 1, h.app.pager.Cursor(), "presses during a commit are dropped")

	finishAnimation(t, h.app)

	h.key(t, runes("l"))
	finishAnimation(t, h.app)
	assert.Equal(t, 2, h.app.pager.Cursor())

	h.key(t, keyRight)
	assert.Equal(t, pager.Idle, h.app.pager.State(), "next at the last card is ignored")

	h.key(t, runes("h"))
	finishAnimation(t, h.app)
	assert.Equal(t, 1, h.app.pager.Cursor())
}

func TestAppStaleFramesAreDropped(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.key(t, keyRight)
	seq := h.app.frameSeq
	h.app.stopAnimation()

	_, cmd := h.app.Update(frameMsg{seq: seq, at: h.app.lastFrame.Add(time.Second)})
	assert.Nil(t, cmd)
	assert.Equal(t, pager.Committing, h.app.pager.State())
}

func TestAppDragGestures(t *testing.T) {
	tests := []struct {
		name   string
		from   int
		to     int
		step   time.Duration
		result pager.State
		cursor int
	}{
		{name: "long slow drag commits", from: 80, to: 40, step: time.Second, result: pager.Committing, cursor: 1},
		{name: "short slow drag springs back", from: 80, to: 75, step: time.Second, result: pager.Settling, cursor: 0},
		{name: "short flick commits", from: 80, to: 75, step: 10 * time.Millisecond, result: pager.Committing, cursor: 1},
		{name: "drag past the first card springs back", from: 20, to: 80, step: time.Second, result: pager.Settling, cursor: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.start(t)

			h.mouse(t, tea.MouseActionPress, tt.from)
			require.Equal(t, pager.Dragging, h.app.pager.State())

			h.clock.advance(tt.step)
			h.mouse(t, tea.MouseActionMotion, tt.to)
			assert.Equal(t, float64(tt.to-tt.from)*8, h.app.pager.Offset())

			h.clock.advance(tt.step)
			h.mouse(t, tea.MouseActionRelease, tt.to)

			assert.Equal(t, tt.result, h.app.pager.State())
			assert.Equal(t, tt.cursor, h.app.pager.Cursor())
			finishAnimation(t, h.app)
			assert.Equal(t, tt.cursor, h.app.pager.Cursor())
		})
	}
}

func TestAppDragIgnoresOtherButtons(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	_, cmd := h.app.Update(tea.MouseMsg{X: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonRight})
	assert.Nil(t, cmd)
	assert.Equal(t, pager.Idle, h.app.pager.State())

	h.mouse(t, tea.MouseActionMotion, 40)
	assert.Equal(t, pager.Idle, h.app.pager.State())
	h.mouse(t, tea.MouseActionRelease, 40)
	assert.Equal(t, pager.Idle, h.app.pager.State())
}

func TestAppToggleSave(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.key(t, runes("s"))
	assert.True(t, h.app.sync.IsSaved("https://good.test/a"))
	assert.Equal(t, 1, h.store.count())
	assert.Equal(t, MsgSaved, h.app.status.text)
	assert.Empty(t, h.app.togglingURL)
	assert.Contains(t, h.app.View(), "★ saved")

	h.key(t, runes("s"))
	assert.False(t, h.app.sync.IsSaved("https://good.test/a"))
	assert.Zero(t, h.store.count())
	assert.Equal(t, MsgUnsaved, h.app.status.text)
}

func TestAppToggleFailure(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.store.failCreate = saved.ErrDuplicate

	h.key(t, runes("s"))
	assert.False(t, h.app.sync.IsSaved("https://good.test/a"))
	assert.False(t, h.app.sync.InFlight())
	assert.Equal(t, StatusError, h.app.status.kind)
	assert.Contains(t, h.app.status.text, saved.ErrDuplicate.Error())
}

func TestAppCategorySwitchPersists(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.key(t, runes("c"))
	assert.Equal(t, feed.CategoryWorld, h.app.category)
	assert.Equal(t, ViewFeed, h.app.Current())
	assert.Equal(t, 2, h.app.pager.Len())
	assert.Equal(t, "world", h.meta[metaCategoryKey])

	again := newHarnessWithMeta(t, h.meta)
	assert.Equal(t, feed.CategoryWorld, again.app.category)
}

func newHarnessWithMeta(t *testing.T, meta memMeta) *harness {
	t.Helper()
	h := newHarness(t)
	h.app = NewApp(config.TestConfig(), Deps{
		Source: h.source,
		Sync:   saved.NewSynchronizer(h.store, "tester"),
		Meta:   meta,
	})
	return h
}

func TestAppSavedViewRemove(t *testing.T) {
	h := newHarness(t)
	h.store.seed("Old bridge reopens", "https://good.test/bridge")
	h.store.seed("Bakery wins prize", "https://good.test/bakery")
	h.start(t)

	h.key(t, runes("v"))
	require.Equal(t, ViewSaved, h.app.Current())
	require.Len(t, h.app.savedList.Items(), 2)
	assert.Contains(t, h.app.savedList.Title, "2 saved articles")

	first, ok := h.app.selectedSaved()
	require.True(t, ok)
	assert.Equal(t, "Bakery wins prize", first.Title, "newest first")

	h.key(t, runes("x"))
	require.Equal(t, ViewConfirmRemove, h.app.Current())
	assert.Contains(t, h.app.View(), "Bakery wins prize")

	h.key(t, keyEsc)
	require.Equal(t, ViewSaved, h.app.Current())
	assert.Equal(t, 2, h.store.count())

	h.key(t, runes("x"))
	h.key(t, keyEnter)
	require.Equal(t, ViewSaved, h.app.Current())
	assert.Equal(t, 1, h.store.count())
	assert.Len(t, h.app.savedList.Items(), 1)
	assert.Equal(t, MsgRemoved, h.app.status.text)

	h.key(t, keyEsc)
	assert.Equal(t, ViewFeed, h.app.Current())
}

func TestAppRemoveFailureKeepsItem(t *testing.T) {
	h := newHarness(t)
	h.store.seed("Old bridge reopens", "https://good.test/bridge")
	h.start(t)
	h.key(t, runes("v"))

	h.store.failDelete = errOffline
	h.key(t, runes("x"))
	h.key(t, runes("y"))

	assert.Equal(t, ViewSaved, h.app.Current())
	assert.Len(t, h.app.savedList.Items(), 1)
	assert.Equal(t, StatusError, h.app.status.kind)
}

func TestAppSavedListFailure(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.store.failList = errOffline

	h.key(t, runes("v"))
	assert.Equal(t, ViewSaved, h.app.Current())
	assert.Empty(t, h.app.savedList.Items())
	assert.Equal(t, StatusError, h.app.status.kind)
}

func TestAppSearchSaved(t *testing.T) {
	h := newHarness(t)
	h.store.seed("Old bridge reopens", "https://good.test/bridge")
	h.store.seed("Bakery wins prize", "https://good.test/bakery")
	h.start(t)
	h.key(t, runes("v"))

	h.key(t, runes("/"))
	require.Equal(t, ViewSearch, h.app.Current())
	require.True(t, h.app.searchInput.Focused())

	for _, r := range "bridge" {
		h.key(t, runes(string(r)))
	}
	assert.Equal(t, "bridge", h.app.searchInput.Value())

	// only the newest debounce tick runs the query
	_, cmd := h.app.Update(searchDebounceMsg{seq: h.app.searchSeq - 1})
	assert.Nil(t, cmd)
	_, cmd = h.app.Update(searchDebounceMsg{seq: h.app.searchSeq})
	drain(t, h.app, cmd)

	require.Len(t, h.app.searchResults, 1)
	assert.Equal(t, "Old bridge reopens", h.app.searchResults[0].Title)

	h.key(t, keyEnter)
	require.False(t, h.app.searchInput.Focused())

	h.key(t, keyEnter)
	require.Equal(t, ViewReader, h.app.Current())
	assert.Equal(t, "https://good.test/bridge", h.app.readerItem.URL)

	h.key(t, keyEsc)
	assert.Equal(t, ViewSearch, h.app.Current())
	h.key(t, keyEsc)
	assert.Equal(t, ViewSaved, h.app.Current())
	assert.Empty(t, h.app.searchResults)
}

func TestAppReaderAndOpen(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.key(t, keyEnter)
	require.Equal(t, ViewReader, h.app.Current())
	assert.False(t, h.app.readerLoading)
	assert.Contains(t, h.app.viewport.View(), "Story")

	h.key(t, runes("o"))
	assert.Equal(t, []string{"https://good.test/a"}, h.opener.opened)

	h.key(t, keyEsc)
	assert.Equal(t, ViewFeed, h.app.Current())
}

func TestAppOpenWithoutOpener(t *testing.T) {
	h := newHarness(t)
	h.app.opener = nil
	h.start(t)

	h.key(t, runes("o"))
	assert.Equal(t, MsgNothingToOpen, h.app.status.text)
}

func TestReaderMarkdown(t *testing.T) {
	pub := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	md := readerMarkdown(feed.Item{
		URL:         "https://good.test/a",
		Title:       " Garden ",
		Description: "Volunteers planted trees.",
		SourceName:  "Good News",
		PublishedAt: &pub,
	}, pub.Add(2*time.Hour))

	assert.True(t, strings.HasPrefix(md, "# Garden\n"))
	assert.Contains(t, md, "*Good News • ")
	assert.Contains(t, md, "Volunteers planted trees.")
	assert.Contains(t, md, "[Read online](https://good.test/a)")
}

func TestAppQuit(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	_, cmd := h.app.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = h.app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestAppViewFitsWindow(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	for _, v := range []func(){
		func() {},
		func() { h.key(t, runes("v")) },
		func() { h.key(t, runes("/")) },
	} {
		v()
		lines := strings.Split(h.app.View(), "\n")
		assert.LessOrEqual(t, len(lines), 30, fmt.Sprintf("view %s overflows", h.app.Current()))
	}
}
