package tui

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/pders01/flip/internal/config"
	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/pager"
	"github.com/pders01/flip/internal/saved"
	"github.com/pders01/flip/internal/search"
)

var errOffline = errors.New("connection refused")

type memStore struct {
	mu         sync.Mutex
	next       int64
	records    map[int64]saved.Record
	failCreate error
	failDelete error
	failList   error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[int64]saved.Record)}
}

func (m *memStore) seed(title, url string) saved.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	rec := saved.Record{ID: m.next, Title: title, URL: url, Source: "Test Wire", SavedAt: time.Date(2025, 6, 1, 0, 0, int(m.next), 0, time.UTC)}
	m.records[rec.ID] = rec
	return rec
}

func (m *memStore) Check(_ context.Context, _ string, url string) (saved.CheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.URL == url {
			return saved.CheckResult{Saved: true, ID: r.ID}, nil
		}
	}
	return saved.CheckResult{}, nil
}

func (m *memStore) Create(_ context.Context, _ string, d saved.Draft) (saved.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return saved.Record{}, m.failCreate
	}
	for _, r := range m.records {
		if r.URL == d.URL {
			return saved.Record{}, saved.ErrDuplicate
		}
	}
	m.next++
	rec := d.Record(m.next, time.Now())
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *memStore) Delete(_ context.Context, _ string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	if _, ok := m.records[id]; !ok {
		return saved.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memStore) List(_ context.Context, _ string) ([]saved.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	out := make([]saved.Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type fakeSource struct {
	mu    sync.Mutex
	items map[feed.Category]feed.Sequence
	err   error
	calls int
}

func (f *fakeSource) Fetch(_ context.Context, c feed.Category) (feed.Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items[c], nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeOpener struct {
	mu     sync.Mutex
	opened []string
}

func (o *fakeOpener) Open(url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, url)
	return nil
}

type memMeta map[string]string

func (m memMeta) Meta(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memMeta) SetMeta(key, value string) error {
	m[key] = value
	return nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	app    *App
	store  *memStore
	source *fakeSource
	opener *fakeOpener
	meta   memMeta
	clock  *clock
}

func sequence(urls ...string) feed.Sequence {
	pub := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	seq := make(feed.Sequence, len(urls))
	for i, u := range urls {
		seq[i] = feed.Item{URL: u, Title: "Story " + u, SourceName: "Test Wire", PublishedAt: &pub}
	}
	return seq
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: newMemStore(),
		source: &fakeSource{items: map[feed.Category]feed.Sequence{
			feed.CategoryLocal: sequence("https://good.test/a", "https://good.test/b", "https://good.test/c"),
			feed.CategoryWorld: sequence("https://world.test/x", "https://world.test/y"),
		}},
		opener: &fakeOpener{},
		meta:   memMeta{},
		clock:  &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}

	idx, err := search.NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	h.app = NewApp(config.TestConfig(), Deps{
		Source: h.source,
		Sync:   saved.NewSynchronizer(h.store, "tester"),
		Opener: h.opener,
		Meta:   h.meta,
		Index:  idx,
	})
	h.app.now = h.clock.now
	h.app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

// start runs Init and waits for the first feed load.
func (h *harness) start(t *testing.T) {
	t.Helper()
	drain(t, h.app, h.app.Init())
}

func (h *harness) key(t *testing.T, k tea.KeyMsg) {
	t.Helper()
	_, cmd := h.app.Update(k)
	drain(t, h.app, cmd)
}

func (h *harness) mouse(t *testing.T, action tea.MouseAction, x int) {
	t.Helper()
	_, cmd := h.app.Update(tea.MouseMsg{X: x, Y: 10, Action: action, Button: tea.MouseButtonLeft})
	drain(t, h.app, cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
)

// drain runs cmd and feeds the messages it produces back into the app
// until nothing is left. Timer driven commands (spinner, frames, status
// expiry, search debounce) are dropped so tests stay deterministic.
func drain(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 500, "command loop did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg, ok := runCmd(c, 200*time.Millisecond)
		if !ok {
			continue
		}
		switch m := msg.(type) {
		case nil:
			continue
		case tea.BatchMsg:
			queue = append(queue, m...)
			continue
		case spinner.TickMsg, frameMsg, clearStatusMsg, searchDebounceMsg:
			continue
		}
		_, next := a.Update(msg)
		queue = append(queue, next)
	}
}

func runCmd(c tea.Cmd, wait time.Duration) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case m := <-ch:
		return m, true
	case <-time.After(wait):
		return nil, false
	}
}

// finishAnimation feeds frames until the pager is idle again.
func finishAnimation(t *testing.T, a *App) {
	t.Helper()
	at := a.lastFrame
	for i := 0; i < 2000 && a.animating; i++ {
		at = at.Add(16 * time.Millisecond)
		a.Update(frameMsg{seq: a.frameSeq, at: at})
	}
	require.False(t, a.animating, "animation did not finish")
	require.Equal(t, pager.Idle, a.pager.State())
	require.Zero(t, a.pager.Offset())
}
