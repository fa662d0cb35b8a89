package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/flip/internal/config"
	"github.com/pders01/flip/internal/debuglog"
	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/pager"
	"github.com/pders01/flip/internal/saved"
)

// Opener shows a URL outside the terminal.
type Opener interface {
	Open(url string) error
}

// MetaStore persists small UI preferences between runs.
type MetaStore interface {
	Meta(key string) (string, bool, error)
	SetMeta(key, value string) error
}

// SavedIndex is the full-text index behind the saved-list search.
type SavedIndex interface {
	Replace(records []saved.Record) error
	Remove(id int64) error
	Search(query string, limit int) ([]int64, error)
}

// Deps are the collaborators the app drives. Meta, Index and Opener may
// be nil.
type Deps struct {
	Source feed.Source
	Sync   *saved.Synchronizer
	Opener Opener
	Meta   MetaStore
	Index  SavedIndex
}

type statusLine struct {
	text string
	kind StatusKind
	seq  int
}

type App struct {
	cfg        *config.Config
	keys       KeyMap
	keyHandler *KeyHandler
	router     *Router

	loader *feed.Loader
	sync   *saved.Synchronizer
	list   *saved.ListModel
	opener Opener
	meta   MetaStore
	index  SavedIndex

	pager     *pager.Machine
	tracker   pager.Tracker
	cellWidth float64
	animating bool
	frameSeq  int
	lastFrame time.Time

	category  feed.Category
	items     feed.Sequence
	feedToken uint64
	syncToken uint64
	loadErr   error

	togglingURL string

	savedList     list.Model
	searchList    list.Model
	searchInput   textinput.Model
	searchSeq     int
	searchResults []saved.Record
	pendingRemove saved.Record

	viewport      viewport.Model
	readerItem    feed.Item
	readerLoading bool

	spinner spinner.Model
	help    help.Model
	status  statusLine

	width  int
	height int

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int

	opTimeout   time.Duration
	feedTimeout time.Duration
	now         func() time.Time
}

func NewApp(cfg *config.Config, deps Deps) *App {
	savedList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	savedList.Title = "› saved"
	savedList.SetShowStatusBar(false)
	savedList.SetShowHelp(false)
	savedList.SetFilteringEnabled(false)
	savedList.KeyMap.Quit.SetEnabled(false)

	searchList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	searchList.Title = "› results"
	searchList.SetShowStatusBar(false)
	searchList.SetShowHelp(false)
	searchList.SetFilteringEnabled(false)
	searchList.KeyMap.Quit.SetEnabled(false)

	si := textinput.New()
	si.Placeholder = "Search saved articles..."

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	pc := cfg.Pager
	machine := pager.New(pager.Options{
		CommitRatio:       pc.CommitRatio,
		VelocityThreshold: pc.VelocityThreshold,
		CommitDuration:    pc.CommitDuration,
		SpringFrequency:   pc.SpringFrequency,
		SpringDamping:     pc.SpringDamping,
		FPS:               pc.FPS,
	})
	cellWidth := pc.CellWidth
	if cellWidth <= 0 {
		cellWidth = 8
	}

	app := &App{
		cfg:         cfg,
		keys:        NewKeyMap(cfg.Keys.Bindings),
		router:      NewRouter(),
		loader:      feed.NewLoader(deps.Source),
		sync:        deps.Sync,
		list:        saved.NewListModel(deps.Sync),
		opener:      deps.Opener,
		meta:        deps.Meta,
		index:       deps.Index,
		pager:       machine,
		cellWidth:   cellWidth,
		category:    initialCategory(cfg, deps.Meta),
		savedList:   savedList,
		searchList:  searchList,
		searchInput: si,
		viewport:    viewport.New(0, 0),
		spinner:     sp,
		help:        help.New(),
		opTimeout:   positive(cfg.Remote.Timeout, 10*time.Second),
		feedTimeout: positive(cfg.Feed.HTTPTimeout, 30*time.Second),
		now:         time.Now,
	}
	app.keyHandler = NewKeyHandler(app, app.keys)
	return app
}

// initialCategory prefers the category from the last run over the
// configured default.
func initialCategory(cfg *config.Config, meta MetaStore) feed.Category {
	if meta != nil {
		if v, ok, err := meta.Meta(metaCategoryKey); err == nil && ok {
			if c, err := feed.ParseCategory(v); err == nil {
				return c
			}
		}
	}
	c, err := feed.ParseCategory(cfg.Feed.DefaultCategory)
	if err != nil {
		return feed.CategoryLocal
	}
	return c
}

func positive(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func (a *App) Init() tea.Cmd {
	return a.startLoad()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tea.MouseMsg:
		switch a.router.Current() {
		case ViewFeed:
			return a, a.handleMouse(msg)
		case ViewReader:
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}
		return a, nil

	case frameMsg:
		return a, a.advanceFrame(msg)

	case spinner.TickMsg:
		if !a.spinning() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case feedLoadedMsg:
		return a, a.applyFeed(msg)

	case feedFailedMsg:
		return a, a.applyFeedError(msg)

	case hydratedMsg:
		if msg.err != nil && !isStale(msg.err) {
			debuglog.Warnf("hydrating saved state: %v", msg.err)
			return a, a.flashErr(msg.err)
		}
		return a, nil

	case toggledMsg:
		return a, a.applyToggle(msg)

	case savedListMsg:
		if msg.err != nil {
			return a, a.flashErr(msg.err)
		}
		a.refreshSavedItems()
		return a, a.flash(MsgSavedCount(a.list.Len()), StatusInfo)

	case removedMsg:
		if msg.err != nil {
			return a, a.flashErr(msg.err)
		}
		a.refreshSavedItems()
		a.dropSearchResult(msg.id)
		return a, a.flash(MsgRemoved, StatusSuccess)

	case searchDebounceMsg:
		if msg.seq != a.searchSeq {
			return a, nil
		}
		query := strings.TrimSpace(a.searchInput.Value())
		if query == "" {
			a.setSearchResults(nil)
			return a, nil
		}
		return a, a.performSearch(msg.seq, query)

	case searchResultsMsg:
		if msg.seq != a.searchSeq {
			return a, nil
		}
		if msg.err != nil {
			return a, a.flashErr(msg.err)
		}
		a.setSearchResults(msg.ids)
		return a, nil

	case readerRenderedMsg:
		if a.router.Current() == ViewReader && msg.url == a.readerItem.URL {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.readerLoading = false
		}
		return a, nil

	case openedMsg:
		if msg.err != nil {
			return a, a.flashErr(msg.err)
		}
		return a, a.flash("Opened in browser", StatusSuccess)

	case clearStatusMsg:
		if msg.seq == a.status.seq {
			a.status.text = ""
		}
		return a, nil
	}

	if a.router.Current() == ViewSearch && a.searchInput.Focused() {
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	body := max(height-4, 1)

	a.pager.SetViewportWidth(float64(width) * a.cellWidth)
	a.savedList.SetSize(width, body)
	a.searchList.SetSize(width, max(body-4, 3))
	a.searchInput.Width = max(width-8, 10)
	a.viewport.Width = width
	a.viewport.Height = body
	a.help.Width = width
}

func (a *App) applyFeed(msg feedLoadedMsg) tea.Cmd {
	if msg.token != a.feedToken {
		return nil
	}
	a.items = msg.items
	a.loadErr = nil
	a.pager.Reset(len(msg.items))
	a.stopAnimation()
	a.router.FireRoot(EventLoaded)

	debuglog.WithFields(map[string]interface{}{
		"category": msg.category,
		"items":    len(msg.items),
	}).Infof("feed loaded")

	return tea.Batch(
		a.flash(MsgLoadedCategory(msg.category, len(msg.items)), StatusInfo),
		a.hydrate(msg.syncToken, msg.items),
	)
}

func (a *App) applyFeedError(msg feedFailedMsg) tea.Cmd {
	if msg.token != a.feedToken || isStale(msg.err) {
		return nil
	}
	a.loadErr = msg.err
	a.router.FireRoot(EventLoadFailed)
	debuglog.Warnf("loading %s feed: %v", msg.category, msg.err)
	text, kind := describeErr(msg.err)
	a.setStatus(text, kind)
	return nil
}

func (a *App) applyToggle(msg toggledMsg) tea.Cmd {
	a.togglingURL = ""
	if msg.err != nil {
		return a.flashErr(msg.err)
	}
	switch msg.outcome {
	case saved.OutcomeSaved:
		return a.flash(MsgSaved, StatusSuccess)
	case saved.OutcomeUnsaved:
		return a.flash(MsgUnsaved, StatusSuccess)
	case saved.OutcomeAlreadyUnsaved:
		return a.flash(MsgAlreadyGone, StatusInfo)
	}
	return nil
}

func (a *App) switchCategory() tea.Cmd {
	if !a.router.Fire(EventSwitchCategory) {
		return nil
	}
	a.category = a.category.Toggle()
	return tea.Batch(a.persistCategory(a.category), a.startLoad())
}

func (a *App) openSaved() tea.Cmd {
	if !a.router.Fire(EventOpenSaved) {
		return nil
	}
	a.savedList.Title = "› saved"
	a.setStatus(MsgRefreshing, StatusInfo)
	return a.loadSaved()
}

func (a *App) openReader(it feed.Item) tea.Cmd {
	a.readerItem = it
	a.readerLoading = true
	a.viewport.SetContent("")
	return tea.Batch(a.spinner.Tick, a.renderReader(it))
}

func (a *App) enterSearch() tea.Cmd {
	a.searchInput.Reset()
	a.setSearchResults(nil)
	return a.searchInput.Focus()
}

func (a *App) updateSearchInput(msg tea.KeyMsg) tea.Cmd {
	prev := a.searchInput.Value()
	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	if a.searchInput.Value() == prev {
		return cmd
	}
	return tea.Batch(cmd, a.scheduleSearch())
}

// navigateBack pops the router. Leaving the search view drops its state.
func (a *App) navigateBack() tea.Cmd {
	from := a.router.Current()
	if !a.router.Back() {
		return nil
	}
	switch from {
	case ViewSearch:
		a.searchInput.Blur()
		a.searchInput.Reset()
		a.setSearchResults(nil)
	case ViewReader:
		a.readerLoading = false
	}
	return nil
}

func (a *App) currentItem() (feed.Item, bool) {
	return a.items.At(a.pager.Cursor())
}

func (a *App) selectedSaved() (saved.Record, bool) {
	if it, ok := a.savedList.SelectedItem().(savedItem); ok {
		return it.rec, true
	}
	return saved.Record{}, false
}

func (a *App) selectedSearchResult() (saved.Record, bool) {
	if it, ok := a.searchList.SelectedItem().(savedItem); ok {
		return it.rec, true
	}
	return saved.Record{}, false
}

func (a *App) refreshSavedItems() {
	records := a.list.Items()
	items := make([]list.Item, len(records))
	for i, rec := range records {
		items[i] = savedItem{rec: rec, now: a.now}
	}
	a.savedList.SetItems(items)
	a.savedList.Title = "› saved (" + MsgSavedCount(len(records)) + ")"
}

func (a *App) setSearchResults(ids []int64) {
	a.searchResults = a.searchResults[:0]
	for _, id := range ids {
		if rec, ok := a.list.Find(id); ok {
			a.searchResults = append(a.searchResults, rec)
		}
	}
	items := make([]list.Item, len(a.searchResults))
	for i, rec := range a.searchResults {
		items[i] = savedItem{rec: rec, now: a.now}
	}
	a.searchList.SetItems(items)
}

func (a *App) dropSearchResult(id int64) {
	kept := make([]int64, 0, len(a.searchResults))
	for _, rec := range a.searchResults {
		if rec.ID != id {
			kept = append(kept, rec.ID)
		}
	}
	a.setSearchResults(kept)
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status.seq++
	a.status.text = text
	a.status.kind = kind
}

// spinning reports whether anything shows the spinner.
func (a *App) spinning() bool {
	return a.router.Root() == ViewLoading || a.sync.InFlight() || a.readerLoading
}

// LoadErr is the failure behind the error view, if any.
func (a *App) LoadErr() error { return a.loadErr }

// Current is the visible view.
func (a *App) Current() View { return a.router.Current() }
