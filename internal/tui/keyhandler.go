package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/flip/internal/config"
	"github.com/pders01/flip/internal/pager"
)

// KeyMap holds the configured bindings for every action.
type KeyMap struct {
	Quit       key.Binding
	Next       key.Binding
	Previous   key.Binding
	ToggleSave key.Binding
	Category   key.Binding
	Saved      key.Binding
	Open       key.Binding
	Read       key.Binding
	Remove     key.Binding
	Search     key.Binding
	Refresh    key.Binding
	Back       key.Binding
	Help       key.Binding
	Confirm    key.Binding
	Cancel     key.Binding
	ForceQuit  key.Binding
}

func NewKeyMap(b config.KeyBindings) KeyMap {
	return KeyMap{
		Quit:       binding(b.Quit, "quit"),
		Next:       binding(b.Next, "next"),
		Previous:   binding(b.Previous, "previous"),
		ToggleSave: binding(b.ToggleSave, "save/unsave"),
		Category:   binding(b.Category, "local/world"),
		Saved:      binding(b.Saved, "saved"),
		Open:       binding(b.Open, "open in browser"),
		Read:       binding(b.Read, "read"),
		Remove:     binding(b.Remove, "remove"),
		Search:     binding(b.Search, "search"),
		Refresh:    binding(b.Refresh, "refresh"),
		Back:       binding(b.Back, "back"),
		Help:       binding(b.Help, "help"),
		Confirm:    binding("enter,y", "confirm"),
		Cancel:     binding("esc,n", "cancel"),
		ForceQuit:  binding("ctrl+c", "quit"),
	}
}

// binding builds a key.Binding from a comma separated key list.
func binding(keys, desc string) key.Binding {
	var list []string
	for _, k := range strings.Split(keys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			list = append(list, k)
		}
	}
	if len(list) == 0 {
		return key.NewBinding(key.WithDisabled())
	}
	return key.NewBinding(
		key.WithKeys(list...),
		key.WithHelp(keyLabel(list[0]), desc),
	)
}

func keyLabel(k string) string {
	switch k {
	case "right":
		return "→"
	case "left":
		return "←"
	case "up":
		return "↑"
	case "down":
		return "↓"
	default:
		return k
	}
}

// helpKeys adapts a per-view binding list to help.KeyMap.
type helpKeys struct {
	short []key.Binding
	full  [][]key.Binding
}

func (h helpKeys) ShortHelp() []key.Binding { return h.short }

// FullHelp falls back to the short list for views without extra bindings.
func (h helpKeys) FullHelp() [][]key.Binding {
	if len(h.full) == 0 && len(h.short) > 0 {
		return [][]key.Binding{h.short}
	}
	return h.full
}

func (k KeyMap) forView(v View) helpKeys {
	switch v {
	case ViewFeed:
		return helpKeys{
			short: []key.Binding{k.Previous, k.Next, k.ToggleSave, k.Read, k.Saved, k.Help},
			full: [][]key.Binding{
				{k.Previous, k.Next, k.Read, k.Open},
				{k.ToggleSave, k.Saved, k.Category, k.Refresh},
				{k.Help, k.Quit},
			},
		}
	case ViewLoading:
		return helpKeys{short: []key.Binding{k.Category, k.Saved, k.Quit}}
	case ViewError:
		retry := k.Refresh
		retry.SetHelp(retry.Help().Key, "retry")
		return helpKeys{short: []key.Binding{retry, k.Category, k.Saved, k.Quit}}
	case ViewSaved:
		return helpKeys{
			short: []key.Binding{k.Read, k.Open, k.Remove, k.Search, k.Refresh, k.Back},
			full: [][]key.Binding{
				{k.Read, k.Open},
				{k.Remove, k.Search, k.Refresh},
				{k.Back, k.Quit},
			},
		}
	case ViewSearch:
		return helpKeys{short: []key.Binding{k.Read, k.Open, k.Remove, k.Back}}
	case ViewReader:
		return helpKeys{short: []key.Binding{k.ToggleSave, k.Open, k.Back}}
	case ViewConfirmRemove:
		return helpKeys{short: []key.Binding{k.Confirm, k.Cancel}}
	default:
		return helpKeys{}
	}
}

type KeyHandler struct {
	app  *App
	keys KeyMap
}

func NewKeyHandler(app *App, keys KeyMap) *KeyHandler {
	return &KeyHandler{app: app, keys: keys}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, kh.keys.ForceQuit) {
		return kh.app, tea.Quit
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	switch {
	case key.Matches(msg, kh.keys.Quit):
		return kh.app, tea.Quit
	case key.Matches(msg, kh.keys.Help):
		kh.app.help.ShowAll = !kh.app.help.ShowAll
		return kh.app, nil
	}

	switch kh.app.router.Current() {
	case ViewLoading:
		return kh.app, kh.handleLoadingKeys(msg)
	case ViewFeed:
		return kh.app, kh.handleFeedKeys(msg)
	case ViewError:
		return kh.app, kh.handleErrorKeys(msg)
	case ViewSaved:
		return kh.app, kh.handleSavedKeys(msg)
	case ViewSearch:
		return kh.app, kh.handleSearchResultKeys(msg)
	case ViewReader:
		return kh.app, kh.handleReaderKeys(msg)
	case ViewConfirmRemove:
		return kh.app, kh.handleConfirmKeys(msg)
	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.router.Current() == ViewSearch && kh.app.searchInput.Focused()
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	switch msg.String() {
	case "esc":
		return a, a.navigateBack()
	case "enter", "tab", "down":
		if len(a.searchList.Items()) > 0 {
			a.searchInput.Blur()
			a.searchList.Select(0)
		}
		return a, nil
	default:
		return a, a.updateSearchInput(msg)
	}
}

func (kh *KeyHandler) handleLoadingKeys(msg tea.KeyMsg) tea.Cmd {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Category):
		return a.switchCategory()
	case key.Matches(msg, kh.keys.Saved):
		return a.openSaved()
	}
	return nil
}

func (kh *KeyHandler) handleFeedKeys(msg tea.KeyMsg) tea.Cmd {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Next):
		return a.page(a.pager.Next())
	case key.Matches(msg, kh.keys.Previous):
		return a.page(a.pager.Previous())
	case key.Matches(msg, kh.keys.ToggleSave):
		if it, ok := a.currentItem(); ok {
			return a.toggleSave(it)
		}
	case key.Matches(msg, kh.keys.Read):
		if it, ok := a.currentItem(); ok && a.router.Fire(EventRead) {
			return a.openReader(it)
		}
	case key.Matches(msg, kh.keys.Open):
		if it, ok := a.currentItem(); ok {
			return a.openInBrowser(it.URL)
		}
		return a.flash(MsgNothingToOpen, StatusWarn)
	case key.Matches(msg, kh.keys.Saved):
		return a.openSaved()
	case key.Matches(msg, kh.keys.Category):
		return a.switchCategory()
	case key.Matches(msg, kh.keys.Refresh):
		if a.router.Fire(EventRetry) {
			return a.startLoad()
		}
	}
	return nil
}

func (kh *KeyHandler) handleErrorKeys(msg tea.KeyMsg) tea.Cmd {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Refresh):
		if a.router.Fire(EventRetry) {
			return a.startLoad()
		}
	case key.Matches(msg, kh.keys.Category):
		return a.switchCategory()
	case key.Matches(msg, kh.keys.Saved):
		return a.openSaved()
	}
	return nil
}

func (kh *KeyHandler) handleSavedKeys(msg tea.KeyMsg) tea.Cmd {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Back):
		return a.navigateBack()
	case key.Matches(msg, kh.keys.Read):
		if rec, ok := a.selectedSaved(); ok && a.router.Fire(EventRead) {
			return a.openReader(rec.Item())
		}
		return nil
	case key.Matches(msg, kh.keys.Open):
		if rec, ok := a.selectedSaved(); ok {
			return a.openInBrowser(rec.URL)
		}
		return nil
	case key.Matches(msg, kh.keys.Remove):
		if rec, ok := a.selectedSaved(); ok && a.router.Fire(EventRemove) {
			a.pendingRemove = rec
		}
		return nil
	case key.Matches(msg, kh.keys.Search):
		if a.router.Fire(EventSearch) {
			return a.enterSearch()
		}
		return nil
	case key.Matches(msg, kh.keys.Refresh):
		a.setStatus(MsgRefreshing, StatusInfo)
		return a.loadSaved()
	}

	var cmd tea.Cmd
	a.savedList, cmd = a.savedList.Update(msg)
	return cmd
}

func (kh *KeyHandler) handleSearchResultKeys(msg tea.KeyMsg) tea.Cmd {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Back):
		return a.navigateBack()
	case msg.String() == "tab" || msg.String() == "shift+tab" || key.Matches(msg, kh.keys.Search):
		return a.searchInput.Focus()
	case msg.String() == "up" && a.searchList.Index() == 0:
		return a.searchInput.Focus()
	case key.Matches(msg, kh.keys.Read):
		if rec, ok := a.selectedSearchResult(); ok && a.router.Fire(EventRead) {
			return a.openReader(rec.Item())
		}
		return nil
	case key.Matches(msg, kh.keys.Open):
		if rec, ok := a.selectedSearchResult(); ok {
			return a.openInBrowser(rec.URL)
		}
		return nil
	case key.Matches(msg, kh.keys.Remove):
		if rec, ok := a.selectedSearchResult(); ok && a.router.Fire(EventRemove) {
			a.pendingRemove = rec
		}
		return nil
	}

	var cmd tea.Cmd
	a.searchList, cmd = a.searchList.Update(msg)
	return cmd
}

func (kh *KeyHandler) handleReaderKeys(msg tea.KeyMsg) tea.Cmd {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Back):
		return a.navigateBack()
	case key.Matches(msg, kh.keys.Open):
		return a.openInBrowser(a.readerItem.URL)
	case key.Matches(msg, kh.keys.ToggleSave):
		// saved records are removed from the saved list instead
		if !a.router.Contains(ViewSaved) {
			return a.toggleSave(a.readerItem)
		}
		return nil
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return cmd
}

func (kh *KeyHandler) handleConfirmKeys(msg tea.KeyMsg) tea.Cmd {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Confirm):
		rec := a.pendingRemove
		a.navigateBack()
		a.setStatus(MsgRemoving, StatusInfo)
		return a.removeSaved(rec)
	case key.Matches(msg, kh.keys.Cancel), key.Matches(msg, kh.keys.Back):
		return a.navigateBack()
	}
	return nil
}

// page starts the commit animation after a button press. Presses at the
// edges or during an animation are dropped.
func (a *App) page(res pager.Result) tea.Cmd {
	if res != pager.Committed {
		return nil
	}
	return a.animate()
}
