package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/flip/internal/debuglog"
	"github.com/pders01/flip/internal/pager"
)

// handleMouse turns left-button drags on the feed screen into pager
// gestures. Columns are scaled by the configured cell width so the pager
// thresholds work in px.
func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	x := float64(msg.X) * a.cellWidth
	now := a.now()

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		// a release outside the window leaves the drag open; restart it
		if a.pager.State() == pager.Dragging || a.pager.Begin() {
			a.tracker.Start(x, now)
		}

	case tea.MouseActionMotion:
		if !a.tracker.Active() {
			return nil
		}
		a.tracker.Add(x, now)
		a.pager.Drag(a.tracker.Translation())

	case tea.MouseActionRelease:
		if !a.tracker.Active() {
			return nil
		}
		a.tracker.Add(x, now)
		sample := a.tracker.Sample()
		res := a.pager.End(sample)
		debuglog.WithFields(map[string]interface{}{
			"translation": sample.Translation,
			"velocity":    sample.Velocity,
			"cursor":      a.pager.Cursor(),
		}).Debugf("gesture %s", res)
		return a.animate()
	}
	return nil
}

// animate starts the frame loop if the pager has an animation running and
// no loop is active yet.
func (a *App) animate() tea.Cmd {
	if !a.pager.Busy() || a.animating {
		return nil
	}
	a.animating = true
	a.frameSeq++
	a.lastFrame = a.now()
	return a.nextFrame(a.frameSeq)
}

func (a *App) nextFrame(seq int) tea.Cmd {
	return tea.Tick(a.pager.FrameInterval(), func(t time.Time) tea.Msg {
		return frameMsg{seq: seq, at: t}
	})
}

func (a *App) advanceFrame(msg frameMsg) tea.Cmd {
	if !a.animating || msg.seq != a.frameSeq {
		return nil
	}
	dt := msg.at.Sub(a.lastFrame)
	if dt <= 0 {
		dt = a.pager.FrameInterval()
	}
	a.lastFrame = msg.at
	if a.pager.Tick(dt) {
		return a.nextFrame(msg.seq)
	}
	a.animating = false
	return nil
}

// stopAnimation drops any running frame loop, e.g. after the pager was reset.
func (a *App) stopAnimation() {
	a.animating = false
	a.frameSeq++
	a.tracker = pager.Tracker{}
}
