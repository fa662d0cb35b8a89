package pager

import "time"

const velocityWindow = 100 * time.Millisecond

type point struct {
	x  float64
	at time.Time
}

// Tracker accumulates pointer positions for one drag and derives the
// translation and release velocity.
type Tracker struct {
	origin  float64
	points  []point
	started bool
}

func (t *Tracker) Start(x float64, at time.Time) {
	t.origin = x
	t.points = append(t.points[:0], point{x: x, at: at})
	t.started = true
}

func (t *Tracker) Add(x float64, at time.Time) {
	if !t.started {
		t.Start(x, at)
		return
	}
	t.points = append(t.points, point{x: x, at: at})
	// keep the slice small; only the trailing window matters for velocity
	if len(t.points) > 64 {
		t.points = append(t.points[:0], t.points[len(t.points)-32:]...)
	}
}

func (t *Tracker) Active() bool { return t.started }

func (t *Tracker) Translation() float64 {
	if len(t.points) == 0 {
		return 0
	}
	return t.points[len(t.points)-1].x - t.origin
}

// Velocity is the average px/s over the trailing window.
func (t *Tracker) Velocity() float64 {
	if len(t.points) < 2 {
		return 0
	}
	last := t.points[len(t.points)-1]
	first := last
	for i := len(t.points) - 2; i >= 0; i-- {
		if last.at.Sub(t.points[i].at) > velocityWindow {
			break
		}
		first = t.points[i]
	}
	dt := last.at.Sub(first.at).Seconds()
	if dt <= 0 {
		return 0
	}
	return (last.x - first.x) / dt
}

// Sample finishes the drag and returns its release data.
func (t *Tracker) Sample() Sample {
	s := Sample{Translation: t.Translation(), Velocity: t.Velocity()}
	t.points = t.points[:0]
	t.started = false
	return s
}
