package pager

import (
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
)

// State is the phase of the paging interaction.
type State int

const (
	Idle State = iota
	Dragging
	Committing
	Settling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	case Settling:
		return "settling"
	default:
		return "unknown"
	}
}

// Result reports what a release or button press did.
type Result int

const (
	// Ignored means the event was dropped (another interaction in flight).
	Ignored Result = iota
	// Committed means the cursor moved and a commit animation started.
	Committed
	// SpringBack means the offset is returning to rest with the cursor unchanged.
	SpringBack
)

func (r Result) String() string {
	switch r {
	case Ignored:
		return "ignored"
	case Committed:
		return "committed"
	case SpringBack:
		return "spring-back"
	default:
		return "unknown"
	}
}

// Sample is the gesture data available at release.
type Sample struct {
	// Translation is the cumulative drag distance along the paging axis.
	// Negative values point towards the next item.
	Translation float64
	// Velocity at release in px/s.
	Velocity float64
}

// Options tune the commit thresholds and animations.
type Options struct {
	ViewportWidth     float64
	CommitRatio       float64
	VelocityThreshold float64
	CommitDuration    time.Duration
	SpringFrequency   float64
	SpringDamping     float64
	FPS               int
}

func DefaultOptions() Options {
	return Options{
		ViewportWidth:     800,
		CommitRatio:       0.3,
		VelocityThreshold: 500,
		CommitDuration:    300 * time.Millisecond,
		SpringFrequency:   7.0,
		SpringDamping:     0.75,
		FPS:               60,
	}
}

const (
	restDistance = 0.5
	restVelocity = 5.0
)

// Machine turns drag input into discrete cursor moves over a sequence of
// length Len. It is not safe for concurrent use; drive it from one event loop.
type Machine struct {
	opts   Options
	state  State
	cursor int
	length int
	offset float64

	// commit animation
	from    float64
	target  float64
	elapsed time.Duration

	// settle animation
	spring   harmonica.Spring
	velocity float64
	carry    time.Duration
}

func New(opts Options) *Machine {
	def := DefaultOptions()
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = def.ViewportWidth
	}
	if opts.CommitRatio <= 0 {
		opts.CommitRatio = def.CommitRatio
	}
	if opts.VelocityThreshold <= 0 {
		opts.VelocityThreshold = def.VelocityThreshold
	}
	if opts.CommitDuration <= 0 {
		opts.CommitDuration = def.CommitDuration
	}
	if opts.SpringFrequency <= 0 {
		opts.SpringFrequency = def.SpringFrequency
	}
	if opts.SpringDamping <= 0 {
		opts.SpringDamping = def.SpringDamping
	}
	if opts.FPS <= 0 {
		opts.FPS = def.FPS
	}

	return &Machine{
		opts:   opts,
		spring: harmonica.NewSpring(harmonica.FPS(opts.FPS), opts.SpringFrequency, opts.SpringDamping),
	}
}

func (m *Machine) State() State     { return m.state }
func (m *Machine) Cursor() int      { return m.cursor }
func (m *Machine) Len() int         { return m.length }
func (m *Machine) Offset() float64  { return m.offset }
func (m *Machine) Options() Options { return m.opts }

// Busy reports whether an animation is running.
func (m *Machine) Busy() bool {
	return m.state == Committing || m.state == Settling
}

// FrameInterval is the tick period matching the spring's time step.
func (m *Machine) FrameInterval() time.Duration {
	return time.Second / time.Duration(m.opts.FPS)
}

// SetViewportWidth updates the paging width, e.g. after a resize.
func (m *Machine) SetViewportWidth(w float64) {
	if w > 0 {
		m.opts.ViewportWidth = w
	}
}

// Reset installs a new sequence length. Any animation is dropped.
func (m *Machine) Reset(length int) {
	if length < 0 {
		length = 0
	}
	m.length = length
	m.cursor = 0
	m.toIdle()
}

// Begin starts a drag. Returns false while another interaction is active.
func (m *Machine) Begin() bool {
	if m.state != Idle {
		return false
	}
	m.state = Dragging
	m.offset = 0
	return true
}

// Drag tracks the cumulative translation while dragging.
func (m *Machine) Drag(translation float64) {
	if m.state != Dragging {
		return
	}
	m.offset = translation
}

// ShouldCommit applies the distance/velocity thresholds to a release sample.
func (m *Machine) ShouldCommit(s Sample) bool {
	return math.Abs(s.Translation) > m.opts.CommitRatio*m.opts.ViewportWidth ||
		math.Abs(s.Velocity) > m.opts.VelocityThreshold
}

// End finishes a drag and decides between a commit and a spring back.
func (m *Machine) End(s Sample) Result {
	if m.state != Dragging {
		return Ignored
	}
	m.offset = s.Translation

	if !m.ShouldCommit(s) {
		m.startSettle()
		return SpringBack
	}

	step := direction(s)
	if step == 0 || !m.inBounds(m.cursor+step) {
		m.startSettle()
		return SpringBack
	}

	m.startCommit(step)
	return Committed
}

// Next advances one item without a gesture.
func (m *Machine) Next() Result { return m.step(1) }

// Previous goes back one item without a gesture.
func (m *Machine) Previous() Result { return m.step(-1) }

func (m *Machine) step(delta int) Result {
	if m.state != Idle || !m.inBounds(m.cursor+delta) {
		return Ignored
	}
	m.startCommit(delta)
	return Committed
}

// Tick advances the running animation by dt and reports whether it is
// still running afterwards.
func (m *Machine) Tick(dt time.Duration) bool {
	switch m.state {
	case Committing:
		m.elapsed += dt
		if m.elapsed >= m.opts.CommitDuration {
			m.toIdle()
			return false
		}
		p := float64(m.elapsed) / float64(m.opts.CommitDuration)
		m.offset = m.from + (m.target-m.from)*easeOutCubic(p)
		return true

	case Settling:
		frame := m.FrameInterval()
		m.carry += dt
		steps := int(m.carry / frame)
		if steps < 1 {
			steps = 1
			m.carry = 0
		} else {
			m.carry -= time.Duration(steps) * frame
		}
		for i := 0; i < steps; i++ {
			m.offset, m.velocity = m.spring.Update(m.offset, m.velocity, 0)
			if math.Abs(m.offset) < restDistance && math.Abs(m.velocity) < restVelocity {
				m.toIdle()
				return false
			}
		}
		return true

	default:
		return false
	}
}

func (m *Machine) startCommit(step int) {
	m.cursor += step
	m.state = Committing
	m.from = m.offset
	// next slides out to the left, previous to the right
	m.target = -float64(step) * m.opts.ViewportWidth
	m.elapsed = 0
}

func (m *Machine) startSettle() {
	m.state = Settling
	m.velocity = 0
	m.carry = 0
}

func (m *Machine) toIdle() {
	m.state = Idle
	m.offset = 0
	m.velocity = 0
	m.elapsed = 0
	m.carry = 0
}

func (m *Machine) inBounds(i int) bool {
	return i >= 0 && i < m.length
}

// direction maps a release to a cursor step: drag left (negative) is next.
func direction(s Sample) int {
	v := s.Translation
	if v == 0 {
		v = s.Velocity
	}
	switch {
	case v < 0:
		return 1
	case v > 0:
		return -1
	default:
		return 0
	}
}

func easeOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}
