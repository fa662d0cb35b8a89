package tui

// View is one screen of the app.
type View int

const (
	ViewLoading View = iota
	ViewFeed
	ViewError
	ViewSaved
	ViewReader
	ViewSearch
	ViewConfirmRemove
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewFeed:
		return "feed"
	case ViewError:
		return "error"
	case ViewSaved:
		return "saved"
	case ViewReader:
		return "reader"
	case ViewSearch:
		return "search"
	case ViewConfirmRemove:
		return "confirm-remove"
	default:
		return "unknown"
	}
}

// Event is something that can move the router to another view.
type Event int

const (
	EventLoaded Event = iota
	EventLoadFailed
	EventRetry
	EventSwitchCategory
	EventOpenSaved
	EventRead
	EventSearch
	EventRemove
)

func (e Event) String() string {
	switch e {
	case EventLoaded:
		return "loaded"
	case EventLoadFailed:
		return "load-failed"
	case EventRetry:
		return "retry"
	case EventSwitchCategory:
		return "switch-category"
	case EventOpenSaved:
		return "open-saved"
	case EventRead:
		return "read"
	case EventSearch:
		return "search"
	case EventRemove:
		return "remove"
	default:
		return "unknown"
	}
}

type transitionKey struct {
	from View
	on   Event
}

type transition struct {
	to View
	// push keeps the current view on the history stack so Back returns to
	// it; otherwise the current view is replaced.
	push bool
}

var transitions = map[transitionKey]transition{
	{ViewLoading, EventLoaded}:         {to: ViewFeed},
	{ViewLoading, EventLoadFailed}:     {to: ViewError},
	{ViewLoading, EventSwitchCategory}: {to: ViewLoading},
	{ViewLoading, EventOpenSaved}:      {to: ViewSaved, push: true},

	{ViewFeed, EventRetry}:          {to: ViewLoading},
	{ViewFeed, EventSwitchCategory}: {to: ViewLoading},
	{ViewFeed, EventOpenSaved}:      {to: ViewSaved, push: true},
	{ViewFeed, EventRead}:           {to: ViewReader, push: true},

	{ViewError, EventRetry}:          {to: ViewLoading},
	{ViewError, EventSwitchCategory}: {to: ViewLoading},
	{ViewError, EventOpenSaved}:      {to: ViewSaved, push: true},

	{ViewSaved, EventRead}:   {to: ViewReader, push: true},
	{ViewSaved, EventSearch}: {to: ViewSearch, push: true},
	{ViewSaved, EventRemove}: {to: ViewConfirmRemove, push: true},

	{ViewSearch, EventRead}:   {to: ViewReader, push: true},
	{ViewSearch, EventRemove}: {to: ViewConfirmRemove, push: true},
}

// Router is the navigation state machine. The bottom of the stack is the
// feed screen (loading, feed or error); everything above it was pushed and
// is popped by Back.
type Router struct {
	stack []View
}

func NewRouter() *Router {
	return &Router{stack: []View{ViewLoading}}
}

func (r *Router) Current() View {
	return r.stack[len(r.stack)-1]
}

// Root is the state of the feed screen underneath any pushed views.
func (r *Router) Root() View {
	return r.stack[0]
}

func (r *Router) Depth() int {
	return len(r.stack)
}

// Fire applies ev to the current view. It reports false and leaves the
// router unchanged when the table has no such transition.
func (r *Router) Fire(ev Event) bool {
	t, ok := transitions[transitionKey{r.Current(), ev}]
	if !ok {
		return false
	}
	if t.push {
		r.stack = append(r.stack, t.to)
	} else {
		r.stack[len(r.stack)-1] = t.to
	}
	return true
}

// FireRoot applies ev to the feed screen even while other views are on top
// of it. Only replacing transitions are allowed there.
func (r *Router) FireRoot(ev Event) bool {
	t, ok := transitions[transitionKey{r.stack[0], ev}]
	if !ok || t.push {
		return false
	}
	r.stack[0] = t.to
	return true
}

// Back pops the current view. The feed screen itself cannot be popped.
func (r *Router) Back() bool {
	if len(r.stack) == 1 {
		return false
	}
	r.stack = r.stack[:len(r.stack)-1]
	return true
}

// Contains reports whether v is anywhere on the stack.
func (r *Router) Contains(v View) bool {
	for _, s := range r.stack {
		if s == v {
			return true
		}
	}
	return false
}
