package feed

import (
	"context"
	"sync/atomic"

	"github.com/pders01/flip/internal/debuglog"
)

// Loader wraps a Source and tags each load with an epoch so that a slow
// fetch for an old category cannot overwrite a newer one.
type Loader struct {
	source Source
	epoch  atomic.Uint64
}

func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// Begin starts a new load and returns its token. Earlier tokens go stale.
func (l *Loader) Begin() uint64 {
	return l.epoch.Add(1)
}

func (l *Loader) Current(token uint64) bool {
	return l.epoch.Load() == token
}

// Load fetches category for token. It returns ErrStale when another load
// began while this one was in flight.
func (l *Loader) Load(ctx context.Context, token uint64, category Category) (Sequence, error) {
	if !l.Current(token) {
		return nil, ErrStale
	}

	seq, err := l.source.Fetch(ctx, category)
	if !l.Current(token) {
		debuglog.WithFields(map[string]interface{}{
			"category": category,
			"token":    token,
		}).Debugf("dropping stale feed result")
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	return seq, nil
}
