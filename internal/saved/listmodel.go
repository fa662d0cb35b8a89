package saved

import (
	"context"
	"sync"
)

// ListModel holds the saved-items collection for the saved view. Records
// are only dropped after the store confirms the delete.
type ListModel struct {
	sync    *Synchronizer
	mu      sync.RWMutex
	records []Record
	loaded  bool
}

func NewListModel(s *Synchronizer) *ListModel {
	return &ListModel{sync: s}
}

// Load replaces the list with the store's current collection. On failure
// the previous list is kept.
func (l *ListModel) Load(ctx context.Context) error {
	recs, err := l.sync.List(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.records = recs
	l.loaded = true
	l.mu.Unlock()
	return nil
}

// Remove deletes the record with id. The in-memory list is pruned only
// when the delete succeeds.
func (l *ListModel) Remove(ctx context.Context, id int64) error {
	rec, ok := l.Find(id)
	if !ok {
		rec = Record{ID: id}
	}
	if err := l.sync.Remove(ctx, rec); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	kept := make([]Record, 0, len(l.records))
	for _, r := range l.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	l.records = kept
	return nil
}

func (l *ListModel) Find(id int64) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Items returns a copy of the records in display order.
func (l *ListModel) Items() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *ListModel) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func (l *ListModel) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}
