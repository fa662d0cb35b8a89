package saved

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pders01/flip/internal/debuglog"
	"github.com/pders01/flip/internal/feed"
)

// Outcome describes what a toggle did to the remote store.
type Outcome int

const (
	OutcomeNone Outcome = iota
	// OutcomeSaved: a record was created.
	OutcomeSaved
	// OutcomeUnsaved: the record was deleted.
	OutcomeUnsaved
	// OutcomeAlreadyUnsaved: the store had no record; only the cache changed.
	OutcomeAlreadyUnsaved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeUnsaved:
		return "unsaved"
	case OutcomeAlreadyUnsaved:
		return "already unsaved"
	default:
		return "none"
	}
}

// Synchronizer keeps a local Membership cache consistent with a Store for
// one user. The cache only changes after the store confirms a mutation.
// It is the single place that saves, unsaves, lists and removes records, so
// the feed screen and the saved list share one view of saved state.
type Synchronizer struct {
	store Store
	user  string
	bulk  bool

	membership atomic.Pointer[Membership]
	epoch      atomic.Uint64
	inFlight   atomic.Bool

	// serializes copy-on-write updates of membership
	mu sync.Mutex
	// writes the store confirmed during confirmedEpoch; they win over
	// older check results when a hydration of that epoch lands
	confirmed      map[string]Entry
	confirmedEpoch uint64
}

func NewSynchronizer(store Store, user string) *Synchronizer {
	s := &Synchronizer{store: store, user: user}
	s.membership.Store(emptyMembership)
	return s
}

// SetBulkHydrate makes Hydrate use a single BulkCheck call when the store
// supports it.
func (s *Synchronizer) SetBulkHydrate(enabled bool) {
	s.bulk = enabled
}

func (s *Synchronizer) User() string { return s.user }

// Snapshot returns the current membership. Callers never see a partially
// updated snapshot.
func (s *Synchronizer) Snapshot() *Membership {
	return s.membership.Load()
}

func (s *Synchronizer) IsSaved(url string) bool {
	return s.Snapshot().IsSaved(url)
}

// InFlight reports whether a toggle is running.
func (s *Synchronizer) InFlight() bool {
	return s.inFlight.Load()
}

// BeginEpoch starts a new load generation and returns its token. Hydrations
// started with an older token are discarded when they finish.
func (s *Synchronizer) BeginEpoch() uint64 {
	return s.epoch.Add(1)
}

func (s *Synchronizer) Epoch() uint64 {
	return s.epoch.Load()
}

// Hydrate checks every item against the store and replaces the membership
// with the results. Checks run one at a time in feed order unless bulk
// hydration is enabled and the store supports it. A failed check leaves the
// membership untouched.
func (s *Synchronizer) Hydrate(ctx context.Context, token uint64, items feed.Sequence) error {
	log := debuglog.WithFields(map[string]interface{}{"user": s.user, "epoch": token, "items": len(items)})

	var (
		entries map[string]Entry
		err     error
	)
	if bc, ok := s.store.(BulkChecker); ok && s.bulk {
		entries, err = s.hydrateBulk(ctx, token, bc, items)
	} else {
		entries, err = s.hydrateSequential(ctx, token, items)
	}
	if err != nil {
		if errors.Is(err, ErrStale) {
			log.Debugf("hydration discarded")
		} else {
			log.Warnf("hydration failed: %v", err)
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.epoch.Load() {
		log.Debugf("hydration discarded")
		return ErrStale
	}
	if s.confirmedEpoch == token {
		for url, e := range s.confirmed {
			if _, ok := entries[url]; ok {
				entries[url] = e
			}
		}
	}
	s.membership.Store(NewMembership(entries))
	log.Debugf("hydrated %d entries", len(entries))
	return nil
}

func (s *Synchronizer) hydrateSequential(ctx context.Context, token uint64, items feed.Sequence) (map[string]Entry, error) {
	entries := make(map[string]Entry, len(items))
	for _, it := range items {
		if token != s.epoch.Load() {
			return nil, ErrStale
		}
		res, err := s.store.Check(ctx, s.user, it.URL)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", it.URL, err)
		}
		entries[it.URL] = Entry{Saved: res.Saved, ID: res.ID}
	}
	return entries, nil
}

func (s *Synchronizer) hydrateBulk(ctx context.Context, token uint64, bc BulkChecker, items feed.Sequence) (map[string]Entry, error) {
	if token != s.epoch.Load() {
		return nil, ErrStale
	}
	results, err := bc.BulkCheck(ctx, s.user, items.URLs())
	if err != nil {
		return nil, fmt.Errorf("bulk check: %w", err)
	}
	entries := make(map[string]Entry, len(items))
	for _, it := range items {
		res := results[it.URL]
		entries[it.URL] = Entry{Saved: res.Saved, ID: res.ID}
	}
	return entries, nil
}

// Toggle saves the item if the cache says it is not saved and unsaves it
// otherwise. Only one toggle runs at a time; a concurrent call fails with
// ErrToggleInFlight without touching the store.
func (s *Synchronizer) Toggle(ctx context.Context, it feed.Item) (Outcome, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return OutcomeNone, ErrToggleInFlight
	}
	defer s.inFlight.Store(false)

	log := debuglog.WithFields(map[string]interface{}{"user": s.user, "url": it.URL})

	if s.IsSaved(it.URL) {
		// The cached id may be missing or stale; only the store knows it.
		res, err := s.store.Check(ctx, s.user, it.URL)
		if err != nil {
			log.Warnf("unsave check failed: %v", err)
			return OutcomeNone, fmt.Errorf("checking saved state: %w", err)
		}
		if !res.Saved {
			s.set(it.URL, Entry{})
			log.Infof("already unsaved remotely")
			return OutcomeAlreadyUnsaved, nil
		}
		if res.ID == 0 {
			return OutcomeNone, ErrMissingID
		}
		if err := s.store.Delete(ctx, s.user, res.ID); err != nil {
			log.Warnf("unsave failed: %v", err)
			return OutcomeNone, fmt.Errorf("removing article: %w", err)
		}
		s.set(it.URL, Entry{})
		log.Infof("unsaved id=%d", res.ID)
		return OutcomeUnsaved, nil
	}

	rec, err := s.store.Create(ctx, s.user, DraftFromItem(it))
	if err != nil {
		log.Warnf("save failed: %v", err)
		return OutcomeNone, fmt.Errorf("saving article: %w", err)
	}
	s.set(it.URL, Entry{Saved: true, ID: rec.ID})
	log.Infof("saved id=%d", rec.ID)
	return OutcomeSaved, nil
}

// List fetches every saved record for the user.
func (s *Synchronizer) List(ctx context.Context) ([]Record, error) {
	recs, err := s.store.List(ctx, s.user)
	if err != nil {
		return nil, fmt.Errorf("listing saved articles: %w", err)
	}
	return recs, nil
}

// Remove deletes a record by id. On success the URL is marked not saved in
// the cache so the feed screen agrees with the saved list.
func (s *Synchronizer) Remove(ctx context.Context, rec Record) error {
	if err := s.store.Delete(ctx, s.user, rec.ID); err != nil {
		return fmt.Errorf("removing article: %w", err)
	}
	if rec.URL != "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.confirmLocked(rec.URL, Entry{})
		if _, known := s.membership.Load().Lookup(rec.URL); known {
			s.membership.Store(s.membership.Load().with(rec.URL, Entry{}))
		}
	}
	return nil
}

func (s *Synchronizer) set(url string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmLocked(url, e)
	s.membership.Store(s.membership.Load().with(url, e))
}

// confirmLocked remembers a confirmed write for the current epoch. s.mu
// must be held.
func (s *Synchronizer) confirmLocked(url string, e Entry) {
	if epoch := s.epoch.Load(); s.confirmedEpoch != epoch || s.confirmed == nil {
		s.confirmed = make(map[string]Entry)
		s.confirmedEpoch = epoch
	}
	s.confirmed[url] = e
}
