package saved

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

var errNetwork = errors.New("connection refused")

type temporaryErr struct{ error }

func (temporaryErr) Temporary() bool  { return true }
func (e temporaryErr) Unwrap() error { return e.error }

// fakeStore is an in-memory Store that records calls and can inject failures.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]Record // by URL

	checks      []string
	bulkChecks  int
	creates     int
	deletes     []int64
	failCheck   error
	failCreate  error
	failDelete  error
	failList    error
	checkHook   func(url string)
	createBlock chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]Record{}, nextID: 1}
}

func (f *fakeStore) seed(url string, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[url] = Record{ID: id, URL: url, Title: url, SavedAt: time.Unix(id, 0)}
	if id >= f.nextID {
		f.nextID = id + 1
	}
}

func (f *fakeStore) Check(_ context.Context, _ string, url string) (CheckResult, error) {
	if f.checkHook != nil {
		f.checkHook(url)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, url)
	if f.failCheck != nil {
		return CheckResult{}, f.failCheck
	}
	if r, ok := f.records[url]; ok {
		return CheckResult{Saved: true, ID: r.ID}, nil
	}
	return CheckResult{}, nil
}

func (f *fakeStore) Create(_ context.Context, _ string, d Draft) (Record, error) {
	if f.createBlock != nil {
		<-f.createBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.failCreate != nil {
		return Record{}, f.failCreate
	}
	if err := d.Validate(); err != nil {
		return Record{}, err
	}
	if _, ok := f.records[d.URL]; ok {
		return Record{}, ErrDuplicate
	}
	rec := d.Record(f.nextID, time.Unix(f.nextID, 0))
	f.nextID++
	f.records[d.URL] = rec
	return rec, nil
}

func (f *fakeStore) Delete(_ context.Context, _ string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.failDelete != nil {
		return f.failDelete
	}
	for url, r := range f.records {
		if r.ID == id {
			delete(f.records, url)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) List(_ context.Context, _ string) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]Record, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

// bulkFakeStore adds BulkCheck on top of fakeStore.
type bulkFakeStore struct {
	*fakeStore
}

func (b bulkFakeStore) BulkCheck(ctx context.Context, user string, urls []string) (map[string]CheckResult, error) {
	b.mu.Lock()
	b.bulkChecks++
	fail := b.failCheck
	b.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	out := make(map[string]CheckResult, len(urls))
	for _, u := range urls {
		b.mu.Lock()
		r, ok := b.records[u]
		b.mu.Unlock()
		if ok {
			out[u] = CheckResult{Saved: true, ID: r.ID}
		} else {
			out[u] = CheckResult{}
		}
	}
	return out, nil
}
