package saved

import "sort"

// Entry is the cached saved state of one URL.
type Entry struct {
	Saved bool
	// ID is the remote record id when known, 0 otherwise.
	ID int64
}

// Membership is an immutable snapshot of saved state per URL. A URL that is
// absent has not been checked yet and reads as not saved.
type Membership struct {
	entries map[string]Entry
}

var emptyMembership = &Membership{entries: map[string]Entry{}}

func NewMembership(entries map[string]Entry) *Membership {
	cp := make(map[string]Entry, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &Membership{entries: cp}
}

func (m *Membership) Lookup(url string) (Entry, bool) {
	e, ok := m.entries[url]
	return e, ok
}

func (m *Membership) IsSaved(url string) bool {
	return m.entries[url].Saved
}

func (m *Membership) Len() int { return len(m.entries) }

// SavedURLs lists the URLs marked saved, sorted.
func (m *Membership) SavedURLs() []string {
	var urls []string
	for u, e := range m.entries {
		if e.Saved {
			urls = append(urls, u)
		}
	}
	sort.Strings(urls)
	return urls
}

// with returns a copy of m with url set to e.
func (m *Membership) with(url string, e Entry) *Membership {
	cp := make(map[string]Entry, len(m.entries)+1)
	for k, v := range m.entries {
		cp[k] = v
	}
	cp[url] = e
	return &Membership{entries: cp}
}
