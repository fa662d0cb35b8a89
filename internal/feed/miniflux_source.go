package feed

import (
	"context"
	"fmt"
	"strings"

	miniflux "miniflux.app/v2/client"
)

const minifluxPageSize = 50

// MinifluxSource reads a category's entries from a miniflux instance.
type MinifluxSource struct {
	client *miniflux.Client
	lookup func(Category) (CategoryInfo, bool)
}

func NewMinifluxSource(endpoint, apiKey string) *MinifluxSource {
	return &MinifluxSource{
		client: miniflux.NewClient(endpoint, apiKey),
		lookup: LookupCategory,
	}
}

func (s *MinifluxSource) Fetch(ctx context.Context, category Category) (Sequence, error) {
	info, ok := s.lookup(category)
	if !ok || info.MinifluxID == 0 {
		return nil, fmt.Errorf("category %q has no miniflux mapping", category)
	}

	result, err := s.client.CategoryEntriesContext(ctx, info.MinifluxID, &miniflux.Filter{
		Order:     "published_at",
		Direction: "desc",
		Limit:     minifluxPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching miniflux entries: %w", err)
	}

	return entriesToSequence(result.Entries), nil
}

func entriesToSequence(entries []*miniflux.Entry) Sequence {
	seq := make(Sequence, 0, len(entries))
	for _, e := range entries {
		if e == nil || strings.TrimSpace(e.URL) == "" {
			continue
		}
		item := Item{
			URL:         strings.TrimSpace(e.URL),
			Title:       strings.TrimSpace(e.Title),
			Description: Summarize(e.Content),
		}
		if e.Feed != nil {
			item.SourceName = e.Feed.Title
		}
		if !e.Date.IsZero() {
			published := e.Date
			item.PublishedAt = &published
		}
		for _, enc := range e.Enclosures {
			if strings.HasPrefix(enc.MimeType, "image/") {
				item.ImageURL = enc.URL
				break
			}
		}
		seq = append(seq, item)
	}
	return seq
}
