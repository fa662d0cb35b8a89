package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/flip/internal/debuglog"
)

// RSSSource merges the RSS feeds listed for a category in the embedded
// category table. Feeds are fetched concurrently; the merged sequence is
// newest first with undated items last.
type RSSSource struct {
	fetcher *Fetcher
	parser  *Parser
	lookup  func(Category) (CategoryInfo, bool)
}

func NewRSSSource(fetcher *Fetcher) *RSSSource {
	return &RSSSource{
		fetcher: fetcher,
		parser:  NewParser(),
		lookup:  LookupCategory,
	}
}

func (s *RSSSource) Fetch(ctx context.Context, category Category) (Sequence, error) {
	info, ok := s.lookup(category)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	if len(info.RSS) == 0 {
		return Sequence{}, nil
	}

	results := make([]Sequence, len(info.RSS))
	errs := make([]error, len(info.RSS))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, url := range info.RSS {
		g.Go(func() error {
			seq, err := s.fetchOne(gctx, url)
			if err != nil {
				debuglog.WithFields(map[string]interface{}{
					"category": category,
					"url":      url,
				}).Warnf("feed fetch failed: %v", err)
				errs[i] = err
				return nil
			}
			results[i] = seq
			return nil
		})
	}
	_ = g.Wait()

	var merged Sequence
	seen := make(map[string]bool)
	failed := 0
	for i, seq := range results {
		if errs[i] != nil {
			failed++
			continue
		}
		for _, item := range seq {
			if seen[item.URL] {
				continue
			}
			seen[item.URL] = true
			merged = append(merged, item)
		}
	}

	if failed == len(info.RSS) {
		return nil, fmt.Errorf("loading %s: %w", info.Title, errors.Join(errs...))
	}

	sortNewestFirst(merged)
	if merged == nil {
		merged = Sequence{}
	}
	return merged, nil
}

func (s *RSSSource) fetchOne(ctx context.Context, url string) (Sequence, error) {
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return s.parser.Parse(body)
}

func sortNewestFirst(seq Sequence) {
	sort.SliceStable(seq, func(i, j int) bool {
		a, b := seq[i].PublishedAt, seq[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
