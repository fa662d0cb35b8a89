// Package search indexes saved articles for the saved-list filter.
package search

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/flip/internal/debuglog"
	"github.com/pders01/flip/internal/saved"
)

// Searcher is what the saved-list view needs from an index.
type Searcher interface {
	Search(query string, limit int) ([]int64, error)
}

// Index is an in-memory bleve index over one user's saved records. It is
// rebuilt from the list whenever the list is reloaded.
type Index struct {
	idx bleve.Index

	mu  sync.Mutex
	ids map[string]struct{}
}

var _ Searcher = (*Index)(nil)

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	return &Index{idx: idx, ids: make(map[string]struct{})}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name

	source := bleve.NewTextFieldMapping()
	source.Analyzer = standard.Name

	url := bleve.NewTextFieldMapping()
	url.Analyzer = standard.Name

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("source", source)
	dm.AddFieldMappingsAt("url", url)

	im.DefaultMapping = dm
	return im
}

func docID(id int64) string { return strconv.FormatInt(id, 10) }

// Replace makes the index hold exactly records.
func (i *Index) Replace(records []saved.Record) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.idx.NewBatch()
	for id := range i.ids {
		batch.Delete(id)
	}
	next := make(map[string]struct{}, len(records))
	for _, r := range records {
		id := docID(r.ID)
		if err := batch.Index(id, map[string]any{
			"title":       r.Title,
			"description": r.Description,
			"source":      r.Source,
			"url":         r.URL,
		}); err != nil {
			return fmt.Errorf("indexing record %d: %w", r.ID, err)
		}
		next[id] = struct{}{}
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("updating search index: %w", err)
	}
	i.ids = next

	debuglog.WithFields(map[string]interface{}{"docs": len(next)}).Debugf("search index rebuilt")
	return nil
}

func (i *Index) Remove(id int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.idx.Delete(docID(id)); err != nil {
		return err
	}
	delete(i.ids, docID(id))
	return nil
}

// Search returns matching record ids, best match first. Queries shorter
// than two characters match nothing.
func (i *Index) Search(query string, limit int) ([]int64, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return []int64{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	fields := []struct {
		name  string
		boost float64
	}{
		{"title", 4.0},
		{"description", 2.0},
		{"source", 1.0},
		{"url", 0.5},
	}

	var qs []bleveQuery.Query
	for _, tok := range tokens {
		for _, f := range fields {
			qm := bleve.NewMatchQuery(tok)
			qm.SetField(f.name)
			qm.SetBoost(f.boost)
			qs = append(qs, qm)

			qp := bleve.NewPrefixQuery(tok)
			qp.SetField(f.name)
			qp.SetBoost(f.boost * 0.8)
			qs = append(qs, qp)
		}
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching saved articles: %w", err)
	}

	out := make([]int64, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// DocCount reports the number of indexed records.
func (i *Index) DocCount() (int, error) {
	n, err := i.idx.DocCount()
	return int(n), err
}

func (i *Index) Close() error {
	return i.idx.Close()
}

func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	flush := func() {
		if current.Len() > 1 {
			terms = append(terms, current.String())
		}
		current.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return terms
}
