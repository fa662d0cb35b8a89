package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/flip/internal/saved"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.Replace([]saved.Record{
		{ID: 1, Title: "Rescued owl returns home", Description: "A happy ending in the valley", URL: "https://a.test/owl", Source: "Good News Daily"},
		{ID: 2, Title: "Volunteers plant a forest", Description: "Ten thousand trees", URL: "https://a.test/forest", Source: "Town Crier"},
		{ID: 3, Title: "Library opens late", Description: "Owl-themed reading nights", URL: "https://a.test/library", Source: "Town Crier"},
	}))
	return idx
}

func TestIndex_SearchRanksTitleFirst(t *testing.T) {
	idx := newTestIndex(t)

	ids, err := idx.Search("owl", 10)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, int64(1), ids[0], "title hit outranks description hit")
	assert.Equal(t, int64(3), ids[1])
}

func TestIndex_PrefixAndSource(t *testing.T) {
	idx := newTestIndex(t)

	ids, err := idx.Search("volunt", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)

	ids, err = idx.Search("crier", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3}, ids)
}

func TestIndex_ShortQueryMatchesNothing(t *testing.T) {
	idx := newTestIndex(t)

	for _, q := range []string{"", " ", "a", "!!"} {
		ids, err := idx.Search(q, 10)
		require.NoError(t, err)
		assert.Empty(t, ids, q)
	}
}

func TestIndex_ReplaceAndRemove(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Remove(1))
	ids, err := idx.Search("owl", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)

	require.NoError(t, idx.Replace([]saved.Record{{ID: 9, Title: "Owl sanctuary expands"}}))
	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "replace drops records that are gone")

	ids, err = idx.Search("owl", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, ids)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"good", "news", "2025"}, tokenize("Good-news, 2025!"))
	assert.Empty(t, tokenize("a b c"))
}
