// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package paperstore

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreview/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePaper(id string) types.UnifiedPaper {
	return types.UnifiedPaper{
		ID:       id,
		Title:    "Metformin outcomes",
		Abstract: "A cohort study.",
		Authors:  []string{"Garcia M", "Chen L"},
		Journal:  "J Med",
		Year:     2021,
		DOI:      "10.1000/" + id,
		Source:   types.SourcePubMed,
	}
}

func TestStoreRoundtrip(t *testing.T) {
	s := openTestStore(t)

	want := samplePaper("12345")
	require.NoError(t, s.Put(want))

	got, found, err := s.Get("12345")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestStoreGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, found, err := s.Get("nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorePutUpserts(t *testing.T) {
	s := openTestStore(t)

	p := samplePaper("1")
	require.NoError(t, s.Put(p))

	p.Title = "Updated title"
	require.NoError(t, s.Put(p))

	got, found, err := s.Get("1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Updated title", got.Title)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Papers)
}

func TestStorePutAllAndStats(t *testing.T) {
	s := openTestStore(t)

	papers := []types.UnifiedPaper{
		samplePaper("1"),
		samplePaper("2"),
		{ID: "W1", Title: "Open paper", Source: types.SourceOpenAlex},
	}
	require.NoError(t, s.PutAll(papers))

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Papers)
	assert.Equal(t, 2, st.BySource[types.SourcePubMed])
	assert.Equal(t, 1, st.BySource[types.SourceOpenAlex])
}

func TestStoreClear(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(samplePaper("1")))
	require.NoError(t, s.Clear())

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, st.Papers)
}

func TestStoreExport(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(samplePaper("77")))

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf))

	out := buf.String()
	assert.True(t, strings.Contains(out, "papers:"))
	assert.True(t, strings.Contains(out, "Metformin outcomes"))
	assert.True(t, strings.Contains(out, "Garcia M"))
}
