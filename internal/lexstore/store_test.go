package lexstore

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "lex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	ver, err := s.GetMeta("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "1", ver)

	n, err := s.HistoryCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lex.db")

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.AddHistory(HistoryEntry{Keyword: "cat", ProfileID: 1})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.HistoryCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHistoryOrderAndRoundTrip(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	groups := json.RawMessage(`[{"profile_id":1,"key":"cat"}]`)
	for i, kw := range []string{"alpha", "beta", "gamma"} {
		_, err := s.AddHistory(HistoryEntry{
			Keyword:     kw,
			Groups:      groups,
			ProfileID:   1,
			ProfileName: "Test Dict",
			VisitedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := s.History(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "gamma", entries[0].Keyword)
	assert.Equal(t, "alpha", entries[2].Keyword)
	assert.Equal(t, "Test Dict", entries[0].ProfileName)
	assert.JSONEq(t, string(groups), string(entries[0].Groups))

	limited, err := s.History(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestHistoryPrunesOldestPastCap(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetMaxHistorySize(3))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := s.AddHistory(HistoryEntry{
			Keyword:   string(rune('a' + i)),
			ProfileID: 1,
			VisitedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := s.History(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// newest three survive
	assert.Equal(t, "e", entries[0].Keyword)
	assert.Equal(t, "c", entries[2].Keyword)
}

func TestRemoveAndClearHistory(t *testing.T) {
	s := openTestStore(t)

	e, err := s.AddHistory(HistoryEntry{Keyword: "cat", ProfileID: 1})
	require.NoError(t, err)
	_, err = s.AddHistory(HistoryEntry{Keyword: "dog", ProfileID: 1})
	require.NoError(t, err)

	require.NoError(t, s.RemoveHistory(e.ID))
	n, err := s.HistoryCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.HistoryByID(e.ID)
	assert.Error(t, err)

	require.NoError(t, s.ClearHistory())
	n, err = s.HistoryCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFavoriteAddIsUniquePerKeywordProfile(t *testing.T) {
	s := openTestStore(t)

	first, err := s.AddFavorite(FavoriteEntry{Keyword: "cat", ProfileID: 1})
	require.NoError(t, err)
	second, err := s.AddFavorite(FavoriteEntry{Keyword: "cat", ProfileID: 1})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// same keyword in another profile is a separate favorite
	_, err = s.AddFavorite(FavoriteEntry{Keyword: "cat", ProfileID: 2})
	require.NoError(t, err)

	n, err := s.FavoritesCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestToggleFavorite(t *testing.T) {
	s := openTestStore(t)
	e := FavoriteEntry{Keyword: "cat", ProfileID: 1}

	on, err := s.ToggleFavorite(e)
	require.NoError(t, err)
	assert.True(t, on)

	fav, err := s.IsFavorited("cat", 1)
	require.NoError(t, err)
	assert.True(t, fav)

	on, err = s.ToggleFavorite(e)
	require.NoError(t, err)
	assert.False(t, on)

	fav, err = s.IsFavorited("cat", 1)
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestFavoritesSortAndFilter(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	add := func(kw string, profile int64, offset time.Duration) {
		_, err := s.AddFavorite(FavoriteEntry{
			Keyword:   kw,
			ProfileID: profile,
			AddedAt:   base.Add(offset),
		})
		require.NoError(t, err)
	}
	add("Zebra", 1, 0)
	add("apple", 1, time.Minute)
	add("Mango", 2, 2*time.Minute)

	byTime, err := s.Favorites(FavoritesQuery{SortBy: SortByTime})
	require.NoError(t, err)
	require.Len(t, byTime, 3)
	assert.Equal(t, "Mango", byTime[0].Keyword)
	assert.Equal(t, "Zebra", byTime[2].Keyword)

	// collation is case-insensitive, so apple sorts before Mango and Zebra
	byName, err := s.Favorites(FavoritesQuery{SortBy: SortByName})
	require.NoError(t, err)
	require.Len(t, byName, 3)
	assert.Equal(t, "apple", byName[0].Keyword)
	assert.Equal(t, "Mango", byName[1].Keyword)
	assert.Equal(t, "Zebra", byName[2].Keyword)

	onlyP1, err := s.Favorites(FavoritesQuery{ProfileID: 1})
	require.NoError(t, err)
	assert.Len(t, onlyP1, 2)

	filtered, err := s.Favorites(FavoritesQuery{Contains: "an"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Mango", filtered[0].Keyword)
}

func TestFavoritesCollationLocale(t *testing.T) {
	s := openTestStore(t)
	s.SetCollation(language.Swedish)

	for _, kw := range []string{"örn", "apa", "zebra"} {
		_, err := s.AddFavorite(FavoriteEntry{Keyword: kw, ProfileID: 1})
		require.NoError(t, err)
	}

	// Swedish sorts ö after z
	byName, err := s.Favorites(FavoritesQuery{SortBy: SortByName})
	require.NoError(t, err)
	require.Len(t, byName, 3)
	assert.Equal(t, "apa", byName[0].Keyword)
	assert.Equal(t, "zebra", byName[1].Keyword)
	assert.Equal(t, "örn", byName[2].Keyword)
}

func TestMaxHistorySizeDefaultsAndValidation(t *testing.T) {
	s := openTestStore(t)

	n, err := s.MaxHistorySize()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxHistorySize, n)

	assert.Error(t, s.SetMaxHistorySize(0))
	require.NoError(t, s.SetMaxHistorySize(50))

	n, err = s.MaxHistorySize()
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestMetadataRoundTrip(t *testing.T) {
	s := openTestStore(t)

	v, err := s.GetMeta("missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.SetMeta("theme", "dark"))
	v, err = s.GetMeta("theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)
}
