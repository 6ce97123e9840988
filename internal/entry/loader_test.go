package entry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dictdeck/dictdeck/internal/matchnav"
	"github.com/dictdeck/dictdeck/internal/searchipc"
)

func TestLoadBuildsTabsAndRegistersFrames(t *testing.T) {
	engine := searchipc.NewFakeEngine(7, "Demo Dictionary", []searchipc.FakeEntry{
		{Keyword: "cat", HTML: "<p>a cat is a feline</p>"},
		{Keyword: "dog", HTML: "<p>a dog is a canine</p>"},
	})
	coord := matchnav.New()
	loader := NewLoader(engine, coord)
	loader.SetProfileNames(map[int64]string{7: "Demo Dictionary"})

	ts, err := loader.Load(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, ts.Tabs, 1)

	tab := ts.Tabs[0]
	assert.Equal(t, int64(7), tab.ProfileID)
	assert.Equal(t, "Demo Dictionary", tab.Title)
	assert.Equal(t, "cat", tab.PrimaryKey)
	require.Len(t, tab.Entries, 1)
	assert.Equal(t, 1, coord.FrameCount(), "documents register with the coordinator")

	require.NoError(t, coord.SetHighlight(context.Background(), "cat"))
	assert.Equal(t, 1, tab.Entries[0].Doc.MatchCount())
}

func TestLoadRebuildsRegistry(t *testing.T) {
	engine := searchipc.NewFakeEngine(7, "Demo", []searchipc.FakeEntry{
		{Keyword: "cat", HTML: "<p>cat</p>"},
		{Keyword: "dog", HTML: "<p>dog</p>"},
	})
	coord := matchnav.New()
	loader := NewLoader(engine, coord)

	_, err := loader.Load(context.Background(), 0)
	require.NoError(t, err)
	first := coord.FrameCount()

	_, err = loader.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first, coord.FrameCount(), "registry is rebuilt, not merged")
}

func TestLoadUnknownProfileTitle(t *testing.T) {
	engine := searchipc.NewFakeEngine(42, "whatever", []searchipc.FakeEntry{
		{Keyword: "cat", HTML: "<p>cat</p>"},
	})
	loader := NewLoader(engine, matchnav.New())

	ts, err := loader.Load(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Profile 42", ts.Tabs[0].Title)
}

func TestLoadOutOfRange(t *testing.T) {
	engine := searchipc.NewFakeEngine(7, "Demo", []searchipc.FakeEntry{
		{Keyword: "cat", HTML: "<p>cat</p>"},
	})
	loader := NewLoader(engine, matchnav.New())

	_, err := loader.Load(context.Background(), 99)
	assert.Error(t, err)
}
