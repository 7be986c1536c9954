package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showtimes-console/model"
)

func entry(label string, movies ...string) model.DatasetEntry {
	rows := []model.MovieRow{}
	for _, title := range movies {
		rows = append(rows, model.MovieRow{Title: title, Times: []string{"7:00 PM"}})
	}
	return model.DatasetEntry{
		TheaterLabel:  label,
		LocationLabel: "San Francisco, CA",
		Showtimes: []model.TheaterEntry{{
			Theater: "Name From API",
			Address: "1 Main St",
			Movies:  rows,
		}},
	}
}

func TestGroup_OrderAndLabels(t *testing.T) {
	entries := []model.DatasetEntry{
		entry("Roxie", "Amélie", "Brazil"),
		entry("Empty"),
		{TheaterLabel: "No Showtimes", LocationLabel: "SF"},
		entry("Castro", "Vertigo"),
	}

	groups := Group(entries, "2026-02-03")
	require.Len(t, groups, 2)

	require.Len(t, groups[0], 2)
	assert.Equal(t, "Amélie", groups[0][0].Title)
	assert.Equal(t, "Brazil", groups[0][1].Title)
	assert.Equal(t, "Vertigo", groups[1][0].Title)

	for _, group := range groups {
		for _, item := range group {
			assert.NotEqual(t, "Name From API", item.TheaterName)
			assert.Equal(t, item.TheaterLabel, item.TheaterName)
			assert.Equal(t, "San Francisco, CA", item.LocationLabel)
			assert.Equal(t, "1 Main St", item.Address)
			assert.Equal(t, "2026-02-03", item.DateStamp)
		}
	}
}

func TestGroup_Defaults(t *testing.T) {
	entries := []model.DatasetEntry{{
		Showtimes: []model.TheaterEntry{{Movies: []model.MovieRow{{}}}},
	}}

	groups := Group(entries, "2026-02-03")
	require.Len(t, groups, 1)
	assert.Equal(t, "Unknown Theater", groups[0][0].TheaterName)
	assert.Equal(t, "(title unknown)", groups[0][0].Title)
	assert.NotNil(t, groups[0][0].Times)
}

func TestGroup_MultipleTheaterBlocksShareGroup(t *testing.T) {
	entries := []model.DatasetEntry{{
		TheaterLabel: "Metreon",
		Showtimes: []model.TheaterEntry{
			{Address: "A", Movies: []model.MovieRow{{Title: "One"}}},
			{Address: "B", Movies: []model.MovieRow{{Title: "Two"}}},
		},
	}}

	groups := Group(entries, "2026-02-03")
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 2)
	assert.Equal(t, "A", groups[0][0].Address)
	assert.Equal(t, "B", groups[0][1].Address)
}

func TestGroup_ItemsDoNotAliasInput(t *testing.T) {
	entries := []model.DatasetEntry{entry("Roxie", "Amélie")}
	groups := Group(entries, "2026-02-03")

	entries[0].Showtimes[0].Movies[0].Times[0] = "changed"
	assert.Equal(t, "7:00 PM", groups[0][0].Times[0])
}

func TestCursor_Cycle(t *testing.T) {
	groups := []model.TheaterGroup{make(model.TheaterGroup, 2), make(model.TheaterGroup, 3)}

	type pos struct{ g, m int }
	var visited []pos
	c := Cursor{}
	for i := 0; i < 11; i++ {
		gi, mi, ok := c.Resolve(groups)
		require.True(t, ok)
		visited = append(visited, pos{gi, mi})
		c = c.Advance(len(groups[gi]))
	}

	assert.Equal(t, []pos{
		{0, 0}, {0, 1}, {1, 0}, {1, 1}, {1, 2},
		{0, 0}, {0, 1}, {1, 0}, {1, 1}, {1, 2},
		{0, 0},
	}, visited)
}

func TestCursor_ResolveEmpty(t *testing.T) {
	_, _, ok := Cursor{}.Resolve(nil)
	assert.False(t, ok)

	gi, mi, ok := Cursor{Theater: 7, Movie: 4}.Resolve([]model.TheaterGroup{make(model.TheaterGroup, 3)})
	require.True(t, ok)
	assert.Equal(t, 0, gi)
	assert.Equal(t, 1, mi)
}
