package rotation

import "showtimes-console/model"

const (
	unknownTheater = "Unknown Theater"
	unknownTitle   = "(title unknown)"
)

// Group flattens the dataset into one group per configured theater, keeping
// configuration order and movie order. The configured label is always the
// theater name shown, whatever the API called it. Theaters without movies
// are left out.
func Group(entries []model.DatasetEntry, dateStamp string) []model.TheaterGroup {
	groups := []model.TheaterGroup{}
	for _, entry := range entries {
		name := entry.TheaterLabel
		if name == "" {
			name = unknownTheater
		}

		var group model.TheaterGroup
		for _, theater := range entry.Showtimes {
			for _, movie := range theater.Movies {
				title := movie.Title
				if title == "" {
					title = unknownTitle
				}
				times := make([]string, len(movie.Times))
				copy(times, movie.Times)
				group = append(group, model.MovieItem{
					TheaterLabel:  entry.TheaterLabel,
					LocationLabel: entry.LocationLabel,
					TheaterName:   name,
					Address:       theater.Address,
					Title:         title,
					Times:         times,
					DateStamp:     dateStamp,
				})
			}
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

// Cursor points at a movie within a theater group. Both indexes are reduced
// modulo the current sizes when resolved.
type Cursor struct {
	Theater int
	Movie   int
}

// Resolve returns the group and item indexes the cursor points at. It reports
// false when there is nothing to point at.
func (c Cursor) Resolve(groups []model.TheaterGroup) (int, int, bool) {
	if len(groups) == 0 {
		return 0, 0, false
	}
	gi := mod(c.Theater, len(groups))
	if len(groups[gi]) == 0 {
		return 0, 0, false
	}
	return gi, mod(c.Movie, len(groups[gi])), true
}

// Advance moves to the next movie, wrapping to the next theater once the
// current group of groupSize movies has been shown.
func (c Cursor) Advance(groupSize int) Cursor {
	c.Movie++
	if c.Movie >= groupSize {
		c.Movie = 0
		c.Theater++
	}
	return c
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
