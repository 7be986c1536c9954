package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"showtimes-console/model"
	"showtimes-console/rotation"
)

// WriteListing prints every movie of the dataset as one table, theater by
// theater, and returns the number of movie rows written. The footer counts
// individual showtimes.
func WriteListing(out io.Writer, entries []model.DatasetEntry, date string) int {
	groups := rotation.Group(entries, date)

	rowConfigAutoMerge := table.RowConfig{AutoMerge: true}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("Showtimes for %s", date)
	t.AppendHeader(table.Row{"Theater", "Location", "Movie", "Times"}, rowConfigAutoMerge)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true, WidthMax: 30},
		{Number: 2, AutoMerge: true, WidthMax: 30},
		{Number: 3, WidthMax: maxTitleRunes},
	})
	t.Style().Options.SeparateRows = true

	rows, showtimes := 0, 0
	for _, group := range groups {
		var items []table.Row
		for _, item := range group {
			theater := item.TheaterName
			if item.Address != "" {
				theater += "\n" + item.Address
			}
			times := "(none listed)"
			if len(item.Times) > 0 {
				times = strings.Join(item.Times, "\n")
			}
			showtimes += len(item.Times)
			items = append(items, table.Row{theater, item.LocationLabel, item.Title, times})
		}
		rows += len(items)
		t.AppendRows(items, rowConfigAutoMerge)
		t.AppendSeparator()
	}
	t.AppendFooter(table.Row{"", "", "Total showtime entries", fmt.Sprintf("%d", showtimes)})
	t.Render()
	return rows
}
