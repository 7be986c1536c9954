package model

// TheaterEntry is one theater block normalized from a search API response.
type TheaterEntry struct {
	Theater string     `json:"theater"`
	Address string     `json:"address"`
	Movies  []MovieRow `json:"movies"`
}

type MovieRow struct {
	Title string   `json:"title"`
	Times []string `json:"times"`
}

// DatasetEntry bundles the fetch result of one configured theater. The labels
// come from configuration and are what gets displayed.
type DatasetEntry struct {
	TheaterLabel  string         `json:"theater_label"`
	LocationLabel string         `json:"location_label"`
	Showtimes     []TheaterEntry `json:"showtimes"`
}

// CacheDocument is the persisted shape of a day's dataset.
type CacheDocument struct {
	Date    string         `json:"date"`
	Entries []DatasetEntry `json:"entries"`
}

// FreshFor reports whether the document was produced for date (YYYY-MM-DD).
func (d CacheDocument) FreshFor(date string) bool {
	return date != "" && d.Date == date
}

// MovieItem is a fully denormalized movie ready for rendering.
type MovieItem struct {
	TheaterLabel  string   `json:"theater_label"`
	LocationLabel string   `json:"location_label"`
	TheaterName   string   `json:"theater_name"`
	Address       string   `json:"address"`
	Title         string   `json:"title"`
	Times         []string `json:"times"`
	DateStamp     string   `json:"date_stamp"`
}

// TheaterGroup holds the movies of one configured theater in display order.
// Groups are never empty.
type TheaterGroup []MovieItem
