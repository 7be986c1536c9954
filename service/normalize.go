package service

import (
	"fmt"
	"strconv"
	"strings"

	"showtimes-console/model"
)

const (
	maxTimesPerMovie = 8

	unknownTheater = "Unknown Theater"
	unknownTitle   = "(title unknown)"
)

// Field lookups, tried in order; the first non-empty value wins.
var (
	theaterNameKeys = []string{"theater_name", "name"}
	addressKeys     = []string{"address", "address_line", "full_address"}
	movieListKeys   = []string{"movies", "showing"}
	titleKeys       = []string{"title", "name", "film_name"}
	timeBlockKeys   = []string{"showtimes", "times", "showing"}
	timeValueKeys   = []string{"time", "start_time", "start"}
	timeLabelKeys   = []string{"type", "format", "ticket_type"}
)

// Normalize converts a raw search response into theater entries. Only the
// first showtimes entry (today) and, when movies are split by day, only the
// first day are kept. Malformed input degrades to defaults; it never fails.
func Normalize(payload RawPayload) []model.TheaterEntry {
	days := asList(payload["showtimes"])
	if len(days) == 0 {
		return []model.TheaterEntry{}
	}
	entry, ok := days[0].(map[string]any)
	if !ok {
		return []model.TheaterEntry{}
	}

	theater := model.TheaterEntry{
		Theater: firstString(entry, theaterNameKeys, unknownTheater),
		Address: firstString(entry, addressKeys, ""),
		Movies:  []model.MovieRow{},
	}

	movies := firstList(entry, movieListKeys)
	if len(movies) > 0 {
		if today, ok := movies[0].([]any); ok {
			movies = today
		}
	}
	for _, raw := range movies {
		movie, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		theater.Movies = append(theater.Movies, model.MovieRow{
			Title: firstString(movie, titleKeys, unknownTitle),
			Times: normalizeTimes(firstList(movie, timeBlockKeys)),
		})
	}
	return []model.TheaterEntry{theater}
}

func normalizeTimes(blocks []any) []string {
	times := []string{}
	for _, block := range blocks {
		switch b := block.(type) {
		case map[string]any:
			label := firstString(b, timeLabelKeys, "")
			for _, t := range timeValues(b) {
				times = append(times, composeTime(t, label))
			}
		default:
			if t := scalarString(b); t != "" {
				times = append(times, t)
			}
		}
		if len(times) >= maxTimesPerMovie {
			return times[:maxTimesPerMovie]
		}
	}
	return times
}

// timeValues returns the block's time, or each element when the time is a list.
func timeValues(block map[string]any) []string {
	for _, key := range timeValueKeys {
		switch v := block[key].(type) {
		case []any:
			var out []string
			for _, item := range v {
				if s := scalarString(item); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		default:
			if s := scalarString(v); s != "" {
				return []string{s}
			}
		}
	}
	return nil
}

func composeTime(t, label string) string {
	if label == "" {
		return t
	}
	return fmt.Sprintf("%s (%s)", t, label)
}

func firstString(obj map[string]any, keys []string, fallback string) string {
	for _, key := range keys {
		if s := scalarString(obj[key]); s != "" {
			return s
		}
	}
	return fallback
}

func firstList(obj map[string]any, keys []string) []any {
	for _, key := range keys {
		if list := asList(obj[key]); len(list) > 0 {
			return list
		}
	}
	return nil
}

func asList(v any) []any {
	list, _ := v.([]any)
	return list
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return ""
		}
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}
