package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showtimes-console/config"
	"showtimes-console/model"
	"showtimes-console/store"
)

type stubFetcher struct {
	calls    []Query
	payloads map[string]RawPayload
	err      error
}

func (s *stubFetcher) FetchShowtimes(_ context.Context, _ string, q Query) (RawPayload, error) {
	s.calls = append(s.calls, q)
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.payloads[q.Theater]; ok {
		return p, nil
	}
	return RawPayload{"showtimes": []any{}}, nil
}

func showtimesPayload(theaterName string, titles ...string) RawPayload {
	movies := []any{}
	for _, title := range titles {
		movies = append(movies, map[string]any{"title": title, "showtimes": []any{"7:00 PM"}})
	}
	return RawPayload{"showtimes": []any{map[string]any{
		"theater_name": theaterName,
		"address":      "1 Main St",
		"movies":       movies,
	}}}
}

func TestFetchAll_SkipsMalformedAndKeepsOrder(t *testing.T) {
	fetcher := &stubFetcher{payloads: map[string]RawPayload{
		"Roxie":  showtimesPayload("Roxie Theater", "Amélie"),
		"Castro": showtimesPayload("The Castro", "Vertigo", "Psycho"),
	}}
	theaters := []config.Theater{
		{Name: "Roxie", Location: "San Francisco, CA"},
		{Name: "No Location"},
		{Location: "Nowhere"},
		{Query: "Castro", Location: "San Francisco, CA"},
	}

	entries, err := FetchAll(context.Background(), fetcher, "key", "2026-02-03", Locale{HL: "en", GL: "us"}, theaters, nil, nil)
	require.NoError(t, err)
	require.Len(t, fetcher.calls, 2)
	assert.Equal(t, Query{Theater: "Roxie", Location: "San Francisco, CA", HL: "en", GL: "us", Date: "2026-02-03"}, fetcher.calls[0])

	require.Len(t, entries, 2)
	assert.Equal(t, "Roxie", entries[0].TheaterLabel)
	assert.Equal(t, "San Francisco, CA", entries[0].LocationLabel)
	assert.Equal(t, "Roxie Theater", entries[0].Showtimes[0].Theater)
	assert.Equal(t, "Castro", entries[1].TheaterLabel)
	assert.Len(t, entries[1].Showtimes[0].Movies, 2)
}

func TestFetchAll_ReportedErrorIsFetchError(t *testing.T) {
	fetcher := &stubFetcher{payloads: map[string]RawPayload{
		"Roxie": {"error": "Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key"},
	}}

	_, err := FetchAll(context.Background(), fetcher, "key", "2026-02-03", Locale{}, []config.Theater{{Name: "Roxie", Location: "SF"}}, nil, nil)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr), "expected FetchError, got %v", err)
	assert.Equal(t, "Roxie", fetchErr.Theater)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestFetchAll_TransportErrorIsWrapped(t *testing.T) {
	apiErr := &APIError{StatusCode: 503, Status: "503 Service Unavailable", Body: "down"}
	fetcher := &stubFetcher{err: apiErr}

	_, err := FetchAll(context.Background(), fetcher, "key", "2026-02-03", Locale{}, []config.Theater{{Name: "Roxie", Location: "SF"}}, nil, nil)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	var gotAPI *APIError
	require.True(t, errors.As(err, &gotAPI))
	assert.Equal(t, 503, gotAPI.StatusCode)
}

func TestFetchAll_Progress(t *testing.T) {
	fetcher := &stubFetcher{}
	var seen []string
	theaters := []config.Theater{{Name: "A", Location: "X"}, {Name: "B", Location: "Y"}}

	_, err := FetchAll(context.Background(), fetcher, "key", "2026-02-03", Locale{}, theaters, nil, func(done, total int, th config.Theater) {
		assert.Equal(t, 2, total)
		seen = append(seen, th.Label())
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestReportedError(t *testing.T) {
	tests := []struct {
		payload RawPayload
		want    bool
	}{
		{RawPayload{}, false},
		{RawPayload{"error": nil}, false},
		{RawPayload{"error": ""}, false},
		{RawPayload{"error": false}, false},
		{RawPayload{"error": "quota"}, true},
		{RawPayload{"error": map[string]any{"code": 1.0}}, true},
	}
	for _, tt := range tests {
		_, got := reportedError(tt.payload)
		assert.Equal(t, tt.want, got, "payload %+v", tt.payload)
	}
}

func newTestLoader(t *testing.T, fetcher Fetcher, cachePath string, now time.Time) *Loader {
	t.Helper()
	cfg := &config.Config{
		APIKey:   "key",
		HL:       "en",
		GL:       "us",
		Timezone: "America/Los_Angeles",
		Theaters: []config.Theater{{Name: "Roxie", Location: "San Francisco, CA"}},
	}
	return NewLoader(fetcher, cfg, cachePath, WithClock(func() time.Time { return now }))
}

func TestLoadEntriesForToday_FreshCacheSkipsFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "showtimes_cache.json")
	cached := []model.DatasetEntry{{TheaterLabel: "Cached", LocationLabel: "SF"}}
	require.NoError(t, store.Save(path, "2026-02-03", cached))

	fetcher := &stubFetcher{}
	// 2026-02-04 03:00 UTC is still 2026-02-03 in Los Angeles.
	loader := newTestLoader(t, fetcher, path, time.Date(2026, 2, 4, 3, 0, 0, 0, time.UTC))

	entries, date, err := loader.LoadEntriesForToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-02-03", date)
	assert.Equal(t, cached, entries)
	assert.Empty(t, fetcher.calls)
}

func TestLoadEntriesForToday_StaleCacheFetchesOnceAndSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "showtimes_cache.json")
	require.NoError(t, store.Save(path, "2026-02-02", []model.DatasetEntry{{TheaterLabel: "Old"}}))

	fetcher := &stubFetcher{payloads: map[string]RawPayload{"Roxie": showtimesPayload("Roxie", "Amélie")}}
	loader := newTestLoader(t, fetcher, path, time.Date(2026, 2, 3, 20, 0, 0, 0, time.UTC))

	entries, date, err := loader.LoadEntriesForToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-02-03", date)
	require.Len(t, fetcher.calls, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, "Roxie", entries[0].TheaterLabel)

	doc, ok := store.Load(path)
	require.True(t, ok)
	assert.Equal(t, "2026-02-03", doc.Date)
	assert.Equal(t, entries, doc.Entries)

	_, _, err = loader.LoadEntriesForToday(context.Background())
	require.NoError(t, err)
	assert.Len(t, fetcher.calls, 1, "second load should come from the cache file")
}

func TestLoadEntriesForToday_FetchFailureLeavesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "showtimes_cache.json")
	require.NoError(t, store.Save(path, "2026-02-02", nil))

	fetcher := &stubFetcher{err: errors.New("connection refused")}
	loader := newTestLoader(t, fetcher, path, time.Date(2026, 2, 3, 20, 0, 0, 0, time.UTC))

	_, _, err := loader.LoadEntriesForToday(context.Background())
	require.Error(t, err)

	doc, ok := store.Load(path)
	require.True(t, ok)
	assert.Equal(t, "2026-02-02", doc.Date)
}

func TestLoadEntriesForToday_UnwritableCacheStillReturns(t *testing.T) {
	dir := t.TempDir()
	fetcher := &stubFetcher{payloads: map[string]RawPayload{"Roxie": showtimesPayload("Roxie", "Amélie")}}
	// The cache path is a directory, so the write fails.
	loader := newTestLoader(t, fetcher, dir, time.Date(2026, 2, 3, 20, 0, 0, 0, time.UTC))

	entries, _, err := loader.LoadEntriesForToday(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// turnoverFetcher returns a different movie on every upstream call.
type turnoverFetcher struct {
	titles []string
	calls  int
}

func (f *turnoverFetcher) FetchShowtimes(_ context.Context, _ string, q Query) (RawPayload, error) {
	title := f.titles[min(f.calls, len(f.titles)-1)]
	f.calls++
	return showtimesPayload(q.Theater, title), nil
}

func TestLoadEntriesForToday_CachedFetcherRefetchesAfterMidnight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "showtimes_cache.json")
	inner := &turnoverFetcher{titles: []string{"yesterday-movie", "today-movie"}}
	cfg := &config.Config{
		APIKey:   "key",
		Timezone: "America/Los_Angeles",
		Theaters: []config.Theater{{Name: "Roxie", Location: "San Francisco, CA"}},
	}
	// 23:58 in Los Angeles, then two minutes later, well inside the payload TTL.
	now := time.Date(2026, 2, 4, 7, 58, 0, 0, time.UTC)
	loader := NewLoader(Cached(inner, 64, 5*time.Minute), cfg, path, WithClock(func() time.Time { return now }))

	entries, date, err := loader.LoadEntriesForToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-02-03", date)
	assert.Equal(t, "yesterday-movie", entries[0].Showtimes[0].Movies[0].Title)

	now = time.Date(2026, 2, 4, 8, 0, 5, 0, time.UTC)
	entries, date, err = loader.LoadEntriesForToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-02-04", date)
	assert.Equal(t, 2, inner.calls, "a new day must not reuse the previous day's payload")
	assert.Equal(t, "today-movie", entries[0].Showtimes[0].Movies[0].Title)

	doc, ok := store.Load(path)
	require.True(t, ok)
	assert.Equal(t, "2026-02-04", doc.Date)
	assert.Equal(t, "today-movie", doc.Entries[0].Showtimes[0].Movies[0].Title)
}
