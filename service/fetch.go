package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"showtimes-console/config"
	"showtimes-console/model"
	"showtimes-console/store"
)

// FetchError reports a failed fetch for one configured theater: either the
// transport failed or the API answered with an error field.
type FetchError struct {
	Theater  string
	Location string
	Err      error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "fetch error"
	}
	return fmt.Sprintf("fetch %q (%s): %v", e.Theater, e.Location, e.Err)
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// apiReportedError is the "error" field of an otherwise successful response.
type apiReportedError string

func (e apiReportedError) Error() string { return string(e) }

// Locale is the hl/gl pair sent with every search.
type Locale struct {
	HL string
	GL string
}

// Progress is called before each theater is fetched.
type Progress func(done, total int, theater config.Theater)

// FetchAll fetches and normalizes every valid configured theater, in order.
// Entries without a query or location are skipped with a warning. The first
// failing theater aborts the batch.
func FetchAll(ctx context.Context, fetcher Fetcher, apiKey string, date string, locale Locale, theaters []config.Theater, logger *slog.Logger, progress Progress) ([]model.DatasetEntry, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	entries := []model.DatasetEntry{}
	for i, theater := range theaters {
		if !theater.Valid() {
			logger.Warn("skipping malformed theater entry (needs 'name' and 'location')", "index", i)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label := theater.Label()
		location := strings.TrimSpace(theater.Location)
		if progress != nil {
			progress(i, len(theaters), theater)
		}

		start := time.Now()
		raw, err := fetcher.FetchShowtimes(ctx, apiKey, Query{
			Theater:  label,
			Location: location,
			HL:       locale.HL,
			GL:       locale.GL,
			Date:     date,
		})
		if err != nil {
			return nil, &FetchError{Theater: label, Location: location, Err: err}
		}
		if msg, ok := reportedError(raw); ok {
			return nil, &FetchError{Theater: label, Location: location, Err: apiReportedError(msg)}
		}

		normalized := Normalize(raw)
		logger.Debug("fetched theater", "theater", label, "location", location, "entries", len(normalized), "took", time.Since(start))
		entries = append(entries, model.DatasetEntry{
			TheaterLabel:  label,
			LocationLabel: location,
			Showtimes:     normalized,
		})
	}
	return entries, nil
}

func reportedError(raw RawPayload) (string, bool) {
	v, ok := raw["error"]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return "", false
		}
		return x, true
	case bool:
		if !x {
			return "", false
		}
	}
	return fmt.Sprint(v), true
}

// Loader decides, once per call, whether today's dataset comes from the
// cache file or from the network.
type Loader struct {
	fetcher   Fetcher
	apiKey    string
	locale    Locale
	theaters  []config.Theater
	cachePath string
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
	progress  Progress
}

type LoaderOption func(*Loader)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.now = now
	}
}

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

func WithProgress(progress Progress) LoaderOption {
	return func(l *Loader) {
		l.progress = progress
	}
}

// NewLoader builds a Loader from the configuration. cachePath may be empty to disable caching.
func NewLoader(fetcher Fetcher, cfg *config.Config, cachePath string, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher:   fetcher,
		apiKey:    cfg.APIKey,
		locale:    Locale{HL: cfg.HL, GL: cfg.GL},
		theaters:  cfg.Theaters,
		cachePath: cachePath,
		loc:       cfg.Location(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// Today returns the current date in the configured timezone.
func (l *Loader) Today() string {
	return l.now().In(l.loc).Format(time.DateOnly)
}

// LoadEntriesForToday returns today's cached entries when the cache file is
// fresh; otherwise it fetches everything and rewrites the cache. The returned
// date is the one the entries belong to.
func (l *Loader) LoadEntriesForToday(ctx context.Context) ([]model.DatasetEntry, string, error) {
	today := l.Today()
	if entries, ok := store.LoadFresh(l.cachePath, today); ok {
		l.logger.Debug("using cached showtimes", "path", l.cachePath, "date", today)
		return entries, today, nil
	}

	l.logger.Info("fetching showtimes", "date", today, "theaters", len(l.theaters))
	entries, err := FetchAll(ctx, l.fetcher, l.apiKey, today, l.locale, l.theaters, l.logger, l.progress)
	if err != nil {
		return nil, "", err
	}
	if err := store.Save(l.cachePath, today, entries); err != nil {
		l.logger.Warn("could not write cache file", "path", l.cachePath, "error", err)
	}
	return entries, today, nil
}
