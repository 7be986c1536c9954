package rotation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"showtimes-console/model"
)

const (
	DefaultCycleDelay = 10 * time.Second
	DefaultBackoff    = 5 * time.Second
)

// State is the engine's position in the display loop.
type State int

const (
	StateIdle State = iota
	StateDisplaying
	StateRefreshing
	StateFaulted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDisplaying:
		return "displaying"
	case StateRefreshing:
		return "refreshing"
	case StateFaulted:
		return "faulted-retry"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Loader returns today's dataset and the date it belongs to.
type Loader interface {
	LoadEntriesForToday(ctx context.Context) ([]model.DatasetEntry, string, error)
}

// Frame is everything a renderer needs for one screen.
type Frame struct {
	Item       model.MovieItem
	Now        time.Time
	GroupIndex int
	GroupCount int
	ItemIndex  int
	ItemCount  int
}

// Renderer displays frames and status messages.
type Renderer interface {
	Render(frame Frame) error
	Notice(msg string)
	Refreshing()
}

// RenderError wraps a failure of the renderer.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "render error"
	}
	return "render: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Engine cycles through today's movies, one per cycle, theater by theater.
type Engine struct {
	loader     Loader
	renderer   Renderer
	clock      Clock
	loc        *time.Location
	cycleDelay time.Duration
	backoff    time.Duration
	logger     *slog.Logger

	state      State
	groups     []model.TheaterGroup
	loadedDate string
	cursor     Cursor
}

type Option func(*Engine)

func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLocation sets the timezone used for dates and frame timestamps.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.loc = loc
	}
}

func WithCycleDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.cycleDelay = d
	}
}

func WithBackoff(d time.Duration) Option {
	return func(e *Engine) {
		e.backoff = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func New(loader Loader, renderer Renderer, opts ...Option) *Engine {
	e := &Engine{
		loader:     loader,
		renderer:   renderer,
		clock:      SystemClock{},
		loc:        time.UTC,
		cycleDelay: DefaultCycleDelay,
		backoff:    DefaultBackoff,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	return e
}

func (e *Engine) State() State                 { return e.state }
func (e *Engine) Cursor() Cursor               { return e.cursor }
func (e *Engine) Groups() []model.TheaterGroup { return e.groups }

// Run steps the engine until it stops or ctx is cancelled. It returns nil
// when there was nothing to display, ctx.Err() on cancellation, and an error
// only when the very first load fails.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Step(ctx); err != nil {
			return err
		}
		if e.state == StateStopped {
			return nil
		}
	}
}

// Step performs a single transition.
func (e *Engine) Step(ctx context.Context) error {
	switch e.state {
	case StateIdle:
		return e.start(ctx)
	case StateDisplaying:
		return e.display(ctx)
	case StateRefreshing:
		return e.refresh(ctx)
	case StateFaulted:
		return e.retry(ctx)
	default:
		return nil
	}
}

func (e *Engine) today() string {
	return e.clock.Now().In(e.loc).Format(time.DateOnly)
}

func (e *Engine) start(ctx context.Context) error {
	e.renderer.Refreshing()
	entries, date, err := e.loader.LoadEntriesForToday(ctx)
	if err != nil {
		e.state = StateStopped
		return err
	}
	e.load(entries, date)
	if len(e.groups) == 0 {
		e.logger.Info("nothing to display", "date", date)
		e.renderer.Notice("No movies found to display. Check your config or cache.")
		e.state = StateStopped
		return nil
	}
	e.state = StateDisplaying
	return nil
}

func (e *Engine) display(ctx context.Context) error {
	if len(e.groups) == 0 || e.today() != e.loadedDate {
		e.state = StateRefreshing
		return nil
	}

	gi, mi, ok := e.cursor.Resolve(e.groups)
	if !ok {
		e.state = StateRefreshing
		return nil
	}
	group := e.groups[gi]
	frame := Frame{
		Item:       group[mi],
		Now:        e.clock.Now().In(e.loc),
		GroupIndex: gi,
		GroupCount: len(e.groups),
		ItemIndex:  mi,
		ItemCount:  len(group),
	}
	if err := e.renderer.Render(frame); err != nil {
		return e.fault("Error displaying movie", &RenderError{Err: err})
	}
	if err := e.clock.Sleep(ctx, e.cycleDelay); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return e.fault("Error displaying movie", err)
	}
	e.cursor = e.cursor.Advance(len(group))
	return nil
}

func (e *Engine) refresh(ctx context.Context) error {
	e.renderer.Refreshing()
	entries, date, err := e.loader.LoadEntriesForToday(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return e.fault("Error refreshing daily data", err)
	}
	e.load(entries, date)
	if len(e.groups) == 0 {
		// Stay out of Displaying until a refresh produces something.
		e.loadedDate = ""
		e.logger.Warn("no movies after refresh", "date", date)
		e.renderer.Notice(fmt.Sprintf("No movies found after refresh. Retrying in %s...", e.backoff))
		e.state = StateFaulted
		return nil
	}
	e.logger.Info("showtimes refreshed", "date", date, "theaters", len(e.groups))
	e.state = StateDisplaying
	return nil
}

func (e *Engine) retry(ctx context.Context) error {
	if err := e.clock.Sleep(ctx, e.backoff); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	e.state = StateDisplaying
	return nil
}

func (e *Engine) fault(msg string, err error) error {
	e.logger.Error(msg, "error", err, "state", e.state.String())
	e.renderer.Notice(fmt.Sprintf("%s: %v", msg, err))
	e.state = StateFaulted
	return nil
}

func (e *Engine) load(entries []model.DatasetEntry, date string) {
	e.groups = Group(entries, date)
	e.loadedDate = date
	e.cursor = Cursor{}
}
