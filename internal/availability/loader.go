package availability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle of a busy-interval load for one selected date.
type State int

const (
	StateLoading State = iota
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of a load. Busy is only meaningful when
// State is StateLoaded; a StateError result means availability is unknown
// and must never be rendered as a fully free day.
type Result struct {
	Date  time.Time
	State State
	Busy  []Interval
	Err   error
}

// BusyFetcher is the fetch dependency of Loader. *Client satisfies it.
type BusyFetcher interface {
	Busy(ctx context.Context, username string, from, to time.Time) ([]Interval, error)
}

// Loader serializes busy-interval fetches for a calendar owner. Selecting
// a new date supersedes any in-flight fetch: the older request is cancelled
// and its response, should it still arrive, is discarded. Only the most
// recent selection can ever publish a Loaded or Error state.
type Loader struct {
	fetch    BusyFetcher
	username string
	logger   *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	cur    Result
}

func NewLoader(fetch BusyFetcher, username string, logger *slog.Logger) *Loader {
	return &Loader{fetch: fetch, username: username, logger: logger}
}

// Select starts a load for date and returns a channel that receives the
// terminal Result for this selection, or nothing if a later Select
// supersedes it first. The previous in-flight fetch is cancelled.
func (l *Loader) Select(ctx context.Context, date time.Time) <-chan Result {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.cur = Result{Date: date, State: StateLoading}
	l.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		defer cancel()
		dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		dayEnd := dayStart.AddDate(0, 0, 1)
		busy, err := l.fetch.Busy(fetchCtx, l.username, dayStart, dayEnd)

		res := Result{Date: date, State: StateLoaded, Busy: busy}
		if err != nil {
			res = Result{Date: date, State: StateError, Err: err}
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if gen != l.gen {
			l.logger.Debug("discarding stale availability response",
				"date", date.Format("2006-01-02"))
			return
		}
		l.cur = res
		out <- res
	}()
	return out
}

// Current returns the state of the latest selection.
func (l *Loader) Current() Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cur
}
