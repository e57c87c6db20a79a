package availability

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

// blockingFetcher holds each fetch until the test releases it, so tests can
// interleave selections deterministically.
type blockingFetcher struct {
	release chan struct{}
	calls   chan time.Time
	busy    []Interval
	err     error
}

func (f *blockingFetcher) Busy(ctx context.Context, username string, from, to time.Time) ([]Interval, error) {
	f.calls <- from
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return f.busy, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLoaderLoads(t *testing.T) {
	f := &blockingFetcher{
		release: make(chan struct{}),
		calls:   make(chan time.Time, 2),
		busy:    []Interval{{Start: time.Now(), End: time.Now().Add(time.Hour)}},
	}
	l := NewLoader(f, "alice", testLogger())

	out := l.Select(context.Background(), time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC))
	if got := l.Current().State; got != StateLoading {
		t.Fatalf("expected loading before release, got %s", got)
	}
	<-f.calls
	close(f.release)

	res := <-out
	if res.State != StateLoaded {
		t.Fatalf("expected loaded, got %s", res.State)
	}
	if len(res.Busy) != 1 {
		t.Fatalf("expected 1 busy interval, got %d", len(res.Busy))
	}
	if got := l.Current().State; got != StateLoaded {
		t.Fatalf("Current should reflect the terminal state, got %s", got)
	}
}

func TestLoaderFetchFailureIsError(t *testing.T) {
	f := &blockingFetcher{
		release: make(chan struct{}),
		calls:   make(chan time.Time, 2),
		err:     &FetchError{Status: 500},
	}
	close(f.release)
	l := NewLoader(f, "alice", testLogger())

	res := <-l.Select(context.Background(), time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC))
	if res.State != StateError {
		t.Fatalf("a failed fetch must yield StateError, got %s", res.State)
	}
	if res.Err == nil {
		t.Fatal("error result must carry the cause")
	}
	if res.State == StateLoaded && len(res.Busy) == 0 {
		t.Fatal("failure must not masquerade as an empty busy list")
	}
}

func TestLoaderSupersedesInFlightFetch(t *testing.T) {
	f := &blockingFetcher{
		release: make(chan struct{}),
		calls:   make(chan time.Time, 2),
	}
	l := NewLoader(f, "alice", testLogger())

	day1 := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)

	first := l.Select(context.Background(), day1)
	<-f.calls

	// Superseding selection cancels the first fetch; the blocked fetcher
	// returns ctx.Err for it, which must be discarded, not published.
	second := l.Select(context.Background(), day2)
	<-f.calls
	close(f.release)

	res := <-second
	if res.State != StateLoaded {
		t.Fatalf("latest selection should load, got %s", res.State)
	}
	if !res.Date.Equal(day2) {
		t.Fatalf("expected result for %s, got %s", day2, res.Date)
	}

	select {
	case stale := <-first:
		t.Fatalf("superseded selection must not publish a result, got %+v", stale)
	case <-time.After(50 * time.Millisecond):
	}
	if cur := l.Current(); !cur.Date.Equal(day2) {
		t.Fatalf("Current must track the latest selection, got %s", cur.Date)
	}
}

func TestLoaderCancelledFirstFetchError(t *testing.T) {
	f := &blockingFetcher{
		release: make(chan struct{}),
		calls:   make(chan time.Time, 2),
	}
	l := NewLoader(f, "alice", testLogger())

	first := l.Select(context.Background(), time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC))
	<-f.calls
	l.Select(context.Background(), time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC))
	<-f.calls

	// The first fetch fails with context.Canceled but its generation is
	// stale, so even the error is swallowed.
	select {
	case res := <-first:
		t.Fatalf("stale cancellation error leaked: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
	if cur := l.Current(); cur.State == StateError && errors.Is(cur.Err, context.Canceled) {
		t.Fatal("stale cancellation must not become the current state")
	}
	close(f.release)
}
