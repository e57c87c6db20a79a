package availability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientBusy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/availability/alice" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("dateFrom") == "" || r.URL.Query().Get("dateTo") == "" {
			t.Error("missing date range")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"start":"2026-01-28T09:15:00Z","end":"2026-01-28T09:45:00Z"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	busy, err := c.Busy(context.Background(), "alice",
		time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Busy: %v", err)
	}
	if len(busy) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(busy))
	}
	if !busy[0].Start.Equal(time.Date(2026, 1, 28, 9, 15, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", busy[0].Start)
	}
}

func TestClientBusyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Busy(context.Background(), "alice", time.Now(), time.Now().Add(24*time.Hour))
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.Status != http.StatusInternalServerError {
		t.Fatalf("expected status 500 in error, got %d", fe.Status)
	}
}

func TestClientBusyMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"start": not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Busy(context.Background(), "alice", time.Now(), time.Now().Add(24*time.Hour))
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
}
