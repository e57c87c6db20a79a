package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testSessions() *SessionManager {
	return NewSessionManager("test-secret", time.Hour, nil, slog.New(slog.DiscardHandler))
}

func TestRequirePageRedirectsAnonymous(t *testing.T) {
	s := testSessions()
	called := false
	h := s.RequirePage(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/bookings", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/auth/login" {
		t.Fatalf("expected redirect to /auth/login, got %q", loc)
	}
	if called {
		t.Fatal("protected handler must not run for anonymous visitors")
	}
}

func TestRequirePageRejectsForgedCookie(t *testing.T) {
	s := testSessions()
	called := false
	h := s.RequirePage(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "not.a.jwt"})
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if called {
		t.Fatal("protected handler must not run with a forged cookie")
	}
}

func TestRequireAPIUnauthorized(t *testing.T) {
	s := testSessions()
	h := s.RequireAPI(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/whatever", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	s := testSessions()
	rec := httptest.NewRecorder()
	if err := s.Issue(rec, testUser()); err != nil {
		t.Fatalf("issue: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != sessionCookie {
		t.Fatalf("unexpected cookie name %q", c.Name)
	}
	if !c.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
	if c.Value == "" {
		t.Fatal("session cookie must carry the token")
	}
}
