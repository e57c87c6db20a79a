package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yochees/cal/internal/model"
	"github.com/yochees/cal/internal/storage"
	"github.com/yochees/cal/libs/auth"
)

const sessionCookie = "cal_session"

type contextKey string

const userContextKey contextKey = "session-user"

var errNoSession = errors.New("no valid session")

// SessionManager issues and verifies the session cookie. The cookie carries
// an HS256 JWT; the user row is loaded on every authenticated request so a
// deleted account is locked out immediately.
type SessionManager struct {
	secret string
	ttl    time.Duration
	users  *storage.UserRepository
	logger *slog.Logger
}

func NewSessionManager(secret string, ttl time.Duration, users *storage.UserRepository, logger *slog.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{secret: secret, ttl: ttl, users: users, logger: logger}
}

func (s *SessionManager) Issue(w http.ResponseWriter, u model.User) error {
	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:      u.ID,
		Username: u.Username,
		Email:    u.Email,
		Iat:      now.Unix(),
		Exp:      now.Add(s.ttl).Unix(),
	}, s.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// authenticate resolves the request's session to a user. errNoSession means
// the visitor is simply not signed in; any other error means a valid token
// referenced a user that could not be loaded, which is a server fault rather
// than an auth failure.
func (s *SessionManager) authenticate(r *http.Request) (model.User, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return model.User{}, errNoSession
	}
	claims, err := auth.ParseAndVerifyHS256(c.Value, s.secret)
	if err != nil {
		return model.User{}, errNoSession
	}
	u, err := s.users.GetByID(r.Context(), claims.Sub)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.User{}, errors.New("session user not found")
		}
		return model.User{}, err
	}
	return u, nil
}

// RequireAPI guards JSON endpoints; unauthenticated requests get 401.
func (s *SessionManager) RequireAPI(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.authenticate(r)
		if err != nil {
			if errors.Is(err, errNoSession) {
				http.Error(w, "not signed in", http.StatusUnauthorized)
				return
			}
			s.logger.Error("session lookup failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		next(w, r.WithContext(withUser(r.Context(), u)))
	}
}

// RequirePage guards HTML pages; unauthenticated visitors are redirected to
// the sign-in page before any booking data is touched.
func (s *SessionManager) RequirePage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.authenticate(r)
		if err != nil {
			if errors.Is(err, errNoSession) {
				http.Redirect(w, r, "/auth/login", http.StatusFound)
				return
			}
			s.logger.Error("session lookup failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		next(w, r.WithContext(withUser(r.Context(), u)))
	}
}

func withUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userContextKey).(model.User)
	return u, ok
}
