package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yochees/cal/internal/model"
	"github.com/yochees/cal/internal/outbox"
	"github.com/yochees/cal/internal/storage"
	"github.com/yochees/cal/internal/web"
	"github.com/yochees/cal/libs/db"
	"golang.org/x/crypto/bcrypt"
)

// Working-day defaults for new accounts, minutes from midnight.
const (
	defaultDayStartMins = 0
	defaultDayEndMins   = 24 * 60
	defaultTimeFormat   = "3:04pm"
)

type AuthHandler struct {
	pool       *db.Pool
	users      *storage.UserRepository
	eventTypes *storage.EventTypeRepository
	outbox     *outbox.Repository
	sessions   *SessionManager
	logger     *slog.Logger
}

func NewAuthHandler(pool *db.Pool, users *storage.UserRepository, eventTypes *storage.EventTypeRepository, outboxRepo *outbox.Repository, sessions *SessionManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		pool:       pool,
		users:      users,
		eventTypes: eventTypes,
		outbox:     outboxRepo,
		sessions:   sessions,
		logger:     logger,
	}
}

// Every new account starts with the three stock meeting lengths.
var defaultEventTypes = []model.EventType{
	{Title: "15 Min Meeting", Slug: "15min", LengthMins: 15},
	{Title: "30 Min Meeting", Slug: "30min", LengthMins: 30},
	{Title: "60 Min Meeting", Slug: "60min", LengthMins: 60},
}

type registerRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	TimeZone string `json:"timeZone"`
}

type registerResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "username, email and password required", http.StatusBadRequest)
		return
	}
	if req.TimeZone == "" {
		req.TimeZone = "UTC"
	}
	if _, err := time.LoadLocation(req.TimeZone); err != nil {
		http.Error(w, "unknown timeZone", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	user := model.User{
		Username:        req.Username,
		Name:            req.Name,
		Email:           req.Email,
		PasswordHash:    string(hash),
		TimeZone:        req.TimeZone,
		DayStartMinutes: defaultDayStartMins,
		DayEndMinutes:   defaultDayEndMins,
		TimeFormat:      defaultTimeFormat,
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		h.logger.Error("begin tx", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	id, err := h.users.CreateTx(r.Context(), tx, user)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "username or email already taken", http.StatusConflict)
			return
		}
		h.logger.Error("create user", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	user.ID = id
	for _, et := range defaultEventTypes {
		et.UserID = id
		if _, err := h.eventTypes.CreateTx(r.Context(), tx, et); err != nil {
			h.logger.Error("seed event type", "slug", et.Slug, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	if err := h.outbox.Insert(r.Context(), tx, outbox.UserRegisteredEvent(user)); err != nil {
		h.logger.Error("outbox insert", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.logger.Error("commit", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(registerResponse{UserID: id, Username: user.Username})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login accepts either the sign-in form or a JSON body and sets the session
// cookie on success. Unknown email and wrong password produce the same
// response so the endpoint does not leak which accounts exist.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	isForm := strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
	if isForm {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		req.Email = r.PostFormValue("email")
		req.Password = r.PostFormValue("password")
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		h.loginFailed(w, r, isForm, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil && !storage.IsNotFound(err) {
		h.logger.Error("lookup user", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if storage.IsNotFound(err) ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.loginFailed(w, r, isForm, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := h.sessions.Issue(w, user); err != nil {
		h.logger.Error("issue session", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if isForm {
		http.Redirect(w, r, "/bookings", http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"username": user.Username})
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, isForm bool, status int, msg string) {
	if isForm {
		w.WriteHeader(status)
		_ = web.Render(w, "login.html", map[string]string{"Error": msg})
		return
	}
	http.Error(w, msg, status)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = web.Render(w, "login.html", map[string]string{})
}
