package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yochees/cal/internal/availability"
	"github.com/yochees/cal/internal/model"
	"github.com/yochees/cal/internal/storage"
	"github.com/yochees/cal/libs/metrics"
)

type AvailabilityHandler struct {
	users      *storage.UserRepository
	eventTypes *storage.EventTypeRepository
	bookings   *storage.BookingRepository
	logger     *slog.Logger
}

func NewAvailabilityHandler(users *storage.UserRepository, eventTypes *storage.EventTypeRepository, bookings *storage.BookingRepository, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		users:      users,
		eventTypes: eventTypes,
		bookings:   bookings,
		logger:     logger,
	}
}

// GetBusy serves GET /api/availability/{user} as a JSON array of busy
// intervals, built from confirmed bookings overlapping the requested range.
func (h *AvailabilityHandler) GetBusy(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(r.PathValue("user"))
	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.Error("lookup user", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	from, to := now, now.AddDate(0, 1, 0)
	if v := r.URL.Query().Get("dateFrom"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "invalid dateFrom", http.StatusBadRequest)
			return
		}
	}
	if v := r.URL.Query().Get("dateTo"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "invalid dateTo", http.StatusBadRequest)
			return
		}
	}

	booked, err := h.bookings.ListBusyIntervals(r.Context(), user.ID, from, to)
	if err != nil {
		h.logger.Error("list busy intervals", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	busy := make([]availability.Interval, 0, len(booked))
	for _, b := range booked {
		busy = append(busy, availability.Interval{Start: b.StartTime, End: b.EndTime})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(busy)
}

type slotsResponse struct {
	Slots []string `json:"slots"`
}

// GetSlots serves GET /api/slots?user=&slug=&date=YYYY-MM-DD. It generates
// the owner's candidate slots for the date, removes those that conflict
// with confirmed bookings, and returns the survivors as RFC3339 instants.
func (h *AvailabilityHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncSlotRequests()

	username := strings.ToLower(r.URL.Query().Get("user"))
	if username == "" {
		http.Error(w, "user required", http.StatusBadRequest)
		return
	}
	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.Error("lookup user", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	et, err := h.resolveEventType(r, user)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		h.logger.Error("lookup event type", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	loc, err := time.LoadLocation(user.TimeZone)
	if err != nil {
		h.logger.Error("load owner timezone", "tz", user.TimeZone, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), loc)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	length := time.Duration(et.LengthMins) * time.Minute
	slots := availability.Slots(availability.SlotOptions{
		CalendarTimeZone: loc,
		EventLength:      length,
		SelectedDate:     date,
		DayStartMinutes:  user.DayStartMinutes,
		DayEndMinutes:    user.DayEndMinutes,
	})

	booked, err := h.bookings.ListBusyIntervals(r.Context(), user.ID, date, date.AddDate(0, 0, 1))
	if err != nil {
		metrics.IncAvailabilityFetchErrors()
		h.logger.Error("list busy intervals", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	busy := make([]availability.Interval, 0, len(booked))
	for _, b := range booked {
		busy = append(busy, availability.Interval{Start: b.StartTime, End: b.EndTime})
	}
	open := availability.Filter(slots, busy, length)

	resp := slotsResponse{Slots: make([]string, 0, len(open))}
	for _, s := range open {
		resp.Slots = append(resp.Slots, s.Format(time.RFC3339))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// resolveEventType picks the named event type, or the owner's shortest one
// when no slug is given.
func (h *AvailabilityHandler) resolveEventType(r *http.Request, user model.User) (model.EventType, error) {
	if slug := r.URL.Query().Get("slug"); slug != "" {
		return h.eventTypes.GetBySlug(r.Context(), user.ID, slug)
	}
	types, err := h.eventTypes.ListByUser(r.Context(), user.ID)
	if err != nil {
		return model.EventType{}, err
	}
	if len(types) == 0 {
		return model.EventType{ID: "", UserID: user.ID, Title: "Meeting", LengthMins: 30}, nil
	}
	return types[0], nil
}
