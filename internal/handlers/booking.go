package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yochees/cal/internal/availability"
	"github.com/yochees/cal/internal/model"
	"github.com/yochees/cal/internal/outbox"
	"github.com/yochees/cal/internal/storage"
	"github.com/yochees/cal/libs/metrics"
)

type BookingHandler struct {
	users      *storage.UserRepository
	eventTypes *storage.EventTypeRepository
	bookings   *storage.BookingRepository
	outbox     *outbox.Repository
	logger     *slog.Logger
}

func NewBookingHandler(users *storage.UserRepository, eventTypes *storage.EventTypeRepository, bookings *storage.BookingRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		users:      users,
		eventTypes: eventTypes,
		bookings:   bookings,
		outbox:     outboxRepo,
		logger:     logger,
	}
}

type bookRequest struct {
	User          string `json:"user"`
	Slug          string `json:"slug"`
	Start         string `json:"start"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	TimeZone      string `json:"timeZone"`
	RescheduleUID string `json:"rescheduleUid"`
}

type bookResponse struct {
	UID       string `json:"uid"`
	Title     string `json:"title"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
}

// Book serves POST /api/book. With rescheduleUid set, the referenced
// booking is cancelled and the new one created in the same transaction, so
// no observer ever sees both confirmed or neither.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	req, isForm, ok := h.decodeBookRequest(w, r)
	if !ok {
		return
	}

	owner, err := h.users.GetByUsername(r.Context(), strings.ToLower(req.User))
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.Error("lookup user", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var et model.EventType
	if req.Slug != "" {
		et, err = h.eventTypes.GetBySlug(r.Context(), owner.ID, req.Slug)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "event type not found", http.StatusNotFound)
				return
			}
			h.logger.Error("lookup event type", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	} else {
		et = model.EventType{UserID: owner.ID, Title: "Meeting", LengthMins: 30}
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	length := time.Duration(et.LengthMins) * time.Minute
	end := start.Add(length)

	booking := model.Booking{
		UID:         uuid.NewString(),
		UserID:      owner.ID,
		EventTypeID: et.ID,
		Title:       fmt.Sprintf("%s between %s and %s", et.Title, owner.Name, req.Name),
		StartTime:   start,
		EndTime:     end,
		Status:      model.StatusConfirmed,
		Attendees: []model.Attendee{{
			Name:     req.Name,
			Email:    req.Email,
			TimeZone: req.TimeZone,
		}},
	}

	tx, err := h.bookings.Begin(r.Context())
	if err != nil {
		h.logger.Error("begin tx", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	eventType := outbox.EventBookingCreated
	if req.RescheduleUID != "" {
		prev, err := h.bookings.GetByUIDForUpdate(r.Context(), tx, req.RescheduleUID)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "booking to reschedule not found", http.StatusNotFound)
				return
			}
			h.logger.Error("lookup booking", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if prev.Status != model.StatusConfirmed {
			http.Error(w, "booking is no longer active", http.StatusConflict)
			return
		}
		if _, err := h.bookings.Cancel(r.Context(), tx, prev.UID); err != nil {
			h.logger.Error("cancel previous booking", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		eventType = outbox.EventBookingRescheduled
	}

	// The chosen slot may have been taken between rendering and submitting.
	booked, err := h.bookings.ListBusyIntervalsTx(r.Context(), tx, owner.ID, start, end)
	if err != nil {
		h.logger.Error("revalidate slot", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	busy := make([]availability.Interval, 0, len(booked))
	for _, b := range booked {
		busy = append(busy, availability.Interval{Start: b.StartTime, End: b.EndTime})
	}
	if open := availability.Filter([]time.Time{start}, busy, length); len(open) == 0 {
		http.Error(w, "slot is no longer available", http.StatusConflict)
		return
	}

	id, err := h.bookings.Create(r.Context(), tx, &booking)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "slot is no longer available", http.StatusConflict)
			return
		}
		h.logger.Error("create booking", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	booking.ID = id

	if err := h.outbox.Insert(r.Context(), tx, outbox.BookingEvent(eventType, booking, req.RescheduleUID)); err != nil {
		h.logger.Error("outbox insert", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.logger.Error("commit", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	kind := "new"
	if req.RescheduleUID != "" {
		kind = "reschedule"
	}
	metrics.IncBookingCreated(kind)

	if isForm {
		http.Redirect(w, r, "/bookings/"+booking.UID+"/success", http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(bookResponse{
		UID:       booking.UID,
		Title:     booking.Title,
		StartTime: booking.StartTime.Format(time.RFC3339),
		EndTime:   booking.EndTime.Format(time.RFC3339),
		Status:    booking.Status,
	})
}

func (h *BookingHandler) decodeBookRequest(w http.ResponseWriter, r *http.Request) (bookRequest, bool, bool) {
	var req bookRequest
	isForm := strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
	if isForm {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return req, isForm, false
		}
		req.User = r.PathValue("user")
		req.Slug = r.PostFormValue("slug")
		req.Start = r.PostFormValue("start")
		req.Name = r.PostFormValue("name")
		req.Email = r.PostFormValue("email")
		req.TimeZone = r.PostFormValue("timeZone")
		req.RescheduleUID = r.PostFormValue("rescheduleUid")
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return req, isForm, false
		}
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.User == "" || req.Start == "" || req.Name == "" || req.Email == "" {
		http.Error(w, "user, start, name and email required", http.StatusBadRequest)
		return req, isForm, false
	}
	return req, isForm, true
}

type cancelRequest struct {
	UID string `json:"uid"`
}

type cancelResponse struct {
	UID         string `json:"uid"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelledAt"`
}

// Cancel serves POST /api/cancel. Cancelling an already cancelled booking
// is a conflict, not a no-op, so double submits surface to the caller.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.UID == "" {
		http.Error(w, "uid required", http.StatusBadRequest)
		return
	}

	cancelledAt, status, msg := h.cancelByUID(r, req.UID)
	if status != http.StatusOK {
		http.Error(w, msg, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cancelResponse{
		UID:         req.UID,
		Status:      model.StatusCancelled,
		CancelledAt: cancelledAt.Format(time.RFC3339),
	})
}

func (h *BookingHandler) cancelByUID(r *http.Request, uid string) (time.Time, int, string) {
	tx, err := h.bookings.Begin(r.Context())
	if err != nil {
		h.logger.Error("begin tx", "err", err)
		return time.Time{}, http.StatusInternalServerError, "internal error"
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	booking, err := h.bookings.GetByUIDForUpdate(r.Context(), tx, uid)
	if err != nil {
		if storage.IsNotFound(err) {
			return time.Time{}, http.StatusNotFound, "booking not found"
		}
		h.logger.Error("lookup booking", "err", err)
		return time.Time{}, http.StatusInternalServerError, "internal error"
	}
	if booking.Status != model.StatusConfirmed {
		return time.Time{}, http.StatusConflict, "booking already cancelled"
	}

	cancelledAt, err := h.bookings.Cancel(r.Context(), tx, uid)
	if err != nil {
		h.logger.Error("cancel booking", "err", err)
		return time.Time{}, http.StatusInternalServerError, "internal error"
	}
	booking.Status = model.StatusCancelled
	if err := h.outbox.Insert(r.Context(), tx, outbox.BookingEvent(outbox.EventBookingCancelled, booking, "")); err != nil {
		h.logger.Error("outbox insert", "err", err)
		return time.Time{}, http.StatusInternalServerError, "internal error"
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.logger.Error("commit", "err", err)
		return time.Time{}, http.StatusInternalServerError, "internal error"
	}

	metrics.IncBookingCancelled()
	return cancelledAt, http.StatusOK, ""
}
