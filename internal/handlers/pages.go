package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yochees/cal/internal/availability"
	"github.com/yochees/cal/internal/model"
	"github.com/yochees/cal/internal/storage"
	"github.com/yochees/cal/internal/web"
	"github.com/yochees/cal/libs/metrics"
)

type PagesHandler struct {
	users      *storage.UserRepository
	eventTypes *storage.EventTypeRepository
	bookings   *storage.BookingRepository
	cancel     *BookingHandler
	busy       availability.BusyFetcher
	logger     *slog.Logger
}

func NewPagesHandler(users *storage.UserRepository, eventTypes *storage.EventTypeRepository, bookings *storage.BookingRepository, bookingHandler *BookingHandler, busy availability.BusyFetcher, logger *slog.Logger) *PagesHandler {
	return &PagesHandler{
		users:      users,
		eventTypes: eventTypes,
		bookings:   bookings,
		cancel:     bookingHandler,
		busy:       busy,
		logger:     logger,
	}
}

type bookingRow struct {
	UID           string
	When          string
	Title         string
	Description   string
	Attendee      string
	AttendeeEmail string
	Cancelled     bool
}

type bookingsPage struct {
	User     model.User
	Bookings []bookingRow
}

// Bookings renders the signed-in owner's booking list, newest first, in the
// owner's own timezone and clock format.
func (h *PagesHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	loc, err := time.LoadLocation(user.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	list, err := h.bookings.ListByUser(r.Context(), user.ID, 100)
	if err != nil {
		h.logger.Error("list bookings", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	page := bookingsPage{User: user, Bookings: make([]bookingRow, 0, len(list))}
	for _, b := range list {
		row := bookingRow{
			UID:         b.UID,
			When:        formatRange(b.StartTime, b.EndTime, loc, user.TimeFormat),
			Title:       b.Title,
			Description: b.Description,
			Cancelled:   b.Status == model.StatusCancelled,
		}
		if len(b.Attendees) > 0 {
			row.Attendee = b.Attendees[0].Name
			row.AttendeeEmail = b.Attendees[0].Email
		}
		page.Bookings = append(page.Bookings, row)
	}
	renderPage(w, "bookings.html", page)
}

type slotView struct {
	Value string
	Label string
}

type bookPage struct {
	OwnerName     string
	OwnerUsername string
	OwnerEmail    string
	EventTitle    string
	EventSlug     string
	LengthMins    int
	Date          string
	Tz            string
	Slots         []slotView
	FetchFailed   bool
	RescheduleUID string
}

// Book renders the public booking page for /{user}/book. Availability for
// the selected date goes through the loader, so a failed busy-interval fetch
// shows an error banner rather than a fully open day.
func (h *PagesHandler) Book(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(r.PathValue("user"))
	owner, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		if storage.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("lookup user", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	et, err := h.pickEventType(r, owner)
	if err != nil {
		if storage.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("lookup event type", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	page := bookPage{
		OwnerName:     owner.Name,
		OwnerUsername: owner.Username,
		OwnerEmail:    owner.Email,
		EventTitle:    et.Title,
		EventSlug:     et.Slug,
		LengthMins:    et.LengthMins,
		Date:          r.URL.Query().Get("date"),
		Tz:            r.URL.Query().Get("tz"),
		RescheduleUID: r.URL.Query().Get("rescheduleUid"),
	}
	if page.Date == "" {
		renderPage(w, "book.html", page)
		return
	}

	loc, err := time.LoadLocation(owner.TimeZone)
	if err != nil {
		h.logger.Error("load owner timezone", "tz", owner.TimeZone, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", page.Date, loc)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	length := time.Duration(et.LengthMins) * time.Minute
	slots := availability.Slots(availability.SlotOptions{
		CalendarTimeZone: loc,
		EventLength:      length,
		SelectedDate:     date,
		DayStartMinutes:  owner.DayStartMinutes,
		DayEndMinutes:    owner.DayEndMinutes,
	})

	loader := availability.NewLoader(h.busy, owner.Username, h.logger)
	res := <-loader.Select(r.Context(), date)
	if res.State == availability.StateError {
		metrics.IncAvailabilityFetchErrors()
		h.logger.Error("availability fetch failed", "user", owner.Username, "err", res.Err)
		page.FetchFailed = true
		renderPage(w, "book.html", page)
		return
	}

	viewLoc := loc
	if page.Tz != "" {
		if l, err := time.LoadLocation(page.Tz); err == nil {
			viewLoc = l
		}
	}
	for _, s := range availability.Filter(slots, res.Busy, length) {
		page.Slots = append(page.Slots, slotView{
			Value: s.Format(time.RFC3339),
			Label: formatClock(s, viewLoc, owner.TimeFormat),
		})
	}
	renderPage(w, "book.html", page)
}

type confirmPage struct {
	OwnerName     string
	OwnerUsername string
	EventTitle    string
	EventSlug     string
	When          string
	Start         string
	RescheduleUID string
}

// Confirm renders the attendee-details step between picking a slot and
// creating the booking.
func (h *PagesHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(r.PathValue("user"))
	owner, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		if storage.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("lookup user", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	et, err := h.pickEventType(r, owner)
	if err != nil {
		if storage.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("lookup event type", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	loc, err := time.LoadLocation(owner.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	renderPage(w, "confirm.html", confirmPage{
		OwnerName:     owner.Name,
		OwnerUsername: owner.Username,
		EventTitle:    et.Title,
		EventSlug:     et.Slug,
		When:          formatRange(start, start.Add(time.Duration(et.LengthMins)*time.Minute), loc, owner.TimeFormat),
		Start:         start.Format(time.RFC3339),
		RescheduleUID: r.URL.Query().Get("rescheduleUid"),
	})
}

// Reschedule sends the attendee back to the owner's booking page with the
// old booking referenced, so confirming a new slot swaps the two.
func (h *PagesHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	booking, err := h.bookings.GetByUID(r.Context(), uid)
	if err != nil {
		if storage.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("lookup booking", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	owner, err := h.users.GetByID(r.Context(), booking.UserID)
	if err != nil {
		h.logger.Error("lookup owner", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/"+owner.Username+"/book?rescheduleUid="+uid, http.StatusFound)
}

type cancelPage struct {
	UID       string
	Title     string
	When      string
	Cancelled bool
	Error     string
}

func (h *PagesHandler) CancelPage(w http.ResponseWriter, r *http.Request) {
	h.renderCancel(w, r, "")
}

// CancelSubmit handles the form POST from the cancellation page.
func (h *PagesHandler) CancelSubmit(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	_, status, msg := h.cancel.cancelByUID(r, uid)
	switch status {
	case http.StatusOK:
		h.renderCancel(w, r, "")
	case http.StatusNotFound:
		http.NotFound(w, r)
	case http.StatusConflict:
		h.renderCancel(w, r, msg)
	default:
		http.Error(w, msg, status)
	}
}

func (h *PagesHandler) renderCancel(w http.ResponseWriter, r *http.Request, errMsg string) {
	uid := r.PathValue("uid")
	booking, err := h.bookings.GetByUID(r.Context(), uid)
	if err != nil {
		if storage.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("lookup booking", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	owner, err := h.users.GetByID(r.Context(), booking.UserID)
	if err != nil {
		h.logger.Error("lookup owner", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	loc, err := time.LoadLocation(owner.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	renderPage(w, "cancel.html", cancelPage{
		UID:       booking.UID,
		Title:     booking.Title,
		When:      formatRange(booking.StartTime, booking.EndTime, loc, owner.TimeFormat),
		Cancelled: booking.Status == model.StatusCancelled,
		Error:     errMsg,
	})
}

type successPage struct {
	Title         string
	When          string
	AttendeeEmail string
}

func (h *PagesHandler) Success(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	booking, err := h.bookings.GetByUID(r.Context(), uid)
	if err != nil {
		if storage.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("lookup booking", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	owner, err := h.users.GetByID(r.Context(), booking.UserID)
	if err != nil {
		h.logger.Error("lookup owner", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	loc, err := time.LoadLocation(owner.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	email := ""
	if len(booking.Attendees) > 0 {
		email = booking.Attendees[0].Email
	}
	renderPage(w, "success.html", successPage{
		Title:         booking.Title,
		When:          formatRange(booking.StartTime, booking.EndTime, loc, owner.TimeFormat),
		AttendeeEmail: email,
	})
}

func (h *PagesHandler) pickEventType(r *http.Request, owner model.User) (model.EventType, error) {
	if slug := r.URL.Query().Get("slug"); slug != "" {
		return h.eventTypes.GetBySlug(r.Context(), owner.ID, slug)
	}
	types, err := h.eventTypes.ListByUser(r.Context(), owner.ID)
	if err != nil {
		return model.EventType{}, err
	}
	if len(types) == 0 {
		return model.EventType{UserID: owner.ID, Title: "Meeting", LengthMins: 30}, nil
	}
	return types[0], nil
}

func renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = web.Render(w, name, data)
}

func formatClock(t time.Time, loc *time.Location, layout string) string {
	if layout == "" {
		layout = "15:04"
	}
	return t.In(loc).Format(layout)
}

func formatRange(start, end time.Time, loc *time.Location, layout string) string {
	if layout == "" {
		layout = "15:04"
	}
	s := start.In(loc)
	return s.Format("Mon, 2 Jan 2006 ") + s.Format(layout) + " - " + end.In(loc).Format(layout)
}
