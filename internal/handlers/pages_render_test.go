package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/yochees/cal/internal/model"
	"github.com/yochees/cal/internal/web"
)

func testUser() model.User {
	return model.User{
		ID:              "u1",
		Username:        "alice",
		Name:            "Alice",
		Email:           "alice@example.com",
		TimeZone:        "UTC",
		DayStartMinutes: 9 * 60,
		DayEndMinutes:   17 * 60,
		TimeFormat:      "15:04",
	}
}

func render(t *testing.T, name string, data any) string {
	t.Helper()
	var sb strings.Builder
	if err := web.Render(&sb, name, data); err != nil {
		t.Fatalf("render %s: %v", name, err)
	}
	return sb.String()
}

func TestBookingsTemplate(t *testing.T) {
	out := render(t, "bookings.html", bookingsPage{
		User: testUser(),
		Bookings: []bookingRow{
			{UID: "abc", When: "Mon, 2 Feb 2026 09:00 - 09:30", Title: "Intro call", Description: "A quick chat", Attendee: "Bob", AttendeeEmail: "bob@example.com"},
			{UID: "def", When: "Tue, 3 Feb 2026 10:00 - 10:30", Title: "Old call", Attendee: "Carol", Cancelled: true},
		},
	})
	if !strings.Contains(out, "/bookings/abc/reschedule") {
		t.Error("active booking should link to reschedule")
	}
	if !strings.Contains(out, "/bookings/abc/cancel") {
		t.Error("active booking should link to cancel")
	}
	if strings.Contains(out, "/bookings/def/cancel") {
		t.Error("cancelled booking must not offer cancel")
	}
	if !strings.Contains(out, "A quick chat") {
		t.Error("row should show the booking description")
	}
	if !strings.Contains(out, "bob@example.com") {
		t.Error("row should show the attendee email")
	}
}

func TestBookingsTemplateEmpty(t *testing.T) {
	out := render(t, "bookings.html", bookingsPage{User: testUser()})
	if !strings.Contains(out, "no bookings yet") {
		t.Error("empty list should render the empty state")
	}
}

func TestBookTemplate(t *testing.T) {
	out := render(t, "book.html", bookPage{
		OwnerName:     "Alice",
		OwnerUsername: "alice",
		EventTitle:    "Intro call",
		EventSlug:     "intro",
		LengthMins:    30,
		Date:          "2026-02-02",
		Slots: []slotView{
			{Value: "2026-02-02T09:00:00Z", Label: "09:00"},
			{Value: "2026-02-02T09:30:00Z", Label: "09:30"},
		},
	})
	if !strings.Contains(out, "09:30") {
		t.Error("slot labels should render")
	}
	if !strings.Contains(out, "/alice/book/confirm?slug=intro") {
		t.Error("slots should link to the confirm step")
	}
}

// Rescheduling and the viewer's timezone travel as query params, so the date
// form has to resubmit them or a reschedule silently becomes a fresh booking.
func TestBookTemplateDateFormKeepsContext(t *testing.T) {
	out := render(t, "book.html", bookPage{
		OwnerName:     "Alice",
		OwnerUsername: "alice",
		EventTitle:    "Intro call",
		EventSlug:     "intro",
		LengthMins:    30,
		Date:          "2026-02-02",
		Tz:            "Europe/London",
		RescheduleUID: "abc",
		Slots: []slotView{
			{Value: "2026-02-02T09:00:00Z", Label: "09:00"},
		},
	})
	if !strings.Contains(out, `name="rescheduleUid" value="abc"`) {
		t.Error("date form should carry rescheduleUid as a hidden input")
	}
	if !strings.Contains(out, `name="slug" value="intro"`) {
		t.Error("date form should carry the event slug as a hidden input")
	}
	if !strings.Contains(out, `name="tz" value="Europe/London"`) {
		t.Error("date form should carry the viewer timezone as a hidden input")
	}
	if !strings.Contains(out, "rescheduleUid=abc") {
		t.Error("slot links should carry rescheduleUid to the confirm step")
	}
}

func TestBookTemplateFetchFailure(t *testing.T) {
	out := render(t, "book.html", bookPage{
		OwnerName:     "Alice",
		OwnerUsername: "alice",
		OwnerEmail:    "alice@example.com",
		EventTitle:    "Intro call",
		Date:          "2026-02-02",
		FetchFailed:   true,
	})
	if !strings.Contains(out, "Could not load availability") {
		t.Error("fetch failure must render an error banner")
	}
	if !strings.Contains(out, "mailto:alice@example.com") {
		t.Error("fetch failure should offer the owner's email as a fallback")
	}
	if strings.Contains(out, "No open times") {
		t.Error("fetch failure must not look like a free day")
	}
}

func TestConfirmAndCancelAndSuccessTemplates(t *testing.T) {
	render(t, "confirm.html", confirmPage{
		OwnerName:     "Alice",
		OwnerUsername: "alice",
		EventTitle:    "Intro call",
		EventSlug:     "intro",
		When:          "Mon, 2 Feb 2026 09:00 - 09:30",
		Start:         time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC).Format(time.RFC3339),
	})
	out := render(t, "cancel.html", cancelPage{
		UID:   "abc",
		Title: "Intro call",
		When:  "Mon, 2 Feb 2026 09:00 - 09:30",
	})
	if !strings.Contains(out, "/bookings/abc/cancel") {
		t.Error("cancel form should post back to the cancel route")
	}
	render(t, "login.html", map[string]string{"Error": "bad credentials"})
}

func TestSuccessTemplateAttendeeEmail(t *testing.T) {
	out := render(t, "success.html", successPage{
		Title:         "Intro call",
		When:          "Mon, 2 Feb 2026 09:00 - 09:30",
		AttendeeEmail: "bob@example.com",
	})
	if !strings.Contains(out, "sent to bob@example.com") {
		t.Error("confirmation line should name the attendee email")
	}

	out = render(t, "success.html", successPage{
		Title: "Intro call",
		When:  "Mon, 2 Feb 2026 09:00 - 09:30",
	})
	if strings.Contains(out, "has been sent to") {
		t.Error("confirmation line must be omitted without an attendee email")
	}
}

func TestFormatRange(t *testing.T) {
	start := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	got := formatRange(start, start.Add(30*time.Minute), time.UTC, "15:04")
	if got != "Mon, 2 Feb 2026 09:00 - 09:30" {
		t.Fatalf("unexpected range %q", got)
	}
}
