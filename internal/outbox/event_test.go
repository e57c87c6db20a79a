package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/yochees/cal/internal/model"
)

func TestBookingEventPayload(t *testing.T) {
	b := model.Booking{
		UID:       "abc123",
		Title:     "Intro call between Alice and Bob",
		StartTime: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC),
		Status:    model.StatusConfirmed,
		Attendees: []model.Attendee{{Name: "Bob", Email: "bob@example.com"}},
	}

	evt := BookingEvent(EventBookingRescheduled, b, "old456")
	if evt.AggregateType != "booking" || evt.AggregateID != "abc123" {
		t.Fatalf("unexpected envelope %+v", evt)
	}
	if evt.EventType != EventBookingRescheduled {
		t.Fatalf("unexpected event type %q", evt.EventType)
	}

	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if payload["previousUid"] != "old456" {
		t.Fatalf("reschedule payload must reference the previous uid, got %v", payload["previousUid"])
	}
	if payload["attendeeName"] != "Bob" {
		t.Fatalf("unexpected attendee %v", payload["attendeeName"])
	}
}

func TestBookingEventOmitsEmptyPrevious(t *testing.T) {
	evt := BookingEvent(EventBookingCreated, model.Booking{UID: "x"}, "")
	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if _, ok := payload["previousUid"]; ok {
		t.Fatal("created event must not carry previousUid")
	}
}
