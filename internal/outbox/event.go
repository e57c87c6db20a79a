package outbox

import (
	"encoding/json"
	"time"

	"github.com/yochees/cal/internal/model"
)

// Kafka topic names equal the event type, one topic per lifecycle event.
const (
	EventBookingCreated     = "booking.created"
	EventBookingRescheduled = "booking.rescheduled"
	EventBookingCancelled   = "booking.cancelled"
	EventUserRegistered     = "user.registered"
)

// Event is the envelope written to the outbox table inside the same
// transaction as the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type bookingPayload struct {
	UID          string    `json:"uid"`
	Title        string    `json:"title"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Status       string    `json:"status"`
	PreviousUID  string    `json:"previousUid,omitempty"`
	AttendeeName string    `json:"attendeeName,omitempty"`
}

func BookingEvent(eventType string, b model.Booking, previousUID string) Event {
	p := bookingPayload{
		UID:         b.UID,
		Title:       b.Title,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Status:      b.Status,
		PreviousUID: previousUID,
	}
	if len(b.Attendees) > 0 {
		p.AttendeeName = b.Attendees[0].Name
	}
	payload, _ := json.Marshal(p)
	return Event{
		AggregateType: "booking",
		AggregateID:   b.UID,
		EventType:     eventType,
		Payload:       payload,
	}
}

func UserRegisteredEvent(u model.User) Event {
	payload, _ := json.Marshal(map[string]string{
		"username": u.Username,
		"email":    u.Email,
	})
	return Event{
		AggregateType: "user",
		AggregateID:   u.ID,
		EventType:     EventUserRegistered,
		Payload:       payload,
	}
}
