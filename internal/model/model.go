package model

import "time"

// Booking statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

type User struct {
	ID              string
	Username        string
	Name            string
	Email           string
	PasswordHash    string
	TimeZone        string
	DayStartMinutes int
	DayEndMinutes   int
	TimeFormat      string
	CreatedAt       time.Time
}

type EventType struct {
	ID          string
	UserID      string
	Title       string
	Slug        string
	Description string
	LengthMins  int
	CreatedAt   time.Time
}

type Booking struct {
	ID          string
	UID         string
	UserID      string
	EventTypeID string
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Status      string
	CancelledAt *time.Time
	CreatedAt   time.Time
	Attendees   []Attendee
}

type Attendee struct {
	ID        string
	BookingID string
	Name      string
	Email     string
	TimeZone  string
}
