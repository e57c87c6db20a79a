// Package availability computes the open meeting slots an invitee can book:
// candidate start instants generated inside the owner's working-hours window,
// minus everything that collides with existing calendar commitments.
package availability

import "time"

// Interval is a half-open busy range [Start, End) blocking a user's calendar.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotOptions describes one day of slot generation. DayStartMinutes and
// DayEndMinutes are minutes after midnight in the owner's zone; SelectedDate
// names the target day (only its year/month/day are used, interpreted in
// CalendarTimeZone).
type SlotOptions struct {
	CalendarTimeZone *time.Location
	EventLength      time.Duration
	SelectedDate     time.Time
	DayStartMinutes  int
	DayEndMinutes    int
}

// Slots returns the candidate start instants for the configured day, spaced
// by the event length, first at the window start, last no later than window
// end minus the event length. Degenerate or inverted windows yield nil.
// The function is pure: identical options always produce identical output.
func Slots(opts SlotOptions) []time.Time {
	if opts.EventLength <= 0 {
		return nil
	}
	loc := opts.CalendarTimeZone
	if loc == nil {
		loc = time.UTC
	}

	windowStart := dayAnchor(opts.SelectedDate, loc).Add(time.Duration(opts.DayStartMinutes) * time.Minute)
	windowEnd := dayAnchor(opts.SelectedDate, loc).Add(time.Duration(opts.DayEndMinutes) * time.Minute)
	if !windowEnd.After(windowStart) {
		return nil
	}
	if windowStart.Add(opts.EventLength).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(opts.EventLength).After(windowEnd); t = t.Add(opts.EventLength) {
		slots = append(slots, t)
	}
	return slots
}

// Filter returns the slots that survive every busy interval, in their
// original order. The input slice is never modified. A slot is removed when
// any busy interval triggers any of:
//
//  1. the slot start and the busy start share the same clock time, minute
//     precision (legacy equality check, coarser than the interval checks);
//  2. the slot start lies strictly inside the busy interval;
//  3. the slot end lies strictly inside the busy interval;
//  4. the busy start lies strictly inside the slot's own span.
//
// Interval endpoints are exclusive throughout: a slot ending exactly when a
// busy interval starts, or starting exactly when one ends, survives.
func Filter(slots []time.Time, busy []Interval, eventLength time.Duration) []time.Time {
	if len(slots) == 0 {
		return nil
	}
	kept := make([]time.Time, 0, len(slots))
	for _, slot := range slots {
		if !conflicts(slot, slot.Add(eventLength), busy) {
			kept = append(kept, slot)
		}
	}
	return kept
}

func conflicts(slotStart, slotEnd time.Time, busy []Interval) bool {
	for _, b := range busy {
		if clockMinuteEqual(slotStart, b.Start) {
			return true
		}
		if strictlyInside(slotStart, b.Start, b.End) {
			return true
		}
		if strictlyInside(slotEnd, b.Start, b.End) {
			return true
		}
		if strictlyInside(b.Start, slotStart, slotEnd) {
			return true
		}
	}
	return false
}

// strictlyInside reports start < t < end; the endpoints themselves never count.
func strictlyInside(t, start, end time.Time) bool {
	return t.After(start) && t.Before(end)
}

// clockMinuteEqual compares wall-clock hour and minute only, in the slot's
// own zone, ignoring date and seconds.
func clockMinuteEqual(slot, busyStart time.Time) bool {
	b := busyStart.In(slot.Location())
	return slot.Hour() == b.Hour() && slot.Minute() == b.Minute()
}

func dayAnchor(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
