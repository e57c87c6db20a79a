package availability

import (
	"testing"
	"time"
)

func date(t *testing.T, loc *time.Location, hour, min int) time.Time {
	t.Helper()
	return time.Date(2026, 1, 28, hour, min, 0, 0, loc)
}

func TestSlots_CountSpacingAndFirst(t *testing.T) {
	slots := Slots(SlotOptions{
		CalendarTimeZone: time.UTC,
		EventLength:      30 * time.Minute,
		SelectedDate:     date(t, time.UTC, 0, 0),
		DayStartMinutes:  9 * 60,
		DayEndMinutes:    17 * 60,
	})

	// floor((17:00-09:00)/30m) = 16 slots.
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	if !slots[0].Equal(date(t, time.UTC, 9, 0)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	for i := 1; i < len(slots); i++ {
		if got := slots[i].Sub(slots[i-1]); got != 30*time.Minute {
			t.Fatalf("slot %d spaced %s from predecessor, want 30m", i, got)
		}
	}
	last := slots[len(slots)-1]
	if last.Add(30 * time.Minute).After(date(t, time.UTC, 17, 0)) {
		t.Fatalf("last slot %s overruns the window", last.Format(time.RFC3339))
	}
}

func TestSlots_PartialTrailingWindow(t *testing.T) {
	// 60-minute window, 25-minute events: only two fit.
	slots := Slots(SlotOptions{
		CalendarTimeZone: time.UTC,
		EventLength:      25 * time.Minute,
		SelectedDate:     date(t, time.UTC, 0, 0),
		DayStartMinutes:  9 * 60,
		DayEndMinutes:    10 * 60,
	})
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
}

func TestSlots_WindowShorterThanEvent(t *testing.T) {
	slots := Slots(SlotOptions{
		CalendarTimeZone: time.UTC,
		EventLength:      60 * time.Minute,
		SelectedDate:     date(t, time.UTC, 0, 0),
		DayStartMinutes:  9 * 60,
		DayEndMinutes:    9*60 + 30,
	})
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestSlots_InvertedWindow(t *testing.T) {
	slots := Slots(SlotOptions{
		CalendarTimeZone: time.UTC,
		EventLength:      30 * time.Minute,
		SelectedDate:     date(t, time.UTC, 0, 0),
		DayStartMinutes:  17 * 60,
		DayEndMinutes:    9 * 60,
	})
	if len(slots) != 0 {
		t.Fatalf("expected no slots for an inverted window, got %d", len(slots))
	}
}

func TestSlots_Deterministic(t *testing.T) {
	opts := SlotOptions{
		CalendarTimeZone: time.UTC,
		EventLength:      45 * time.Minute,
		SelectedDate:     date(t, time.UTC, 0, 0),
		DayStartMinutes:  8 * 60,
		DayEndMinutes:    12 * 60,
	}
	a := Slots(opts)
	b := Slots(opts)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Fatalf("slot %d differs: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestSlots_GeneratedInOwnersZone(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	slots := Slots(SlotOptions{
		CalendarTimeZone: denver,
		EventLength:      30 * time.Minute,
		SelectedDate:     time.Date(2026, 1, 28, 0, 0, 0, 0, denver),
		DayStartMinutes:  9 * 60,
		DayEndMinutes:    10 * 60,
	})
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	// 09:00 Denver is 16:00 UTC in January; converting the instant for a
	// viewer must not shift it.
	if got := slots[0].UTC(); !got.Equal(time.Date(2026, 1, 28, 16, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 16:00 UTC, got %s", got.Format(time.RFC3339))
	}
}

func TestFilter_ExactCoverRemoved(t *testing.T) {
	slot := date(t, time.UTC, 9, 0)
	busy := []Interval{{Start: date(t, time.UTC, 9, 0), End: date(t, time.UTC, 9, 30)}}

	kept := Filter([]time.Time{slot}, busy, 30*time.Minute)
	if len(kept) != 0 {
		t.Fatalf("exactly covered slot should be removed, kept %v", kept)
	}
}

func TestFilter_DisjointSlotSurvives(t *testing.T) {
	slot := date(t, time.UTC, 14, 0)
	busy := []Interval{
		{Start: date(t, time.UTC, 9, 15), End: date(t, time.UTC, 9, 45)},
		{Start: date(t, time.UTC, 11, 0), End: date(t, time.UTC, 12, 0)},
	}
	kept := Filter([]time.Time{slot}, busy, 30*time.Minute)
	if len(kept) != 1 || !kept[0].Equal(slot) {
		t.Fatalf("disjoint slot should survive, kept %v", kept)
	}
}

func TestFilter_OverlappingBusyInterval(t *testing.T) {
	slots := []time.Time{
		date(t, time.UTC, 9, 0),
		date(t, time.UTC, 9, 30),
		date(t, time.UTC, 10, 0),
	}
	busy := []Interval{{Start: date(t, time.UTC, 9, 15), End: date(t, time.UTC, 9, 45)}}

	kept := Filter(slots, busy, 30*time.Minute)
	// 09:00's end falls inside the busy range, 09:30 starts inside it; only
	// 10:00 is conflict-free.
	if len(kept) != 1 {
		t.Fatalf("expected 1 surviving slot, got %v", kept)
	}
	if !kept[0].Equal(date(t, time.UTC, 10, 0)) {
		t.Fatalf("expected 10:00 to survive, got %s", kept[0].Format(time.RFC3339))
	}
}

func TestFilter_TouchingEndpointsSurvive(t *testing.T) {
	// Busy 09:30-10:00. The slot ending exactly at 09:30 and the slot
	// starting exactly at 10:00 both touch the interval without entering it.
	slots := []time.Time{
		date(t, time.UTC, 9, 0),
		date(t, time.UTC, 10, 0),
	}
	busy := []Interval{{Start: date(t, time.UTC, 9, 30), End: date(t, time.UTC, 10, 0)}}

	kept := Filter(slots, busy, 30*time.Minute)
	if len(kept) != 2 {
		t.Fatalf("touching slots should survive, kept %v", kept)
	}
}

func TestFilter_MinuteEqualityRule(t *testing.T) {
	// The clock-equality rule compares HH:MM only. A busy interval on the
	// following day whose start shares the slot's clock minute still removes
	// it even though the intervals are disjoint in time.
	slot := date(t, time.UTC, 9, 0)
	busy := []Interval{{
		Start: time.Date(2026, 1, 29, 9, 0, 30, 0, time.UTC),
		End:   time.Date(2026, 1, 29, 9, 30, 0, 0, time.UTC),
	}}

	kept := Filter([]time.Time{slot}, busy, 30*time.Minute)
	if len(kept) != 0 {
		t.Fatalf("minute-equal slot should be removed, kept %v", kept)
	}
}

func TestFilter_BusyStartInsideSlot(t *testing.T) {
	// Busy 09:10-09:20 sits wholly inside the 09:00-09:30 slot.
	slot := date(t, time.UTC, 9, 0)
	busy := []Interval{{Start: date(t, time.UTC, 9, 10), End: date(t, time.UTC, 9, 20)}}

	kept := Filter([]time.Time{slot}, busy, 30*time.Minute)
	if len(kept) != 0 {
		t.Fatalf("slot containing a busy interval should be removed, kept %v", kept)
	}
}

func TestFilter_PreservesOrderAndInput(t *testing.T) {
	slots := []time.Time{
		date(t, time.UTC, 9, 0),
		date(t, time.UTC, 10, 0),
		date(t, time.UTC, 11, 0),
		date(t, time.UTC, 12, 0),
	}
	busy := []Interval{{Start: date(t, time.UTC, 10, 0), End: date(t, time.UTC, 11, 0)}}

	kept := Filter(slots, busy, 60*time.Minute)
	want := []time.Time{slots[0], slots[2], slots[3]}
	if len(kept) != len(want) {
		t.Fatalf("expected %d survivors, got %v", len(want), kept)
	}
	for i := range want {
		if !kept[i].Equal(want[i]) {
			t.Fatalf("order not preserved at %d: got %s want %s", i, kept[i], want[i])
		}
	}
	// The input slice must be untouched.
	if len(slots) != 4 || !slots[1].Equal(date(t, time.UTC, 10, 0)) {
		t.Fatal("Filter must not mutate its input")
	}
}
