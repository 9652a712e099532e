package slot

import (
	"context"
	"errors"
	"testing"
	"time"

	"yt-publish-scheduler/internal/model"
)

type fakeReservations struct {
	ledger    map[time.Time]bool
	remote    map[time.Time]bool
	remoteErr error
}

func (f fakeReservations) LedgerReservedSlots(ctx context.Context, loc *time.Location) (map[time.Time]bool, error) {
	return f.ledger, nil
}

func (f fakeReservations) RemoteReservedSlots(ctx context.Context, loc *time.Location) (map[time.Time]bool, error) {
	if f.remoteErr != nil {
		return nil, f.remoteErr
	}
	return f.remote, nil
}

// taipeiLoc is shared so every fixture time carries the same *Location
// the allocator receives; time.LoadLocation returns a fresh pointer per
// call, and map[time.Time]bool keys compare locations by identity.
var taipeiLoc *time.Location

func taipei(t *testing.T) *time.Location {
	t.Helper()
	if taipeiLoc == nil {
		loc, err := time.LoadLocation("Asia/Taipei")
		if err != nil {
			t.Fatal(err)
		}
		taipeiLoc = loc
	}
	return taipeiLoc
}

func newAllocator(t *testing.T, res Reservations, now time.Time) Allocator {
	return Allocator{
		Location:     taipei(t),
		Reservations: res,
		now:          func() time.Time { return now },
	}
}

// Tuesday 2026-09-01 10:00 Asia/Taipei.
func tuesdayMorning(t *testing.T) time.Time {
	return time.Date(2026, 9, 1, 10, 0, 0, 0, taipei(t))
}

func TestAllocate_ShortFallsOnMonAndFri(t *testing.T) {
	a := newAllocator(t, fakeReservations{}, tuesdayMorning(t))

	slots, err := a.Allocate(context.Background(), model.VideoTypeShort, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 4 {
		t.Fatalf("got %d slots", len(slots))
	}
	loc := taipei(t)
	now := tuesdayMorning(t)
	seen := map[time.Time]bool{}
	for _, s := range slots {
		local := s.In(loc)
		if local.Weekday() != time.Monday && local.Weekday() != time.Friday {
			t.Fatalf("slot %v on %v", local, local.Weekday())
		}
		if local.Hour() != 18 || local.Minute() != 30 {
			t.Fatalf("slot %v not at 18:30", local)
		}
		if !s.After(now) {
			t.Fatalf("slot %v not in the future", s)
		}
		if seen[s] {
			t.Fatalf("duplicate slot %v", s)
		}
		seen[s] = true
	}
	// Tuesday start: first short slot is Friday the 4th.
	first := slots[0].In(loc)
	if first.Day() != 4 || first.Month() != time.September {
		t.Fatalf("first slot = %v", first)
	}
}

func TestAllocate_LongFallsOnWednesday(t *testing.T) {
	a := newAllocator(t, fakeReservations{}, tuesdayMorning(t))

	slots, err := a.Allocate(context.Background(), model.VideoTypeLong, 2)
	if err != nil {
		t.Fatal(err)
	}
	loc := taipei(t)
	if d := slots[0].In(loc); d.Day() != 2 || d.Weekday() != time.Wednesday {
		t.Fatalf("first long slot = %v", d)
	}
	if d := slots[1].In(loc); d.Day() != 9 {
		t.Fatalf("second long slot = %v", d)
	}
}

func TestAllocate_SkipsOccupiedSlots(t *testing.T) {
	loc := taipei(t)
	firstWed := time.Date(2026, 9, 2, 18, 30, 0, 0, loc)
	res := fakeReservations{
		ledger: map[time.Time]bool{firstWed: true},
	}
	a := newAllocator(t, res, tuesdayMorning(t))

	slots, err := a.Allocate(context.Background(), model.VideoTypeLong, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := slots[0].In(loc); got.Equal(firstWed) || got.Day() != 9 {
		t.Fatalf("allocated occupied slot: %v", got)
	}
}

func TestAllocate_RemoteReservationsExcluded(t *testing.T) {
	loc := taipei(t)
	firstWed := time.Date(2026, 9, 2, 18, 30, 0, 0, loc)
	res := fakeReservations{
		remote: map[time.Time]bool{firstWed: true},
	}
	a := newAllocator(t, res, tuesdayMorning(t))

	slots, err := a.Allocate(context.Background(), model.VideoTypeLong, 1)
	if err != nil {
		t.Fatal(err)
	}
	if slots[0].In(loc).Day() != 9 {
		t.Fatalf("remote reservation not excluded: %v", slots[0].In(loc))
	}
}

func TestAllocate_RemoteFailureIsNotFatal(t *testing.T) {
	res := fakeReservations{remoteErr: errors.New("auth expired")}
	a := newAllocator(t, res, tuesdayMorning(t))

	slots, err := a.Allocate(context.Background(), model.VideoTypeShort, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 {
		t.Fatalf("got %d slots", len(slots))
	}
}

func TestAllocate_BatchMembersNeverCollide(t *testing.T) {
	a := newAllocator(t, fakeReservations{}, tuesdayMorning(t))

	slots, err := a.Allocate(context.Background(), model.VideoTypeShort, 8)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[time.Time]bool{}
	for _, s := range slots {
		if seen[s] {
			t.Fatalf("batch collision at %v", s)
		}
		seen[s] = true
	}
}

func TestAllocate_ReturnsUTC(t *testing.T) {
	a := newAllocator(t, fakeReservations{}, tuesdayMorning(t))
	slots, err := a.Allocate(context.Background(), model.VideoTypeLong, 1)
	if err != nil {
		t.Fatal(err)
	}
	if zone, _ := slots[0].Zone(); zone != "UTC" {
		t.Fatalf("slot zone = %q", zone)
	}
	// 18:30 Asia/Taipei is 10:30 UTC.
	if slots[0].Hour() != 10 || slots[0].Minute() != 30 {
		t.Fatalf("slot = %v", slots[0])
	}
}
