// Package slot computes non-colliding future publish instants. Shorts
// go out Monday and Friday, long videos Wednesday, all at the same
// local wall-clock time; collisions against the ledger, the remote
// platform and the current batch are all excluded.
package slot

import (
	"context"
	"log"
	"time"

	"yt-publish-scheduler/internal/model"
)

// Reservations supplies the occupied instants from the two external
// authorities. Both return minute-rounded instants in the allocator's
// local timezone.
type Reservations interface {
	LedgerReservedSlots(ctx context.Context, loc *time.Location) (map[time.Time]bool, error)
	RemoteReservedSlots(ctx context.Context, loc *time.Location) (map[time.Time]bool, error)
}

type Allocator struct {
	Location *time.Location
	Hour     int // local publish hour, default 18
	Minute   int // local publish minute, default 30

	Reservations Reservations

	// now is overridable in tests.
	now func() time.Time
}

func (a Allocator) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

func (a Allocator) publishTime() (int, int) {
	if a.Hour == 0 && a.Minute == 0 {
		return 18, 30
	}
	return a.Hour, a.Minute
}

// Weekdays returns the publish weekdays for a video type.
func Weekdays(videoType string) []time.Weekday {
	if videoType == model.VideoTypeShort {
		return []time.Weekday{time.Monday, time.Friday}
	}
	return []time.Weekday{time.Wednesday}
}

// Allocate returns n distinct future UTC instants for the given video
// type, none colliding with any known reservation. A failing remote
// reservation query degrades to an empty remote set; the drift
// reconciliation job catches any collision that causes.
func (a Allocator) Allocate(ctx context.Context, videoType string, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}

	occupied, err := a.Reservations.LedgerReservedSlots(ctx, a.Location)
	if err != nil {
		return nil, err
	}
	if occupied == nil {
		occupied = make(map[time.Time]bool)
	}
	remote, err := a.Reservations.RemoteReservedSlots(ctx, a.Location)
	if err != nil {
		log.Printf("[slots] remote reservations unavailable, allocating without them: %v", err)
	} else {
		for t := range remote {
			occupied[t] = true
		}
	}

	out := make([]time.Time, 0, n)
	for cand := range a.candidates(videoType) {
		if occupied[cand] {
			continue
		}
		occupied[cand] = true
		out = append(out, cand.UTC())
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// candidates yields the publish wall-clock time on each matching
// weekday, one calendar day at a time, starting today.
func (a Allocator) candidates(videoType string) func(yield func(time.Time) bool) {
	hour, minute := a.publishTime()
	days := Weekdays(videoType)
	start := a.clock().In(a.Location)
	return func(yield func(time.Time) bool) {
		day := start
		for {
			cand := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, a.Location)
			if !cand.Before(start) && matchesWeekday(cand.Weekday(), days) {
				if !yield(cand) {
					return
				}
			}
			day = day.AddDate(0, 0, 1)
		}
	}
}

func matchesWeekday(w time.Weekday, days []time.Weekday) bool {
	for _, d := range days {
		if d == w {
			return true
		}
	}
	return false
}
