package model

import "testing"

func TestCanTransition_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{"", StatusScheduled},
		{StatusScheduled, StatusUploaded},
		{StatusScheduled, StatusFailed},
		{StatusScheduled, StatusCanceled},
		{StatusUploaded, StatusPublished},
		{StatusUploaded, StatusDeleted},
		{StatusUploaded, StatusScheduled},
		{StatusDeleted, StatusUploaded},
	}

	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{StatusPublished, StatusScheduled},
		{StatusPublished, StatusUploaded},
		{StatusFailed, StatusScheduled},
		{StatusFailed, StatusUploaded},
		{StatusCanceled, StatusScheduled},
		{StatusScheduled, StatusPublished},
		{"not_a_state", StatusScheduled},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
}

func TestTransitionStatus_BlocksIllegalTransition(t *testing.T) {
	rec := ScheduleRecord{
		ID:       3,
		FolderID: "folder-3",
		Status:   StatusPublished,
	}

	if err := TransitionStatus(&rec, StatusScheduled); err == nil {
		t.Fatalf("expected illegal transition error")
	}
	if rec.Status != StatusPublished {
		t.Fatalf("record status mutated by rejected transition: %q", rec.Status)
	}
}

func TestIsTerminalStatus(t *testing.T) {
	for _, s := range []string{StatusPublished, StatusFailed, StatusError, StatusCanceled} {
		if !IsTerminalStatus(s) {
			t.Fatalf("expected %q to be terminal", s)
		}
	}
	for _, s := range []string{StatusScheduled, StatusUploaded, StatusDeleted} {
		if IsTerminalStatus(s) {
			t.Fatalf("expected %q to be non-terminal", s)
		}
	}
}
