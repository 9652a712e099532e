package jobs

import (
	"context"
	"testing"
	"time"
)

func TestEnsure_IdempotentByName(t *testing.T) {
	s := NewScheduler(time.UTC)
	calls := 0
	fn := func(ctx context.Context) error { calls++; return nil }

	if err := s.Ensure("demo", "@every 1h", fn); err != nil {
		t.Fatal(err)
	}
	if err := s.Ensure("demo", "@every 1h", fn); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Names()); got != 1 {
		t.Fatalf("registered jobs = %d, want 1", got)
	}
	if got := len(s.cron.Entries()); got != 1 {
		t.Fatalf("cron entries = %d, want 1", got)
	}
}

func TestEnsure_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.UTC)
	err := s.Ensure("bad", "not a spec", func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error")
	}
	if len(s.Names()) != 0 {
		t.Fatal("failed registration left an entry behind")
	}
}

func TestWrap_ContainsPanics(t *testing.T) {
	s := NewScheduler(time.UTC)
	wrapped := s.wrap("panicky", func(ctx context.Context) error {
		panic("boom")
	})
	// must not propagate
	wrapped()
}

func TestWrap_PassesBoundedContext(t *testing.T) {
	s := NewScheduler(time.UTC)
	var deadlineSet bool
	s.wrap("ctx", func(ctx context.Context) error {
		_, deadlineSet = ctx.Deadline()
		return nil
	})()
	if !deadlineSet {
		t.Fatal("job context has no deadline")
	}
}
