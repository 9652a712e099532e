// Package jobs runs the standing background work on a cron schedule.
// Registration is idempotent by job name, so re-wiring at startup or
// after a config reload never doubles a job.
package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// runTimeout bounds a single job run; a wedged remote call must not
// block the next tick forever.
const runTimeout = 20 * time.Minute

type Scheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		entries: map[string]cron.EntryID{},
	}
}

// Ensure registers fn under name with the given cron spec. A name that
// is already registered is left untouched and no second entry is
// created.
func (s *Scheduler) Ensure(name, spec string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return nil
	}
	id, err := s.cron.AddFunc(spec, s.wrap(name, fn))
	if err != nil {
		return fmt.Errorf("register job %s (%s): %w", name, spec, err)
	}
	s.entries[name] = id
	log.Printf("[jobs] registered %s (%s)", name, spec)
	return nil
}

// wrap gives every run a bounded context, panic containment and a
// duration log line. A panicking job must never take the scheduler
// down.
func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[jobs] %s panicked after %s: %v", name, time.Since(start).Round(time.Millisecond), r)
			}
		}()
		if err := fn(ctx); err != nil {
			log.Printf("[jobs] %s failed after %s: %v", name, time.Since(start).Round(time.Millisecond), err)
			return
		}
		log.Printf("[jobs] %s done in %s", name, time.Since(start).Round(time.Millisecond))
	}
}

// Names returns the registered job names, for diagnostics.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for name := range s.entries {
		out = append(out, name)
	}
	return out
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops dispatching and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
