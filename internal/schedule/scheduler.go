// Package schedule runs one daily job per binding at a configured local
// time-of-day.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job handles one scheduled firing. Failures must stay inside the job; the
// scheduler only logs panics and keeps the job registered.
type Job func(ctx context.Context, bindingID string)

type task struct {
	cancel context.CancelFunc
}

// Scheduler keys jobs by binding id, so re-scheduling a binding replaces its
// job instead of stacking a second one, and an identity that unbinds and
// rebinds gets a fresh job under the new binding's id.
type Scheduler struct {
	run Job
	loc *time.Location
	log *logrus.Entry

	mu    sync.Mutex
	tasks map[string]task

	now func() time.Time // replaced in tests
}

func New(run Job, loc *time.Location, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		run:   run,
		loc:   loc,
		log:   log.WithField("component", "scheduler"),
		tasks: make(map[string]task),
		now:   time.Now,
	}
}

// Add registers a daily job for the binding, replacing any existing one.
func (s *Scheduler) Add(ctx context.Context, bindingID string, hour, minute int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[bindingID]; ok {
		existing.cancel()
	}

	jobCtx, cancel := context.WithCancel(ctx)
	s.tasks[bindingID] = task{cancel: cancel}

	s.log.WithFields(logrus.Fields{
		"binding": bindingID,
		"at":      timeOfDay(hour, minute),
	}).Info("daily job registered")

	go s.loop(jobCtx, bindingID, hour, minute)
}

// Remove cancels the binding's job if one is registered.
func (s *Scheduler) Remove(bindingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[bindingID]; ok {
		existing.cancel()
		delete(s.tasks, bindingID)
		s.log.WithField("binding", bindingID).Info("daily job removed")
	}
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels every job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tasks {
		t.cancel()
		delete(s.tasks, id)
	}
}

func (s *Scheduler) loop(ctx context.Context, bindingID string, hour, minute int) {
	for {
		wait := time.Until(NextRun(s.now().In(s.loc), hour, minute))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.fire(ctx, bindingID)
	}
}

// fire runs one job invocation, containing panics so a broken job cannot take
// the loop down or affect other bindings.
func (s *Scheduler) fire(ctx context.Context, bindingID string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"binding": bindingID,
				"panic":   r,
			}).Error("scheduled job panicked")
		}
	}()
	s.run(ctx, bindingID)
}

// NextRun returns the next instant the wall clock reads hour:minute in now's
// location: today if that time is still ahead, otherwise tomorrow.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func timeOfDay(hour, minute int) string {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")
}
