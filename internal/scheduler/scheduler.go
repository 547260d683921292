// Package scheduler owns the recurring digest timers, one per followed theme.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"theme_bot/internal/metrics"
	"theme_bot/internal/model"
	"theme_bot/internal/storage"
)

// Dispatcher is invoked on every timer firing.
type Dispatcher interface {
	Dispatch(ctx context.Context, theme string, interval time.Duration) error
}

// Scheduler is a registry of live recurring timers keyed by theme name.
// Invariant: at most one timer per name.
type Scheduler struct {
	ctx      context.Context
	dispatch Dispatcher
	log      *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	stop chan struct{}
}

// New creates a Scheduler. Timer callbacks run until ctx is cancelled or
// the job is removed.
func New(ctx context.Context, dispatch Dispatcher, log *slog.Logger) *Scheduler {
	return &Scheduler{
		ctx:      ctx,
		dispatch: dispatch,
		log:      log,
		jobs:     make(map[string]*job),
	}
}

// Add registers a periodic timer for the theme. Fails with
// storage.ErrConflict if a timer for the name already exists.
func (s *Scheduler) Add(name string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q: %w", name, storage.ErrConflict)
	}

	j := &job{stop: make(chan struct{})}
	s.jobs[name] = j
	metrics.ActiveJobs.Inc()

	go s.run(name, interval, j)

	s.log.Info("job added", "theme", name, "interval", interval)
	return nil
}

// Remove cancels and deregisters the theme's timer. An in-flight
// dispatch is allowed to complete; no further firings occur. Fails with
// storage.ErrNotFound if no timer exists for the name.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("job %q: %w", name, storage.ErrNotFound)
	}
	close(j.stop)
	delete(s.jobs, name)
	metrics.ActiveJobs.Dec()

	s.log.Info("job removed", "theme", name)
	return nil
}

// Len returns the number of live jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Names returns the live job names in sorted order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Seed registers a job for every followed theme. Called at startup to
// reconcile runtime scheduler state with persisted follow state.
func (s *Scheduler) Seed(themes []model.Theme) error {
	for _, t := range themes {
		if !t.IsFollowing {
			continue
		}
		if err := s.Add(t.Name, time.Duration(t.IntervalSeconds)*time.Second); err != nil {
			return fmt.Errorf("seed theme %q: %w", t.Name, err)
		}
	}
	return nil
}

// Shutdown stops all jobs.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, j := range s.jobs {
		close(j.stop)
		delete(s.jobs, name)
		metrics.ActiveJobs.Dec()
	}
}

// run fires the dispatcher every interval. A failed dispatch is logged
// and does not cancel future firings.
func (s *Scheduler) run(name string, interval time.Duration, j *job) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			// A tick buffered before removal must not start a new
			// dispatch after Remove has returned.
			select {
			case <-j.stop:
				return
			case <-s.ctx.Done():
				return
			default:
			}
			if err := s.dispatch.Dispatch(s.ctx, name, interval); err != nil {
				metrics.DispatchErrors.Inc()
				s.log.Error("dispatch", "theme", name, "error", err)
			}
		}
	}
}
