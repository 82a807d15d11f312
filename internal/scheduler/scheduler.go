// Package scheduler runs the periodic library jobs: the overdue sweep and
// activity log cleanup.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/librarydesk/internal/logging"
)

var ErrUnknownJob = errors.New("unknown job")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Schedule string // Five-field cron expression
	Timeout  time.Duration
	Run      func(ctx context.Context, now time.Time) error
}

// Scheduler fires jobs on their cron schedules. A job never overlaps with itself.
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]*entry
	now  func() time.Time

	mu      sync.Mutex
	running bool
}

type entry struct {
	job     Job
	id      cron.EntryID
	mu      sync.Mutex
	busy    bool
	lastRun time.Time
	lastErr error
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(parser)),
		jobs: map[string]*entry{},
		now:  time.Now,
	}
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Add registers a job. It must be called before Start.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule == "" {
		return fmt.Errorf("job %s: empty schedule", job.Name)
	}
	if err := ValidateSchedule(job.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.Schedule, job.Name, err)
	}
	if job.Timeout <= 0 {
		job.Timeout = 10 * time.Minute
	}

	e := &entry{job: job}
	id, err := s.cron.AddFunc(job.Schedule, func() { s.run(e) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
	}
	e.id = id
	s.jobs[job.Name] = e
	return nil
}

// Start begins firing jobs. It stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	s.cron.Start()
	s.running = true

	for name, e := range s.jobs {
		logging.Info().Str("job", name).Str("schedule", e.job.Schedule).
			Time("next_run", s.nextRun(e)).Msg("Scheduler: job registered")
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.running = false
	logging.Info().Msg("Scheduler: stopped")
}

// RunNow runs a job immediately in the calling goroutine.
func (s *Scheduler) RunNow(name string) error {
	e, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	s.run(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Status describes a registered job.
type Status struct {
	Name     string
	Schedule string
	NextRun  time.Time
	LastRun  time.Time
	LastErr  error
	Running  bool
}

// Jobs returns the status of every registered job.
func (s *Scheduler) Jobs() []Status {
	out := make([]Status, 0, len(s.jobs))
	for name, e := range s.jobs {
		e.mu.Lock()
		out = append(out, Status{
			Name:     name,
			Schedule: e.job.Schedule,
			NextRun:  s.nextRun(e),
			LastRun:  e.lastRun,
			LastErr:  e.lastErr,
			Running:  e.busy,
		})
		e.mu.Unlock()
	}
	return out
}

func (s *Scheduler) nextRun(e *entry) time.Time {
	return s.cron.Entry(e.id).Next
}

func (s *Scheduler) run(e *entry) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		logging.Warn().Str("job", e.job.Name).Msg("Scheduler: skipped (previous run still active)")
		return
	}
	e.busy = true
	e.mu.Unlock()

	now := s.now()
	ctx, cancel := context.WithTimeout(context.Background(), e.job.Timeout)
	defer cancel()

	err := e.job.Run(ctx, now)

	e.mu.Lock()
	e.busy = false
	e.lastRun = now
	e.lastErr = err
	e.mu.Unlock()

	if err != nil {
		logging.Error().Err(err).Str("job", e.job.Name).Msg("Scheduler: job failed")
		return
	}
	logging.Info().Str("job", e.job.Name).Dur("took", time.Since(now)).Msg("Scheduler: job finished")
}
