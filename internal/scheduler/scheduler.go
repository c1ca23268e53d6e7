package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/netresearch/go-cron"
)

// ErrUnknownJob is returned by RunNow for an unregistered name.
var ErrUnknownJob = errors.New("unknown job")

// Job is the work of a scheduled entry.
type Job func(ctx context.Context) error

// Entry describes a registered job.
type Entry struct {
	Name    string
	Cron    *CronExpr
	Next    time.Time
	LastRun time.Time
	Runs    int
	LastErr error
}

type entry struct {
	name    string
	cron    *CronExpr
	job     Job
	id      cron.EntryID
	running sync.Mutex

	mu      sync.Mutex
	lastRun time.Time
	runs    int
	lastErr error
}

// Scheduler runs jobs on their cron schedules. A job never overlaps
// with itself; a tick that finds the previous run still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	log    *slog.Logger
	loc    *time.Location
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a Scheduler.
type Option func(*schedulerOptions)

type schedulerOptions struct {
	log *slog.Logger
	loc *time.Location
}

func WithLogger(l *slog.Logger) Option     { return func(o *schedulerOptions) { o.log = l } }
func WithLocation(l *time.Location) Option { return func(o *schedulerOptions) { o.loc = l } }

// New creates a stopped scheduler.
func New(opts ...Option) *Scheduler {
	o := schedulerOptions{log: slog.Default(), loc: time.Local}
	for _, fn := range opts {
		fn(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(o.loc)),
		log:     o.log,
		loc:     o.loc,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
}

// Add registers job under name with a 5-field cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	expr, err := ParseCron(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}

	e := &entry{name: name, cron: expr, job: job}
	e.id = s.cron.Schedule(expr.schedule, cron.FuncJob(func() { s.run(e) }))
	s.entries[name] = e
	s.log.Debug("scheduler: added job", "job", name, "cron", spec)
	return nil
}

// Remove unregisters a job. Unknown names are ignored.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		s.cron.Remove(e.id)
		delete(s.entries, name)
	}
}

// RunNow runs a job immediately on the calling goroutine.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(e)
}

func (s *Scheduler) run(e *entry) error {
	if !e.running.TryLock() {
		s.log.Warn("scheduler: job still running, skipping", "job", e.name)
		return nil
	}
	defer e.running.Unlock()

	start := time.Now()
	err := e.job(s.ctx)

	e.mu.Lock()
	e.lastRun = start
	e.runs++
	e.lastErr = err
	e.mu.Unlock()

	if err != nil {
		s.log.Error("scheduler: job failed", "job", e.name, "error", err)
	} else {
		s.log.Debug("scheduler: job done", "job", e.name, "duration", time.Since(start))
	}
	return err
}

// NextRun returns the first activation of a job after now, in the
// scheduler's location. It does not need the scheduler to be started.
func (s *Scheduler) NextRun(name string, now time.Time) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return e.cron.Next(now.In(s.loc)), true
}

// Entries returns a snapshot of every job, sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		e.mu.Lock()
		out = append(out, Entry{
			Name:    e.name,
			Cron:    e.cron,
			Next:    s.cron.Entry(e.id).Next,
			LastRun: e.lastRun,
			Runs:    e.runs,
			LastErr: e.lastErr,
		})
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start begins dispatching jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
