// Package cron runs named maintenance jobs on fixed intervals.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrJobNotFound = errors.New("cron: job not found")
	ErrJobBusy     = errors.New("cron: job already running")
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Job is a unit of periodic work. Timeout, when set, bounds a single run.
type Job struct {
	Name        string
	Description string
	Interval    time.Duration
	Timeout     time.Duration
	RunOnStart  bool
	Fn          func(ctx context.Context) error
}

// JobInfo is a point-in-time view of a registered job.
type JobInfo struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	State        State         `json:"state"`
	Runs         int           `json:"runs"`
	Failures     int           `json:"failures"`
	LastRunAt    *time.Time    `json:"lastRunAt,omitempty"`
	LastDuration time.Duration `json:"lastDuration,omitempty"`
	LastError    string        `json:"lastError,omitempty"`
}

type entry struct {
	job JobInfo
	def Job
	mu  sync.Mutex
}

type Scheduler struct {
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	wg      sync.WaitGroup
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger:  logger.Named("Scheduler"),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Register adds job. Registering a name twice replaces the earlier job.
func (s *Scheduler) Register(job Job) {
	if job.Interval <= 0 {
		panic(fmt.Sprintf("cron: job %q needs a positive interval", job.Name))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[job.Name] = &entry{
		def: job,
		job: JobInfo{Name: job.Name, Description: job.Description, State: StateIdle},
	}
}

// Start runs every registered job on its own ticker until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
}

// Wait blocks until every loop started by Start has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()
	if e.def.RunOnStart {
		_ = s.execute(ctx, e)
	}
	ticker := time.NewTicker(e.def.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.execute(ctx, e)
		}
	}
}

// Run executes the named job now and returns its error.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, e)
}

func (s *Scheduler) execute(ctx context.Context, e *entry) error {
	e.mu.Lock()
	if e.job.State == StateRunning {
		e.mu.Unlock()
		return ErrJobBusy
	}
	e.job.State = StateRunning
	e.mu.Unlock()

	if e.def.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.def.Timeout)
		defer cancel()
	}
	started := s.now()
	err := invoke(ctx, e.def.Fn)
	elapsed := s.now().Sub(started)

	e.mu.Lock()
	e.job.Runs++
	e.job.LastRunAt = &started
	e.job.LastDuration = elapsed
	e.job.State, e.job.LastError = StateSucceeded, ""
	if err != nil {
		e.job.Failures++
		e.job.State, e.job.LastError = StateFailed, err.Error()
	}
	e.mu.Unlock()

	if err != nil {
		s.logger.Warn("job failed", zap.String("job", e.def.Name), zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		s.logger.Debug("job done", zap.String("job", e.def.Name), zap.Duration("elapsed", elapsed))
	}
	return err
}

func invoke(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Jobs returns every registered job ordered by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobInfo, 0, len(s.entries))
	for _, e := range s.entries {
		e.mu.Lock()
		out = append(out, e.job)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
