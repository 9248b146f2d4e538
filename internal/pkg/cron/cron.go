package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus represents the last known state of a job.
type JobStatus string

const (
	StatusIdle    JobStatus = "idle"
	StatusRunning JobStatus = "running"
	StatusFulfill JobStatus = "fulfill"
	StatusReject  JobStatus = "reject"
)

// Job defines a scheduled maintenance task. Schedule accepts standard cron
// expressions and descriptors such as "@every 1h" or "@daily".
type Job struct {
	Name        string
	Description string
	Schedule    string
	Fn          func(ctx context.Context) error
}

type jobState struct {
	Job
	entry     robfig.EntryID
	status    JobStatus
	message   string
	lastRunAt *time.Time
	duration  time.Duration
	mu        sync.Mutex
}

// ListItem is the serializable representation of a job for the API.
type ListItem struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Schedule    string     `json:"schedule"`
	Status      JobStatus  `json:"status"`
	NextDate    *time.Time `json:"nextDate"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
}

// TaskResult is returned when polling task execution status.
type TaskResult struct {
	Status     JobStatus `json:"status"`
	Message    string    `json:"message,omitempty"`
	DurationMS int64     `json:"durationMs"`
}

// Scheduler runs named jobs on cron schedules and lets operators trigger
// them by hand.
type Scheduler struct {
	mu      sync.RWMutex
	cron    *robfig.Cron
	jobs    map[string]*jobState
	logger  *zap.Logger
	ctx     context.Context
	running bool
}

// New creates an empty Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   robfig.New(),
		jobs:   make(map[string]*jobState),
		logger: logger.Named("cron"),
		ctx:    context.Background(),
	}
}

// Register adds a job. Jobs registered after Start are scheduled
// immediately.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Fn == nil {
		return fmt.Errorf("job requires a name and a function")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	js := &jobState{Job: job, status: StatusIdle}
	id, err := s.cron.AddFunc(job.Schedule, func() {
		s.mu.RLock()
		ctx := s.ctx
		s.mu.RUnlock()
		s.execute(ctx, js)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", job.Schedule, job.Name, err)
	}
	js.entry = id
	s.jobs[job.Name] = js
	return nil
}

// Start begins running jobs on schedule until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.ctx = ctx
	s.running = true
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.List())))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop halts scheduling and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) execute(ctx context.Context, js *jobState) {
	js.mu.Lock()
	if js.status == StatusRunning {
		js.mu.Unlock()
		return
	}
	js.status = StatusRunning
	js.mu.Unlock()

	start := time.Now()
	err := js.Fn(ctx)
	elapsed := time.Since(start)

	js.mu.Lock()
	js.lastRunAt = &start
	js.duration = elapsed
	if err != nil {
		js.status = StatusReject
		js.message = err.Error()
	} else {
		js.status = StatusFulfill
		js.message = ""
	}
	js.mu.Unlock()

	if err != nil {
		s.logger.Warn("job failed", zap.String("job", js.Name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	s.logger.Debug("job finished", zap.String("job", js.Name), zap.Duration("elapsed", elapsed))
}

// Run triggers a job by name without waiting for it. The job runs under the
// scheduler's context, not the caller's.
func (s *Scheduler) Run(name string) error {
	s.mu.RLock()
	js, ok := s.jobs[name]
	ctx := s.ctx
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	go s.execute(ctx, js)
	return nil
}

// GetTask returns the current execution state of a job.
func (s *Scheduler) GetTask(name string) (*TaskResult, error) {
	s.mu.RLock()
	js, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job %q not found", name)
	}
	js.mu.Lock()
	defer js.mu.Unlock()
	return &TaskResult{Status: js.status, Message: js.message, DurationMS: js.duration.Milliseconds()}, nil
}

// List returns a summary of all registered jobs sorted by name.
func (s *Scheduler) List() []ListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ListItem, 0, len(s.jobs))
	for _, js := range s.jobs {
		var next *time.Time
		if e := s.cron.Entry(js.entry); e.Valid() && !e.Next.IsZero() {
			n := e.Next
			next = &n
		}
		js.mu.Lock()
		items = append(items, ListItem{
			Name:        js.Name,
			Description: js.Description,
			Schedule:    js.Schedule,
			Status:      js.status,
			NextDate:    next,
			LastRunAt:   js.lastRunAt,
		})
		js.mu.Unlock()
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}
