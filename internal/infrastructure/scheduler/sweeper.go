package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one periodic maintenance job
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// SweeperConfig holds configuration for the sweeper
type SweeperConfig struct {
	// Interval between passes
	Interval time.Duration
	// TaskTimeout bounds a single task run; zero means Interval
	TaskTimeout time.Duration
	// RunOnStart runs one pass immediately instead of waiting a full interval
	RunOnStart bool
}

// DefaultSweeperConfig returns default sweeper configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:   time.Minute,
		RunOnStart: true,
	}
}

// TaskStats counts the outcomes of a task since start
type TaskStats struct {
	Runs     int
	Failures int
	LastRun  time.Time
	LastErr  string
}

// Sweeper runs its tasks on a fixed interval until stopped. Passes never
// overlap; a task that fails is retried on the next pass.
type Sweeper struct {
	config SweeperConfig
	tasks  []Task
	logger *zap.Logger
	now    func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	passMu    sync.Mutex
	stats     map[string]*TaskStats
}

// NewSweeper creates a sweeper over tasks
func NewSweeper(config SweeperConfig, logger *zap.Logger, tasks ...Task) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultSweeperConfig().Interval
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = config.Interval
	}
	stats := make(map[string]*TaskStats, len(tasks))
	for _, t := range tasks {
		stats[t.Name] = &TaskStats{}
	}
	return &Sweeper{
		config: config,
		tasks:  tasks,
		logger: logger.Named("sweeper"),
		now:    time.Now,
		stats:  stats,
	}
}

// Start starts the sweep loop
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("tasks", len(s.tasks)),
	)
	return nil
}

// Stop cancels the loop and waits for the current pass, or until ctx is done
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every task one time, in order
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	for _, t := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		err := s.runTask(ctx, t)

		s.mu.Lock()
		st := s.stats[t.Name]
		st.Runs++
		st.LastRun = s.now()
		st.LastErr = ""
		if err != nil {
			st.Failures++
			st.LastErr = err.Error()
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("Sweep task failed", zap.String("task", t.Name), zap.Error(err))
		}
	}
}

func (s *Sweeper) runTask(ctx context.Context, t Task) (err error) {
	tctx, cancel := context.WithTimeout(ctx, s.config.TaskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, r)
		}
	}()
	return t.Run(tctx)
}

// Stats returns a copy of the per-task counters
func (s *Sweeper) Stats() map[string]TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TaskStats, len(s.stats))
	for name, st := range s.stats {
		out[name] = *st
	}
	return out
}

// IsRunning reports whether the loop is active
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
