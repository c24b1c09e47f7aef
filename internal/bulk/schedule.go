package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseCron parses a standard five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// Schedule repeatedly executes a plan on its cron expression. A plan whose
// previous execution is still running is skipped, never overlapped.
type Schedule struct {
	plan  *Plan
	sched cron.Schedule

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// NewSchedule creates a Schedule for a plan carrying a cron expression
func NewSchedule(plan *Plan) (*Schedule, error) {
	if plan.Cron == "" {
		return nil, fmt.Errorf("plan %q has no cron expression", plan.Name)
	}
	sched, err := ParseCron(plan.Cron)
	if err != nil {
		return nil, fmt.Errorf("plan %q: %w", plan.Name, err)
	}
	return &Schedule{plan: plan, sched: sched}, nil
}

// NextRun returns the next scheduled execution time
func (s *Schedule) NextRun() time.Time {
	return s.sched.Next(time.Now())
}

// ShouldRun returns true if the plan is due and not already running
func (s *Schedule) ShouldRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	lastRun := s.lastRun
	if lastRun.IsZero() {
		lastRun = time.Now().Add(-24 * time.Hour)
	}
	return time.Now().After(s.sched.Next(lastRun))
}

// MarkRunning marks the plan as currently executing
func (s *Schedule) MarkRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

// MarkComplete marks the plan as done and records the execution time
func (s *Schedule) MarkComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.lastRun = time.Now()
}

// Start runs the scheduler loop until the context is cancelled.
func (s *Schedule) Start(ctx context.Context, runner *Runner, logger *slog.Logger) {
	logger.Info("schedule started", "plan", s.plan.Name, "cron", s.plan.Cron, "next_run", s.NextRun())

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.ShouldRun() {
				continue
			}
			s.MarkRunning()
			go func() {
				defer s.MarkComplete()
				if _, err := runner.Run(ctx, s.plan); err != nil {
					logger.Error("scheduled plan failed", "plan", s.plan.Name, "error", err)
				}
				logger.Info("next scheduled run", "plan", s.plan.Name, "at", s.NextRun())
			}()
		}
	}
}
