package bulk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/request"
	"golang.org/x/sync/errgroup"
)

// Executor performs a single run.
type Executor interface {
	Execute(ctx context.Context, p request.Params) (*domain.RunRecord, error)
}

// Summary counts the terminal states of a finished plan.
type Summary struct {
	Total     int
	Completed int
	TimedOut  int
	Failed    int
}

// Runner executes every run of a plan, at most Parallel at a time. A failed
// run never stops the plan; it only shows up in the summary.
type Runner struct {
	exec       Executor
	logger     *slog.Logger
	Parallel   int
	ConfigPath string
}

// NewRunner creates a Runner over the given executor.
func NewRunner(exec Executor, logger *slog.Logger) *Runner {
	return &Runner{exec: exec, logger: logger, Parallel: 1}
}

// Run executes all entries of the plan and returns the outcome counts.
// The pause between submissions mirrors how runs were spaced by hand so a
// single machine is not asked to warm up several models at once.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Summary, error) {
	parallel := r.Parallel
	if parallel <= 0 {
		parallel = 1
	}

	r.logger.Info("bulk plan starting", "plan", plan.Name, "runs", len(plan.Runs), "parallel", parallel)

	summary := &Summary{Total: len(plan.Runs)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, entry := range plan.Runs {
		entry := entry
		if i > 0 && plan.PauseSeconds > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(time.Duration(plan.PauseSeconds) * time.Second):
			}
		}

		g.Go(func() error {
			rec, err := r.exec.Execute(gctx, entryParams(entry, r.ConfigPath))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				r.logger.Error("bulk run failed", "plan", plan.Name, "image", entry.Image, "error", err)
			case rec.Status == domain.RunTimedOut:
				summary.TimedOut++
			default:
				summary.Completed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	r.logger.Info("bulk plan finished",
		"plan", plan.Name,
		"completed", summary.Completed,
		"timed_out", summary.TimedOut,
		"failed", summary.Failed)
	return summary, nil
}

func entryParams(e Entry, configPath string) request.Params {
	return request.Params{
		ImagePath:      e.Image,
		Prompt:         e.Prompt,
		NegativePrompt: e.NegativePrompt,
		Tier:           domain.Tier(e.Tier),
		Precision:      domain.Precision(e.Precision),
		Seed:           e.Seed,
		Actions:        e.Actions,
		Speeds:         e.Speeds,
		InferSteps:     e.InferSteps,
		ConfigPath:     configPath,
	}
}
