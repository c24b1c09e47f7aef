package bulk

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/request"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validPlan = `name: overnight
pause_seconds: 0
runs:
  - image: assets/village.png
    prompt: a mountain village
    tier: distilled
    precision: fp8
    seed: "25"
    actions: [w, d, d, d]
    speeds: [0.2, 0.2, 0.2, 0.2]
  - image: assets/office.png
    prompt: an office
    actions: [w, a]
    speeds: [0.1, 0.1]
`

func TestLoadPlan(t *testing.T) {
	plan, err := LoadPlan(writePlan(t, validPlan))
	if err != nil {
		t.Fatal(err)
	}

	if plan.Name != "overnight" {
		t.Errorf("Name = %q", plan.Name)
	}
	if len(plan.Runs) != 2 {
		t.Fatalf("Runs = %d, want 2", len(plan.Runs))
	}
	if plan.Runs[0].Seed != "25" {
		t.Errorf("Seed = %q", plan.Runs[0].Seed)
	}
	if len(plan.Runs[1].Actions) != 2 {
		t.Errorf("Actions = %v", plan.Runs[1].Actions)
	}
}

func TestLoadPlan_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing image": `name: p
runs:
  - prompt: hi
    actions: [w]
    speeds: [0.2]
`,
		"speed out of range": `name: p
runs:
  - image: a.png
    prompt: hi
    actions: [w]
    speeds: [1.5]
`,
		"length mismatch": `name: p
runs:
  - image: a.png
    prompt: hi
    actions: [w, d]
    speeds: [0.2]
`,
		"no runs": `name: p
runs: []
`,
		"bad cron": `name: p
cron: not-a-cron
runs:
  - image: a.png
    prompt: hi
    actions: [w]
    speeds: [0.2]
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadPlan(writePlan(t, content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

type stubExecutor struct {
	mu     sync.Mutex
	seen   []string
	status map[string]domain.RunStatus
	fail   map[string]bool
}

func (s *stubExecutor) Execute(_ context.Context, p request.Params) (*domain.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, p.ImagePath)

	if s.fail[p.ImagePath] {
		return nil, errors.New("launch refused")
	}
	status := domain.RunCompleted
	if st, ok := s.status[p.ImagePath]; ok {
		status = st
	}
	return &domain.RunRecord{Status: status}, nil
}

func TestRunner_Summary(t *testing.T) {
	plan := &Plan{
		Name: "mixed",
		Runs: []Entry{
			{Image: "a.png", Prompt: "a", Actions: []string{"w"}, Speeds: []float64{0.2}},
			{Image: "b.png", Prompt: "b", Actions: []string{"w"}, Speeds: []float64{0.2}},
			{Image: "c.png", Prompt: "c", Actions: []string{"w"}, Speeds: []float64{0.2}},
		},
	}

	exec := &stubExecutor{
		status: map[string]domain.RunStatus{"b.png": domain.RunTimedOut},
		fail:   map[string]bool{"c.png": true},
	}

	r := NewRunner(exec, testLogger())
	summary, err := r.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}

	if summary.Total != 3 {
		t.Errorf("Total = %d", summary.Total)
	}
	if summary.Completed != 1 {
		t.Errorf("Completed = %d, want 1", summary.Completed)
	}
	if summary.TimedOut != 1 {
		t.Errorf("TimedOut = %d, want 1", summary.TimedOut)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}

	// A failed run never stops the remaining entries.
	if len(exec.seen) != 3 {
		t.Errorf("executed %d runs, want all 3", len(exec.seen))
	}
}

func TestParseCron(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 22 * * *", false},
		{"*/5 * * * *", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		_, err := ParseCron(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestSchedule_ShouldRun(t *testing.T) {
	plan := &Plan{
		Name: "overnight",
		Cron: "* * * * *",
		Runs: []Entry{{Image: "a.png", Prompt: "a", Actions: []string{"w"}, Speeds: []float64{0.2}}},
	}

	s, err := NewSchedule(plan)
	if err != nil {
		t.Fatal(err)
	}

	// Never run before: due immediately with an every-minute expression.
	if !s.ShouldRun() {
		t.Error("ShouldRun = false for a plan that never ran")
	}

	s.MarkRunning()
	if s.ShouldRun() {
		t.Error("ShouldRun = true while already running")
	}

	s.MarkComplete()
	if s.ShouldRun() {
		t.Error("ShouldRun = true immediately after completion")
	}

	if s.NextRun().IsZero() {
		t.Error("NextRun returned zero time")
	}
}

func TestNewSchedule_RequiresCron(t *testing.T) {
	if _, err := NewSchedule(&Plan{Name: "p"}); err == nil {
		t.Error("expected error for plan without cron")
	}
}
