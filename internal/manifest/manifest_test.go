package manifest

import (
	"testing"
	"time"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
)

func testRecord(t *testing.T) *domain.RunRecord {
	t.Helper()
	actions, err := domain.NewActionSequence([]string{"w", "d", "d", "d"}, []float64{0.05, 0.05, 0.05, 0.05})
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	return &domain.RunRecord{
		ID: "run-1",
		Request: domain.RunRequest{
			SourceImage:    "/assets/office.png",
			Prompt:         "an office",
			Tier:           domain.TierDistilled,
			Precision:      domain.PrecisionFP8,
			CheckpointPath: "/weights/distill.pt",
			Actions:        actions,
			Seed:           25,
			InferSteps:     8,
		},
		SavePath:    "/results/office_wddd_fp8_distilled_25",
		StartedAt:   start,
		FinishedAt:  start.Add(95 * time.Second),
		VideoPath:   "/results/office_wddd_fp8_distilled_25/office.mp4",
		WaitSeconds: 20,
		Status:      domain.RunCompleted,
	}
}

func TestFromRecord(t *testing.T) {
	m := FromRecord(testRecord(t))

	if !m.VideoCreated {
		t.Error("VideoCreated = false, want true")
	}
	if m.ExecutionTimeSeconds != 95 {
		t.Errorf("ExecutionTimeSeconds = %d, want 95", m.ExecutionTimeSeconds)
	}
	if m.ActionList != "w d d d" {
		t.Errorf("ActionList = %q", m.ActionList)
	}
	if m.ActionListCompressed != "wddd" {
		t.Errorf("ActionListCompressed = %q", m.ActionListCompressed)
	}
	if m.InferSteps != 8 {
		t.Errorf("InferSteps = %d, want 8", m.InferSteps)
	}
	if m.Status != "completed" {
		t.Errorf("Status = %q", m.Status)
	}
}

func TestFromRecord_TimedOut(t *testing.T) {
	rec := testRecord(t)
	rec.VideoPath = ""
	rec.WaitSeconds = 3600
	rec.Status = domain.RunTimedOut

	m := FromRecord(rec)
	if m.VideoCreated {
		t.Error("VideoCreated = true, want false on timeout")
	}
	if m.TotalWaitTimeSeconds != 3600 {
		t.Errorf("TotalWaitTimeSeconds = %d, want 3600", m.TotalWaitTimeSeconds)
	}
	if m.VideoFiles != "" {
		t.Errorf("VideoFiles = %q, want empty", m.VideoFiles)
	}
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	rec := testRecord(t)
	rec.SavePath = dir

	m := FromRecord(rec)
	if err := m.Write(dir); err != nil {
		t.Fatal(err)
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got.Seed != 25 {
		t.Errorf("Seed = %d, want 25", got.Seed)
	}
	if got.ImagePrompt != "an office" {
		t.Errorf("ImagePrompt = %q", got.ImagePrompt)
	}
	if !got.StartTime.Equal(m.StartTime) {
		t.Errorf("StartTime = %v, want %v", got.StartTime, m.StartTime)
	}
}

func TestWrite_Idempotent(t *testing.T) {
	dir := t.TempDir()
	rec := testRecord(t)
	rec.SavePath = dir

	first := FromRecord(rec)
	if err := first.Write(dir); err != nil {
		t.Fatal(err)
	}

	rec.Status = domain.RunTimedOut
	second := FromRecord(rec)
	if err := second.Write(dir); err != nil {
		t.Fatal(err)
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "timed_out" {
		t.Errorf("Status = %q, want replacement to win", got.Status)
	}
}
