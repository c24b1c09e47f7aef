package runstore

import (
	"testing"
	"time"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(t *testing.T, id, image string, status domain.RunStatus) *domain.RunRecord {
	t.Helper()
	actions, err := domain.NewActionSequence([]string{"w", "d"}, []float64{0.2, 0.2})
	if err != nil {
		t.Fatal(err)
	}
	return &domain.RunRecord{
		ID: id,
		Request: domain.RunRequest{
			SourceImage:    image,
			Prompt:         "a village",
			Tier:           domain.TierDistilled,
			Precision:      domain.PrecisionFP8,
			CheckpointPath: "/weights/distill.pt",
			Actions:        actions,
			Seed:           25,
			InferSteps:     8,
		},
		SavePath:    "/results/" + id,
		StartedAt:   time.Now().UTC(),
		FinishedAt:  time.Now().UTC().Add(time.Minute),
		VideoPath:   "/results/" + id + "/out.mp4",
		WaitSeconds: 20,
		Status:      status,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := testStore(t)

	rec := testRecord(t, "run-1", "village.png", domain.RunCompleted)
	if err := s.SaveRun(rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Image != "village.png" {
		t.Errorf("Image = %q", got.Image)
	}
	if got.ActionList != "w d" {
		t.Errorf("ActionList = %q", got.ActionList)
	}
	if got.ActionTag != "wd" {
		t.Errorf("ActionTag = %q", got.ActionTag)
	}
	if got.Seed != 25 {
		t.Errorf("Seed = %d", got.Seed)
	}
	if got.Status != "completed" {
		t.Errorf("Status = %q", got.Status)
	}
}

func TestSaveRun_Upsert(t *testing.T) {
	s := testStore(t)

	rec := testRecord(t, "run-1", "village.png", domain.RunWaiting)
	if err := s.SaveRun(rec); err != nil {
		t.Fatal(err)
	}

	rec.Status = domain.RunTimedOut
	rec.VideoPath = ""
	rec.WaitSeconds = 3600
	if err := s.SaveRun(rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "timed_out" {
		t.Errorf("Status = %q, want timed_out after upsert", got.Status)
	}
	if got.WaitSeconds != 3600 {
		t.Errorf("WaitSeconds = %d, want 3600", got.WaitSeconds)
	}
}

func TestListRuns_Filters(t *testing.T) {
	s := testStore(t)

	recs := []*domain.RunRecord{
		testRecord(t, "run-1", "village.png", domain.RunCompleted),
		testRecord(t, "run-2", "office.png", domain.RunCompleted),
		testRecord(t, "run-3", "village.png", domain.RunTimedOut),
	}
	for i, rec := range recs {
		rec.StartedAt = rec.StartedAt.Add(time.Duration(i) * time.Minute)
		if err := s.SaveRun(rec); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListRuns(ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].ID != "run-3" {
		t.Errorf("first run = %q, want newest first", all[0].ID)
	}

	completed, err := s.ListRuns(ListOptions{Status: "completed"})
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != 2 {
		t.Errorf("completed runs = %d, want 2", len(completed))
	}

	village, err := s.ListRuns(ListOptions{Image: "village"})
	if err != nil {
		t.Fatal(err)
	}
	if len(village) != 2 {
		t.Errorf("village runs = %d, want 2", len(village))
	}

	limited, err := s.ListRuns(ListOptions{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limited runs = %d, want 1", len(limited))
	}
}
