package poller

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWait_TimesOutBounded(t *testing.T) {
	dir := t.TempDir()

	p := New(10*time.Millisecond, 55*time.Millisecond, testLogger())
	res, err := p.Wait(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if res.Status != StatusTimedOut {
		t.Errorf("Status = %q, want %q", res.Status, StatusTimedOut)
	}
	if res.VideoPath != "" {
		t.Errorf("VideoPath = %q, want empty", res.VideoPath)
	}
	if res.Waited != p.MaxWait {
		t.Errorf("Waited = %v, want full MaxWait %v", res.Waited, p.MaxWait)
	}
	// Bounded: no more iterations than max_wait / interval.
	if res.Polls > 5 {
		t.Errorf("Polls = %d, want at most 5", res.Polls)
	}
}

func TestWait_ArtifactAppears(t *testing.T) {
	dir := t.TempDir()

	go func() {
		time.Sleep(30 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "office.mp4"), []byte("video"), 0o644)
	}()

	p := New(10*time.Millisecond, 2*time.Second, testLogger())
	start := time.Now()
	res, err := p.Wait(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if res.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", res.Status, StatusCompleted)
	}
	if filepath.Base(res.VideoPath) != "office.mp4" {
		t.Errorf("VideoPath = %q, want office.mp4", res.VideoPath)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("detection took %v, want well under the deadline", elapsed)
	}
}

func TestWait_IgnoresNonVideoFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "inference.log"), []byte("log"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "office.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(10*time.Millisecond, 40*time.Millisecond, testLogger())
	res, err := p.Wait(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusTimedOut {
		t.Errorf("Status = %q, want timeout when only non-video files exist", res.Status)
	}
}

func TestWait_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	p := New(10*time.Millisecond, time.Hour, testLogger())
	_, err := p.Wait(ctx, dir)
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestFindArtifact_NewestWins(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "a_first.mp4")
	newer := filepath.Join(dir, "z_second.mp4")
	for _, f := range []string{older, newer} {
		if err := os.WriteFile(f, []byte("video"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	base := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, base, base); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	if got := findArtifact(dir); got != newer {
		t.Errorf("findArtifact = %q, want newest %q", got, newer)
	}
}

func TestFindArtifact_EqualMtimeLexicographic(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.mp4")
	b := filepath.Join(dir, "b.mp4")
	for _, f := range []string{b, a} {
		if err := os.WriteFile(f, []byte("video"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ts := time.Now().Add(-time.Hour)
	for _, f := range []string{a, b} {
		if err := os.Chtimes(f, ts, ts); err != nil {
			t.Fatal(err)
		}
	}

	if got := findArtifact(dir); got != a {
		t.Errorf("findArtifact = %q, want lexicographically-first %q", got, a)
	}
}

func TestFindArtifact_DoneMarkerNamesArtifact(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"early.mp4", "final.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("video"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, DoneMarker), []byte("final.mp4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := findArtifact(dir); got != filepath.Join(dir, "final.mp4") {
		t.Errorf("findArtifact = %q, want marker-named final.mp4", got)
	}
}
