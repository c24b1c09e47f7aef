package poller

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// videoExtensions is the recognized video-container extension set.
var videoExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mov": true,
	".mkv": true,
}

// DoneMarker is an optional sentinel written atomically by the inference
// process. When present it names the run as complete and, if non-empty,
// its content is the artifact filename.
const DoneMarker = ".done"

// Status is the poller's terminal state.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusTimedOut  Status = "timed_out"
)

// Result reports how the wait ended.
type Result struct {
	Status    Status
	VideoPath string
	Waited    time.Duration
	Polls     int
}

// Poller watches a save directory for the arrival of a video artifact.
// It samples at a fixed interval bounded by a maximum total wait; fsnotify
// events between ticks only wake it early, the interval loop remains the
// source of truth and the bound.
type Poller struct {
	Interval time.Duration
	MaxWait  time.Duration
	logger   *slog.Logger
}

// New creates a Poller with the given fixed interval and deadline.
func New(interval, maxWait time.Duration, logger *slog.Logger) *Poller {
	return &Poller{Interval: interval, MaxWait: maxWait, logger: logger}
}

// Wait blocks until a video artifact appears in dir or the deadline expires.
// This is the pipeline's only suspension point; the wait is a cooperative
// sleep between samples, never a busy loop. On timeout the result reports
// the full MaxWait and the caller decides what to do with the still-running
// external process.
func (p *Poller) Wait(ctx context.Context, dir string) (*Result, error) {
	start := time.Now()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(p.MaxWait)
	defer deadline.Stop()

	// A nil events channel blocks forever, degrading to pure interval polling.
	var events <-chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if werr := watcher.Add(dir); werr == nil {
			events = watcher.Events
		}
	} else {
		p.logger.Warn("filesystem watcher unavailable, relying on interval polling", "error", err)
	}

	polls := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-deadline.C:
			// One last look: the artifact may have landed just before the deadline.
			if path := findArtifact(dir); path != "" {
				return &Result{Status: StatusCompleted, VideoPath: path, Waited: time.Since(start), Polls: polls}, nil
			}
			p.logger.Warn("no video artifact before deadline",
				"dir", dir, "polls", polls, "max_wait", p.MaxWait)
			return &Result{Status: StatusTimedOut, Waited: p.MaxWait, Polls: polls}, nil

		case <-ticker.C:
			polls++
			if path := findArtifact(dir); path != "" {
				return &Result{Status: StatusCompleted, VideoPath: path, Waited: time.Since(start), Polls: polls}, nil
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if path := findArtifact(dir); path != "" {
				return &Result{Status: StatusCompleted, VideoPath: path, Waited: time.Since(start), Polls: polls}, nil
			}
		}
	}
}

// findArtifact returns the completed video artifact in dir, or "" if none.
// A done-marker, when present, is authoritative. Otherwise ties among
// multiple candidates are broken deterministically: newest mtime wins,
// lexicographically-first for equal mtimes.
func findArtifact(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	marker := ""
	var best string
	var bestTime time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == DoneMarker {
			marker = filepath.Join(dir, name)
			continue
		}
		if !videoExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) ||
			(info.ModTime().Equal(bestTime) && name < filepath.Base(best)) {
			best = filepath.Join(dir, name)
			bestTime = info.ModTime()
		}
	}

	if marker != "" {
		if data, err := os.ReadFile(marker); err == nil {
			if named := strings.TrimSpace(string(data)); named != "" {
				p := filepath.Join(dir, named)
				if _, err := os.Stat(p); err == nil {
					return p
				}
			}
		}
	}

	return best
}
