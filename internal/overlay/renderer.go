package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
)

// OverlayError indicates the external renderer failed. The primary video
// artifact remains valid; only the overlay output is missing.
type OverlayError struct {
	Reason string
	Err    error
}

func (e *OverlayError) Error() string {
	if e.Err != nil {
		return "overlay rendering: " + e.Reason + ": " + e.Err.Error()
	}
	return "overlay rendering: " + e.Reason
}

func (e *OverlayError) Unwrap() error {
	return e.Err
}

// Prober reads playback metadata from a video file.
type Prober interface {
	Duration(path string) (time.Duration, error)
}

// FFprobe probes video duration with the ffprobe binary.
type FFprobe struct{}

// Duration returns the container-reported playback duration.
func (FFprobe) Duration(path string) (time.Duration, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path).Output()
	if err != nil {
		return 0, fmt.Errorf("probing %s: %w", path, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe output %q: %w", strings.TrimSpace(string(out)), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Coordinator drives the external icon overlay renderer with a plan
// synchronized to the run's action sequence.
type Coordinator struct {
	Command string
	FPS     int
	Timeout time.Duration
	Prober  Prober
	logger  *slog.Logger
}

// NewCoordinator creates a Coordinator invoking the given renderer command.
func NewCoordinator(command string, fps int, timeout time.Duration, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		Command: command,
		FPS:     fps,
		Timeout: timeout,
		Prober:  FFprobe{},
		logger:  logger,
	}
}

// OutputPath derives the overlay artifact path from the input video:
// same directory and container, suffixed basename (video.mp4 -> video_icon.mp4).
func OutputPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + "_icon" + ext
}

// Render builds the OverlayPlan for the discovered video and invokes the
// renderer once with the full plan, waiting synchronously (bounded) for it
// to finish. The renderer receives its inputs as environment parameters.
func (c *Coordinator) Render(ctx context.Context, videoPath string, actions domain.ActionSequence) (string, *Plan, error) {
	duration, err := c.Prober.Duration(videoPath)
	if err != nil {
		return "", nil, &OverlayError{Reason: "probing video duration", Err: err}
	}

	plan, err := BuildPlan(actions, duration, c.FPS)
	if err != nil {
		return "", nil, &OverlayError{Reason: "building plan", Err: err}
	}

	outPath := OutputPath(videoPath)

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Command)
	cmd.Dir = filepath.Dir(videoPath)
	cmd.Env = append(os.Environ(),
		"INPUT_VIDEO="+videoPath,
		"OUTPUT_VIDEO="+outPath,
		"ACTION_LIST="+actions.Wire(),
		"FPS="+strconv.Itoa(c.FPS),
	)

	c.logger.Info("overlay renderer started",
		"input", videoPath,
		"output", outPath,
		"windows", len(plan.Windows),
		"fps", c.FPS)

	if out, err := cmd.CombinedOutput(); err != nil {
		return "", plan, &OverlayError{
			Reason: fmt.Sprintf("renderer exited with error (output: %s)", strings.TrimSpace(string(out))),
			Err:    err,
		}
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", plan, &OverlayError{Reason: "renderer reported success but produced no output file"}
	}

	return outPath, plan, nil
}
