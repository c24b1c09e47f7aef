package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
)

// LaunchError indicates the external inference process failed to start.
// It is fatal for the run.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return "launching inference process: " + e.Err.Error()
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Process is a handle to the detached inference process. The orchestrator
// never waits on it directly; completion is observed via the save directory.
type Process struct {
	PID     int
	LogPath string

	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop terminates the external process. Used when the completion deadline
// expires so background work is not leaked.
func (p *Process) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Launcher starts the external inference process for a run.
type Launcher struct {
	Command string
	logger  *slog.Logger
}

// New creates a Launcher that invokes the given inference command.
func New(command string, logger *slog.Logger) *Launcher {
	return &Launcher{Command: command, logger: logger}
}

// Launch acquires the save directory, copies the source image and the
// originating run configuration into it for provenance, and starts the
// inference process in the background. It returns immediately with a
// process handle; the process writes its video artifact into savePath at
// some future time.
func (l *Launcher) Launch(ctx context.Context, req *domain.RunRequest, savePath, configPath string) (*Process, error) {
	if err := os.MkdirAll(savePath, 0o755); err != nil {
		return nil, &LaunchError{Err: fmt.Errorf("creating save directory: %w", err)}
	}

	imageCopy := filepath.Join(savePath, filepath.Base(req.SourceImage))
	if err := copyFile(req.SourceImage, imageCopy); err != nil {
		return nil, &LaunchError{Err: fmt.Errorf("copying source image: %w", err)}
	}

	if configPath != "" {
		dst := filepath.Join(savePath, filepath.Base(configPath))
		if err := copyFile(configPath, dst); err != nil {
			l.logger.Warn("copying run configuration failed", "path", configPath, "error", err)
		}
	}

	logPath := filepath.Join(savePath, "inference.log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, &LaunchError{Err: fmt.Errorf("creating log file: %w", err)}
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, l.Command, BuildArgs(req, imageCopy, savePath)...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		cancel()
		return nil, &LaunchError{Err: err}
	}

	proc := &Process{
		PID:     cmd.Process.Pid,
		LogPath: logPath,
		cmd:     cmd,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	l.logger.Info("inference process started",
		"pid", proc.PID,
		"command", l.Command,
		"save_path", savePath,
		"seed", req.Seed)

	go func() {
		err := cmd.Wait()
		logFile.Close()
		if err != nil && ctx.Err() == nil {
			l.logger.Warn("inference process exited with error", "pid", proc.PID, "error", err)
		}
		close(proc.done)
	}()

	return proc, nil
}

// BuildArgs maps the RunRequest onto the inference process's structured
// invocation arguments. Precision and tier are closed enums with a total
// mapping to argument sets: the fp8 flag appears exactly when precision
// is fp8.
func BuildArgs(req *domain.RunRequest, imagePath, savePath string) []string {
	args := []string{
		"--image-path", imagePath,
		"--image-prompt", req.Prompt,
		"--negative-prompt", req.NegativePrompt,
		"--ckpt-path", req.CheckpointPath,
		"--video-size", strconv.Itoa(req.VideoSize.Width), strconv.Itoa(req.VideoSize.Height),
		"--cfg-scale", strconv.FormatFloat(req.CFGScale, 'g', -1, 64),
		"--action-list", req.Actions.Wire(),
		"--action-speed-list", req.Actions.SpeedWire(),
		"--seed", strconv.Itoa(req.Seed),
		"--infer-steps", strconv.Itoa(req.InferSteps),
		"--flow-shift-eval-video", strconv.FormatFloat(req.FlowShift, 'g', -1, 64),
		"--save-path", savePath,
	}
	if req.Precision == domain.PrecisionFP8 {
		args = append(args, "--use-fp8")
	}
	return args
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
