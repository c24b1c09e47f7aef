package domain

import "time"

// RunStatus is the terminal outcome of a run.
type RunStatus string

const (
	RunWaiting      RunStatus = "waiting"
	RunCompleted    RunStatus = "completed"
	RunTimedOut     RunStatus = "timed_out"
	RunLaunchFailed RunStatus = "launch_failed"
)

// RunRecord tracks one run from launch to manifest. It is owned exclusively
// by the orchestrator driving the run and becomes immutable once its status
// reaches a terminal state and the manifest is written.
type RunRecord struct {
	ID             string
	Request        RunRequest
	SavePath       string
	StartedAt      time.Time
	FinishedAt     time.Time
	VideoPath      string
	OverlayOutput  string
	WaitSeconds    int
	OverlaySeconds int
	Status         RunStatus
}

// Duration returns the total wall-clock time of the run.
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
