package overlay

import (
	"fmt"
	"time"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
)

// Window is one time slice of the video with the action icon active in it.
type Window struct {
	Index  int
	Action domain.Action
	Start  time.Duration
	End    time.Duration
}

// Plan maps each time window of the produced video to the action generated
// during it. It is built once from (actions, duration, fps) and never
// mutated afterwards.
type Plan struct {
	Windows  []Window
	Duration time.Duration
	FPS      int
}

// BuildPlan partitions the video's playback time into len(actions) windows
// of equal duration and assigns action[i] to window[i]. The partition is
// uniform rather than content-derived, mirroring the fixed per-action
// control-window duration used during generation.
func BuildPlan(actions domain.ActionSequence, duration time.Duration, fps int) (*Plan, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("overlay plan needs at least one action")
	}
	if duration <= 0 {
		return nil, fmt.Errorf("overlay plan needs a positive video duration, got %v", duration)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("overlay plan needs a positive frame rate, got %d", fps)
	}

	n := len(actions)
	windows := make([]Window, n)
	for i, step := range actions {
		windows[i] = Window{
			Index:  i,
			Action: step.Symbol,
			Start:  time.Duration(i) * duration / time.Duration(n),
			End:    time.Duration(i+1) * duration / time.Duration(n),
		}
	}
	// Integer division can shave nanoseconds off the last boundary.
	windows[n-1].End = duration

	return &Plan{Windows: windows, Duration: duration, FPS: fps}, nil
}

// FramesPerWindow returns how many frames each window spans at the plan's
// frame rate.
func (p *Plan) FramesPerWindow() int {
	totalFrames := int(p.Duration.Seconds() * float64(p.FPS))
	return totalFrames / len(p.Windows)
}
