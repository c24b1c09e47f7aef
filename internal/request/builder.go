package request

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/config"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
)

// SeedRandom asks the builder to draw a seed instead of using a fixed one.
const SeedRandom = "random"

// maxRandomSeed bounds the drawn seed to [1, 10000].
const maxRandomSeed = 10000

// ConfigError indicates a bad tier or checkpoint resolution. It is returned
// before any external process or directory is created.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "bad run configuration: " + e.Reason
}

// Params is the raw, unresolved input for one run.
type Params struct {
	ImagePath      string
	Prompt         string
	NegativePrompt string
	Tier           domain.Tier
	Precision      domain.Precision
	Seed           string // numeric string, or SeedRandom / empty for a drawn seed
	Actions        []string
	Speeds         []float64
	InferSteps     int // 0 means tier-determined
	ConfigPath     string
}

// Builder assembles validated RunRequests from raw parameters and static
// configuration.
type Builder struct {
	cfg *config.Config
}

// NewBuilder creates a Builder over the loaded configuration.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build resolves tier, seed and save path and returns the immutable
// RunRequest together with the run's save directory. The save path is a
// deterministic function of (image name, action tag, precision, tier, seed)
// so distinct runs never collide.
func (b *Builder) Build(p Params) (*domain.RunRequest, string, error) {
	actions, err := domain.NewActionSequence(p.Actions, p.Speeds)
	if err != nil {
		return nil, "", err
	}

	precision := p.Precision
	if precision == "" {
		precision = domain.PrecisionFP16
	}
	if !precision.Valid() {
		return nil, "", &ConfigError{Reason: fmt.Sprintf("unrecognized precision %q", p.Precision)}
	}

	tier := p.Tier
	if tier == "" {
		tier = domain.TierDistilled
	}
	checkpoint, err := b.resolveCheckpoint(tier)
	if err != nil {
		return nil, "", err
	}

	seed, err := resolveSeed(p.Seed)
	if err != nil {
		return nil, "", err
	}

	steps := p.InferSteps
	if steps <= 0 {
		steps = tier.InferSteps()
	}

	negPrompt := p.NegativePrompt
	if negPrompt == "" {
		negPrompt = b.cfg.Inference.NegativePrompt
	}

	req := &domain.RunRequest{
		SourceImage:    p.ImagePath,
		Prompt:         p.Prompt,
		NegativePrompt: negPrompt,
		Tier:           tier,
		Precision:      precision,
		CheckpointPath: checkpoint,
		VideoSize: domain.VideoSize{
			Width:  b.cfg.Inference.VideoWidth,
			Height: b.cfg.Inference.VideoHeight,
		},
		CFGScale:   b.cfg.Inference.CFGScale,
		Actions:    actions,
		Seed:       seed,
		InferSteps: steps,
		FlowShift:  b.cfg.Inference.FlowShift,
	}

	savePath := filepath.Join(b.cfg.General.ResultsDir, runDirName(p.ImagePath, actions, precision, tier, seed))
	return req, savePath, nil
}

// resolveCheckpoint maps a tier to its weight path and verifies the path is
// reachable before anything is launched.
func (b *Builder) resolveCheckpoint(tier domain.Tier) (string, error) {
	var path string
	switch tier {
	case domain.TierOriginal:
		path = b.cfg.Checkpoints.Original
	case domain.TierDistilled:
		path = b.cfg.Checkpoints.Distilled
	default:
		return "", &ConfigError{Reason: fmt.Sprintf("unrecognized checkpoint tier %q", tier)}
	}

	if _, err := os.Stat(path); err != nil {
		return "", &ConfigError{Reason: fmt.Sprintf("checkpoint for tier %q not reachable at %s", tier, path)}
	}
	return path, nil
}

// resolveSeed parses an explicit seed or draws one uniformly in
// [1, maxRandomSeed]. The seed is drawn exactly once per run and threaded
// through every downstream component.
func resolveSeed(s string) (int, error) {
	if s == "" || s == SeedRandom {
		return rand.Intn(maxRandomSeed) + 1, nil
	}
	seed, err := strconv.Atoi(s)
	if err != nil || seed < 0 {
		return 0, &ConfigError{Reason: fmt.Sprintf("seed must be a non-negative integer or %q, got %q", SeedRandom, s)}
	}
	return seed, nil
}

// runDirName builds the collision-free run directory name,
// e.g. "das_office2_wddd_fp8_distilled_25".
func runDirName(imagePath string, actions domain.ActionSequence, precision domain.Precision, tier domain.Tier, seed int) string {
	base := filepath.Base(imagePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%s_%s_%s_%d", name, actions.Tag(), precision, tier, seed)
}
