package domain

// Tier selects between the full-quality checkpoint and the faster distilled one.
type Tier string

const (
	TierOriginal  Tier = "original"
	TierDistilled Tier = "distilled"
)

// Valid reports whether the tier is a recognized checkpoint tier.
func (t Tier) Valid() bool {
	return t == TierOriginal || t == TierDistilled
}

// InferSteps returns the tier-determined sampling step count.
func (t Tier) InferSteps() int {
	if t == TierDistilled {
		return 8
	}
	return 50
}

// Precision selects the inference numeric mode. FP8 requires an extra flag
// on the launch request.
type Precision string

const (
	PrecisionFP16 Precision = "fp16"
	PrecisionFP8  Precision = "fp8"
)

// Valid reports whether the precision is a recognized mode.
func (p Precision) Valid() bool {
	return p == PrecisionFP16 || p == PrecisionFP8
}

// VideoSize is the generated video geometry.
type VideoSize struct {
	Width  int
	Height int
}

// RunRequest is the complete immutable description of one inference run.
// It is assembled once by the request builder and never mutated downstream.
type RunRequest struct {
	SourceImage    string
	Prompt         string
	NegativePrompt string
	Tier           Tier
	Precision      Precision
	CheckpointPath string
	VideoSize      VideoSize
	CFGScale       float64
	Actions        ActionSequence
	Seed           int
	InferSteps     int
	FlowShift      float64
}
