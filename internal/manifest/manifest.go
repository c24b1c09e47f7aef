package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
)

// FileName is the manifest document inside every run directory.
const FileName = "record.json"

// Manifest is the persisted record of one run: inputs, timings and outcome.
// One document per run directory; it is never rewritten in place after the
// run reaches a terminal status, only superseded by a new run's own
// directory.
type Manifest struct {
	ExecutionTimeSeconds int       `json:"execution_time_seconds"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	InputImage           string    `json:"input_image"`
	CheckpointPath       string    `json:"checkpoint_path"`
	SavePath             string    `json:"save_path"`
	Precision            string    `json:"precision"`
	ModelTier            string    `json:"model"`
	ActionList           string    `json:"action_list"`
	ActionSpeedList      string    `json:"action_speed_list"`
	InferSteps           int       `json:"infer_steps"`
	VideoCreated         bool      `json:"video_created"`
	VideoFiles           string    `json:"video_files"`
	TotalWaitTimeSeconds int       `json:"total_wait_time_seconds"`
	Seed                 int       `json:"seed"`
	ImagePrompt          string    `json:"image_prompt"`
	ActionListCompressed string    `json:"action_list_compressed"`
	Status               string    `json:"status"`
	OverlayOutput        string    `json:"overlay_output,omitempty"`
	OverlayTimeSeconds   int       `json:"overlay_time_seconds,omitempty"`
}

// FromRecord assembles the manifest document from a finished run record.
func FromRecord(rec *domain.RunRecord) *Manifest {
	videoFiles := rec.VideoPath
	if rec.OverlayOutput != "" {
		videoFiles += " " + rec.OverlayOutput
	}

	return &Manifest{
		ExecutionTimeSeconds: int(rec.Duration().Seconds()),
		StartTime:            rec.StartedAt,
		EndTime:              rec.FinishedAt,
		InputImage:           rec.Request.SourceImage,
		CheckpointPath:       rec.Request.CheckpointPath,
		SavePath:             rec.SavePath,
		Precision:            string(rec.Request.Precision),
		ModelTier:            string(rec.Request.Tier),
		ActionList:           rec.Request.Actions.Wire(),
		ActionSpeedList:      rec.Request.Actions.SpeedWire(),
		InferSteps:           rec.Request.InferSteps,
		VideoCreated:         rec.VideoPath != "",
		VideoFiles:           videoFiles,
		TotalWaitTimeSeconds: rec.WaitSeconds,
		Seed:                 rec.Request.Seed,
		ImagePrompt:          rec.Request.Prompt,
		ActionListCompressed: rec.Request.Actions.Tag(),
		Status:               string(rec.Status),
		OverlayOutput:        rec.OverlayOutput,
		OverlayTimeSeconds:   rec.OverlaySeconds,
	}
}

// Write persists the manifest at savePath/record.json. The write is atomic
// (temp file + rename) and idempotent per run directory: a second write
// replaces the document, it never appends.
func (m *Manifest) Write(savePath string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')

	tmp := filepath.Join(savePath, FileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(savePath, FileName)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Read loads the manifest from a run directory.
func Read(savePath string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(savePath, FileName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest in %s: %w", savePath, err)
	}
	return &m, nil
}
