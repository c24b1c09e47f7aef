package bulk

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Entry is one run inside a bulk plan.
type Entry struct {
	Image          string    `yaml:"image" validate:"required"`
	Prompt         string    `yaml:"prompt" validate:"required"`
	NegativePrompt string    `yaml:"negative_prompt"`
	Tier           string    `yaml:"tier"`
	Precision      string    `yaml:"precision"`
	Seed           string    `yaml:"seed"`
	Actions        []string  `yaml:"actions" validate:"required,min=1"`
	Speeds         []float64 `yaml:"speeds" validate:"required,min=1,dive,gt=0,lte=1"`
	InferSteps     int       `yaml:"infer_steps" validate:"gte=0"`
}

// Plan is a named list of runs, optionally on a cron schedule.
type Plan struct {
	Name         string  `yaml:"name" validate:"required"`
	Cron         string  `yaml:"cron"`
	PauseSeconds int     `yaml:"pause_seconds" validate:"gte=0"`
	Runs         []Entry `yaml:"runs" validate:"required,min=1,dive"`
}

// LoadPlan reads and validates a bulk plan from a YAML file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}

	if err := validator.New().Struct(&plan); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}

	for i, e := range plan.Runs {
		if len(e.Actions) != len(e.Speeds) {
			return nil, fmt.Errorf("invalid plan %s: run %d has %d actions but %d speeds",
				path, i, len(e.Actions), len(e.Speeds))
		}
	}

	if plan.Cron != "" {
		if _, err := ParseCron(plan.Cron); err != nil {
			return nil, fmt.Errorf("invalid plan %s: cron expression: %w", path, err)
		}
	}

	return &plan, nil
}
