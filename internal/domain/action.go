package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is one discrete camera control symbol applied during a single
// fixed-duration window of video generation.
type Action string

const (
	ActionForward Action = "w"
	ActionLeft    Action = "a"
	ActionBack    Action = "s"
	ActionRight   Action = "d"
)

// actionVocabulary is the closed set of symbols the inference process accepts.
var actionVocabulary = map[Action]bool{
	ActionForward: true,
	ActionLeft:    true,
	ActionBack:    true,
	ActionRight:   true,
}

// ValidationError indicates malformed action/speed input. Nothing
// side-effecting has happened when it is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid action input: " + e.Reason
}

// ActionStep pairs a control symbol with a speed scalar in (0, 1].
type ActionStep struct {
	Symbol Action
	Speed  float64
}

// ActionSequence is the ordered list of control steps for one run.
// Ordering is temporal: step i drives window i of the generated video.
type ActionSequence []ActionStep

// NewActionSequence validates and pairs equal-length symbol and speed lists.
func NewActionSequence(symbols []string, speeds []float64) (ActionSequence, error) {
	if len(symbols) != len(speeds) {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("got %d actions but %d speeds", len(symbols), len(speeds)),
		}
	}
	if len(symbols) == 0 {
		return nil, &ValidationError{Reason: "empty action list"}
	}

	seq := make(ActionSequence, 0, len(symbols))
	for i, s := range symbols {
		a := Action(strings.ToLower(strings.TrimSpace(s)))
		if !actionVocabulary[a] {
			return nil, &ValidationError{Reason: fmt.Sprintf("unknown action %q at position %d", s, i)}
		}
		if speeds[i] <= 0 || speeds[i] > 1 {
			return nil, &ValidationError{Reason: fmt.Sprintf("speed %v at position %d outside (0, 1]", speeds[i], i)}
		}
		seq = append(seq, ActionStep{Symbol: a, Speed: speeds[i]})
	}
	return seq, nil
}

// Wire returns the space-joined action string the inference process expects,
// e.g. "w d d d".
func (s ActionSequence) Wire() string {
	parts := make([]string, len(s))
	for i, step := range s {
		parts[i] = string(step.Symbol)
	}
	return strings.Join(parts, " ")
}

// SpeedWire returns the space-joined speed string, e.g. "0.05 0.05 0.05".
func (s ActionSequence) SpeedWire() string {
	parts := make([]string, len(s))
	for i, step := range s {
		parts[i] = strconv.FormatFloat(step.Speed, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// Tag returns the compressed separator-free form safe for use as a path
// component, e.g. "wddd". Every symbol is a single rune, so the tag
// round-trips back to the ordered action list.
func (s ActionSequence) Tag() string {
	var b strings.Builder
	for _, step := range s {
		b.WriteString(string(step.Symbol))
	}
	return b.String()
}

// Symbols returns the ordered symbols as plain strings.
func (s ActionSequence) Symbols() []string {
	out := make([]string, len(s))
	for i, step := range s {
		out[i] = string(step.Symbol)
	}
	return out
}

// ActionsFromTag expands a compressed tag back into the ordered action list.
func ActionsFromTag(tag string) ([]string, error) {
	if tag == "" {
		return nil, &ValidationError{Reason: "empty tag"}
	}
	out := make([]string, 0, len(tag))
	for _, r := range tag {
		a := Action(r)
		if !actionVocabulary[a] {
			return nil, &ValidationError{Reason: fmt.Sprintf("unknown action %q in tag", string(r))}
		}
		out = append(out, string(a))
	}
	return out, nil
}
