// Package loss: evaluators, direction, and score histories.
package loss

import (
	"context"
	"errors"

	"github.com/amalgamlab/amalgam/model"
)

// ErrNilEvaluator is returned when a generator that declares a stop
// criterion carries no evaluator to feed it.
var ErrNilEvaluator = errors.New("loss: evaluator is nil")

// Direction declares which end of the score axis is better.
type Direction int

const (
	// LowerIsBetter treats smaller scores as improvements. Default.
	LowerIsBetter Direction = iota
	// HigherIsBetter treats larger scores as improvements.
	HigherIsBetter
)

// Better reports whether a improves on b under the direction.
func (d Direction) Better(a, b float64) bool {
	if d == HigherIsBetter {
		return a > b
	}

	return a < b
}

// Evaluator scores one instance. Implementations must be pure: equal
// instances yield equal scores.
type Evaluator interface {
	Evaluate(ctx context.Context, inst model.Instance) (float64, error)
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(ctx context.Context, inst model.Instance) (float64, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, inst model.Instance) (float64, error) {
	return f(ctx, inst)
}

// DepScores exposes the latest score of each component expansion,
// read-only. Additive parents key entries by box id, multiplicative
// parents by dimension name (suffixed #index when a name repeats), so two
// components drawing the same generator stay distinguishable.
type DepScores map[string]float64

// Shaped is implemented by evaluators of composite generators that shape
// their own score with the latest scores of their dependencies.
type Shaped interface {
	Evaluator
	EvaluateShaped(ctx context.Context, inst model.Instance, deps DepScores) (float64, error)
}

// Size scores an instance by its total element count.
func Size() Evaluator {
	return EvaluatorFunc(func(_ context.Context, inst model.Instance) (float64, error) {
		return float64(inst.Size()), nil
	})
}

// SortCount scores an instance by the element count of one sort.
func SortCount(sort string) Evaluator {
	return EvaluatorFunc(func(_ context.Context, inst model.Instance) (float64, error) {
		return float64(len(inst.Elems(sort))), nil
	})
}

// Sample is one emitted (instance, score) pair. Key is the instance's
// canonical key; the instance itself is not retained by the history.
type Sample struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

// History is the ordered sequence of samples a generator has emitted.
// It is owned by the exploration engine; everything outside the owning
// generator sees it read-only.
type History struct {
	samples []Sample
}

// Append records one sample.
func (h *History) Append(key string, score float64) {
	h.samples = append(h.samples, Sample{Key: key, Score: score})
}

// Len returns the number of recorded samples.
func (h *History) Len() int { return len(h.samples) }

// Latest returns the most recent sample, if any.
func (h *History) Latest() (Sample, bool) {
	if len(h.samples) == 0 {
		return Sample{}, false
	}

	return h.samples[len(h.samples)-1], true
}

// Score returns the most recent score recorded for the given instance
// key. Replayed emissions of a shared generator are scored once, at first
// draw, so consumers look their score up by key instead of Latest.
func (h *History) Score(key string) (float64, bool) {
	for i := len(h.samples) - 1; i >= 0; i-- {
		if h.samples[i].Key == key {
			return h.samples[i].Score, true
		}
	}

	return 0, false
}

// Best returns the best sample under the direction, if any.
func (h *History) Best(dir Direction) (Sample, bool) {
	if len(h.samples) == 0 {
		return Sample{}, false
	}
	best := h.samples[0]
	for _, s := range h.samples[1:] {
		if dir.Better(s.Score, best.Score) {
			best = s
		}
	}

	return best, true
}

// Scores returns all recorded scores in emission order; the slice is a copy.
func (h *History) Scores() []float64 {
	out := make([]float64, len(h.samples))
	for i, s := range h.samples {
		out[i] = s.Score
	}

	return out
}

// Snapshot returns the samples for checkpointing; the slice is a copy.
func (h *History) Snapshot() []Sample {
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)

	return out
}

// Restore replaces the history with a checkpointed snapshot.
func (h *History) Restore(samples []Sample) {
	h.samples = make([]Sample, len(samples))
	copy(h.samples, samples)
}
