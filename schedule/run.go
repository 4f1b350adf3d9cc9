// Package schedule: lazy pulling and the budgeted run loop.
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/amalgamlab/amalgam/generator"
	"github.com/amalgamlab/amalgam/loss"
	"github.com/amalgamlab/amalgam/model"
)

// ErrBadBudget is returned when Run receives a non-positive budget.
var ErrBadBudget = errors.New("schedule: budget must be positive")

// Pull returns the next instance of the named generator's own sequence,
// expanding it and its dependencies lazily on first use. The end of the
// sequence — including a fired stop criterion — is generator.ErrExhausted.
func (s *Scheduler) Pull(ctx context.Context, name string) (model.Instance, error) {
	stream, _, err := s.expand(name, name)
	if err != nil {
		return nil, err
	}

	return stream.Next(ctx)
}

// History returns the score history of the named generator's own expansion
// (the one Pull and Run drive), if that expansion exists yet.
func (s *Scheduler) History(name string) (*loss.History, bool) {
	if sb, ok := s.shared[name]; ok {
		return sb.hist, true
	}
	if st, ok := s.states[name]; ok {
		return st.hist, true
	}

	return nil, false
}

// Result summarizes one budgeted run of a root generator.
type Result struct {
	Generator string
	Emitted   int
	Exhausted bool

	// Best is the best-scoring emission under the generator's loss
	// direction, or the last emission when no loss is attached.
	Best      model.Instance
	BestScore float64
	Scored    bool
}

// Run pulls up to budget instances from the named generator, tracking the
// best emission. It stops early when the sequence ends; context
// cancellation or a genuine failure surfaces as an error alongside the
// partial result.
func (s *Scheduler) Run(ctx context.Context, name string, budget int) (*Result, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadBudget, budget)
	}
	d, ok := s.arena.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}
	stream, hist, err := s.expand(name, name)
	if err != nil {
		return nil, err
	}

	res := &Result{Generator: name, Scored: d.Loss != nil}
	dir := loss.LowerIsBetter
	if d.Loss != nil {
		dir = d.Loss.Direction
	}
	for res.Emitted < budget {
		inst, nerr := stream.Next(ctx)
		if errors.Is(nerr, generator.ErrExhausted) {
			res.Exhausted = true

			break
		}
		if nerr != nil {
			return res, nerr
		}
		res.Emitted++
		if !res.Scored {
			res.Best = inst

			continue
		}
		// Look the score up by key: a shared generator's replayed
		// emissions were scored at first draw, not on this pull.
		score, ok := hist.Score(inst.Key())
		if !ok {
			continue
		}
		if res.Best == nil || dir.Better(score, res.BestScore) {
			res.Best = inst
			res.BestScore = score
		}
		s.o.logger.Debug("emission scored",
			"generator", name, "emitted", res.Emitted, "score", score)
	}

	return res, nil
}
