// Package schedule_test validates build-time DAG checks, lazy pulling,
// stop-criterion exhaustion, and the shared/reentrant expansion policies.
package schedule_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amalgamlab/amalgam/generator"
	"github.com/amalgamlab/amalgam/hom"
	"github.com/amalgamlab/amalgam/loss"
	"github.com/amalgamlab/amalgam/model"
	"github.com/amalgamlab/amalgam/schedule"
)

func graphSchema(t *testing.T) *model.Schema {
	t.Helper()
	s, err := model.NewSchema("graph",
		[]string{"V", "E"},
		[]model.Fn{
			{Name: "src", Dom: "E", Cod: "V"},
			{Name: "tgt", Dom: "E", Cod: "V"},
		})
	require.NoError(t, err)

	return s
}

func vertices(t *testing.T, s *model.Schema, n int) *model.MemInstance {
	t.Helper()
	b := model.NewBuilder(s)
	for i := 0; i < n; i++ {
		b.AddElem("V", fmt.Sprintf("v%d", i))
	}
	inst, err := b.Build()
	require.NoError(t, err)

	return inst
}

func arrow(t *testing.T, s *model.Schema) *model.MemInstance {
	t.Helper()
	inst, err := model.NewBuilder(s).
		AddElem("V", "x").AddElem("V", "y").AddElem("E", "e").
		Set("src", "e", "x").Set("tgt", "e", "y").
		Build()
	require.NoError(t, err)

	return inst
}

// identityBox wraps a generator in a single-box wireless additive pattern.
func identityBox(name, inner string) *generator.Decl {
	return &generator.Decl{
		Name: name,
		Kind: generator.KindAdditive,
		Wiring: &generator.Pattern{
			Boxes: []generator.Box{{ID: "b", Generator: inner}},
		},
	}
}

func TestBuild_Validation(t *testing.T) {
	explicit := func(name string) *generator.Decl {
		return &generator.Decl{Name: name, Kind: generator.KindExplicit}
	}

	t.Run("dangling dependency", func(t *testing.T) {
		a, err := generator.NewArena(identityBox("root", "missing"))
		require.NoError(t, err)
		_, err = schedule.Build(a)
		require.ErrorIs(t, err, schedule.ErrDanglingDep)
	})

	t.Run("cycle", func(t *testing.T) {
		a, err := generator.NewArena(identityBox("a", "b"), identityBox("b", "a"))
		require.NoError(t, err)
		_, err = schedule.Build(a)
		require.ErrorIs(t, err, schedule.ErrCycle)
	})

	t.Run("multiple roots", func(t *testing.T) {
		a, err := generator.NewArena(explicit("g1"), explicit("g2"))
		require.NoError(t, err)
		_, err = schedule.Build(a)
		require.ErrorIs(t, err, schedule.ErrMultipleRoots)

		sched, err := schedule.Build(a, schedule.WithMultiRoot(true))
		require.NoError(t, err)
		require.Len(t, sched.Roots(), 2)
	})

	t.Run("sharing undeclared", func(t *testing.T) {
		atoms := explicit("atoms")
		a, err := generator.NewArena(atoms,
			identityBox("left", "atoms"),
			identityBox("right", "atoms"))
		require.NoError(t, err)
		_, err = schedule.Build(a, schedule.WithMultiRoot(true))
		require.ErrorIs(t, err, schedule.ErrSharingUndeclared)
	})

	t.Run("empty arena", func(t *testing.T) {
		a, err := generator.NewArena()
		require.NoError(t, err)
		_, err = schedule.Build(a)
		require.ErrorIs(t, err, schedule.ErrEmptyArena)
	})
}

func TestBuild_OrderIsTopological(t *testing.T) {
	s := graphSchema(t)
	atoms := &generator.Decl{
		Name: "atoms", Kind: generator.KindExplicit,
		Explicit: []model.Instance{vertices(t, s, 1)},
	}
	mid := identityBox("mid", "atoms")
	root := identityBox("root", "mid")
	a, err := generator.NewArena(root, mid, atoms)
	require.NoError(t, err)
	sched, err := schedule.Build(a)
	require.NoError(t, err)

	require.Equal(t, []string{"atoms", "mid", "root"}, sched.Order())
	require.Equal(t, []string{"root"}, sched.Roots())
}

// TestRun_StopCriterionHalt: stop "score <= 0" over the emitted score
// sequence [5,3,1,-1,...] halts after exactly four instances, and the
// fourth is still emitted.
func TestRun_StopCriterionHalt(t *testing.T) {
	s := graphSchema(t)
	insts := make([]model.Instance, 6)
	for i := range insts {
		insts[i] = vertices(t, s, i+1)
	}
	// Sizes 1..6 score 5,3,1,-1,-3,-5.
	eval := loss.EvaluatorFunc(func(_ context.Context, m model.Instance) (float64, error) {
		return 7 - 2*float64(m.Size()), nil
	})
	root := &generator.Decl{
		Name: "root", Kind: generator.KindExplicit, Explicit: insts,
		Loss: &generator.LossSpec{Evaluator: eval, Stop: loss.StopAtThreshold(0)},
	}
	a, err := generator.NewArena(root)
	require.NoError(t, err)
	sched, err := schedule.Build(a)
	require.NoError(t, err)

	res, err := sched.Run(context.Background(), "root", 10)
	require.NoError(t, err)
	require.Equal(t, 4, res.Emitted, "halts exactly after the instance scoring -1")
	require.True(t, res.Exhausted)
	require.True(t, res.Scored)
	require.Equal(t, float64(-1), res.BestScore)

	hist, ok := sched.History("root")
	require.True(t, ok)
	require.Equal(t, []float64{5, 3, 1, -1}, hist.Scores())
}

// siblingsArena builds atoms referenced by two sibling identity composites
// under a multiplicative root.
func siblingsArena(t *testing.T, s *model.Schema, sharing generator.Sharing) *generator.Arena {
	t.Helper()
	atoms := &generator.Decl{
		Name: "atoms", Kind: generator.KindExplicit, Sharing: sharing,
		Explicit: []model.Instance{vertices(t, s, 1), vertices(t, s, 2)},
	}
	root := &generator.Decl{
		Name: "root", Kind: generator.KindMultiplicative,
		Product: &generator.ProductSpec{Dimensions: []string{"left", "right"}},
	}
	a, err := generator.NewArena(atoms, identityBox("left", "atoms"), identityBox("right", "atoms"), root)
	require.NoError(t, err)

	return a
}

// TestRun_SharedVersusReentrant: a shared generator is expanded once per
// search however many composites reference it; a reentrant one is expanded
// once per referencing composite.
func TestRun_SharedVersusReentrant(t *testing.T) {
	s := graphSchema(t)

	shared, err := schedule.Build(siblingsArena(t, s, generator.SharingShared))
	require.NoError(t, err)
	require.Equal(t, 0, shared.Expansions("atoms"), "expansion is lazy")
	_, err = shared.Run(context.Background(), "root", 8)
	require.NoError(t, err)
	require.Equal(t, 1, shared.Expansions("atoms"))

	reentrant, err := schedule.Build(siblingsArena(t, s, generator.SharingReentrant))
	require.NoError(t, err)
	_, err = reentrant.Run(context.Background(), "root", 8)
	require.NoError(t, err)
	require.Equal(t, 2, reentrant.Expansions("atoms"))
}

// TestRun_GluesThroughTheDAG drives an additive root end to end: two boxes
// over one explicit arrow generator, glued head-to-tail at a junction.
func TestRun_GluesThroughTheDAG(t *testing.T) {
	s := graphSchema(t)
	overlap, err := model.NewBuilder(s).AddElem("V", "o").Build()
	require.NoError(t, err)

	atoms := &generator.Decl{
		Name: "atoms", Kind: generator.KindExplicit,
		Sharing:  generator.SharingReentrant,
		Explicit: []model.Instance{arrow(t, s)},
	}
	root := &generator.Decl{
		Name: "root", Kind: generator.KindAdditive,
		Wiring: &generator.Pattern{
			Boxes: []generator.Box{
				{ID: "b1", Generator: "atoms"},
				{ID: "b2", Generator: "atoms"},
			},
			Ports: []generator.Port{
				{ID: "p1", Box: "b1", Constraints: []hom.Constraint{hom.FixElem("V", "o", "y")}},
				{ID: "p2", Box: "b2", Constraints: []hom.Constraint{hom.FixElem("V", "o", "x")}},
			},
			Junctions: []generator.Junction{{ID: "j", Overlap: overlap}},
			Wires: []generator.Wire{
				{ID: "w1", Port: "p1", Junction: "j"},
				{ID: "w2", Port: "p2", Junction: "j"},
			},
		},
		Loss: &generator.LossSpec{Evaluator: loss.Size()},
	}
	a, err := generator.NewArena(atoms, root)
	require.NoError(t, err)
	sched, err := schedule.Build(a, schedule.WithSeed(42))
	require.NoError(t, err)

	res, err := sched.Run(context.Background(), "root", 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Emitted)
	require.True(t, res.Exhausted)
	require.NotNil(t, res.Best)
	// Length-2 path: 3 vertices, 2 edges.
	require.Len(t, res.Best.Elems("V"), 3)
	require.Len(t, res.Best.Elems("E"), 2)
	require.Equal(t, float64(5), res.BestScore)
}

// TestPull_LazyAndExhaustionDistinct: Pull drives one generator directly;
// exhaustion is generator.ErrExhausted, not a failure.
func TestPull_LazyAndExhaustionDistinct(t *testing.T) {
	s := graphSchema(t)
	atoms := &generator.Decl{
		Name: "atoms", Kind: generator.KindExplicit,
		Explicit: []model.Instance{vertices(t, s, 1)},
	}
	a, err := generator.NewArena(atoms)
	require.NoError(t, err)
	sched, err := schedule.Build(a)
	require.NoError(t, err)

	inst, err := sched.Pull(context.Background(), "atoms")
	require.NoError(t, err)
	require.Equal(t, 1, inst.Size())
	_, err = sched.Pull(context.Background(), "atoms")
	require.ErrorIs(t, err, generator.ErrExhausted)

	_, err = sched.Pull(context.Background(), "nope")
	require.ErrorIs(t, err, schedule.ErrUnknownGenerator)
}

// TestRun_ShapedEvaluator: a composite's evaluator reads its dependencies'
// latest scores.
type shapedEval struct{}

func (shapedEval) Evaluate(_ context.Context, m model.Instance) (float64, error) {
	return float64(m.Size()), nil
}

func (shapedEval) EvaluateShaped(_ context.Context, m model.Instance, deps loss.DepScores) (float64, error) {
	total := float64(m.Size())
	for _, s := range deps {
		total += s
	}

	return total, nil
}

func TestRun_ShapedEvaluator(t *testing.T) {
	s := graphSchema(t)
	atoms := &generator.Decl{
		Name: "atoms", Kind: generator.KindExplicit,
		Explicit: []model.Instance{vertices(t, s, 2)},
		Loss:     &generator.LossSpec{Evaluator: loss.Size()},
	}
	root := identityBox("root", "atoms")
	root.Loss = &generator.LossSpec{Evaluator: shapedEval{}}
	a, err := generator.NewArena(atoms, root)
	require.NoError(t, err)
	sched, err := schedule.Build(a)
	require.NoError(t, err)

	res, err := sched.Run(context.Background(), "root", 5)
	require.NoError(t, err)
	require.Equal(t, 1, res.Emitted)
	// Own size 2 plus the dependency's latest score 2.
	require.Equal(t, float64(4), res.BestScore)
}

// TestRun_NestedInterfaceConstraints: an inner composite's port constraints
// travel outward — an enclosing layer embedding into the inner composite's
// draws must respect them even when its own ports carry none.
func TestRun_NestedInterfaceConstraints(t *testing.T) {
	s := graphSchema(t)
	plain, err := model.NewBuilder(s).
		AddElem("V", "u1").AddElem("V", "u2").
		Build()
	require.NoError(t, err)
	tagged, err := model.NewBuilder(s).
		AddElem("V", "t").Tag("V", "t", "iface").
		Build()
	require.NoError(t, err)
	overlap, err := model.NewBuilder(s).AddElem("V", "o").Build()
	require.NoError(t, err)

	atoms := &generator.Decl{
		Name: "atoms", Kind: generator.KindExplicit,
		Explicit: []model.Instance{plain, tagged},
	}
	inner := &generator.Decl{
		Name: "inner", Kind: generator.KindAdditive,
		Wiring: &generator.Pattern{
			Boxes: []generator.Box{{ID: "ib", Generator: "atoms"}},
			Ports: []generator.Port{
				{ID: "ip", Box: "ib", Constraints: []hom.Constraint{hom.TagConstraint("iface")}},
			},
		},
	}
	outer := &generator.Decl{
		Name: "outer", Kind: generator.KindAdditive,
		Wiring: &generator.Pattern{
			Boxes:     []generator.Box{{ID: "ob", Generator: "inner"}},
			Ports:     []generator.Port{{ID: "op", Box: "ob"}},
			Junctions: []generator.Junction{{ID: "j", Overlap: overlap}},
			Wires:     []generator.Wire{{ID: "w", Port: "op", Junction: "j"}},
		},
	}
	a, err := generator.NewArena(atoms, inner, outer)
	require.NoError(t, err)
	sched, err := schedule.Build(a, schedule.WithSeed(11))
	require.NoError(t, err)

	// The untagged draw offers no admissible image under the inner
	// interface, so only the tagged one composes.
	res, err := sched.Run(context.Background(), "outer", 5)
	require.NoError(t, err)
	require.Equal(t, 1, res.Emitted)
	require.True(t, res.Exhausted)
	require.Equal(t, 1, res.Best.Size())
}

// keyRecordingEval captures the dependency-score keys a composite's shaped
// evaluator observes.
type keyRecordingEval struct {
	seen loss.DepScores
}

func (e *keyRecordingEval) Evaluate(_ context.Context, m model.Instance) (float64, error) {
	return float64(m.Size()), nil
}

func (e *keyRecordingEval) EvaluateShaped(_ context.Context, m model.Instance, deps loss.DepScores) (float64, error) {
	e.seen = make(loss.DepScores, len(deps))
	total := float64(m.Size())
	for k, v := range deps {
		e.seen[k] = v
		total += v
	}

	return total, nil
}

// TestRun_ShapedSeesEveryBox: two boxes drawing the same reentrant
// generator contribute two distinct dependency scores, keyed by box id.
func TestRun_ShapedSeesEveryBox(t *testing.T) {
	s := graphSchema(t)
	atoms := &generator.Decl{
		Name: "atoms", Kind: generator.KindExplicit,
		Sharing:  generator.SharingReentrant,
		Explicit: []model.Instance{vertices(t, s, 2)},
		Loss:     &generator.LossSpec{Evaluator: loss.Size()},
	}
	eval := &keyRecordingEval{}
	root := &generator.Decl{
		Name: "root", Kind: generator.KindAdditive,
		Wiring: &generator.Pattern{
			Boxes: []generator.Box{
				{ID: "b1", Generator: "atoms"},
				{ID: "b2", Generator: "atoms"},
			},
		},
		Loss: &generator.LossSpec{Evaluator: eval},
	}
	a, err := generator.NewArena(atoms, root)
	require.NoError(t, err)
	sched, err := schedule.Build(a)
	require.NoError(t, err)

	res, err := sched.Run(context.Background(), "root", 5)
	require.NoError(t, err)
	require.Equal(t, 1, res.Emitted)
	require.Contains(t, eval.seen, "b1")
	require.Contains(t, eval.seen, "b2")
	// Disjoint union of two 2-vertex draws plus both component scores.
	require.Equal(t, float64(8), res.BestScore)
}

// TestRun_SharedReplayKeepsScores: pulling a shared generator after
// another consumer drained it replays buffered instances; best-tracking
// must attribute each replayed instance its own recorded score.
func TestRun_SharedReplayKeepsScores(t *testing.T) {
	s := graphSchema(t)
	atoms := &generator.Decl{
		Name: "atoms", Kind: generator.KindExplicit,
		Sharing:  generator.SharingShared,
		Explicit: []model.Instance{vertices(t, s, 3), vertices(t, s, 1), vertices(t, s, 2)},
		Loss:     &generator.LossSpec{Evaluator: loss.Size()},
	}
	wrap := identityBox("wrap", "atoms")
	a, err := generator.NewArena(atoms, wrap)
	require.NoError(t, err)
	sched, err := schedule.Build(a)
	require.NoError(t, err)

	// Drain atoms through the composite, filling the shared buffer.
	res, err := sched.Run(context.Background(), "wrap", 10)
	require.NoError(t, err)
	require.Equal(t, 3, res.Emitted)

	// Replay through a direct pull: scores stay attached per instance.
	res, err = sched.Run(context.Background(), "atoms", 10)
	require.NoError(t, err)
	require.Equal(t, 3, res.Emitted)
	require.Equal(t, float64(1), res.BestScore)
	require.Equal(t, 1, res.Best.Size())
}
