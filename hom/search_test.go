// Package hom_test validates enumeration correctness on small graph-shaped
// instances, constraint filtering, budget expiry, reproducible random
// selection, and memoization.
package hom_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amalgamlab/amalgam/hom"
	"github.com/amalgamlab/amalgam/model"
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

// triangle builds the directed 3-cycle a→b→c→a.
func triangle(t *testing.T, s *model.Schema) *model.MemInstance {
	t.Helper()
	inst, err := model.NewBuilder(s).
		AddElem("V", "a").AddElem("V", "b").AddElem("V", "c").
		AddElem("E", "ab").AddElem("E", "bc").AddElem("E", "ca").
		Set("src", "ab", "a").Set("tgt", "ab", "b").
		Set("src", "bc", "b").Set("tgt", "bc", "c").
		Set("src", "ca", "c").Set("tgt", "ca", "a").
		Build()
	require.NoError(t, err)

	return inst
}

// arrow builds the single-edge instance x→y.
func arrow(t *testing.T, s *model.Schema) *model.MemInstance {
	t.Helper()
	inst, err := model.NewBuilder(s).
		AddElem("V", "x").AddElem("V", "y").AddElem("E", "e").
		Set("src", "e", "x").Set("tgt", "e", "y").
		Build()
	require.NoError(t, err)

	return inst
}

func TestFind_InputValidation(t *testing.T) {
	s := graphSchema(t)
	tri := triangle(t, s)
	if _, err := hom.Find(nil, tri); !errors.Is(err, hom.ErrNilInstance) {
		t.Errorf("nil source: want ErrNilInstance, got %v", err)
	}
	other, err := model.NewSchema("other", []string{"X"}, nil)
	require.NoError(t, err)
	empty, err := model.Empty(other)
	require.NoError(t, err)
	if _, err = hom.Find(empty, tri); !errors.Is(err, hom.ErrSchemaMismatch) {
		t.Errorf("schema mismatch: want ErrSchemaMismatch, got %v", err)
	}
	if _, err = hom.Find(tri, tri, hom.WithMaxSteps(-1)); !errors.Is(err, hom.ErrOptionViolation) {
		t.Errorf("negative budget: want ErrOptionViolation, got %v", err)
	}
	if _, err = hom.FindOne(tri, tri, nil); !errors.Is(err, hom.ErrNilRand) {
		t.Errorf("nil rng: want ErrNilRand, got %v", err)
	}
}

func TestFind_EmptySourceHasOneHom(t *testing.T) {
	s := graphSchema(t)
	empty, err := model.Empty(s)
	require.NoError(t, err)
	homs, err := hom.Find(empty, triangle(t, s))
	require.NoError(t, err)
	require.Len(t, homs, 1, "empty source admits exactly the empty hom")
}

// TestFind_TriangleEndomorphisms: the directed 3-cycle has exactly its three
// rotations as endomorphisms.
func TestFind_TriangleEndomorphisms(t *testing.T) {
	s := graphSchema(t)
	tri := triangle(t, s)
	homs, err := hom.Find(tri, tri)
	require.NoError(t, err)
	require.Len(t, homs, 3)
	for _, h := range homs {
		// Every rotation is a well-formed graph map: tgt(h(ab)) == h(b).
		he, _ := h.Image("E", "ab")
		hb, _ := h.Image("V", "b")
		img, ok := tri.Apply("tgt", he)
		require.True(t, ok)
		require.Equal(t, hb, img)
	}
}

// TestFind_ArrowIntoTriangle: one hom per triangle edge.
func TestFind_ArrowIntoTriangle(t *testing.T) {
	s := graphSchema(t)
	homs, err := hom.Find(arrow(t, s), triangle(t, s))
	require.NoError(t, err)
	require.Len(t, homs, 3)
}

// TestFind_StrategiesAgree verifies both strategies enumerate the same set
// in the same public order.
func TestFind_StrategiesAgree(t *testing.T) {
	s := graphSchema(t)
	tri := triangle(t, s)
	ex, err := hom.Find(tri, tri, hom.WithStrategy(hom.Exhaustive))
	require.NoError(t, err)
	bt, err := hom.Find(tri, tri, hom.WithStrategy(hom.Backtracking))
	require.NoError(t, err)
	require.Equal(t, len(ex), len(bt))
	for i := range ex {
		require.Equal(t, ex[i].Fingerprint(), bt[i].Fingerprint())
	}
}

func TestFind_TagConstraint(t *testing.T) {
	s := graphSchema(t)
	// Target: two isolated vertices, one tagged.
	dst, err := model.NewBuilder(s).
		AddElem("V", "p").AddElem("V", "q").
		Tag("V", "q", "input").
		Build()
	require.NoError(t, err)
	src, err := model.NewBuilder(s).AddElem("V", "v").Build()
	require.NoError(t, err)

	homs, err := hom.Find(src, dst, hom.WithConstraint(hom.TagConstraint("input")))
	require.NoError(t, err)
	require.Len(t, homs, 1)
	img, _ := homs[0].Image("V", "v")
	require.Equal(t, "q", img)
}

func TestFind_FixElem(t *testing.T) {
	s := graphSchema(t)
	tri := triangle(t, s)
	homs, err := hom.Find(tri, tri, hom.WithConstraint(hom.FixElem("V", "a", "b")))
	require.NoError(t, err)
	// Only the rotation sending a to b survives.
	require.Len(t, homs, 1)
}

func TestFind_BudgetExpiry(t *testing.T) {
	s := graphSchema(t)
	tri := triangle(t, s)
	_, err := hom.Find(tri, tri, hom.WithMaxSteps(1))
	if !errors.Is(err, hom.ErrSearchTimeout) {
		t.Fatalf("want ErrSearchTimeout, got %v", err)
	}
}

func TestFind_ContextCancelled(t *testing.T) {
	s := graphSchema(t)
	tri := triangle(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := hom.Find(tri, tri, hom.WithContext(ctx))
	if !errors.Is(err, hom.ErrSearchTimeout) {
		t.Fatalf("cancelled context: want ErrSearchTimeout, got %v", err)
	}
}

// TestFindOne_SeededReproducibility is the reproducibility contract: same
// seed, same inputs, same chosen map.
func TestFindOne_SeededReproducibility(t *testing.T) {
	s := graphSchema(t)
	tri := triangle(t, s)
	pick := func(seed int64) string {
		h, err := hom.FindOne(tri, tri, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)

		return h.Fingerprint()
	}
	require.Equal(t, pick(42), pick(42))
}

func TestFindOne_NoHomomorphism(t *testing.T) {
	s := graphSchema(t)
	// Source with a vertex, empty target: no map can exist.
	src, err := model.NewBuilder(s).AddElem("V", "v").Build()
	require.NoError(t, err)
	dst, err := model.Empty(s)
	require.NoError(t, err)
	_, err = hom.FindOne(src, dst, rand.New(rand.NewSource(1)))
	if !errors.Is(err, hom.ErrNoHomomorphism) {
		t.Fatalf("want ErrNoHomomorphism, got %v", err)
	}
}

func TestCache_MemoizesEnumerations(t *testing.T) {
	s := graphSchema(t)
	tri := triangle(t, s)
	cache, err := hom.NewCache(0)
	require.NoError(t, err)

	first, err := hom.Find(tri, tri, hom.WithCache(cache))
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	second, err := hom.Find(tri, tri, hom.WithCache(cache))
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].Fingerprint(), second[i].Fingerprint())
	}
}
