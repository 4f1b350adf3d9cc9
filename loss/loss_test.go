// Package loss_test validates score histories, direction semantics, and the
// stopping criteria.
package loss_test

import (
	"testing"

	"github.com/amalgamlab/amalgam/loss"
)

func histOf(scores ...float64) *loss.History {
	h := &loss.History{}
	for i, s := range scores {
		h.Append(string(rune('a'+i)), s)
	}

	return h
}

func TestDirection_Better(t *testing.T) {
	if !loss.LowerIsBetter.Better(1, 2) {
		t.Error("LowerIsBetter: 1 should beat 2")
	}
	if !loss.HigherIsBetter.Better(2, 1) {
		t.Error("HigherIsBetter: 2 should beat 1")
	}
}

func TestHistory_LatestAndBest(t *testing.T) {
	h := histOf(5, 3, 7)
	latest, ok := h.Latest()
	if !ok || latest.Score != 7 {
		t.Errorf("Latest = %v,%v; want 7,true", latest.Score, ok)
	}
	best, _ := h.Best(loss.LowerIsBetter)
	if best.Score != 3 {
		t.Errorf("Best(lower) = %v; want 3", best.Score)
	}
	best, _ = h.Best(loss.HigherIsBetter)
	if best.Score != 7 {
		t.Errorf("Best(higher) = %v; want 7", best.Score)
	}
	if _, ok = (&loss.History{}).Latest(); ok {
		t.Error("empty history must have no latest sample")
	}
}

func TestHistory_SnapshotRestore(t *testing.T) {
	h := histOf(1, 2)
	snap := h.Snapshot()
	restored := &loss.History{}
	restored.Restore(snap)
	if restored.Len() != 2 {
		t.Fatalf("restored Len = %d; want 2", restored.Len())
	}
	got, _ := restored.Latest()
	if got.Score != 2 {
		t.Errorf("restored Latest = %v; want 2", got.Score)
	}
}

// TestStopAtThreshold_MonotoneSequence mirrors the halting scenario: over
// [5,3,1,-1] with "halt once score <= 0", the stop fires exactly on the
// fourth sample.
func TestStopAtThreshold_MonotoneSequence(t *testing.T) {
	stop := loss.StopAtThreshold(0)
	h := &loss.History{}
	for i, score := range []float64{5, 3, 1, -1} {
		h.Append("k", score)
		fired := stop.ShouldStop(h, loss.LowerIsBetter)
		if want := i == 3; fired != want {
			t.Errorf("after score %v: ShouldStop = %v; want %v", score, fired, want)
		}
	}
	if h.Len() != 4 {
		t.Errorf("emitted %d samples; want 4", h.Len())
	}
}

func TestStopAtThreshold_HigherIsBetter(t *testing.T) {
	stop := loss.StopAtThreshold(10)
	h := histOf(4, 11)
	if !stop.ShouldStop(h, loss.HigherIsBetter) {
		t.Error("score 11 >= 10 must stop under HigherIsBetter")
	}
}

func TestStopAfter(t *testing.T) {
	stop := loss.StopAfter(2)
	h := histOf(1)
	if stop.ShouldStop(h, loss.LowerIsBetter) {
		t.Error("must not stop before n samples")
	}
	h.Append("b", 2)
	if !stop.ShouldStop(h, loss.LowerIsBetter) {
		t.Error("must stop at n samples")
	}
}

func TestStopOnPlateau(t *testing.T) {
	stop := loss.StopOnPlateau(3, 1e-9)
	if stop.ShouldStop(histOf(5, 5), loss.LowerIsBetter) {
		t.Error("must not fire before the window fills")
	}
	if stop.ShouldStop(histOf(5, 4, 3), loss.LowerIsBetter) {
		t.Error("varying window must not fire")
	}
	if !stop.ShouldStop(histOf(9, 5, 5, 5), loss.LowerIsBetter) {
		t.Error("flat trailing window must fire")
	}
}

func TestStopAny(t *testing.T) {
	stop := loss.StopAny(loss.StopAfter(10), loss.StopAtThreshold(0))
	if !stop.ShouldStop(histOf(5, -1), loss.LowerIsBetter) {
		t.Error("threshold arm must fire")
	}
	if stop.ShouldStop(histOf(5, 4), loss.LowerIsBetter) {
		t.Error("neither arm should fire")
	}
}

func TestHistory_ScoreByKey(t *testing.T) {
	h := &loss.History{}
	h.Append("x", 3)
	h.Append("y", 1)
	h.Append("x", 5)

	if s, ok := h.Score("y"); !ok || s != 1 {
		t.Errorf("Score(y) = %v, %v; want 1, true", s, ok)
	}
	if s, ok := h.Score("x"); !ok || s != 5 {
		t.Errorf("Score(x) = %v, %v; want the latest sample 5", s, ok)
	}
	if _, ok := h.Score("z"); ok {
		t.Error("Score on an unseen key must report absence")
	}
}
