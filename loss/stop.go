// Package loss: stopping criteria.
package loss

import "gonum.org/v1/gonum/stat"

// StopCriterion decides, after each emission, whether the owning
// generator's sequence halts. Once it reports true the decision is
// permanent: the engine never consults it again for that generator.
type StopCriterion interface {
	ShouldStop(h *History, dir Direction) bool
}

// StopFunc adapts a plain function to StopCriterion.
type StopFunc func(h *History, dir Direction) bool

// ShouldStop implements StopCriterion.
func (f StopFunc) ShouldStop(h *History, dir Direction) bool { return f(h, dir) }

// StopAtThreshold halts once the latest score reaches t in the improving
// direction, inclusive: score <= t under LowerIsBetter, score >= t under
// HigherIsBetter. The instance that crossed the threshold is still emitted.
func StopAtThreshold(t float64) StopCriterion {
	return StopFunc(func(h *History, dir Direction) bool {
		latest, ok := h.Latest()
		if !ok {
			return false
		}
		if dir == HigherIsBetter {
			return latest.Score >= t
		}

		return latest.Score <= t
	})
}

// StopAfter halts once n samples have been emitted.
func StopAfter(n int) StopCriterion {
	return StopFunc(func(h *History, _ Direction) bool {
		return h.Len() >= n
	})
}

// StopOnPlateau halts once the trailing window of scores has standard
// deviation below eps; fires only after at least window samples exist.
// window must be at least 2 to be meaningful.
func StopOnPlateau(window int, eps float64) StopCriterion {
	return StopFunc(func(h *History, _ Direction) bool {
		if window < 2 || h.Len() < window {
			return false
		}
		scores := h.Scores()

		return stat.StdDev(scores[len(scores)-window:], nil) < eps
	})
}

// StopAny halts as soon as any of the given criteria does.
func StopAny(cs ...StopCriterion) StopCriterion {
	return StopFunc(func(h *History, dir Direction) bool {
		for _, c := range cs {
			if c.ShouldStop(h, dir) {
				return true
			}
		}

		return false
	})
}
