// Package hom: Find and the two enumeration strategies.
package hom

import (
	"fmt"
	"sort"

	"github.com/amalgamlab/amalgam/model"
)

// ctxCheckInterval is how many candidate trials pass between context polls.
const ctxCheckInterval = 256

// svar is one search variable: a source element awaiting a target image.
type svar struct {
	sort string
	elem string
}

// searcher encapsulates mutable state of one Find call.
type searcher struct {
	src, dst model.Instance
	opts     options
	vars     []svar
	varIdx   map[string]int // sort+"\x00"+elem → index into vars
	assigned []string       // target element per var, "" = unassigned
	steps    int
	found    []Hom
}

// Find enumerates every admissible homomorphism from src into dst, in a
// deterministic order (sorted by Fingerprint). The empty source admits
// exactly one (empty) homomorphism. Returns ErrSearchTimeout when the step
// budget or context expires before enumeration completes, and never returns
// a partial set in that case.
func Find(src, dst model.Instance, opts ...Option) ([]Hom, error) {
	if src == nil || dst == nil {
		return nil, ErrNilInstance
	}
	if !src.Schema().Same(dst.Schema()) {
		return nil, ErrSchemaMismatch
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}

	// Cache lookup first; only complete enumerations are ever stored.
	key, cacheable := cacheKey(src, dst, o.constraints)
	if o.cache != nil && cacheable {
		if homs, ok := o.cache.get(key); ok {
			return homs, nil
		}
	}

	// Catch an already-expired context before any work.
	select {
	case <-o.ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrSearchTimeout, o.ctx.Err())
	default:
	}

	s := newSearcher(src, dst, o)
	var err error
	strat := o.strategy
	if strat == Auto {
		if src.Size() <= autoExhaustiveLimit {
			strat = Exhaustive
		} else {
			strat = Backtracking
		}
	}
	switch strat {
	case Exhaustive:
		err = s.exhaustive(0)
	case Backtracking:
		err = s.backtrack(0)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %d", ErrOptionViolation, strat)
	}
	if err != nil {
		return nil, err
	}

	// Deterministic public order, independent of strategy.
	sort.Slice(s.found, func(i, j int) bool {
		return s.found[i].Fingerprint() < s.found[j].Fingerprint()
	})
	if o.cache != nil && cacheable {
		o.cache.put(key, s.found)
	}

	return s.found, nil
}

// newSearcher builds the variable order: schema sort order, then the source
// instance's stable element order, so enumeration is deterministic.
func newSearcher(src, dst model.Instance, o options) *searcher {
	s := &searcher{
		src:    src,
		dst:    dst,
		opts:   o,
		varIdx: make(map[string]int, src.Size()),
	}
	for _, srt := range src.Schema().Sorts() {
		for _, e := range src.Elems(srt) {
			s.varIdx[srt+"\x00"+e] = len(s.vars)
			s.vars = append(s.vars, svar{sort: srt, elem: e})
		}
	}
	s.assigned = make([]string, len(s.vars))

	return s
}

// step counts one candidate trial, polling budget and context.
func (s *searcher) step() error {
	s.steps++
	if s.steps > s.opts.maxSteps {
		return fmt.Errorf("%w: exceeded %d steps", ErrSearchTimeout, s.opts.maxSteps)
	}
	if s.steps%ctxCheckInterval == 0 {
		select {
		case <-s.opts.ctx.Done():
			return fmt.Errorf("%w: %v", ErrSearchTimeout, s.opts.ctx.Err())
		default:
		}
	}

	return nil
}

// admissible applies every constraint to the proposed pair.
func (s *searcher) admissible(srt, se, de string) bool {
	for _, c := range s.opts.constraints {
		if !c.Allow(s.dst, srt, se, de) {
			return false
		}
	}

	return true
}

// record snapshots the current complete assignment as a Hom.
func (s *searcher) record() {
	maps := make(map[string]map[string]string)
	for i, v := range s.vars {
		if maps[v.sort] == nil {
			maps[v.sort] = make(map[string]string)
		}
		maps[v.sort][v.elem] = s.assigned[i]
	}
	s.found = append(s.found, Hom{maps: maps})
}

// exhaustive assigns variables in order, filtering by constraints only,
// and verifies function commutation at the leaves.
func (s *searcher) exhaustive(i int) error {
	if i == len(s.vars) {
		if s.commutes() {
			s.record()
		}

		return nil
	}
	v := s.vars[i]
	for _, de := range s.dst.Elems(v.sort) {
		if err := s.step(); err != nil {
			return err
		}
		if !s.admissible(v.sort, v.elem, de) {
			continue
		}
		s.assigned[i] = de
		if err := s.exhaustive(i + 1); err != nil {
			return err
		}
		s.assigned[i] = ""
	}

	return nil
}

// commutes verifies h(f(x)) == f(h(x)) for every function and element.
func (s *searcher) commutes() bool {
	for _, fn := range s.src.Schema().Fns() {
		for _, e := range s.src.Elems(fn.Dom) {
			srcImg, _ := s.src.Apply(fn.Name, e)
			he := s.assigned[s.varIdx[fn.Dom+"\x00"+e]]
			hfe := s.assigned[s.varIdx[fn.Cod+"\x00"+srcImg]]
			dstImg, ok := s.dst.Apply(fn.Name, he)
			if !ok || dstImg != hfe {
				return false
			}
		}
	}

	return true
}

// backtrack assigns the next unassigned variable, propagating forced images
// through every schema function and undoing the trail on failure.
func (s *searcher) backtrack(from int) error {
	// Next unassigned variable at or after from (earlier ones may have been
	// forced by propagation).
	i := from
	for i < len(s.vars) && s.assigned[i] != "" {
		i++
	}
	if i == len(s.vars) {
		s.record()

		return nil
	}

	v := s.vars[i]
	for _, de := range s.dst.Elems(v.sort) {
		if err := s.step(); err != nil {
			return err
		}
		trail, ok := s.propagate(i, de)
		if ok {
			if err := s.backtrack(i + 1); err != nil {
				s.undo(trail)

				return err
			}
		}
		s.undo(trail)
	}

	return nil
}

// propagate assigns var i := de and forces all images reachable through
// schema functions. Returns the trail of assigned var indices and whether
// the assignment is consistent; on false the caller must still undo.
func (s *searcher) propagate(i int, de string) ([]int, bool) {
	type pending struct {
		idx int
		img string
	}
	stack := []pending{{idx: i, img: de}}
	var trail []int
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur := s.assigned[p.idx]; cur != "" {
			if cur != p.img {
				return trail, false
			}

			continue
		}
		v := s.vars[p.idx]
		if !s.admissible(v.sort, v.elem, p.img) {
			return trail, false
		}
		s.assigned[p.idx] = p.img
		trail = append(trail, p.idx)

		// Force images of every function leaving this element's sort.
		for _, fn := range s.src.Schema().FnsFrom(v.sort) {
			srcImg, _ := s.src.Apply(fn.Name, v.elem)
			dstImg, ok := s.dst.Apply(fn.Name, p.img)
			if !ok {
				return trail, false
			}
			stack = append(stack, pending{idx: s.varIdx[fn.Cod+"\x00"+srcImg], img: dstImg})
		}
	}

	return trail, true
}

// undo clears every assignment recorded on the trail.
func (s *searcher) undo(trail []int) {
	for _, idx := range trail {
		s.assigned[idx] = ""
	}
}
