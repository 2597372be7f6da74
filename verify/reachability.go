package verify

import (
	"fmt"

	"llir2pn/petrinet"
)

// State is a reachable marking: one token count per place, indexed by the
// place's creation-order index (§3's arena-indexed identity, carried
// straight through from petrinet.PlaceRef).
type State []uint64

func (s State) at(p petrinet.PlaceRef) uint64 {
	idx := p.PlaceIndex()
	if idx < 0 || idx >= len(s) {
		return 0
	}
	return s[idx]
}

func (s State) key() string {
	// Token counts in this translation never exceed small integers (every
	// place is touched by at most a handful of transitions per firing), so
	// a direct byte encoding is both cheap and collision-free without
	// needing a real hash.
	b := make([]byte, 0, len(s)*2)
	for _, v := range s {
		for v > 0 {
			b = append(b, byte(v&0xff)|0x80)
			v >>= 8
		}
		b = append(b, 0)
	}
	return string(b)
}

func (s State) clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// ExploreResult is the outcome of a bounded breadth-first coverability
// search over a net's reachable markings.
type ExploreResult struct {
	States    []State
	Truncated bool
}

// arcSets precomputes, per transition, the deduplicated set of places it
// consumes from and produces to. Duplicate PT/TP arcs between the same
// pair are permitted by the net but carry no extra weight (petrinet's
// AddArcPT/AddArcTP doc comment: "the translator never relies on arc
// multiplicity"), so firing treats each as a plain 0/1 precondition.
type arcSets struct {
	consumes [][]int // per transition index, place indices it requires >=1 token from
	produces [][]int // per transition index, place indices it adds a token to
}

func buildArcSets(net *petrinet.PetriNet) arcSets {
	n := net.NumTransitions()
	sets := arcSets{consumes: make([][]int, n), produces: make([][]int, n)}
	seenConsume := make([]map[int]bool, n)
	seenProduce := make([]map[int]bool, n)
	for i := range seenConsume {
		seenConsume[i] = map[int]bool{}
		seenProduce[i] = map[int]bool{}
	}
	for _, arc := range net.Arcs() {
		if arc.IsPT {
			ti := arc.ToTransition.TransitionIndex()
			pi := arc.FromPlace.PlaceIndex()
			if !seenConsume[ti][pi] {
				seenConsume[ti][pi] = true
				sets.consumes[ti] = append(sets.consumes[ti], pi)
			}
		} else {
			ti := arc.FromTransition.TransitionIndex()
			pi := arc.ToPlace.PlaceIndex()
			if !seenProduce[ti][pi] {
				seenProduce[ti][pi] = true
				sets.produces[ti] = append(sets.produces[ti], pi)
			}
		}
	}
	return sets
}

// Explore performs a bounded BFS of the net's reachable markings starting
// from its declared initial marking, firing every enabled transition in
// each discovered state. It stops, marking the result Truncated, once
// bound distinct states have been discovered — reachability analysis is
// only decidable in general for bounded nets, and a hard state cap keeps a
// malformed or unbounded input from looping forever (mirroring the
// translator's own size-budget posture, §1).
func Explore(net *petrinet.PetriNet, bound int) ExploreResult {
	sets := buildArcSets(net)

	initial := make(State, net.NumPlaces())
	for _, p := range net.Places() {
		initial[p.PlaceIndex()] = net.Marking(p)
	}

	seen := map[string]bool{initial.key(): true}
	states := []State{initial}
	queue := []State{initial}
	truncated := false

	for len(queue) > 0 {
		if len(states) >= bound {
			truncated = true
			break
		}
		cur := queue[0]
		queue = queue[1:]

		for ti := range sets.consumes {
			if !enabled(cur, sets.consumes[ti]) {
				continue
			}
			next := fire(cur, sets.consumes[ti], sets.produces[ti])
			k := next.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			states = append(states, next)
			queue = append(queue, next)
			if len(states) >= bound {
				truncated = true
				break
			}
		}
	}
	return ExploreResult{States: states, Truncated: truncated}
}

func enabled(s State, consumes []int) bool {
	for _, pi := range consumes {
		if s[pi] == 0 {
			return false
		}
	}
	return true
}

func fire(s State, consumes, produces []int) State {
	next := s.clone()
	for _, pi := range consumes {
		next[pi]--
	}
	for _, pi := range produces {
		next[pi]++
	}
	return next
}

// CoverabilityTarget names a marking the caller wants confirmed reachable:
// every listed place must carry at least one token simultaneously. Used by
// the dining-philosophers deadlock witness, which asks whether all five
// mutexes can be locked at once (§8, scenario 6).
type CoverabilityTarget struct {
	Name   string
	Places []petrinet.PlaceRef
}

// CheckCoverabilityTarget reports whether some explored state covers every
// place in target simultaneously.
func CheckCoverabilityTarget(states []State, target CoverabilityTarget) (bool, error) {
	for _, s := range states {
		all := true
		for _, p := range target.Places {
			if s.at(p) == 0 {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, fmt.Errorf("verify: target marking %q not covered by any explored state", target.Name)
}
