// Package verify checks the testable properties a translated net must
// satisfy: structural invariants that hold by construction but are worth
// asserting defensively, conservation laws over the slot/mutex subnets,
// and reachability properties that need a state-space search — whether
// program_end is reachable at all, and, for the dedicated deadlock/
// liveness scenarios, whether a specific target marking is reachable.
package verify

import (
	"fmt"

	"llir2pn/petrinet"
)

// CheckBipartite confirms every arc in the net connects a place to a
// transition or vice versa — true by construction (AddArcPT/AddArcTP are
// the only ways to create an arc, and each is typed to one direction), but
// checked explicitly so a future refactor that loosens that typing cannot
// silently violate it without a verify failure.
func CheckBipartite(net *petrinet.PetriNet) error {
	places := make(map[petrinet.PlaceRef]bool, net.NumPlaces())
	for _, p := range net.Places() {
		places[p] = true
	}
	transitions := make(map[petrinet.TransitionRef]bool, net.NumTransitions())
	for _, t := range net.Transitions() {
		transitions[t] = true
	}
	for _, arc := range net.Arcs() {
		if arc.IsPT {
			if !places[arc.FromPlace] || !transitions[arc.ToTransition] {
				return fmt.Errorf("verify: place->transition arc references a node outside the net")
			}
		} else {
			if !transitions[arc.FromTransition] || !places[arc.ToPlace] {
				return fmt.Errorf("verify: transition->place arc references a node outside the net")
			}
		}
	}
	return nil
}

// CheckNonNegativeMarking confirms every place's initial marking is
// representable as a plausible non-negative count. Markings are stored as
// uint64, so this can only fail if overflow wrapped a huge AddMarking
// call; the check exists so that failure mode produces a readable verify
// finding instead of a silently wrong reachable set.
func CheckNonNegativeMarking(net *petrinet.PetriNet) error {
	const implausible = 1 << 62
	for _, p := range net.Places() {
		if net.Marking(p) > implausible {
			return fmt.Errorf("verify: place marking %d is implausibly large, likely an unsigned overflow", net.Marking(p))
		}
	}
	return nil
}

// CheckConservation confirms that, in every given reachable state, each
// group's places together carry exactly one token — the invariant the
// slot and mutex subnets are built to hold: a local is uninitialised,
// live, or dead, never more or less than one at a time, and likewise for a
// mutex's four-place lifecycle (§8).
func CheckConservation(states []State, groups [][]petrinet.PlaceRef) error {
	for gi, g := range groups {
		for _, s := range states {
			total := uint64(0)
			for _, p := range g {
				total += s.at(p)
			}
			if total != 1 {
				return fmt.Errorf("verify: conservation violated in group %d: summed to %d tokens in a reachable state", gi, total)
			}
		}
	}
	return nil
}

// Group3 and Group4 adapt the translator's fixed-width slot/mutex group
// types to the slice shape CheckConservation expects.
func Group3(groups [][3]petrinet.PlaceRef) [][]petrinet.PlaceRef {
	out := make([][]petrinet.PlaceRef, len(groups))
	for i, g := range groups {
		out[i] = []petrinet.PlaceRef{g[0], g[1], g[2]}
	}
	return out
}

func Group4(groups [][4]petrinet.PlaceRef) [][]petrinet.PlaceRef {
	out := make([][]petrinet.PlaceRef, len(groups))
	for i, g := range groups {
		out[i] = []petrinet.PlaceRef{g[0], g[1], g[2], g[3]}
	}
	return out
}

// CheckReachable reports an error unless some explored state carries a
// token in target.
func CheckReachable(states []State, target petrinet.PlaceRef) error {
	for _, s := range states {
		if s.at(target) > 0 {
			return nil
		}
	}
	return fmt.Errorf("verify: target place carries no token in any explored state")
}

// CheckDeterministicExport re-renders net with the given export function
// twice and confirms the two renderings are byte-identical, per §8's
// determinism property (re-exporting the same net must not reorder
// anything: place/transition ids are assigned by creation order, not by
// map iteration).
func CheckDeterministicExport(export func() (string, error)) error {
	a, err := export()
	if err != nil {
		return err
	}
	b, err := export()
	if err != nil {
		return err
	}
	if a != b {
		return fmt.Errorf("verify: export is not deterministic across identical runs")
	}
	return nil
}

// Run executes the full suite of structural and conservation checks plus
// program_end reachability over a bounded exploration of net, producing
// one Report.
func Run(net *petrinet.PetriNet, programEnd petrinet.PlaceRef, slotGroups [][3]petrinet.PlaceRef, mutexGroups [][4]petrinet.PlaceRef, bound int) *Report {
	states := Explore(net, bound)
	r := &Report{StatesExplored: len(states.States), Truncated: states.Truncated}
	r.add("bipartite", CheckBipartite(net))
	r.add("non-negative marking", CheckNonNegativeMarking(net))
	r.add("slot conservation", CheckConservation(states.States, Group3(slotGroups)))
	r.add("mutex conservation", CheckConservation(states.States, Group4(mutexGroups)))
	r.add("program_end reachable", CheckReachable(states.States, programEnd))
	return r
}
