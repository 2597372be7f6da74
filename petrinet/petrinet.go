// Package petrinet implements the in-memory Petri net data structure that
// the translator builds and the exporters read.
//
// A net is a bipartite directed graph of Places and Transitions connected
// by Arcs. Places and Transitions are identified by stable, opaque
// references (indices into append-only vectors) rather than by pointer, so
// that the net can be passed by value around the translator's call stack
// without invalidating references held by callers further down the stack.
package petrinet

import "fmt"

// PlaceRef is a stable reference to a place. The zero value refers to the
// first place created in a net, and is rejected only by a net that has no
// places yet.
type PlaceRef struct {
	index int
}

// TransitionRef is a stable reference to a transition. The zero value
// refers to the first transition created in a net, and is rejected only by
// a net that has no transitions yet.
type TransitionRef struct {
	index int
}

type place struct {
	name    string
	marking uint64
}

type transition struct {
	name string
}

// arc is stored directionally; Net keeps two adjacency tables (place->
// transition and transition->place) so export can walk either direction
// without scanning.
type PetriNet struct {
	places      []place
	transitions []transition

	// pt[p] holds every transition index p has an arc to.
	pt [][]int
	// tp[t] holds every place index t has an arc to.
	tp [][]int
}

// New returns an empty net.
func New() *PetriNet {
	return &PetriNet{}
}

// AddPlace appends a new, unnamed place with zero initial marking and
// returns a stable reference to it.
func (n *PetriNet) AddPlace() PlaceRef {
	n.places = append(n.places, place{})
	n.pt = append(n.pt, nil)
	return PlaceRef{index: len(n.places) - 1}
}

// AddTransition appends a new, unnamed transition and returns a stable
// reference to it.
func (n *PetriNet) AddTransition() TransitionRef {
	n.transitions = append(n.transitions, transition{})
	n.tp = append(n.tp, nil)
	return TransitionRef{index: len(n.transitions) - 1}
}

// ErrBipartitionViolation is returned when both arc endpoints are the same
// node kind.
var ErrBipartitionViolation = fmt.Errorf("petrinet: both arc endpoints are the same node kind")

// ErrUnknownPlace is returned when a PlaceRef does not belong to this net.
var ErrUnknownPlace = fmt.Errorf("petrinet: unknown place reference")

// ErrUnknownTransition is returned when a TransitionRef does not belong to
// this net.
var ErrUnknownTransition = fmt.Errorf("petrinet: unknown transition reference")

func (n *PetriNet) checkPlace(p PlaceRef) error {
	if p.index < 0 || p.index >= len(n.places) {
		return ErrUnknownPlace
	}
	return nil
}

func (n *PetriNet) checkTransition(t TransitionRef) error {
	if t.index < 0 || t.index >= len(n.transitions) {
		return ErrUnknownTransition
	}
	return nil
}

// AddArcPT adds an arc from a place to a transition. Duplicate arcs are
// permitted and behave identically; the translator never relies on arc
// multiplicity.
func (n *PetriNet) AddArcPT(from PlaceRef, to TransitionRef) error {
	if err := n.checkPlace(from); err != nil {
		return err
	}
	if err := n.checkTransition(to); err != nil {
		return err
	}
	n.pt[from.index] = append(n.pt[from.index], to.index)
	return nil
}

// AddArcTP adds an arc from a transition to a place.
func (n *PetriNet) AddArcTP(from TransitionRef, to PlaceRef) error {
	if err := n.checkTransition(from); err != nil {
		return err
	}
	if err := n.checkPlace(to); err != nil {
		return err
	}
	n.tp[from.index] = append(n.tp[from.index], to.index)
	return nil
}

// SetPlaceName sets a place's advisory display name.
func (n *PetriNet) SetPlaceName(p PlaceRef, name string) error {
	if err := n.checkPlace(p); err != nil {
		return err
	}
	n.places[p.index].name = name
	return nil
}

// SetTransitionName sets a transition's advisory display name.
func (n *PetriNet) SetTransitionName(t TransitionRef, name string) error {
	if err := n.checkTransition(t); err != nil {
		return err
	}
	n.transitions[t.index].name = name
	return nil
}

// SetMarking sets a place's initial marking. tokens must be non-negative;
// it is unsigned so this is enforced by the type system.
func (n *PetriNet) SetMarking(p PlaceRef, tokens uint64) error {
	if err := n.checkPlace(p); err != nil {
		return err
	}
	n.places[p.index].marking = tokens
	return nil
}

// AddMarking increments a place's initial marking by delta.
func (n *PetriNet) AddMarking(p PlaceRef, delta uint64) error {
	if err := n.checkPlace(p); err != nil {
		return err
	}
	n.places[p.index].marking += delta
	return nil
}

// PlaceName returns a place's advisory name, or "" if unset.
func (n *PetriNet) PlaceName(p PlaceRef) string {
	if err := n.checkPlace(p); err != nil {
		return ""
	}
	return n.places[p.index].name
}

// TransitionName returns a transition's advisory name, or "" if unset.
func (n *PetriNet) TransitionName(t TransitionRef) string {
	if err := n.checkTransition(t); err != nil {
		return ""
	}
	return n.transitions[t.index].name
}

// Marking returns a place's initial marking.
func (n *PetriNet) Marking(p PlaceRef) uint64 {
	if err := n.checkPlace(p); err != nil {
		return 0
	}
	return n.places[p.index].marking
}

// NumPlaces returns the number of places in the net.
func (n *PetriNet) NumPlaces() int { return len(n.places) }

// NumTransitions returns the number of transitions in the net.
func (n *PetriNet) NumTransitions() int { return len(n.transitions) }

// Places returns every place reference, in creation order.
func (n *PetriNet) Places() []PlaceRef {
	refs := make([]PlaceRef, len(n.places))
	for i := range n.places {
		refs[i] = PlaceRef{index: i}
	}
	return refs
}

// Transitions returns every transition reference, in creation order.
func (n *PetriNet) Transitions() []TransitionRef {
	refs := make([]TransitionRef, len(n.transitions))
	for i := range n.transitions {
		refs[i] = TransitionRef{index: i}
	}
	return refs
}

// PlaceIndex exposes the creation-order index backing a PlaceRef, for
// exporters that need a stable, deterministic node id.
func (p PlaceRef) PlaceIndex() int { return p.index }

// TransitionIndex exposes the creation-order index backing a
// TransitionRef, for exporters that need a stable, deterministic node id.
func (t TransitionRef) TransitionIndex() int { return t.index }

// TransitionsFrom returns every transition a place has an arc to, in
// the order the arcs were added.
func (n *PetriNet) TransitionsFrom(p PlaceRef) []TransitionRef {
	out := make([]TransitionRef, 0, len(n.pt[p.index]))
	for _, idx := range n.pt[p.index] {
		out = append(out, TransitionRef{index: idx})
	}
	return out
}

// PlacesFrom returns every place a transition has an arc to, in the order
// the arcs were added.
func (n *PetriNet) PlacesFrom(t TransitionRef) []PlaceRef {
	out := make([]PlaceRef, 0, len(n.tp[t.index]))
	for _, idx := range n.tp[t.index] {
		out = append(out, PlaceRef{index: idx})
	}
	return out
}

// Arc is a (source, target) pair used by exporters and verification; Kind
// distinguishes PT from TP arcs.
type Arc struct {
	FromPlace      PlaceRef
	ToTransition   TransitionRef
	FromTransition TransitionRef
	ToPlace        PlaceRef
	IsPT           bool
}

// Arcs returns every arc in the net, ordered by source node creation index
// and then by the order arcs were added from that source — this is the
// canonical, deterministic order the exporters rely on.
func (n *PetriNet) Arcs() []Arc {
	var arcs []Arc
	for pi, targets := range n.pt {
		for _, ti := range targets {
			arcs = append(arcs, Arc{
				FromPlace:    PlaceRef{index: pi},
				ToTransition: TransitionRef{index: ti},
				IsPT:         true,
			})
		}
	}
	for ti, targets := range n.tp {
		for _, pi := range targets {
			arcs = append(arcs, Arc{
				FromTransition: TransitionRef{index: ti},
				ToPlace:        PlaceRef{index: pi},
				IsPT:           false,
			})
		}
	}
	return arcs
}
