package petrinet

// ReadPair adds the two arcs that model a read-preserving touch of a data
// place by a transition: tokens already resting in the place are neither
// consumed nor produced, so every "read" and every "write" of a slot is
// represented identically — a write-without-consume, not a write that
// clears the place first (see the per-statement lowering rules).
func (n *PetriNet) ReadPair(p PlaceRef, t TransitionRef) error {
	if err := n.AddArcPT(p, t); err != nil {
		return err
	}
	return n.AddArcTP(t, p)
}

// Chain links a sequence of places through freshly created transitions,
// one transition per adjacent pair, and returns the created transitions.
// It mirrors the teacher's fluent Builder.Chain helper for wiring a linear
// control-flow sub-sequence (e.g. a basic block's statement list).
func (n *PetriNet) Chain(places ...PlaceRef) ([]TransitionRef, error) {
	if len(places) < 2 {
		return nil, nil
	}
	transitions := make([]TransitionRef, 0, len(places)-1)
	for i := 0; i+1 < len(places); i++ {
		t := n.AddTransition()
		if err := n.AddArcPT(places[i], t); err != nil {
			return nil, err
		}
		if err := n.AddArcTP(t, places[i+1]); err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	return transitions, nil
}

// NamedPlace creates a place and immediately names it, the common case
// during translation where every place is created for a specific,
// already-known purpose.
func (n *PetriNet) NamedPlace(name string) PlaceRef {
	p := n.AddPlace()
	_ = n.SetPlaceName(p, name)
	return p
}

// NamedTransition creates a transition and immediately names it.
func (n *PetriNet) NamedTransition(name string) TransitionRef {
	t := n.AddTransition()
	_ = n.SetTransitionName(t, name)
	return t
}
