package petrinet

import (
	"fmt"
	"io"
)

// ExportDOT writes the net as a Graphviz DOT digraph: places as circles,
// transitions as boxes, arcs as edges, advisory names as labels.
func (n *PetriNet) ExportDOT(w io.Writer) error {
	if _, err := io.WriteString(w, "digraph petrinet {\n  rankdir=LR;\n"); err != nil {
		return fmt.Errorf("petrinet: writing dot header: %w", err)
	}

	for _, p := range n.Places() {
		label := n.PlaceName(p)
		if label == "" {
			label = placeID(p)
		}
		if _, err := fmt.Fprintf(w, "  %s [shape=circle, label=%q, xlabel=%q];\n",
			placeID(p), label, fmt.Sprintf("%d", n.Marking(p))); err != nil {
			return fmt.Errorf("petrinet: writing dot place: %w", err)
		}
	}

	for _, t := range n.Transitions() {
		label := n.TransitionName(t)
		if label == "" {
			label = transitionID(t)
		}
		if _, err := fmt.Fprintf(w, "  %s [shape=box, label=%q];\n", transitionID(t), label); err != nil {
			return fmt.Errorf("petrinet: writing dot transition: %w", err)
		}
	}

	for _, arc := range n.Arcs() {
		var src, dst string
		if arc.IsPT {
			src, dst = placeID(arc.FromPlace), transitionID(arc.ToTransition)
		} else {
			src, dst = transitionID(arc.FromTransition), placeID(arc.ToPlace)
		}
		if _, err := fmt.Fprintf(w, "  %s -> %s;\n", src, dst); err != nil {
			return fmt.Errorf("petrinet: writing dot arc: %w", err)
		}
	}

	if _, err := io.WriteString(w, "}\n"); err != nil {
		return fmt.Errorf("petrinet: writing dot trailer: %w", err)
	}
	return nil
}
