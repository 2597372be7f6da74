package petrinet

import (
	"fmt"
	"io"
	"strings"
)

func lolaPlaceName(n *PetriNet, p PlaceRef) string {
	if name := n.PlaceName(p); name != "" {
		return sanitizeLolaIdent(name)
	}
	return placeID(p)
}

func lolaTransitionName(n *PetriNet, t TransitionRef) string {
	if name := n.TransitionName(t); name != "" {
		return sanitizeLolaIdent(name)
	}
	return transitionID(t)
}

// sanitizeLolaIdent replaces characters LoLA identifiers cannot contain.
// Names are advisory in the net model, so collisions after sanitisation are
// acceptable (LoLA does not require global name uniqueness beyond what the
// declaration list enforces, and duplicate advisory names are permitted by
// the net model itself).
func sanitizeLolaIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ExportLoLA writes the net as LoLA textual input: a PLACE declaration, a
// MARKING declaration, and one TRANSITION block per transition listing its
// CONSUME and PRODUCE place sets.
func (n *PetriNet) ExportLoLA(w io.Writer) error {
	places := n.Places()
	placeNames := make([]string, len(places))
	for i, p := range places {
		placeNames[i] = lolaPlaceName(n, p)
	}

	if _, err := fmt.Fprintf(w, "PLACE\n  %s;\n\n", strings.Join(placeNames, ", ")); err != nil {
		return fmt.Errorf("petrinet: writing lola places: %w", err)
	}

	var marked []string
	for _, p := range places {
		if m := n.Marking(p); m > 0 {
			marked = append(marked, fmt.Sprintf("%s: %d", lolaPlaceName(n, p), m))
		}
	}
	if _, err := fmt.Fprintf(w, "MARKING\n  %s;\n\n", strings.Join(marked, ", ")); err != nil {
		return fmt.Errorf("petrinet: writing lola marking: %w", err)
	}

	for _, t := range n.Transitions() {
		consume := n.consumedBy(t)
		produce := n.producedBy(t)
		if _, err := fmt.Fprintf(w, "TRANSITION %s\n  CONSUME %s;\n  PRODUCE %s;\n\n",
			lolaTransitionName(n, t), formatLolaWeights(n, consume), formatLolaWeights(n, produce)); err != nil {
			return fmt.Errorf("petrinet: writing lola transition %s: %w", lolaTransitionName(n, t), err)
		}
	}
	return nil
}

// consumedBy returns every place that has an arc into t, counting
// multiplicity, in deterministic place-creation order.
func (n *PetriNet) consumedBy(t TransitionRef) []PlaceRef {
	var out []PlaceRef
	for _, p := range n.Places() {
		for _, target := range n.TransitionsFrom(p) {
			if target == t {
				out = append(out, p)
			}
		}
	}
	return out
}

// producedBy returns every place t has an arc to, counting multiplicity.
func (n *PetriNet) producedBy(t TransitionRef) []PlaceRef {
	return n.PlacesFrom(t)
}

func formatLolaWeights(n *PetriNet, places []PlaceRef) string {
	counts := map[PlaceRef]int{}
	var order []PlaceRef
	for _, p := range places {
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++
	}
	parts := make([]string, 0, len(order))
	for _, p := range order {
		c := counts[p]
		if c == 1 {
			parts = append(parts, lolaPlaceName(n, p))
		} else {
			parts = append(parts, fmt.Sprintf("%d * %s", c, lolaPlaceName(n, p)))
		}
	}
	return strings.Join(parts, ", ")
}
