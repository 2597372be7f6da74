// Package vmem implements the per-function virtual memory: the mapping
// from LLIR storage slots (locals, promoted constants, the shared
// constants place) to the Petri-net places that model their lifecycle.
package vmem

import (
	"fmt"

	"llir2pn/llir"
	"llir2pn/petrinet"
)

// Slot is a local's storage lifecycle: (uninitialised?, live, dead?).
// Promoted constants and literal constants are not Slots; VirtualMemory
// keeps each of them as a single place (see Promoted and Constants). The
// lifecycle places are optional exactly when cross-frame data flow lets a
// callee slot carry the caller's live-place directly (function parameters
// and the return slot).
type Slot struct {
	Uninitialised    petrinet.PlaceRef
	HasUninitialised bool
	Live             petrinet.PlaceRef
	Dead             petrinet.PlaceRef
	HasDead          bool
}

// LiveOnly builds a Slot that only carries a live place — used for
// parameters, the return slot, and anonymous constant locals that alias a
// caller frame's data node.
func LiveOnly(live petrinet.PlaceRef) Slot {
	return Slot{Live: live}
}

// VirtualMemory is one function frame's slot table.
type VirtualMemory struct {
	net          *petrinet.PetriNet
	slots        map[llir.Local]Slot
	regularOrder []llir.Local
	promoted     map[int]petrinet.PlaceRef
	constants    petrinet.PlaceRef
	hasConstants bool
}

// New creates an empty virtual memory bound to net. The shared constants
// place is allocated lazily on first use so that functions with no
// constant operands do not pay for an unused place.
func New(net *petrinet.PetriNet) *VirtualMemory {
	return &VirtualMemory{
		net:      net,
		slots:    make(map[llir.Local]Slot),
		promoted: make(map[int]petrinet.PlaceRef),
	}
}

// DeclareRegularLocal creates the (uninitialised, live, dead) triple for a
// regular local and gives the uninitialised place its initial token, per
// the data model's initial-marking rule.
func (v *VirtualMemory) DeclareRegularLocal(l llir.Local) (Slot, error) {
	if _, exists := v.slots[l]; exists {
		return Slot{}, fmt.Errorf("vmem: local %d already declared", l)
	}
	uninit := v.net.NamedPlace(fmt.Sprintf("local%d.uninitialised", l))
	live := v.net.NamedPlace(fmt.Sprintf("local%d.live", l))
	dead := v.net.NamedPlace(fmt.Sprintf("local%d.dead", l))
	if err := v.net.SetMarking(uninit, 1); err != nil {
		return Slot{}, err
	}
	slot := Slot{
		Uninitialised: uninit, HasUninitialised: true,
		Live: live,
		Dead: dead, HasDead: true,
	}
	v.slots[l] = slot
	v.regularOrder = append(v.regularOrder, l)
	return slot, nil
}

// RegularSlotGroups returns the (uninitialised, live, dead) triple for
// every regular local declared on this frame, in declaration order. A
// reachable marking always carries exactly one token across each triple
// (§8's slot conservation property) — cross-frame locals are excluded
// since their token is owned by the caller's frame, not this one.
func (v *VirtualMemory) RegularSlotGroups() [][3]petrinet.PlaceRef {
	groups := make([][3]petrinet.PlaceRef, 0, len(v.regularOrder))
	for _, l := range v.regularOrder {
		s := v.slots[l]
		groups = append(groups, [3]petrinet.PlaceRef{s.Uninitialised, s.Live, s.Dead})
	}
	return groups
}

// DeclareCrossFrameLocal registers a local (a parameter or the return
// slot) whose live place is supplied by the caller frame, bypassing the
// uninitialised/dead places entirely (§9: "cross-frame data flow").
func (v *VirtualMemory) DeclareCrossFrameLocal(l llir.Local, live petrinet.PlaceRef) Slot {
	slot := LiveOnly(live)
	v.slots[l] = slot
	return slot
}

// Slot looks up a local's slot.
func (v *VirtualMemory) Slot(l llir.Local) (Slot, bool) {
	s, ok := v.slots[l]
	return s, ok
}

// MustSlot looks up a local's slot, panicking (an internal-invariant
// failure, per §7.1) if it was never declared — the translator always
// declares every local before referencing it.
func (v *VirtualMemory) MustSlot(l llir.Local) Slot {
	s, ok := v.slots[l]
	if !ok {
		panic(fmt.Sprintf("vmem: internal invariant violated: local %d referenced before declaration", l))
	}
	return s
}

// Promoted returns (creating lazily, on first reference) the single place
// shared by one promoted-constant index.
func (v *VirtualMemory) Promoted(index int) petrinet.PlaceRef {
	if p, ok := v.promoted[index]; ok {
		return p
	}
	p := v.net.NamedPlace(fmt.Sprintf("promoted%d", index))
	v.promoted[index] = p
	return p
}

// Constants returns (creating lazily, on first reference) the one place
// shared by every literal constant in this frame. The place is created
// holding one token, so the read-pairs on it never block a transition.
func (v *VirtualMemory) Constants() petrinet.PlaceRef {
	if v.hasConstants {
		return v.constants
	}
	v.constants = v.net.NamedPlace("constants")
	_ = v.net.SetMarking(v.constants, 1)
	v.hasConstants = true
	return v.constants
}

// DataPlace maps an operand to the data node §4.3 says it touches: the
// shared constants place for a constant operand, otherwise the base
// local's live place. Place projections are stripped to their base local
// (§4.3, §9). Operands never resolve to a promoted constant's place.
func (v *VirtualMemory) DataPlace(op llir.Operand) petrinet.PlaceRef {
	switch op.Kind {
	case llir.OperandConstant:
		return v.Constants()
	case llir.OperandCopy, llir.OperandMove:
		return v.PlaceNode(op.Place)
	default:
		panic(fmt.Sprintf("vmem: internal invariant violated: unknown operand kind %d", op.Kind))
	}
}

// PlaceNode maps a Place (base local + projections) to its data node,
// stripping projections to the base local per the §9 fallback rule.
func (v *VirtualMemory) PlaceNode(p llir.Place) petrinet.PlaceRef {
	return v.MustSlot(p.Base).Live
}
