// Package funcbuilder implements the per-function translation state: the
// map of basic blocks, the frame's virtual memory, and the high-level
// terminator operations the translator drives (§3, §4.2).
package funcbuilder

import (
	"fmt"

	"llir2pn/llir"
	"llir2pn/petrinet"
	"llir2pn/vmem"
)

// Function owns one call frame's BasicBlocks and VirtualMemory. The start
// place and the return-flow place are both supplied by the caller: the
// start place is where control enters this frame, and the return-flow
// place receives a token when this frame completes (§3).
type Function struct {
	net  *petrinet.PetriNet
	Vmem *vmem.VirtualMemory

	ID FrameID

	blocks      map[llir.BlockID]*BasicBlock
	blockOrder  []llir.BlockID
	activeBlock llir.BlockID
	hasActive   bool
	usedStart   bool

	start        petrinet.PlaceRef
	returnPlace  petrinet.PlaceRef
	unwindAbort  petrinet.PlaceRef
}

// FrameID is an opaque per-call-site identity, distinct from llir.Local's
// frame-local numbering, used to disambiguate locals across re-entrant
// translation of the same function id at different call sites (§4.6, §9).
type FrameID int

// New creates a function frame. start is where control enters this frame
// (the caller's active-block-end, or the program's start place for the
// entry function); returnPlace receives a token when the frame completes;
// unwindAbort is the net-wide shared sink for resume/abort/panic.
func New(net *petrinet.PetriNet, id FrameID, start, returnPlace, unwindAbort petrinet.PlaceRef) *Function {
	return &Function{
		net:         net,
		Vmem:        vmem.New(net),
		ID:          id,
		blocks:      make(map[llir.BlockID]*BasicBlock),
		start:       start,
		returnPlace: returnPlace,
		unwindAbort: unwindAbort,
	}
}

// blockFor returns the BasicBlock for id, lazily creating it on first
// reference. The first block ever created reuses the frame's start place;
// every subsequent block allocates a fresh start place (§4.2).
func (f *Function) blockFor(id llir.BlockID) *BasicBlock {
	if b, ok := f.blocks[id]; ok {
		return b
	}
	var start petrinet.PlaceRef
	if !f.usedStart {
		start = f.start
		f.usedStart = true
	} else {
		start = f.net.AddPlace()
	}
	b := newBasicBlock(f.net, start)
	f.blocks[id] = b
	f.blockOrder = append(f.blockOrder, id)
	return b
}

// ActivateBlock creates the block on first reference (a no-op if it is
// already the active block) and marks it active.
func (f *Function) ActivateBlock(id llir.BlockID) {
	if f.hasActive && f.activeBlock == id {
		return
	}
	f.blockFor(id)
	f.activeBlock = id
	f.hasActive = true
}

// active returns the currently active block. Calling this before
// ActivateBlock has ever run is an internal-invariant violation.
func (f *Function) active() *BasicBlock {
	if !f.hasActive {
		panic("funcbuilder: internal invariant violated: active block not set")
	}
	return f.blocks[f.activeBlock]
}

// activeEnd returns the active block's end place, the control place
// terminator operations read from. Terminator operations always run after
// FinishBasicBlock, per the translator's visiting discipline (§4.4);
// statements read from the block's cursor instead.
func (f *Function) activeEnd() petrinet.PlaceRef {
	return f.active().End
}

// AddStatement appends one statement's transition to the active block per
// the lowering rules of §4.3. Mutex identity propagation for assignments
// (§4.6) happens before this call, driven by the translator; this method
// only wires data places.
func (f *Function) AddStatement(stmt llir.Statement) error {
	b := f.active()
	cursor := b.cursor()
	next := b.appendControlPoint()

	t := f.net.AddTransition()
	if err := f.net.AddArcPT(cursor, t); err != nil {
		return err
	}
	if err := f.net.AddArcTP(t, next); err != nil {
		return err
	}

	switch stmt.Kind {
	case llir.StmtStorageEnter:
		slot := f.Vmem.MustSlot(stmt.Place.Base)
		if !slot.HasUninitialised {
			return fmt.Errorf("funcbuilder: storage-enter on local %d with no uninitialised place", stmt.Place.Base)
		}
		if err := f.net.AddArcPT(slot.Uninitialised, t); err != nil {
			return err
		}
		return f.net.AddArcTP(t, slot.Live)

	case llir.StmtStorageLeave:
		slot := f.Vmem.MustSlot(stmt.Place.Base)
		if !slot.HasDead {
			return fmt.Errorf("funcbuilder: storage-leave on local %d with no dead place", stmt.Place.Base)
		}
		if err := f.net.AddArcPT(slot.Live, t); err != nil {
			return err
		}
		return f.net.AddArcTP(t, slot.Dead)

	case llir.StmtAssign:
		if err := f.net.ReadPair(f.Vmem.PlaceNode(stmt.Place), t); err != nil {
			return err
		}
		if stmt.Rvalue.IsNullary() {
			return f.net.ReadPair(f.Vmem.Constants(), t)
		}
		for _, op := range stmt.Rvalue.Operands() {
			if err := f.net.ReadPair(f.Vmem.DataPlace(op), t); err != nil {
				return err
			}
		}
		return nil

	case llir.StmtSetDiscriminant:
		return f.net.ReadPair(f.Vmem.PlaceNode(stmt.Place), t)

	case llir.StmtNop:
		return nil

	default:
		return fmt.Errorf("funcbuilder: unsupported statement kind %d (fatal: not produced by optimized LLIR in scope)", stmt.Kind)
	}
}

// FinishBasicBlock connects the active block's last statement to its end
// place, or inserts a NOP transition if the block had no statements.
func (f *Function) FinishBasicBlock() error {
	return f.active().Finish()
}

// StorageLeaveWithUnlock behaves like AddStatement on a storage-leave
// statement, except the same transition additionally consumes the
// mutexLocked token and produces a mutexUnlocked token. The translator
// uses this when a guard local's storage-leave is the point at which the
// mutex it was linked to becomes available again (§4.6): the guard's
// drop and the mutex's unlock are the same event, not two separate ones.
func (f *Function) StorageLeaveWithUnlock(local llir.Local, mutexLocked, mutexUnlocked petrinet.PlaceRef) error {
	slot := f.Vmem.MustSlot(local)
	if !slot.HasDead {
		return fmt.Errorf("funcbuilder: storage-leave on local %d with no dead place", local)
	}
	b := f.active()
	cursor := b.cursor()
	next := b.appendControlPoint()

	t := f.net.NamedTransition("storage_leave_unlock")
	if err := f.net.AddArcPT(cursor, t); err != nil {
		return err
	}
	if err := f.net.AddArcTP(t, next); err != nil {
		return err
	}
	if err := f.net.AddArcPT(slot.Live, t); err != nil {
		return err
	}
	if err := f.net.AddArcTP(t, slot.Dead); err != nil {
		return err
	}
	if err := f.net.AddArcPT(mutexLocked, t); err != nil {
		return err
	}
	return f.net.AddArcTP(t, mutexUnlocked)
}

// Goto adds a transition from the active block's end to target's start,
// lazily creating target if unseen.
func (f *Function) Goto(target llir.BlockID) error {
	to := f.blockFor(target)
	t := f.net.NamedTransition("goto")
	if err := f.net.AddArcPT(f.activeEnd(), t); err != nil {
		return err
	}
	return f.net.AddArcTP(t, to.Start)
}

// Switch adds one labelled transition per target from the active block's
// end to that target's start. Duplicate targets each get their own
// transition, preserving multiplicity in the over-approximation (§4.2).
func (f *Function) Switch(targets []llir.BlockID) error {
	end := f.activeEnd()
	for i, target := range targets {
		to := f.blockFor(target)
		t := f.net.NamedTransition(fmt.Sprintf("switch[%d]", i))
		if err := f.net.AddArcPT(end, t); err != nil {
			return err
		}
		if err := f.net.AddArcTP(t, to.Start); err != nil {
			return err
		}
	}
	return nil
}

// Return adds a transition from the active block's end to the frame's
// return-flow place.
func (f *Function) Return() error {
	t := f.net.NamedTransition("return")
	if err := f.net.AddArcPT(f.activeEnd(), t); err != nil {
		return err
	}
	return f.net.AddArcTP(t, f.returnPlace)
}

// Drop adds a transition from the active block's end to target's start,
// and, if unwind is present, a second transition to unwind's start.
func (f *Function) Drop(target llir.BlockID, hasUnwind bool, unwind llir.BlockID) error {
	end := f.activeEnd()
	to := f.blockFor(target)
	t := f.net.NamedTransition("drop")
	if err := f.net.AddArcPT(end, t); err != nil {
		return err
	}
	if err := f.net.AddArcTP(t, to.Start); err != nil {
		return err
	}
	if hasUnwind {
		u := f.blockFor(unwind)
		tu := f.net.NamedTransition("drop_unwind")
		if err := f.net.AddArcPT(end, tu); err != nil {
			return err
		}
		return f.net.AddArcTP(tu, u.Start)
	}
	return nil
}

// Assert behaves like Drop, plus read arcs on the condition operand's data
// place and the shared constants place.
func (f *Function) Assert(cond llir.Operand, target llir.BlockID, hasCleanup bool, cleanup llir.BlockID) error {
	end := f.activeEnd()
	to := f.blockFor(target)
	t := f.net.NamedTransition("assert")
	if err := f.net.AddArcPT(end, t); err != nil {
		return err
	}
	if err := f.net.AddArcTP(t, to.Start); err != nil {
		return err
	}
	if err := f.net.ReadPair(f.Vmem.DataPlace(cond), t); err != nil {
		return err
	}
	if err := f.net.ReadPair(f.Vmem.Constants(), t); err != nil {
		return err
	}
	if hasCleanup {
		u := f.blockFor(cleanup)
		tu := f.net.NamedTransition("assert_cleanup")
		if err := f.net.AddArcPT(end, tu); err != nil {
			return err
		}
		return f.net.AddArcTP(tu, u.Start)
	}
	return nil
}

// Resume adds a transition from the active block's end to the shared
// unwind_abort place.
func (f *Function) Resume() error { return f.toUnwindAbort("resume") }

// Abort adds a transition from the active block's end to the shared
// unwind_abort place.
func (f *Function) Abort() error { return f.toUnwindAbort("abort") }

// Panic adds a transition from the active block's end to the shared
// unwind_abort place. It takes no panic-sink block: panics are
// over-approximated as diverging straight to the shared sink, matching
// resume/abort.
func (f *Function) Panic() error { return f.toUnwindAbort("panic") }

func (f *Function) toUnwindAbort(label string) error {
	t := f.net.NamedTransition(label)
	if err := f.net.AddArcPT(f.activeEnd(), t); err != nil {
		return err
	}
	return f.net.AddArcTP(t, f.unwindAbort)
}

// ActiveBlockEnd exposes the active block's end place for callers (the
// translator) that need to wire call-terminator subnets directly onto the
// current control point — e.g. call_foreign and the recognised-primitive
// builders in §4.5, which are not expressible purely in terms of the
// operations above.
func (f *Function) ActiveBlockEnd() petrinet.PlaceRef { return f.activeEnd() }

// BlockStart returns (lazily creating) the start place of an arbitrary
// block id in this frame — used by the translator to resolve a call's
// destination block into the callee's return-flow place.
func (f *Function) BlockStart(id llir.BlockID) petrinet.PlaceRef {
	return f.blockFor(id).Start
}

// UnwindAbort exposes the frame's shared unwind_abort place.
func (f *Function) UnwindAbort() petrinet.PlaceRef { return f.unwindAbort }
