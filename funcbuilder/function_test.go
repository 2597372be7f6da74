package funcbuilder_test

import (
	"testing"

	"llir2pn/funcbuilder"
	"llir2pn/llir"
	"llir2pn/petrinet"
)

func newFrame(net *petrinet.PetriNet) (*funcbuilder.Function, petrinet.PlaceRef, petrinet.PlaceRef, petrinet.PlaceRef) {
	start := net.NamedPlace("frame_start")
	ret := net.NamedPlace("frame_return")
	unwind := net.NamedPlace("unwind_abort")
	fn := funcbuilder.New(net, funcbuilder.FrameID(0), start, ret, unwind)
	return fn, start, ret, unwind
}

func TestFirstBlockReusesFrameStart(t *testing.T) {
	net := petrinet.New()
	fn, start, _, _ := newFrame(net)

	fn.ActivateBlock(llir.BlockID(0))
	if fn.BlockStart(llir.BlockID(0)) != start {
		t.Fatalf("expected the first block created to reuse the frame's start place")
	}
}

func TestSubsequentBlocksGetFreshStartPlaces(t *testing.T) {
	net := petrinet.New()
	fn, start, _, _ := newFrame(net)

	fn.ActivateBlock(llir.BlockID(0))
	s1 := fn.BlockStart(llir.BlockID(1))
	if s1 == start {
		t.Fatalf("expected a second block to get its own start place, not the frame's start")
	}
}

func TestStorageEnterThenLeaveRoundTrip(t *testing.T) {
	net := petrinet.New()
	fn, _, _, _ := newFrame(net)
	fn.Vmem.DeclareRegularLocal(llir.Local(0))

	fn.ActivateBlock(llir.BlockID(0))
	if err := fn.AddStatement(llir.Statement{Kind: llir.StmtStorageEnter, Place: llir.Place{Base: llir.Local(0)}}); err != nil {
		t.Fatalf("storage-enter: %v", err)
	}
	if err := fn.AddStatement(llir.Statement{Kind: llir.StmtStorageLeave, Place: llir.Place{Base: llir.Local(0)}}); err != nil {
		t.Fatalf("storage-leave: %v", err)
	}
	if err := fn.FinishBasicBlock(); err != nil {
		t.Fatalf("finish: %v", err)
	}
}

func TestStorageEnterWithoutDeclarationFails(t *testing.T) {
	net := petrinet.New()
	fn, _, _, _ := newFrame(net)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected referencing an undeclared local to panic (internal invariant)")
		}
	}()
	fn.ActivateBlock(llir.BlockID(0))
	_ = fn.AddStatement(llir.Statement{Kind: llir.StmtStorageEnter, Place: llir.Place{Base: llir.Local(9)}})
}

func TestEmptyBlockGetsNopOnFinish(t *testing.T) {
	net := petrinet.New()
	fn, _, _, _ := newFrame(net)

	fn.ActivateBlock(llir.BlockID(0))
	if err := fn.FinishBasicBlock(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := fn.Return(); err != nil {
		t.Fatalf("return: %v", err)
	}
}

func TestReturnWiresActiveEndToReturnPlace(t *testing.T) {
	net := petrinet.New()
	fn, _, ret, _ := newFrame(net)

	fn.ActivateBlock(llir.BlockID(0))
	if err := fn.FinishBasicBlock(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := fn.Return(); err != nil {
		t.Fatalf("return: %v", err)
	}

	found := false
	for _, arc := range net.Arcs() {
		if !arc.IsPT && arc.ToPlace == ret {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected some transition to produce into the frame's return place")
	}
}

func TestSwitchPreservesDuplicateTargets(t *testing.T) {
	net := petrinet.New()
	fn, _, _, _ := newFrame(net)

	fn.ActivateBlock(llir.BlockID(0))
	if err := fn.FinishBasicBlock(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	before := net.NumTransitions()
	if err := fn.Switch([]llir.BlockID{1, 1, 2}); err != nil {
		t.Fatalf("switch: %v", err)
	}
	after := net.NumTransitions()
	if after-before != 3 {
		t.Fatalf("expected one transition per switch target including duplicates, got %d new transitions", after-before)
	}
}

func TestResumeAbortPanicAllRouteToUnwindAbort(t *testing.T) {
	net := petrinet.New()
	fn, _, _, unwind := newFrame(net)

	fn.ActivateBlock(llir.BlockID(0))
	if err := fn.FinishBasicBlock(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := fn.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := fn.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if err := fn.Panic(); err != nil {
		t.Fatalf("panic: %v", err)
	}

	found := 0
	for _, arc := range net.Arcs() {
		if !arc.IsPT && arc.ToPlace == unwind {
			found++
		}
	}
	if found != 3 {
		t.Fatalf("expected resume, abort and panic each to wire a transition into the shared unwind_abort place, got %d", found)
	}
}

func TestStorageLeaveWithUnlockConsumesLockedProducesUnlocked(t *testing.T) {
	net := petrinet.New()
	fn, _, _, _ := newFrame(net)
	fn.Vmem.DeclareRegularLocal(llir.Local(0))

	locked := net.NamedPlace("mutex0.locked")
	unlocked := net.NamedPlace("mutex0.unlocked")
	if err := net.SetMarking(locked, 1); err != nil {
		t.Fatalf("set marking: %v", err)
	}

	fn.ActivateBlock(llir.BlockID(0))
	if err := fn.AddStatement(llir.Statement{Kind: llir.StmtStorageEnter, Place: llir.Place{Base: llir.Local(0)}}); err != nil {
		t.Fatalf("storage-enter: %v", err)
	}
	if err := fn.StorageLeaveWithUnlock(llir.Local(0), locked, unlocked); err != nil {
		t.Fatalf("storage-leave-with-unlock: %v", err)
	}

	consumesLocked, producesUnlocked := false, false
	for _, arc := range net.Arcs() {
		if arc.IsPT && arc.FromPlace == locked {
			consumesLocked = true
		}
		if !arc.IsPT && arc.ToPlace == unlocked {
			producesUnlocked = true
		}
	}
	if !consumesLocked || !producesUnlocked {
		t.Fatalf("expected the combined transition to consume locked and produce unlocked")
	}
}
