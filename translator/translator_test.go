package translator_test

import (
	"testing"

	"llir2pn/llir"
	"llir2pn/translator"
	"llir2pn/verify"
)

func TestUnknownEntryFunctionIsRejected(t *testing.T) {
	program := llir.Program{Entry: "missing", Functions: map[llir.FunctionID]llir.Function{}}
	if _, err := translator.Translate(program, nil); err == nil {
		t.Fatalf("expected translating a program with an unresolvable entry to fail")
	}
}

func TestRegularCallRecursesWithoutCopyTransition(t *testing.T) {
	callee := llir.Function{
		ID: "callee", Name: "callee", EntryBlock: 0,
		Locals: []llir.LocalDecl{{Index: 0, IsParamOrReturn: true}},
		Blocks: []llir.BasicBlock{
			{ID: 0, Terminator: llir.Terminator{Kind: llir.TermReturn}},
		},
	}
	local1 := llir.Local(1)
	main := llir.Function{
		ID: "main", Name: "main", EntryBlock: 0,
		Locals: []llir.LocalDecl{{Index: 0, IsParamOrReturn: true}, {Index: local1}},
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(local1)},
				},
				Terminator: llir.Terminator{
					Kind:   llir.TermCall,
					Callee: "callee",
					Dest:   &llir.CallDest{Place: llir.BasePlace(local1), Block: 1},
				},
			},
			{ID: 1, Terminator: llir.Terminator{Kind: llir.TermReturn}},
		},
	}
	program := llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main, "callee": callee}}

	res, err := translator.Translate(program, nil)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	states := verify.Explore(res.Net, 10000)
	if err := verify.CheckReachable(states.States, res.ProgramEnd); err != nil {
		t.Fatalf("expected program_end reachable through the callee's return: %v", err)
	}
}

func TestForeignCallPassesThroughToDestination(t *testing.T) {
	local1, local2 := llir.Local(1), llir.Local(2)
	main := llir.Function{
		ID: "main", Name: "main", EntryBlock: 0,
		Locals: []llir.LocalDecl{{Index: 0, IsParamOrReturn: true}, {Index: local1}, {Index: local2}},
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(local1)},
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(local2)},
				},
				Terminator: llir.Terminator{
					Kind:   llir.TermCall,
					Callee: "external::opaque_fn",
					Args:   []llir.CallArg{{Operand: llir.CopyOf(llir.BasePlace(local1))}},
					Dest:   &llir.CallDest{Place: llir.BasePlace(local2), Block: 1},
				},
			},
			{ID: 1, Terminator: llir.Terminator{Kind: llir.TermReturn}},
		},
	}
	program := llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}

	res, err := translator.Translate(program, nil)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	states := verify.Explore(res.Net, 10000)
	if err := verify.CheckReachable(states.States, res.ProgramEnd); err != nil {
		t.Fatalf("expected program_end reachable through a foreign call's passthrough: %v", err)
	}
}

func TestPanicFamilyCalleeDivertsToUnwindAbort(t *testing.T) {
	main := llir.Function{
		ID: "main", Name: "main", EntryBlock: 0,
		Locals: []llir.LocalDecl{{Index: 0, IsParamOrReturn: true}},
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Terminator: llir.Terminator{
					Kind:   llir.TermCall,
					Callee: "core::panicking::panic",
					Dest:   &llir.CallDest{Place: llir.BasePlace(0), Block: 1},
				},
			},
			{ID: 1, Terminator: llir.Terminator{Kind: llir.TermReturn}},
		},
	}
	program := llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}

	res, err := translator.Translate(program, nil)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	states := verify.Explore(res.Net, 10000)
	if err := verify.CheckReachable(states.States, res.UnwindAbort); err != nil {
		t.Fatalf("expected unwind_abort reachable through a panic-family callee: %v", err)
	}
	if err := verify.CheckReachable(states.States, res.ProgramEnd); err == nil {
		t.Fatalf("expected program_end unreachable: the panic-family call diverts before ever reaching block 1")
	}
}

func TestIndirectCalleeIsFatal(t *testing.T) {
	main := llir.Function{
		ID: "main", Name: "main", EntryBlock: 0,
		Locals: []llir.LocalDecl{{Index: 0, IsParamOrReturn: true}},
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Terminator: llir.Terminator{
					Kind:             llir.TermCall,
					IsIndirectCallee: true,
					CalleeOperand:    llir.CopyOf(llir.BasePlace(llir.Local(1))),
					Dest:             &llir.CallDest{Place: llir.BasePlace(0), Block: 1},
				},
			},
			{ID: 1, Terminator: llir.Terminator{Kind: llir.TermReturn}},
		},
	}
	program := llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}

	if _, err := translator.Translate(program, nil); err == nil {
		t.Fatalf("expected an indirect (function-pointer) call to be rejected as a fatal error")
	}
}

func TestUnrecognisedDivergingForeignCalleeIsFatal(t *testing.T) {
	main := llir.Function{
		ID: "main", Name: "main", EntryBlock: 0,
		Locals: []llir.LocalDecl{{Index: 0, IsParamOrReturn: true}},
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Terminator: llir.Terminator{
					Kind:   llir.TermCall,
					Callee: "some::unrecognised::diverging::fn",
				},
			},
		},
	}
	program := llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}

	if _, err := translator.Translate(program, nil); err == nil {
		t.Fatalf("expected an unrecognised diverging foreign callee to be rejected as a fatal error")
	}
}

func TestRecognisedDivergingForeignCalleeDivertsToUnwindAbort(t *testing.T) {
	main := llir.Function{
		ID: "main", Name: "main", EntryBlock: 0,
		Locals: []llir.LocalDecl{{Index: 0, IsParamOrReturn: true}},
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Terminator: llir.Terminator{
					Kind:   llir.TermCall,
					Callee: "alloc::alloc::handle_alloc_error",
				},
			},
		},
	}
	program := llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}

	res, err := translator.Translate(program, nil)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	states := verify.Explore(res.Net, 10000)
	if err := verify.CheckReachable(states.States, res.UnwindAbort); err != nil {
		t.Fatalf("expected unwind_abort reachable through a recognised diverging foreign callee: %v", err)
	}
}

func TestTryLockOffersBothBranches(t *testing.T) {
	mutex, guard := llir.Local(1), llir.Local(2)
	main := llir.Function{
		ID: "main", Name: "main", EntryBlock: 0,
		Locals: []llir.LocalDecl{{Index: 0, IsParamOrReturn: true}, {Index: mutex}, {Index: guard}},
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(mutex)},
				},
				Terminator: llir.Terminator{
					Kind: llir.TermCall, Callee: "std::sync::Mutex::new",
					Dest: &llir.CallDest{Place: llir.BasePlace(mutex), Block: 1},
				},
			},
			{
				ID: 1,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(guard)},
				},
				Terminator: llir.Terminator{
					Kind: llir.TermCall, Callee: "std::sync::Mutex::try_lock",
					Args: []llir.CallArg{{Operand: llir.CopyOf(llir.BasePlace(mutex))}},
					Dest: &llir.CallDest{Place: llir.BasePlace(guard), Block: 2},
				},
			},
			{ID: 2, Terminator: llir.Terminator{Kind: llir.TermReturn}},
		},
	}
	program := llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}

	res, err := translator.Translate(program, nil)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	sawOk, sawFail := false, false
	for _, tr := range res.Net.Transitions() {
		switch res.Net.TransitionName(tr) {
		case "try_lock_ok":
			sawOk = true
		case "try_lock_fail":
			sawFail = true
		}
	}
	if !sawOk || !sawFail {
		t.Fatalf("expected both try_lock_ok and try_lock_fail transitions to be wired")
	}

	states := verify.Explore(res.Net, 10000)
	if err := verify.CheckReachable(states.States, res.ProgramEnd); err != nil {
		t.Fatalf("expected program_end reachable via either try_lock branch: %v", err)
	}
}
