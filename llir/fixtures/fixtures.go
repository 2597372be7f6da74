// Package fixtures provides the six concrete end-to-end scenario programs
// from the testable-properties section as Go literals, mirroring the
// teacher's in-code test-program construction style (see
// program/test.go's literal Program tree) rather than loading them from
// YAML on disk, so the translator's test suite has no filesystem
// dependency.
package fixtures

import "llir2pn/llir"

const (
	mutexNewFn   llir.FunctionID = "std::sync::Mutex::new"
	mutexLockFn  llir.FunctionID = "std::sync::Mutex::lock"
)

// EmptyBodyMain is scenario 1: a main with a single block containing only
// return.
func EmptyBodyMain() llir.Program {
	main := llir.Function{
		ID:         "main",
		Name:       "main",
		EntryBlock: 0,
		Locals:     []llir.LocalDecl{{Index: 0, IsParamOrReturn: true}},
		Blocks: []llir.BasicBlock{
			{ID: 0, Terminator: llir.Terminator{Kind: llir.TermReturn}},
		},
	}
	return llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}
}

// SingleAssignment is scenario 2: main assigns a constant to a local, then
// returns.
func SingleAssignment() llir.Program {
	local1 := llir.Local(1)
	main := llir.Function{
		ID:         "main",
		Name:       "main",
		EntryBlock: 0,
		Locals: []llir.LocalDecl{
			{Index: 0, IsParamOrReturn: true},
			{Index: local1},
		},
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(local1)},
					{Kind: llir.StmtAssign, Place: llir.BasePlace(local1), Rvalue: llir.Rvalue{
						Kind: llir.RvalueUse, Operand: llir.ConstOperand(),
					}},
					{Kind: llir.StmtStorageLeave, Place: llir.BasePlace(local1)},
				},
				Terminator: llir.Terminator{Kind: llir.TermReturn},
			},
		},
	}
	return llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}
}

// ConditionalBranch is scenario 3: main contains a switch-int with two
// targets both converging on return.
func ConditionalBranch() llir.Program {
	local1 := llir.Local(1)
	main := llir.Function{
		ID:         "main",
		Name:       "main",
		EntryBlock: 0,
		Locals: []llir.LocalDecl{
			{Index: 0, IsParamOrReturn: true},
			{Index: local1},
		},
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(local1)},
				},
				Terminator: llir.Terminator{
					Kind:          llir.TermSwitchInt,
					Operand:       llir.CopyOf(llir.BasePlace(local1)),
					SwitchTargets: []llir.BlockID{1, 2},
				},
			},
			{ID: 1, Terminator: llir.Terminator{Kind: llir.TermReturn}},
			{ID: 2, Terminator: llir.Terminator{Kind: llir.TermReturn}},
		},
	}
	return llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}
}

// mutexLocalDecls returns the locals common to the two mutex scenarios:
// 1 is the mutex itself, 2 and 3 are the two lock guards.
func mutexLocalDecls() []llir.LocalDecl {
	return []llir.LocalDecl{
		{Index: 0, IsParamOrReturn: true},
		{Index: 1},
		{Index: 2},
		{Index: 3},
	}
}

// MinimalDeadlock is scenario 4: main allocates one mutex and attempts two
// consecutive locks on it without dropping the first guard.
func MinimalDeadlock() llir.Program {
	mutex, guard1, guard2 := llir.Local(1), llir.Local(2), llir.Local(3)
	main := llir.Function{
		ID:         "main",
		Name:       "main",
		EntryBlock: 0,
		Locals:     mutexLocalDecls(),
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(mutex)},
				},
				Terminator: llir.Terminator{
					Kind: llir.TermCall, Callee: mutexNewFn,
					Dest: &llir.CallDest{Place: llir.BasePlace(mutex), Block: 1},
				},
			},
			{
				ID: 1,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(guard1)},
				},
				Terminator: llir.Terminator{
					Kind: llir.TermCall, Callee: mutexLockFn,
					Args: []llir.CallArg{{Operand: llir.CopyOf(llir.BasePlace(mutex))}},
					Dest: &llir.CallDest{Place: llir.BasePlace(guard1), Block: 2},
				},
			},
			{
				ID: 2,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(guard2)},
				},
				Terminator: llir.Terminator{
					Kind: llir.TermCall, Callee: mutexLockFn,
					Args: []llir.CallArg{{Operand: llir.CopyOf(llir.BasePlace(mutex))}},
					Dest: &llir.CallDest{Place: llir.BasePlace(guard2), Block: 3},
				},
			},
			{ID: 3, Terminator: llir.Terminator{Kind: llir.TermReturn}},
		},
	}
	return llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}
}

// MinimalNonDeadlock is scenario 5: two consecutive lock calls on the same
// mutex, separated by the first guard's storage-leave (forcing the
// unlock transition).
func MinimalNonDeadlock() llir.Program {
	mutex, guard1, guard2 := llir.Local(1), llir.Local(2), llir.Local(3)
	main := llir.Function{
		ID:         "main",
		Name:       "main",
		EntryBlock: 0,
		Locals:     mutexLocalDecls(),
		Blocks: []llir.BasicBlock{
			{
				ID: 0,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(mutex)},
				},
				Terminator: llir.Terminator{
					Kind: llir.TermCall, Callee: mutexNewFn,
					Dest: &llir.CallDest{Place: llir.BasePlace(mutex), Block: 1},
				},
			},
			{
				ID: 1,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(guard1)},
				},
				Terminator: llir.Terminator{
					Kind: llir.TermCall, Callee: mutexLockFn,
					Args: []llir.CallArg{{Operand: llir.CopyOf(llir.BasePlace(mutex))}},
					Dest: &llir.CallDest{Place: llir.BasePlace(guard1), Block: 2},
				},
			},
			{
				ID: 2,
				Statements: []llir.Statement{
					{Kind: llir.StmtStorageLeave, Place: llir.BasePlace(guard1)},
					{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(guard2)},
				},
				Terminator: llir.Terminator{
					Kind: llir.TermCall, Callee: mutexLockFn,
					Args: []llir.CallArg{{Operand: llir.CopyOf(llir.BasePlace(mutex))}},
					Dest: &llir.CallDest{Place: llir.BasePlace(guard2), Block: 3},
				},
			},
			{ID: 3, Terminator: llir.Terminator{Kind: llir.TermReturn}},
		},
	}
	return llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}
}

// DiningPhilosophers is scenario 6: five mutexes, five call sites each
// performing left-then-right lock, left deliberately un-dropped so a
// deadlock witness is reachable.
func DiningPhilosophers() llir.Program {
	const n = 5
	locals := []llir.LocalDecl{{Index: 0, IsParamOrReturn: true}}
	// locals 1..5: mutexes; locals 6..10: left guards; locals 11..15: right guards
	for i := 0; i < 3*n; i++ {
		locals = append(locals, llir.LocalDecl{Index: llir.Local(1 + i)})
	}

	mutexLocal := func(i int) llir.Local { return llir.Local(1 + i) }
	leftGuard := func(i int) llir.Local { return llir.Local(1 + n + i) }
	rightGuard := func(i int) llir.Local { return llir.Local(1 + 2*n + i) }

	var blocks []llir.BasicBlock
	blockID := 0
	nextBlock := func() llir.BlockID { id := llir.BlockID(blockID); blockID++; return id }

	// One block per mutex allocation, then one pair of lock blocks per
	// philosopher (left mutex, then right mutex = (i+1) mod n).
	allocBlocks := make([]llir.BlockID, n)
	for i := 0; i < n; i++ {
		allocBlocks[i] = nextBlock()
	}
	lockLeftBlocks := make([]llir.BlockID, n)
	lockRightBlocks := make([]llir.BlockID, n)
	for i := 0; i < n; i++ {
		lockLeftBlocks[i] = nextBlock()
		lockRightBlocks[i] = nextBlock()
	}
	returnBlock := nextBlock()

	for i := 0; i < n; i++ {
		next := allocBlocks[(i+1)%n]
		if i == n-1 {
			next = lockLeftBlocks[0]
		}
		blocks = append(blocks, llir.BasicBlock{
			ID: allocBlocks[i],
			Statements: []llir.Statement{
				{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(mutexLocal(i))},
			},
			Terminator: llir.Terminator{
				Kind: llir.TermCall, Callee: mutexNewFn,
				Dest: &llir.CallDest{Place: llir.BasePlace(mutexLocal(i)), Block: next},
			},
		})
	}

	for i := 0; i < n; i++ {
		right := (i + 1) % n
		blocks = append(blocks, llir.BasicBlock{
			ID: lockLeftBlocks[i],
			Statements: []llir.Statement{
				{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(leftGuard(i))},
			},
			Terminator: llir.Terminator{
				Kind: llir.TermCall, Callee: mutexLockFn,
				Args: []llir.CallArg{{Operand: llir.CopyOf(llir.BasePlace(mutexLocal(i)))}},
				Dest: &llir.CallDest{Place: llir.BasePlace(leftGuard(i)), Block: lockRightBlocks[i]},
			},
		})
		next := returnBlock
		if i < n-1 {
			next = lockLeftBlocks[i+1]
		}
		blocks = append(blocks, llir.BasicBlock{
			ID: lockRightBlocks[i],
			Statements: []llir.Statement{
				{Kind: llir.StmtStorageEnter, Place: llir.BasePlace(rightGuard(i))},
			},
			Terminator: llir.Terminator{
				Kind: llir.TermCall, Callee: mutexLockFn,
				Args: []llir.CallArg{{Operand: llir.CopyOf(llir.BasePlace(mutexLocal(right)))}},
				Dest: &llir.CallDest{Place: llir.BasePlace(rightGuard(i)), Block: next},
			},
		})
	}

	blocks = append(blocks, llir.BasicBlock{ID: returnBlock, Terminator: llir.Terminator{Kind: llir.TermReturn}})

	main := llir.Function{
		ID:         "main",
		Name:       "main",
		EntryBlock: allocBlocks[0],
		Locals:     locals,
		Blocks:     blocks,
	}
	return llir.Program{Entry: "main", Functions: map[llir.FunctionID]llir.Function{"main": main}}
}
