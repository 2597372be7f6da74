// Package translator implements the call-stack driver: the recursive CFG
// walker that turns an llir.Program into a labelled Petri net by dispatching
// each basic block's statements and terminator to the funcbuilder and
// mutexregistry packages. Translation is call-site-sensitive, not
// memoized: a function called from two call sites is translated twice,
// into two independent subnets (§9 — recursion in the call graph is
// neither detected nor broken; a recursive program translates forever and
// is rejected by the size budget, not specially diagnosed).
package translator

import (
	"fmt"
	"log/slog"

	"llir2pn/funcbuilder"
	"llir2pn/llir"
	"llir2pn/mutexregistry"
	"llir2pn/petrinet"
	"llir2pn/util"
)

// Result is the translated net plus the bookkeeping the verify package
// needs to check slot/mutex conservation and program_end reachability
// without re-deriving it from place names.
type Result struct {
	Net          *petrinet.PetriNet
	ProgramStart petrinet.PlaceRef
	ProgramEnd   petrinet.PlaceRef
	UnwindAbort  petrinet.PlaceRef
	SlotGroups   [][3]petrinet.PlaceRef
	MutexGroups  [][4]petrinet.PlaceRef
}

// Translate builds the labelled Petri net for program. log may be nil, in
// which case translation proceeds silently (warning-level diagnostics, per
// §7.3, are simply dropped).
func Translate(program llir.Program, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(discard{}, nil))
	}
	net := petrinet.New()
	tr := &translator{
		net:       net,
		program:   program,
		log:       log,
		mutexes:   mutexregistry.New(net, log),
		progEnd:   net.NamedPlace("program_end"),
		unwind:    net.NamedPlace("unwind_abort"),
		nextFrame: util.NewCounter(0),
	}

	if _, ok := program.FunctionByID(program.Entry); !ok {
		return nil, fmt.Errorf("llir2pn: program entry function %q not found", program.Entry)
	}

	start := net.NamedPlace("program_start")
	if err := net.SetMarking(start, 1); err != nil {
		return nil, err
	}

	if err := tr.visitFunction(program.Entry, start, tr.progEnd, nil, nil); err != nil {
		return nil, err
	}
	return &Result{
		Net:          net,
		ProgramStart: start,
		ProgramEnd:   tr.progEnd,
		UnwindAbort:  tr.unwind,
		SlotGroups:   tr.slotGroups,
		MutexGroups:  tr.mutexes.Groups(),
	}, nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type translator struct {
	net        *petrinet.PetriNet
	program    llir.Program
	log        *slog.Logger
	mutexes    *mutexregistry.Registry
	progEnd    petrinet.PlaceRef
	unwind     petrinet.PlaceRef
	nextFrame  func() int
	slotGroups [][3]petrinet.PlaceRef
}

// visitFunction translates one call frame of fnID. start is where control
// enters the frame (the caller's active-block-end — regular calls inherit
// it directly rather than copying into a fresh place, §4.4); returnPlace
// receives a token when the frame returns; argAliases are the data places
// (in the caller's frame) that this frame's non-return parameters alias,
// in declaration order; returnAlias, if present, is the caller's data
// place that this frame's return local aliases.
func (tr *translator) visitFunction(fnID llir.FunctionID, start, returnPlace petrinet.PlaceRef, argAliases []petrinet.PlaceRef, returnAlias *petrinet.PlaceRef) error {
	fn, ok := tr.program.FunctionByID(fnID)
	if !ok {
		return fmt.Errorf("llir2pn: callee %q has no definition in the program", fnID)
	}
	frame := tr.nextFrame()
	fb := funcbuilder.New(tr.net, funcbuilder.FrameID(frame), start, returnPlace, tr.unwind)

	paramIdx := 0
	for _, ld := range fn.Locals {
		switch {
		case ld.Index == llir.ReturnLocal:
			if returnAlias != nil {
				fb.Vmem.DeclareCrossFrameLocal(ld.Index, *returnAlias)
				tr.mutexes.LinkIfAliased(frame, ld.Index, *returnAlias)
			} else if _, err := fb.Vmem.DeclareRegularLocal(ld.Index); err != nil {
				return err
			}
		case ld.IsParamOrReturn:
			if paramIdx < len(argAliases) {
				alias := argAliases[paramIdx]
				fb.Vmem.DeclareCrossFrameLocal(ld.Index, alias)
				tr.mutexes.LinkIfAliased(frame, ld.Index, alias)
			} else if _, err := fb.Vmem.DeclareRegularLocal(ld.Index); err != nil {
				return err
			}
			paramIdx++
		default:
			if _, err := fb.Vmem.DeclareRegularLocal(ld.Index); err != nil {
				return err
			}
		}
	}

	visited := make(map[llir.BlockID]bool)
	queue := []llir.BlockID{fn.EntryBlock}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		block, ok := fn.BlockByID(id)
		if !ok {
			return fatalf(fnID, id, "terminator references unknown block %d", id)
		}
		fb.ActivateBlock(id)
		for _, stmt := range block.Statements {
			if stmt.Kind == llir.StmtAssign {
				if ops := stmt.Rvalue.Operands(); len(ops) == 1 && ops[0].Kind != llir.OperandConstant {
					if m, ok := tr.mutexes.Linked(frame, ops[0].Place.Base); ok {
						tr.mutexes.Link(frame, stmt.Place.Base, m)
					}
				}
			}
			if stmt.Kind == llir.StmtStorageLeave {
				if m, ok := tr.mutexes.Guard(frame, stmt.Place.Base); ok {
					if err := fb.StorageLeaveWithUnlock(stmt.Place.Base, tr.mutexes.Locked(m), tr.mutexes.Unlocked(m)); err != nil {
						return fatalf(fnID, id, "%v", err)
					}
					tr.mutexes.ClearGuard(frame, stmt.Place.Base)
					continue
				}
			}
			if err := fb.AddStatement(stmt); err != nil {
				return fatalf(fnID, id, "%v", err)
			}
		}
		if err := fb.FinishBasicBlock(); err != nil {
			return fatalf(fnID, id, "%v", err)
		}

		more, err := tr.visitTerminator(fnID, frame, fb, block)
		if err != nil {
			return err
		}
		queue = append(queue, more...)
	}
	tr.slotGroups = append(tr.slotGroups, fb.Vmem.RegularSlotGroups()...)
	return nil
}

// visitTerminator dispatches one block's terminator and returns the block
// ids newly reachable from it, to be enqueued by the caller's worklist.
func (tr *translator) visitTerminator(fnID llir.FunctionID, frame int, fb *funcbuilder.Function, block llir.BasicBlock) ([]llir.BlockID, error) {
	term := block.Terminator
	switch term.Kind {
	case llir.TermGoto:
		if err := fb.Goto(term.Target); err != nil {
			return nil, err
		}
		return []llir.BlockID{term.Target}, nil

	case llir.TermSwitchInt:
		targets := term.SwitchTargets
		if term.HasFallthrough {
			targets = append(append([]llir.BlockID{}, targets...), term.SwitchFallthrough)
		}
		if err := fb.Switch(targets); err != nil {
			return nil, err
		}
		return targets, nil

	case llir.TermReturn:
		return nil, fb.Return()

	case llir.TermDrop:
		if err := fb.Drop(term.Target, term.HasCleanup, term.Cleanup); err != nil {
			return nil, err
		}
		next := []llir.BlockID{term.Target}
		if term.HasCleanup {
			next = append(next, term.Cleanup)
		}
		return next, nil

	case llir.TermAssert:
		if err := fb.Assert(term.Operand, term.Target, term.HasCleanup, term.Cleanup); err != nil {
			return nil, err
		}
		next := []llir.BlockID{term.Target}
		if term.HasCleanup {
			next = append(next, term.Cleanup)
		}
		return next, nil

	case llir.TermResume:
		return nil, fb.Resume()

	case llir.TermAbort:
		return nil, fb.Abort()

	case llir.TermUnreachable:
		// An unreachable terminator marks a path the source program asserts
		// cannot occur. The over-approximating translation still needs a
		// sink for it; routing to the shared unwind_abort place keeps it
		// out of program_end reachability without inventing a new place.
		return nil, fb.Abort()

	case llir.TermCall:
		return tr.visitCall(fnID, frame, fb, block.ID, term)

	default:
		return nil, fatalf(fnID, block.ID, "unknown terminator kind %d", term.Kind)
	}
}
