package translator

import (
	"llir2pn/funcbuilder"
	"llir2pn/llir"
	"llir2pn/mutexregistry"
	"llir2pn/petrinet"
)

// visitCall lowers one call terminator per §4.4/§4.5's dispatch rules:
// panic-family callees divert to the shared unwind_abort sink, recognised
// primitives get dedicated mutex subnets, callees with a body in the
// program recurse as a fresh frame, and everything else is lowered as a
// generic foreign passthrough.
func (tr *translator) visitCall(fnID llir.FunctionID, frame int, fb *funcbuilder.Function, blockID llir.BlockID, term llir.Terminator) ([]llir.BlockID, error) {
	if term.IsIndirectCallee {
		return nil, fatalf(fnID, blockID, "indirect (function-pointer) call: callee %+v cannot be resolved statically", term.CalleeOperand)
	}

	if isPanicFamily(term.Callee) {
		return nil, fb.Abort()
	}

	if kind, ok := ForeignCatalogue.Primitives[term.Callee]; ok {
		return tr.visitPrimitive(frame, fb, kind, term)
	}

	if _, ok := tr.program.FunctionByID(term.Callee); ok {
		return tr.visitRegularCall(frame, fb, term)
	}

	return tr.visitForeignCall(fnID, blockID, fb, term)
}

// visitPrimitive lowers a recognised mutex operation directly onto the
// active block's end place, bypassing the generic call machinery (§4.5).
func (tr *translator) visitPrimitive(frame int, fb *funcbuilder.Function, kind primitiveKind, term llir.Terminator) ([]llir.BlockID, error) {
	pre := fb.ActiveBlockEnd()

	switch kind {
	case primitiveMutexNew:
		m := tr.mutexes.Add()
		destStart := fb.BlockStart(term.Dest.Block)
		t := tr.net.AddTransition()
		if err := tr.net.AddArcPT(pre, t); err != nil {
			return nil, err
		}
		if err := tr.net.AddArcPT(tr.mutexes.Uninitialised(m), t); err != nil {
			return nil, err
		}
		if err := tr.net.AddArcTP(t, tr.mutexes.Unlocked(m)); err != nil {
			return nil, err
		}
		if err := tr.net.AddArcTP(t, destStart); err != nil {
			return nil, err
		}
		destPlace := fb.Vmem.PlaceNode(term.Dest.Place)
		tr.mutexes.Link(frame, term.Dest.Place.Base, m)
		tr.mutexes.LinkByPlace(destPlace, m)
		return []llir.BlockID{term.Dest.Block}, nil

	case primitiveMutexLock:
		m, ok := tr.resolveMutexArg(frame, fb, term)
		destStart := fb.BlockStart(term.Dest.Block)
		if !ok {
			tr.log.Warn("lock call on a local with no known mutex identity; lowered as a plain passthrough",
				"callee", string(term.Callee))
			t := tr.net.AddTransition()
			if err := tr.net.AddArcPT(pre, t); err != nil {
				return nil, err
			}
			if err := tr.net.AddArcTP(t, destStart); err != nil {
				return nil, err
			}
			return []llir.BlockID{term.Dest.Block}, nil
		}
		t := tr.net.NamedTransition("mutex_lock")
		if err := tr.net.AddArcPT(pre, t); err != nil {
			return nil, err
		}
		if err := tr.net.AddArcPT(tr.mutexes.Unlocked(m), t); err != nil {
			return nil, err
		}
		if err := tr.net.AddArcTP(t, tr.mutexes.Locked(m)); err != nil {
			return nil, err
		}
		if err := tr.net.AddArcTP(t, destStart); err != nil {
			return nil, err
		}
		tr.mutexes.LinkGuard(frame, term.Dest.Place.Base, m)
		return []llir.BlockID{term.Dest.Block}, nil

	case primitiveMutexTryLock:
		// try_lock's success/failure split is not specified by the source
		// language's type system in a way the LLIR surfaces here (it is an
		// Option<Guard> discriminant this translation does not track
		// separately, §9). Both outcomes are modelled as always enabled,
		// non-deterministic branches from the same control point: the
		// success branch behaves exactly like lock; the failure branch
		// passes through without touching the mutex. This over-approximates
		// (a real run can't take the success branch while locked) in the
		// direction that keeps deadlock/reachability checks sound.
		m, ok := tr.resolveMutexArg(frame, fb, term)
		destStart := fb.BlockStart(term.Dest.Block)
		tFail := tr.net.NamedTransition("try_lock_fail")
		if err := tr.net.AddArcPT(pre, tFail); err != nil {
			return nil, err
		}
		if err := tr.net.AddArcTP(tFail, destStart); err != nil {
			return nil, err
		}
		if ok {
			tOk := tr.net.NamedTransition("try_lock_ok")
			if err := tr.net.AddArcPT(pre, tOk); err != nil {
				return nil, err
			}
			if err := tr.net.AddArcPT(tr.mutexes.Unlocked(m), tOk); err != nil {
				return nil, err
			}
			if err := tr.net.AddArcTP(tOk, tr.mutexes.Locked(m)); err != nil {
				return nil, err
			}
			if err := tr.net.AddArcTP(tOk, destStart); err != nil {
				return nil, err
			}
			tr.mutexes.LinkGuard(frame, term.Dest.Place.Base, m)
		}
		return []llir.BlockID{term.Dest.Block}, nil
	}
	return nil, nil
}

func (tr *translator) resolveMutexArg(frame int, fb *funcbuilder.Function, term llir.Terminator) (mutexregistry.MutexRef, bool) {
	if len(term.Args) == 0 {
		return mutexregistry.MutexRef{}, false
	}
	base := term.Args[0].Operand.Place.Base
	return tr.mutexes.Linked(frame, base)
}

// visitRegularCall recurses into a callee with a known body. The callee's
// start place is the caller's current active-block-end directly — no copy
// transition is inserted — matching the call-stack driver's
// caller-active-block-end-as-callee-start rule (§4.4).
func (tr *translator) visitRegularCall(frame int, fb *funcbuilder.Function, term llir.Terminator) ([]llir.BlockID, error) {
	start := fb.ActiveBlockEnd()

	argAliases := make([]petrinet.PlaceRef, len(term.Args))
	for i, a := range term.Args {
		argAliases[i] = fb.Vmem.DataPlace(a.Operand)
	}

	var returnPlace petrinet.PlaceRef
	var returnAlias *petrinet.PlaceRef
	var next []llir.BlockID
	if term.Dest != nil {
		returnPlace = fb.BlockStart(term.Dest.Block)
		alias := fb.Vmem.PlaceNode(term.Dest.Place)
		returnAlias = &alias
		next = []llir.BlockID{term.Dest.Block}
	} else {
		// A call the source program never expects to return from (e.g. an
		// exit path with no continuation block). The frame still needs a
		// return place to close its net over; nothing will ever read from
		// this one.
		returnPlace = tr.net.AddPlace()
	}

	if err := tr.visitFunction(term.Callee, start, returnPlace, argAliases, returnAlias); err != nil {
		return nil, err
	}
	return next, nil
}

// visitForeignCall lowers a callee with no body in the program as an
// opaque passthrough: it touches (read-pairs) every argument's data place
// plus the destination place D, conservatively modelling "this call may
// read its arguments and writes without consuming D", and advances
// control to its destination. A call with no destination goes to the
// shared unwind_abort sink only when its callee is on the Diverging list;
// any other such call is a FatalError (§4.5).
func (tr *translator) visitForeignCall(fnID llir.FunctionID, blockID llir.BlockID, fb *funcbuilder.Function, term llir.Terminator) ([]llir.BlockID, error) {
	pre := fb.ActiveBlockEnd()

	if term.Dest == nil {
		if !isDiverging(term.Callee) {
			return nil, fatalf(fnID, blockID, "unrecognised diverging foreign callee %q", term.Callee)
		}
		t := tr.net.NamedTransition("foreign_diverge")
		if err := tr.net.AddArcPT(pre, t); err != nil {
			return nil, err
		}
		return nil, tr.net.AddArcTP(t, fb.UnwindAbort())
	}

	if !isChecked(term.Callee) {
		tr.log.Warn("foreign callee not on the checked whitelist; lowered as a generic passthrough",
			"callee", string(term.Callee))
	}

	destStart := fb.BlockStart(term.Dest.Block)
	t := tr.net.NamedTransition("foreign_call")
	if err := tr.net.AddArcPT(pre, t); err != nil {
		return nil, err
	}
	for _, a := range term.Args {
		if err := tr.net.ReadPair(fb.Vmem.DataPlace(a.Operand), t); err != nil {
			return nil, err
		}
	}
	if err := tr.net.ReadPair(fb.Vmem.DataPlace(llir.CopyOf(term.Dest.Place)), t); err != nil {
		return nil, err
	}
	if err := tr.net.AddArcTP(t, destStart); err != nil {
		return nil, err
	}
	next := []llir.BlockID{term.Dest.Block}

	if term.HasCleanup {
		tc := tr.net.NamedTransition("foreign_call_unwind")
		cleanupStart := fb.BlockStart(term.Cleanup)
		if err := tr.net.AddArcPT(pre, tc); err != nil {
			return nil, err
		}
		if err := tr.net.AddArcTP(tc, cleanupStart); err != nil {
			return nil, err
		}
		next = append(next, term.Cleanup)
	}
	return next, nil
}
