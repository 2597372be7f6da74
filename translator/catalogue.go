package translator

import (
	"fmt"

	"llir2pn/llir"
)

// primitiveKind classifies a recognised-primitive callee (§4.5).
type primitiveKind int

const (
	primitiveMutexNew primitiveKind = iota
	primitiveMutexLock
	primitiveMutexTryLock
)

// ForeignCatalogue is the introspectable table of callee names the
// translator treats specially: the panic family (divergent, routed to the
// shared unwind_abort sink) and the recognised primitives (mutex
// operations, given dedicated subnets instead of the generic foreign
// passthrough). Any callee id not found here that has no body in the
// program is lowered as a generic foreign call (§4.5).
var ForeignCatalogue = struct {
	PanicFamily []llir.FunctionID
	Primitives  map[llir.FunctionID]primitiveKind
	Checked     []llir.FunctionID
	Diverging   []llir.FunctionID
}{
	PanicFamily: []llir.FunctionID{
		"core::panicking::panic",
		"core::panicking::panic_fmt",
		"core::panicking::panic_bounds_check",
		"core::panicking::assert_failed",
		"std::rt::begin_panic",
		"std::process::abort",
	},
	Primitives: map[llir.FunctionID]primitiveKind{
		"std::sync::Mutex::new":      primitiveMutexNew,
		"std::sync::Mutex::lock":     primitiveMutexLock,
		"std::sync::Mutex::try_lock": primitiveMutexTryLock,
	},
	// Checked names are foreign callees known to return normally and touch
	// only their declared arguments and destination; the generic passthrough
	// builder lowers them silently (§4.5).
	Checked: []llir.FunctionID{
		"core::fmt::Arguments::new_v1",
		"alloc::fmt::format",
		"std::io::_print",
		"std::io::_eprint",
		"core::option::Option::unwrap",
		"core::result::Result::unwrap",
		"alloc::vec::Vec::push",
		"alloc::vec::Vec::new",
	},
	// Diverging names are foreign callees recognised as never returning:
	// the allocation-error handler, capacity-overflow, and unwrap-failure
	// lang items. Any other no-Dest foreign call is a fatal error (§4.5,
	// §7.1).
	Diverging: []llir.FunctionID{
		"alloc::alloc::handle_alloc_error",
		"alloc::raw_vec::capacity_overflow",
		"core::option::Option::unwrap_failed",
		"core::result::Result::unwrap_failed",
	},
}

func isPanicFamily(id llir.FunctionID) bool {
	return containsFunctionID(ForeignCatalogue.PanicFamily, id)
}

func isChecked(id llir.FunctionID) bool {
	return containsFunctionID(ForeignCatalogue.Checked, id)
}

func isDiverging(id llir.FunctionID) bool {
	return containsFunctionID(ForeignCatalogue.Diverging, id)
}

func containsFunctionID(list []llir.FunctionID, id llir.FunctionID) bool {
	for _, name := range list {
		if name == id {
			return true
		}
	}
	return false
}

// FatalError reports an internal-invariant violation encountered while
// translating a specific function/block, per the error taxonomy's
// internal-invariant class (§7.1): these always carry enough LLIR context
// to locate the offending construct.
type FatalError struct {
	Function llir.FunctionID
	Block    llir.BlockID
	Msg      string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("llir2pn: internal invariant violated in function %s, block %d: %s", e.Function, e.Block, e.Msg)
}

func fatalf(fn llir.FunctionID, block llir.BlockID, format string, args ...any) error {
	return &FatalError{Function: fn, Block: block, Msg: fmt.Sprintf(format, args...)}
}
