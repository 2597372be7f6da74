package funcbuilder

import "llir2pn/petrinet"

// BasicBlock is a pair of places (start, end) between which its statement
// transitions are chained in source order, per §3's data model. It keeps
// only the last intermediate control place, not a list of the transitions.
//
//	.-----.
//	( start )
//	'-----'
//	   |
//	   v
//	[statement transitions, chained in source order]
//	   |
//	   v
//	 .---.
//	( end )
//	 '---'
type BasicBlock struct {
	Start petrinet.PlaceRef
	End   petrinet.PlaceRef

	net           *petrinet.PetriNet
	lastStatement petrinet.PlaceRef
	hasStatement  bool
	finished      bool
}

// newBasicBlock allocates the block's end place; the start place is
// supplied by the caller (the frame's start place for the first block, or
// a freshly allocated place for every subsequent one).
func newBasicBlock(net *petrinet.PetriNet, start petrinet.PlaceRef) *BasicBlock {
	return &BasicBlock{
		Start: start,
		End:   net.AddPlace(),
		net:   net,
	}
}

// cursor returns the place the next statement transition should read its
// control-in arc from: the block's start place before any statement has
// been added, or the previous statement's intermediate place afterwards.
func (b *BasicBlock) cursor() petrinet.PlaceRef {
	if b.hasStatement {
		return b.lastStatement
	}
	return b.Start
}

// appendControlPoint records a new intermediate control place between two
// statement transitions.
func (b *BasicBlock) appendControlPoint() petrinet.PlaceRef {
	p := b.net.AddPlace()
	b.lastStatement = p
	b.hasStatement = true
	return p
}

// Finish connects the block's current cursor to its end place, inserting
// a NOP transition when the block has no statements, per §4.2's
// finish_basic_block operation. It is idempotent: a block already
// finished is left untouched.
func (b *BasicBlock) Finish() error {
	if b.finished {
		return nil
	}
	b.finished = true
	if !b.hasStatement {
		t := b.net.NamedTransition("nop")
		if err := b.net.AddArcPT(b.Start, t); err != nil {
			return err
		}
		return b.net.AddArcTP(t, b.End)
	}
	t := b.net.AddTransition()
	if err := b.net.AddArcPT(b.lastStatement, t); err != nil {
		return err
	}
	return b.net.AddArcTP(t, b.End)
}
