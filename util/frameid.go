// Package util holds small generator helpers shared across the
// translator, built as closures rather than stateful structs.
package util

// NewCounter returns a closure generating successive integers starting at
// start, each call advancing the sequence by one. The translator uses one
// of these to hand out frame ids as it recurses into callees.
func NewCounter(start int) func() int {
	current := start
	return func() int {
		n := current
		current++
		return n
	}
}
