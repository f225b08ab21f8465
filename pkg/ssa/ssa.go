// Package ssa turns checked stack-language bodies into dataflow graphs.
//
// A Value names the result of one assignment and is consumed by exactly one
// later use; the virtual stack exists only while a graph is built and is gone
// from the result. Structured control flow stays structured: constructs carry
// their bodies as nested graphs whose inputs and outputs describe the values
// flowing across the block boundary.
package ssa

import (
	"github.com/spackel-lang/spackel/pkg/ast"
)

// Value identifies a single dataflow edge. Ids are allocated monotonically by
// a ValueGenerator shared across the whole compilation, so values of nested
// graphs never collide.
type Value uint32

// ValueSequence is a contiguous range of values, used for the results of one
// assignment.
type ValueSequence struct {
	Start Value
	Count int
}

func (s ValueSequence) At(i int) Value {
	return s.Start + Value(i)
}

func (s ValueSequence) Len() int { return s.Count }

// Values expands the sequence into a slice.
func (s ValueSequence) Values() []Value {
	out := make([]Value, s.Count)
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

type ValueGenerator struct {
	next Value
}

func (g *ValueGenerator) New() Value {
	v := g.next
	g.next++
	return v
}

func (g *ValueGenerator) NewSequence(n int) ValueSequence {
	s := ValueSequence{Start: g.next, Count: n}
	g.next += Value(n)
	return s
}

// Assignment binds the results of one operation. Args are the consumed
// values in stack order, deepest first; for the guarded constructs the
// condition comes last.
type Assignment struct {
	To   ValueSequence
	Args []Value
	Op   Op
}

// Op is the closed set of operations a graph can contain. The stack-shuffle
// words never appear here: the builder desugars them into reorderings plus
// Dup and Drop.
type Op interface {
	isOp()
}

// OpIns is a checked instruction, generics included.
type OpIns struct {
	Ins *ast.Instruction
}

// OpThen runs Body when the condition holds; otherwise the arguments pass
// through unchanged.
type OpThen struct {
	Body *Graph
}

// OpThenElse runs exactly one of the two bodies.
type OpThenElse struct {
	Then *Graph
	Else *Graph
}

// OpRepeat runs Body at least once and again whenever the extra bool it
// leaves on top is true.
type OpRepeat struct {
	Body *Graph
}

// OpDup copies its argument into two results.
type OpDup struct{}

// OpDrop consumes its argument.
type OpDrop struct{}

func (OpIns) isOp()      {}
func (OpThen) isOp()     {}
func (OpThenElse) isOp() {}
func (OpRepeat) isOp()   {}
func (OpDup) isOp()      {}
func (OpDrop) isOp()     {}

// Graph is the dataflow form of one body. Inputs and Outputs are in stack
// order, deepest first.
type Graph struct {
	Inputs      []Value
	Assignments []Assignment
	Outputs     []Value
}
