package ssa

import (
	"github.com/spackel-lang/spackel/pkg/ast"
	"github.com/spackel-lang/spackel/pkg/token"
	"github.com/spackel-lang/spackel/pkg/util"
)

type builder struct {
	gen  *ValueGenerator
	sigs map[string]ast.Signature
}

// frame is the virtual stack of one body while it is replayed. A nested
// body starts empty and allocates fresh inputs lazily when it reaches below
// what it has produced itself; each underflow is one slot deeper than the
// last, so inputs end up in stack order.
type frame struct {
	gen    *ValueGenerator
	stack  []Value
	inputs []Value
	asgs   []Assignment
	lazy   bool
}

// Build constructs the dataflow graph of one checked function. The function's
// parameters become the graph inputs; whatever the body leaves on the stack
// becomes the outputs.
func Build(fn *ast.Function, sigs map[string]ast.Signature, gen *ValueGenerator) (*Graph, error) {
	b := &builder{gen: gen, sigs: sigs}
	f := &frame{gen: gen}
	for range fn.Sig.Params {
		v := gen.New()
		f.inputs = append(f.inputs, v)
		f.stack = append(f.stack, v)
	}
	if err := b.body(fn.Body, f); err != nil {
		return nil, err
	}
	return &Graph{Inputs: f.inputs, Assignments: f.asgs, Outputs: f.stack}, nil
}

func (b *builder) body(instrs []ast.Instruction, f *frame) error {
	for i := range instrs {
		if err := b.instruction(&instrs[i], f); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) instruction(ins *ast.Instruction, f *frame) error {
	switch ins.Kind {
	case ast.InsPushInt, ast.InsPushFloat, ast.InsPushBool, ast.InsPushType:
		return b.emitIns(ins, f, 0, 1)
	case ast.InsBinMath, ast.InsComparison, ast.InsBinLogic:
		return b.emitIns(ins, f, 2, 1)
	case ast.InsNot, ast.InsSqrt, ast.InsTypeOf, ast.InsReadPtr:
		return b.emitIns(ins, f, 1, 1)
	case ast.InsPrint, ast.InsPrintln, ast.InsPrintChar:
		return b.emitIns(ins, f, 1, 0)
	case ast.InsAddrOf:
		return b.emitIns(ins, f, 1, 2)

	case ast.InsCall:
		sig, ok := b.sigs[ins.Callee]
		if !ok {
			return util.Errf(ins.Tok, "unknown word `%s`", ins.Callee)
		}
		return b.emitIns(ins, f, len(sig.Params), len(sig.Results))

	case ast.InsDup:
		a, err := f.pop(ins.Tok)
		if err != nil {
			return err
		}
		to := b.gen.NewSequence(2)
		f.emit(to, []Value{a}, OpDup{})
		f.push(to.At(0), to.At(1))
		return nil

	case ast.InsDrop:
		a, err := f.pop(ins.Tok)
		if err != nil {
			return err
		}
		f.emit(ValueSequence{}, []Value{a}, OpDrop{})
		return nil

	case ast.InsSwap:
		// ( a b -- b a ): a pure renaming, nothing is emitted.
		vb, va, err := f.pop2(ins.Tok)
		if err != nil {
			return err
		}
		f.push(vb, va)
		return nil

	case ast.InsNip:
		// ( a b -- b )
		vb, va, err := f.pop2(ins.Tok)
		if err != nil {
			return err
		}
		f.emit(ValueSequence{}, []Value{va}, OpDrop{})
		f.push(vb)
		return nil

	case ast.InsTuck:
		// ( a b -- b a b )
		vb, va, err := f.pop2(ins.Tok)
		if err != nil {
			return err
		}
		to := b.gen.NewSequence(2)
		f.emit(to, []Value{vb}, OpDup{})
		f.push(to.At(0), va, to.At(1))
		return nil

	case ast.InsOver:
		// ( a b -- a b a )
		vb, va, err := f.pop2(ins.Tok)
		if err != nil {
			return err
		}
		to := b.gen.NewSequence(2)
		f.emit(to, []Value{va}, OpDup{})
		f.push(to.At(0), vb, to.At(1))
		return nil

	case ast.InsThen:
		cond, err := f.pop(ins.Tok)
		if err != nil {
			return err
		}
		body, err := b.subgraph(ins.Body)
		if err != nil {
			return err
		}
		if len(body.Outputs) != len(body.Inputs) {
			return util.Errf(ins.Tok, "a `then` body must leave as many values as it takes (%d in, %d out)",
				len(body.Inputs), len(body.Outputs))
		}
		operands, err := f.popN(len(body.Inputs), ins.Tok)
		if err != nil {
			return err
		}
		to := b.gen.NewSequence(len(body.Outputs))
		f.emit(to, append(operands, cond), OpThen{Body: body})
		f.push(to.Values()...)
		return nil

	case ast.InsThenElse:
		cond, err := f.pop(ins.Tok)
		if err != nil {
			return err
		}
		thenG, err := b.subgraph(ins.Body)
		if err != nil {
			return err
		}
		elseG, err := b.subgraph(ins.Else)
		if err != nil {
			return err
		}
		depth := max(len(thenG.Inputs), len(elseG.Inputs))
		b.padPassThrough(thenG, depth)
		b.padPassThrough(elseG, depth)
		if len(thenG.Outputs) != len(elseG.Outputs) {
			return util.Errf(ins.Tok, "the `then` and `else` bodies leave different numbers of values (%d vs %d)",
				len(thenG.Outputs), len(elseG.Outputs))
		}
		operands, err := f.popN(depth, ins.Tok)
		if err != nil {
			return err
		}
		to := b.gen.NewSequence(len(thenG.Outputs))
		f.emit(to, append(operands, cond), OpThenElse{Then: thenG, Else: elseG})
		f.push(to.Values()...)
		return nil

	case ast.InsRepeat:
		body, err := b.subgraph(ins.Body)
		if err != nil {
			return err
		}
		if len(body.Outputs) == 0 {
			return util.Errf(ins.Tok, "a `repeat` body must leave its continue condition on the stack")
		}
		if len(body.Outputs) != len(body.Inputs)+1 {
			return util.Errf(ins.Tok, "a `repeat` body must add exactly one value to the stack (%d in, %d out)",
				len(body.Inputs), len(body.Outputs))
		}
		operands, err := f.popN(len(body.Inputs), ins.Tok)
		if err != nil {
			return err
		}
		to := b.gen.NewSequence(len(body.Outputs) - 1)
		f.emit(to, operands, OpRepeat{Body: body})
		f.push(to.Values()...)
		return nil

	case ast.InsUnsafe:
		// The block is a checker-level boundary only; its body is spliced
		// into the enclosing graph.
		return b.body(ins.Body, f)
	}

	util.ICE("unhandled instruction kind %d", ins.Kind)
	return nil
}

func (b *builder) emitIns(ins *ast.Instruction, f *frame, nargs, nresults int) error {
	args, err := f.popN(nargs, ins.Tok)
	if err != nil {
		return err
	}
	to := b.gen.NewSequence(nresults)
	f.emit(to, args, OpIns{Ins: ins})
	f.push(to.Values()...)
	return nil
}

func (b *builder) subgraph(instrs []ast.Instruction) (*Graph, error) {
	f := &frame{gen: b.gen, lazy: true}
	if err := b.body(instrs, f); err != nil {
		return nil, err
	}
	return &Graph{Inputs: f.inputs, Assignments: f.asgs, Outputs: f.stack}, nil
}

// padPassThrough deepens a branch graph to the given input count. The new
// inputs sit below everything the branch touches and flow through unchanged,
// which keeps the two arms of a ThenElse symmetric.
func (b *builder) padPassThrough(g *Graph, depth int) {
	for len(g.Inputs) < depth {
		v := b.gen.New()
		g.Inputs = append([]Value{v}, g.Inputs...)
		g.Outputs = append([]Value{v}, g.Outputs...)
	}
}

func (f *frame) emit(to ValueSequence, args []Value, op Op) {
	f.asgs = append(f.asgs, Assignment{To: to, Args: args, Op: op})
}

func (f *frame) push(vals ...Value) {
	f.stack = append(f.stack, vals...)
}

func (f *frame) pop(tok token.Token) (Value, error) {
	if len(f.stack) == 0 {
		if !f.lazy {
			return 0, util.Errf(tok, "stack underflow at `%s`", tok.Value)
		}
		v := f.gen.New()
		f.inputs = append([]Value{v}, f.inputs...)
		return v, nil
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *frame) pop2(tok token.Token) (top, below Value, err error) {
	top, err = f.pop(tok)
	if err != nil {
		return 0, 0, err
	}
	below, err = f.pop(tok)
	if err != nil {
		return 0, 0, err
	}
	return top, below, nil
}

// popN pops n values and returns them in stack order, deepest first.
func (f *frame) popN(n int, tok token.Token) ([]Value, error) {
	args := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := f.pop(tok)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
