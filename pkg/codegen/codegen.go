package codegen

import (
	"fmt"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/spackel-lang/spackel/pkg/ast"
	"github.com/spackel-lang/spackel/pkg/config"
	"github.com/spackel-lang/spackel/pkg/ssa"
	"github.com/spackel-lang/spackel/pkg/util"
)

// Compiler lowers dataflow graphs into an LLVM module. Each ssa.Value is
// bound to its LLVM value exactly once and taken off the map by its single
// consumer, so a double use or a missing definition trips immediately.
type Compiler struct {
	cfg     *config.Config
	mod     *ir.Module
	gen     *ssa.ValueGenerator
	sigs    map[string]ast.Signature
	funcs   map[string]*ir.Func
	externs map[string]*ir.Func
	values  map[ssa.Value]value.Value

	fn      *ir.Func
	entry   *ir.Block
	block   *ir.Block
	nblocks int
}

// Compile lowers a whole checked program.
func Compile(prog *ast.Program, sigs map[string]ast.Signature, cfg *config.Config) (*ir.Module, error) {
	c := &Compiler{
		cfg:     cfg,
		mod:     ir.NewModule(),
		gen:     &ssa.ValueGenerator{},
		sigs:    sigs,
		funcs:   make(map[string]*ir.Func),
		externs: make(map[string]*ir.Func),
	}
	c.mod.TargetTriple = cfg.TargetTriple

	for _, name := range prog.Order {
		fn := prog.Functions[name]
		f := c.mod.NewFunc(symbolName(name), loweredReturn(name, fn.Sig.Results), loweredParams(fn.Sig.Params)...)
		if name != "main" {
			f.Linkage = enum.LinkageInternal
		}
		c.funcs[name] = f
	}

	for _, name := range prog.Order {
		if err := c.compileFunction(prog.Functions[name]); err != nil {
			return nil, err
		}
	}
	return c.mod, nil
}

func (c *Compiler) compileFunction(fn *ast.Function) error {
	graph, err := ssa.Build(fn, c.sigs, c.gen)
	if err != nil {
		return err
	}
	if c.cfg.DumpSSA || os.Getenv("SPKL_DUMP_SSA") != "" {
		fmt.Fprintf(os.Stderr, "%s:\n%s", fn.Name, graph)
	}

	f := c.funcs[fn.Name]
	c.fn = f
	c.entry = f.NewBlock("entry")
	c.block = c.entry
	c.values = make(map[ssa.Value]value.Value)

	for i, param := range f.Params {
		c.set(graph.Inputs[i], param)
	}

	for _, asg := range graph.Assignments {
		c.assignment(asg)
	}

	outs := make([]value.Value, 0, len(graph.Outputs)+1)
	for _, out := range graph.Outputs {
		outs = append(outs, c.take(out))
	}
	if fn.Name == "main" {
		outs = append(outs, constant.NewInt(types.I32, 0))
	}

	switch len(outs) {
	case 0:
		c.block.NewRet(nil)
	case 1:
		c.block.NewRet(outs[0])
	default:
		var agg value.Value = constant.NewUndef(f.Sig.RetType)
		for i, out := range outs {
			agg = c.block.NewInsertValue(agg, out, uint64(i))
		}
		c.block.NewRet(agg)
	}

	if len(c.values) != 0 {
		util.ICE("%d values left unconsumed after lowering `%s`", len(c.values), fn.Name)
	}
	return nil
}

func (c *Compiler) assignment(a ssa.Assignment) {
	switch op := a.Op.(type) {
	case ssa.OpDup:
		v := c.take(a.Args[0])
		c.set(a.To.At(0), v)
		c.set(a.To.At(1), v)
	case ssa.OpDrop:
		c.take(a.Args[0])
	case ssa.OpThen:
		c.lowerThen(a.To, a.Args, op.Body)
	case ssa.OpThenElse:
		c.lowerThenElse(a.To, a.Args, op.Then, op.Else)
	case ssa.OpRepeat:
		c.lowerRepeat(a.To, a.Args, op.Body)
	case ssa.OpIns:
		c.lowerIns(a.To, a.Args, op.Ins)
	default:
		util.ICE("unknown op %T", a.Op)
	}
}

func (c *Compiler) lowerIns(to ssa.ValueSequence, args []ssa.Value, ins *ast.Instruction) {
	switch ins.Kind {
	case ast.InsPushInt:
		c.set(to.At(0), constant.NewInt(types.I32, int64(ins.Int)))
	case ast.InsPushFloat:
		c.set(to.At(0), constant.NewFloat(types.Float, float64(ins.Float)))
	case ast.InsPushBool:
		n := int64(0)
		if ins.Bool {
			n = 1
		}
		c.set(to.At(0), constant.NewInt(types.I8, n))

	case ast.InsPushType, ast.InsTypeOf:
		util.ICE("type value materialized at run time")

	case ast.InsCall:
		callee := c.funcs[ins.Callee]
		callArgs := make([]value.Value, len(args))
		for i, arg := range args {
			callArgs[i] = c.take(arg)
		}
		result := c.block.NewCall(callee, callArgs...)
		switch to.Len() {
		case 0:
		case 1:
			c.set(to.At(0), result)
		default:
			for i := 0; i < to.Len(); i++ {
				c.set(to.At(i), c.block.NewExtractValue(result, uint64(i)))
			}
		}

	case ast.InsBinMath:
		y := c.take(args[1])
		x := c.take(args[0])
		isFloat := len(ins.Generics) > 0 && ins.Generics[0].Kind == ast.TypeF32
		var result value.Value
		switch {
		case isFloat && ins.Math == ast.MathAdd:
			result = c.block.NewFAdd(x, y)
		case isFloat && ins.Math == ast.MathSub:
			result = c.block.NewFSub(x, y)
		case isFloat && ins.Math == ast.MathMul:
			result = c.block.NewFMul(x, y)
		case isFloat && ins.Math == ast.MathDiv:
			result = c.block.NewFDiv(x, y)
		case ins.Math == ast.MathAdd:
			result = c.block.NewAdd(x, y)
		case ins.Math == ast.MathSub:
			result = c.block.NewSub(x, y)
		case ins.Math == ast.MathMul:
			result = c.block.NewMul(x, y)
		case ins.Math == ast.MathDiv:
			result = c.block.NewSDiv(x, y)
		case ins.Math == ast.MathRem:
			result = c.block.NewSRem(x, y)
		default:
			util.ICE("`ß` survived to lowering")
		}
		c.set(to.At(0), result)

	case ast.InsComparison:
		y := c.take(args[1])
		x := c.take(args[0])
		var pred enum.IPred
		switch ins.Cmp {
		case ast.CmpLt:
			pred = enum.IPredSLT
		case ast.CmpLe:
			pred = enum.IPredSLE
		case ast.CmpEq:
			pred = enum.IPredEQ
		case ast.CmpGe:
			pred = enum.IPredSGE
		case ast.CmpGt:
			pred = enum.IPredSGT
		}
		bit := c.block.NewICmp(pred, x, y)
		c.set(to.At(0), c.block.NewZExt(bit, types.I8))

	case ast.InsNot:
		x := c.take(args[0])
		c.set(to.At(0), c.block.NewXor(x, constant.NewInt(types.I8, 1)))

	case ast.InsBinLogic:
		y := c.take(args[1])
		x := c.take(args[0])
		var result value.Value
		switch ins.Logic {
		case ast.LogicAnd:
			result = c.block.NewAnd(x, y)
		case ast.LogicOr:
			result = c.block.NewOr(x, y)
		case ast.LogicXor:
			result = c.block.NewXor(x, y)
		case ast.LogicNand:
			result = c.block.NewXor(c.block.NewAnd(x, y), constant.NewInt(types.I8, 1))
		case ast.LogicNor:
			result = c.block.NewXor(c.block.NewOr(x, y), constant.NewInt(types.I8, 1))
		case ast.LogicXnor:
			result = c.block.NewXor(c.block.NewXor(x, y), constant.NewInt(types.I8, 1))
		}
		c.set(to.At(0), result)

	case ast.InsPrint, ast.InsPrintln:
		name := "spkl_print_i32"
		argType := types.Type(types.I32)
		if ins.Generics[0].Kind == ast.TypeF32 {
			name = "spkl_print_f32"
			argType = types.Float
		}
		if ins.Kind == ast.InsPrintln {
			name = "spkl_println_" + name[len("spkl_print_"):]
		}
		c.block.NewCall(c.extern(name, types.Void, argType), c.take(args[0]))

	case ast.InsPrintChar:
		c.block.NewCall(c.extern("spkl_print_char", types.Void, types.I32), c.take(args[0]))

	case ast.InsSqrt:
		c.set(to.At(0), c.block.NewCall(c.extern("llvm.sqrt.f32", types.Float, types.Float), c.take(args[0])))

	case ast.InsAddrOf:
		t := loweredType(ins.Generics[0])
		slot := c.entry.NewAlloca(t)
		v := c.take(args[0])
		c.block.NewStore(v, slot)
		c.set(to.At(0), v)
		c.set(to.At(1), slot)

	case ast.InsReadPtr:
		// The pointer is trusted not to alias anything the compiler reasons
		// about; `unsafe` is the user's promise.
		t := loweredType(ins.Generics[0])
		c.set(to.At(0), c.block.NewLoad(t, c.take(args[0])))

	default:
		util.ICE("instruction `%s` survived to lowering", ins.Tok.Value)
	}
}

// lowerThen emits:
//
//	pre:    br cond, then, after
//	then:   body, br after
//	after:  one phi per result, pass-through from pre
func (c *Compiler) lowerThen(to ssa.ValueSequence, args []ssa.Value, body *ssa.Graph) {
	cond := args[len(args)-1]
	operands := args[:len(args)-1]

	vals := make([]value.Value, len(operands))
	for i, arg := range operands {
		vals[i] = c.take(arg)
		c.set(body.Inputs[i], vals[i])
	}

	id := c.nextBlockID()
	thenBlk := c.fn.NewBlock(fmt.Sprintf("then.%d", id))
	afterBlk := c.fn.NewBlock(fmt.Sprintf("after.%d", id))

	pre := c.block
	pre.NewCondBr(c.truthy(c.take(cond)), thenBlk, afterBlk)

	c.block = thenBlk
	for _, asg := range body.Assignments {
		c.assignment(asg)
	}
	outs := make([]value.Value, len(body.Outputs))
	for i, out := range body.Outputs {
		outs[i] = c.take(out)
	}
	taken := c.block
	taken.NewBr(afterBlk)

	c.block = afterBlk
	for i := 0; i < to.Len(); i++ {
		phi := afterBlk.NewPhi(ir.NewIncoming(vals[i], pre), ir.NewIncoming(outs[i], taken))
		c.set(to.At(i), phi)
	}
}

func (c *Compiler) lowerThenElse(to ssa.ValueSequence, args []ssa.Value, thenG, elseG *ssa.Graph) {
	cond := args[len(args)-1]
	operands := args[:len(args)-1]

	for i, arg := range operands {
		v := c.take(arg)
		c.set(thenG.Inputs[i], v)
		c.set(elseG.Inputs[i], v)
	}

	id := c.nextBlockID()
	thenBlk := c.fn.NewBlock(fmt.Sprintf("then.%d", id))
	elseBlk := c.fn.NewBlock(fmt.Sprintf("else.%d", id))
	mergeBlk := c.fn.NewBlock(fmt.Sprintf("merge.%d", id))

	c.block.NewCondBr(c.truthy(c.take(cond)), thenBlk, elseBlk)

	c.block = thenBlk
	for _, asg := range thenG.Assignments {
		c.assignment(asg)
	}
	thenOuts := make([]value.Value, len(thenG.Outputs))
	for i, out := range thenG.Outputs {
		thenOuts[i] = c.take(out)
	}
	thenPred := c.block
	thenPred.NewBr(mergeBlk)

	c.block = elseBlk
	for _, asg := range elseG.Assignments {
		c.assignment(asg)
	}
	elseOuts := make([]value.Value, len(elseG.Outputs))
	for i, out := range elseG.Outputs {
		elseOuts[i] = c.take(out)
	}
	elsePred := c.block
	elsePred.NewBr(mergeBlk)

	c.block = mergeBlk
	for i := 0; i < to.Len(); i++ {
		phi := mergeBlk.NewPhi(ir.NewIncoming(thenOuts[i], thenPred), ir.NewIncoming(elseOuts[i], elsePred))
		c.set(to.At(i), phi)
	}
}

// lowerRepeat seeds one loop-header phi per carried value from the entry
// edge and closes it from the backedge once the body has been walked.
func (c *Compiler) lowerRepeat(to ssa.ValueSequence, args []ssa.Value, body *ssa.Graph) {
	vals := make([]value.Value, len(args))
	for i, arg := range args {
		vals[i] = c.take(arg)
	}

	id := c.nextBlockID()
	loopBlk := c.fn.NewBlock(fmt.Sprintf("loop.%d", id))
	afterBlk := c.fn.NewBlock(fmt.Sprintf("after.%d", id))

	pre := c.block
	pre.NewBr(loopBlk)

	c.block = loopBlk
	phis := make([]*ir.InstPhi, len(args))
	for i := range args {
		phis[i] = loopBlk.NewPhi(ir.NewIncoming(vals[i], pre))
		c.set(body.Inputs[i], phis[i])
	}

	for _, asg := range body.Assignments {
		c.assignment(asg)
	}

	n := len(body.Outputs)
	carried := make([]value.Value, n-1)
	for i := 0; i < n-1; i++ {
		carried[i] = c.take(body.Outputs[i])
	}
	cond := c.take(body.Outputs[n-1])

	backPred := c.block
	backPred.NewCondBr(c.truthy(cond), loopBlk, afterBlk)
	for i := range phis {
		phis[i].Incs = append(phis[i].Incs, ir.NewIncoming(carried[i], backPred))
	}

	c.block = afterBlk
	for i := 0; i < to.Len(); i++ {
		c.set(to.At(i), carried[i])
	}
}

// truthy narrows a stored bool to the i1 a branch needs.
func (c *Compiler) truthy(v value.Value) value.Value {
	return c.block.NewICmp(enum.IPredNE, v, constant.NewInt(types.I8, 0))
}

func (c *Compiler) extern(name string, ret types.Type, params ...types.Type) *ir.Func {
	if f, ok := c.externs[name]; ok {
		return f
	}
	ps := make([]*ir.Param, len(params))
	for i, p := range params {
		ps[i] = ir.NewParam("", p)
	}
	f := c.mod.NewFunc(name, ret, ps...)
	c.externs[name] = f
	return f
}

func (c *Compiler) nextBlockID() int {
	id := c.nblocks
	c.nblocks++
	return id
}

func (c *Compiler) take(v ssa.Value) value.Value {
	val, ok := c.values[v]
	if !ok {
		util.ICE("value v%d consumed twice or never defined", v)
	}
	delete(c.values, v)
	return val
}

func (c *Compiler) set(v ssa.Value, val value.Value) {
	if _, exists := c.values[v]; exists {
		util.ICE("value v%d defined twice", v)
	}
	c.values[v] = val
}
