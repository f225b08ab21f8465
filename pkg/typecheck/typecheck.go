package typecheck

import (
	"github.com/spackel-lang/spackel/pkg/ast"
	"github.com/spackel-lang/spackel/pkg/config"
	"github.com/spackel-lang/spackel/pkg/util"
)

// Checker replays every function body against a virtual stack of types. It
// fills in the Generics of type-polymorphic words as a side effect, which is
// what the later stages dispatch on.
type Checker struct {
	cfg    *config.Config
	sigs   map[string]ast.Signature
	called map[string]bool
}

func NewChecker(cfg *config.Config) *Checker {
	return &Checker{cfg: cfg, called: make(map[string]bool)}
}

var (
	tI32  = ast.Type{Kind: ast.TypeI32}
	tF32  = ast.Type{Kind: ast.TypeF32}
	tBool = ast.Type{Kind: ast.TypeBool}
)

func (c *Checker) Check(prog *ast.Program) error {
	c.sigs = make(map[string]ast.Signature, len(prog.Functions))
	for name, fn := range prog.Functions {
		c.sigs[name] = fn.Sig
	}

	for _, name := range prog.Order {
		fn := prog.Functions[name]
		if err := c.checkFunction(fn); err != nil {
			return err
		}
	}

	if c.cfg.IsWarningEnabled(config.WarnUnusedFn) {
		for _, name := range prog.Order {
			if name != "main" && !c.called[name] {
				util.Warnf(prog.Functions[name].Tok, "unused-fn", "function `%s` is never called", name)
			}
		}
	}
	return nil
}

// Signatures returns the signature table built by Check.
func (c *Checker) Signatures() map[string]ast.Signature { return c.sigs }

func (c *Checker) checkFunction(fn *ast.Function) error {
	stack := make([]ast.Type, len(fn.Sig.Params))
	copy(stack, fn.Sig.Params)

	stack, err := c.checkBody(fn.Body, stack, false)
	if err != nil {
		return err
	}

	if len(stack) != len(fn.Sig.Results) {
		return util.Errf(fn.Tok, "function `%s` leaves %d values on the stack but declares %d results",
			fn.Name, len(stack), len(fn.Sig.Results))
	}
	for i, want := range fn.Sig.Results {
		if !stack[i].Equal(want) {
			return util.Errf(fn.Tok, "function `%s` result %d has type %s, declared %s",
				fn.Name, i+1, stack[i], want)
		}
	}
	return nil
}

func (c *Checker) checkBody(body []ast.Instruction, stack []ast.Type, inUnsafe bool) ([]ast.Type, error) {
	var err error
	for i := range body {
		stack, err = c.checkInstruction(&body[i], stack, inUnsafe)
		if err != nil {
			return nil, err
		}
	}
	return stack, nil
}

func (c *Checker) checkInstruction(ins *ast.Instruction, stack []ast.Type, inUnsafe bool) ([]ast.Type, error) {
	switch ins.Kind {
	case ast.InsPushInt:
		return append(stack, tI32), nil
	case ast.InsPushFloat:
		return append(stack, tF32), nil
	case ast.InsPushBool:
		return append(stack, tBool), nil

	case ast.InsPushType, ast.InsTypeOf:
		// Type values exist only at compile time and nothing here consumes
		// them yet, so any occurrence would have to be materialized.
		return nil, util.Errf(ins.Tok, "type values cannot exist at run time")

	case ast.InsCall:
		sig, ok := c.sigs[ins.Callee]
		if !ok {
			return nil, util.Errf(ins.Tok, "unknown word `%s`", ins.Callee)
		}
		c.called[ins.Callee] = true
		for i := len(sig.Params) - 1; i >= 0; i-- {
			var got ast.Type
			var err error
			stack, got, err = c.pop(ins, stack)
			if err != nil {
				return nil, err
			}
			if !got.Equal(sig.Params[i]) {
				return nil, util.Errf(ins.Tok, "`%s` parameter %d has type %s, got %s",
					ins.Callee, i+1, sig.Params[i], got)
			}
		}
		return append(stack, sig.Results...), nil

	case ast.InsBinMath:
		if ins.Math == ast.MathSillyAdd {
			return nil, util.Errf(ins.Tok, "`ß` is deliberately unsupported")
		}
		stack, b, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		stack, a, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		if !a.Equal(b) {
			return nil, util.Errf(ins.Tok, "`%s` operands have mismatched types %s and %s", ins.Tok.Value, a, b)
		}
		if a.Kind != ast.TypeI32 && a.Kind != ast.TypeF32 {
			return nil, util.Errf(ins.Tok, "`%s` needs i32 or f32 operands, got %s", ins.Tok.Value, a)
		}
		if ins.Math == ast.MathRem && a.Kind != ast.TypeI32 {
			return nil, util.Errf(ins.Tok, "`%%` needs i32 operands, got %s", a)
		}
		ins.Generics = []ast.Type{a}
		return append(stack, a), nil

	case ast.InsComparison:
		stack, err := c.popExpect(ins, stack, tI32)
		if err != nil {
			return nil, err
		}
		stack, err = c.popExpect(ins, stack, tI32)
		if err != nil {
			return nil, err
		}
		return append(stack, tBool), nil

	case ast.InsNot:
		stack, err := c.popExpect(ins, stack, tBool)
		if err != nil {
			return nil, err
		}
		return append(stack, tBool), nil

	case ast.InsBinLogic:
		stack, err := c.popExpect(ins, stack, tBool)
		if err != nil {
			return nil, err
		}
		stack, err = c.popExpect(ins, stack, tBool)
		if err != nil {
			return nil, err
		}
		return append(stack, tBool), nil

	case ast.InsPrint, ast.InsPrintln:
		stack, t, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		if t.Kind != ast.TypeI32 && t.Kind != ast.TypeF32 {
			return nil, util.Errf(ins.Tok, "`%s` needs an i32 or f32, got %s", ins.Tok.Value, t)
		}
		ins.Generics = []ast.Type{t}
		return stack, nil

	case ast.InsPrintChar:
		return c.popExpect(ins, stack, tI32)

	case ast.InsSqrt:
		stack, err := c.popExpect(ins, stack, tF32)
		if err != nil {
			return nil, err
		}
		ins.Generics = []ast.Type{tF32}
		return append(stack, tF32), nil

	case ast.InsAddrOf:
		stack, t, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		if t.Kind == ast.TypePtr {
			return nil, util.Errf(ins.Tok, "`addr-of` cannot take the address of a pointer")
		}
		ins.Generics = []ast.Type{t}
		elem := t
		return append(stack, t, ast.Type{Kind: ast.TypePtr, Elem: &elem}), nil

	case ast.InsReadPtr:
		if !inUnsafe {
			return nil, util.Errf(ins.Tok, "`read-ptr` is only allowed inside an `unsafe` block")
		}
		stack, t, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		if t.Kind != ast.TypePtr {
			return nil, util.Errf(ins.Tok, "`read-ptr` needs a pointer, got %s", t)
		}
		ins.Generics = []ast.Type{*t.Elem}
		return append(stack, *t.Elem), nil

	case ast.InsDup:
		stack, t, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		return append(stack, t, t), nil

	case ast.InsDrop:
		stack, _, err := c.pop(ins, stack)
		return stack, err

	case ast.InsSwap:
		stack, b, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		stack, a, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		return append(stack, b, a), nil

	case ast.InsNip:
		stack, b, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		stack, _, err = c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		return append(stack, b), nil

	case ast.InsTuck:
		stack, b, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		stack, a, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		return append(stack, b, a, b), nil

	case ast.InsOver:
		stack, b, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		stack, a, err := c.pop(ins, stack)
		if err != nil {
			return nil, err
		}
		return append(stack, a, b, a), nil

	case ast.InsThen:
		stack, err := c.popExpect(ins, stack, tBool)
		if err != nil {
			return nil, err
		}
		before := snapshot(stack)
		after, err := c.checkBody(ins.Body, stack, inUnsafe)
		if err != nil {
			return nil, err
		}
		if err := sameShape(ins, before, after, "a `then` body must leave the stack unchanged"); err != nil {
			return nil, err
		}
		return after, nil

	case ast.InsThenElse:
		stack, err := c.popExpect(ins, stack, tBool)
		if err != nil {
			return nil, err
		}
		thenStack, err := c.checkBody(ins.Body, snapshot(stack), inUnsafe)
		if err != nil {
			return nil, err
		}
		elseStack, err := c.checkBody(ins.Else, snapshot(stack), inUnsafe)
		if err != nil {
			return nil, err
		}
		if err := sameShape(ins, thenStack, elseStack, "the `then` and `else` bodies must leave the same stack"); err != nil {
			return nil, err
		}
		return thenStack, nil

	case ast.InsRepeat:
		before := snapshot(stack)
		after, err := c.checkBody(ins.Body, stack, inUnsafe)
		if err != nil {
			return nil, err
		}
		if len(after) != len(before)+1 {
			return nil, util.Errf(ins.Tok, "a `repeat` body must add exactly one bool to the stack")
		}
		cond := after[len(after)-1]
		if !cond.Equal(tBool) {
			return nil, util.Errf(ins.Tok, "a `repeat` body must leave a bool on top, got %s", cond)
		}
		if err := sameShape(ins, before, after[:len(after)-1], "a `repeat` body must preserve the stack below its condition"); err != nil {
			return nil, err
		}
		return after[:len(after)-1], nil

	case ast.InsUnsafe:
		return c.checkBody(ins.Body, stack, true)
	}

	util.ICE("unhandled instruction kind %d", ins.Kind)
	return nil, nil
}

func (c *Checker) pop(ins *ast.Instruction, stack []ast.Type) ([]ast.Type, ast.Type, error) {
	if len(stack) == 0 {
		return nil, ast.Type{}, util.Errf(ins.Tok, "stack underflow at `%s`", ins.Tok.Value)
	}
	return stack[:len(stack)-1], stack[len(stack)-1], nil
}

func (c *Checker) popExpect(ins *ast.Instruction, stack []ast.Type, want ast.Type) ([]ast.Type, error) {
	stack, got, err := c.pop(ins, stack)
	if err != nil {
		return nil, err
	}
	if !got.Equal(want) {
		return nil, util.Errf(ins.Tok, "`%s` needs a %s, got %s", ins.Tok.Value, want, got)
	}
	return stack, nil
}

func snapshot(stack []ast.Type) []ast.Type {
	out := make([]ast.Type, len(stack))
	copy(out, stack)
	return out
}

func sameShape(ins *ast.Instruction, a, b []ast.Type, msg string) error {
	if len(a) != len(b) {
		return util.Errf(ins.Tok, "%s (%d values vs %d)", msg, len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return util.Errf(ins.Tok, "%s (%s vs %s at depth %d)", msg, a[i], b[i], len(a)-i)
		}
	}
	return nil
}
