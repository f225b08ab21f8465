package ssa

import (
	"fmt"
	"strings"

	"github.com/spackel-lang/spackel/pkg/ast"
)

// String renders the graph for debug dumps, nested bodies indented.
func (g *Graph) String() string {
	var sb strings.Builder
	g.dump(&sb, "")
	return sb.String()
}

func (g *Graph) dump(sb *strings.Builder, indent string) {
	fmt.Fprintf(sb, "%sinputs:%s\n", indent, formatValues(g.Inputs))
	for _, a := range g.Assignments {
		fmt.Fprintf(sb, "%s%s <- %s%s\n", indent, formatSeq(a.To), opName(a.Op), formatValues(a.Args))
		switch op := a.Op.(type) {
		case OpThen:
			op.Body.dump(sb, indent+"  ")
		case OpThenElse:
			op.Then.dump(sb, indent+"  ")
			fmt.Fprintf(sb, "%selse:\n", indent)
			op.Else.dump(sb, indent+"  ")
		case OpRepeat:
			op.Body.dump(sb, indent+"  ")
		}
	}
	fmt.Fprintf(sb, "%soutputs:%s\n", indent, formatValues(g.Outputs))
}

func opName(op Op) string {
	switch op := op.(type) {
	case OpIns:
		return insName(op.Ins)
	case OpThen:
		return "then"
	case OpThenElse:
		return "then-else"
	case OpRepeat:
		return "repeat"
	case OpDup:
		return "dup"
	case OpDrop:
		return "drop"
	}
	return "?"
}

func insName(ins *ast.Instruction) string {
	switch ins.Kind {
	case ast.InsPushInt:
		return fmt.Sprintf("push %d", ins.Int)
	case ast.InsPushFloat:
		return fmt.Sprintf("push %g", ins.Float)
	case ast.InsPushBool:
		return fmt.Sprintf("push %t", ins.Bool)
	case ast.InsPushType:
		return "push " + ins.Type.String()
	case ast.InsCall:
		return "call " + ins.Callee
	}
	if ins.Tok.Value != "" {
		return ins.Tok.Value
	}
	return fmt.Sprintf("ins(%d)", ins.Kind)
}

func formatValues(vals []Value) string {
	var sb strings.Builder
	for _, v := range vals {
		fmt.Fprintf(&sb, " v%d", v)
	}
	return sb.String()
}

func formatSeq(s ValueSequence) string {
	if s.Count == 0 {
		return "_"
	}
	names := make([]string, s.Count)
	for i := range names {
		names[i] = fmt.Sprintf("v%d", s.At(i))
	}
	return strings.Join(names, ", ")
}
