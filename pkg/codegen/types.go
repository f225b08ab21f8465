package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/spackel-lang/spackel/pkg/ast"
	"github.com/spackel-lang/spackel/pkg/util"
)

// loweredType maps a source type onto its LLVM representation. Bools are
// stored as i8 and only narrowed to i1 at branches.
func loweredType(t ast.Type) types.Type {
	switch t.Kind {
	case ast.TypeI32:
		return types.I32
	case ast.TypeF32:
		return types.Float
	case ast.TypeBool:
		return types.I8
	case ast.TypePtr:
		return types.NewPointer(loweredType(*t.Elem))
	case ast.TypeType:
		util.ICE("type value materialized at run time")
	}
	util.ICE("unknown type kind %d", t.Kind)
	return nil
}

// loweredReturn folds a result list into a single LLVM return type: void for
// none, the bare type for one, a literal struct otherwise. main gets an
// appended i32 exit code.
func loweredReturn(name string, results []ast.Type) types.Type {
	var members []types.Type
	for _, r := range results {
		members = append(members, loweredType(r))
	}
	if name == "main" {
		members = append(members, types.I32)
	}
	switch len(members) {
	case 0:
		return types.Void
	case 1:
		return members[0]
	default:
		return types.NewStruct(members...)
	}
}

func loweredParams(params []ast.Type) []*ir.Param {
	out := make([]*ir.Param, len(params))
	for i, p := range params {
		out[i] = ir.NewParam("", loweredType(p))
	}
	return out
}

// symbolName picks the object-file symbol for a function. main keeps its
// exported name; everything else is internal and namespaced away from the
// runtime's spkl_ externs.
func symbolName(name string) string {
	if name == "main" {
		return "main"
	}
	return "fn." + name
}
