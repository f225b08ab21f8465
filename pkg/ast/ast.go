package ast

import (
	"strings"

	"github.com/spackel-lang/spackel/pkg/token"
)

type TypeKind int

const (
	TypeI32 TypeKind = iota
	TypeF32
	TypeBool
	TypeType // compile-time only, never materialized
	TypePtr
)

type Type struct {
	Kind TypeKind
	Elem *Type // pointee, for TypePtr
}

func (t Type) String() string {
	switch t.Kind {
	case TypeI32:
		return "i32"
	case TypeF32:
		return "f32"
	case TypeBool:
		return "bool"
	case TypeType:
		return "type"
	case TypePtr:
		return "ptr[" + t.Elem.String() + "]"
	}
	return "?"
}

func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind == TypePtr {
		return t.Elem.Equal(*other.Elem)
	}
	return true
}

func TypeByName(name string) (Type, bool) {
	switch name {
	case "i32":
		return Type{Kind: TypeI32}, true
	case "f32":
		return Type{Kind: TypeF32}, true
	case "bool":
		return Type{Kind: TypeBool}, true
	}
	return Type{}, false
}

type MathOp int

const (
	MathAdd MathOp = iota
	MathSub
	MathMul
	MathDiv
	MathRem
	MathSillyAdd // `ß`, accepted by the parser and rejected by the checker
)

type CmpOp int

const (
	CmpLt CmpOp = iota
	CmpLe
	CmpEq
	CmpGe
	CmpGt
)

type LogicOp int

const (
	LogicAnd LogicOp = iota
	LogicOr
	LogicXor
	LogicNand
	LogicNor
	LogicXnor
)

type InsKind int

const (
	InsPushInt InsKind = iota
	InsPushFloat
	InsPushBool
	InsPushType
	InsCall
	InsBinMath
	InsComparison
	InsNot
	InsBinLogic
	InsPrint
	InsPrintln
	InsPrintChar
	InsSqrt
	InsTypeOf
	InsAddrOf
	InsReadPtr
	InsDup
	InsDrop
	InsSwap
	InsNip
	InsTuck
	InsOver
	InsThen
	InsThenElse
	InsRepeat
	InsUnsafe
)

// Instruction is one word of a body after parsing. The type checker fills in
// Generics for the type-polymorphic words.
type Instruction struct {
	Kind  InsKind
	Tok   token.Token
	Int   int32
	Float float32
	Bool  bool
	Type  Type
	Math  MathOp
	Cmp   CmpOp
	Logic LogicOp

	Callee string

	Body []Instruction
	Else []Instruction

	Generics []Type
}

// WordMap classifies the fixed instruction words. Anything not listed here
// (and not a literal or keyword) parses as a call.
var WordMap = map[string]Instruction{
	"+":          {Kind: InsBinMath, Math: MathAdd},
	"-":          {Kind: InsBinMath, Math: MathSub},
	"*":          {Kind: InsBinMath, Math: MathMul},
	"/":          {Kind: InsBinMath, Math: MathDiv},
	"%":          {Kind: InsBinMath, Math: MathRem},
	"ß":          {Kind: InsBinMath, Math: MathSillyAdd},
	"<":          {Kind: InsComparison, Cmp: CmpLt},
	"<=":         {Kind: InsComparison, Cmp: CmpLe},
	"=":          {Kind: InsComparison, Cmp: CmpEq},
	">=":         {Kind: InsComparison, Cmp: CmpGe},
	">":          {Kind: InsComparison, Cmp: CmpGt},
	"not":        {Kind: InsNot},
	"and":        {Kind: InsBinLogic, Logic: LogicAnd},
	"or":         {Kind: InsBinLogic, Logic: LogicOr},
	"xor":        {Kind: InsBinLogic, Logic: LogicXor},
	"nand":       {Kind: InsBinLogic, Logic: LogicNand},
	"nor":        {Kind: InsBinLogic, Logic: LogicNor},
	"xnor":       {Kind: InsBinLogic, Logic: LogicXnor},
	"print":      {Kind: InsPrint},
	"println":    {Kind: InsPrintln},
	"print-char": {Kind: InsPrintChar},
	"sqrt":       {Kind: InsSqrt},
	"typeof":     {Kind: InsTypeOf},
	"addr-of":    {Kind: InsAddrOf},
	"read-ptr":   {Kind: InsReadPtr},
	"dup":        {Kind: InsDup},
	"drop":       {Kind: InsDrop},
	"swap":       {Kind: InsSwap},
	"nip":        {Kind: InsNip},
	"tuck":       {Kind: InsTuck},
	"over":       {Kind: InsOver},
}

type Signature struct {
	Params  []Type
	Results []Type
}

func (s Signature) String() string {
	var sb strings.Builder
	sb.WriteString("( ")
	for _, p := range s.Params {
		sb.WriteString(p.String())
		sb.WriteByte(' ')
	}
	sb.WriteString("-- ")
	for _, r := range s.Results {
		sb.WriteString(r.String())
		sb.WriteByte(' ')
	}
	sb.WriteByte(')')
	return sb.String()
}

type Function struct {
	Name string
	Tok  token.Token
	Sig  Signature
	Body []Instruction
}

// Program is the parsed compilation unit. Top-level instructions outside any
// definition form the body of main.
type Program struct {
	Functions map[string]*Function
	Order     []string // definition order, main last
}
