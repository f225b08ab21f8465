package token

type Type int

const (
	EOF Type = iota
	Word
	Int
	Float
	Bool
	TypeName
	LParen
	RParen
	Semi
	Arrow // the `--` separator inside a signature
	Fn
	Macro
	Then
	Else
	Repeat
	Unsafe
)

var KeywordMap = map[string]Type{
	"fn":     Fn,
	"macro":  Macro,
	"then":   Then,
	"else":   Else,
	"repeat": Repeat,
	"unsafe": Unsafe,
	"(":      LParen,
	")":      RParen,
	";":      Semi,
	"--":     Arrow,
	"true":   Bool,
	"false":  Bool,
	"i32":    TypeName,
	"f32":    TypeName,
	"bool":   TypeName,
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
