package lexer

import (
	"testing"

	"github.com/spackel-lang/spackel/pkg/token"
)

func lex(src string) []token.Token {
	return NewLexer([]rune(src), 0).Tokenize()
}

func TestTokenKinds(t *testing.T) {
	toks := lex("fn foo ( i32 -- bool ) 1 2.5 true then else repeat unsafe ; + swap")
	want := []token.Type{
		token.Fn, token.Word, token.LParen, token.TypeName, token.Arrow,
		token.TypeName, token.RParen, token.Int, token.Float, token.Bool,
		token.Then, token.Else, token.Repeat, token.Unsafe, token.Semi,
		token.Word, token.Word,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d (%q): type %d, want %d", i, toks[i].Value, toks[i].Type, w)
		}
	}
}

func TestComments(t *testing.T) {
	toks := lex("# a comment\n42 # trailing\n# last line")
	if len(toks) != 1 {
		t.Fatalf("got %d tokens, want 1", len(toks))
	}
	if toks[0].Type != token.Int || toks[0].Value != "42" {
		t.Errorf("got %v, want Int 42", toks[0])
	}
	if toks[0].Line != 2 {
		t.Errorf("line = %d, want 2", toks[0].Line)
	}
}

func TestPositions(t *testing.T) {
	toks := lex("ab cd\n  ef")
	if toks[0].Line != 1 || toks[0].Column != 1 {
		t.Errorf("ab at %d:%d, want 1:1", toks[0].Line, toks[0].Column)
	}
	if toks[1].Line != 1 || toks[1].Column != 4 {
		t.Errorf("cd at %d:%d, want 1:4", toks[1].Line, toks[1].Column)
	}
	if toks[2].Line != 2 || toks[2].Column != 3 {
		t.Errorf("ef at %d:%d, want 2:3", toks[2].Line, toks[2].Column)
	}
	if toks[0].Len != 2 {
		t.Errorf("ab len = %d, want 2", toks[0].Len)
	}
}

func TestNumbers(t *testing.T) {
	cases := []struct {
		src  string
		want token.Type
	}{
		{"5", token.Int},
		{"-5", token.Int},
		{"0", token.Int},
		{"2.5", token.Float},
		{"-2.5", token.Float},
		{".5", token.Float},
		{"5.", token.Float},
		{"-", token.Word},
		{"--", token.Arrow},
		{"5x", token.Word},
		{"1.2.3", token.Word},
	}
	for _, c := range cases {
		toks := lex(c.src)
		if len(toks) != 1 || toks[0].Type != c.want {
			t.Errorf("%q: got %v, want type %d", c.src, toks, c.want)
		}
	}
}

func TestUnicodeWords(t *testing.T) {
	toks := lex("ß print")
	if len(toks) != 2 || toks[0].Type != token.Word || toks[0].Value != "ß" {
		t.Fatalf("got %v", toks)
	}
}
