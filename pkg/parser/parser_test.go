package parser

import (
	"strings"
	"testing"

	"github.com/spackel-lang/spackel/pkg/ast"
	"github.com/spackel-lang/spackel/pkg/config"
	"github.com/spackel-lang/spackel/pkg/lexer"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnEmptyBody, false)
	prog, err := NewParser(lexer.NewLexer([]rune(src), 0).Tokenize(), cfg).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func parseErr(t *testing.T, src string) error {
	t.Helper()
	cfg := config.NewConfig()
	_, err := NewParser(lexer.NewLexer([]rune(src), 0).Tokenize(), cfg).Parse()
	if err == nil {
		t.Fatalf("expected a parse error for %q", src)
	}
	return err
}

func TestTopLevelBecomesMain(t *testing.T) {
	prog := parse(t, "1 2 + println")
	main := prog.Functions["main"]
	if main == nil {
		t.Fatal("no main function")
	}
	if len(main.Body) != 4 {
		t.Fatalf("main body has %d instructions, want 4", len(main.Body))
	}
	kinds := []ast.InsKind{ast.InsPushInt, ast.InsPushInt, ast.InsBinMath, ast.InsPrintln}
	for i, k := range kinds {
		if main.Body[i].Kind != k {
			t.Errorf("instruction %d: kind %d, want %d", i, main.Body[i].Kind, k)
		}
	}
	if prog.Order[len(prog.Order)-1] != "main" {
		t.Errorf("main is not last in order: %v", prog.Order)
	}
}

func TestMainAnchorsOnFirstInstruction(t *testing.T) {
	prog := parse(t, "fn f ( -- ) ;\n1 drop")
	main := prog.Functions["main"]
	if main.Tok.Line != 2 || main.Tok.Column != 1 {
		t.Errorf("main anchored at %d:%d, want 2:1", main.Tok.Line, main.Tok.Column)
	}
}

func TestFunctionDefinition(t *testing.T) {
	prog := parse(t, "fn addmul ( i32 i32 i32 -- i32 ) + * ;")
	fn := prog.Functions["addmul"]
	if fn == nil {
		t.Fatal("function not recorded")
	}
	if len(fn.Sig.Params) != 3 || len(fn.Sig.Results) != 1 {
		t.Fatalf("signature %s, want ( i32 i32 i32 -- i32 )", fn.Sig)
	}
	if len(fn.Body) != 2 {
		t.Fatalf("body has %d instructions, want 2", len(fn.Body))
	}
}

func TestThenElseNesting(t *testing.T) {
	prog := parse(t, "true then ( 1 drop false then ( 2 drop ) ; ) else ( 3 drop ) ;")
	body := prog.Functions["main"].Body
	if len(body) != 2 {
		t.Fatalf("main body has %d instructions, want 2", len(body))
	}
	outer := body[1]
	if outer.Kind != ast.InsThenElse {
		t.Fatalf("kind %d, want then-else", outer.Kind)
	}
	if len(outer.Body) != 4 || len(outer.Else) != 2 {
		t.Fatalf("branch sizes %d/%d, want 4/2", len(outer.Body), len(outer.Else))
	}
	if outer.Body[3].Kind != ast.InsThen {
		t.Errorf("nested construct kind %d, want then", outer.Body[3].Kind)
	}
}

func TestRepeatAndUnsafe(t *testing.T) {
	prog := parse(t, "repeat ( unsafe ( read-ptr drop ) ; true ) ;")
	body := prog.Functions["main"].Body
	if len(body) != 1 || body[0].Kind != ast.InsRepeat {
		t.Fatalf("got %v", body)
	}
	inner := body[0].Body
	if len(inner) != 2 || inner[0].Kind != ast.InsUnsafe {
		t.Fatalf("repeat body %v", inner)
	}
}

func TestMacroExpansion(t *testing.T) {
	prog := parse(t, "macro twice ( dup + ) ; 21 twice println")
	body := prog.Functions["main"].Body
	kinds := []ast.InsKind{ast.InsPushInt, ast.InsDup, ast.InsBinMath, ast.InsPrintln}
	if len(body) != len(kinds) {
		t.Fatalf("main body has %d instructions, want %d", len(body), len(kinds))
	}
	for i, k := range kinds {
		if body[i].Kind != k {
			t.Errorf("instruction %d: kind %d, want %d", i, body[i].Kind, k)
		}
	}
}

func TestMacroUsingMacro(t *testing.T) {
	prog := parse(t, "macro double ( 2 * ) ; macro quad ( double double ) ; 3 quad drop")
	body := prog.Functions["main"].Body
	if len(body) != 6 {
		t.Fatalf("main body has %d instructions, want 6", len(body))
	}
}

func TestRecursiveMacroRejected(t *testing.T) {
	// The name only becomes a macro once its definition is complete, so the
	// cycle needs two of them.
	err := parseErr(t, "macro a ( 1 ) ; macro b ( a b ) ; macro a2 ( b ) ; b")
	if !strings.Contains(err.Error(), "expansion limit") {
		t.Errorf("error %q does not mention the expansion limit", err)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"fn ( -- ) ;",
		"fn f i32 -- i32 ) ;",
		"fn f ( i32 i32 ) ;",
		"fn main ( -- ) ;",
		"fn dup ( -- ) ;",
		"then ( 1",
		"repeat ( 1 ) ",
		"true then ( ) else ( )",
		"else",
		"macro m ( 1 ;",
		"fn f ( -- ) 1 drop ; fn f ( -- ) ;",
		"macro m ( 1 ) ; macro m ( 2 ) ;",
	}
	for _, src := range cases {
		parseErr(t, src)
	}
}

func TestLiteralRange(t *testing.T) {
	parseErr(t, "2147483648")
	prog := parse(t, "2147483647 -2147483648 drop drop")
	body := prog.Functions["main"].Body
	if body[0].Int != 2147483647 || body[1].Int != -2147483648 {
		t.Errorf("got %d and %d", body[0].Int, body[1].Int)
	}
}
