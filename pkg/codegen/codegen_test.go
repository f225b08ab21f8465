package codegen_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/spackel-lang/spackel/pkg/codegen"
	"github.com/spackel-lang/spackel/pkg/config"
	"github.com/spackel-lang/spackel/pkg/lexer"
	"github.com/spackel-lang/spackel/pkg/parser"
	"github.com/spackel-lang/spackel/pkg/typecheck"
)

// lower runs a source string through the whole pipeline and returns the
// rendered LLVM IR.
func lower(t *testing.T, src string) string {
	t.Helper()
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnUnusedFn, false)
	cfg.SetWarning(config.WarnEmptyBody, false)
	prog, err := parser.NewParser(lexer.NewLexer([]rune(src), 0).Tokenize(), cfg).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	checker := typecheck.NewChecker(cfg)
	if err := checker.Check(prog); err != nil {
		t.Fatalf("check error: %v", err)
	}
	mod, err := codegen.Compile(prog, checker.Signatures(), cfg)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return mod.String()
}

func wantIR(t *testing.T, ll string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(ll, w) {
			t.Errorf("IR missing %q:\n%s", w, ll)
		}
	}
}

func TestMainSkeleton(t *testing.T) {
	ll := lower(t, "1 2 + println")
	wantIR(t, ll,
		"define i32 @main()",
		"add i32",
		"call void @spkl_println_i32",
		"ret i32 0",
	)
	if strings.Contains(ll, "define internal i32 @main") {
		t.Error("main must not be internal")
	}
}

func TestEmptyMainStillExits(t *testing.T) {
	wantIR(t, lower(t, ""), "define i32 @main()", "ret i32 0")
}

func TestExternsAreMemoized(t *testing.T) {
	ll := lower(t, "1 println 2 println 3 println")
	if n := strings.Count(ll, "declare void @spkl_println_i32"); n != 1 {
		t.Errorf("spkl_println_i32 declared %d times, want 1", n)
	}
}

func TestPrintFamily(t *testing.T) {
	ll := lower(t, "1 print 1 println 1.0 print 1.0 println 72 print-char")
	wantIR(t, ll,
		"declare void @spkl_print_i32",
		"declare void @spkl_println_i32",
		"declare void @spkl_print_f32",
		"declare void @spkl_println_f32",
		"declare void @spkl_print_char",
	)
}

func TestThenLowering(t *testing.T) {
	ll := lower(t, "5 dup 0 > then ( 10 + ) ; println")
	wantIR(t, ll,
		"icmp sgt i32",
		"icmp ne i8",
		"br i1",
		"then.0",
		"after.0",
		"phi i32",
	)
}

func TestThenElseLowering(t *testing.T) {
	ll := lower(t, "1 2 < then ( 1 ) else ( 2 ) ; println")
	wantIR(t, ll,
		"icmp slt i32",
		"then.0",
		"else.0",
		"merge.0",
		"phi i32",
	)
}

func TestRepeatLowering(t *testing.T) {
	ll := lower(t, "5 repeat ( 1 - dup 0 > ) ; drop")
	wantIR(t, ll, "loop.0", "after.0", "phi i32", "br i1")
	// Entry edge and backedge both reach the loop header.
	if n := strings.Count(ll, "label %loop.0"); n != 2 {
		t.Errorf("loop.0 is a branch target %d times, want 2", n)
	}
}

func TestFunctionCalls(t *testing.T) {
	ll := lower(t, "fn square ( i32 -- i32 ) dup * ; 7 square println")
	wantIR(t, ll,
		"define internal i32 @fn.square(i32",
		"mul i32",
		"call i32 @fn.square",
	)
}

func TestMultipleResults(t *testing.T) {
	ll := lower(t, "fn pair ( -- i32 i32 ) 1 2 ; pair + println")
	wantIR(t, ll,
		"{ i32, i32 }",
		"insertvalue",
		"extractvalue",
	)
}

func TestBoolLowering(t *testing.T) {
	ll := lower(t, "true false and not then ( 1 println ) ;")
	wantIR(t, ll, "and i8", "xor i8")
}

func TestLogicGates(t *testing.T) {
	ll := lower(t, "true false nand true nor true xnor drop")
	// The negated gates are the plain gate followed by an i8 flip.
	if n := strings.Count(ll, "xor i8"); n < 3 {
		t.Errorf("got %d i8 flips, want at least 3", n)
	}
	wantIR(t, ll, "and i8", "or i8")
}

func TestFloatLowering(t *testing.T) {
	ll := lower(t, "1.5 2.5 + println 2.0 sqrt println")
	wantIR(t, ll,
		"fadd float",
		"declare float @llvm.sqrt.f32(float",
		"call float @llvm.sqrt.f32",
		"call void @spkl_println_f32",
	)
}

func TestPointerLowering(t *testing.T) {
	ll := lower(t, "7 addr-of unsafe ( read-ptr ) ; + println")
	wantIR(t, ll, "alloca i32", "store i32", "load i32")
}

func TestAllocaStaysInEntry(t *testing.T) {
	// The address is taken inside a branch; its slot must still live in the
	// entry block so the stack frame is fixed.
	ll := lower(t, "true then ( 7 addr-of unsafe ( read-ptr ) ; drop drop ) ;")
	entry := ll[strings.Index(ll, "entry:"):]
	entry = entry[:strings.Index(entry, "then.0:")]
	if !strings.Contains(entry, "alloca i32") {
		t.Errorf("alloca not in the entry block:\n%s", ll)
	}
}

// Random well-formed i32 programs, with enough control constructs to stress
// the take-once value map across blocks. Lowering must never trip its
// internal consistency panics, whatever shape comes in.
func TestRandomStreamLowering(t *testing.T) {
	rng := rand.New(rand.NewSource(0x51ac))
	type word struct {
		text     string
		min, out int // minimum depth and depth delta
	}
	words := []word{
		{"1", 0, 1},
		{"7", 0, 1},
		{"+", 2, -1},
		{"*", 2, -1},
		{"dup", 1, 1},
		{"drop", 1, -1},
		{"swap", 2, 0},
		{"nip", 2, -1},
		{"tuck", 2, 1},
		{"over", 2, 1},
		{"println", 1, -1},
		{"dup 0 > then ( 1 + ) ;", 1, 0},
		{"0 = then ( 1 ) else ( 2 ) ;", 1, 0},
		{"0 < then ( swap ) ;", 3, -1},
		{"repeat ( 1 - dup 0 > ) ;", 1, 0},
	}
	for round := 0; round < 100; round++ {
		var sb strings.Builder
		depth := 0
		for n := 0; n < 40; n++ {
			w := words[rng.Intn(len(words))]
			if depth < w.min {
				continue
			}
			sb.WriteString(w.text)
			sb.WriteByte(' ')
			depth += w.out
		}
		for ; depth > 0; depth-- {
			sb.WriteString("drop ")
		}
		src := sb.String()
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("round %d: lowering panicked on %q: %v", round, src, r)
				}
			}()
			ll := lower(t, src)
			if !strings.Contains(ll, "define i32 @main()") {
				t.Errorf("round %d: no main in lowered module", round)
			}
		}()
	}
}

func TestTargetTriple(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnUnusedFn, false)
	cfg.SetTarget("linux", "amd64", "x86_64-unknown-linux-gnu")
	prog, err := parser.NewParser(lexer.NewLexer([]rune("1 println"), 0).Tokenize(), cfg).Parse()
	if err != nil {
		t.Fatal(err)
	}
	checker := typecheck.NewChecker(cfg)
	if err := checker.Check(prog); err != nil {
		t.Fatal(err)
	}
	mod, err := codegen.Compile(prog, checker.Signatures(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(mod.String(), "target triple") {
		t.Errorf("no target triple in module:\n%s", mod.String())
	}
}
