package cli

import (
	"strings"
	"testing"
)

func TestParseBasics(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	var dump bool
	var linkerArgs []string
	fs.String(&out, "output", "o", "a.out", "Output file", "file")
	fs.Bool(&dump, "dump-ssa", "d", false, "Dump graphs")
	fs.List(&linkerArgs, "linker-arg", "L", "Pass an argument to the linker", "arg")

	err := fs.Parse([]string{"-o", "prog", "--dump-ssa", "-L", "-lm", "-L=-static", "input.spkl"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "prog" {
		t.Errorf("output = %q, want prog", out)
	}
	if !dump {
		t.Error("dump-ssa not set")
	}
	if len(linkerArgs) != 2 || linkerArgs[0] != "-lm" || linkerArgs[1] != "-static" {
		t.Errorf("linker args %v", linkerArgs)
	}
	if args := fs.Args(); len(args) != 1 || args[0] != "input.spkl" {
		t.Errorf("positional args %v", args)
	}
}

func TestParseDefaults(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	fs.String(&out, "output", "o", "a.out", "Output file", "file")
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if out != "a.out" {
		t.Errorf("output = %q, want the default", out)
	}
}

func TestParseInlineAndEquals(t *testing.T) {
	fs := NewFlagSet("test")
	var target string
	var dump bool
	fs.String(&target, "target", "t", "", "Target triple", "triple")
	fs.Bool(&dump, "dump-ssa", "", false, "Dump graphs")
	if err := fs.Parse([]string{"--target=x86_64-unknown-linux-gnu", "--dump-ssa=false"}); err != nil {
		t.Fatal(err)
	}
	if target != "x86_64-unknown-linux-gnu" {
		t.Errorf("target = %q", target)
	}
	if dump {
		t.Error("dump-ssa should be explicitly false")
	}
}

func TestParseTerminator(t *testing.T) {
	fs := NewFlagSet("test")
	var dump bool
	fs.Bool(&dump, "dump-ssa", "d", false, "Dump graphs")
	if err := fs.Parse([]string{"--", "-d", "file"}); err != nil {
		t.Fatal(err)
	}
	if dump {
		t.Error("flag parsed after --")
	}
	if args := fs.Args(); len(args) != 2 || args[0] != "-d" {
		t.Errorf("args %v", args)
	}
}

func TestParseErrors(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	fs.String(&out, "output", "o", "", "Output file", "file")
	if err := fs.Parse([]string{"--nope"}); err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("got %v, want unknown flag", err)
	}
	if err := fs.Parse([]string{"-o"}); err == nil || !strings.Contains(err.Error(), "needs an argument") {
		t.Errorf("got %v, want missing argument", err)
	}
	// Shorthands only match single-dash spellings.
	if err := fs.Parse([]string{"--o", "x"}); err == nil {
		t.Error("--o should not resolve to a shorthand")
	}
}

func TestGroupToggles(t *testing.T) {
	fs := NewFlagSet("test")
	on, off := new(bool), new(bool)
	fs.AddGroup("Warnings", []GroupEntry{
		{Name: "unused-fn", Prefix: "W", Usage: "x", Enabled: on, Disabled: off},
	})
	if err := fs.Parse([]string{"-Wno-unused-fn"}); err != nil {
		t.Fatal(err)
	}
	if *on || !*off {
		t.Errorf("enabled=%t disabled=%t, want false true", *on, *off)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five", 9)
	want := []string{"one two", "three", "four five"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %v, want %d", len(lines), lines, len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should produce no lines")
	}
}
