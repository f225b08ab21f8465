package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spackel-lang/spackel/pkg/cli"
	"github.com/spackel-lang/spackel/pkg/codegen"
	"github.com/spackel-lang/spackel/pkg/config"
	"github.com/spackel-lang/spackel/pkg/lexer"
	"github.com/spackel-lang/spackel/pkg/parser"
	"github.com/spackel-lang/spackel/pkg/token"
	"github.com/spackel-lang/spackel/pkg/typecheck"
	"github.com/spackel-lang/spackel/pkg/util"
)

func main() {
	app := cli.NewApp("spackel")
	app.Synopsis = "[options] <input.spkl> ..."
	app.Description = "A compiler for the Spackel stack language."
	app.Repository = "https://github.com/spackel-lang/spackel"

	var (
		outFile    string
		target     string
		runtimeSrc string
		linkerArgs []string
		dumpSSA    bool
		emitLLVM   bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "a.out", "Place the output into <file>.", "file")
	fs.String(&target, "target", "t", "", "Set the target triple.", "triple")
	fs.String(&runtimeSrc, "runtime", "", "lib/spkl_rt.c", "Path to the runtime support library source.", "file")
	fs.List(&linkerArgs, "linker-arg", "L", "Pass an argument to the linker.", "arg")
	fs.Bool(&dumpSSA, "dump-ssa", "d", false, "Dump each function's dataflow graph before lowering.")
	fs.Bool(&emitLLVM, "emit-llvm", "S", false, "Write textual LLVM IR instead of an executable.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target)
		cfg.DumpSSA = dumpSSA
		cfg.EmitLLVM = emitLLVM
		cfg.LinkerArgs = append(cfg.LinkerArgs, linkerArgs...)

		if len(inputFiles) == 0 {
			util.Error(token.Token{FileIndex: -1}, "no input files specified")
		}

		records, allTokens := readAndTokenizeFiles(inputFiles)
		util.SetSourceFiles(records)

		p := parser.NewParser(allTokens, cfg)
		prog, err := p.Parse()
		if err != nil {
			util.Fail(err)
		}

		checker := typecheck.NewChecker(cfg)
		if err := checker.Check(prog); err != nil {
			util.Fail(err)
		}

		mod, err := codegen.Compile(prog, checker.Signatures(), cfg)
		if err != nil {
			util.Fail(err)
		}

		if emitLLVM {
			if outFile == "-" {
				fmt.Print(mod.String())
				return nil
			}
			return os.WriteFile(outFile, []byte(mod.String()), 0o644)
		}

		if err := assembleAndLink(outFile, mod.String(), runtimeSrc, cfg); err != nil {
			util.Fail(err)
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// assembleAndLink hands the textual IR to clang for the object file and lets
// the C compiler pull in the runtime and drive the link.
func assembleAndLink(outFile, llText, runtimeSrc string, cfg *config.Config) error {
	llFile, err := os.CreateTemp("", "spackel-*.ll")
	if err != nil {
		return fmt.Errorf("failed to create temp file for IR: %w", err)
	}
	defer os.Remove(llFile.Name())
	if _, err := llFile.WriteString(llText); err != nil {
		return fmt.Errorf("failed to write IR: %w", err)
	}
	llFile.Close()

	objFile, err := os.CreateTemp("", "spackel-*.o")
	if err != nil {
		return fmt.Errorf("failed to create temp object file: %w", err)
	}
	objFile.Close()
	defer os.Remove(objFile.Name())

	clangArgs := []string{"-c", "-o", objFile.Name(), "-x", "ir", llFile.Name()}
	if cfg.TargetTriple != "" {
		clangArgs = append(clangArgs, "--target="+cfg.TargetTriple)
	}
	if output, err := exec.Command("clang", clangArgs...).CombinedOutput(); err != nil {
		return fmt.Errorf("clang failed: %w\nOutput:\n%s", err, output)
	}

	ccArgs := []string{"-o", outFile, objFile.Name(), runtimeSrc}
	ccArgs = append(ccArgs, cfg.LinkerArgs...)
	if output, err := exec.Command("cc", ccArgs...).CombinedOutput(); err != nil {
		return fmt.Errorf("cc failed: %w\nOutput:\n%s", err, output)
	}
	return nil
}

func readAndTokenizeFiles(paths []string) ([]util.SourceFileRecord, []token.Token) {
	var records []util.SourceFileRecord
	var allTokens []token.Token

	for i, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			util.Error(token.Token{FileIndex: -1}, "could not read file '%s': %v", path, err)
		}
		runeContent := []rune(string(content))
		records = append(records, util.SourceFileRecord{Name: path, Content: runeContent})
		allTokens = append(allTokens, lexer.NewLexer(runeContent, i).Tokenize()...)
	}
	return records, allTokens
}
