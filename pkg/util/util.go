package util

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/spackel-lang/spackel/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// SetSourceFiles stores the source code for all input files for rich error messages.
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

var stderrIsTTY = term.IsTerminal(int(os.Stderr.Fd()))

func color(code string) string {
	if !stderrIsTTY {
		return ""
	}
	return code
}

// Diag is an error carrying a source position. Front-end stages return these;
// the driver renders them with the usual caret dump.
type Diag struct {
	Tok token.Token
	Msg string
}

func (d *Diag) Error() string {
	filename, line, col := findFileAndLine(d.Tok)
	return fmt.Sprintf("%s:%d:%d: %s", filename, line, col, d.Msg)
}

// Errf builds a positioned error value without printing anything.
func Errf(tok token.Token, format string, args ...interface{}) error {
	return &Diag{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// findFileAndLine converts a global token to a file-specific location.
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position.
func printErrorLine(stream *os.File, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(stream, "  %s\n", string(content[lineStart:lineEnd]))
	fmt.Fprintf(stream, "  %s%s^", strings.Repeat(" ", tok.Column-1), color("\033[32m"))
	if tok.Len > 1 {
		fmt.Fprint(stream, strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintln(stream, color("\033[0m"))
}

// Error prints a formatted error message and exits the program.
func Error(tok token.Token, format string, args ...interface{}) {
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(os.Stderr, "%s:%d:%d: %serror:%s ", filename, line, col, color("\033[31m"), color("\033[0m"))
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	printErrorLine(os.Stderr, tok)
	os.Exit(1)
}

// Fail renders an error from a compiler stage and exits. Positioned errors
// get the caret dump, anything else a bare message.
func Fail(err error) {
	if d, ok := err.(*Diag); ok {
		Error(d.Tok, "%s", d.Msg)
	} else {
		fmt.Fprintf(os.Stderr, "spackel: %serror:%s %v\n", color("\033[31m"), color("\033[0m"), err)
		os.Exit(1)
	}
}

// Warnf prints a formatted warning message.
func Warnf(tok token.Token, name, format string, args ...interface{}) {
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(os.Stderr, "%s:%d:%d: %swarning:%s ", filename, line, col, color("\033[33m"), color("\033[0m"))
	fmt.Fprintf(os.Stderr, format, args...)
	if name != "" {
		fmt.Fprintf(os.Stderr, " [-W%s]", name)
	}
	fmt.Fprintln(os.Stderr)
	printErrorLine(os.Stderr, tok)
}

// ICE panics with an internal-compiler-error message. These are bugs in the
// compiler, never user errors; the object file must not be produced.
func ICE(format string, args ...interface{}) {
	panic(fmt.Sprintf("internal compiler error: %s", fmt.Sprintf(format, args...)))
}
