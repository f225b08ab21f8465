package lexer

import (
	"strings"
	"unicode"

	"github.com/spackel-lang/spackel/pkg/token"
)

// Lexer splits a source file into whitespace-separated words. `#` starts a
// comment running to the end of the line.
type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
}

func NewLexer(source []rune, fileIndex int) *Lexer {
	return &Lexer{source: source, fileIndex: fileIndex, line: 1, column: 1}
}

func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()
	startCol, startLine := l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startCol, startLine)
	}

	start := l.pos
	for !l.isAtEnd() && !unicode.IsSpace(l.peek()) {
		l.advance()
	}
	word := string(l.source[start:l.pos])

	if typ, ok := token.KeywordMap[word]; ok {
		return l.makeToken(typ, word, startCol, startLine)
	}
	if isInt(word) {
		return l.makeToken(token.Int, word, startCol, startLine)
	}
	if isFloat(word) {
		return l.makeToken(token.Float, word, startCol, startLine)
	}
	return l.makeToken(token.Word, word, startCol, startLine)
}

// Tokenize drains the lexer, excluding the trailing EOF.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.Next()
		if tok.Type == token.EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func isInt(word string) bool {
	digits := strings.TrimPrefix(word, "-")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isFloat(word string) bool {
	mantissa := strings.TrimPrefix(word, "-")
	dot := strings.IndexByte(mantissa, '.')
	if dot < 0 {
		return false
	}
	intPart, fracPart := mantissa[:dot], mantissa[dot+1:]
	if intPart == "" && fracPart == "" {
		return false
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.isAtEnd() {
		switch {
		case unicode.IsSpace(l.peek()):
			l.advance()
		case l.peek() == '#':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) makeToken(typ token.Type, value string, startCol, startLine int) token.Token {
	length := l.column - startCol
	if length < 1 {
		length = 1
	}
	return token.Token{
		Type:      typ,
		Value:     value,
		FileIndex: l.fileIndex,
		Line:      startLine,
		Column:    startCol,
		Len:       length,
	}
}

func (l *Lexer) peek() rune { return l.source[l.pos] }

func (l *Lexer) advance() {
	if l.source[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }
