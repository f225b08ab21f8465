package parser

import (
	"strconv"

	"github.com/spackel-lang/spackel/pkg/ast"
	"github.com/spackel-lang/spackel/pkg/config"
	"github.com/spackel-lang/spackel/pkg/token"
	"github.com/spackel-lang/spackel/pkg/util"
)

// Macro bodies are spliced into the token stream at each reference, so
// recursive macros would expand forever. Cut them off well past anything a
// reasonable program needs.
const maxMacroExpansions = 10000

type Parser struct {
	toks       []token.Token
	pos        int
	cfg        *config.Config
	macros     map[string][]token.Token
	expansions int
}

func NewParser(toks []token.Token, cfg *config.Config) *Parser {
	return &Parser{toks: toks, cfg: cfg, macros: make(map[string][]token.Token)}
}

func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{Functions: make(map[string]*ast.Function)}
	var mainBody []ast.Instruction

	for !p.atEnd() {
		switch p.peek().Type {
		case token.Fn:
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			if _, exists := prog.Functions[fn.Name]; exists {
				return nil, util.Errf(fn.Tok, "function `%s` is defined more than once", fn.Name)
			}
			prog.Functions[fn.Name] = fn
			prog.Order = append(prog.Order, fn.Name)
		case token.Macro:
			if err := p.parseMacro(prog); err != nil {
				return nil, err
			}
		default:
			ins, err := p.parseInstruction()
			if err != nil {
				return nil, err
			}
			mainBody = append(mainBody, ins)
		}
	}

	mainTok := token.Token{}
	if len(mainBody) > 0 {
		mainTok = mainBody[0].Tok
	}
	prog.Functions["main"] = &ast.Function{Name: "main", Tok: mainTok, Body: mainBody}
	prog.Order = append(prog.Order, "main")
	return prog, nil
}

func (p *Parser) parseFunction() (*ast.Function, error) {
	p.advance() // fn
	nameTok := p.peek()
	if nameTok.Type != token.Word {
		return nil, util.Errf(nameTok, "expected function name")
	}
	if nameTok.Value == "main" {
		return nil, util.Errf(nameTok, "`main` is the implicit top level and cannot be defined explicitly")
	}
	if _, isWord := ast.WordMap[nameTok.Value]; isWord {
		return nil, util.Errf(nameTok, "`%s` is a built-in word and cannot be redefined", nameTok.Value)
	}
	p.advance()

	sig, err := p.parseSignature()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBodyUntil(token.Semi)
	if err != nil {
		return nil, err
	}
	p.advance() // ;

	return &ast.Function{Name: nameTok.Value, Tok: nameTok, Sig: sig, Body: body}, nil
}

func (p *Parser) parseSignature() (ast.Signature, error) {
	var sig ast.Signature
	if err := p.expect(token.LParen, "expected `(` to open the signature"); err != nil {
		return sig, err
	}
	for p.peek().Type == token.TypeName {
		t, _ := ast.TypeByName(p.peek().Value)
		sig.Params = append(sig.Params, t)
		p.advance()
	}
	if err := p.expect(token.Arrow, "expected `--` between parameters and results"); err != nil {
		return sig, err
	}
	for p.peek().Type == token.TypeName {
		t, _ := ast.TypeByName(p.peek().Value)
		sig.Results = append(sig.Results, t)
		p.advance()
	}
	if err := p.expect(token.RParen, "expected `)` to close the signature"); err != nil {
		return sig, err
	}
	return sig, nil
}

// parseMacro records the raw token body; references splice it back into the
// stream, so macros may use any words including other (earlier) macros.
func (p *Parser) parseMacro(prog *ast.Program) error {
	macroTok := p.peek()
	if !p.cfg.IsFeatureEnabled(config.FeatMacros) {
		return util.Errf(macroTok, "macros are disabled (-Fno-macros)")
	}
	p.advance() // macro
	nameTok := p.peek()
	if nameTok.Type != token.Word {
		return util.Errf(nameTok, "expected macro name")
	}
	if _, isWord := ast.WordMap[nameTok.Value]; isWord {
		return util.Errf(nameTok, "`%s` is a built-in word and cannot be redefined", nameTok.Value)
	}
	if _, exists := p.macros[nameTok.Value]; exists {
		return util.Errf(nameTok, "macro `%s` is defined more than once", nameTok.Value)
	}
	if _, exists := prog.Functions[nameTok.Value]; exists && p.cfg.IsWarningEnabled(config.WarnShadowedMacro) {
		util.Warnf(nameTok, "shadowed-macro", "macro `%s` shadows a function of the same name", nameTok.Value)
	}
	p.advance()

	if err := p.expect(token.LParen, "expected `(` to open the macro body"); err != nil {
		return err
	}
	var body []token.Token
	depth := 1
	for {
		if p.atEnd() {
			return util.Errf(nameTok, "unterminated macro body")
		}
		tok := p.peek()
		switch tok.Type {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
		}
		p.advance()
		if depth == 0 {
			break
		}
		body = append(body, tok)
	}
	if err := p.expect(token.Semi, "expected `;` after the macro body"); err != nil {
		return err
	}
	p.macros[nameTok.Value] = body
	return nil
}

func (p *Parser) parseBodyUntil(end token.Type) ([]ast.Instruction, error) {
	var body []ast.Instruction
	for {
		if p.atEnd() {
			return nil, util.Errf(p.peek(), "unexpected end of input, expected `%s`", endName(end))
		}
		if p.peek().Type == end {
			return body, nil
		}
		ins, err := p.parseInstruction()
		if err != nil {
			return nil, err
		}
		body = append(body, ins)
	}
}

func endName(t token.Type) string {
	if t == token.RParen {
		return ")"
	}
	return ";"
}

func (p *Parser) parseInstruction() (ast.Instruction, error) {
	tok := p.peek()
	switch tok.Type {
	case token.Int:
		n, err := strconv.ParseInt(tok.Value, 10, 32)
		if err != nil {
			return ast.Instruction{}, util.Errf(tok, "integer literal out of range for i32")
		}
		p.advance()
		return ast.Instruction{Kind: ast.InsPushInt, Tok: tok, Int: int32(n)}, nil
	case token.Float:
		f, err := strconv.ParseFloat(tok.Value, 32)
		if err != nil {
			return ast.Instruction{}, util.Errf(tok, "invalid float literal")
		}
		p.advance()
		return ast.Instruction{Kind: ast.InsPushFloat, Tok: tok, Float: float32(f)}, nil
	case token.Bool:
		p.advance()
		return ast.Instruction{Kind: ast.InsPushBool, Tok: tok, Bool: tok.Value == "true"}, nil
	case token.TypeName:
		t, _ := ast.TypeByName(tok.Value)
		p.advance()
		return ast.Instruction{Kind: ast.InsPushType, Tok: tok, Type: t}, nil
	case token.Then:
		return p.parseThen()
	case token.Repeat:
		return p.parseConstruct(ast.InsRepeat)
	case token.Unsafe:
		if !p.cfg.IsFeatureEnabled(config.FeatUnsafe) {
			return ast.Instruction{}, util.Errf(tok, "unsafe blocks are disabled (-Fno-unsafe)")
		}
		return p.parseConstruct(ast.InsUnsafe)
	case token.Word:
		if body, isMacro := p.macros[tok.Value]; isMacro {
			if err := p.spliceMacro(tok, body); err != nil {
				return ast.Instruction{}, err
			}
			return p.parseInstruction()
		}
		if ins, isWord := ast.WordMap[tok.Value]; isWord {
			ins.Tok = tok
			p.advance()
			return ins, nil
		}
		p.advance()
		return ast.Instruction{Kind: ast.InsCall, Tok: tok, Callee: tok.Value}, nil
	}
	return ast.Instruction{}, util.Errf(tok, "unexpected `%s`", tok.Value)
}

func (p *Parser) parseThen() (ast.Instruction, error) {
	tok := p.peek()
	p.advance() // then
	if err := p.expect(token.LParen, "expected `(` after `then`"); err != nil {
		return ast.Instruction{}, err
	}
	body, err := p.parseBodyUntil(token.RParen)
	if err != nil {
		return ast.Instruction{}, err
	}
	p.advance() // )

	if p.peek().Type != token.Else {
		if err := p.expect(token.Semi, "expected `;` or `else` after the `then` body"); err != nil {
			return ast.Instruction{}, err
		}
		p.warnEmptyBody(tok, body)
		return ast.Instruction{Kind: ast.InsThen, Tok: tok, Body: body}, nil
	}

	p.advance() // else
	if err := p.expect(token.LParen, "expected `(` after `else`"); err != nil {
		return ast.Instruction{}, err
	}
	elseBody, err := p.parseBodyUntil(token.RParen)
	if err != nil {
		return ast.Instruction{}, err
	}
	p.advance() // )
	if err := p.expect(token.Semi, "expected `;` after the `else` body"); err != nil {
		return ast.Instruction{}, err
	}
	return ast.Instruction{Kind: ast.InsThenElse, Tok: tok, Body: body, Else: elseBody}, nil
}

func (p *Parser) parseConstruct(kind ast.InsKind) (ast.Instruction, error) {
	tok := p.peek()
	p.advance() // repeat / unsafe
	if err := p.expect(token.LParen, "expected `(` after `"+tok.Value+"`"); err != nil {
		return ast.Instruction{}, err
	}
	body, err := p.parseBodyUntil(token.RParen)
	if err != nil {
		return ast.Instruction{}, err
	}
	p.advance() // )
	if err := p.expect(token.Semi, "expected `;` after the body"); err != nil {
		return ast.Instruction{}, err
	}
	p.warnEmptyBody(tok, body)
	return ast.Instruction{Kind: kind, Tok: tok, Body: body}, nil
}

func (p *Parser) warnEmptyBody(tok token.Token, body []ast.Instruction) {
	if len(body) == 0 && p.cfg.IsWarningEnabled(config.WarnEmptyBody) {
		util.Warnf(tok, "empty-body", "`%s` body is empty", tok.Value)
	}
}

func (p *Parser) spliceMacro(ref token.Token, body []token.Token) error {
	p.expansions++
	if p.expansions > maxMacroExpansions {
		return util.Errf(ref, "macro expansion limit exceeded, `%s` is probably recursive", ref.Value)
	}
	rest := p.toks[p.pos+1:]
	spliced := make([]token.Token, 0, len(body)+len(rest))
	spliced = append(spliced, body...)
	spliced = append(spliced, rest...)
	p.toks = spliced
	p.pos = 0
	return nil
}

func (p *Parser) expect(typ token.Type, msg string) error {
	if p.peek().Type != typ {
		return util.Errf(p.peek(), "%s", msg)
	}
	p.advance()
	return nil
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.toks) {
		last := token.Token{Type: token.EOF}
		if len(p.toks) > 0 {
			prev := p.toks[len(p.toks)-1]
			last.FileIndex, last.Line, last.Column = prev.FileIndex, prev.Line, prev.Column+prev.Len
		}
		return last
	}
	return p.toks[p.pos]
}

func (p *Parser) advance() { p.pos++ }

func (p *Parser) atEnd() bool { return p.pos >= len(p.toks) }
