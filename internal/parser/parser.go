package parser

import (
	"fmt"
	"lisp/internal/ast"
	"lisp/internal/lexer"
	"lisp/internal/token"
	"lisp/internal/util"
	"strconv"
	"strings"
)

type Parser struct {
	l      *lexer.Lexer
	src    string // source code here
	errors []string

	curToken  token.Token
	peekToken token.Token
}

// SyntaxError aggregates every message collected while parsing one source.
type SyntaxError struct {
	Source   string
	Messages []string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %s:\n\t%s", e.Source, strings.Join(e.Messages, "\n\t"))
}

// Parse lexes and parses src, returning a *SyntaxError when anything is malformed.
func Parse(name, src string) (*ast.Program, error) {
	p := New(lexer.New(src), src)
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		return nil, &SyntaxError{Source: name, Messages: p.Errors()}
	}
	return program, nil
}

func New(l *lexer.Lexer, source string) *Parser {
	p := &Parser{
		l:      l,
		src:    source,
		errors: []string{},
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) addError(message string, args ...interface{}) {
	p.addErrorAt(p.curToken.Position, message, args...)
}

func (p *Parser) addErrorAt(pos int, message string, args ...interface{}) {
	line, col := util.GetLineAndColumn(p.src, pos)
	m := fmt.Sprintf(message, args...)
	msg := fmt.Sprintf("[%3d:%2d] %s", line, col, m)
	p.errors = append(p.errors, msg)
}

func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Elements = []ast.Element{}

	for !p.curTokenIs(token.EOF) {
		el := p.parseElement()
		if el != nil {
			program.Elements = append(program.Elements, el)
		}
		p.nextToken()
	}

	return program
}

// parseElement expects curToken at the first token of an element and leaves
// it on the element's last token. A nil result means an error was recorded;
// the tokens of the broken element are still consumed.
func (p *Parser) parseElement() ast.Element {
	switch p.curToken.Type {
	case token.LPAREN:
		return p.parseList()
	case token.IDENT:
		return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	case token.INT, token.REAL, token.TRUE, token.FALSE, token.NULL:
		return p.parseLiteral()
	case token.QUOTE:
		return p.parseQuoteToken()
	case token.RPAREN:
		p.addError("closing parenthesis without opening one")
		return nil
	case token.EOF:
		p.addError("unexpected end of input")
		return nil
	case token.ILLEGAL:
		p.addError("incorrect syntax %q", p.curToken.Literal)
		return nil
	}
	if token.IsKeyword(p.curToken.Type) {
		p.addError("keyword %q is only allowed at the head of a list", p.curToken.Literal)
		return nil
	}
	p.addError("can't parse element %q", p.curToken.Literal)
	return nil
}

func (p *Parser) parseLiteral() ast.Element {
	lit := &ast.Literal{Token: p.curToken}
	switch p.curToken.Type {
	case token.INT:
		v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.addError("integer literal %s is out of range", p.curToken.Literal)
			return nil
		}
		lit.Value = v
	case token.REAL:
		v, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			p.addError("could not parse %q as real", p.curToken.Literal)
			return nil
		}
		lit.Value = v
	case token.TRUE:
		lit.Value = true
	case token.FALSE:
		lit.Value = false
	case token.NULL:
		lit.Value = nil
	}
	return lit
}

func (p *Parser) parseQuoteToken() ast.Element {
	quoteToken := p.curToken
	if p.peekToken.Type == token.EOF {
		p.addError("nothing follows after `'`")
		return nil
	}
	p.nextToken()
	el := p.parseElement()
	if el == nil {
		return nil
	}
	return &ast.Quote{Token: quoteToken, Element: el}
}

func (p *Parser) parseList() ast.Element {
	open := p.curToken
	p.nextToken()

	if token.IsKeyword(p.curToken.Type) {
		return p.parseSpecialForm(open)
	}

	elements, ok := p.parseUntilClose(open)
	if !ok {
		return nil
	}
	return &ast.List{Token: open, Elements: elements}
}

// parseUntilClose collects elements up to the matching ')'. ok is false when
// any child failed or the list was never closed.
func (p *Parser) parseUntilClose(open token.Token) ([]ast.Element, bool) {
	elements := []ast.Element{}
	ok := true
	for !p.curTokenIs(token.RPAREN) {
		if p.curTokenIs(token.EOF) {
			p.addErrorAt(open.Position, "list does not have closing parenthesis")
			return nil, false
		}
		el := p.parseElement()
		if el == nil {
			ok = false
		}
		elements = append(elements, el)
		p.nextToken()
	}
	return elements, ok
}

func (p *Parser) parseSpecialForm(open token.Token) ast.Element {
	kw := p.curToken
	p.nextToken()

	args, ok := p.parseUntilClose(open)
	if !ok {
		return nil
	}

	switch kw.Type {
	case token.QUOTE_KW:
		if !p.expectArity(kw, args, 1, 1) {
			return nil
		}
		return &ast.Quote{Token: kw, Element: args[0]}

	case token.SETQ:
		if !p.expectArity(kw, args, 2, 2) {
			return nil
		}
		name, isIdent := args[0].(*ast.Identifier)
		if !isIdent {
			p.addErrorAt(args[0].Pos(), "setq expects an identifier to assign, got %s", args[0].String())
			return nil
		}
		return &ast.SetQ{Token: kw, Assignee: name, Value: args[1]}

	case token.FUNC:
		if !p.expectArity(kw, args, 3, 3) {
			return nil
		}
		name, isIdent := args[0].(*ast.Identifier)
		if !isIdent {
			p.addErrorAt(args[0].Pos(), "func expects a function name, got %s", args[0].String())
			return nil
		}
		params, valid := p.parameterList(kw, args[1])
		if !valid {
			return nil
		}
		return &ast.Func{Token: kw, Name: name, Parameters: params, Body: args[2]}

	case token.LAMBDA:
		if !p.expectArity(kw, args, 2, 2) {
			return nil
		}
		params, valid := p.parameterList(kw, args[0])
		if !valid {
			return nil
		}
		return &ast.Lambda{Token: kw, Parameters: params, Body: args[1]}

	case token.PROG:
		if !p.expectArity(kw, args, 2, 2) {
			return nil
		}
		params, valid := p.parameterList(kw, args[0])
		if !valid {
			return nil
		}
		return &ast.Prog{Token: kw, Parameters: params, Body: args[1]}

	case token.COND:
		if !p.expectArity(kw, args, 2, 3) {
			return nil
		}
		c := &ast.Cond{Token: kw, Condition: args[0], TrueArgument: args[1]}
		if len(args) == 3 {
			c.FalseArgument = args[2]
		}
		return c

	case token.WHILE:
		if !p.expectArity(kw, args, 2, 2) {
			return nil
		}
		return &ast.While{Token: kw, Condition: args[0], Body: args[1]}

	case token.RETURN:
		if !p.expectArity(kw, args, 1, 1) {
			return nil
		}
		return &ast.Return{Token: kw, Value: args[0]}

	case token.BREAK:
		if !p.expectArity(kw, args, 0, 0) {
			return nil
		}
		return &ast.Break{Token: kw}
	}

	p.addErrorAt(kw.Position, "unknown special form %q", kw.Literal)
	return nil
}

func (p *Parser) expectArity(kw token.Token, args []ast.Element, min, max int) bool {
	if len(args) >= min && len(args) <= max {
		return true
	}
	if min == max {
		p.addErrorAt(kw.Position, "%s expects %d arguments, got %d", kw.Literal, min, len(args))
	} else {
		p.addErrorAt(kw.Position, "%s expects %d to %d arguments, got %d", kw.Literal, min, max, len(args))
	}
	return false
}

func (p *Parser) parameterList(kw token.Token, el ast.Element) ([]*ast.Identifier, bool) {
	list, ok := el.(*ast.List)
	if !ok {
		p.addErrorAt(el.Pos(), "%s expects a parameter list, got %s", kw.Literal, el.String())
		return nil, false
	}
	params := make([]*ast.Identifier, 0, len(list.Elements))
	seen := map[string]bool{}
	for _, item := range list.Elements {
		ident, isIdent := item.(*ast.Identifier)
		if !isIdent {
			p.addErrorAt(item.Pos(), "%s parameters must be identifiers, got %s", kw.Literal, item.String())
			return nil, false
		}
		if seen[ident.Value] {
			p.addErrorAt(item.Pos(), "duplicate parameter %q", ident.Value)
			return nil, false
		}
		seen[ident.Value] = true
		params = append(params, ident)
	}
	return params, true
}
