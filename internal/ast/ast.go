package ast

import (
	"bytes"
	"lisp/internal/token"
	"strconv"
	"strings"
)

// The base Node interface
type Node interface {
	TokenLiteral() string
	String() string
}

// Element is any node that may appear inside a program or a list. The set of
// implementations is closed by the unexported marker method.
type Element interface {
	Node
	Pos() int
	elementNode()
}

type Program struct {
	Elements []Element
}

func (p *Program) TokenLiteral() string {
	if len(p.Elements) > 0 {
		return p.Elements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	parts := make([]string, len(p.Elements))
	for i, e := range p.Elements {
		parts[i] = e.String()
	}
	return strings.Join(parts, "\n")
}

type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) elementNode()         {}
func (i *Identifier) Pos() int             { return i.Token.Position }
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

// Literal carries an int64, float64, bool or nil (for null) payload.
type Literal struct {
	Token token.Token
	Value any
}

func (l *Literal) elementNode()         {}
func (l *Literal) Pos() int             { return l.Token.Position }
func (l *Literal) TokenLiteral() string { return l.Token.Literal }
func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return l.Token.Literal
	}
	return l.Token.Literal
}

type List struct {
	Token    token.Token // the ( token
	Elements []Element
}

func (l *List) elementNode()         {}
func (l *List) Pos() int             { return l.Token.Position }
func (l *List) TokenLiteral() string { return l.Token.Literal }
func (l *List) String() string {
	return "(" + joinElements(l.Elements) + ")"
}

type Quote struct {
	Token   token.Token // the ' token or the quote keyword
	Element Element
}

func (q *Quote) elementNode()         {}
func (q *Quote) Pos() int             { return q.Token.Position }
func (q *Quote) TokenLiteral() string { return q.Token.Literal }
func (q *Quote) String() string       { return "(quote " + q.Element.String() + ")" }

type SetQ struct {
	Token    token.Token
	Assignee *Identifier
	Value    Element
}

func (s *SetQ) elementNode()         {}
func (s *SetQ) Pos() int             { return s.Token.Position }
func (s *SetQ) TokenLiteral() string { return s.Token.Literal }
func (s *SetQ) String() string {
	return "(setq " + s.Assignee.String() + " " + s.Value.String() + ")"
}

type Func struct {
	Token      token.Token
	Name       *Identifier
	Parameters []*Identifier
	Body       Element
}

func (f *Func) elementNode()         {}
func (f *Func) Pos() int             { return f.Token.Position }
func (f *Func) TokenLiteral() string { return f.Token.Literal }
func (f *Func) String() string {
	return "(func " + f.Name.String() + " " + ParameterList(f.Parameters) + " " + f.Body.String() + ")"
}

type Lambda struct {
	Token      token.Token
	Parameters []*Identifier
	Body       Element
}

func (l *Lambda) elementNode()         {}
func (l *Lambda) Pos() int             { return l.Token.Position }
func (l *Lambda) TokenLiteral() string { return l.Token.Literal }
func (l *Lambda) String() string {
	return "(lambda " + ParameterList(l.Parameters) + " " + l.Body.String() + ")"
}

type Prog struct {
	Token      token.Token
	Parameters []*Identifier
	Body       Element
}

func (p *Prog) elementNode()         {}
func (p *Prog) Pos() int             { return p.Token.Position }
func (p *Prog) TokenLiteral() string { return p.Token.Literal }
func (p *Prog) String() string {
	return "(prog " + ParameterList(p.Parameters) + " " + p.Body.String() + ")"
}

type Cond struct {
	Token         token.Token
	Condition     Element
	TrueArgument  Element
	FalseArgument Element // optional
}

func (c *Cond) elementNode()         {}
func (c *Cond) Pos() int             { return c.Token.Position }
func (c *Cond) TokenLiteral() string { return c.Token.Literal }
func (c *Cond) String() string {
	var out bytes.Buffer
	out.WriteString("(cond ")
	out.WriteString(c.Condition.String())
	out.WriteString(" ")
	out.WriteString(c.TrueArgument.String())
	if c.FalseArgument != nil {
		out.WriteString(" ")
		out.WriteString(c.FalseArgument.String())
	}
	out.WriteString(")")
	return out.String()
}

type While struct {
	Token     token.Token
	Condition Element
	Body      Element
}

func (w *While) elementNode()         {}
func (w *While) Pos() int             { return w.Token.Position }
func (w *While) TokenLiteral() string { return w.Token.Literal }
func (w *While) String() string {
	return "(while " + w.Condition.String() + " " + w.Body.String() + ")"
}

type Return struct {
	Token token.Token
	Value Element
}

func (r *Return) elementNode()         {}
func (r *Return) Pos() int             { return r.Token.Position }
func (r *Return) TokenLiteral() string { return r.Token.Literal }
func (r *Return) String() string       { return "(return " + r.Value.String() + ")" }

type Break struct {
	Token token.Token
}

func (b *Break) elementNode()         {}
func (b *Break) Pos() int             { return b.Token.Position }
func (b *Break) TokenLiteral() string { return b.Token.Literal }
func (b *Break) String() string       { return "(break)" }

// ParameterList renders identifiers the way they are written in a definition.
func ParameterList(params []*Identifier) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Value
	}
	return "(" + strings.Join(names, " ") + ")"
}

func joinElements(elements []Element) string {
	parts := make([]string, len(elements))
	for i, e := range elements {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}
