package object

import (
	"lisp/internal/ast"
	"math"
	"strconv"
	"strings"
)

const (
	NULL_OBJ     = "NULL"
	BOOL_OBJ     = "BOOL"
	INT_OBJ      = "INT"
	REAL_OBJ     = "REAL"
	ATOM_OBJ     = "ATOM"
	LIST_OBJ     = "LIST"
	QUOTE_OBJ    = "QUOTE"
	FUNCTION_OBJ = "FUNCTION"
	BUILTIN_OBJ  = "BUILTIN"

	RETURN_VALUE_OBJ = "RETURN_VALUE"
	BREAK_SIGNAL_OBJ = "BREAK_SIGNAL"
)

var (
	NULL  = &Null{}
	TRUE  = &Bool{Value: true}
	FALSE = &Bool{Value: false}
	BREAK = &BreakSignal{}
)

type ObjectType string

type Object interface {
	Type() ObjectType
	Inspect() string
	// ReadValue exposes the underlying primitive: nil, bool, int64, float64,
	// string, []Object, ast.Element, or the receiver itself for callables.
	ReadValue() any
}

type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }
func (n *Null) ReadValue() any   { return nil }

type Bool struct {
	Value bool
}

func (b *Bool) Type() ObjectType { return BOOL_OBJ }
func (b *Bool) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Bool) ReadValue() any   { return b.Value }

type Int struct {
	Value int64
}

func (i *Int) Type() ObjectType { return INT_OBJ }
func (i *Int) Inspect() string  { return strconv.FormatInt(i.Value, 10) }
func (i *Int) ReadValue() any   { return i.Value }

type Real struct {
	Value float64
}

func (r *Real) Type() ObjectType { return REAL_OBJ }
func (r *Real) Inspect() string  { return FormatReal(r.Value) }
func (r *Real) ReadValue() any   { return r.Value }

// FormatReal renders the shortest round-trip form, always carrying a '.' for
// finite values so reals stay distinguishable from ints.
func FormatReal(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.ContainsAny(s, ".e") {
		return s
	}
	return s + ".0"
}

type Atom struct {
	Name string
}

func (a *Atom) Type() ObjectType { return ATOM_OBJ }
func (a *Atom) Inspect() string  { return a.Name }
func (a *Atom) ReadValue() any   { return a.Name }

type List struct {
	Elements []Object
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.Inspect()
	}
	return "(" + strings.Join(parts, " ") + ")"
}
func (l *List) ReadValue() any { return l.Elements }

// Quote holds an unevaluated subtree until eval or destructuring touches it.
type Quote struct {
	Node ast.Element
}

func (q *Quote) Type() ObjectType { return QUOTE_OBJ }
func (q *Quote) Inspect() string  { return "'" + q.Node.String() }
func (q *Quote) ReadValue() any   { return q.Node }

type Function struct {
	Parameters []string
	Body       ast.Element
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	return "<func (" + strings.Join(f.Parameters, " ") + ")>"
}
func (f *Function) ReadValue() any { return f }

type Builtin struct {
	Name  string
	Arity int
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "<builtin " + b.Name + ">" }
func (b *Builtin) ReadValue() any   { return b }

// ReturnValue carries the payload of `return` up to the owning call boundary.
type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() ObjectType { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }
func (rv *ReturnValue) ReadValue() any   { return rv.Value.ReadValue() }

type BreakSignal struct{}

func (bs *BreakSignal) Type() ObjectType { return BREAK_SIGNAL_OBJ }
func (bs *BreakSignal) Inspect() string  { return "break" }
func (bs *BreakSignal) ReadValue() any   { return nil }

// IsSignal reports whether o is a control signal rather than an ordinary value.
func IsSignal(o Object) bool {
	switch o.(type) {
	case *ReturnValue, *BreakSignal:
		return true
	}
	return false
}

func NativeBool(input bool) *Bool {
	if input {
		return TRUE
	}
	return FALSE
}

func IsInt(o Object) bool  { return o.Type() == INT_OBJ }
func IsReal(o Object) bool { return o.Type() == REAL_OBJ }
func IsBool(o Object) bool { return o.Type() == BOOL_OBJ }
func IsNull(o Object) bool { return o.Type() == NULL_OBJ }
func IsAtom(o Object) bool { return o.Type() == ATOM_OBJ }
func IsList(o Object) bool { return o.Type() == LIST_OBJ }

// IsCallable reports whether o can sit at the head of an application.
func IsCallable(o Object) bool {
	switch o.(type) {
	case *Function, *Builtin:
		return true
	}
	return false
}

// FromLiteral wraps a parsed literal payload.
func FromLiteral(v any) Object {
	switch v := v.(type) {
	case int64:
		return &Int{Value: v}
	case float64:
		return &Real{Value: v}
	case bool:
		return NativeBool(v)
	}
	return NULL
}

// FromNode converts a quoted subtree into data: identifiers become atoms,
// literals scalars, lists lists. Keyword forms stay quoted.
func FromNode(el ast.Element) Object {
	switch n := el.(type) {
	case *ast.Identifier:
		return &Atom{Name: n.Value}
	case *ast.Literal:
		return FromLiteral(n.Value)
	case *ast.List:
		elements := make([]Object, len(n.Elements))
		for i, child := range n.Elements {
			elements[i] = FromNode(child)
		}
		return &List{Elements: elements}
	case *ast.Quote:
		return &Quote{Node: n.Element}
	}
	return &Quote{Node: el}
}
