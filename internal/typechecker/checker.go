package typechecker

import (
	"fmt"
	"lisp/internal/ast"
	"lisp/internal/object"
	"log/slog"
)

// Signature is the abstract type bound to an identifier: either an opaque
// value or a function of known arity.
type Signature struct {
	IsFunction bool
	Arity      int
}

var Any = Signature{}

func Func(arity int) Signature {
	return Signature{IsFunction: true, Arity: arity}
}

func (s Signature) String() string {
	if s.IsFunction {
		return fmt.Sprintf("func/%d", s.Arity)
	}
	return "any"
}

type Scope = object.Environment[Signature]

// Checker validates programs against a scope that persists across Check
// calls, so a REPL session sees earlier definitions.
type Checker struct {
	scope    *Scope
	keywords []string

	// checkpoints[i] is the scope as it stood after the first i elements
	// of the last committed program.
	checkpoints []*Scope
}

func New() *Checker {
	return &Checker{scope: NewRootScope()}
}

// NewRootScope seeds a scope with every builtin's arity.
func NewRootScope() *Scope {
	scope := object.NewEnvironment[Signature]()
	for _, name := range object.BuiltinNames() {
		b, _ := object.LookupBuiltin(name)
		scope.AddEntry(name, Func(b.Arity))
	}
	return scope
}

// Check walks the whole program. Bindings made by the program are committed
// to the checker's scope only if every element passes.
func (c *Checker) Check(program *ast.Program) error {
	working := object.NewEnclosedEnvironment(c.scope)
	checkpoints := []*Scope{c.scope}
	c.keywords = c.keywords[:0]

	for _, el := range program.Elements {
		if err := c.checkElement(working, el); err != nil {
			slog.Debug("typecheck failed",
				slog.Int("position", el.Pos()),
				slog.Any("error", err))
			return err
		}
		checkpoints = append(checkpoints, object.NewEnclosedEnvironment(working))
	}
	c.scope = working
	c.checkpoints = checkpoints
	return nil
}

// Rollback keeps only the bindings made by the first n elements of the last
// committed program. The runner calls it when evaluation stops early.
func (c *Checker) Rollback(n int) {
	if n < 0 || n >= len(c.checkpoints) {
		return
	}
	slog.Debug("typecheck scope rolled back", slog.Int("elements", n))
	c.scope = c.checkpoints[n]
	c.checkpoints = nil
}

// Names lists every identifier visible at the top level.
func (c *Checker) Names() []string {
	return c.scope.Names()
}

func (c *Checker) pushKeyword(kw string) {
	c.keywords = append(c.keywords, kw)
}

func (c *Checker) popKeyword() {
	c.keywords = c.keywords[:len(c.keywords)-1]
}

func (c *Checker) inKeywordContext(kws ...string) bool {
	for _, active := range c.keywords {
		for _, kw := range kws {
			if active == kw {
				return true
			}
		}
	}
	return false
}

func (c *Checker) checkElement(scope *Scope, node ast.Element) error {
	switch node := node.(type) {
	case *ast.Identifier:
		if _, err := scope.GetEntry(node.Value); err != nil {
			return object.At(node.Pos(), err)
		}
		return nil

	case *ast.Literal, *ast.Quote:
		return nil

	case *ast.List:
		return c.checkList(scope, node)

	case *ast.SetQ:
		if err := notBuiltin(node.Assignee); err != nil {
			return err
		}
		scope.AddEntry(node.Assignee.Value, Any)
		return c.checkElement(scope, node.Value)

	case *ast.Func:
		if err := notBuiltin(node.Name); err != nil {
			return err
		}
		scope.AddEntry(node.Name.Value, Func(len(node.Parameters)))
		return c.checkBody(object.NewEnclosedEnvironment(scope), "func", node.Parameters, node.Body)

	case *ast.Lambda:
		return c.checkBody(object.NewEnclosedEnvironment(scope), "lambda", node.Parameters, node.Body)

	case *ast.Prog:
		// prog runs in a fresh frame holding only builtins and the
		// re-imported parameters, which must exist at the call site.
		local := NewRootScope()
		for _, p := range node.Parameters {
			sig, err := scope.GetEntry(p.Value)
			if err != nil {
				return object.At(p.Pos(), err)
			}
			local.AddEntry(p.Value, sig)
		}
		return c.checkBody(local, "prog", nil, node.Body)

	case *ast.Cond:
		if err := c.checkElement(scope, node.Condition); err != nil {
			return err
		}
		if err := c.checkElement(scope, node.TrueArgument); err != nil {
			return err
		}
		if node.FalseArgument != nil {
			return c.checkElement(scope, node.FalseArgument)
		}
		return nil

	case *ast.While:
		if err := c.checkElement(scope, node.Condition); err != nil {
			return err
		}
		c.pushKeyword("while")
		defer c.popKeyword()
		return c.checkElement(scope, node.Body)

	case *ast.Return:
		if !c.inKeywordContext("func", "lambda", "prog") {
			return object.At(node.Pos(), &object.MisplacedControlKeywordError{Keyword: "return"})
		}
		return c.checkElement(scope, node.Value)

	case *ast.Break:
		if !c.inKeywordContext("while") {
			return object.At(node.Pos(), &object.MisplacedControlKeywordError{Keyword: "break"})
		}
		return nil
	}

	return fmt.Errorf("typechecker: unexpected node %T", node)
}

func notBuiltin(name *ast.Identifier) error {
	if _, isBuiltin := object.LookupBuiltin(name.Value); isBuiltin {
		return object.At(name.Pos(), &object.BuiltinRedefinitionError{Name: name.Value})
	}
	return nil
}

func (c *Checker) checkBody(local *Scope, kw string, params []*ast.Identifier, body ast.Element) error {
	for _, p := range params {
		local.AddEntry(p.Value, Any)
	}
	c.pushKeyword(kw)
	defer c.popKeyword()
	return c.checkElement(local, body)
}

func (c *Checker) checkList(scope *Scope, node *ast.List) error {
	if len(node.Elements) == 0 {
		return nil
	}

	if head, ok := node.Elements[0].(*ast.Identifier); ok {
		argc := len(node.Elements) - 1

		// builtins win over scope bindings, the same way the evaluator
		// resolves them by head name
		if b, isBuiltin := object.LookupBuiltin(head.Value); isBuiltin {
			if err := b.CheckArity(argc); err != nil {
				return object.At(head.Pos(), err)
			}
			if b.Name == "isatom" {
				// the argument is inspected, never evaluated
				return nil
			}
		} else {
			sig, err := scope.GetEntry(head.Value)
			if err != nil {
				return object.At(head.Pos(), err)
			}
			if sig.IsFunction && sig.Arity != argc {
				return object.At(head.Pos(), &object.ArityMismatchError{
					Name:     head.Value,
					Expected: sig.Arity,
					Actual:   argc,
				})
			}
		}
		return c.checkElements(scope, node.Elements[1:])
	}

	return c.checkElements(scope, node.Elements)
}

func (c *Checker) checkElements(scope *Scope, elements []ast.Element) error {
	for _, el := range elements {
		if err := c.checkElement(scope, el); err != nil {
			return err
		}
	}
	return nil
}
