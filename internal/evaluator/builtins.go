package evaluator

import (
	"fmt"
	"lisp/internal/ast"
	"lisp/internal/object"
	"log/slog"
)

type builtinFn func(e *Evaluator, args ...object.Object) (object.Object, error)

// builtins is filled in init: eval re-enters Eval, which dispatches back
// through this table.
var builtins map[string]builtinFn

func init() {
	builtins = map[string]builtinFn{
		"plus":   arithmetic(object.Add),
		"minus":  arithmetic(object.Subtract),
		"times":  arithmetic(object.Multiply),
		"divide": arithmetic(object.Divide),

		"head": funcHead,
		"tail": funcTail,
		"cons": funcCons,

		"equal":     equality(false),
		"nonequal":  equality(true),
		"less":      ordering("less", func(c int) bool { return c < 0 }),
		"lesseq":    ordering("lesseq", func(c int) bool { return c <= 0 }),
		"greater":   ordering("greater", func(c int) bool { return c > 0 }),
		"greatereq": ordering("greatereq", func(c int) bool { return c >= 0 }),

		"isint":  predicate(object.IsInt),
		"isreal": predicate(object.IsReal),
		"isbool": predicate(object.IsBool),
		"isnull": predicate(object.IsNull),
		"islist": predicate(object.IsList),

		"and": logic("and", func(a, b bool) bool { return a && b }),
		"or":  logic("or", func(a, b bool) bool { return a || b }),
		"xor": logic("xor", func(a, b bool) bool { return a != b }),
		"not": funcNot,

		"eval":  funcEval,
		"print": funcPrint,
	}
}

// applyBuiltin evaluates the call's arguments eagerly, except for isatom
// which only inspects the shape of its argument node.
func (e *Evaluator) applyBuiltin(b *object.Builtin, call *ast.List) (object.Object, error) {
	argNodes := call.Elements[1:]
	if err := b.CheckArity(len(argNodes)); err != nil {
		return nil, object.At(call.Pos(), err)
	}

	if b.Name == "isatom" {
		_, isIdent := argNodes[0].(*ast.Identifier)
		return object.NativeBool(isIdent), nil
	}

	args, signal, err := e.evalArguments(argNodes)
	if err != nil || signal != nil {
		return signal, err
	}

	fn, ok := builtins[b.Name]
	if !ok {
		return nil, fmt.Errorf("builtin %s has no implementation", b.Name)
	}

	slog.Debug("apply builtin", slog.String("name", b.Name))
	result, err := fn(e, args...)
	if err != nil {
		return nil, object.At(call.Pos(), err)
	}
	return result, nil
}

func arithmetic(op func(a, b object.Object) (object.Object, error)) builtinFn {
	return func(e *Evaluator, args ...object.Object) (object.Object, error) {
		return op(args[0], args[1])
	}
}

// listArgument accepts a List, or a Quote of a list which is converted to
// data on the way in.
func listArgument(op string, arg object.Object) (*object.List, error) {
	switch arg := arg.(type) {
	case *object.List:
		return arg, nil
	case *object.Quote:
		if l, ok := object.FromNode(arg.Node).(*object.List); ok {
			return l, nil
		}
	}
	return nil, &object.TypeError{Operation: op, Detail: fmt.Sprintf("argument must be %s, got %s", object.LIST_OBJ, arg.Type())}
}

func funcHead(e *Evaluator, args ...object.Object) (object.Object, error) {
	l, err := listArgument("head", args[0])
	if err != nil {
		return nil, err
	}
	if len(l.Elements) == 0 {
		return object.NULL, nil
	}
	return l.Elements[0], nil
}

func funcTail(e *Evaluator, args ...object.Object) (object.Object, error) {
	l, err := listArgument("tail", args[0])
	if err != nil {
		return nil, err
	}
	if len(l.Elements) == 0 {
		return &object.List{Elements: []object.Object{}}, nil
	}
	rest := make([]object.Object, len(l.Elements)-1)
	copy(rest, l.Elements[1:])
	return &object.List{Elements: rest}, nil
}

func funcCons(e *Evaluator, args ...object.Object) (object.Object, error) {
	l, err := listArgument("cons", args[1])
	if err != nil {
		return nil, err
	}
	elements := make([]object.Object, 0, len(l.Elements)+1)
	elements = append(elements, args[0])
	elements = append(elements, l.Elements...)
	return &object.List{Elements: elements}, nil
}

func comparableArguments(op string, a, b object.Object) error {
	for _, arg := range []object.Object{a, b} {
		if !object.IsComparable(arg) {
			return &object.TypeError{Operation: op, Detail: fmt.Sprintf("cannot compare %s", arg.Type())}
		}
	}
	return nil
}

func equality(negate bool) builtinFn {
	op := "equal"
	if negate {
		op = "nonequal"
	}
	return func(e *Evaluator, args ...object.Object) (object.Object, error) {
		if err := comparableArguments(op, args[0], args[1]); err != nil {
			return nil, err
		}
		return object.NativeBool(object.EqualTo(args[0], args[1]) != negate), nil
	}
}

func ordering(op string, accept func(c int) bool) builtinFn {
	return func(e *Evaluator, args ...object.Object) (object.Object, error) {
		c, err := object.Compare(args[0], args[1])
		if err != nil {
			if te, ok := err.(*object.TypeError); ok {
				return nil, &object.TypeError{Operation: op, Detail: te.Detail}
			}
			return nil, err
		}
		return object.NativeBool(accept(c)), nil
	}
}

func predicate(test func(object.Object) bool) builtinFn {
	return func(e *Evaluator, args ...object.Object) (object.Object, error) {
		return object.NativeBool(test(args[0])), nil
	}
}

func boolArgument(op string, arg object.Object) (bool, error) {
	b, ok := arg.(*object.Bool)
	if !ok {
		return false, &object.TypeError{Operation: op, Detail: fmt.Sprintf("argument must be %s, got %s", object.BOOL_OBJ, arg.Type())}
	}
	return b.Value, nil
}

func logic(op string, combine func(a, b bool) bool) builtinFn {
	return func(e *Evaluator, args ...object.Object) (object.Object, error) {
		a, err := boolArgument(op, args[0])
		if err != nil {
			return nil, err
		}
		b, err := boolArgument(op, args[1])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(combine(a, b)), nil
	}
}

func funcNot(e *Evaluator, args ...object.Object) (object.Object, error) {
	a, err := boolArgument("not", args[0])
	if err != nil {
		return nil, err
	}
	return object.NativeBool(!a), nil
}

// funcEval evaluates a quoted subtree one level further in the current
// frame; anything else comes back unchanged.
func funcEval(e *Evaluator, args ...object.Object) (object.Object, error) {
	q, ok := args[0].(*object.Quote)
	if !ok {
		return args[0], nil
	}
	return e.Eval(q.Node)
}

func funcPrint(e *Evaluator, args ...object.Object) (object.Object, error) {
	if _, err := fmt.Fprintln(e.Out, args[0].Inspect()); err != nil {
		return nil, err
	}
	return object.NULL, nil
}
