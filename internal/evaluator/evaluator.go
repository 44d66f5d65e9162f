package evaluator

import (
	"context"
	"fmt"
	"io"
	"lisp/internal/ast"
	"lisp/internal/object"
	"log/slog"
	"os"
)

type Env = object.Environment[object.Object]

const DefaultMaxDepth = 10000

type Evaluator struct {
	envStack []*Env // envStack[0] is the top-level frame
	ctx      context.Context

	Out      io.Writer
	MaxDepth int // 0 disables the bound
}

func New() *Evaluator {
	e := &Evaluator{ctx: context.Background(), Out: os.Stdout, MaxDepth: DefaultMaxDepth}
	e.PushEnv(object.NewRootEnvironment())
	return e
}

func (e *Evaluator) PushEnv(env *Env) {
	e.envStack = append(e.envStack, env)
}

func (e *Evaluator) CurrentEnv() *Env {
	if len(e.envStack) == 0 {
		panic("environment stack is empty")
	}
	return e.envStack[len(e.envStack)-1]
}

func (e *Evaluator) PopEnv() {
	if len(e.envStack) <= 1 {
		panic("attempted to pop the top-level environment")
	}
	e.envStack = e.envStack[:len(e.envStack)-1]
}

// Depth is the number of call frames above the top level.
func (e *Evaluator) Depth() int {
	return len(e.envStack) - 1
}

// Names lists every identifier bound at the top level.
func (e *Evaluator) Names() []string {
	return e.envStack[0].Names()
}

// Evaluate runs each top-level element in order against the persistent
// top-level frame, calling onResult as soon as each value is produced. The
// first error aborts the remaining elements; results already reported stand.
// Cancelling ctx stops evaluation at the next loop iteration or call.
func (e *Evaluator) Evaluate(ctx context.Context, program *ast.Program, onResult func(index int, result object.Object) error) ([]object.Object, error) {
	results := make([]object.Object, 0, len(program.Elements))

	e.ctx = ctx
	defer func() { e.ctx = context.Background() }()

	for _, el := range program.Elements {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := e.Eval(el)
		if err != nil {
			return results, err
		}
		switch result.(type) {
		case *object.ReturnValue:
			return results, object.At(el.Pos(), &object.MisplacedControlKeywordError{Keyword: "return"})
		case *object.BreakSignal:
			return results, object.At(el.Pos(), &object.MisplacedControlKeywordError{Keyword: "break"})
		}

		results = append(results, result)
		if onResult != nil {
			if err := onResult(len(results)-1, result); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

// Eval produces a value, a control signal, or an error for one node.
func (e *Evaluator) Eval(node ast.Element) (object.Object, error) {
	switch node := node.(type) {

	case *ast.Identifier:
		val, err := e.CurrentEnv().GetEntry(node.Value)
		if err != nil {
			return nil, object.At(node.Pos(), err)
		}
		return val, nil

	case *ast.Literal:
		return object.FromLiteral(node.Value), nil

	case *ast.Quote:
		return &object.Quote{Node: node.Element}, nil

	case *ast.List:
		return e.evalList(node)

	case *ast.SetQ:
		if err := notBuiltin(node.Assignee); err != nil {
			return nil, err
		}
		val, err := e.Eval(node.Value)
		if err != nil || object.IsSignal(val) {
			return val, err
		}
		e.CurrentEnv().AddEntry(node.Assignee.Value, val)
		return val, nil

	case *ast.Func:
		if err := notBuiltin(node.Name); err != nil {
			return nil, err
		}
		fn := newFunction(node.Parameters, node.Body)
		e.CurrentEnv().AddEntry(node.Name.Value, fn)
		return fn, nil

	case *ast.Lambda:
		return newFunction(node.Parameters, node.Body), nil

	case *ast.Prog:
		return e.evalProg(node)

	case *ast.Cond:
		return e.evalCond(node)

	case *ast.While:
		return e.evalWhile(node)

	case *ast.Return:
		val, err := e.Eval(node.Value)
		if err != nil || object.IsSignal(val) {
			return val, err
		}
		return &object.ReturnValue{Value: val}, nil

	case *ast.Break:
		return object.BREAK, nil
	}

	return nil, fmt.Errorf("evaluator: unexpected node %T", node)
}

// notBuiltin guards definitions reached through eval, which the static
// check never saw.
func notBuiltin(name *ast.Identifier) error {
	if _, isBuiltin := object.LookupBuiltin(name.Value); isBuiltin {
		return object.At(name.Pos(), &object.BuiltinRedefinitionError{Name: name.Value})
	}
	return nil
}

func newFunction(params []*ast.Identifier, body ast.Element) *object.Function {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Value
	}
	return &object.Function{Parameters: names, Body: body}
}

func (e *Evaluator) evalList(node *ast.List) (object.Object, error) {
	if len(node.Elements) == 0 {
		return &object.List{Elements: []object.Object{}}, nil
	}

	head, ok := node.Elements[0].(*ast.Identifier)
	if !ok {
		return e.evalDataList(node.Elements)
	}

	if b, isBuiltin := object.LookupBuiltin(head.Value); isBuiltin {
		return e.applyBuiltin(b, node)
	}

	callee, err := e.CurrentEnv().GetEntry(head.Value)
	if err != nil {
		return nil, object.At(head.Pos(), err)
	}

	switch callee := callee.(type) {
	case *object.Builtin:
		return e.applyBuiltin(callee, node)
	case *object.Function:
		args, signal, err := e.evalArguments(node.Elements[1:])
		if err != nil || signal != nil {
			return signal, err
		}
		return e.applyFunction(head.Value, callee, args, node.Pos())
	}

	rest, err := e.evalDataList(node.Elements[1:])
	if err != nil || object.IsSignal(rest) {
		return rest, err
	}
	elements := append([]object.Object{callee}, rest.(*object.List).Elements...)
	return &object.List{Elements: elements}, nil
}

func (e *Evaluator) evalDataList(nodes []ast.Element) (object.Object, error) {
	elements, signal, err := e.evalArguments(nodes)
	if err != nil || signal != nil {
		return signal, err
	}
	return &object.List{Elements: elements}, nil
}

// evalArguments evaluates nodes left to right. A control signal raised by
// any of them stops evaluation and is handed back for propagation.
func (e *Evaluator) evalArguments(nodes []ast.Element) ([]object.Object, object.Object, error) {
	args := make([]object.Object, 0, len(nodes))
	for _, n := range nodes {
		val, err := e.Eval(n)
		if err != nil {
			return nil, nil, err
		}
		if object.IsSignal(val) {
			return nil, val, nil
		}
		args = append(args, val)
	}
	return args, nil, nil
}

// applyFunction binds args in a snapshot of the caller's frame. Free names in
// the body resolve there, not at the definition site.
func (e *Evaluator) applyFunction(name string, fn *object.Function, args []object.Object, pos int) (object.Object, error) {
	if len(args) != len(fn.Parameters) {
		return nil, object.At(pos, &object.ArityMismatchError{
			Name:     name,
			Expected: len(fn.Parameters),
			Actual:   len(args),
		})
	}

	local := object.NewEnclosedEnvironment(e.CurrentEnv())
	for i, p := range fn.Parameters {
		local.AddEntry(p, args[i])
	}

	slog.Debug("apply function",
		slog.String("name", name),
		slog.Int("args", len(args)),
		slog.Int("depth", e.Depth()+1))

	return e.invoke(local, fn.Body, pos)
}

// invoke evaluates body in its own frame and absorbs a Return signal.
// Break is not owned by a call boundary and keeps unwinding.
func (e *Evaluator) invoke(local *Env, body ast.Element, pos int) (object.Object, error) {
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}
	if e.MaxDepth > 0 && e.Depth() >= e.MaxDepth {
		return nil, object.At(pos, &object.DepthExceededError{Limit: e.MaxDepth})
	}

	e.PushEnv(local)
	defer e.PopEnv()

	result, err := e.Eval(body)
	if err != nil {
		return nil, err
	}
	if rv, ok := result.(*object.ReturnValue); ok {
		slog.Debug("return absorbed", slog.String("value", rv.Value.Inspect()))
		return rv.Value, nil
	}
	return result, nil
}

func (e *Evaluator) evalProg(node *ast.Prog) (object.Object, error) {
	local := object.NewRootEnvironment()
	for _, p := range node.Parameters {
		val, err := e.CurrentEnv().GetEntry(p.Value)
		if err != nil {
			return nil, object.At(p.Pos(), err)
		}
		local.AddEntry(p.Value, val)
	}
	return e.invoke(local, node.Body, node.Pos())
}

func (e *Evaluator) evalCondition(form string, condition ast.Element) (bool, object.Object, error) {
	val, err := e.Eval(condition)
	if err != nil {
		return false, nil, err
	}
	if object.IsSignal(val) {
		return false, val, nil
	}
	b, ok := val.(*object.Bool)
	if !ok {
		return false, nil, object.At(condition.Pos(), &object.NonBooleanConditionError{Form: form, Got: val.Type()})
	}
	return b.Value, nil, nil
}

func (e *Evaluator) evalCond(node *ast.Cond) (object.Object, error) {
	ok, signal, err := e.evalCondition("cond", node.Condition)
	if err != nil || signal != nil {
		return signal, err
	}
	if ok {
		return e.Eval(node.TrueArgument)
	}
	if node.FalseArgument != nil {
		return e.Eval(node.FalseArgument)
	}
	return object.NULL, nil
}

func (e *Evaluator) evalWhile(node *ast.While) (object.Object, error) {
	for {
		if err := e.ctx.Err(); err != nil {
			return nil, err
		}
		ok, signal, err := e.evalCondition("while", node.Condition)
		if err != nil || signal != nil {
			return signal, err
		}
		if !ok {
			return object.NULL, nil
		}

		result, err := e.Eval(node.Body)
		if err != nil {
			return nil, err
		}
		switch result.(type) {
		case *object.BreakSignal:
			slog.Debug("break absorbed", slog.Int("position", node.Pos()))
			return object.NULL, nil
		case *object.ReturnValue:
			return result, nil
		}
	}
}
