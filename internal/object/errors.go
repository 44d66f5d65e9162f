package object

import (
	"fmt"
)

type UndefinedIdentifierError struct {
	Name string
}

func (e *UndefinedIdentifierError) Error() string {
	return fmt.Sprintf("undefined identifier %q", e.Name)
}

type ArityMismatchError struct {
	Name     string
	Expected int
	Actual   int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("%s expects %d arguments, got %d", e.Name, e.Expected, e.Actual)
}

type TypeError struct {
	Operation string
	Detail    string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error in %s: %s", e.Operation, e.Detail)
}

func newTypeError(operation string, format string, a ...interface{}) *TypeError {
	return &TypeError{Operation: operation, Detail: fmt.Sprintf(format, a...)}
}

// MisplacedControlKeywordError covers return outside func/lambda/prog and
// break outside while.
type MisplacedControlKeywordError struct {
	Keyword string
}

func (e *MisplacedControlKeywordError) Error() string {
	owner := "func, lambda or prog"
	if e.Keyword == "break" {
		owner = "while"
	}
	return fmt.Sprintf("%s used outside of %s", e.Keyword, owner)
}

type NonBooleanConditionError struct {
	Form string
	Got  ObjectType
}

func (e *NonBooleanConditionError) Error() string {
	return fmt.Sprintf("%s condition must evaluate to %s, got %s", e.Form, BOOL_OBJ, e.Got)
}

type DepthExceededError struct {
	Limit int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("maximum call depth of %d exceeded", e.Limit)
}

// BuiltinRedefinitionError rejects func or setq targeting a builtin name.
// Calls headed by that name would keep reaching the builtin.
type BuiltinRedefinitionError struct {
	Name string
}

func (e *BuiltinRedefinitionError) Error() string {
	return fmt.Sprintf("builtin %q cannot be redefined", e.Name)
}

// PositionedError attaches the byte offset of the offending node so callers
// can render line, column and surrounding source.
type PositionedError struct {
	Pos int
	Err error
}

func (e *PositionedError) Error() string { return e.Err.Error() }
func (e *PositionedError) Unwrap() error { return e.Err }

// At wraps err with pos unless it already carries a position.
func At(pos int, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*PositionedError); ok {
		return err
	}
	return &PositionedError{Pos: pos, Err: err}
}
