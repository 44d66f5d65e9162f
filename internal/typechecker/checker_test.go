package typechecker

import (
	"errors"
	"lisp/internal/object"
	"lisp/internal/parser"
	"testing"
)

func check(t *testing.T, c *Checker, input string) error {
	t.Helper()
	program, err := parser.Parse("test", input)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return c.Check(program)
}

func TestCheckAcceptsWellFormedPrograms(t *testing.T) {
	tests := []string{
		"(plus 2 3)",
		"(setq x 10) (plus x 5)",
		"(func double (n) (times n 2)) (double 21)",
		"(func fact (n) (cond (lesseq n 1) 1 (times n (fact (minus n 1)))))",
		"(setq f (lambda (a b) (plus a b))) (f 1 2 3)",
		"(setq i 0) (while (less i 3) (setq i (plus i 1)))",
		"(func f (n) (while true (cond (greater n 0) (return n) (break))))",
		"(setq x 1) (prog (x) (return (plus x 1)))",
		"(quote (undefined things here))",
		"'(a b c)",
		"(isatom undefinedname)",
		"(1 2 3)",
		"()",
		"((lambda (x) x) 1)",
		"(setq a 1) (setq b 2) (prog (a b) (plus a b))",
	}

	for _, input := range tests {
		if err := check(t, New(), input); err != nil {
			t.Errorf("%q: unexpected error %v", input, err)
		}
	}
}

func TestCheckUndefinedIdentifier(t *testing.T) {
	tests := []struct {
		input string
		name  string
	}{
		{"(plus y 1)", "y"},
		{"(g 1)", "g"},
		{"(func f (a) (plus a b))", "b"},
		{"(lambda (a) a) a", "a"},
		{"(prog (missing) 1)", "missing"},
		{"(setq x 1) (prog () x)", "x"},
		{"(setq a 1) (setq b 2) (prog (a) b)", "b"},
	}

	for _, tt := range tests {
		err := check(t, New(), tt.input)
		var undefined *object.UndefinedIdentifierError
		if !errors.As(err, &undefined) {
			t.Errorf("%q: expected UndefinedIdentifierError, got %v", tt.input, err)
			continue
		}
		if undefined.Name != tt.name {
			t.Errorf("%q: expected name %q, got %q", tt.input, tt.name, undefined.Name)
		}
	}
}

func TestCheckArityMismatch(t *testing.T) {
	tests := []struct {
		input    string
		name     string
		expected int
		actual   int
	}{
		{"(plus 1 2 3)", "plus", 2, 3},
		{"(not)", "not", 1, 0},
		{"(func double (n) (times n 2)) (double 1 2)", "double", 1, 2},
		{"(func loop (n) (loop))", "loop", 1, 0},
	}

	for _, tt := range tests {
		err := check(t, New(), tt.input)
		var arity *object.ArityMismatchError
		if !errors.As(err, &arity) {
			t.Errorf("%q: expected ArityMismatchError, got %v", tt.input, err)
			continue
		}
		if arity.Name != tt.name || arity.Expected != tt.expected || arity.Actual != tt.actual {
			t.Errorf("%q: unexpected %+v", tt.input, arity)
		}
	}
}

func TestCheckMisplacedControlKeywords(t *testing.T) {
	tests := []struct {
		input   string
		keyword string
	}{
		{"(return 1)", "return"},
		{"(break)", "break"},
		{"(while true (return 1))", "return"},
		{"(func f () (break))", "break"},
		{"(cond true (break))", "break"},
	}

	for _, tt := range tests {
		err := check(t, New(), tt.input)
		var misplaced *object.MisplacedControlKeywordError
		if !errors.As(err, &misplaced) {
			t.Errorf("%q: expected MisplacedControlKeywordError, got %v", tt.input, err)
			continue
		}
		if misplaced.Keyword != tt.keyword {
			t.Errorf("%q: expected keyword %s, got %s", tt.input, tt.keyword, misplaced.Keyword)
		}
	}
}

func TestCheckRejectsBuiltinRedefinition(t *testing.T) {
	tests := []struct {
		input string
		name  string
		pos   int
	}{
		{"(func plus (a) a)", "plus", 6},
		{"(setq head 1)", "head", 6},
		{"(func f () (setq print 1))", "print", 17},
		{"(lambda () (func eval (x) x))", "eval", 17},
	}

	for _, tt := range tests {
		err := check(t, New(), tt.input)
		var redefined *object.BuiltinRedefinitionError
		if !errors.As(err, &redefined) {
			t.Errorf("%q: expected BuiltinRedefinitionError, got %v", tt.input, err)
			continue
		}
		if redefined.Name != tt.name {
			t.Errorf("%q: expected name %q, got %q", tt.input, tt.name, redefined.Name)
		}
		var positioned *object.PositionedError
		if !errors.As(err, &positioned) || positioned.Pos != tt.pos {
			t.Errorf("%q: expected position %d, got %v", tt.input, tt.pos, err)
		}
	}
}

func TestCheckParametersDoNotLeak(t *testing.T) {
	c := New()
	if err := check(t, c, "(func f (secret) secret)"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := check(t, c, "secret"); err == nil {
		t.Errorf("parameter leaked into the top-level scope")
	}
}

func TestCheckCommitsOnlyOnSuccess(t *testing.T) {
	c := New()
	if err := check(t, c, "(setq a 1)"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := check(t, c, "(setq b 2) (undefined)"); err == nil {
		t.Fatalf("expected an error")
	}
	if err := check(t, c, "a"); err != nil {
		t.Errorf("committed binding a lost: %v", err)
	}
	if err := check(t, c, "b"); err == nil {
		t.Errorf("binding from a failed check was committed")
	}
}

func TestCheckErrorCarriesPosition(t *testing.T) {
	err := check(t, New(), "(plus 1 2)\n(plus zz 1)")
	var positioned *object.PositionedError
	if !errors.As(err, &positioned) {
		t.Fatalf("expected PositionedError, got %v", err)
	}
	if positioned.Pos != 17 {
		t.Errorf("expected position 17, got %d", positioned.Pos)
	}
}

func TestRollbackKeepsLeadingElements(t *testing.T) {
	c := New()
	if err := check(t, c, "(setq f (lambda (a b) a))"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := check(t, c, "(plus 1 true) (func f (x) x) (setq g 1)"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	// only the first element ran
	c.Rollback(1)
	if err := check(t, c, "(f 1 2)"); err != nil {
		t.Errorf("rollback kept the unevaluated func f: %v", err)
	}
	if err := check(t, c, "g"); err == nil {
		t.Errorf("rollback kept g from an unevaluated element")
	}
}

func TestRollbackOutOfRangeIsNoop(t *testing.T) {
	c := New()
	if err := check(t, c, "(setq a 1)"); err != nil {
		t.Fatal(err)
	}
	if err := check(t, c, "(setq b 2) (undefined)"); err == nil {
		t.Fatal("expected an error")
	}
	c.Rollback(5)
	if err := check(t, c, "a"); err != nil {
		t.Errorf("binding a lost: %v", err)
	}
}
