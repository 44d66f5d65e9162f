package runner

import (
	"bytes"
	"context"
	"errors"
	"lisp/internal/journal"
	"lisp/internal/object"
	"lisp/internal/parser"
	"lisp/internal/util"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestRunner(out *bytes.Buffer) *Runner {
	cfg := util.DefaultConfiguration()
	return &Runner{Config: cfg, Out: out}
}

func TestRunPrintsResultsInOrder(t *testing.T) {
	var out bytes.Buffer
	r := newTestRunner(&out)

	outcome, err := r.Run(context.Background(), "scenario", "(plus 2 3) (print (1 2)) (divide 4 2)")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if out.String() != "5\n(1 2)\nnull\n2.0\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	if strings.Join(outcome.Results, ",") != "5,null,2.0" {
		t.Errorf("unexpected results %v", outcome.Results)
	}
}

func TestRunWithoutPrinting(t *testing.T) {
	var out bytes.Buffer
	r := newTestRunner(&out)
	r.Config.PrintResults = false

	if _, err := r.Run(context.Background(), "quiet", "(plus 1 1)"); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestTypecheckFailsBeforeAnyEvaluation(t *testing.T) {
	var out bytes.Buffer
	r := newTestRunner(&out)

	outcome, err := r.Run(context.Background(), "bad", "(print 1) (plus y 1)")
	var undefined *object.UndefinedIdentifierError
	if !errors.As(err, &undefined) {
		t.Fatalf("expected UndefinedIdentifierError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "typecheck: ") {
		t.Errorf("expected typecheck stage prefix, got %q", err.Error())
	}
	if out.Len() != 0 || len(outcome.Results) != 0 {
		t.Errorf("evaluation started despite a typecheck failure: %q", out.String())
	}
}

func TestRuntimeFailureKeepsEarlierResults(t *testing.T) {
	var out bytes.Buffer
	r := newTestRunner(&out)

	outcome, err := r.Run(context.Background(), "partial", "(plus 1 1) (plus 1 true) (plus 2 2)")
	var typeErr *object.TypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected TypeError, got %v", err)
	}
	if len(outcome.Results) != 1 || out.String() != "2\n" {
		t.Errorf("expected only the first result, got %v / %q", outcome.Results, out.String())
	}
}

func TestSyntaxErrorIsReturned(t *testing.T) {
	var out bytes.Buffer
	_, err := newTestRunner(&out).Run(context.Background(), "broken", "(plus 1")
	var syntaxErr *parser.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Errorf("expected SyntaxError, got %v", err)
	}
}

func TestSessionKeepsBindings(t *testing.T) {
	var out bytes.Buffer
	s := newTestRunner(&out).NewSession()
	ctx := context.Background()

	if _, err := s.Exec(ctx, "repl", "(func inc (n) (plus n 1))"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Exec(ctx, "repl", "(inc nope)"); err == nil {
		t.Fatal("expected typecheck failure")
	}
	outcome, err := s.Exec(ctx, "repl", "(inc 41)")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Results[0] != "42" {
		t.Errorf("expected 42, got %v", outcome.Results)
	}

	found := false
	for _, name := range s.Names() {
		if name == "inc" {
			found = true
		}
	}
	if !found {
		t.Errorf("inc missing from session names")
	}
}

func TestRunIsJournaled(t *testing.T) {
	ctx := context.Background()
	j, err := journal.Open(ctx, "sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	var out bytes.Buffer
	r := newTestRunner(&out)
	r.Journal = j

	outcome, err := r.Run(ctx, "journaled", "(setq x 2) (times x 21)")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.RunID == "" {
		t.Fatal("expected a run id")
	}
	values, err := j.Results(ctx, outcome.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(values, ",") != "2,42" {
		t.Errorf("unexpected journaled results %v", values)
	}
}

func TestDescribeShowsSourceContext(t *testing.T) {
	var out bytes.Buffer
	source := "(setq a 1)\n(plus a missing)"
	_, err := newTestRunner(&out).Run(context.Background(), "ctx.lsp", source)
	if err == nil {
		t.Fatal("expected error")
	}
	described := Describe("ctx.lsp", source, err)
	if !strings.HasPrefix(described, "ctx.lsp:2:9: ") {
		t.Errorf("expected position prefix, got %q", described)
	}
	if !strings.Contains(described, "(plus a missing)") || !strings.Contains(described, "^") {
		t.Errorf("expected source line and caret, got %q", described)
	}
}

func TestDepthLimitFromConfig(t *testing.T) {
	var out bytes.Buffer
	r := newTestRunner(&out)
	r.Config.MaxDepth = 5

	_, err := r.Run(context.Background(), "deep", "(func down (n) (cond (equal n 0) 0 (down (minus n 1)))) (down 10)")
	var depth *object.DepthExceededError
	if !errors.As(err, &depth) || depth.Limit != 5 {
		t.Errorf("expected DepthExceededError with limit 5, got %v", err)
	}
}

func TestSessionForgetsDefinitionsThatNeverRan(t *testing.T) {
	var out bytes.Buffer
	s := newTestRunner(&out).NewSession()
	ctx := context.Background()

	if _, err := s.Exec(ctx, "repl", "(setq f (lambda (a b) a))"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Exec(ctx, "repl", "(plus 1 true) (func f (x) x)"); err == nil {
		t.Fatal("expected a runtime failure")
	}
	outcome, err := s.Exec(ctx, "repl", "(f 1 2)")
	if err != nil {
		t.Fatalf("the checker still sees the unevaluated func f: %v", err)
	}
	if outcome.Results[0] != "1" {
		t.Errorf("expected 1, got %v", outcome.Results)
	}
}

func TestCancelledRunIsJournaledAsFailed(t *testing.T) {
	j, err := journal.Open(context.Background(), "sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	var out bytes.Buffer
	r := newTestRunner(&out)
	r.Journal = j

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = r.Run(ctx, "spin", "(setq i 0) (while true (setq i (plus i 1)))")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the deadline to stop the loop, got %v", err)
	}

	runs, err := j.Runs(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != journal.StatusFailed {
		t.Errorf("expected a failed run, got %+v", runs)
	}
}

func TestDebugDumpsNextToSource(t *testing.T) {
	var out bytes.Buffer
	r := newTestRunner(&out)
	r.Config.DebugJsonAST = true
	r.Config.DebugTxtAST = true

	name := filepath.Join(t.TempDir(), "dump.lsp")
	if _, err := r.Run(context.Background(), name, "(plus 1 2)"); err != nil {
		t.Fatal(err)
	}
	text, err := os.ReadFile(name + ".ast.txt")
	if err != nil {
		t.Fatalf("text dump missing: %v", err)
	}
	if string(text) != "(plus 1 2)\n" {
		t.Errorf("unexpected text dump %q", text)
	}
	if _, err := os.Stat(name + ".ast.json"); err != nil {
		t.Errorf("json dump missing: %v", err)
	}
}
