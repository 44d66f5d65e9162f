package batch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lisp/internal/runner"
	"lisp/internal/util"
)

const manifestYAML = `
programs:
  - name: arithmetic
    path: samples/arith.lsp
    expect: ["5", "2.0"]
  - name: double
    source: |
      (func double (n) (times n 2))
      (double 21)
    expect: ["<func (n)>", "42"]
  - name: wrong-expectation
    source: (plus 1 1)
    expect: ["3"]
  - name: arity
    source: (plus 1 2 3)
    expect_error: arity
  - name: condition
    source: (cond 1 2)
    expect_error: condition
  - name: unexpected-failure
    source: (plus 1 true)
  - name: after-failures
    source: (equal 2 2.0)
    expect: ["true"]
`

func writeManifest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "samples"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "samples", "arith.lsp"), []byte("(plus 2 3)\n(divide 4 2)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(path, []byte(manifestYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietRunner() *runner.Runner {
	cfg := util.DefaultConfiguration()
	cfg.PrintResults = false
	return &runner.Runner{Config: cfg, Out: &bytes.Buffer{}}
}

func TestRunManifest(t *testing.T) {
	m, err := LoadManifest(writeManifest(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	report := Run(context.Background(), quietRunner(), m)

	expected := map[string]bool{
		"arithmetic":         true,
		"double":             true,
		"wrong-expectation":  false,
		"arity":              true,
		"condition":          true,
		"unexpected-failure": false,
		"after-failures":     true,
	}
	if len(report.Results) != len(expected) {
		t.Fatalf("expected %d results, got %d", len(expected), len(report.Results))
	}
	for _, res := range report.Results {
		if res.Passed != expected[res.Name] {
			t.Errorf("%s: expected passed=%t, reason %q", res.Name, expected[res.Name], res.Reason)
		}
	}
	if report.Passed != 5 || report.Failed != 2 || report.OK() {
		t.Errorf("unexpected totals %d/%d", report.Passed, report.Failed)
	}

	var out bytes.Buffer
	report.Write(&out)
	for _, want := range []string{"PASS  arithmetic", "FAIL  wrong-expectation", "expected results (3), got (2)", "5 passed, 2 failed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}

func TestLoadManifestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"both path and source", "programs:\n  - name: x\n    path: a.lsp\n    source: (plus 1 1)\n", "exactly one of path or source"},
		{"neither", "programs:\n  - name: x\n", "exactly one of path or source"},
		{"nameless inline", "programs:\n  - source: (plus 1 1)\n", "need a name"},
		{"bad class", "programs:\n  - name: x\n    source: '1'\n    expect_error: oops\n", "unknown expect_error"},
		{"unknown field", "programs:\n  - name: x\n    source: '1'\n    expected: ['1']\n", "expected"},
	}

	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "m.yaml")
		if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadManifest(path)
		if err == nil || !strings.Contains(err.Error(), tt.message) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.message, err)
		}
	}
}

func TestFromFilesMissingFileFails(t *testing.T) {
	m := FromFiles([]string{filepath.Join(t.TempDir(), "absent.lsp")})
	report := Run(context.Background(), quietRunner(), m)
	if report.OK() || !strings.Contains(report.Results[0].Reason, "cannot read program") {
		t.Errorf("expected read failure, got %+v", report.Results)
	}
}

func TestClassify(t *testing.T) {
	r := quietRunner()
	r.Config.MaxDepth = 10

	tests := []struct {
		source string
		class  string
	}{
		{"(plus 1", "syntax"},
		{"(plus x 1)", "undefined"},
		{"(not 1 2)", "arity"},
		{"(not 1)", "type"},
		{"(break)", "control"},
		{"(while 1 2)", "condition"},
		{"(func f () (f)) (f)", "depth"},
		{"(func cons (a b) a)", "redefine"},
		{"(plus 1 1)", ""},
	}
	for _, tt := range tests {
		_, err := r.Run(context.Background(), "classify", tt.source)
		if got := Classify(err); got != tt.class {
			t.Errorf("%q: expected class %q, got %q (%v)", tt.source, tt.class, got, err)
		}
	}
}

func TestSamplesManifestPasses(t *testing.T) {
	m, err := LoadManifest(filepath.Join("..", "..", "samples", "batch.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	report := Run(context.Background(), quietRunner(), m)
	for _, res := range report.Results {
		if !res.Passed {
			t.Errorf("%s: %s", res.Name, res.Reason)
		}
	}

	covered := map[string]bool{}
	for _, p := range m.Programs {
		covered[p.ExpectError] = true
	}
	for _, class := range ErrorClasses() {
		if !covered[class] {
			t.Errorf("no sample program expects a %s error", class)
		}
	}
}
