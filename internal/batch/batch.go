// Package batch runs many programs in order, continuing past failures, and
// compares each against optional expectations.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"lisp/internal/object"
	"lisp/internal/parser"
	"lisp/internal/runner"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/docker/go-units"
)

var errorClasses = map[string]func(error) bool{
	"syntax":    is[*parser.SyntaxError],
	"undefined": is[*object.UndefinedIdentifierError],
	"arity":     is[*object.ArityMismatchError],
	"type":      is[*object.TypeError],
	"control":   is[*object.MisplacedControlKeywordError],
	"condition": is[*object.NonBooleanConditionError],
	"depth":     is[*object.DepthExceededError],
	"redefine":  is[*object.BuiltinRedefinitionError],
}

func is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func ErrorClasses() []string {
	names := make([]string, 0, len(errorClasses))
	for name := range errorClasses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classify names the error class of err, or "" when it is none of them.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, name := range ErrorClasses() {
		if errorClasses[name](err) {
			return name
		}
	}
	return ""
}

type Result struct {
	Name    string
	Passed  bool
	Reason  string
	Source  string
	Outcome *runner.Outcome
}

type Report struct {
	Results []Result
	Passed  int
	Failed  int
	Elapsed time.Duration
}

func (r Report) OK() bool {
	return r.Failed == 0
}

// Run executes every program of m in order. A failing program never stops
// the batch.
func Run(ctx context.Context, r *runner.Runner, m *Manifest) Report {
	start := time.Now()
	var report Report

	for _, p := range m.Programs {
		if ctx.Err() != nil {
			break
		}
		res := runProgram(ctx, r, p)
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
			slog.Info("batch program failed", slog.String("name", res.Name), slog.String("reason", res.Reason))
		}
		report.Results = append(report.Results, res)
	}

	report.Elapsed = time.Since(start)
	return report
}

func runProgram(ctx context.Context, r *runner.Runner, p Program) Result {
	res := Result{Name: p.Name}

	source, err := p.load()
	if err != nil {
		res.Reason = fmt.Sprintf("cannot read program: %v", err)
		return res
	}
	res.Source = source

	outcome, runErr := r.Run(ctx, p.Name, source)
	res.Outcome = outcome

	if p.Expect != nil && !equalResults(p.Expect, outcome.Results) {
		res.Reason = fmt.Sprintf("expected results (%s), got (%s)",
			strings.Join(p.Expect, " "), strings.Join(outcome.Results, " "))
		return res
	}

	switch {
	case p.ExpectError != "" && runErr == nil:
		res.Reason = fmt.Sprintf("expected %s error, program succeeded", p.ExpectError)
	case p.ExpectError != "" && Classify(runErr) != p.ExpectError:
		res.Reason = fmt.Sprintf("expected %s error, got %v", p.ExpectError, runErr)
	case p.ExpectError == "" && runErr != nil:
		res.Reason = runner.Describe(p.Name, source, runErr)
	default:
		res.Passed = true
	}
	return res
}

func equalResults(expected, actual []string) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if expected[i] != actual[i] {
			return false
		}
	}
	return true
}

// Write prints one line per program followed by the totals.
func (r Report) Write(w io.Writer) {
	for _, res := range r.Results {
		elapsed := "-"
		if res.Outcome != nil {
			elapsed = units.HumanDuration(res.Outcome.Elapsed)
		}
		if res.Passed {
			fmt.Fprintf(w, "PASS  %s (%s)\n", res.Name, elapsed)
			continue
		}
		fmt.Fprintf(w, "FAIL  %s (%s)\n", res.Name, elapsed)
		for _, line := range strings.Split(strings.TrimRight(res.Reason, "\n"), "\n") {
			fmt.Fprintf(w, "      %s\n", line)
		}
	}
	fmt.Fprintf(w, "%d passed, %d failed in %s\n", r.Passed, r.Failed, units.HumanDuration(r.Elapsed))
}
