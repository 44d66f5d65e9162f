package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"lisp/internal/evaluator"
	"lisp/internal/journal"
	"lisp/internal/object"
	"lisp/internal/parser"
	"lisp/internal/typechecker"
	"lisp/internal/util"
	"log/slog"
	"os"
	"time"

	"github.com/docker/go-units"
)

type Runner struct {
	Config  util.Configuration
	Journal *journal.Journal
	Out     io.Writer
}

func New(config util.Configuration, j *journal.Journal) *Runner {
	return &Runner{Config: config, Journal: j, Out: os.Stdout}
}

// Outcome describes one executed source. Results holds every top-level value
// produced before a failure, rendered.
type Outcome struct {
	Name    string
	RunID   string
	Results []string
	Elapsed time.Duration
	Err     error
}

// Run executes source in a fresh top-level environment.
func (r *Runner) Run(ctx context.Context, name, source string) (*Outcome, error) {
	return r.NewSession().Exec(ctx, name, source)
}

// Session keeps the typechecker scope and the top-level frame alive across
// Exec calls.
type Session struct {
	runner  *Runner
	checker *typechecker.Checker
	eval    *evaluator.Evaluator
}

func (r *Runner) NewSession() *Session {
	e := evaluator.New()
	e.Out = r.Out
	e.MaxDepth = r.Config.MaxDepth
	return &Session{
		runner:  r,
		checker: typechecker.New(),
		eval:    e,
	}
}

// Names lists the identifiers bound at the session's top level.
func (s *Session) Names() []string {
	return s.eval.Names()
}

// Exec parses, fully typechecks and then evaluates source. Results are
// printed and journaled as each one is produced.
func (s *Session) Exec(ctx context.Context, name, source string) (*Outcome, error) {
	r := s.runner
	start := time.Now()
	outcome := &Outcome{Name: name}

	run, err := r.Journal.Begin(ctx, name)
	if err != nil {
		slog.Warn("journal unavailable for run", slog.String("name", name), slog.Any("error", err))
	}
	if run != nil {
		outcome.RunID = run.ID
	}

	outcome.Err = s.exec(ctx, name, source, run, outcome)
	outcome.Elapsed = time.Since(start)

	// an interrupted run still records why it stopped
	if err := run.Finish(context.WithoutCancel(ctx), outcome.Err); err != nil {
		slog.Warn("journal finish failed", slog.String("name", name), slog.Any("error", err))
	}

	attrs := []any{
		slog.String("name", name),
		slog.Int("results", len(outcome.Results)),
		slog.String("elapsed", units.HumanDuration(outcome.Elapsed)),
	}
	if outcome.Err != nil {
		slog.Info("program failed", append(attrs, slog.Any("error", outcome.Err))...)
	} else {
		slog.Info("program finished", attrs...)
	}
	return outcome, outcome.Err
}

func (s *Session) exec(ctx context.Context, name, source string, run *journal.Run, outcome *Outcome) error {
	r := s.runner

	program, err := parser.Parse(name, source)
	if err != nil {
		return err
	}

	if r.Config.DebugJsonAST && name != "" {
		if err := parser.WriteASTToJSON(program, name+".ast.json"); err != nil {
			slog.Warn("could not write AST", slog.String("name", name), slog.Any("error", err))
		}
	}
	if r.Config.DebugTxtAST && name != "" {
		if err := parser.WriteASTToText(program, name+".ast.txt"); err != nil {
			slog.Warn("could not write AST", slog.String("name", name), slog.Any("error", err))
		}
	}

	if err := s.checker.Check(program); err != nil {
		return fmt.Errorf("typecheck: %w", err)
	}

	_, err = s.eval.Evaluate(ctx, program, func(index int, result object.Object) error {
		rendered := result.Inspect()
		outcome.Results = append(outcome.Results, rendered)
		if r.Config.PrintResults {
			fmt.Fprintln(r.Out, rendered)
		}
		if err := run.Record(ctx, index, rendered); err != nil {
			slog.Warn("journal record failed", slog.Any("error", err))
		}
		return nil
	})
	if err != nil {
		// the failing element may have bound names before it stopped, so its
		// bindings stay; later elements never ran
		s.checker.Rollback(len(outcome.Results) + 1)
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// Describe renders err for a terminal. Errors that carry a source position
// get line, column and the surrounding lines of source.
func Describe(name, source string, err error) string {
	var positioned *object.PositionedError
	if !errors.As(err, &positioned) {
		return err.Error()
	}
	line, col := util.GetLineAndColumn(source, positioned.Pos)
	return fmt.Sprintf("%s:%d:%d: %s\n%s\n",
		name, line, col, err.Error(),
		util.GetContextLines(source, line, col, positioned.Err.Error()))
}
