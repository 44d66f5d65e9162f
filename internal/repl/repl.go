package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"lisp/internal/lexer"
	"lisp/internal/object"
	"lisp/internal/runner"
	"lisp/internal/token"
	"strings"

	"github.com/chzyer/readline"
	"github.com/docker/go-units"
)

const contprompt = ". "

const helpText = `:env        list top-level bindings
:runs [n]   list the last n journaled runs
:help       show this help
:quit       leave the REPL
`

// Repl reads complete S-expressions and runs them in one persistent session.
type Repl struct {
	runner  *runner.Runner
	session *runner.Session
	out     io.Writer
}

func New(r *runner.Runner) *Repl {
	return &Repl{runner: r, session: r.NewSession(), out: r.Out}
}

func (r *Repl) Start(ctx context.Context) error {
	cfg := r.runner.Config.Repl
	l, err := readline.NewEx(&readline.Config{
		Prompt:            cfg.Prompt,
		HistoryFile:       cfg.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	defer l.Close()

	pending := ""
	for ctx.Err() == nil {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if pending == "" && line == "" {
				return nil
			}
			pending = ""
			l.SetPrompt(cfg.Prompt)
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("repl: %w", err)
		}

		input := pending + line
		if strings.TrimSpace(input) == "" {
			continue
		}
		if NeedsMore(input) {
			pending = input + "\n"
			l.SetPrompt(contprompt)
			continue
		}
		pending = ""
		l.SetPrompt(cfg.Prompt)

		if r.Handle(ctx, input) {
			return nil
		}
	}
	return ctx.Err()
}

// Handle runs one complete input and reports whether the REPL should exit.
func (r *Repl) Handle(ctx context.Context, input string) bool {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, ":") {
		return r.command(ctx, strings.Fields(trimmed))
	}

	if _, err := r.session.Exec(ctx, "repl", input); err != nil {
		fmt.Fprintln(r.out, strings.TrimRight(runner.Describe("repl", input, err), "\n"))
	}
	return false
}

func (r *Repl) command(ctx context.Context, fields []string) bool {
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprint(r.out, helpText)
	case ":env":
		var names []string
		for _, name := range r.session.Names() {
			if _, isBuiltin := object.LookupBuiltin(name); !isBuiltin {
				names = append(names, name)
			}
		}
		fmt.Fprintln(r.out, strings.Join(names, " "))
	case ":runs":
		r.listRuns(ctx, fields[1:])
	default:
		fmt.Fprintf(r.out, "unknown command %s, try :help\n", fields[0])
	}
	return false
}

func (r *Repl) listRuns(ctx context.Context, args []string) {
	if r.runner.Journal == nil {
		fmt.Fprintln(r.out, "journal disabled")
		return
	}
	limit := 10
	if len(args) > 0 {
		if _, err := fmt.Sscanf(args[0], "%d", &limit); err != nil || limit <= 0 {
			fmt.Fprintf(r.out, "invalid run count %q\n", args[0])
			return
		}
	}
	runs, err := r.runner.Journal.Runs(ctx, limit)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	for _, run := range runs {
		line := fmt.Sprintf("%s  %-7s  %s  results=%d", run.ID, run.Status, run.Source, run.Results)
		if !run.FinishedAt.IsZero() {
			line += "  " + units.HumanDuration(run.Duration())
		}
		if run.Error != "" {
			line += "  " + run.Error
		}
		fmt.Fprintln(r.out, line)
	}
}

// NeedsMore reports whether input has unclosed lists or a dangling quote.
func NeedsMore(input string) bool {
	depth := 0
	var last token.TokenType
	for _, tok := range lexer.New(input).Tokens() {
		switch tok.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		if tok.Type != token.EOF {
			last = tok.Type
		}
	}
	return depth > 0 || last == token.QUOTE
}
