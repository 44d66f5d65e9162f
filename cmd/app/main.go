package main

import (
	"context"
	"flag"
	"fmt"
	"lisp/internal/batch"
	"lisp/internal/journal"
	"lisp/internal/log"
	"lisp/internal/repl"
	"lisp/internal/runner"
	"lisp/internal/util"
	"lisp/internal/watch"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dc0d/onexit"
)

var (
	// Version, BuildDate and Commit are set at link time.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// logging
	logLevel string
	logFile  string
	// config vars
	configFile    string
	maxDepth      int
	noResults     bool
	debugAST      bool
	debugASTTxt   bool
	historyFile   string
	journalDriver string
	journalDSN    string
	// modes
	batchFile string
	watchMode bool
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.StringVar(&configFile, "config", "", "TOML configuration file (default lisp.toml if present)")
	// evaluator config
	flag.IntVar(&maxDepth, "max-depth", util.DefaultMaxDepth, "Maximum call depth, 0 for unbounded")
	flag.BoolVar(&noResults, "no-results", false, "Do not print top-level results")
	// parser config
	flag.BoolVar(&debugAST, "debug-ast", false, "Render the AST of each file as <file>.ast.json")
	flag.BoolVar(&debugASTTxt, "debug-ast-txt", false, "Render the AST of each file as <file>.ast.txt")
	// log config
	flag.StringVar(&logLevel, "log-level", "none", "Log level: trace, debug, info, warn, error, none")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
	// journal config
	flag.StringVar(&journalDriver, "journal-driver", "", "Run journal driver: sqlite3, mysql or postgres")
	flag.StringVar(&journalDSN, "journal-dsn", "", "Run journal data source name")
	// modes
	flag.StringVar(&batchFile, "batch", "", "Run the programs listed in a YAML manifest")
	flag.BoolVar(&watchMode, "watch", false, "Re-run the file whenever it changes")
	flag.StringVar(&historyFile, "history", "", "REPL history file")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if version {
		printVersion()
		return 0
	}
	if help {
		printHelp()
		return 0
	}

	config, err := loadConfiguration()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	sink, err := log.Setup(config.LogLevel, config.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", config.LogFile, err)
	}

	var j *journal.Journal
	cleanup := sync.OnceFunc(func() {
		if err := j.Close(); err != nil {
			slog.Warn("journal close failed", slog.Any("error", err))
		}
		sink.Close()
	})
	defer cleanup()

	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
	defer stop()
	// onexit traps job control and quit as well; those keep their defaults
	signal.Reset(syscall.SIGTSTP, syscall.SIGQUIT)
	// an exit hook only interrupts the program; cleanup runs once it unwinds
	onexit.Register(cancel)
	go exitOnSecondSignal(ctx, stop)

	if config.Journal.Driver != "" {
		j, err = journal.Open(ctx, config.Journal.Driver, config.Journal.DSN)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	r := runner.New(config, j)
	slog.Debug("starting",
		slog.String("version", config.Version),
		slog.Int("max-depth", config.MaxDepth),
		slog.String("journal", config.Journal.Driver))

	code := dispatch(ctx, r)
	if ctx.Err() != nil {
		slog.Info("interrupted")
		return 130
	}
	return code
}

// exitOnSecondSignal waits for the first interrupt to cancel ctx. The
// program then unwinds on its own; another interrupt ends the process.
func exitOnSecondSignal(ctx context.Context, stop context.CancelFunc) {
	<-ctx.Done()
	stop()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
	os.Exit(130)
}

func dispatch(ctx context.Context, r *runner.Runner) int {
	switch {
	case batchFile != "":
		m, err := batch.LoadManifest(batchFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		report := batch.Run(ctx, r, m)
		report.Write(os.Stdout)
		return exitCode(report.OK())

	case watchMode:
		if flag.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "-watch needs exactly one file")
			return 1
		}
		name := flag.Arg(0)
		err := watch.Watch(ctx, name, func(source string) {
			fmt.Fprintf(os.Stdout, "--- %s\n", name)
			if _, err := r.Run(ctx, name, source); err != nil {
				fmt.Fprint(os.Stderr, withNewline(runner.Describe(name, source, err)))
			}
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	case flag.NArg() > 0:
		report := batch.Run(ctx, r, batch.FromFiles(flag.Args()))
		for _, res := range report.Results {
			if !res.Passed {
				fmt.Fprint(os.Stderr, withNewline(res.Reason))
			}
		}
		return exitCode(report.OK())

	default:
		if err := repl.New(r).Start(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
}

// loadConfiguration layers defaults, the TOML file and explicitly set flags.
func loadConfiguration() (util.Configuration, error) {
	config := util.DefaultConfiguration()
	config.Version = Version
	config.BuildDate = BuildDate
	config.Commit = Commit

	path, required := configFile, true
	if path == "" {
		path, required = util.DefaultConfigFile, false
	}
	if err := util.LoadConfiguration(path, required, &config); err != nil {
		return config, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			config.LogLevel = logLevel
		case "log-file":
			config.LogFile = logFile
		case "max-depth":
			config.MaxDepth = maxDepth
		case "no-results":
			config.PrintResults = !noResults
		case "debug-ast":
			config.DebugJsonAST = debugAST
		case "debug-ast-txt":
			config.DebugTxtAST = debugASTTxt
		case "journal-driver":
			config.Journal.Driver = journalDriver
		case "journal-dsn":
			config.Journal.DSN = journalDSN
		case "history":
			config.Repl.HistoryFile = historyFile
		}
	})
	return config, nil
}

func exitCode(ok bool) int {
	if ok {
		return 0
	}
	return 1
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func printVersion() {
	fmt.Printf("lisp version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: lisp [options] [file ...]

Options:
  -config <path>          TOML configuration file. Default is 'lisp.toml' when present.
  -batch <manifest.yaml>  Run every program listed in a YAML manifest and report.
  -watch                  Re-run the single given file whenever it changes.
  -max-depth <n>          Maximum call depth, 0 for unbounded. Default is %d.
  -no-results             Do not print top-level results.
  -debug-ast              Render the AST of each file as <file>.ast.json.
  -debug-ast-txt          Render the AST of each file as indented text in <file>.ast.txt.
  -journal-driver <name>  Record runs with sqlite3, mysql or postgres.
  -journal-dsn <dsn>      Data source name for the journal.
  -history <path>         REPL history file.
  -log-level <level>      Set the log level: trace, debug, info, warn, error, none. Default is 'none'.
  -log-file <path>        Specify a log file to write logs. Default is stderr.
  -help                   Display this help information and exit.
  -version                Display version information and exit.

Details:
Without files an interactive REPL is started. Each file is parsed and
typechecked completely before any of it is evaluated; a failing file does not
stop the files after it.

Examples:
  lisp                                      Start the REPL
  lisp -log-level=debug prog.lsp            Run a file with debug logging
  lisp -batch samples/batch.yaml            Run a manifest of programs
  lisp -journal-driver sqlite3 -journal-dsn runs.db prog.lsp

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, util.DefaultMaxDepth, Version, BuildDate, Commit)
}
