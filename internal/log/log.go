package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

const (
	LevelTrace = slog.Level(-8)
	LevelNone  = slog.Level(12)
)

var levelNames = map[slog.Level]string{
	LevelTrace: "TRACE",
	LevelNone:  "NONE",
}

// ParseLevel maps trace|debug|info|warn|error|none onto slog levels. Unknown
// names turn logging off.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return LevelNone
	}
}

// Sink is the log destination: stderr, or a file that is reopened on SIGHUP
// so it can be rotated underneath the process.
//
//	mv lisp.log lisp.bak && kill -HUP <pid>
type Sink struct {
	path string
	file *os.File
	out  io.Writer
	stop chan struct{}
	mu   sync.Mutex
}

func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

// Reopen closes and reopens the log file. It is a no-op for stderr.
func (s *Sink) Reopen() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		s.file.Close()
	}
	fh, err := openLogFile(s.path)
	if err != nil {
		s.file = nil
		s.out = os.Stderr
		return err
	}
	s.file = fh
	s.out = fh
	return nil
}

func (s *Sink) Close() error {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.out = os.Stderr
	return err
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for '%s': %w", path, err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// NewSink opens path, or falls back to stderr when path is empty or cannot be
// opened. The returned error reports the fallback.
func NewSink(path string) (*Sink, error) {
	s := &Sink{path: path, out: os.Stderr}
	if path == "" {
		return s, nil
	}
	fh, err := openLogFile(path)
	if err != nil {
		s.path = ""
		return s, err
	}
	s.file = fh
	s.out = fh
	s.watchHangup()
	return s, nil
}

func (s *Sink) watchHangup() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)
	s.stop = make(chan struct{})
	go func(stop chan struct{}) {
		defer signal.Stop(sigs)
		for {
			select {
			case <-sigs:
				if err := s.Reopen(); err != nil {
					fmt.Fprintf(os.Stderr, "could not reopen log file: %v\n", err)
				}
			case <-stop:
				return
			}
		}
	}(s.stop)
}

// NewHandler builds the JSON handler used process wide, naming the custom
// levels.
func NewHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					if name, found := levelNames[lvl]; found {
						a.Value = slog.StringValue(name)
					}
				}
			}
			return a
		},
	})
}

// Setup installs the default slog logger and returns its sink for closing.
func Setup(level, file string) (*Sink, error) {
	sink, err := NewSink(file)
	slog.SetDefault(slog.New(NewHandler(sink, ParseLevel(level))))
	return sink, err
}

// Trace logs below debug.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}
