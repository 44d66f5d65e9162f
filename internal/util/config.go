package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigFile = "lisp.toml"
	DefaultMaxDepth   = 10000
	DefaultPrompt     = "lisp> "
)

type Configuration struct {
	Version   string `toml:"-"`
	BuildDate string `toml:"-"`
	Commit    string `toml:"-"`

	LogLevel     string `toml:"log_level"`
	LogFile      string `toml:"log_file"`
	MaxDepth     int    `toml:"max_depth"`
	PrintResults bool   `toml:"print_results"`
	DebugJsonAST bool   `toml:"debug_ast"`
	DebugTxtAST  bool   `toml:"debug_ast_txt"`

	Journal JournalConfig `toml:"journal"`
	Repl    ReplConfig    `toml:"repl"`
}

// JournalConfig selects the run journal; an empty Driver disables it.
type JournalConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type ReplConfig struct {
	HistoryFile string `toml:"history_file"`
	Prompt      string `toml:"prompt"`
}

func DefaultConfiguration() Configuration {
	history := ".lisp_history"
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".lisp_history")
	}
	return Configuration{
		LogLevel:     "none",
		MaxDepth:     DefaultMaxDepth,
		PrintResults: true,
		Repl: ReplConfig{
			HistoryFile: history,
			Prompt:      DefaultPrompt,
		},
	}
}

// LoadConfiguration overlays the TOML file at path onto cfg. A missing file
// is only an error when required is set; unknown keys always are.
func LoadConfiguration(path string, required bool, cfg *Configuration) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}
