package batch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest lists the programs of one batch run.
type Manifest struct {
	Programs []Program `yaml:"programs"`
}

// Program is either a file (Path) or inline Source. Expect, when present,
// lists the rendered top-level results; ExpectError names the error class the
// program must fail with.
type Program struct {
	Name        string   `yaml:"name"`
	Path        string   `yaml:"path,omitempty"`
	Source      string   `yaml:"source,omitempty"`
	Expect      []string `yaml:"expect,omitempty"`
	ExpectError string   `yaml:"expect_error,omitempty"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range m.Programs {
		p := &m.Programs[i]
		if err := p.validate(i); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
		if p.Path != "" && !filepath.IsAbs(p.Path) {
			p.Path = filepath.Join(dir, p.Path)
		}
	}
	return &m, nil
}

func (p *Program) validate(index int) error {
	if (p.Path == "") == (p.Source == "") {
		return fmt.Errorf("program %d: exactly one of path or source is required", index)
	}
	if p.Name == "" {
		if p.Path == "" {
			return fmt.Errorf("program %d: inline programs need a name", index)
		}
		p.Name = p.Path
	}
	if p.ExpectError != "" {
		if _, ok := errorClasses[p.ExpectError]; !ok {
			return fmt.Errorf("program %q: unknown expect_error %q (want one of %s)",
				p.Name, p.ExpectError, strings.Join(ErrorClasses(), ", "))
		}
	}
	return nil
}

// FromFiles builds a manifest without expectations, one program per path.
func FromFiles(paths []string) *Manifest {
	m := &Manifest{}
	for _, p := range paths {
		m.Programs = append(m.Programs, Program{Name: p, Path: p})
	}
	return m
}

func (p Program) load() (string, error) {
	if p.Source != "" {
		return p.Source, nil
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
