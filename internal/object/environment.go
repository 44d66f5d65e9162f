package object

import (
	"lisp/internal/log"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/btree"
)

var nextID atomic.Uint64

func nextEnvID() uint64 {
	return nextID.Add(1)
}

type binding[V any] struct {
	name  string
	value V
}

func bindingLess[V any](a, b binding[V]) bool {
	return a.name < b.name
}

// Environment maps identifiers to values with snapshot semantics: an
// enclosed environment is a lazy copy-on-write clone of its parent, so
// writes on either side are invisible to the other. The evaluator uses
// Environment[Object]; the typechecker binds signatures instead.
type Environment[V any] struct {
	ID      uint64
	entries *btree.BTreeG[binding[V]]
}

func NewEnvironment[V any]() *Environment[V] {
	return &Environment[V]{
		ID:      nextEnvID(),
		entries: btree.NewG[binding[V]](8, bindingLess[V]),
	}
}

// NewEnclosedEnvironment snapshots outer.
func NewEnclosedEnvironment[V any](outer *Environment[V]) *Environment[V] {
	env := &Environment[V]{
		ID:      nextEnvID(),
		entries: outer.entries.Clone(),
	}
	log.Trace("new env",
		slog.Uint64("id", env.ID),
		slog.Uint64("outer", outer.ID),
		slog.Int("bindings", env.entries.Len()))
	return env
}

// AddEntry binds name, replacing any existing binding in this frame.
func (e *Environment[V]) AddEntry(name string, value V) {
	e.entries.ReplaceOrInsert(binding[V]{name: name, value: value})
}

func (e *Environment[V]) GetEntry(name string) (V, error) {
	b, ok := e.entries.Get(binding[V]{name: name})
	if !ok {
		var zero V
		return zero, &UndefinedIdentifierError{Name: name}
	}
	return b.value, nil
}

func (e *Environment[V]) Has(name string) bool {
	return e.entries.Has(binding[V]{name: name})
}

func (e *Environment[V]) Len() int {
	return e.entries.Len()
}

// Names lists bound identifiers in ascending order.
func (e *Environment[V]) Names() []string {
	names := make([]string, 0, e.entries.Len())
	e.entries.Ascend(func(b binding[V]) bool {
		names = append(names, b.name)
		return true
	})
	return names
}

// Cloning a btree also rewrites the source's copy-on-write context, so
// the shared base environment is guarded.
var (
	baseMu  sync.Mutex
	baseEnv = newBaseEnvironment()
)

func newBaseEnvironment() *Environment[Object] {
	env := NewEnvironment[Object]()
	for name, b := range builtinTable {
		env.AddEntry(name, b)
	}
	return env
}

// NewRootEnvironment returns a fresh top-level environment seeded with every
// builtin from the shared static table.
func NewRootEnvironment() *Environment[Object] {
	baseMu.Lock()
	defer baseMu.Unlock()
	slog.Debug("new root env", slog.Int("builtins", baseEnv.Len()))
	return NewEnclosedEnvironment(baseEnv)
}
