package object

import "sort"

// builtinArity is the fixed primitive surface. It is never mutated.
var builtinArity = map[string]int{
	"plus":   2,
	"minus":  2,
	"times":  2,
	"divide": 2,

	"head": 1,
	"tail": 1,
	"cons": 2,

	"equal":     2,
	"nonequal":  2,
	"less":      2,
	"lesseq":    2,
	"greater":   2,
	"greatereq": 2,

	"isint":  1,
	"isreal": 1,
	"isbool": 1,
	"isnull": 1,
	"isatom": 1,
	"islist": 1,

	"and": 2,
	"or":  2,
	"xor": 2,
	"not": 1,

	"eval":  1,
	"print": 1,
}

var builtinTable = buildBuiltinTable()

func buildBuiltinTable() map[string]*Builtin {
	table := make(map[string]*Builtin, len(builtinArity))
	for name, arity := range builtinArity {
		table[name] = &Builtin{Name: name, Arity: arity}
	}
	return table
}

// LookupBuiltin returns the shared Builtin value for name.
func LookupBuiltin(name string) (*Builtin, bool) {
	b, ok := builtinTable[name]
	return b, ok
}

// BuiltinNames lists every builtin in ascending order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinArity))
	for name := range builtinArity {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckArity fails with an ArityMismatchError naming the builtin.
func (b *Builtin) CheckArity(actual int) error {
	if actual != b.Arity {
		return &ArityMismatchError{Name: b.Name, Expected: b.Arity, Actual: actual}
	}
	return nil
}
