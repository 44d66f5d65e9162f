// Package typechecker implements the static pre-pass run over a whole program
// before any evaluation. It resolves identifiers against a scope of abstract
// signatures, checks call arity against known function signatures, and
// validates the placement of return and break.
package typechecker
