// Package prolog implements the core of an embeddable, ISO-conformant
// Prolog (Part 1) evaluator: term model, trail-based unification, clause
// database with first-argument indexing, a choice-point-stack
// interpreter for the standard control constructs, an arithmetic
// evaluator, and an operator-precedence reader/writer.
//
// The package is deliberately a single flat package, in the style of a
// small relational-programming runtime: the term model, unifier,
// interpreter, and database all need to see each other's unexported
// details (trail marks, clause indexes, choice-point frames) and
// splitting them across sub-packages would mean exporting internals
// that have no business being public API.
//
// Out of scope, by design (see SPEC_FULL.md): an interactive REPL, CLI
// argument handling, line editing, constraint logic programming,
// tabling, and multi-module isolation. Those are left to callers that
// embed this package.
package prolog
