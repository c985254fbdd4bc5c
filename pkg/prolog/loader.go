package prolog

import (
	"fmt"
	"strings"
)

// Loader drives consult/ensure_loaded semantics: read one term at a
// time from a source, execute directives immediately, and install
// everything else as a static clause (§4.10).
type Loader struct {
	env *Environment
}

// NewLoader builds a Loader bound to env.
func NewLoader(env *Environment) *Loader {
	return &Loader{env: env}
}

// ConsultString loads source under the given logical source name,
// collecting (not aborting on) structured load errors per clause/
// directive (§4.10 point 4). A repeat call with the same name is a
// no-op unless force is true.
func (l *Loader) ConsultString(name, source string, force bool) error {
	if !force {
		if already := l.env.MarkLoaded(name); already {
			return nil
		}
	} else {
		l.env.MarkLoaded(name)
	}

	bindings := NewBindings()
	tz, err := NewTokenizer(l.env, name, source)
	if err != nil {
		l.env.RecordLoadError(name, 0, err)
		return err
	}
	reader := NewReader(l.env, bindings, tz)

	for {
		term, err := reader.ReadTerm()
		if err != nil {
			l.env.RecordLoadError(name, 0, err)
			// Best-effort recovery: a malformed clause ends at the
			// next "." token (if any); without one we must stop.
			if !skipToNextClause(tz) {
				break
			}
			bindings = NewBindings()
			reader = NewReader(l.env, bindings, tz)
			continue
		}
		if a, ok := term.(Atom); ok && a.Equal(AtomEndOfFile) {
			break
		}
		if err := l.loadTerm(name, term); err != nil {
			l.env.RecordLoadError(name, 0, err)
		}
		bindings = NewBindings()
		reader = NewReader(l.env, bindings, tz)
	}
	return nil
}

func skipToNextClause(tz *Tokenizer) bool {
	for {
		tok := tz.Next()
		if tok.Kind == TokEOF {
			return false
		}
		if tok.Kind == TokName && tok.Text == "." {
			return true
		}
	}
}

// loadTerm installs a directive's effect immediately, or asserts a
// fact/rule statically.
func (l *Loader) loadTerm(source string, term Term) error {
	if c, ok := term.(*Compound); ok && c.Tag.Arity == 1 && (c.Tag.Functor.Name() == ":-" || c.Tag.Functor.Name() == "?-") {
		return l.runDirective(source, c.Args[0])
	}
	_, err := l.env.DB.AssertStatic(term)
	return err
}

// runDirective executes a loader directive to completion (its first
// solution; directives are not expected to be nondeterministic).
func (l *Loader) runDirective(source string, goal Term) error {
	if c, ok := goal.(*Compound); ok {
		switch {
		case c.Tag.Functor.Name() == "dynamic":
			for _, spec := range c.Args {
				if err := l.declarePredicateIndicators(spec, l.env.DB.MarkDynamic); err != nil {
					return err
				}
			}
			return nil
		case c.Tag.Functor.Name() == "discontiguous":
			return l.declarePredicateIndicators(c.Args[0], l.env.DB.MarkDiscontiguous)
		case c.Tag.Functor.Name() == "module" && c.Tag.Arity == 2:
			return nil // single-module embedding: module/2 is a no-op
		case c.Tag.Functor.Name() == "use_module":
			return nil // library modules are pre-loaded into one Environment
		case c.Tag.Functor.Name() == "ensure_loaded" && c.Tag.Arity == 1:
			return nil // resolving a file reference is a host/embedder concern
		}
	}

	interp := NewInterpreter(l.env)
	q := interp.Prepare(goal)
	ok, err := q.Execute(backgroundCtx)
	if err != nil {
		if pe, isPE := err.(*PrologError); isPE {
			return fmt.Errorf("directive failed: %s: %v", source, pe.Term)
		}
		return err
	}
	if !ok {
		return fmt.Errorf("directive failed: %s: %s", source, Write(l.env, interp.Bindings, goal, WriteOptions{Quoted: true}))
	}
	return nil
}

func (l *Loader) declarePredicateIndicators(spec Term, mark func(CompoundTag)) error {
	b := NewBindings()
	for _, t := range flattenConjunctionOrList(b, spec) {
		c, ok := t.(*Compound)
		if !ok || c.Tag.Functor.Name() != "/" || c.Tag.Arity != 2 {
			return TypeError("predicate_indicator", t, "dynamic/1")
		}
		name, ok1 := c.Args[0].(Atom)
		arity, ok2 := c.Args[1].(Int)
		if !ok1 || !ok2 {
			return TypeError("predicate_indicator", t, "dynamic/1")
		}
		mark(Tag(name, int(arity.Big().Int64())))
	}
	return nil
}

// LoadErrorsSummary renders the Environment's accumulated load errors
// as a multi-line report, or "" if there were none.
func LoadErrorsSummary(env *Environment) string {
	err := env.LoadErrors()
	if err == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(err.Error())
	return b.String()
}
