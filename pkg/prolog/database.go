package prolog

import (
	"fmt"
	"sync"
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// PredicateKind distinguishes user-defined predicates (clause lists)
// from foreign (Go-implemented) predicates and control constructs
// dispatched directly by the interpreter.
type PredicateKind int

const (
	KindUser PredicateKind = iota
	KindForeign
	KindControl
)

// Clause is a stored fact (Body == nil, meaning "true") or rule (Head
// :- Body). It is stored exactly as read; execution always works on a
// fresh variable-renamed copy (§3 Clause).
type Clause struct {
	Head Term
	Body Term // nil for a fact
}

func (c *Clause) String() string {
	if c.Body == nil {
		return c.Head.String()
	}
	return c.Head.String() + " :- " + c.Body.String()
}

// ForeignFunc is a Go-implemented predicate: given the call's argument
// terms and the interpreter (whose Bindings hold the current bindings),
// it returns OutcomeSucceed or OutcomeFail for its first solution. A
// nondeterministic builtin offers further solutions by registering a
// redo closure with Interpreter.PushGenerator before returning (see
// interp.go).
type ForeignFunc func(i *Interpreter, args []Term, depth int) (Outcome, error)

// predicateState is the immutable snapshot of one predicate's clauses:
// an ordered list (assert/retract order, used by asserta/assertz/
// clause/2 enumeration) plus a first-argument index built lazily from
// it. Replacing the *predicateState pointer atomically is what gives
// query iteration its logical-update view (§5): a lookup takes the
// pointer once at the start of a query step and is unaffected by later
// asserts/retracts on other goroutines or stack frames.
type predicateState struct {
	clauses []*Clause
	index   *iradix.Tree[[]*Clause] // nil until first indexed lookup
	varOnly []*Clause               // clauses whose first arg is a variable (match every key)
}

// Predicate holds one CompoundTag's clauses/foreign implementation and
// flags.
type Predicate struct {
	Tag           CompoundTag
	Kind          PredicateKind
	Dynamic       bool
	Discontiguous bool
	Public        bool

	state   atomic.Pointer[predicateState]
	foreign ForeignFunc

	mu sync.RWMutex // serializes assert/retract read-modify-write
}

func newUserPredicate(tag CompoundTag) *Predicate {
	p := &Predicate{Tag: tag, Kind: KindUser}
	p.state.Store(&predicateState{})
	return p
}

// indexKey computes the principal-functor bucket key for a first
// argument term (already dereferenced): the atom name, "name/arity" for
// a compound, or a type-tag string for a number/other atomic. Variables
// do not get a key — they are collected in varOnly instead (§4.6:
// "Clauses whose first argument is a variable belong to every bucket").
func indexKey(b *Bindings, firstArg Term) (string, bool) {
	t := b.Deref(firstArg)
	switch v := t.(type) {
	case *Variable:
		return "", false
	case Atom:
		return "a:" + v.Name(), true
	case *Compound:
		return "c:" + v.Tag.Indicator(), true
	case Int:
		return "i:" + v.String(), true
	case Float:
		return "f:" + v.String(), true
	case Decimal:
		return "d:" + v.String(), true
	default:
		return "", true
	}
}

func buildIndex(clauses []*Clause) *predicateState {
	tree := iradix.New[[]*Clause]()
	buckets := map[string][]*Clause{}
	var order []string
	var varOnly []*Clause
	tmpBindings := NewBindings() // purely structural: clause heads are unrenamed, so args are never bound

	for _, c := range clauses {
		var first Term
		switch h := c.Head.(type) {
		case *Compound:
			first = h.Args[0]
		default:
			// 0-arity predicate: every clause is in the universal bucket.
			varOnly = append(varOnly, c)
			continue
		}
		key, indexable := indexKey(tmpBindings, first)
		if !indexable {
			varOnly = append(varOnly, c)
			continue
		}
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], c)
	}
	for _, k := range order {
		tree, _, _ = tree.Insert([]byte(k), buckets[k])
	}
	return &predicateState{clauses: clauses, index: tree, varOnly: varOnly}
}

// candidates returns the clause sublist relevant to a call whose first
// argument (if any) derefs to firstArg, rebuilding the index lazily if
// it has not yet been built for the current clause-list version.
func (p *Predicate) candidates(b *Bindings, firstArg Term, hasFirstArg bool) []*Clause {
	st := p.state.Load()
	if !hasFirstArg {
		return st.clauses
	}
	if st.index == nil {
		old := st
		st = buildIndex(st.clauses)
		p.state.CompareAndSwap(old, st)
	}
	key, indexable := indexKey(b, firstArg)
	if !indexable {
		return st.clauses
	}
	bucket, _ := st.index.Get([]byte(key))
	if len(st.varOnly) == 0 {
		return bucket
	}
	return mergeInOrder(st.clauses, bucket, st.varOnly)
}

// mergeInOrder returns the elements of bucket+varOnly in the same
// relative order they appear in all, preserving assert/retract order
// for clause/2 and for solution order (append-z order matters for
// determinism of e.g. member/2 scenarios).
func mergeInOrder(all, bucket, varOnly []*Clause) []*Clause {
	want := make(map[*Clause]bool, len(bucket)+len(varOnly))
	for _, c := range bucket {
		want[c] = true
	}
	for _, c := range varOnly {
		want[c] = true
	}
	out := make([]*Clause, 0, len(want))
	for _, c := range all {
		if want[c] {
			out = append(out, c)
		}
	}
	return out
}

// Database is a Module: a mapping from CompoundTag to Predicate.
type Database struct {
	mu         sync.RWMutex
	predicates map[CompoundTag]*Predicate
}

func NewDatabase() *Database {
	return &Database{predicates: make(map[CompoundTag]*Predicate)}
}

// Lookup returns the predicate for tag, if any has been declared
// (dynamic, discontiguous, or with at least one clause/foreign impl).
func (db *Database) Lookup(tag CompoundTag) (*Predicate, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	p, ok := db.predicates[tag]
	return p, ok
}

func (db *Database) ensure(tag CompoundTag) *Predicate {
	db.mu.RLock()
	p, ok := db.predicates[tag]
	db.mu.RUnlock()
	if ok {
		return p
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.predicates[tag]; ok {
		return p
	}
	p = newUserPredicate(tag)
	db.predicates[tag] = p
	return p
}

// DefineForeign installs a Go-implemented predicate, overriding any
// clause-based definition.
func (db *Database) DefineForeign(tag CompoundTag, fn ForeignFunc) {
	p := db.ensure(tag)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Kind = KindForeign
	p.foreign = fn
}

func (db *Database) MarkDynamic(tag CompoundTag) {
	p := db.ensure(tag)
	p.mu.Lock()
	p.Dynamic = true
	p.mu.Unlock()
}

func (db *Database) MarkDiscontiguous(tag CompoundTag) {
	p := db.ensure(tag)
	p.mu.Lock()
	p.Discontiguous = true
	p.mu.Unlock()
}

// splitClauseTerm decomposes a clause term into Head/Body; a bare
// callable is a fact (Body == nil), a (Head :- Body) compound is a
// rule.
func splitClauseTerm(t Term) (*Clause, error) {
	if c, ok := t.(*Compound); ok && c.Tag.Functor.Name() == ":-" && c.Tag.Arity == 2 {
		if !IsCallable(c.Args[0]) {
			return nil, TypeError("callable", c.Args[0], "assert/1")
		}
		return &Clause{Head: c.Args[0], Body: c.Args[1]}, nil
	}
	if !IsCallable(t) {
		return nil, TypeError("callable", t, "assert/1")
	}
	return &Clause{Head: t}, nil
}

func clauseTag(head Term) CompoundTag {
	functor, arity, _ := Functor(head)
	return Tag(functor, arity)
}

// Assert installs a clause, front=true meaning asserta, false meaning
// assertz. Installing a clause via assert/1 family implicitly marks the
// predicate dynamic (ISO semantics) unless the caller already declared
// it static via the loader (loaded clauses go through AssertStatic
// instead).
func (db *Database) Assert(front bool, clauseTerm Term) (*Clause, error) {
	cl, err := splitClauseTerm(clauseTerm)
	if err != nil {
		return nil, err
	}
	tag := clauseTag(cl.Head)
	p := db.ensure(tag)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.Dynamic && (p.Kind == KindForeign || len(p.state.Load().clauses) > 0) {
		return nil, PermissionError("modify", "static_procedure", NewCompound(Intern("/"), tag.Functor, NewInt(int64(tag.Arity))), "assert/1")
	}
	p.Dynamic = true
	db.appendClauseLocked(p, cl, front)
	return cl, nil
}

// AssertStatic installs a clause during loading without forcing the
// dynamic flag, so later mutation attempts correctly raise
// permission_error per §4.6.
func (db *Database) AssertStatic(clauseTerm Term) (*Clause, error) {
	cl, err := splitClauseTerm(clauseTerm)
	if err != nil {
		return nil, err
	}
	tag := clauseTag(cl.Head)
	p := db.ensure(tag)
	p.mu.Lock()
	defer p.mu.Unlock()
	db.appendClauseLocked(p, cl, false)
	return cl, nil
}

func (db *Database) appendClauseLocked(p *Predicate, cl *Clause, front bool) {
	old := p.state.Load()
	var next []*Clause
	if front {
		next = make([]*Clause, 0, len(old.clauses)+1)
		next = append(next, cl)
		next = append(next, old.clauses...)
	} else {
		next = make([]*Clause, len(old.clauses), len(old.clauses)+1)
		copy(next, old.clauses)
		next = append(next, cl)
	}
	p.state.Store(&predicateState{clauses: next}) // index rebuilt lazily
}

// Retract removes the first clause whose Head/Body unify with pattern's
// decomposition. The match is tried on bindings and undone with
// Mark/UnwindTo, so pattern's variables are left unbound afterwards.
func (db *Database) Retract(bindings *Bindings, pattern Term) (bool, error) {
	cl, err := splitClauseTerm(pattern)
	if err != nil {
		return false, err
	}
	tag := clauseTag(cl.Head)
	p, ok := db.Lookup(tag)
	if !ok {
		return false, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.Dynamic {
		return false, PermissionError("modify", "static_procedure", NewCompound(Intern("/"), tag.Functor, NewInt(int64(tag.Arity))), "retract/1")
	}
	old := p.state.Load()
	for idx, stored := range old.clauses {
		mark := bindings.Mark()
		renamed := renameClause(bindings, stored)
		matched := Unify(bindings, renamed.Head, cl.Head)
		if matched && cl.Body != nil {
			body := cl.Body
			if renamed.Body == nil {
				renamed.Body = atomTrue
			}
			matched = Unify(bindings, renamed.Body, body)
		}
		bindings.UnwindTo(mark)
		if matched {
			next := make([]*Clause, 0, len(old.clauses)-1)
			next = append(next, old.clauses[:idx]...)
			next = append(next, old.clauses[idx+1:]...)
			p.state.Store(&predicateState{clauses: next})
			return true, nil
		}
	}
	return false, nil
}

// RetractAll removes every clause unifying with head, and (per ISO)
// leaves the predicate declared dynamic even if it ends up with zero
// clauses.
func (db *Database) RetractAll(bindings *Bindings, head Term) error {
	if !IsCallable(head) {
		return TypeError("callable", head, "retractall/1")
	}
	tag := clauseTag(head)
	p := db.ensure(tag)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Dynamic = true
	old := p.state.Load()
	kept := old.clauses[:0:0]
	for _, stored := range old.clauses {
		mark := bindings.Mark()
		renamed := renameClause(bindings, stored)
		matched := Unify(bindings, renamed.Head, head)
		bindings.UnwindTo(mark)
		if !matched {
			kept = append(kept, stored)
		}
	}
	p.state.Store(&predicateState{clauses: kept})
	return nil
}

// Abolish removes the predicate entirely.
func (db *Database) Abolish(tag CompoundTag) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.predicates, tag)
}

// renameClause copies a stored clause with every variable replaced by a
// fresh one (§3 Clause: "execution copies all variables to fresh
// ones"), attaching the new variables to bindings.
func renameClause(bindings *Bindings, c *Clause) *Clause {
	mapping := make(map[int64]*Variable)
	head := renameTerm(bindings, c.Head, mapping)
	var body Term
	if c.Body != nil {
		body = renameTerm(bindings, c.Body, mapping)
	}
	return &Clause{Head: head, Body: body}
}

func renameTerm(bindings *Bindings, t Term, mapping map[int64]*Variable) Term {
	switch v := t.(type) {
	case *Variable:
		if nv, ok := mapping[v.id]; ok {
			return nv
		}
		nv := NewVar(bindings, v.name)
		mapping[v.id] = nv
		return nv
	case *Compound:
		args := make([]Term, len(v.Args))
		changed := false
		for i, a := range v.Args {
			args[i] = renameTerm(bindings, a, mapping)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return v
		}
		return &Compound{Tag: v.Tag, Args: args}
	default:
		return t
	}
}

// CopyTerm is the exported, fresh-mapping variant used by copy_term/2
// and by findall/3 to snapshot a solution out of the search.
func CopyTerm(bindings *Bindings, t Term) Term {
	mapping := make(map[int64]*Variable)
	return renameTerm(bindings, deepDeref(bindings, t), mapping)
}

func deepDeref(bindings *Bindings, t Term) Term {
	t = bindings.Deref(t)
	if c, ok := t.(*Compound); ok {
		args := make([]Term, len(c.Args))
		for i, a := range c.Args {
			args[i] = deepDeref(bindings, a)
		}
		return &Compound{Tag: c.Tag, Args: args}
	}
	return t
}

// ClauseIterator enumerates the clauses matching head for clause/2,
// returning the stored clauses themselves; callers rename each before
// unifying against their own bindings.
func (p *Predicate) ClauseIterator(b *Bindings, head Term) []*Clause {
	var firstArg Term
	hasFirst := false
	if c, ok := head.(*Compound); ok {
		firstArg = c.Args[0]
		hasFirst = true
	}
	return p.candidates(b, firstArg, hasFirst)
}

func (db *Database) String() string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fmt.Sprintf("Database(%d predicates)", len(db.predicates))
}
