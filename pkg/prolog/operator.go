package prolog

import (
	"sync/atomic"
)

// OpType is one of the seven ISO operator kinds.
type OpType int

const (
	XFX OpType = iota
	XFY
	YFX
	FY
	FX
	XF
	YF
)

func (t OpType) String() string {
	switch t {
	case XFX:
		return "xfx"
	case XFY:
		return "xfy"
	case YFX:
		return "yfx"
	case FY:
		return "fy"
	case FX:
		return "fx"
	case XF:
		return "xf"
	case YF:
		return "yf"
	default:
		return "?"
	}
}

func (t OpType) IsPrefix() bool  { return t == FX || t == FY }
func (t OpType) IsInfix() bool   { return t == XFX || t == XFY || t == YFX }
func (t OpType) IsPostfix() bool { return t == XF || t == YF }

// OpDef is one declared operator: name, priority (1..1200), and type.
type OpDef struct {
	Name     string
	Priority int
	Type     OpType
}

// opSnapshot is an immutable view of the operator table. Reads take the
// current snapshot without locking (§5: "operator table ... reads are
// lock-free snapshots; writes take a writer lock and publish a new
// snapshot").
type opSnapshot struct {
	prefix  map[string]OpDef
	infix   map[string]OpDef
	postfix map[string]OpDef
}

// OperatorTable is the mutable, process/Environment-wide set of (name,
// priority, type) triples consulted by the reader and writer.
type OperatorTable struct {
	current atomic.Pointer[opSnapshot]
	writeMu chanMutex
}

// chanMutex is a trivial channel-based mutex; using it (rather than
// sync.Mutex) keeps the writer path interruptible via a context in
// future extensions without changing the public surface.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	c := make(chanMutex, 1)
	c <- struct{}{}
	return c
}

func (c chanMutex) Lock()   { <-c }
func (c chanMutex) Unlock() { c <- struct{}{} }

// NewOperatorTable builds the table pre-seeded with the standard ISO
// operator set.
func NewOperatorTable() *OperatorTable {
	t := &OperatorTable{writeMu: newChanMutex()}
	snap := &opSnapshot{
		prefix:  map[string]OpDef{},
		infix:   map[string]OpDef{},
		postfix: map[string]OpDef{},
	}
	t.current.Store(snap)
	for _, d := range defaultOperators {
		t.Define(d.Priority, d.Type, d.Name)
	}
	return t
}

var defaultOperators = []OpDef{
	{":-", 1200, XFX}, {"-->", 1200, XFX},
	{":-", 1200, FX}, {"?-", 1200, FX},
	{";", 1100, XFY}, {"|", 1100, XFY},
	{"->", 1050, XFY}, {"*->", 1050, XFY},
	{",", 1000, XFY},
	{"\\+", 900, FY},
	{"=", 700, XFX}, {"\\=", 700, XFX},
	{"==", 700, XFX}, {"\\==", 700, XFX},
	{"@<", 700, XFX}, {"@>", 700, XFX}, {"@=<", 700, XFX}, {"@>=", 700, XFX},
	{"is", 700, XFX},
	{"=..", 700, XFX},
	{"=:=", 700, XFX}, {"=\\=", 700, XFX},
	{"<", 700, XFX}, {">", 700, XFX}, {"=<", 700, XFX}, {">=", 700, XFX},
	{"+", 500, YFX}, {"-", 500, YFX}, {"/\\", 500, YFX}, {"\\/", 500, YFX}, {"xor", 500, YFX},
	{"*", 400, YFX}, {"/", 400, YFX}, {"//", 400, YFX},
	{"mod", 400, YFX}, {"rem", 400, YFX}, {"div", 400, YFX},
	{"<<", 400, YFX}, {">>", 400, YFX},
	{"**", 200, XFX}, {"^", 200, XFY},
	{"-", 200, FY}, {"+", 200, FY}, {"\\", 200, FY},
	{"$", 1, FX},
}

// Define installs or replaces an operator declaration. Priority 0
// removes the declaration for that name/fixity class (ISO op/3
// semantics for removing an operator).
func (t *OperatorTable) Define(priority int, typ OpType, name string) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	old := t.current.Load()
	next := &opSnapshot{
		prefix:  cloneOpMap(old.prefix),
		infix:   cloneOpMap(old.infix),
		postfix: cloneOpMap(old.postfix),
	}
	var bucket map[string]OpDef
	switch {
	case typ.IsPrefix():
		bucket = next.prefix
	case typ.IsInfix():
		bucket = next.infix
	case typ.IsPostfix():
		bucket = next.postfix
	}
	if priority == 0 {
		delete(bucket, name)
	} else {
		bucket[name] = OpDef{Name: name, Priority: priority, Type: typ}
	}
	t.current.Store(next)
}

func cloneOpMap(m map[string]OpDef) map[string]OpDef {
	out := make(map[string]OpDef, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Prefix, Infix, Postfix look up a declared operator of the given
// fixity class for name. ok is false if none is declared.
func (t *OperatorTable) Prefix(name string) (OpDef, bool) {
	d, ok := t.current.Load().prefix[name]
	return d, ok
}

func (t *OperatorTable) Infix(name string) (OpDef, bool) {
	d, ok := t.current.Load().infix[name]
	return d, ok
}

func (t *OperatorTable) Postfix(name string) (OpDef, bool) {
	d, ok := t.current.Load().postfix[name]
	return d, ok
}

// IsOperator reports whether name is declared in any fixity class.
func (t *OperatorTable) IsOperator(name string) bool {
	snap := t.current.Load()
	if _, ok := snap.prefix[name]; ok {
		return true
	}
	if _, ok := snap.infix[name]; ok {
		return true
	}
	if _, ok := snap.postfix[name]; ok {
		return true
	}
	return false
}
