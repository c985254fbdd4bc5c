package prolog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factTerm(functor string, args ...Term) Term {
	if len(args) == 0 {
		return Intern(functor)
	}
	return NewCompound(Intern(functor), args...)
}

func TestDatabaseAssertzAppendsInOrder(t *testing.T) {
	db := NewDatabase()
	_, err := db.Assert(false, factTerm("color", Intern("red")))
	require.NoError(t, err)
	_, err = db.Assert(false, factTerm("color", Intern("green")))
	require.NoError(t, err)

	tag := Tag(Intern("color"), 1)
	p, ok := db.Lookup(tag)
	require.True(t, ok)
	b := NewBindings()
	clauses := p.ClauseIterator(b, factTerm("color", NewVar(b, "X")))
	require.Len(t, clauses, 2)
	assert.True(t, clauses[0].Head.(*Compound).Args[0].Equal(Intern("red")))
	assert.True(t, clauses[1].Head.(*Compound).Args[0].Equal(Intern("green")))
}

func TestDatabaseAssertaPrepends(t *testing.T) {
	db := NewDatabase()
	_, err := db.Assert(false, factTerm("color", Intern("red")))
	require.NoError(t, err)
	_, err = db.Assert(true, factTerm("color", Intern("blue")))
	require.NoError(t, err)

	tag := Tag(Intern("color"), 1)
	p, _ := db.Lookup(tag)
	b := NewBindings()
	clauses := p.ClauseIterator(b, factTerm("color", NewVar(b, "X")))
	require.Len(t, clauses, 2)
	assert.True(t, clauses[0].Head.(*Compound).Args[0].Equal(Intern("blue")))
}

func TestDatabaseIndexingReturnsOnlyMatchingFirstArgBucket(t *testing.T) {
	db := NewDatabase()
	_, _ = db.Assert(false, factTerm("p", Intern("a"), NewInt(1)))
	_, _ = db.Assert(false, factTerm("p", Intern("b"), NewInt(2)))
	_, _ = db.Assert(false, factTerm("p", Intern("a"), NewInt(3)))

	tag := Tag(Intern("p"), 2)
	p, _ := db.Lookup(tag)
	b := NewBindings()
	clauses := p.ClauseIterator(b, factTerm("p", Intern("a"), NewVar(b, "X")))
	require.Len(t, clauses, 2)
	for _, c := range clauses {
		assert.True(t, c.Head.(*Compound).Args[0].Equal(Intern("a")))
	}
}

func TestDatabaseIndexingIncludesVarOnlyClauses(t *testing.T) {
	db := NewDatabase()
	_, _ = db.Assert(false, factTerm("q", Intern("a")))
	v := NewVar(NewBindings(), "X")
	_, _ = db.Assert(false, factTerm("q", v))

	tag := Tag(Intern("q"), 1)
	p, _ := db.Lookup(tag)
	b := NewBindings()
	clauses := p.ClauseIterator(b, factTerm("q", Intern("b")))
	require.Len(t, clauses, 1, "only the var-headed clause matches 'b'")
}

func TestDatabaseRetractRemovesFirstMatch(t *testing.T) {
	db := NewDatabase()
	_, _ = db.Assert(false, factTerm("color", Intern("red")))
	_, _ = db.Assert(false, factTerm("color", Intern("green")))

	b := NewBindings()
	ok, err := db.Retract(b, factTerm("color", Intern("red")))
	require.NoError(t, err)
	assert.True(t, ok)

	tag := Tag(Intern("color"), 1)
	p, _ := db.Lookup(tag)
	clauses := p.ClauseIterator(b, NewVar(b, "X"))
	require.Len(t, clauses, 1)
	assert.True(t, clauses[0].Head.(*Compound).Args[0].Equal(Intern("green")))
}

func TestDatabaseRetractOnNonDynamicIsPermissionError(t *testing.T) {
	db := NewDatabase()
	_, _ = db.AssertStatic(factTerm("color", Intern("red")))

	b := NewBindings()
	_, err := db.Retract(b, factTerm("color", Intern("red")))
	require.Error(t, err)
	pe, ok := err.(*PrologError)
	require.True(t, ok)
	assert.Contains(t, pe.Term.String(), "permission_error")
}

func TestDatabaseRetractAllClearsMatchingClausesAndStaysDynamic(t *testing.T) {
	db := NewDatabase()
	_, _ = db.Assert(false, factTerm("color", Intern("red")))
	_, _ = db.Assert(false, factTerm("color", Intern("green")))

	b := NewBindings()
	err := db.RetractAll(b, factTerm("color", NewVar(b, "X")))
	require.NoError(t, err)

	tag := Tag(Intern("color"), 1)
	p, ok := db.Lookup(tag)
	require.True(t, ok)
	assert.True(t, p.Dynamic)
	clauses := p.ClauseIterator(b, NewVar(b, "Y"))
	assert.Len(t, clauses, 0)
}

func TestDatabaseAbolishRemovesPredicateEntirely(t *testing.T) {
	db := NewDatabase()
	_, _ = db.Assert(false, factTerm("color", Intern("red")))
	tag := Tag(Intern("color"), 1)
	db.Abolish(tag)
	_, ok := db.Lookup(tag)
	assert.False(t, ok)
}

func TestRenameClauseGivesFreshVariablesPerCall(t *testing.T) {
	db := NewDatabase()
	var3 := NewVar(NewBindings(), "X")
	_, err := db.Assert(false, NewCompound(Intern(":-"), factTerm("same", var3, var3), atomTrue))
	require.NoError(t, err)

	tag := Tag(Intern("same"), 2)
	p, _ := db.Lookup(tag)
	b := NewBindings()
	clauses := p.ClauseIterator(b, NewVar(b, "_"))
	require.Len(t, clauses, 1)

	renamed1 := renameClause(b, clauses[0])
	renamed2 := renameClause(b, clauses[0])
	h1 := renamed1.Head.(*Compound)
	h2 := renamed2.Head.(*Compound)
	assert.NotEqual(t, h1.Args[0].(*Variable).id, h2.Args[0].(*Variable).id)
}

func TestCopyTermProducesStructurallyEqualFreshCopy(t *testing.T) {
	b := NewBindings()
	x := NewVar(b, "X")
	term := NewCompound(Intern("f"), x, NewInt(1))
	copied := CopyTerm(b, term)
	cc := copied.(*Compound)
	assert.Equal(t, "f", cc.Tag.Functor.Name())
	assert.True(t, cc.Args[1].Equal(NewInt(1)))
	_, isVar := cc.Args[0].(*Variable)
	assert.True(t, isVar)
}
