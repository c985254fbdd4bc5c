package prolog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorTableSeededWithISODefaults(t *testing.T) {
	tbl := NewOperatorTable()
	d, ok := tbl.Infix(",")
	require.True(t, ok)
	assert.Equal(t, 1000, d.Priority)
	assert.Equal(t, XFY, d.Type)

	d, ok = tbl.Prefix("-")
	require.True(t, ok)
	assert.Equal(t, 200, d.Priority)
	assert.Equal(t, FY, d.Type)

	assert.True(t, tbl.IsOperator("is"))
	assert.False(t, tbl.IsOperator("frobnicate"))
}

func TestOperatorTableDefineAddsCustomOperator(t *testing.T) {
	tbl := NewOperatorTable()
	tbl.Define(700, XFX, "likes")
	d, ok := tbl.Infix("likes")
	require.True(t, ok)
	assert.Equal(t, 700, d.Priority)
	assert.Equal(t, XFX, d.Type)
}

func TestOperatorTableDefineZeroPriorityRemoves(t *testing.T) {
	tbl := NewOperatorTable()
	tbl.Define(700, XFX, "likes")
	tbl.Define(0, XFX, "likes")
	_, ok := tbl.Infix("likes")
	assert.False(t, ok)
}

func TestOperatorTableDefineDoesNotMutatePriorSnapshot(t *testing.T) {
	tbl := NewOperatorTable()
	before, ok := tbl.Infix(",")
	require.True(t, ok)

	tbl.Define(700, XFX, "likes")

	after, ok := tbl.Infix(",")
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestOpTypeClassification(t *testing.T) {
	assert.True(t, FX.IsPrefix())
	assert.True(t, FY.IsPrefix())
	assert.False(t, XFX.IsPrefix())

	assert.True(t, XFX.IsInfix())
	assert.True(t, XFY.IsInfix())
	assert.True(t, YFX.IsInfix())

	assert.True(t, XF.IsPostfix())
	assert.True(t, YF.IsPostfix())

	assert.Equal(t, "xfy", XFY.String())
	assert.Equal(t, "fy", FY.String())
}
