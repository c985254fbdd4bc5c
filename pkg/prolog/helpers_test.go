package prolog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// parseOne parses a single '.'-terminated term from source using the
// given Environment and Bindings, failing the test on any error.
func parseOne(t *testing.T, env *Environment, bindings *Bindings, source string) Term {
	t.Helper()
	tz, err := NewTokenizer(env, "test", source)
	require.NoError(t, err)
	r := NewReader(env, bindings, tz)
	term, err := r.ReadTerm()
	require.NoError(t, err)
	return term
}

// solutions runs every solution of a query text (e.g. "member(X, [a,b])."),
// recording the Write()-rendered value of each name in varNames per
// solution, up to limit solutions.
func solutions(t *testing.T, env *Environment, source string, varNames []string, limit int) [][]string {
	t.Helper()
	bindings := NewBindings()
	tz, err := NewTokenizer(env, "test", source)
	require.NoError(t, err)
	reader := NewReader(env, bindings, tz)
	goal, err := reader.ReadTerm()
	require.NoError(t, err)

	interp := NewInterpreter(env)
	interp.Bindings = bindings
	q := interp.Prepare(goal)

	var out [][]string
	for len(out) < limit {
		ok, err := q.Execute(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		row := make([]string, len(varNames))
		for i, name := range varNames {
			v, found := reader.Variable(name)
			if !found {
				continue
			}
			row[i] = Write(env, bindings, v, WriteOptions{Quoted: true})
		}
		out = append(out, row)
	}
	return out
}

// runQuery runs a query text to its first solution (or error), returning
// ok, the interpreter (with its Bindings populated), the Reader (to look
// up query variables), and any error.
func runQuery(t *testing.T, env *Environment, source string) (bool, *Interpreter, *Reader, error) {
	t.Helper()
	bindings := NewBindings()
	tz, err := NewTokenizer(env, "test", source)
	require.NoError(t, err)
	reader := NewReader(env, bindings, tz)
	goal, err := reader.ReadTerm()
	require.NoError(t, err)

	interp := NewInterpreter(env)
	interp.Bindings = bindings
	q := interp.Prepare(goal)
	ok, err := q.Execute(context.Background())
	return ok, interp, reader, err
}
