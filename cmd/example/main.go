// Package main demonstrates embedding the engine: preparing and
// running queries, backtracking for further solutions, catching
// thrown errors, consulting source text, and fielding independent
// queries concurrently against one shared Environment.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/gitrdm/goprolog/internal/workerpool"
	"github.com/gitrdm/goprolog/pkg/prolog"
)

func main() {
	color.Cyan("=== goprolog embedding examples ===")
	fmt.Println()

	basicQuery()
	backtrackingQuery()
	arithmeticAndCatch()
	consultAndAssert()
	findallAndOperators()
	concurrentQueries()
}

// runAll collects every solution of goal, rendering each binding of
// the named query variables, up to a cap so an accidentally infinite
// generator doesn't run forever.
func runAll(label string, env *prolog.Environment, source string, varNames []string, cap int) {
	color.Yellow("%s", label)

	bindings := prolog.NewBindings()
	tz, err := prolog.NewTokenizer(env, label, source)
	if err != nil {
		color.Red("  tokenize error: %v", err)
		return
	}
	reader := prolog.NewReader(env, bindings, tz)
	goal, err := reader.ReadTerm()
	if err != nil {
		color.Red("  parse error: %v", err)
		return
	}

	interp := prolog.NewInterpreter(env)
	interp.Bindings = bindings
	q := interp.Prepare(goal)

	ctx := context.Background()
	n := 0
	for n < cap {
		ok, err := q.Execute(ctx)
		if err != nil {
			if pe, isPrologErr := err.(*prolog.PrologError); isPrologErr {
				fmt.Printf("  uncaught: %s\n", prolog.Write(env, bindings, pe.Term, prolog.WriteOptions{Quoted: true}))
			} else {
				fmt.Printf("  error: %v\n", err)
			}
			return
		}
		if !ok {
			break
		}
		n++
		row := make([]string, 0, len(varNames))
		for _, name := range varNames {
			v, found := reader.Variable(name)
			if !found {
				continue
			}
			row = append(row, name+" = "+prolog.Write(env, bindings, v, prolog.WriteOptions{Quoted: true}))
		}
		fmt.Printf("  solution %d: %s\n", n, joinWith(row, ", "))
	}
	if n == 0 {
		fmt.Println("  no solutions")
	}
	fmt.Println()
}

func joinWith(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

func basicQuery() {
	env := prolog.NewStandardEnvironment()
	runAll("1. Basic unification", env, "X = hello.", []string{"X"}, 1)
}

func backtrackingQuery() {
	env := prolog.NewStandardEnvironment()
	runAll("2. Backtracking over member/2", env,
		"member(X, [a, b, c]).", []string{"X"}, 5)
}

func arithmeticAndCatch() {
	env := prolog.NewStandardEnvironment()
	runAll("3. Arithmetic evaluation", env, "X is 2 + 3 * 4.", []string{"X"}, 1)
	runAll("3b. catch/3 recovering from a type_error", env,
		"catch(X is foo + 1, error(type_error(evaluable, _), _), X = caught).",
		[]string{"X"}, 1)
}

func consultAndAssert() {
	env := prolog.NewStandardEnvironment()
	loader := prolog.NewLoader(env)
	err := loader.ConsultString("facts", `
		parent(tom, liz).
		parent(tom, bob).
		parent(bob, ann).
		grandparent(X, Z) :- parent(X, Y), parent(Y, Z).
	`, false)
	if err != nil {
		color.Red("consult failed: %v", err)
	}
	if summary := prolog.LoadErrorsSummary(env); summary != "" {
		color.Red("load errors: %s", summary)
	}
	runAll("4. Consulted clauses + grandparent/2", env,
		"grandparent(tom, Who).", []string{"Who"}, 3)
}

func findallAndOperators() {
	env := prolog.NewStandardEnvironment()
	loader := prolog.NewLoader(env)
	_ = loader.ConsultString("colors", `
		color(red). color(green). color(blue).
		:- op(700, xfx, likes).
	`, false)
	runAll("5. findall/3", env,
		"findall(C, color(C), Cs).", []string{"Cs"}, 1)
	runAll("5b. a user-defined infix operator", env,
		"X = (alice likes prolog).", []string{"X"}, 1)
}

// concurrentQueries shows many Interpreters, each with its own
// Bindings and choice-point stack, fielding independent queries
// concurrently against one shared Environment and its database.
func concurrentQueries() {
	color.Yellow("6. Concurrent queries over a shared Environment")
	env := prolog.NewStandardEnvironment()
	loader := prolog.NewLoader(env)
	_ = loader.ConsultString("nums", `
		double(N, D) :- D is N * 2.
	`, false)

	pool := workerpool.New(4)
	defer pool.Close()

	var mu sync.Mutex
	results := make([]string, 0, 8)

	start := time.Now()
	var wg sync.WaitGroup
	for n := 1; n <= 8; n++ {
		n := n
		wg.Add(1)
		_, err := pool.Submit(context.Background(), func(ctx context.Context) {
			defer wg.Done()
			interp := prolog.NewInterpreter(env)
			bindings := prolog.NewBindings()
			tz, _ := prolog.NewTokenizer(env, "concurrent", fmt.Sprintf("double(%d, D).", n))
			reader := prolog.NewReader(env, bindings, tz)
			goal, _ := reader.ReadTerm()
			interp.Bindings = bindings
			q := interp.Prepare(goal)
			ok, err := q.Execute(ctx)
			if err != nil || !ok {
				return
			}
			d, _ := reader.Variable("D")
			line := fmt.Sprintf("double(%d) = %s", n, prolog.Write(env, bindings, d, prolog.WriteOptions{}))
			mu.Lock()
			results = append(results, line)
			mu.Unlock()
		})
		if err != nil {
			color.Red("submit failed: %v", err)
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	for _, line := range results {
		fmt.Println("  " + line)
	}
	fmt.Printf("  %d queries across %d workers in %v\n", len(results), pool.Workers(), elapsed)
	fmt.Println()
}
