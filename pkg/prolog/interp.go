package prolog

import (
	"context"
)

// Outcome is what a ForeignFunc reports about a single call attempt.
// Foreign predicates that can produce more than one solution push their
// own choice point via Interpreter.PushGenerator before returning
// OutcomeSucceed; the interpreter drives redo by invoking that
// generator again.
type Outcome int

const (
	OutcomeFail Outcome = iota
	OutcomeSucceed
)

// haltSignal unwinds the run loop without being a Prolog-visible error
// (catch/3 does not intercept it); Query.Execute returns it as its
// non-nil error with ok == false, carrying the exit code.
type haltSignal struct{ code int }

func (haltSignal) Error() string { return "halt" }

// goalNode is one cons cell of the pending-conjunction continuation: the
// goal to run next, what to run after it succeeds, the choice-point
// depth a "!" encountered while running this goal cuts back to, and the
// active catch/3 frame chain for error propagation.
type goalNode struct {
	goal      Term
	next      *goalNode
	cutParent int
	catch     *catchFrame
}

// catchFrame records one active catch/3 activation.
type catchFrame struct {
	catcher   Term
	recovery  Term
	cont      *goalNode
	cutParent int
	trailMark int
	cpMark    int
	parent    *catchFrame
}

type choicePointKind int

const (
	cpClauseRetry choicePointKind = iota
	cpDisjunction
	cpGenerator
)

// choicePoint is one alternative left to try on backtracking.
type choicePoint struct {
	kind      choicePointKind
	trailMark int
	goals     *goalNode // continuation to resume with the alternative

	// cpClauseRetry
	clauses   []*Clause
	idx       int
	callArgs  []Term
	cutParent int
	catch     *catchFrame

	// cpDisjunction
	alt          Term
	altCutParent int
	altCatch     *catchFrame

	// cpGenerator: Redo re-invokes the foreign generator for the next
	// solution. It returns ok=false when exhausted.
	redo func() (bool, error)
}

// Interpreter is one independent resolution engine over an Environment:
// its own Bindings/trail and choice-point stack. Interpreters are never
// shared between goroutines (§5); build one per concurrent query.
type Interpreter struct {
	Env      *Environment
	Bindings *Bindings
	Tracer   Tracer

	cps      []*choicePoint
	halted   bool
	haltCode int
}

// NewInterpreter builds an Interpreter over env with a fresh Bindings
// arena.
func NewInterpreter(env *Environment) *Interpreter {
	return &Interpreter{Env: env, Bindings: NewBindings()}
}

func (i *Interpreter) cutBarrier() int { return len(i.cps) }

// pushChoicePoint records cp for later backtracking.
func (i *Interpreter) pushChoicePoint(cp *choicePoint) { i.cps = append(i.cps, cp) }

// PushGenerator lets a ForeignFunc install its own redo hook, used for
// nondeterministic builtins (between/3, clause/2 enumeration). The
// continuation to resume with on a successful redo is filled in by the
// interpreter's call dispatch right after the ForeignFunc returns (a
// builtin has no direct access to its caller's goal continuation).
func (i *Interpreter) PushGenerator(redo func() (bool, error)) {
	i.pushChoicePoint(&choicePoint{kind: cpGenerator, trailMark: i.Bindings.Mark(), redo: redo})
}

// cutTo discards every choice point at or above barrier.
func (i *Interpreter) cutTo(barrier int) {
	if barrier < len(i.cps) {
		i.cps = i.cps[:barrier]
	}
}

// Query is one in-progress resolution of a prepared goal.
type Query struct {
	i      *Interpreter
	goal   Term
	goals  *goalNode
	cpBase int
	first  bool
}

// Prepare builds a Query for goal without starting resolution.
func (i *Interpreter) Prepare(goal Term) *Query {
	return &Query{
		i:      i,
		goal:   goal,
		cpBase: len(i.cps),
		first:  true,
	}
}

// Execute runs the prepared query to its first (or next, on repeat
// calls) solution. ok is false once the query is exhausted; err
// non-nil carries an uncaught Prolog error (or ctx cancellation).
func (q *Query) Execute(ctx context.Context) (ok bool, err error) {
	if q.first {
		q.goals = pushConjunction(q.goal, nil, q.i.cutBarrier(), nil)
		q.first = false
		return q.run(ctx)
	}
	if !q.backtrack() {
		return false, nil
	}
	return q.run(ctx)
}

// Stop discards every choice point this query created and its pending
// goals. Bindings the query made are not undone.
func (q *Query) Stop() {
	q.i.cutTo(q.cpBase)
	q.goals = nil
}

func (q *Query) run(ctx context.Context) (bool, error) {
	steps := 0
	for {
		steps++
		if steps%4096 == 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			default:
			}
		}
		if q.i.halted {
			return false, haltSignal{code: q.i.haltCode}
		}
		if q.goals == nil {
			return true, nil
		}
		node := q.goals
		goal := q.i.Bindings.Deref(node.goal)

		advanced, nextGoals, err := q.i.step(goal, node)
		if err != nil {
			handled, resumeGoals := q.unwindToCatch(err, node)
			if !handled {
				return false, err
			}
			q.goals = resumeGoals
			continue
		}
		if advanced {
			q.goals = nextGoals
			continue
		}
		if !q.backtrack() {
			return false, nil
		}
	}
}

// backtrack pops the most recent choice point and resumes from its
// recorded continuation, undoing every binding made since it was
// pushed. Returns false when no choice points remain.
func (q *Query) backtrack() bool {
	for len(q.i.cps) > q.cpBase {
		cp := q.i.cps[len(q.i.cps)-1]
		q.i.cps = q.i.cps[:len(q.i.cps)-1]
		q.i.Bindings.UnwindTo(cp.trailMark)

		switch cp.kind {
		case cpClauseRetry:
			if g, ok := q.retryClause(cp); ok {
				q.goals = g
				return true
			}
			continue
		case cpDisjunction:
			q.goals = pushConjunction(cp.alt, cp.goals, cp.altCutParent, cp.altCatch)
			return true
		case cpGenerator:
			ok, err := cp.redo()
			if err != nil {
				// A generator's redo error is treated as a silent
				// exhaustion; foreign predicates that need to raise
				// mid-enumeration should do so on the initial call.
				continue
			}
			if ok {
				q.i.pushChoicePoint(cp)
				q.goals = cp.goals
				return true
			}
			continue
		}
	}
	return false
}

// retryClause advances cp to the next still-matching clause, returning
// the goal chain to resume with if one unifies.
func (q *Query) retryClause(cp *choicePoint) (*goalNode, bool) {
	for cp.idx < len(cp.clauses) {
		cl := cp.clauses[cp.idx]
		cp.idx++
		mark := q.i.Bindings.Mark()
		renamed := renameClause(q.i.Bindings, cl)
		if !unifyArgs(q.i.Bindings, renamed.Head, cp.callArgs) {
			q.i.Bindings.UnwindTo(mark)
			continue
		}
		if cp.idx < len(cp.clauses) {
			q.i.pushChoicePoint(cp)
		}
		body := renamed.Body
		if body == nil {
			body = atomTrue
		}
		return pushConjunction(body, cp.goals, cp.cutParent, cp.catch), true
	}
	return nil, false
}

func unifyArgs(b *Bindings, head Term, args []Term) bool {
	c, ok := head.(*Compound)
	if !ok {
		return len(args) == 0
	}
	for i, a := range args {
		if !Unify(b, c.Args[i], a) {
			return false
		}
	}
	return true
}

// unwindToCatch searches the active catch-frame chain for one whose
// catcher unifies with err's ball, restoring trail/choice-point state to
// that frame's entry and resuming at its recovery goal. handled is false
// if err should propagate out of the query entirely.
func (q *Query) unwindToCatch(err error, at *goalNode) (handled bool, resume *goalNode) {
	pe, ok := err.(*PrologError)
	if !ok {
		return false, nil
	}
	for frame := at.catch; frame != nil; frame = frame.parent {
		q.i.cutTo(frame.cpMark)
		q.i.Bindings.UnwindTo(frame.trailMark)
		ball := CopyTerm(q.i.Bindings, pe.Term)
		mark := q.i.Bindings.Mark()
		if Unify(q.i.Bindings, frame.catcher, ball) {
			return true, pushConjunction(frame.recovery, frame.cont, frame.cutParent, frame.parent)
		}
		q.i.Bindings.UnwindTo(mark)
	}
	return false, nil
}

// pushConjunction splits goal's top-level ","/2 spine onto the front of
// cont, so a clause body becomes a flat chain of goalNodes sharing the
// same cut barrier and catch frame.
func pushConjunction(goal Term, cont *goalNode, cutParent int, catch *catchFrame) *goalNode {
	if c, ok := goal.(*Compound); ok && c.Tag.Functor.Name() == "," && c.Tag.Arity == 2 {
		rest := pushConjunction(c.Args[1], cont, cutParent, catch)
		return pushConjunction(c.Args[0], rest, cutParent, catch)
	}
	return &goalNode{goal: goal, next: cont, cutParent: cutParent, catch: catch}
}

// step executes one goal. advanced=true with an updated continuation
// means "succeeded, keep going"; advanced=false means "failed, trigger
// backtracking"; err carries a Prolog exception (from throw/1 or a
// builtin's error) to unwind toward the nearest matching catch/3.
func (i *Interpreter) step(goal Term, node *goalNode) (advanced bool, next *goalNode, err error) {
	switch g := goal.(type) {
	case *Variable:
		return false, nil, InstantiationError("call/1")
	case Atom:
		return i.stepCallable(g, nil, node)
	case *Compound:
		return i.stepCompound(g, node)
	default:
		return false, nil, TypeError("callable", goal, "call/1")
	}
}

func (i *Interpreter) stepCompound(c *Compound, node *goalNode) (bool, *goalNode, error) {
	name, arity := c.Tag.Functor.Name(), c.Tag.Arity
	switch {
	case name == "," && arity == 2:
		return true, pushConjunction(c.Args[0], pushConjunction(c.Args[1], node.next, node.cutParent, node.catch), node.cutParent, node.catch), nil

	case name == ";" && arity == 2:
		return i.stepDisjunction(c, node)

	case name == "->" && arity == 2:
		return i.stepIfThen(c.Args[0], c.Args[1], nil, node)

	case name == "*->" && arity == 2:
		return i.stepSoftIfThen(c.Args[0], c.Args[1], nil, node)

	case (name == "\\+" || name == "not") && arity == 1:
		return i.stepNegation(c.Args[0], node)

	case name == "call":
		return i.stepCall(c.Args, node)

	case name == "once" && arity == 1:
		return i.stepIfThen(c.Args[0], atomTrue, nil, node)

	case name == "ignore" && arity == 1:
		return i.stepIfThen(c.Args[0], atomTrue, atomTrue, node)

	case name == "catch" && arity == 3:
		return i.stepCatch(c.Args[0], c.Args[1], c.Args[2], node)

	case name == "throw" && arity == 1:
		return i.stepThrow(c.Args[0])

	case name == "findall" && arity == 3:
		return i.stepFindall(c.Args[0], c.Args[1], c.Args[2], node)

	case (name == "forall") && arity == 2:
		return i.stepForall(c.Args[0], c.Args[1], node)
	}
	return i.stepCallable(c.Tag.Functor, c.Args, node)
}

func (i *Interpreter) stepDisjunction(c *Compound, node *goalNode) (bool, *goalNode, error) {
	if left, ok := c.Args[0].(*Compound); ok && left.Tag.Arity == 2 {
		switch left.Tag.Functor.Name() {
		case "->":
			return i.stepIfThen(left.Args[0], left.Args[1], c.Args[1], node)
		case "*->":
			return i.stepSoftIfThen(left.Args[0], left.Args[1], c.Args[1], node)
		}
	}
	i.pushChoicePoint(&choicePoint{
		kind:         cpDisjunction,
		trailMark:    i.Bindings.Mark(),
		goals:        node.next,
		alt:          c.Args[1],
		altCutParent: node.cutParent,
		altCatch:     node.catch,
	})
	return true, pushConjunction(c.Args[0], node.next, node.cutParent, node.catch), nil
}

// stepIfThen implements "Cond -> Then" (elseGoal == nil) and
// "Cond -> Then ; Else". Cond runs with its own cut barrier and
// commits to its first solution, discarding any of Cond's choice
// points, before continuing with Then; if Cond has no solution at all,
// Else runs (or the whole construct fails when elseGoal == nil).
func (i *Interpreter) stepIfThen(cond, then, elseGoal Term, node *goalNode) (bool, *goalNode, error) {
	barrier := i.cutBarrier()
	mark := i.Bindings.Mark()
	sub := i.Prepare(cond)
	sub.cpBase = barrier
	ok, err := sub.Execute(context.Background())
	if err != nil {
		return false, nil, err
	}
	if ok {
		i.cutTo(barrier)
		return true, pushConjunction(then, node.next, node.cutParent, node.catch), nil
	}
	i.Bindings.UnwindTo(mark)
	if elseGoal == nil {
		return false, nil, nil
	}
	return true, pushConjunction(elseGoal, node.next, node.cutParent, node.catch), nil
}

// stepSoftIfThen implements "Cond *-> Then ; Else": unlike "->", Cond's
// choice points survive so Then can be retried on backtracking; Else
// only runs if Cond has no solution whatsoever.
func (i *Interpreter) stepSoftIfThen(cond, then, elseGoal Term, node *goalNode) (bool, *goalNode, error) {
	barrier := i.cutBarrier()
	mark := i.Bindings.Mark()
	sub := i.Prepare(cond)
	sub.cpBase = barrier
	ok, err := sub.Execute(context.Background())
	if err != nil {
		return false, nil, err
	}
	if ok {
		return true, pushConjunction(then, node.next, node.cutParent, node.catch), nil
	}
	i.Bindings.UnwindTo(mark)
	if elseGoal == nil {
		return false, nil, nil
	}
	return true, pushConjunction(elseGoal, node.next, node.cutParent, node.catch), nil
}

func (i *Interpreter) stepNegation(goal Term, node *goalNode) (bool, *goalNode, error) {
	barrier := i.cutBarrier()
	mark := i.Bindings.Mark()
	sub := i.Prepare(goal)
	sub.cpBase = barrier
	ok, err := sub.Execute(context.Background())
	if err != nil {
		return false, nil, err
	}
	i.cutTo(barrier)
	i.Bindings.UnwindTo(mark)
	if ok {
		return false, nil, nil
	}
	return true, node.next, nil
}

// stepCall implements call/1..N: the extra arguments are appended to
// the target's argument list (forming a new goal), which then runs with
// a fresh cut barrier — "!" inside a called goal is local to that call
// (ISO 7.8.1).
func (i *Interpreter) stepCall(args []Term, node *goalNode) (bool, *goalNode, error) {
	if len(args) == 0 {
		return false, nil, InstantiationError("call/1")
	}
	target := i.Bindings.Deref(args[0])
	extra := args[1:]
	goal, err := extendGoal(target, extra)
	if err != nil {
		return false, nil, err
	}
	barrier := i.cutBarrier()
	return true, pushConjunction(goal, node.next, barrier, node.catch), nil
}

func extendGoal(target Term, extra []Term) (Term, error) {
	if len(extra) == 0 {
		if !IsCallable(target) {
			if target.IsVar() {
				return nil, InstantiationError("call/1")
			}
			return nil, TypeError("callable", target, "call/1")
		}
		return target, nil
	}
	switch t := target.(type) {
	case Atom:
		return NewCompound(t, extra...), nil
	case *Compound:
		args := make([]Term, 0, len(t.Args)+len(extra))
		args = append(args, t.Args...)
		args = append(args, extra...)
		return NewCompound(t.Tag.Functor, args...), nil
	case *Variable:
		return nil, InstantiationError("call/N")
	default:
		return nil, TypeError("callable", target, "call/N")
	}
}

func (i *Interpreter) stepCatch(goal, catcher, recovery Term, node *goalNode) (bool, *goalNode, error) {
	frame := &catchFrame{
		catcher:   catcher,
		recovery:  recovery,
		cont:      node.next,
		cutParent: node.cutParent,
		trailMark: i.Bindings.Mark(),
		cpMark:    i.cutBarrier(),
		parent:    node.catch,
	}
	return true, pushConjunction(goal, node.next, i.cutBarrier(), frame), nil
}

func (i *Interpreter) stepThrow(ball Term) (bool, *goalNode, error) {
	if ball.IsVar() {
		return false, nil, InstantiationError("throw/1")
	}
	frozen := CopyTerm(i.Bindings, ball)
	return false, nil, &PrologError{Kind: KindSystem, Term: frozen}
}

// stepForall is the supplemented control construct forall(Cond,
// Action): Action must succeed at least once for every solution of
// Cond, implemented as \+ (Cond, \+ Action).
func (i *Interpreter) stepForall(cond, action Term, node *goalNode) (bool, *goalNode, error) {
	inner := NewCompound(Intern(","), cond, NewCompound(Intern("\\+"), action))
	return i.stepNegation(inner, node)
}

// stepFindall collects every solution of Template under Goal into a
// list, backtracking exhaustively over an isolated sub-query.
func (i *Interpreter) stepFindall(template, goal, result Term, node *goalNode) (bool, *goalNode, error) {
	var collected []Term
	barrier := i.cutBarrier()
	mark := i.Bindings.Mark()
	sub := i.Prepare(goal)
	sub.cpBase = barrier
	for {
		ok, err := sub.Execute(context.Background())
		if err != nil {
			i.cutTo(barrier)
			i.Bindings.UnwindTo(mark)
			return false, nil, err
		}
		if !ok {
			break
		}
		collected = append(collected, CopyTerm(i.Bindings, template))
	}
	i.cutTo(barrier)
	i.Bindings.UnwindTo(mark)
	if !Unify(i.Bindings, result, MakeList(collected...)) {
		return false, nil, nil
	}
	return true, node.next, nil
}

// stepCallable dispatches an Atom/Compound goal that is not a control
// construct: "!"/0, true/0, fail/false/0, a foreign predicate, or a
// user-defined one.
func (i *Interpreter) stepCallable(functor Atom, args []Term, node *goalNode) (bool, *goalNode, error) {
	name := functor.Name()
	if len(args) == 0 {
		switch name {
		case "!":
			i.cutTo(node.cutParent)
			return true, node.next, nil
		case "true":
			return true, node.next, nil
		case "fail", "false":
			return false, nil, nil
		case "halt":
			i.halted = true
			i.haltCode = 0
			return false, nil, haltSignal{}
		}
	}
	tag := Tag(functor, len(args))
	p, ok := i.Env.DB.Lookup(tag)
	if !ok {
		v, _ := i.Env.Flag("unknown")
		if a, isAtom := v.(Atom); isAtom && a.Name() == "fail" {
			return false, nil, nil
		}
		return false, nil, ExistenceError("procedure", NewCompound(Intern("/"), functor, NewInt(int64(len(args)))), "call/1")
	}

	if i.Tracer != nil {
		i.Tracer.Call(i, tag, args)
	}

	if p.Kind == KindForeign {
		p.mu.RLock()
		fn := p.foreign
		p.mu.RUnlock()
		cpsBefore := len(i.cps)
		callMark := i.Bindings.Mark()
		outcome, err := fn(i, args, 0)
		if err != nil {
			return false, nil, err
		}
		if outcome == OutcomeFail {
			return false, nil, nil
		}
		if len(i.cps) > cpsBefore {
			i.cps[len(i.cps)-1].goals = node.next
			i.cps[len(i.cps)-1].trailMark = callMark
		}
		return true, node.next, nil
	}

	var firstArg Term
	hasFirst := len(args) > 0
	if hasFirst {
		firstArg = args[0]
	}
	clauses := p.candidates(i.Bindings, firstArg, hasFirst)
	if len(clauses) == 0 {
		return false, nil, nil
	}
	cp := &choicePoint{
		kind:      cpClauseRetry,
		trailMark: i.Bindings.Mark(),
		goals:     node.next,
		clauses:   clauses,
		idx:       0,
		callArgs:  args,
		cutParent: i.cutBarrier(),
		catch:     node.catch,
	}
	q := &Query{i: i} // only used to reach retryClause's receiver methods
	goals, ok2 := q.retryClause(cp)
	if !ok2 {
		return false, nil, nil
	}
	return true, goals, nil
}
