package prolog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// WriteOptions controls Write's output (§4.9).
type WriteOptions struct {
	Quoted     bool // quote atoms that need it
	IgnoreOps  bool // print compounds as functor(args) even if operators are declared
	NumberVars bool // render '$VAR'(N) as A, B, ..., Z, A1, B1, ...
}

// Write renders t to a string, honoring the operator table for
// precedence-minimal parenthesization.
func Write(env *Environment, b *Bindings, t Term, opts WriteOptions) string {
	var sb strings.Builder
	w := &writer{env: env, b: b, opts: opts, sb: &sb}
	w.writeTerm(t, 1200)
	return sb.String()
}

type writer struct {
	env  *Environment
	b    *Bindings
	opts WriteOptions
	sb   *strings.Builder
}

func (w *writer) writeTerm(t Term, maxPriority int) {
	t = w.b.Deref(t)
	switch v := t.(type) {
	case *Variable:
		fmt.Fprintf(w.sb, "_G%d", v.id)
	case Atom:
		w.writeAtom(v)
	case Int:
		w.sb.WriteString(v.String())
	case Float:
		w.sb.WriteString(v.String())
	case Decimal:
		w.sb.WriteString(v.String())
	case OpaqueHandle:
		w.sb.WriteString(v.String())
	case *Compound:
		w.writeCompound(v, maxPriority)
	default:
		w.sb.WriteString(t.String())
	}
}

func (w *writer) writeCompound(c *Compound, maxPriority int) {
	if w.opts.NumberVars && c.Tag.Functor.Name() == "$VAR" && c.Tag.Arity == 1 {
		if n, ok := w.b.Deref(c.Args[0]).(Int); ok {
			w.sb.WriteString(numberVarName(n.v.Int64()))
			return
		}
	}
	if c.Tag.Functor.Name() == "." && c.Tag.Arity == 2 {
		w.writeList(c)
		return
	}
	if c.Tag.Functor.Name() == "{}" && c.Tag.Arity == 1 {
		w.sb.WriteByte('{')
		w.writeTerm(c.Args[0], 1200)
		w.sb.WriteByte('}')
		return
	}
	if !w.opts.IgnoreOps && w.tryWriteOperator(c, maxPriority) {
		return
	}
	w.writeAtom(c.Tag.Functor)
	w.sb.WriteByte('(')
	for i, a := range c.Args {
		if i > 0 {
			w.sb.WriteByte(',')
		}
		w.writeTerm(a, 999)
	}
	w.sb.WriteByte(')')
}

func (w *writer) tryWriteOperator(c *Compound, maxPriority int) bool {
	name := c.Tag.Functor.Name()
	if c.Tag.Arity == 2 {
		if def, ok := w.env.Operators.Infix(name); ok {
			leftMax, rightMax := def.Priority, def.Priority
			switch def.Type {
			case XFX:
				leftMax, rightMax = def.Priority-1, def.Priority-1
			case XFY:
				leftMax = def.Priority - 1
			case YFX:
				rightMax = def.Priority - 1
			}
			needParen := def.Priority > maxPriority
			if needParen {
				w.sb.WriteByte('(')
			}
			w.writeTerm(c.Args[0], leftMax)
			if isSymbolicOrComma(name) {
				w.sb.WriteString(name)
			} else {
				w.sb.WriteByte(' ')
				w.sb.WriteString(name)
				w.sb.WriteByte(' ')
			}
			w.writeTerm(c.Args[1], rightMax)
			if needParen {
				w.sb.WriteByte(')')
			}
			return true
		}
	}
	if c.Tag.Arity == 1 {
		if def, ok := w.env.Operators.Prefix(name); ok {
			argMax := def.Priority
			if def.Type == FX {
				argMax = def.Priority - 1
			}
			needParen := def.Priority > maxPriority
			if needParen {
				w.sb.WriteByte('(')
			}
			w.writeAtom(c.Tag.Functor)
			w.sb.WriteByte(' ')
			w.writeTerm(c.Args[0], argMax)
			if needParen {
				w.sb.WriteByte(')')
			}
			return true
		}
		if def, ok := w.env.Operators.Postfix(name); ok {
			argMax := def.Priority
			if def.Type == XF {
				argMax = def.Priority - 1
			}
			needParen := def.Priority > maxPriority
			if needParen {
				w.sb.WriteByte('(')
			}
			w.writeTerm(c.Args[0], argMax)
			w.sb.WriteByte(' ')
			w.writeAtom(c.Tag.Functor)
			if needParen {
				w.sb.WriteByte(')')
			}
			return true
		}
	}
	return false
}

func isSymbolicOrComma(name string) bool {
	if name == "," {
		return true
	}
	for _, r := range name {
		if !isSymbolChar(r) {
			return false
		}
	}
	return len(name) > 0
}

func (w *writer) writeList(c *Compound) {
	w.sb.WriteByte('[')
	w.writeTerm(c.Args[0], 999)
	rest := w.b.Deref(c.Args[1])
	for {
		if a, ok := rest.(Atom); ok && a.Equal(atomNil) {
			break
		}
		cc, ok := rest.(*Compound)
		if !ok || cc.Tag.Functor.Name() != "." || cc.Tag.Arity != 2 {
			w.sb.WriteByte('|')
			w.writeTerm(rest, 999)
			break
		}
		w.sb.WriteByte(',')
		w.writeTerm(cc.Args[0], 999)
		rest = w.b.Deref(cc.Args[1])
	}
	w.sb.WriteByte(']')
}

func (w *writer) writeAtom(a Atom) {
	name := a.Name()
	if !w.opts.Quoted || !atomNeedsQuoting(name) {
		w.sb.WriteString(name)
		return
	}
	w.sb.WriteByte('\'')
	for _, r := range name {
		switch r {
		case '\'':
			w.sb.WriteString("\\'")
		case '\\':
			w.sb.WriteString("\\\\")
		case '\n':
			w.sb.WriteString("\\n")
		default:
			w.sb.WriteRune(r)
		}
	}
	w.sb.WriteByte('\'')
}

// atomNeedsQuoting reports whether name requires '' quoting: empty,
// not starting with a lowercase letter (unless fully symbolic), or
// containing characters outside the unquoted-atom grammar.
func atomNeedsQuoting(name string) bool {
	if name == "" {
		return true
	}
	if name == "[]" || name == "{}" || name == "!" || name == ";" || name == "," {
		return false
	}
	runes := []rune(name)
	if unicode.IsLower(runes[0]) {
		for _, r := range runes[1:] {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				return true
			}
		}
		return false
	}
	allSymbolic := true
	for _, r := range runes {
		if !isSymbolChar(r) {
			allSymbolic = false
			break
		}
	}
	return !allSymbolic
}

func isSymbolChar(r rune) bool {
	return strings.ContainsRune("+-*/\\^<>=~:.?@#&$", r)
}

func numberVarName(n int64) string {
	letter := rune('A' + n%26)
	suffix := n / 26
	if suffix == 0 {
		return string(letter)
	}
	return string(letter) + strconv.FormatInt(suffix, 10)
}
