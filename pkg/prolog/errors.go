package prolog

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrorKind classifies a structured Prolog error term error(Kind, Context)
// per the ISO error taxonomy.
type ErrorKind int

const (
	KindInstantiation ErrorKind = iota
	KindType
	KindDomain
	KindExistence
	KindPermission
	KindRepresentation
	KindEvaluation
	KindResource
	KindSyntax
	KindSystem
)

func (k ErrorKind) String() string {
	switch k {
	case KindInstantiation:
		return "instantiation_error"
	case KindType:
		return "type_error"
	case KindDomain:
		return "domain_error"
	case KindExistence:
		return "existence_error"
	case KindPermission:
		return "permission_error"
	case KindRepresentation:
		return "representation_error"
	case KindEvaluation:
		return "evaluation_error"
	case KindResource:
		return "resource_error"
	case KindSyntax:
		return "syntax_error"
	case KindSystem:
		return "system_error"
	default:
		return "unknown_error"
	}
}

// PrologError is the Go-level carrier for a Prolog error(Kind, Context)
// ball. Term is what catch/3 unifies against; Cause, when present, is a
// pkg/errors-wrapped host fault (stream I/O, internal panic) kept purely
// for diagnostics — it never leaks into the Prolog-level contract.
type PrologError struct {
	Kind  ErrorKind
	Term  Term
	Cause error
}

func (e *PrologError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v (%v)", e.Kind, e.Term, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Term)
}

func (e *PrologError) Unwrap() error { return e.Cause }

// errorTerm builds the standard error(Formal, Context) compound.
func errorTerm(formal Term, context Term) Term {
	return NewCompound(Intern("error"), formal, context)
}

// InstantiationError reports a required argument that was an unbound
// variable.
func InstantiationError(context string) *PrologError {
	return &PrologError{
		Kind: KindInstantiation,
		Term: errorTerm(Intern("instantiation_error"), Intern(context)),
	}
}

// TypeError reports an argument of the wrong kind.
func TypeError(expected string, culprit Term, context string) *PrologError {
	return &PrologError{
		Kind: KindType,
		Term: errorTerm(NewCompound(Intern("type_error"), Intern(expected), culprit), Intern(context)),
	}
}

// DomainError reports a valid-type but out-of-range value.
func DomainError(domain string, culprit Term, context string) *PrologError {
	return &PrologError{
		Kind: KindDomain,
		Term: errorTerm(NewCompound(Intern("domain_error"), Intern(domain), culprit), Intern(context)),
	}
}

// ExistenceError reports a missing predicate, stream, or source.
func ExistenceError(objectType string, culprit Term, context string) *PrologError {
	return &PrologError{
		Kind: KindExistence,
		Term: errorTerm(NewCompound(Intern("existence_error"), Intern(objectType), culprit), Intern(context)),
	}
}

// PermissionError reports a disallowed operation on a target.
func PermissionError(operation, objectType string, culprit Term, context string) *PrologError {
	return &PrologError{
		Kind: KindPermission,
		Term: errorTerm(NewCompound(Intern("permission_error"), Intern(operation), Intern(objectType), culprit), Intern(context)),
	}
}

// RepresentationError reports exceeding an implementation limit.
func RepresentationError(limit string, context string) *PrologError {
	return &PrologError{
		Kind: KindRepresentation,
		Term: errorTerm(NewCompound(Intern("representation_error"), Intern(limit)), Intern(context)),
	}
}

// EvaluationError reports an arithmetic fault (zero_divisor, undefined,
// float_overflow, int_overflow).
func EvaluationError(what string, context string) *PrologError {
	return &PrologError{
		Kind: KindEvaluation,
		Term: errorTerm(NewCompound(Intern("evaluation_error"), Intern(what)), Intern(context)),
	}
}

// ResourceError reports a host resource exhausted.
func ResourceError(resource string, context string) *PrologError {
	return &PrologError{
		Kind: KindResource,
		Term: errorTerm(NewCompound(Intern("resource_error"), Intern(resource)), Intern(context)),
	}
}

// SyntaxError reports a parser failure described by detail; no source
// position is recorded.
func SyntaxError(detail string) *PrologError {
	return &PrologError{
		Kind: KindSyntax,
		Term: errorTerm(NewCompound(Intern("syntax_error"), Intern(detail)), Intern("read_term/2")),
	}
}

// SystemError wraps a host I/O or internal fault, retaining its stack via
// pkg/errors for diagnostics.
func SystemError(cause error, context string) *PrologError {
	return &PrologError{
		Kind:  KindSystem,
		Term:  errorTerm(Intern("system_error"), Intern(context)),
		Cause: pkgerrors.WithStack(cause),
	}
}

// wrapHostError annotates a host error with operation context while
// preserving its chain, used before it is turned into a SystemError ball.
func wrapHostError(err error, op string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrapf(err, "prolog: %s", op)
}
