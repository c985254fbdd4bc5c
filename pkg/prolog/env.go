package prolog

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	set "github.com/hashicorp/go-set/v3"
	"github.com/sirupsen/logrus"
)

// LoadError is one structured record of a parse/load failure collected
// during ensure_loaded (§4.10 point 4): loading continues past errors,
// it does not abort.
type LoadError struct {
	Source string
	Line   int
	Reason error
}

func (e LoadError) Error() string {
	return e.Source + ": " + e.Reason.Error()
}

// Environment is the process-wide state shared by every Interpreter
// built on top of it: the module (clause database), operator table,
// flag map, stream table, loading-error list, and character-conversion
// table. Per §5, atom/tag interning and the operator table are safe for
// concurrent readers; the database locks per-predicate; the loading
// error list and loaded-source set are guarded by their own mutex since
// they are written only during (possibly concurrent) ensure_loaded
// calls.
type Environment struct {
	Operators *OperatorTable
	DB        *Database
	Log       *logrus.Logger

	mu             sync.Mutex
	flags          map[string]Term
	charConversion map[rune]rune
	loadErrors     *multierror.Error
	loadedSources  *set.Set[string]
	streams        map[string]*PrologStream // alias name -> stream
	nextHandle     int
}

// NewEnvironment constructs an Environment with the default ISO operator
// table and an empty database, ready for ensure_loaded/query use.
func NewEnvironment() *Environment {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return &Environment{
		Operators:      NewOperatorTable(),
		DB:             NewDatabase(),
		Log:            log,
		flags:          defaultFlags(),
		charConversion: make(map[rune]rune),
		loadedSources:  set.New[string](8),
		streams:        make(map[string]*PrologStream),
	}
}

func defaultFlags() map[string]Term {
	return map[string]Term{
		"bounded":        Intern("false"),
		"double_quotes":  Intern("codes"),
		"unknown":        Intern("error"),
		"occurs_check":   Intern("false"),
		"max_arity":      Intern("unbounded"),
		"dialect":        Intern("goprolog"),
	}
}

// SetFlag installs or overwrites a Prolog flag. Flag mutation is a
// process-global side effect and is explicitly NOT trailed (§4.4): it
// survives backtracking, matching set_prolog_flag/2's ISO semantics.
func (e *Environment) SetFlag(name string, value Term) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flags[name] = value
}

// Flag returns the current value of a Prolog flag.
func (e *Environment) Flag(name string) (Term, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.flags[name]
	return v, ok
}

// SetCharConversion installs a from->to character-conversion mapping
// used by the tokenizer when the char_conversion flag is on.
func (e *Environment) SetCharConversion(from, to rune) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if from == to {
		delete(e.charConversion, from)
		return
	}
	e.charConversion[from] = to
}

func (e *Environment) convertChar(r rune) rune {
	e.mu.Lock()
	defer e.mu.Unlock()
	if to, ok := e.charConversion[r]; ok {
		return to
	}
	return r
}

// MarkLoaded records key as resolved-and-loaded, returning true if it
// was already loaded (making a repeat ensure_loaded a no-op, §4.10
// point 1).
func (e *Environment) MarkLoaded(key string) (alreadyLoaded bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadedSources.Contains(key) {
		return true
	}
	e.loadedSources.Insert(key)
	return false
}

// RecordLoadError appends a structured loading-error record (§4.10
// point 4). Loading continues; it never aborts ensure_loaded.
func (e *Environment) RecordLoadError(source string, line int, reason error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadErrors = multierror.Append(e.loadErrors, LoadError{Source: source, Line: line, Reason: reason})
	e.Log.WithFields(logrus.Fields{"source": source, "line": line}).Warn(reason)
}

// LoadErrors returns the accumulated loading errors, or nil if there
// were none.
func (e *Environment) LoadErrors() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErrors.ErrorOrNil()
}

// RegisterStream adds s to the stream table under each of the given
// aliases so stream-table lookups by alias atom (current_output,
// user_error, or a user alias) succeed. The stream's handle is not
// registered as a name.
func (e *Environment) RegisterStream(s *PrologStream, aliases ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range aliases {
		e.streams[a] = s
	}
}

// LookupStream resolves an alias to its stream.
func (e *Environment) LookupStream(alias string) (*PrologStream, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.streams[alias]
	return s, ok
}

// CloseAllStreams closes every registered stream, coordinated by
// halt/1 (§5).
func (e *Environment) CloseAllStreams() {
	e.mu.Lock()
	seen := make(map[*PrologStream]bool)
	streams := make([]*PrologStream, 0, len(e.streams))
	for _, s := range e.streams {
		if !seen[s] {
			seen[s] = true
			streams = append(streams, s)
		}
	}
	e.mu.Unlock()
	for _, s := range streams {
		_ = s.Close()
	}
}
