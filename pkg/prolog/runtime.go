package prolog

import "os"

// NewStandardEnvironment builds an Environment wired the way an
// embedder normally wants one: the full builtin predicate library
// registered, and current_input/current_output/user_error bound to the
// host process's stdio (§6). Embedders that want a sandboxed or
// in-memory environment should call NewEnvironment and RegisterBuiltins
// directly and register their own streams.
func NewStandardEnvironment() *Environment {
	env := NewEnvironment()
	RegisterBuiltins(env)

	stdin := NewTextInputStream("user_input", os.Stdin)
	stdout := NewTextOutputStream("user_output", os.Stdout)
	stderr := NewTextOutputStream("user_error", os.Stderr)

	env.RegisterStream(stdin, "user_input", "current_input")
	env.RegisterStream(stdout, "user_output", "current_output")
	env.RegisterStream(stderr, "user_error")
	return env
}
