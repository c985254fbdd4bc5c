package prolog

import "github.com/sirupsen/logrus"

// Tracer declares the four call/exit/redo/fail ports of the debugging
// model. The interpreter invokes only Call, once for each goal whose
// predicate is found in the database; Exit, Redo and Fail are never
// invoked by the interpreter. It is consulted purely for observability
// — nothing about resolution depends on whether a Tracer is attached.
type Tracer interface {
	Call(i *Interpreter, tag CompoundTag, args []Term)
	Exit(i *Interpreter, tag CompoundTag, args []Term)
	Redo(i *Interpreter, tag CompoundTag, args []Term)
	Fail(i *Interpreter, tag CompoundTag, args []Term)
}

// LogTracer emits one logrus entry per port event, at Debug level.
type LogTracer struct {
	Log *logrus.Logger
}

// NewLogTracer builds a LogTracer writing through env's logger.
func NewLogTracer(env *Environment) *LogTracer {
	return &LogTracer{Log: env.Log}
}

func (t *LogTracer) entry(tag CompoundTag, args []Term) *logrus.Entry {
	return t.Log.WithFields(logrus.Fields{
		"functor": tag.Functor.Name(),
		"arity":   tag.Arity,
	})
}

func (t *LogTracer) Call(i *Interpreter, tag CompoundTag, args []Term) {
	t.entry(tag, args).Debug("call")
}

func (t *LogTracer) Exit(i *Interpreter, tag CompoundTag, args []Term) {
	t.entry(tag, args).Debug("exit")
}

func (t *LogTracer) Redo(i *Interpreter, tag CompoundTag, args []Term) {
	t.entry(tag, args).Debug("redo")
}

func (t *LogTracer) Fail(i *Interpreter, tag CompoundTag, args []Term) {
	t.entry(tag, args).Debug("fail")
}
