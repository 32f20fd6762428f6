package statuscache

// Logger defines the logging interface used by the status cache.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// tracer is implemented by loggers with a level below debug,
// such as *logging.Logger.
type tracer interface {
	Trace(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// trace logs at trace level when l supports it, otherwise at debug.
func trace(l Logger, msg string, args ...any) {
	if t, ok := l.(tracer); ok {
		t.Trace(msg, args...)
		return
	}
	l.Debug(msg, args...)
}
