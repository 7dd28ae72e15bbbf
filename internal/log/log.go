package log

// Kv is a helper type for structured logging key-value pairs.
type Kv = map[string]any

// Logger is the interface that the application loggers must implement.
type Logger interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
	WithValues(values Kv) Logger
}

// Noop is a logger that doesn't log anything.
var Noop Logger = noop{}

type noop struct{}

func (n noop) Infof(string, ...any)    {}
func (n noop) Warningf(string, ...any) {}
func (n noop) Errorf(string, ...any)   {}
func (n noop) Debugf(string, ...any)   {}
func (n noop) WithValues(Kv) Logger    { return n }
