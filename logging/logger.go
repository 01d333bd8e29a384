package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/blockberries/veilberry/types"
)

// Logger is a structured logger interface for veilberry.
// It wraps slog.Logger with convenience methods for common logging patterns.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the given handler.
func New(handler slog.Handler) *Logger {
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a new Logger with text output format.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	return New(slog.NewTextHandler(w, opts))
}

// NewJSONLogger creates a new Logger with JSON output format.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	return New(slog.NewJSONHandler(w, opts))
}

// NewDevelopmentLogger creates a logger suitable for development.
// Uses text format with debug level output to stderr.
func NewDevelopmentLogger() *Logger {
	return NewTextLogger(os.Stderr, slog.LevelDebug)
}

// NewProductionLogger creates a logger suitable for production.
// Uses JSON format with info level output to stdout.
func NewProductionLogger() *Logger {
	return NewJSONLogger(os.Stdout, slog.LevelInfo)
}

// NewNopLogger creates a logger that discards all output.
func NewNopLogger() *Logger {
	return New(nopHandler{})
}

// With returns a new Logger with the given attributes added to every log entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// WithComponent returns a new Logger with a component attribute.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithProgram returns a new Logger with a program attribute.
func (l *Logger) WithProgram(id types.ProgramID) *Logger {
	return l.With(Program(id))
}

// Common attribute constructors for ledger-specific fields.

// Component creates a component attribute for identifying the source module.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Program creates a program ID attribute.
func Program(id types.ProgramID) slog.Attr {
	return slog.String("program", id.String())
}

// Transition creates a transition name attribute.
func Transition(name string) slog.Attr {
	return slog.String("transition", name)
}

// Finalize creates a finalize name attribute.
func Finalize(name string) slog.Attr {
	return slog.String("finalize", name)
}

// Caller creates a caller identity attribute.
func Caller(id types.Identity) slog.Attr {
	return slog.String("caller", id.String())
}

// Owner creates an owner identity attribute.
func Owner(id types.Identity) slog.Attr {
	return slog.String("owner", id.String())
}

// RecordRef creates a record reference attribute (hex-encoded).
func RecordRef(ref types.RecordRef) slog.Attr {
	return slog.String("record", ref.String())
}

// Mapping creates a mapping name attribute.
func Mapping(name string) slog.Attr {
	return slog.String("mapping", name)
}

// Version creates a state version attribute.
func Version(v int64) slog.Attr {
	return slog.Int64("version", v)
}

// RootHash creates a state root hash attribute (hex-encoded).
func RootHash(h []byte) slog.Attr {
	return slog.String("root_hash", bytesToHex(h))
}

// Duration creates a duration attribute in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64("duration_ms", float64(d.Nanoseconds())/1e6)
}

// Count creates a count attribute.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Error creates an error attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// ErrorKind creates an error taxonomy class attribute.
func ErrorKind(err error) slog.Attr {
	return slog.String("error_kind", types.ErrorKind(err))
}

// Reason creates a reason attribute.
func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}

// bytesToHex converts bytes to hex string.
func bytesToHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	const hexDigits = "0123456789abcdef"
	hex := make([]byte, len(b)*2)
	for i, v := range b {
		hex[i*2] = hexDigits[v>>4]
		hex[i*2+1] = hexDigits[v&0x0f]
	}
	return string(hex)
}

// nopHandler is a slog.Handler that discards all logs.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
