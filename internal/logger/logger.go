// Package logger is a small chained, level-gated logger built on pterm.
// It mirrors the teacher's core/utils/logger package: a package-level
// default instance, Info()/Warning()/Error()/Debug()/Verbose() each
// returning an *Event that is finished with Msgf.
package logger

import (
	"bytes"
	"io"
	"sync"

	"github.com/pterm/pterm"
)

type Logger struct {
	mu      sync.Mutex
	verbose bool
	debug   bool
}

var DefaultLogger *Logger

func init() {
	DefaultLogger = &Logger{}
}

// EnableVerbose turns on Verbose()-level events.
func (l *Logger) EnableVerbose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = true
}

// EnableDebug turns on Debug()-level events.
func (l *Logger) EnableDebug() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = true
}

func (l *Logger) IsDebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *Logger) IsVerboseEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verbose
}

// Event is a single log line under construction.
type Event struct {
	logger   *Logger
	printer  pterm.PrefixPrinter
	fields   map[string]string
	reqID    string
}

func (l *Logger) newEvent(printer pterm.PrefixPrinter) *Event {
	return &Event{logger: l, printer: printer}
}

func Info() *Event    { return DefaultLogger.newEvent(pterm.Info) }
func Success() *Event { return DefaultLogger.newEvent(pterm.Success) }
func Error() *Event   { return DefaultLogger.newEvent(pterm.Error) }
func Warning() *Event { return DefaultLogger.newEvent(pterm.Warning) }

func Debug() *Event {
	if !DefaultLogger.IsDebugEnabled() {
		return nil
	}
	return DefaultLogger.newEvent(pterm.Debug)
}

func Verbose() *Event {
	if !DefaultLogger.IsVerboseEnabled() {
		return nil
	}
	return DefaultLogger.newEvent(pterm.Info)
}

// WithRequestID attaches a correlation id prefix to the line.
func (e *Event) WithRequestID(id string) *Event {
	if e == nil {
		return nil
	}
	e.reqID = id
	return e
}

// WithField stashes a key/value pair printed after the message.
func (e *Event) WithField(key, value string) *Event {
	if e == nil {
		return nil
	}
	if e.fields == nil {
		e.fields = make(map[string]string, 2)
	}
	e.fields[key] = value
	return e
}

func (e *Event) Msgf(format string, args ...any) {
	if e == nil {
		return
	}
	e.logger.mu.Lock()
	defer e.logger.mu.Unlock()

	var buf bytes.Buffer
	if e.reqID != "" {
		buf.WriteByte('[')
		buf.WriteString(e.reqID)
		buf.WriteString("] ")
	}
	buf.WriteString(sprintf(format, args...))
	for k, v := range e.fields {
		buf.WriteByte(' ')
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(v)
	}
	e.printer.Println(buf.String())
}

func sprintf(format string, args ...any) string {
	return pterm.Sprintf(format, args...)
}

// SetOutput redirects where log lines go by replacing pterm's default
// output writer.
func SetOutput(w io.Writer) {
	pterm.SetDefaultOutput(w)
}
