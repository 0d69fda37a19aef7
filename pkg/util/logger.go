package util

import "fmt"

type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// LogEntry is one structured annotation produced while compiling or
// solving a grid: what happened, on which device, with what value.
type LogEntry struct {
	Severity Severity
	Message  string
	Device   string
	Value    string
}

// Logger accumulates entries across pipeline stages. It is a value
// collector, not a console logger; callers decide what to print.
type Logger struct {
	entries []LogEntry
}

func NewLogger() *Logger {
	return &Logger{entries: make([]LogEntry, 0)}
}

func (l *Logger) add(sev Severity, msg, device, value string) {
	l.entries = append(l.entries, LogEntry{Severity: sev, Message: msg, Device: device, Value: value})
}

func (l *Logger) AddInfo(msg, device, value string)    { l.add(Info, msg, device, value) }
func (l *Logger) AddWarning(msg, device, value string) { l.add(Warning, msg, device, value) }
func (l *Logger) AddError(msg, device, value string)   { l.add(Error, msg, device, value) }

// Append merges another logger's entries, keeping order.
func (l *Logger) Append(other *Logger) {
	if other == nil {
		return
	}
	l.entries = append(l.entries, other.entries...)
}

func (l *Logger) Entries() []LogEntry { return l.entries }

func (l *Logger) HasErrors() bool {
	for _, e := range l.entries {
		if e.Severity == Error {
			return true
		}
	}
	return false
}

func (l *Logger) String() string {
	s := ""
	for _, e := range l.entries {
		s += fmt.Sprintf("[%s] %s", e.Severity, e.Message)
		if e.Device != "" {
			s += fmt.Sprintf(" device=%s", e.Device)
		}
		if e.Value != "" {
			s += fmt.Sprintf(" value=%s", e.Value)
		}
		s += "\n"
	}
	return s
}
