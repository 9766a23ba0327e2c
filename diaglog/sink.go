// Package diaglog defines the logging sink threaded through every component
// that performs DNS I/O. There is no process-wide logger: callers construct
// a Sink and pass it down explicitly, the same way the teacher resolver
// passes its logFunc field into doQuery rather than reaching for a package
// level *log.Logger.
package diaglog

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is the severity of a single logged event.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Field is a single key/value pair attached to a logged event.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field. Named short to keep call sites (Record(level, event,
// F("domain", d), F("rtt", rtt))) readable.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Sink receives diagnostic events. Implementations must be safe for
// concurrent use: the batch orchestrator (component F) and the per-pair
// interrogator (component E) both log from many goroutines at once.
type Sink interface {
	Record(level Level, event string, fields ...Field)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Record(Level, string, ...Field) {}

// LogrusSink adapts a *logrus.Logger to Sink. This is the default sink used
// by cmd/dnsdiag.
type LogrusSink struct {
	Logger *logrus.Logger
}

// NewLogrusSink returns a LogrusSink backed by a logrus.Logger configured
// with logrus's text formatter, matching the plain human-readable event log
// required by spec.md §6.
func NewLogrusSink() *LogrusSink {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &LogrusSink{Logger: l}
}

func (s *LogrusSink) Record(level Level, event string, fields ...Field) {
	entry := s.Logger.WithFields(toLogrusFields(fields))

	switch level {
	case LevelInfo:
		entry.Info(event)
	case LevelWarn:
		entry.Warn(event)
	case LevelError:
		entry.Error(event)
	default:
		entry.Print(event)
	}
}

func toLogrusFields(fields []Field) logrus.Fields {
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return lf
}

// Record is a single captured event, used by SliceSink for assertions in
// tests (the same role the teacher's logFunc-fed DebugLog helper plays in
// lab_test.go, made inspectable instead of merely printed).
type Record struct {
	Level  Level
	Event  string
	Fields []Field
}

func (r Record) String() string {
	return fmt.Sprintf("[%s] %s %v", r.Level, r.Event, r.Fields)
}

// SliceSink collects every record in memory. Safe for concurrent use.
type SliceSink struct {
	mu      sync.Mutex
	records []Record
}

// NewSliceSink returns an empty SliceSink.
func NewSliceSink() *SliceSink {
	return &SliceSink{}
}

func (s *SliceSink) Record(level Level, event string, fields ...Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record{Level: level, Event: event, Fields: fields})
}

// Records returns a snapshot of every recorded event, in order.
func (s *SliceSink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
