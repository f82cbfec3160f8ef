package diag

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Kind classifies a diagnostic event.
type Kind string

const (
	ConfigError    Kind = "config-error"
	ManifestError  Kind = "manifest-error"
	CycleWarning   Kind = "cycle"
	Unresolved     Kind = "unresolved"
	BuildFailed    Kind = "build-failed"
	LinkFailed     Kind = "link-failed"
	RecursionGuard Kind = "recursion-guard"
)

// Event is a single diagnostic. Package may be empty for events that are not
// tied to one package (e.g., a missing declaration file).
type Event struct {
	Kind    Kind
	Package string
	Detail  string
}

func (e Event) String() string {
	if e.Package == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Package, e.Detail)
}

// Failure reports whether the event represents a failed build or link step.
func (e Event) Failure() bool {
	return e.Kind == BuildFailed || e.Kind == LinkFailed
}

// Sink receives events as they happen.
type Sink interface {
	Emit(Event)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// Collector is a Sink that records events in order. Safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Emit records e.
func (c *Collector) Emit(e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// OfKind returns the recorded events of kind k.
func (c *Collector) OfKind(k Kind) []Event {
	return Filter(c.Events(), k)
}

// Filter returns the events in events that have kind k.
func Filter(events []Event, k Kind) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// EmitAll forwards every event in events to s.
func EmitAll(s Sink, events []Event) {
	for _, e := range events {
		s.Emit(e)
	}
}

// LogSink renders events through a zap logger. Recursion guard hits are
// steady-state behavior on diamond dependencies and only show at debug level.
type LogSink struct {
	Logger *zap.Logger
}

// NewLogSink returns a LogSink writing to logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{Logger: logger}
}

// Emit logs e at the level matching its kind.
func (s *LogSink) Emit(e Event) {
	fields := []zap.Field{zap.String("kind", string(e.Kind))}
	if e.Package != "" {
		fields = append(fields, zap.String("package", e.Package))
	}

	switch e.Kind {
	case RecursionGuard:
		s.Logger.Debug(e.Detail, fields...)
	case ConfigError:
		s.Logger.Info(e.Detail, fields...)
	case BuildFailed, LinkFailed:
		s.Logger.Error(e.Detail, fields...)
	default:
		s.Logger.Warn(e.Detail, fields...)
	}
}
