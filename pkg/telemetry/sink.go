package telemetry

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCapacity is the ring size used when a non-positive capacity is given.
const DefaultCapacity = 1024

// Sink is a fixed-capacity, ordered event log. Once full, the oldest events
// are evicted silently.
//
// A single mutex guards the ring and the side-channel write. Enabling a slow
// writer therefore serializes every emitter behind it.
type Sink struct {
	mu            sync.Mutex
	buf           []Event
	start         int
	size          int
	writer        Writer
	writerEnabled bool
	writeErrors   int64
	now           func() time.Time
	logger        *zap.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithWriter attaches a side-channel writer and enables it.
func WithWriter(w Writer) Option {
	return func(s *Sink) {
		s.writer = w
		s.writerEnabled = w != nil
	}
}

// WithClock sets the clock used to stamp events that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used to report side-channel failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSink creates a sink holding at most capacity events.
func NewSink(capacity int, opts ...Option) *Sink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Sink{
		buf:    make([]Event, capacity),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit appends one event.
func (s *Sink) Emit(event Event) {
	s.EmitBatch(event)
}

// EmitBatch appends events contiguously: no event from another emitter can
// land between them.
func (s *Sink) EmitBatch(events ...Event) {
	if len(events) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = s.now()
		}
		s.append(event)
		if s.writerEnabled && s.writer != nil {
			if err := s.writer.Write(event); err != nil {
				s.writeErrors++
				s.logger.Error("telemetry side channel write failed",
					zap.String("event_id", event.ID),
					zap.String("kind", string(event.Kind)),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *Sink) append(event Event) {
	capacity := len(s.buf)
	if s.size < capacity {
		s.buf[(s.start+s.size)%capacity] = event
		s.size++
		return
	}
	s.buf[s.start] = event
	s.start = (s.start + 1) % capacity
}

// Snapshot returns a point-in-time copy of the buffered events, oldest first.
func (s *Sink) Snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.buf[(s.start+i)%len(s.buf)]
	}
	return out
}

// Recent returns up to limit of the newest events, oldest first.
// A non-positive limit returns everything.
func (s *Sink) Recent(limit int) []Event {
	events := s.Snapshot()
	if limit <= 0 || limit >= len(events) {
		return events
	}
	return events[len(events)-limit:]
}

// Len returns the number of buffered events.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Capacity returns the ring size.
func (s *Sink) Capacity() int {
	return len(s.buf)
}

// SetWriterEnabled toggles the side channel without detaching the writer.
func (s *Sink) SetWriterEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writerEnabled = enabled && s.writer != nil
}

// WriteErrors returns how many side-channel writes have failed.
func (s *Sink) WriteErrors() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeErrors
}
