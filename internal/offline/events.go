package offline

import (
	"log/slog"
	"sync"

	"sensegrid/internal/logging"
	"sensegrid/internal/queue"
)

// Event names published by the queue service.
const (
	EventEnqueued = "enqueued"
	EventFlushed  = "flushed"
	EventFailed   = "failed"
)

// Event describes one queue lifecycle transition.
type Event struct {
	Name   string
	Entry  queue.Entry
	Reason string
}

// Handler receives queue events. Handlers run synchronously on the
// goroutine that triggered the transition and must not block.
type Handler func(Event)

// Bus fans queue events out to registered listeners. A panicking listener
// is logged and skipped; it never takes down the flush pass.
type Bus struct {
	logger *slog.Logger

	mu       sync.Mutex
	nextID   int
	handlers map[int]registration
}

type registration struct {
	name    string
	handler Handler
}

// NewBus builds an event bus. The logger is used only to report listener
// panics.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{
		logger:   logger.With(logging.String(logging.FieldComponent, "queue-events")),
		handlers: make(map[int]registration),
	}
}

// Subscribe registers a named handler and returns its unsubscribe func.
func (b *Bus) Subscribe(name string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = registration{name: name, handler: handler}
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Emit delivers the event to every registered handler in turn.
func (b *Bus) Emit(event Event) {
	b.mu.Lock()
	regs := make([]registration, 0, len(b.handlers))
	for _, reg := range b.handlers {
		regs = append(regs, reg)
	}
	b.mu.Unlock()

	for _, reg := range regs {
		b.deliver(reg, event)
	}
}

func (b *Bus) deliver(reg registration, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				logging.String("listener", reg.name),
				logging.String(logging.FieldEventType, event.Name),
				logging.Any("panic", r))
		}
	}()
	reg.handler(event)
}
