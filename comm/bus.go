package comm

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/deskagent/logging"
)

const (
	// DefaultSource tags messages published without an explicit source.
	DefaultSource = "deskagent"
	// TopicWildcard receives every published message.
	TopicWildcard = "*"
	// DefaultHistorySize bounds the bus's in-memory message history.
	DefaultHistorySize = 1000
)

// Message is one message passed between components.
type Message struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s → %s: %v", m.Timestamp.Format("15:04:05"), m.Source, m.Topic, m.Payload)
}

// Handler consumes messages published on a topic.
type Handler func(Message)

// BusOptions configure a Bus.
type BusOptions struct {
	// HistorySize bounds how many recent messages the bus retains.
	HistorySize int
	Logger      logging.Logger
}

type subscription struct {
	id      int
	handler Handler
}

// Bus is a synchronous in-process publish/subscribe message bus. Handlers
// subscribed to TopicWildcard see every message.
type Bus struct {
	logger logging.Logger

	mu          sync.Mutex
	nextID      int
	subscribers map[string][]subscription
	history     []Message
	historySize int
}

// NewBus creates a Bus.
func NewBus(optFns ...func(o *BusOptions)) *Bus {
	opts := BusOptions{
		HistorySize: DefaultHistorySize,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Bus{
		logger:      opts.Logger,
		subscribers: make(map[string][]subscription),
		historySize: opts.HistorySize,
	}
}

// Subscribe registers a handler for a topic and returns a function that
// removes the subscription again.
func (b *Bus) Subscribe(topic string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	b.subscribers[topic] = append(b.subscribers[topic], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[topic]
		for i, sub := range subs {
			if sub.id == id {
				b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the message to every subscriber of its topic, then to
// the wildcard subscribers. A missing id, source or timestamp is filled in.
func (b *Bus) Publish(msg Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	if msg.Source == "" {
		msg.Source = DefaultSource
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	b.mu.Lock()

	b.history = append(b.history, msg)
	if len(b.history) > b.historySize {
		b.history = b.history[len(b.history)-b.historySize:]
	}

	handlers := make([]Handler, 0, 4)
	for _, sub := range b.subscribers[msg.Topic] {
		handlers = append(handlers, sub.handler)
	}

	if msg.Topic != TopicWildcard {
		for _, sub := range b.subscribers[TopicWildcard] {
			handlers = append(handlers, sub.handler)
		}
	}

	b.mu.Unlock()

	for _, handler := range handlers {
		b.deliver(handler, msg)
	}
}

func (b *Bus) deliver(handler Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus.handler", "topic", msg.Topic, "error", fmt.Sprintf("%v", r))
		}
	}()

	handler(msg)
}

// History returns recent messages, oldest first. An empty topic means all
// topics; a limit of 0 means DefaultHistorySize.
func (b *Bus) History(topic string, limit int) []Message {
	if limit <= 0 {
		limit = DefaultHistorySize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var msgs []Message

	if topic == "" {
		msgs = append(msgs, b.history...)
	} else {
		for _, m := range b.history {
			if m.Topic == topic {
				msgs = append(msgs, m)
			}
		}
	}

	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	return msgs
}
