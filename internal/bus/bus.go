package bus

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/swarmux/swarmux/internal/logging"
)

// Handler receives messages delivered to a recipient.
type Handler func(Message)

// registration pairs a handler with a removal token.
type registration struct {
	id      int
	handler Handler
}

// Bus routes messages between named recipients. Delivery is synchronous;
// a message sent to a recipient with no registered handler is queued and
// replayed in FIFO order when the first handler registers. Handler panics
// are recovered and logged, never propagated.
type Bus struct {
	mu         sync.Mutex
	logger     *logging.Logger
	selfName   string
	handlers   map[string][]registration
	broadcasts []registration
	queues     map[string][]Message
	nextID     int
}

// NewBus creates an empty message bus. A nil logger is replaced with a
// no-op logger.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[string][]registration),
		queues:   make(map[string][]Message),
	}
}

// SetSelfName records the bus owner's agent name. Broadcast skips this
// recipient when excludeSelf is set.
func (b *Bus) SetSelfName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selfName = name
}

// SelfName returns the configured owner name.
func (b *Bus) SelfName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selfName
}

// Send delivers a message to every handler registered for recipient, in
// registration order. If no handler is registered the message is queued
// and Send returns false: accepted but undelivered, not an error. A
// panicking handler does not stop delivery to the rest.
func (b *Bus) Send(recipient string, msg Message) bool {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	b.mu.Lock()
	regs := b.handlers[recipient]
	if len(regs) == 0 {
		b.queues[recipient] = append(b.queues[recipient], msg)
		b.mu.Unlock()
		return false
	}
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	b.mu.Unlock()

	for _, reg := range snapshot {
		b.safeCall(recipient, reg.handler, msg)
	}
	return true
}

// OnMessage registers a handler for recipient, then flushes any queued
// messages for that recipient in FIFO order. The queue is cleared before
// replay so a handler that re-sends cannot duplicate delivery. Returns an
// unsubscribe function.
func (b *Bus) OnMessage(recipient string, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[recipient] = append(b.handlers[recipient], registration{id: id, handler: handler})

	queued := b.queues[recipient]
	delete(b.queues, recipient)
	b.mu.Unlock()

	for _, msg := range queued {
		b.Send(recipient, msg)
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		regs := b.handlers[recipient]
		for i, reg := range regs {
			if reg.id == id {
				b.handlers[recipient] = append(regs[:i], regs[i+1:]...)
				break
			}
		}
		if len(b.handlers[recipient]) == 0 {
			delete(b.handlers, recipient)
		}
	}
}

// OnBroadcast registers a handler for broadcast messages. Returns an
// unsubscribe function.
func (b *Bus) OnBroadcast(handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.broadcasts = append(b.broadcasts, registration{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, reg := range b.broadcasts {
			if reg.id == id {
				b.broadcasts = append(b.broadcasts[:i], b.broadcasts[i+1:]...)
				return
			}
		}
	}
}

// Broadcast delivers a message to all broadcast handlers first, then to
// every per-recipient handler. When excludeSelf is set the recipient
// matching the configured self name is skipped. Recipients with no
// handler are not queued; broadcast is best-effort by design.
func (b *Bus) Broadcast(msg Message, excludeSelf bool) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	b.mu.Lock()
	self := b.selfName
	wide := make([]registration, len(b.broadcasts))
	copy(wide, b.broadcasts)

	recipients := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		recipients = append(recipients, name)
	}
	sort.Strings(recipients)

	perRecipient := make(map[string][]registration, len(recipients))
	for _, name := range recipients {
		regs := make([]registration, len(b.handlers[name]))
		copy(regs, b.handlers[name])
		perRecipient[name] = regs
	}
	b.mu.Unlock()

	for _, reg := range wide {
		b.safeCall("*", reg.handler, msg)
	}
	for _, name := range recipients {
		if excludeSelf && name == self {
			continue
		}
		for _, reg := range perRecipient[name] {
			b.safeCall(name, reg.handler, msg)
		}
	}
}

// QueuedCount returns the number of undelivered messages queued for a
// recipient.
func (b *Bus) QueuedCount(recipient string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[recipient])
}

// ClearQueue drops the queue for one recipient and returns the number of
// messages discarded.
func (b *Bus) ClearQueue(recipient string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.queues[recipient])
	delete(b.queues, recipient)
	return n
}

// ClearAllQueues drops every queued message.
func (b *Bus) ClearAllQueues() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues = make(map[string][]Message)
}

// safeCall invokes a handler and recovers from any panic, so one
// misbehaving subscriber cannot block delivery to the others.
func (b *Bus) safeCall(recipient string, handler Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("message handler panicked",
				"recipient", recipient,
				"from", msg.From,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	handler(msg)
}
