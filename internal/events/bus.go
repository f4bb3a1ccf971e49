package events

import (
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// TopicAll receives every event regardless of its name.
const TopicAll = "*"

// Event is published after a successful mutation.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
	TS   int64       `json:"ts"`
}

// Names follow "<resource>:<action>".
const (
	OrderCreated   = "order:created"
	OrderUpdated   = "order:updated"
	OrderDeleted   = "order:deleted"
	ServiceCreated = "service:created"
	ServiceUpdated = "service:updated"
	ServiceDeleted = "service:deleted"
	UserCreated    = "user:created"
	UserUpdated    = "user:updated"
	UserDeleted    = "user:deleted"
)

// Bus is an in-process fan-out of named events.
type Bus struct {
	bus EventBus.Bus
	now func() time.Time
}

func NewBus() *Bus {
	return &Bus{bus: EventBus.New(), now: time.Now}
}

// Publish delivers the event to subscribers of its name and of TopicAll.
func (b *Bus) Publish(name string, data interface{}) {
	ev := Event{Name: name, Data: data, TS: b.now().Unix()}
	b.bus.Publish(name, ev)
	b.bus.Publish(TopicAll, ev)
	zap.L().Debug("event published", zap.String("namespace", "events"), zap.String("event", name))
}

// Subscribe registers fn for events named name, run synchronously by Publish.
func (b *Bus) Subscribe(name string, fn func(Event)) error {
	return b.bus.Subscribe(name, fn)
}

// SubscribeAll registers fn for every event.
func (b *Bus) SubscribeAll(fn func(Event)) error {
	return b.bus.Subscribe(TopicAll, fn)
}

// SubscribeAllAsync registers fn for every event on its own goroutine,
// delivering events in publish order.
func (b *Bus) SubscribeAllAsync(fn func(Event)) error {
	return b.bus.SubscribeAsync(TopicAll, fn, true)
}

// Wait blocks until asynchronous subscribers drained their queue.
func (b *Bus) Wait() {
	b.bus.WaitAsync()
}
