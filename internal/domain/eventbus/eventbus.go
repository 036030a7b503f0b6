package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Topics published by the pipeline and consumed by the bot service.
const (
	TopicStageStarted  = "pipeline:stage:started"
	TopicStageFinished = "pipeline:stage:finished"
	TopicRunFinished   = "pipeline:run:finished"
)

// StageEvent describes a single stage transition inside a run.
type StageEvent struct {
	RunID  string
	ChatID string
	Stage  string
	Err    error
}

// Bus wraps the underlying event bus so domain packages do not depend on the
// library API directly.
type Bus struct {
	bus evbus.Bus
}

// New creates an event bus instance.
func New() *Bus {
	return &Bus{bus: evbus.New()}
}

// Publish emits an event to all subscribers of the topic.
func (b *Bus) Publish(topic string, args ...interface{}) {
	b.bus.Publish(topic, args...)
}

// Subscribe registers a synchronous handler for the topic.
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

// SubscribeAsync registers a handler executed on its own goroutine.
func (b *Bus) SubscribeAsync(topic string, fn interface{}) error {
	return b.bus.SubscribeAsync(topic, fn, false)
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}

// WaitAsync blocks until all async handlers have finished.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}
