package events

import (
	"reflect"
	"sync"
)

// EventHandler defines a callback invoked with the published event data. An error returned by a handler stops the
// publishing of that event and is returned to the publisher.
type EventHandler[T any] func(T) error

// globalEventHandlers maps an event type to the EventHandler callbacks subscribed to every emitter of that type.
var globalEventHandlers = make(map[reflect.Type][]any)

// globalEventHandlersLock provides thread synchronization when accessing globalEventHandlers.
var globalEventHandlersLock sync.Mutex

// SubscribeAny adds an EventHandler invoked whenever any EventEmitter publishes an event of type T.
// Note: handlers subscribed here live for the rest of the program, so short-lived objects should subscribe to a
// specific EventEmitter instead.
func SubscribeAny[T any](callback EventHandler[T]) {
	eventType := reflect.TypeOf((*T)(nil)).Elem()

	globalEventHandlersLock.Lock()
	defer globalEventHandlersLock.Unlock()
	globalEventHandlers[eventType] = append(globalEventHandlers[eventType], callback)
}

// EventEmitter describes a provider which can subscribe EventHandler methods for callback when an event of type T
// is published.
type EventEmitter[T any] struct {
	// subscriptions defines the EventHandler methods invoked when a new event is published to this emitter.
	subscriptions []EventHandler[T]
}

// Publish emits the provided event by calling every EventHandler subscribed to this emitter, followed by every
// global handler for the event type. The first error returned by a handler is returned.
func (e *EventEmitter[T]) Publish(event T) error {
	for _, subscription := range e.subscriptions {
		if err := subscription(event); err != nil {
			return err
		}
	}

	eventType := reflect.TypeOf((*T)(nil)).Elem()
	globalEventHandlersLock.Lock()
	callbacks := globalEventHandlers[eventType]
	globalEventHandlersLock.Unlock()

	for _, callback := range callbacks {
		if err := callback.(EventHandler[T])(event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe adds an EventHandler to the list of subscribed EventHandler objects for this emitter.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.subscriptions = append(e.subscriptions, callback)
}

// SubscriberCount returns the amount of handlers subscribed directly to this emitter.
func (e *EventEmitter[T]) SubscriberCount() int {
	return len(e.subscriptions)
}
