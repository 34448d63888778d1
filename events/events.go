package events

import (
	"sync"
)

// EventHandler defines a callback invoked with published event data. Returning an error stops the remaining
// handlers from being invoked and surfaces the error to the publisher.
type EventHandler[T any] func(T) error

// EventEmitter publishes events of type T to its subscribers. The zero value is ready to use.
type EventEmitter[T any] struct {
	// subscriptions defines the handlers invoked when this emitter publishes.
	subscriptions []EventHandler[T]
	lock          sync.RWMutex
}

// Subscribe adds an EventHandler to this emitter.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.subscriptions = append(e.subscriptions, callback)
}

// Publish invokes every handler subscribed to this emitter, in subscription order. The first error returned by a
// handler is returned and no further handlers are called.
func (e *EventEmitter[T]) Publish(event T) error {
	e.lock.RLock()
	subscriptions := e.subscriptions
	e.lock.RUnlock()

	for _, subscription := range subscriptions {
		if err := subscription(event); err != nil {
			return err
		}
	}

	return nil
}
