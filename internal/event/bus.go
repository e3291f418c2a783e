// Package event provides the synchronous lifecycle event bus. Delivery is
// in subscriber-registration order with exact-type matching: a subscriber
// for T receives exactly events whose dynamic type is T, nothing inherited,
// nothing buffered.
package event

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/0xsj/go-loom/internal/lib/logger"
)

type subscription struct {
	deliver func(event any)
}

type Bus struct {
	log logger.Logger

	mu   sync.RWMutex
	subs map[reflect.Type][]*subscription
}

func NewBus(log logger.Logger) *Bus {
	if log == nil {
		log = logger.Discard()
	}
	return &Bus{
		log:  log,
		subs: make(map[reflect.Type][]*subscription),
	}
}

// Subscribe registers fn for events of concrete type T and returns an
// unsubscribe func. Events published before registration are not redelivered.
func Subscribe[T any](b *Bus, fn func(T)) func() {
	eventType := reflect.TypeOf((*T)(nil)).Elem()
	sub := &subscription{
		deliver: func(event any) {
			fn(event.(T))
		},
	}

	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		list := b.subs[eventType]
		for i, s := range list {
			if s == sub {
				b.subs[eventType] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers synchronously and in order to every subscriber matching
// the event's dynamic type. A panicking subscriber is logged and skipped;
// it does not prevent delivery to the rest.
func (b *Bus) Publish(event any) {
	eventType := reflect.TypeOf(event)

	b.mu.RLock()
	list := make([]*subscription, len(b.subs[eventType]))
	copy(list, b.subs[eventType])
	b.mu.RUnlock()

	for _, sub := range list {
		b.deliverSafe(sub, event, eventType)
	}
}

func (b *Bus) deliverSafe(sub *subscription, event any, eventType reflect.Type) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event subscriber panicked",
				logger.String("event", eventType.String()),
				logger.Err(fmt.Errorf("%v", r)),
			)
		}
	}()
	sub.deliver(event)
}
