package bus

import (
	"context"
)

type Handler func(context.Context, Event)

type Middleware func(Handler) Handler

type EventHandler[T Event] func(context.Context, T)

// Typed adapts a handler of one concrete event type. Events of other types are ignored.
func Typed[T Event](h EventHandler[T]) Handler {
	return func(ctx context.Context, ev Event) {
		if e, ok := ev.(T); ok {
			h(ctx, e)
		}
	}
}

// On subscribes h to the kind of T.
func On[T Event](b *Bus, h EventHandler[T]) SubscriptionId {
	var zero T
	return b.Subscribe(zero.Kind(), Typed(h))
}

func MergeHandlers(handlers ...Handler) Handler {
	return func(ctx context.Context, ev Event) {
		for _, handler := range handlers {
			handler(ctx, ev)
		}
	}
}
