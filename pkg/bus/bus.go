package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrCapacityReached = errors.New("event capacity reached")
	ErrClosed          = errors.New("bus closed")
)

type SubscriptionId uint64

type subscriber struct {
	id      SubscriptionId
	kind    Kind
	handler Handler
	active  atomic.Bool
}

// Bus fans inbound callbacks out to subscribers. Publish is serialized:
// handlers never run concurrently with each other.
type Bus struct {
	logger   *zap.Logger
	dispatch Handler

	events chan Event
	closed chan struct{}
	once   sync.Once

	mu     sync.RWMutex
	subs   map[Kind][]*subscriber
	index  map[SubscriptionId]*subscriber
	lastId SubscriptionId

	publishMu sync.Mutex

	// Statistics
	started       atomic.Int64
	runTime       atomic.Int64
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

type Option func(*Bus)

// WithMiddleware wraps the dispatch of every published event, outermost first.
// Each event passes the chain once, however many handlers it reaches.
func WithMiddleware(mw ...Middleware) Option {
	return func(b *Bus) {
		for i := len(mw) - 1; i >= 0; i-- {
			b.dispatch = mw[i](b.dispatch)
		}
	}
}

func New(logger *zap.Logger, eventCapacity int, opts ...Option) *Bus {
	b := &Bus{
		logger: logger,
		events: make(chan Event, eventCapacity),
		closed: make(chan struct{}),
		subs:   make(map[Kind][]*subscriber),
		index:  make(map[SubscriptionId]*subscriber),
	}
	b.dispatch = b.deliver
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h for every future event of kind. It may be called from inside a handler.
func (b *Bus) Subscribe(kind Kind, h Handler) SubscriptionId {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastId++
	s := &subscriber{id: b.lastId, kind: kind, handler: h}
	s.active.Store(true)

	// copy on write, so a dispatch round in flight keeps its own snapshot
	list := make([]*subscriber, 0, len(b.subs[kind])+1)
	list = append(list, b.subs[kind]...)
	b.subs[kind] = append(list, s)
	b.index[s.id] = s
	return s.id
}

// Unsubscribe stops delivery to the subscription immediately, including the rest
// of a dispatch round in progress. It reports whether the subscription existed.
func (b *Bus) Unsubscribe(id SubscriptionId) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.index[id]
	if !ok {
		return false
	}
	s.active.Store(false)
	delete(b.index, id)

	old := b.subs[s.kind]
	list := make([]*subscriber, 0, len(old))
	for _, o := range old {
		if o.id != id {
			list = append(list, o)
		}
	}
	if len(list) == 0 {
		delete(b.subs, s.kind)
	} else {
		b.subs[s.kind] = list
	}
	return true
}

// Clear drops every subscription.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.index {
		s.active.Store(false)
	}
	b.subs = make(map[Kind][]*subscriber)
	b.index = make(map[SubscriptionId]*subscriber)
}

func (b *Bus) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// Publish delivers ev synchronously to every subscriber of its kind, in registration order.
// A panicking handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.dispatchCount.Add(1)
	b.dispatch(ctx, ev)
}

func (b *Bus) deliver(ctx context.Context, ev Event) {
	b.mu.RLock()
	list := b.subs[ev.Kind()]
	b.mu.RUnlock()

	for _, s := range list {
		if !s.active.Load() {
			continue
		}
		b.invoke(ctx, s, ev)
	}
}

func (b *Bus) invoke(ctx context.Context, s *subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.dispatchFails.Add(1)
			b.logger.Error("handler panicked",
				zap.Stringer("kind", ev.Kind()),
				zap.Int64("req_id", ev.RequestId().Int64()),
				zap.Uint64("subscription", uint64(s.id)),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()
	s.handler(ctx, ev)
}

// Post queues ev for the delivery loop. It blocks while the queue is full.
func (b *Bus) Post(ctx context.Context, ev Event) error {
	select {
	case <-b.closed:
		b.postFails.Add(1)
		return ErrClosed
	default:
	}
	select {
	case b.events <- ev:
		b.postCount.Add(1)
		return nil
	case <-b.closed:
		b.postFails.Add(1)
		return ErrClosed
	case <-ctx.Done():
		b.postFails.Add(1)
		return ctx.Err()
	}
}

// TryPost queues ev without blocking.
func (b *Bus) TryPost(ev Event) error {
	select {
	case <-b.closed:
		b.postFails.Add(1)
		return ErrClosed
	default:
	}
	select {
	case b.events <- ev:
		b.postCount.Add(1)
		return nil
	default:
		b.postFails.Add(1)
		return ErrCapacityReached
	}
}

// Exec runs the delivery loop until ctx ends. The returned channel yields the
// reason and is closed on exit. Post fails with ErrClosed once the reason is sent.
func (b *Bus) Exec(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	go func() {
		start := time.Now()
		b.started.Store(start.UnixNano())

		var err error
		for err == nil {
			select {
			case <-ctx.Done():
				err = ctx.Err()
			case ev := <-b.events:
				b.Publish(ctx, ev)
			}
		}

		b.runTime.Add(int64(time.Since(start)))
		b.started.Store(0)
		b.once.Do(func() { close(b.closed) })
		done <- err
		close(done)
	}()

	return done
}

func (b *Bus) Statistics() Statistics {
	runTime := time.Duration(b.runTime.Load())
	if started := b.started.Load(); started != 0 {
		runTime += time.Since(time.Unix(0, started))
	}
	s := Statistics{
		RunTime:       runTime,
		PostCount:     b.postCount.Load(),
		PostFails:     b.postFails.Load(),
		DispatchCount: b.dispatchCount.Load(),
		DispatchFails: b.dispatchFails.Load(),
	}
	if runTime > 0 {
		s.Throughput = float64(s.DispatchCount) / runTime.Seconds()
	}
	return s
}
