package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"go.uber.org/zap"
)

type State int32

const (
	Active State = iota
	Canceled
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "canceled"
}

// Stream is the lifecycle shared by every live aggregate. D is the delta
// type published to observers after each accepted update.
type Stream[D any] struct {
	logger *zap.Logger
	id     reqid.Id

	state atomic.Int32
	done  chan struct{}

	mu      sync.Mutex
	release func()
	err     error

	listeners listeners[D]
}

func newStream[D any](logger *zap.Logger, id reqid.Id) *Stream[D] {
	return &Stream[D]{
		logger: logger,
		id:     id,
		done:   make(chan struct{}),
	}
}

func (s *Stream[D]) Id() reqid.Id {
	return s.id
}

func (s *Stream[D]) State() State {
	return State(s.state.Load())
}

func (s *Stream[D]) Active() bool {
	return s.State() == Active
}

// Done is closed once the stream is canceled.
func (s *Stream[D]) Done() <-chan struct{} {
	return s.done
}

// Err returns the last gateway error reported for the stream, or the teardown reason.
func (s *Stream[D]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Bind sets the function Cancel uses to release the subscription.
func (s *Stream[D]) Bind(release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release = release
}

func (s *Stream[D]) transition(err error) bool {
	if !s.state.CompareAndSwap(int32(Active), int32(Canceled)) {
		return false
	}
	s.mu.Lock()
	if err != nil {
		s.err = err
	}
	s.mu.Unlock()
	close(s.done)
	return true
}

// Cancel stops the stream and releases its subscription. Calling it again is a no-op.
func (s *Stream[D]) Cancel() {
	if !s.transition(nil) {
		return
	}
	s.mu.Lock()
	release := s.release
	s.mu.Unlock()
	if release != nil {
		release()
	}
}

// Terminate marks the stream canceled without issuing a release.
func (s *Stream[D]) Terminate(err error) {
	s.transition(err)
}

// Finished is always false: streams end only through Cancel or teardown.
func (s *Stream[D]) Finished() bool {
	return false
}

// HandleError records non-warning errors scoped to the stream id.
func (s *Stream[D]) HandleError(err *model.GatewayError) bool {
	if !err.Scoped() || reqid.Id(err.RequestId) != s.id {
		return false
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.logger.Warn("stream error", err.Fields()...)
	return true
}

// OnUpdate registers fn for every delta. The returned func removes it.
func (s *Stream[D]) OnUpdate(fn func(D)) func() {
	return s.listeners.add(fn)
}

// Updates delivers deltas on a channel until ctx ends or the stream is canceled.
// Deltas are dropped while the channel is full.
func (s *Stream[D]) Updates(ctx context.Context, size int) <-chan D {
	ch := make(chan D, size)

	var mu sync.Mutex
	closed := false
	remove := s.listeners.add(func(d D) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- d:
		default:
			s.logger.Debug("update dropped, consumer is lagging", zap.Int64("req_id", s.id.Int64()))
		}
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		remove()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}

func (s *Stream[D]) publish(d D) {
	s.listeners.publish(d)
}

type listener[D any] struct {
	id uint64
	fn func(D)
}

type listeners[D any] struct {
	mu     sync.Mutex
	lastId uint64
	list   []listener[D]
}

func (l *listeners[D]) add(fn func(D)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastId++
	id := l.lastId
	l.list = append(l.list[:len(l.list):len(l.list)], listener[D]{id: id, fn: fn})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		list := make([]listener[D], 0, len(l.list))
		for _, o := range l.list {
			if o.id != id {
				list = append(list, o)
			}
		}
		l.list = list
	}
}

func (l *listeners[D]) publish(d D) {
	l.mu.Lock()
	list := l.list
	l.mu.Unlock()

	for _, o := range list {
		o.fn(d)
	}
}
