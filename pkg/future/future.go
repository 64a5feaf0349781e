package future

import (
	"context"
	"errors"
	"sync"
)

var ErrCanceled = errors.New("request canceled")

type Status int

const (
	Pending Status = iota
	Fulfilled
	Canceled
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Canceled:
		return "canceled"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is the outcome of a promise. Cancellation is not an error.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

// Unwrap maps the result to a value and an error, reporting cancellation as ErrCanceled.
func (r Result[T]) Unwrap() (T, error) {
	switch r.Status {
	case Fulfilled:
		return r.Value, nil
	case Canceled:
		return r.Value, ErrCanceled
	case Failed:
		return r.Value, r.Err
	}
	var zero T
	return zero, errors.New("promise pending")
}

// Promise is written at most once. The first of Fulfill, Fail or Cancel wins.
type Promise[T any] struct {
	once   sync.Once
	done   chan struct{}
	result Result[T]
}

func New[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

func (p *Promise[T]) settle(r Result[T]) bool {
	won := false
	p.once.Do(func() {
		p.result = r
		close(p.done)
		won = true
	})
	return won
}

func (p *Promise[T]) Fulfill(value T) bool {
	return p.settle(Result[T]{Value: value, Status: Fulfilled})
}

func (p *Promise[T]) Fail(err error) bool {
	return p.settle(Result[T]{Status: Failed, Err: err})
}

func (p *Promise[T]) Cancel() bool {
	return p.settle(Result[T]{Status: Canceled})
}

func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

func (p *Promise[T]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Result returns the current outcome without blocking.
func (p *Promise[T]) Result() Result[T] {
	select {
	case <-p.done:
		return p.result
	default:
		return Result[T]{Status: Pending}
	}
}

// Await blocks until the promise settles. The error is set only when ctx ends first.
func (p *Promise[T]) Await(ctx context.Context) (Result[T], error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		return Result[T]{Status: Pending}, ctx.Err()
	}
}

func (p *Promise[T]) Value(ctx context.Context) (T, error) {
	r, err := p.Await(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.Unwrap()
}
