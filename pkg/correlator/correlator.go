package correlator

import (
	"context"
	"slices"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/future"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
)

// Spec describes a one-shot request: which events feed it, which one ends it
// and how partial results fold into the accumulator.
type Spec[T any] struct {
	// Id scopes the correlator. reqid.None for requests the gateway answers without an id.
	Id reqid.Id
	// Key names id-less correlators, e.g. an account name.
	Key string

	Kinds    []bus.Kind
	Terminal bus.Kind

	Init func() T
	Fold func(acc T, ev bus.Event) T

	// Match accepts an event for this request. Defaults to request id equality.
	Match func(ev bus.Event) bool
	// Completes reports a data event that also ends the request.
	Completes func(ev bus.Event) bool
	// Finish builds the result from the accumulator and the terminal event. Defaults to the accumulator.
	Finish func(acc T, ev bus.Event) T
	// MatchError selects gateway errors that fail the request.
	MatchError func(err *model.GatewayError) bool
}

// Correlator turns a bounded callback sequence into one promise.
// Handle and HandleError run on the bus delivery goroutine.
type Correlator[T any] struct {
	spec    Spec[T]
	acc     T
	promise *future.Promise[T]
}

func New[T any](spec Spec[T]) *Correlator[T] {
	c := &Correlator[T]{
		spec:    spec,
		promise: future.New[T](),
	}
	if spec.Init != nil {
		c.acc = spec.Init()
	}
	if c.spec.Match == nil {
		id := spec.Id
		c.spec.Match = func(ev bus.Event) bool { return ev.RequestId() == id }
	}
	if c.spec.MatchError == nil {
		c.spec.MatchError = DefaultErrorMatch(spec.Id)
	}
	return c
}

// DefaultErrorMatch fails scoped correlators on errors for their id and id-less
// correlators on connection-wide errors. Warnings never match.
func DefaultErrorMatch(id reqid.Id) func(*model.GatewayError) bool {
	return func(err *model.GatewayError) bool {
		if err.IsWarning() {
			return false
		}
		return reqid.Id(err.RequestId) == id
	}
}

func (c *Correlator[T]) Id() reqid.Id {
	return c.spec.Id
}

func (c *Correlator[T]) Key() string {
	return c.spec.Key
}

func (c *Correlator[T]) Promise() *future.Promise[T] {
	return c.promise
}

// Kinds returns the data kinds followed by the terminal kind.
func (c *Correlator[T]) Kinds() []bus.Kind {
	kinds := slices.Clone(c.spec.Kinds)
	if !slices.Contains(kinds, c.spec.Terminal) {
		kinds = append(kinds, c.spec.Terminal)
	}
	return kinds
}

func (c *Correlator[T]) Handle(_ context.Context, ev bus.Event) {
	if c.promise.Settled() || !c.spec.Match(ev) {
		return
	}

	if ev.Kind() == c.spec.Terminal {
		c.finish(ev)
		return
	}

	if c.spec.Fold != nil {
		c.acc = c.spec.Fold(c.acc, ev)
	}
	if c.spec.Completes != nil && c.spec.Completes(ev) {
		c.finish(ev)
	}
}

func (c *Correlator[T]) finish(ev bus.Event) {
	result := c.acc
	if c.spec.Finish != nil {
		result = c.spec.Finish(c.acc, ev)
	}
	c.promise.Fulfill(result)
}

// HandleError fails the promise when the error belongs to this request.
func (c *Correlator[T]) HandleError(err *model.GatewayError) bool {
	if c.promise.Settled() || !c.spec.MatchError(err) {
		return false
	}
	return c.promise.Fail(err)
}

func (c *Correlator[T]) Finished() bool {
	return c.promise.Settled()
}

// Terminate settles a pending correlator: nil cancels it, anything else fails it.
func (c *Correlator[T]) Terminate(err error) {
	if err == nil {
		c.promise.Cancel()
		return
	}
	c.promise.Fail(err)
}
