package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"go.uber.org/zap"
)

var (
	ErrDuplicateKey     = errors.New("subscription key already registered")
	ErrConnectionClosed = errors.New("connection closed")
)

// Key identifies a subscription: by request id, or by an alternate name for
// callbacks the gateway does not scope by id.
type Key struct {
	Id  reqid.Id
	Alt string
}

func IdKey(id reqid.Id) Key {
	return Key{Id: id}
}

func AltKey(alt string) Key {
	return Key{Id: reqid.None, Alt: alt}
}

func (k Key) String() string {
	if k.Alt != "" {
		return k.Alt
	}
	return k.Id.String()
}

// Entry is a one-shot correlator or a streaming aggregate.
type Entry interface {
	Kinds() []bus.Kind
	Handle(ctx context.Context, ev bus.Event)
	HandleError(err *model.GatewayError) bool
	// Finished reports an entry that expects no more events: a settled one-shot
	// or a stream whose subject is complete.
	Finished() bool
	// Terminate settles the entry without gateway traffic: nil cancels, an error fails.
	Terminate(err error)
}

// CancelFunc issues the gateway side unsubscribe of an entry.
type CancelFunc func() error

type record struct {
	key    Key
	entry  Entry
	cancel CancelFunc
	subs   []bus.SubscriptionId
}

type Registry struct {
	logger *zap.Logger
	bus    *bus.Bus
	sink   func(*model.GatewayError)

	mu      sync.Mutex
	records map[Key]*record
	errSub  bus.SubscriptionId
}

type Option func(*Registry)

// WithErrorSink receives every gateway error no entry consumed, warnings included.
func WithErrorSink(sink func(*model.GatewayError)) Option {
	return func(r *Registry) {
		r.sink = sink
	}
}

func New(logger *zap.Logger, b *bus.Bus, opts ...Option) *Registry {
	r := &Registry{
		logger:  logger,
		bus:     b,
		records: make(map[Key]*record),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.errSub = bus.On(b, r.onError)
	return r
}

// Register wires the entry to the bus. Registering a key that is still active fails fast.
func (r *Registry) Register(key Key, entry Entry, cancel CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}

	rec := &record{key: key, entry: entry, cancel: cancel}
	for _, kind := range entry.Kinds() {
		rec.subs = append(rec.subs, r.bus.Subscribe(kind, r.handler(rec)))
	}
	r.records[key] = rec
	return nil
}

func (r *Registry) handler(rec *record) bus.Handler {
	return func(ctx context.Context, ev bus.Event) {
		rec.entry.Handle(ctx, ev)
		if rec.entry.Finished() {
			r.settle(rec)
		}
	}
}

// settle forgets a finished entry. No gateway call is needed.
func (r *Registry) settle(rec *record) {
	if r.forget(rec.key, rec) {
		r.unsubscribe(rec)
		rec.entry.Terminate(nil)
	}
}

func (r *Registry) forget(key Key, rec *record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.records[key]
	if !ok || (rec != nil && cur != rec) {
		return false
	}
	delete(r.records, key)
	return true
}

func (r *Registry) take(key Key) (*record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if ok {
		delete(r.records, key)
	}
	return rec, ok
}

func (r *Registry) unsubscribe(rec *record) {
	for _, id := range rec.subs {
		r.bus.Unsubscribe(id)
	}
}

// Release drops the subscription, issues the gateway cancel unless the entry
// already finished, and cancels the entry. It reports whether the key was active.
func (r *Registry) Release(key Key) bool {
	rec, ok := r.take(key)
	if !ok {
		return false
	}
	r.unsubscribe(rec)

	if rec.cancel != nil && !rec.entry.Finished() {
		if err := rec.cancel(); err != nil {
			r.logger.Warn("gateway cancel failed", zap.Stringer("key", rec.key), zap.Error(err))
		}
	}
	rec.entry.Terminate(nil)
	return true
}

// Drop removes a subscription whose request never reached the gateway.
func (r *Registry) Drop(key Key, err error) bool {
	rec, ok := r.take(key)
	if !ok {
		return false
	}
	r.unsubscribe(rec)
	rec.entry.Terminate(err)
	return true
}

// ReleaseAll tears every subscription down without gateway calls: pending
// one-shots fail with err and streams become canceled.
func (r *Registry) ReleaseAll(err error) int {
	if err == nil {
		err = ErrConnectionClosed
	}

	r.mu.Lock()
	records := r.records
	r.records = make(map[Key]*record)
	r.mu.Unlock()

	for _, rec := range records {
		r.unsubscribe(rec)
		rec.entry.Terminate(err)
	}
	if len(records) > 0 {
		r.logger.Info("subscriptions released", zap.Int("count", len(records)), zap.Error(err))
	}
	return len(records)
}

func (r *Registry) Lookup(key Key) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, false
	}
	return rec.entry, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Keys returns the active keys, id keys first in id order.
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	keys := make([]Key, 0, len(r.records))
	for k := range r.records {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		ai, aj := keys[i].Alt != "", keys[j].Alt != ""
		if ai != aj {
			return aj
		}
		if keys[i].Id != keys[j].Id {
			return keys[i].Id < keys[j].Id
		}
		return keys[i].Alt < keys[j].Alt
	})
	return keys
}

func (r *Registry) onError(_ context.Context, ev bus.Error) {
	gwErr := ev.Err()

	if gwErr.IsWarning() {
		r.logger.Info("gateway notice", gwErr.Fields()...)
		r.forward(gwErr)
		return
	}

	if gwErr.Scoped() {
		if r.offer(IdKey(ev.ReqId), gwErr) {
			return
		}
	} else {
		for _, key := range r.altKeys() {
			if r.offer(key, gwErr) {
				return
			}
		}
	}

	r.logger.Warn("gateway error", gwErr.Fields()...)
	r.forward(gwErr)
}

func (r *Registry) altKeys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []Key
	for k := range r.records {
		if k.Alt != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Alt < keys[j].Alt })
	return keys
}

func (r *Registry) offer(key Key, gwErr *model.GatewayError) bool {
	r.mu.Lock()
	rec, ok := r.records[key]
	r.mu.Unlock()
	if !ok {
		return false
	}
	if !rec.entry.HandleError(gwErr) {
		return false
	}
	if rec.entry.Finished() {
		r.settle(rec)
	}
	return true
}

func (r *Registry) forward(gwErr *model.GatewayError) {
	if r.sink != nil {
		r.sink(gwErr)
	}
}

// Close releases every subscription and detaches the error router.
func (r *Registry) Close(err error) {
	r.ReleaseAll(err)
	r.bus.Unsubscribe(r.errSub)
}
