package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func bid(id reqid.Id, price float64) TickPrice {
	return TickPrice{ReqId: id, Field: model.TickBid, Price: price}
}

func TestBus_PublishRegistrationOrder(t *testing.T) {
	b := New(zap.NewNop(), 8)

	var calls []string
	b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) { calls = append(calls, "first") })
	b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) { calls = append(calls, "second") })
	b.Subscribe(TickSizeKind, func(ctx context.Context, ev Event) { calls = append(calls, "size") })

	b.Publish(context.Background(), bid(1, 100))

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestBus_PanicIsolated(t *testing.T) {
	b := New(zap.NewNop(), 8)

	delivered := false
	b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) { panic("broken handler") })
	b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) { delivered = true })

	require.NotPanics(t, func() { b.Publish(context.Background(), bid(1, 100)) })
	assert.True(t, delivered)
	assert.Equal(t, uint64(1), b.Statistics().DispatchFails)
}

func TestBus_UnsubscribeDuringRound(t *testing.T) {
	b := New(zap.NewNop(), 8)

	var second SubscriptionId
	secondCalls := 0
	b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) {
		b.Unsubscribe(second)
	})
	second = b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) { secondCalls++ })

	b.Publish(context.Background(), bid(1, 100))
	b.Publish(context.Background(), bid(1, 101))

	assert.Equal(t, 0, secondCalls)
	assert.Equal(t, 1, b.Subscribers(TickPriceKind))
	assert.False(t, b.Unsubscribe(second))
}

func TestBus_SubscribeDuringRound(t *testing.T) {
	b := New(zap.NewNop(), 8)

	lateCalls := 0
	subscribed := false
	b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) {
		if !subscribed {
			subscribed = true
			b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) { lateCalls++ })
		}
	})

	b.Publish(context.Background(), bid(1, 100))
	assert.Equal(t, 0, lateCalls, "new subscriber joins from the next event")

	b.Publish(context.Background(), bid(1, 101))
	assert.Equal(t, 1, lateCalls)
}

func TestBus_Clear(t *testing.T) {
	b := New(zap.NewNop(), 8)

	calls := 0
	id := b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) { calls++ })
	b.Clear()
	b.Publish(context.Background(), bid(1, 100))

	assert.Equal(t, 0, calls)
	assert.False(t, b.Unsubscribe(id))
}

func TestBus_ExecDeliversInOrder(t *testing.T) {
	b := New(zap.NewNop(), 16)

	got := make(chan float64, 16)
	On(b, func(ctx context.Context, ev TickPrice) { got <- ev.Price })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := b.Exec(ctx)

	for _, p := range []float64{100.0, 100.5, 100.25} {
		require.NoError(t, b.Post(ctx, bid(1, p)))
	}

	var prices []float64
	for len(prices) < 3 {
		select {
		case p := <-got:
			prices = append(prices, p)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
	assert.Equal(t, []float64{100.0, 100.5, 100.25}, prices)

	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled))

	assert.ErrorIs(t, b.Post(context.Background(), bid(1, 1)), ErrClosed)

	stats := b.Statistics()
	assert.Equal(t, uint64(3), stats.PostCount)
	assert.Equal(t, uint64(3), stats.DispatchCount)
	stats.Print(zap.NewNop())
}

func TestBus_TryPostCapacityReached(t *testing.T) {
	b := New(zap.NewNop(), 1)

	require.NoError(t, b.TryPost(bid(1, 1)))
	assert.ErrorIs(t, b.TryPost(bid(1, 2)), ErrCapacityReached)
	assert.Equal(t, uint64(1), b.Statistics().PostFails)
}

func TestBus_Middleware(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, ev Event) {
				trace = append(trace, name)
				next(ctx, ev)
			}
		}
	}

	b := New(zap.NewNop(), 1, WithMiddleware(mw("outer"), mw("inner")))
	b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) { trace = append(trace, "handler") })
	b.Publish(context.Background(), bid(1, 1))

	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}

func TestBus_MiddlewareOncePerEvent(t *testing.T) {
	var wrapped int
	count := func(next Handler) Handler {
		return func(ctx context.Context, ev Event) {
			wrapped++
			next(ctx, ev)
		}
	}

	b := New(zap.NewNop(), 1, WithMiddleware(count))
	var handled int
	for i := 0; i < 3; i++ {
		b.Subscribe(TickPriceKind, func(ctx context.Context, ev Event) { handled++ })
	}
	b.Publish(context.Background(), bid(1, 1))
	b.Publish(context.Background(), RealTimeBar{ReqId: 1})

	assert.Equal(t, 3, handled)
	assert.Equal(t, 2, wrapped)
}

func TestKind_String(t *testing.T) {
	for _, k := range Kinds() {
		name := k.String()
		require.NotEmpty(t, name)
		parsed, ok := ParseKind(name)
		require.True(t, ok, name)
		assert.Equal(t, k, parsed)
	}
	_, ok := ParseKind("nope")
	assert.False(t, ok)
}

func TestEvent_RequestId(t *testing.T) {
	assert.Equal(t, reqid.Id(4), bid(4, 1).RequestId())
	assert.Equal(t, reqid.None, Position{}.RequestId())
	assert.Equal(t, reqid.None, AccountDownloadEnd{Account: "DU1"}.RequestId())

	err := Error{ReqId: 5, Code: 200, Message: "no security definition"}.Err()
	assert.Equal(t, int64(5), err.RequestId)
	assert.Equal(t, 200, err.Code)
}
