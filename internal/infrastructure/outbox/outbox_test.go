package outbox

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
)

type pinged struct{}

func (pinged) EventName() string { return "test.pinged" }

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus(observability.NopLogger(), Options{})
	var calls atomic.Int32
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		bus.Subscribe("test.pinged", func(ctx context.Context, e domoutbox.Event) error {
			calls.Add(1)
			done <- struct{}{}
			return nil
		})
	}

	ctx := context.Background()
	bus.Start(ctx)
	defer bus.Stop(ctx)

	require.NoError(t, bus.Publish(ctx, pinged{}))
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler not invoked")
		}
	}
	assert.EqualValues(t, 2, calls.Load())
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewBus(nil, Options{Concurrency: 1})
	done := make(chan struct{}, 1)
	bus.Subscribe("test.pinged", func(context.Context, domoutbox.Event) error { panic("boom") })
	bus.Subscribe("test.pinged", func(context.Context, domoutbox.Event) error {
		done <- struct{}{}
		return nil
	})

	ctx := context.Background()
	bus.Start(ctx)
	defer bus.Stop(ctx)

	require.NoError(t, bus.Publish(ctx, pinged{}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler not invoked")
	}
}

func TestPublishAfterStop(t *testing.T) {
	bus := NewBus(nil, Options{})
	ctx := context.Background()
	bus.Start(ctx)
	bus.Stop(ctx)

	assert.ErrorIs(t, bus.Publish(ctx, pinged{}), ErrBusStopped)
	bus.Stop(ctx)
}

func TestPublishHonoursContextWhenQueueFull(t *testing.T) {
	bus := NewBus(nil, Options{QueueSize: 1})
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, pinged{}))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(short, pinged{}), context.DeadlineExceeded)
}
