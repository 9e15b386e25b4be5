package jsonapi_test

import (
	"sync"
	"testing"

	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/stretchr/testify/assert"
)

func TestEventBus_OnEmitOff(t *testing.T) {
	t.Parallel()

	bus := jsonapi.NewEventBus()

	var received []string

	id := bus.On("custom", func(event jsonapi.Event) {
		received = append(received, event.Data["value"].(string))
	})

	bus.Emit(jsonapi.Event{Name: "custom", Data: map[string]any{"value": "first"}})
	bus.Emit(jsonapi.Event{Name: "other", Data: map[string]any{"value": "ignored"}})
	bus.Off(id)
	bus.Emit(jsonapi.Event{Name: "custom", Data: map[string]any{"value": "second"}})

	assert.Equal(t, []string{"first"}, received)

	bus.Off(id)
	bus.Off(12345)
}

func TestEventBus_SubscribeReturnsUnsubscribe(t *testing.T) {
	t.Parallel()

	bus := jsonapi.NewEventBus()
	calls := 0

	unsubscribe := bus.Subscribe("x", func(jsonapi.Event) { calls++ })

	bus.Emit(jsonapi.Event{Name: "x"})
	unsubscribe()
	bus.Emit(jsonapi.Event{Name: "x"})

	assert.Equal(t, 1, calls)
}

func TestEventBus_WildcardAndTimestamp(t *testing.T) {
	t.Parallel()

	bus := jsonapi.NewEventBus()

	var events []jsonapi.Event

	bus.On(jsonapi.EventAny, func(event jsonapi.Event) { events = append(events, event) })

	bus.Emit(jsonapi.Event{Name: jsonapi.EventPreFetch})
	bus.Emit(jsonapi.Event{Name: jsonapi.EventPostFetch})

	if assert.Len(t, events, 2) {
		assert.Equal(t, jsonapi.EventPreFetch, events[0].Name)
		assert.False(t, events[0].Time.IsZero())
	}
}

func TestEventBus_NilIsSilent(t *testing.T) {
	t.Parallel()

	var bus *jsonapi.EventBus

	assert.NotPanics(t, func() { bus.Emit(jsonapi.Event{Name: "x"}) })
}

func TestEventBus_ConcurrentUse(t *testing.T) {
	t.Parallel()

	bus := jsonapi.NewEventBus()

	var (
		mu    sync.Mutex
		count int
		wg    sync.WaitGroup
	)

	bus.On("tick", func(jsonapi.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			bus.Emit(jsonapi.Event{Name: "tick"})
		}()
	}

	wg.Wait()

	assert.Equal(t, 20, count)
}
