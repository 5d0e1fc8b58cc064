package engine

import (
	"context"
	"slices"
	"testing"

	"github.com/kbukum/docflow/logger"
)

type testEvent struct{ value int }

func (testEvent) EventType() string { return "test" }

func TestEventsPublishOrder(t *testing.T) {
	bus := NewEvents()
	var got []int
	bus.Subscribe("test", func(_ context.Context, e Event) { got = append(got, e.(testEvent).value) })
	bus.Subscribe("test", func(_ context.Context, e Event) { got = append(got, e.(testEvent).value*10) })
	bus.Subscribe("other", func(_ context.Context, _ Event) { t.Error("unexpected handler call") })

	bus.Publish(context.Background(), testEvent{value: 2})
	if !slices.Equal(got, []int{2, 20}) {
		t.Errorf("expected handlers in subscription order, got %v", got)
	}
}

func TestEventsUnsubscribe(t *testing.T) {
	bus := NewEvents()
	calls := 0
	id := bus.Subscribe("test", func(context.Context, Event) { calls++ })

	if !bus.Unsubscribe(id) {
		t.Fatal("expected subscription to be removed")
	}
	if bus.Unsubscribe(id) {
		t.Error("expected second unsubscribe to fail")
	}
	bus.Publish(context.Background(), testEvent{})
	if calls != 0 {
		t.Errorf("expected no calls, got %d", calls)
	}
}

func TestEventsPanicRecovery(t *testing.T) {
	bus := NewEvents()
	bus.SetLogger(logger.Nop())
	called := false
	bus.Subscribe("test", func(context.Context, Event) { panic("boom") })
	bus.Subscribe("test", func(context.Context, Event) { called = true })

	bus.Publish(context.Background(), testEvent{})
	if !called {
		t.Error("expected handlers after a panicking one to run")
	}
}

func TestEventsNilBus(t *testing.T) {
	var bus *Events
	// Should not panic
	bus.Publish(context.Background(), testEvent{})
}

func TestTypedSubscribe(t *testing.T) {
	bus := NewEvents()
	var seen []string
	Subscribe(bus, func(_ context.Context, e *BeforePhaseExecution) {
		seen = append(seen, e.Pipeline+"/"+e.Phase.String())
	})

	bus.Publish(context.Background(), &BeforePhaseExecution{Pipeline: "Pages", Phase: PhaseProcess})
	bus.Publish(context.Background(), &AfterPhaseExecution{Pipeline: "Pages", Phase: PhaseProcess})
	if !slices.Equal(seen, []string{"Pages/Process"}) {
		t.Errorf("expected one typed event, got %v", seen)
	}
}

func TestModuleEventOverride(t *testing.T) {
	before := &BeforeModuleExecution{}
	if before.Overridden() {
		t.Fatal("expected no override")
	}
	before.OverrideOutputs(nil)
	before.OverrideOutputs(nil)
	if !before.Overridden() {
		t.Error("expected override")
	}

	after := &AfterModuleExecution{}
	after.OverrideOutputs(nil)
	if !after.Overridden() || after.outputs != nil {
		t.Error("expected override with empty outputs")
	}
}
