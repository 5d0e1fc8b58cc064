package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/logger"
)

// Event types published by the engine.
const (
	EventBeforeEngineExecution = "engine.before"
	EventAfterEngineExecution  = "engine.after"
	EventBeforePhaseExecution  = "phase.before"
	EventAfterPhaseExecution   = "phase.after"
	EventBeforeModuleExecution = "module.before"
	EventAfterModuleExecution  = "module.after"
)

// Event is implemented by every value published on Events.
type Event interface {
	EventType() string
}

// Handler handles an event.
type Handler func(ctx context.Context, e Event)

type subscription struct {
	id      string
	handler Handler
}

// Events is a synchronous event bus. Handlers run on the publishing
// goroutine in subscription order; module handlers therefore run
// concurrently for independent phases and must be safe for that.
type Events struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription
	nextID        atomic.Uint64
	log           *logger.Logger
}

// NewEvents creates an empty bus.
func NewEvents() *Events {
	return &Events{subscriptions: make(map[string][]subscription)}
}

// SetLogger sets the logger used to report handler panics.
func (b *Events) SetLogger(log *logger.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = log
}

// Subscribe registers a handler for eventType and returns a subscription ID.
func (b *Events) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscriptions == nil {
		b.subscriptions = make(map[string][]subscription)
	}
	id := "sub-" + strconv.FormatUint(b.nextID.Add(1), 10)
	b.subscriptions[eventType] = append(b.subscriptions[eventType], subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes a subscription by ID.
func (b *Events) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for eventType, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				b.subscriptions[eventType] = append(subs[:i:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish calls every handler subscribed to the event's type. A panicking
// handler is logged and skipped.
func (b *Events) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := b.subscriptions[e.EventType()]
	log := b.log
	b.mu.RUnlock()

	for _, sub := range subs {
		b.safeCall(ctx, log, sub.handler, e)
	}
}

func (b *Events) safeCall(ctx context.Context, log *logger.Logger, handler Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			if log == nil {
				log = logger.Get("events")
			}
			log.Error("event handler panicked", logger.Fields(
				"event", e.EventType(),
				logger.FieldError, fmt.Sprint(r),
				"stack", string(debug.Stack()),
			))
		}
	}()
	handler(ctx, e)
}

// Subscribe registers a handler for events of type E.
//
//	engine.Subscribe(events, func(ctx context.Context, e *engine.BeforeModuleExecution) {
//		e.OverrideOutputs(fakes)
//	})
func Subscribe[E Event](b *Events, handler func(ctx context.Context, e E)) string {
	var zero E
	return b.Subscribe(zero.EventType(), func(ctx context.Context, e Event) {
		if typed, ok := e.(E); ok {
			handler(ctx, typed)
		}
	})
}

// BeforeEngineExecution is published once per run, before any phase starts.
type BeforeEngineExecution struct {
	RunID     uuid.UUID
	Pipelines []string
}

func (*BeforeEngineExecution) EventType() string { return EventBeforeEngineExecution }

// AfterEngineExecution is published once per run after every phase finished.
type AfterEngineExecution struct {
	RunID  uuid.UUID
	Result *Result
}

func (*AfterEngineExecution) EventType() string { return EventAfterEngineExecution }

// BeforePhaseExecution is published before a node runs its modules.
type BeforePhaseExecution struct {
	RunID    uuid.UUID
	Pipeline string
	Phase    Phase
	Inputs   []document.Document
}

func (*BeforePhaseExecution) EventType() string { return EventBeforePhaseExecution }

// AfterPhaseExecution is published after a node ran its modules, whether or
// not it succeeded.
type AfterPhaseExecution struct {
	RunID    uuid.UUID
	Pipeline string
	Phase    Phase
	Outputs  []document.Document
	Duration time.Duration
	Err      error
}

func (*AfterPhaseExecution) EventType() string { return EventAfterPhaseExecution }

// BeforeModuleExecution is published before each module invocation. A
// handler calling OverrideOutputs prevents the module from running; the
// overriding documents are used as its output.
type BeforeModuleExecution struct {
	Context ExecutionContext
	Module  Module
	Inputs  []document.Document

	overridden bool
	outputs    []document.Document
}

func (*BeforeModuleExecution) EventType() string { return EventBeforeModuleExecution }

// OverrideOutputs skips the module and uses docs as its output. The last
// call wins.
func (e *BeforeModuleExecution) OverrideOutputs(docs []document.Document) {
	e.overridden = true
	e.outputs = docs
}

// Overridden reports whether a handler called OverrideOutputs.
func (e *BeforeModuleExecution) Overridden() bool { return e.overridden }

// AfterModuleExecution is published after each module invocation, including
// ones skipped by a before override. A handler calling OverrideOutputs
// replaces the recorded output.
type AfterModuleExecution struct {
	Context  ExecutionContext
	Module   Module
	Inputs   []document.Document
	Outputs  []document.Document
	Duration time.Duration

	overridden bool
	outputs    []document.Document
}

func (*AfterModuleExecution) EventType() string { return EventAfterModuleExecution }

// OverrideOutputs replaces the module's recorded output. The last call wins.
func (e *AfterModuleExecution) OverrideOutputs(docs []document.Document) {
	e.overridden = true
	e.outputs = docs
}

// Overridden reports whether a handler called OverrideOutputs.
func (e *AfterModuleExecution) Overridden() bool { return e.overridden }
