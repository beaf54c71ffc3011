// Observer pattern surface for the orchestration core. Events use the
// CloudEvents specification so external consumers (the operator panel, the
// cloud uplink) receive a standardized envelope; delivery and ordering
// guarantees belong to the event-bus collaborator, not to this package.
package coldcore

import (
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Event type constants emitted by the orchestration core, in reverse domain
// notation per the CloudEvents convention.
const (
	// EventTypeLifecycleInitialized carries an InitSummary after InitAll.
	EventTypeLifecycleInitialized = "com.frostdyne.coldcore.lifecycle.initialized"

	// EventTypeModuleUnresponsive is emitted by the watchdog when a module
	// misses its heartbeat timeout.
	EventTypeModuleUnresponsive = "com.frostdyne.coldcore.module.unresponsive"

	// EventTypeModuleRestartExhausted is emitted by the watchdog when a
	// module used up its restart attempts and was permanently disabled.
	EventTypeModuleRestartExhausted = "com.frostdyne.coldcore.module.restart_exhausted"

	// EventTypeModuleReloaded is emitted after a successful Reload.
	EventTypeModuleReloaded = "com.frostdyne.coldcore.module.reloaded"
)

// Event sources used by the core components.
const (
	eventSourceOrchestrator = "coldcore/orchestrator"
	eventSourceWatchdog     = "coldcore/watchdog"
)

// CloudEvent is an alias for the CloudEvents event type so embedders do not
// need to import the SDK for simple observers.
type CloudEvent = cloudevents.Event

// InitSummary is the payload of EventTypeLifecycleInitialized.
type InitSummary struct {
	TotalModules   int  `json:"totalModules"`
	Initialized    int  `json:"initialized"`
	CriticalFailed bool `json:"criticalFailed"`
}

// ModuleAlert is the payload of the watchdog's unresponsive and
// restart-exhausted events.
type ModuleAlert struct {
	Module         string `json:"module"`
	Priority       string `json:"priority"`
	SilentFor      string `json:"silentFor"`
	RestartAttempt int    `json:"restartAttempt"`
}

// Observer receives events emitted by the orchestration core. Observers must
// handle events quickly; emission is fire-and-forget and an observer error is
// only logged.
type Observer interface {
	// OnEvent is called for every event the observer subscribed to.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID identifies the observer in logs.
	ObserverID() string
}

// Subject is the emission side of the observer pattern. The orchestrator and
// watchdog publish through a Subject when one is attached; without one, all
// events are silently dropped.
type Subject interface {
	// RegisterObserver subscribes an observer, optionally filtered to the
	// given event types. No filter means every event.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. Idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers delivers an event to all interested observers.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error
}

// NewEvent builds a CloudEvent with a time-ordered unique ID and the given
// JSON payload.
func NewEvent(eventType, source string, data any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(newEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	return event
}

// newEventID returns a UUIDv7, falling back to v4 if v7 generation fails.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// FunctionalObserver adapts a plain function to the Observer interface.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer that delegates to handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{id: id, handler: handler}
}

// OnEvent implements Observer.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements Observer.
func (f *FunctionalObserver) ObserverID() string { return f.id }

// EventBroker is a small in-process Subject for firmware builds that do not
// route core events through the full event bus. Delivery is synchronous on
// the emitter's control flow: the tick pass is single-threaded and events are
// best-effort, so a misbehaving observer surfaces as a logged error rather
// than a stalled pass.
type EventBroker struct {
	mu        sync.RWMutex
	logger    Logger
	observers []brokerRegistration
}

type brokerRegistration struct {
	observer   Observer
	eventTypes map[string]bool
}

// NewEventBroker creates an empty broker.
func NewEventBroker(logger Logger) *EventBroker {
	return &EventBroker{logger: logger}
}

// RegisterObserver implements Subject.
func (b *EventBroker) RegisterObserver(observer Observer, eventTypes ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var filter map[string]bool
	if len(eventTypes) > 0 {
		filter = make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			filter[t] = true
		}
	}
	b.observers = append(b.observers, brokerRegistration{observer: observer, eventTypes: filter})
	return nil
}

// UnregisterObserver implements Subject.
func (b *EventBroker) UnregisterObserver(observer Observer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.observers[:0]
	for _, reg := range b.observers {
		if reg.observer.ObserverID() != observer.ObserverID() {
			kept = append(kept, reg)
		}
	}
	b.observers = kept
	return nil
}

// NotifyObservers implements Subject.
func (b *EventBroker) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	b.mu.RLock()
	observers := make([]brokerRegistration, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	for _, reg := range observers {
		if reg.eventTypes != nil && !reg.eventTypes[event.Type()] {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil && b.logger != nil {
					b.logger.Error("Observer panicked", "observerID", reg.observer.ObserverID(), "event", event.Type(), "panic", r)
				}
			}()
			if err := reg.observer.OnEvent(ctx, event); err != nil && b.logger != nil {
				b.logger.Error("Observer error", "observerID", reg.observer.ObserverID(), "event", event.Type(), "error", err)
			}
		}()
	}
	return nil
}
