package majordome

import (
	"context"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer receives lifecycle events of the runtime as CloudEvents.
type Observer interface {
	// OnEvent is called synchronously from the emitting goroutine.
	// Observers should handle events quickly.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// Event types emitted by the runtime.
const (
	EventTypeModuleConstructed = "com.majordome.module.constructed"
	EventTypeModuleStopped     = "com.majordome.module.stopped"
	EventTypeTaskFailed        = "com.majordome.task.failed"
	EventTypeAppStarted        = "com.majordome.app.started"
	EventTypeAppExiting        = "com.majordome.app.exiting"
	EventTypeAppClosing        = "com.majordome.app.closing"
	EventTypeAppTerminated     = "com.majordome.app.terminated"
)

const eventSource = "majordome"

// FunctionalObserver adapts a function to the Observer interface.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer calling handler for every event.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent implements Observer.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements Observer.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

// observers fans events out to the registered observers. Observer failures
// are logged and never reach the emitter.
type observers struct {
	mu     sync.RWMutex
	list   []Observer
	logger Logger
}

func newObservers(logger Logger, list ...Observer) *observers {
	return &observers{list: list, logger: logger}
}

func (o *observers) emit(ctx context.Context, eventType string, data map[string]any) {
	o.mu.RLock()
	list := o.list
	o.mu.RUnlock()
	if len(list) == 0 {
		return
	}

	event := NewCloudEvent(eventType, eventSource, data, nil)
	for _, obs := range list {
		if err := obs.OnEvent(ctx, event); err != nil {
			o.logger.Debug("Observer failed to handle event", "observer", obs.ObserverID(), "eventType", eventType, "error", err)
		}
	}
}
