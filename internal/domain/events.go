package domain

// EventType names a structured dispatch or cancellation event.
type EventType string

const (
	EventDispatchAttempted     EventType = "dispatch_attempted"
	EventDispatchSucceeded     EventType = "dispatch_succeeded"
	EventDispatchFailed        EventType = "dispatch_failed"
	EventCancellationAttempted EventType = "cancellation_attempted"
	EventCancellationSucceeded EventType = "cancellation_succeeded"
	EventCancellationFailed    EventType = "cancellation_failed"
)

// Event is emitted to an EventSink.
type Event struct {
	Type      EventType
	Kind      ItemKind
	SessionID string
	ProductID int64
	Code      string
	Quantity  int
	Message   string
	Err       error
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(Event) {}
