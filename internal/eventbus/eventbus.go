package eventbus

// Event is any value carried by an untyped Bus. The formation engine
// publishes core/events values.
type Event = any

// EventBus is the untyped publish/subscribe contract used between the
// orchestrator and its observers.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus.
type Bus struct {
	*TypedBus[Event]
}

var _ EventBus = (*Bus)(nil)

// New creates a Bus.
func New(opts ...Option) *Bus {
	return &Bus{TypedBus: NewTyped[Event](opts...)}
}
