package resource

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType distinguishes lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// Event represents a value lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Type   EventType
}

// Observer receives notifications about value lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is implemented by values that release state when removed.
type Dropper interface {
	Drop()
}
