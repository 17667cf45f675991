package events

// Event represents a structured state change emitted by the engine. Each
// typed event also renders itself into the generic attribute form the state
// manager logs.
type Event interface {
	EventType() string
}
