package core

import "fmt"

// EventType represents the type of change observed in the local store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
)

// Event represents a content change observed in the local store.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

// String implements fmt.Stringer so events can flow through generic
// lifecycle sources.
func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}
