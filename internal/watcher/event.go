package watcher

import "time"

// EventType represents the type of file system event
type EventType int

const (
	// EventCreated is emitted when a file or directory appears
	EventCreated EventType = iota
	// EventModified is emitted when an existing file is written
	EventModified
	// EventRemoved is emitted when a path is deleted
	EventRemoved
	// EventRenamed is emitted for the old name of a moved path
	EventRenamed
)

// String returns the string representation of the event type
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// merge folds a later event type into an earlier one for the same path.
// A path created and then written is still new; anything followed by a
// removal or rename is gone.
func (t EventType) merge(later EventType) EventType {
	if t == EventCreated && later == EventModified {
		return EventCreated
	}
	return later
}

// Event is a settled change to one path.
type Event struct {
	Type  EventType
	Path  string
	IsDir bool
	// Time is when the last underlying notification for Path arrived.
	Time time.Time
}
