package watcher

import "time"

// EventType is the kind of change observed in a watched directory.
type EventType int

const (
	// EventReady is emitted once a new or rewritten file stops changing.
	EventReady EventType = iota
	// EventRemoved is emitted when a file disappears.
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventReady:
		return "ready"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a settled file system change.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}
