package progress

// EventKind tags what a classified line means.
type EventKind int

const (
	EventLog EventKind = iota
	EventTotalKnown
	EventItemBoundary
	EventLabel
	EventItemSucceeded
	EventItemFailed
)

func (k EventKind) String() string {
	switch k {
	case EventTotalKnown:
		return "total_known"
	case EventItemBoundary:
		return "item_boundary"
	case EventLabel:
		return "label"
	case EventItemSucceeded:
		return "item_succeeded"
	case EventItemFailed:
		return "item_failed"
	default:
		return "log"
	}
}

// Event is one classified fact. Index and Total are set for boundaries,
// Total alone for TotalKnown, Text for labels, failures and plain log lines.
type Event struct {
	Kind  EventKind
	Index int
	Total int
	Text  string
}

// Classifier maps a raw output line to events. Implementations must be pure.
type Classifier interface {
	Classify(line string) []Event
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(line string) []Event

func (f ClassifierFunc) Classify(line string) []Event { return f(line) }
