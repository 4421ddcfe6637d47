package pipeline

import "github.com/sakthis4/Alt-Text/internal/models"

// EventType discriminates progress events emitted during a run
type EventType string

const (
	// EventStarted opens a processing run
	EventStarted EventType = "started"
	// EventPage reports that a document page is being analyzed
	EventPage EventType = "page"
	// EventItem carries a newly produced item, emitted incrementally
	EventItem EventType = "item"
	// EventSummary carries the trailing natural-language summary
	EventSummary EventType = "summary"
	// EventCompleted closes a successful run
	EventCompleted EventType = "completed"
	// EventFailed closes a failed run with a human-readable message
	EventFailed EventType = "failed"
)

// Event is one entry in the run's progress stream. Consumers must
// drain the channel returned by Run until it closes.
type Event struct {
	Type    EventType
	Page    int
	Item    *models.ProcessedItem
	Message string
}
