// Package session tracks summary records for one client session.
//
// A Store owns the ordered record collection and the staging area. Every
// summarization request runs in its own goroutine and reports back by record
// id; collection mutations happen under a single mutex that is never held
// across a network call.
package session

import (
	"time"
)

// Status is the per-record lifecycle state.
type Status string

const (
	// StatusPending means a summarization request for the record is in flight.
	StatusPending Status = "pending"
	// StatusDone means the last request succeeded and SummaryText holds its result.
	StatusDone Status = "done"
	// StatusError means the last request failed.
	StatusError Status = "error"
)

// FailureMessage is the user-facing notice attached to failed records.
// Transport errors are logged, never shown.
const FailureMessage = "failed to summarize"

// Record is one user-initiated summarization attempt.
type Record struct {
	ID           string
	Title        string
	OriginalText string
	SummaryText  string
	Status       Status
	// Message is FailureMessage while Status is StatusError, empty otherwise.
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time

	// gen identifies the request last issued for the record. Generations
	// are unique across the store, so a completion only applies to the
	// request that produced it, even when an id is reused after Delete.
	gen uint64
}

// Staging is the transient input area. It is not part of any record.
type Staging struct {
	Text       string
	FileName   string
	Extracting bool
}

// EventKind names a collection change.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event is delivered to observers after a mutation has been applied.
type Event struct {
	Kind   EventKind
	Record Record
}

// titleLayout mirrors the en-US locale string the clients display.
const titleLayout = "1/2/2006, 3:04:05 PM"

// FormatTitle builds the display label for a record created at t.
func FormatTitle(fileName string, t time.Time) string {
	stamp := t.Format(titleLayout)
	if fileName == "" {
		return stamp
	}
	return fileName + " - " + stamp
}
