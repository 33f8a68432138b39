package domain

import (
	"net/http"
	"time"
)

// Notification is a single outbound webhook call. It is owned by one delivery and discarded after.
type Notification struct {
	ID      string
	URL     string
	Header  http.Header
	Body    []byte
	HasBody bool

	// Request metadata, used for outcome logging only.
	RequestMethod string
	RequestPath   string
	RequestID     string
	ScheduledAt   time.Time
}

// DeliveryState is the terminal state of a notification.
type DeliveryState string

const (
	DeliverySucceeded DeliveryState = "succeeded"
	DeliveryFailed    DeliveryState = "failed"
)

// Outcome records the result of the single delivery attempt for a notification.
type Outcome struct {
	NotificationID string        `json:"notification_id"`
	URL            string        `json:"url"`
	State          DeliveryState `json:"state"`
	StatusCode     int           `json:"status_code,omitempty"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
	RequestMethod  string        `json:"request_method,omitempty"`
	RequestPath    string        `json:"request_path,omitempty"`
	RequestID      string        `json:"request_id,omitempty"`
	ScheduledAt    time.Time     `json:"scheduled_at"`
	CompletedAt    time.Time     `json:"completed_at"`

	StreamMessageID string `json:"-"` // Set when read back from the journal stream
}

// Succeeded reports whether the webhook answered with a 2xx status.
func (o Outcome) Succeeded() bool {
	return o.State == DeliverySucceeded
}

// MalformedEntry is a journal entry that could not be decoded into an Outcome.
type MalformedEntry struct {
	StreamMessageID string
	Payload         string
	Reason          string
}

// OutcomeBatch is one read from the outcome journal.
type OutcomeBatch struct {
	Outcomes  []Outcome
	Malformed []MalformedEntry
}

// Len is the number of journal entries in the batch, decodable or not.
func (b OutcomeBatch) Len() int { return len(b.Outcomes) + len(b.Malformed) }
