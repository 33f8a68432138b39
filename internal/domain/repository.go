package domain

import (
	"context"
	"time"
)

// NotificationScheduler accepts notifications for background delivery.
// Schedule must not block on network I/O.
type NotificationScheduler interface {
	Schedule(n Notification)
}

// OutcomeObserver is told about every delivery outcome. Implementations must not block.
type OutcomeObserver interface {
	ObserveOutcome(o Outcome)
}

// OutcomeJournal persists delivery outcomes for later inspection.
type OutcomeJournal interface {
	AppendOutcome(ctx context.Context, o Outcome) error
}

// OutcomeBuffer is the consumer side of the outcome journal.
type OutcomeBuffer interface {
	// ReadOutcomeBatch reads up to count new journal entries for a consumer in a group.
	// Entries that do not decode are returned in Malformed rather than skipped.
	ReadOutcomeBatch(ctx context.Context, group, consumer string, count int) (OutcomeBatch, error)

	// AcknowledgeOutcomes marks journal entries as processed by the group.
	AcknowledgeOutcomes(ctx context.Context, group string, messageIDs ...string) error

	// MoveToDLQ copies outcomes that could not be archived to the dead-letter stream.
	MoveToDLQ(ctx context.Context, outcomes []Outcome) error

	// MoveMalformedToDLQ copies undecodable journal entries to the dead-letter stream.
	MoveMalformedToDLQ(ctx context.Context, entries []MalformedEntry) error
}

// OutcomeSink is the long-term archive for delivery outcomes.
type OutcomeSink interface {
	WriteOutcomeBatch(ctx context.Context, outcomes []Outcome) error
}

// APIKeyRepository validates keys presented to the admin API.
type APIKeyRepository interface {
	IsValid(ctx context.Context, key string) (bool, error)
}

// StreamAdminRepository exposes administrative operations on the outcome journal stream.
type StreamAdminRepository interface {
	GetGroupInfo(ctx context.Context, stream string) ([]ConsumerGroupInfo, error)
	GetConsumerInfo(ctx context.Context, stream, group string) ([]ConsumerInfo, error)
	GetPendingSummary(ctx context.Context, stream, group string) (*PendingMessageSummary, error)
	GetPendingMessages(ctx context.Context, stream, group, consumer, startID string, count int64) ([]PendingMessageDetail, error)
	ClaimMessages(ctx context.Context, stream, group, consumer string, minIdleTime time.Duration, messageIDs []string) ([]Outcome, error)
	AcknowledgeMessages(ctx context.Context, stream, group string, messageIDs ...string) (int64, error)
	TrimStream(ctx context.Context, stream string, maxLen int64) (int64, error)
	RecentOutcomes(ctx context.Context, stream string, count int64) ([]Outcome, error)
}
