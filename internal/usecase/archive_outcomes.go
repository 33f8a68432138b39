package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/V4T54L/reqnotify/internal/domain"
)

const defaultArchiveBatchSize = 500

// ArchiveOutcomesUseCase moves journaled delivery outcomes into the long-term archive.
type ArchiveOutcomesUseCase struct {
	buffer       domain.OutcomeBuffer
	sink         domain.OutcomeSink
	logger       *slog.Logger
	group        string
	consumer     string
	batchSize    int
	retryCount   int
	retryBackoff time.Duration
}

// NewArchiveOutcomesUseCase creates a new use case for archiving outcomes.
func NewArchiveOutcomesUseCase(buffer domain.OutcomeBuffer, sink domain.OutcomeSink, logger *slog.Logger, group, consumer string, retryCount int, retryBackoff time.Duration) *ArchiveOutcomesUseCase {
	if retryCount < 1 {
		retryCount = 1
	}
	return &ArchiveOutcomesUseCase{
		buffer:       buffer,
		sink:         sink,
		logger:       logger.With("component", "outcome_archiver"),
		group:        group,
		consumer:     consumer,
		batchSize:    defaultArchiveBatchSize,
		retryCount:   retryCount,
		retryBackoff: retryBackoff,
	}
}

// ProcessBatch reads one batch from the journal, writes it to the sink and acknowledges it.
// A batch the sink keeps rejecting is moved to the DLQ and acknowledged so it does not block the group.
// Undecodable entries go straight to the DLQ. The returned count is the number of archived outcomes.
func (uc *ArchiveOutcomesUseCase) ProcessBatch(ctx context.Context) (int, error) {
	batch, err := uc.buffer.ReadOutcomeBatch(ctx, uc.group, uc.consumer, uc.batchSize)
	if err != nil {
		uc.logger.Error("failed to read outcome batch from journal", "error", err)
		return 0, err
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	uc.logger.Debug("read outcome batch from journal", "count", len(batch.Outcomes), "malformed", len(batch.Malformed))

	if err := uc.deadLetterMalformed(ctx, batch.Malformed); err != nil {
		return 0, err
	}

	outcomes := batch.Outcomes
	if len(outcomes) == 0 {
		return 0, nil
	}

	messageIDs := make([]string, len(outcomes))
	for i, o := range outcomes {
		messageIDs[i] = o.StreamMessageID
	}

	if err := uc.writeWithRetry(ctx, outcomes); err != nil {
		uc.logger.Error("failed to archive outcome batch after retries, moving to DLQ", "error", err, "count", len(outcomes))
		if dlqErr := uc.buffer.MoveToDLQ(ctx, outcomes); dlqErr != nil {
			uc.logger.Error("failed to move outcome batch to DLQ", "error", dlqErr)
			return 0, dlqErr
		}
		if ackErr := uc.buffer.AcknowledgeOutcomes(ctx, uc.group, messageIDs...); ackErr != nil {
			return 0, ackErr
		}
		return 0, err
	}

	if err := uc.buffer.AcknowledgeOutcomes(ctx, uc.group, messageIDs...); err != nil {
		// Archived but not acked: the batch is re-read and the upsert absorbs it.
		uc.logger.Error("failed to acknowledge archived outcomes", "error", err)
		return 0, err
	}

	uc.logger.Info("archived outcome batch", "count", len(outcomes))
	return len(outcomes), nil
}

// deadLetterMalformed moves entries that can never be archived to the DLQ and acks them.
// If the DLQ write fails they stay pending, where the admin API can claim or ack them.
func (uc *ArchiveOutcomesUseCase) deadLetterMalformed(ctx context.Context, entries []domain.MalformedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := uc.buffer.MoveMalformedToDLQ(ctx, entries); err != nil {
		uc.logger.Error("failed to move malformed journal entries to DLQ", "error", err, "count", len(entries))
		return err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.StreamMessageID
	}
	if err := uc.buffer.AcknowledgeOutcomes(ctx, uc.group, ids...); err != nil {
		uc.logger.Error("failed to acknowledge malformed journal entries", "error", err)
		return err
	}
	uc.logger.Warn("dead-lettered malformed journal entries", "count", len(entries))
	return nil
}

func (uc *ArchiveOutcomesUseCase) writeWithRetry(ctx context.Context, outcomes []domain.Outcome) error {
	var lastErr error
	for i := 0; i < uc.retryCount; i++ {
		if i > 0 {
			select {
			case <-time.After(uc.retryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := uc.sink.WriteOutcomeBatch(ctx, outcomes)
		if err == nil {
			return nil
		}
		lastErr = err
		uc.logger.Warn("failed to write outcome batch to archive", "attempt", i+1, "error", err)
	}
	return lastErr
}
