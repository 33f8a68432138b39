package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/reqnotify/internal/domain"
)

const payloadField = "payload"

// ErrJournalUnavailable is returned by AppendOutcome while Redis is known to be down.
var ErrJournalUnavailable = errors.New("outcome journal is unavailable")

// OutcomeRepository journals delivery outcomes to a Redis Stream and reads them back
// for archiving through a consumer group.
type OutcomeRepository struct {
	client       redis.Cmdable
	logger       *slog.Logger
	stream       string
	dlqStreamKey string
	maxLen       int64
	isAvailable  atomic.Bool
}

// NewOutcomeRepository creates a new Redis-backed outcome journal.
// maxLen <= 0 disables approximate trimming on append.
func NewOutcomeRepository(client redis.Cmdable, logger *slog.Logger, stream, dlqStreamKey string, maxLen int64) *OutcomeRepository {
	repo := &OutcomeRepository{
		client:       client,
		logger:       logger.With("component", "redis_outcome_repository"),
		stream:       stream,
		dlqStreamKey: dlqStreamKey,
		maxLen:       maxLen,
	}
	repo.isAvailable.Store(true) // Assume available initially
	return repo
}

// Stream returns the journal stream key.
func (r *OutcomeRepository) Stream() string {
	return r.stream
}

// EnsureGroup creates the consumer group (and the stream) if it does not exist yet.
func (r *OutcomeRepository) EnsureGroup(ctx context.Context, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, r.stream, group, "0").Err()
	if err != nil && !isRedisBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// StartHealthCheck pings Redis on every tick and toggles journal availability.
// While unavailable, appends fail fast instead of waiting on dead connections.
func (r *OutcomeRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping Redis health check")
			return
		case <-ticker.C:
			if err := r.client.Ping(ctx).Err(); err != nil {
				if r.isAvailable.CompareAndSwap(true, false) {
					r.logger.Error("Redis connection lost, outcome journaling paused", "error", err)
				}
			} else if r.isAvailable.CompareAndSwap(false, true) {
				r.logger.Info("Redis connection recovered, outcome journaling resumed")
			}
		}
	}
}

// AppendOutcome adds an outcome to the journal stream.
func (r *OutcomeRepository) AppendOutcome(ctx context.Context, o domain.Outcome) error {
	if !r.isAvailable.Load() {
		return ErrJournalUnavailable
	}

	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{payloadField: payload},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		if isNetworkError(err) && r.isAvailable.CompareAndSwap(true, false) {
			r.logger.Error("Redis connection lost during append", "error", err)
		}
		return fmt.Errorf("failed to XADD to redis stream: %w", err)
	}
	return nil
}

// ReadOutcomeBatch reads a batch of journal entries for a consumer group.
func (r *OutcomeRepository) ReadOutcomeBatch(ctx context.Context, group, consumer string, count int) (domain.OutcomeBatch, error) {
	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{r.stream, ">"},
		Count:    int64(count),
		Block:    2 * time.Second,
	}

	streams, err := r.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.OutcomeBatch{}, nil
		}
		return domain.OutcomeBatch{}, fmt.Errorf("failed to XREADGROUP from redis: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return domain.OutcomeBatch{}, nil
	}
	outcomes, malformed := decodeOutcomes(r.logger, streams[0].Messages)
	return domain.OutcomeBatch{Outcomes: outcomes, Malformed: malformed}, nil
}

// AcknowledgeOutcomes acknowledges processed journal entries.
func (r *OutcomeRepository) AcknowledgeOutcomes(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, r.stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK messages in redis: %w", err)
	}
	return nil
}

// MoveToDLQ copies a batch of outcomes to the dead-letter stream.
func (r *OutcomeRepository) MoveToDLQ(ctx context.Context, outcomes []domain.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, o := range outcomes {
		payload, err := json.Marshal(o)
		if err != nil {
			r.logger.Error("Failed to marshal outcome for DLQ", "notification_id", o.NotificationID, "error", err)
			continue
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.dlqStreamKey,
			Values: map[string]interface{}{
				payloadField:      payload,
				"original_stream": r.stream,
				"original_msg_id": o.StreamMessageID,
				"failed_at":       time.Now().UTC().Format(time.RFC3339),
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute DLQ pipeline: %w", err)
	}
	r.logger.Warn("Moved outcomes to DLQ", "count", len(outcomes))
	return nil
}

// MoveMalformedToDLQ copies undecodable journal entries, raw payload included, to the dead-letter stream.
func (r *OutcomeRepository) MoveMalformedToDLQ(ctx context.Context, entries []domain.MalformedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	failedAt := time.Now().UTC().Format(time.RFC3339)
	pipe := r.client.Pipeline()
	for _, e := range entries {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.dlqStreamKey,
			Values: map[string]interface{}{
				payloadField:      e.Payload,
				"original_stream": r.stream,
				"original_msg_id": e.StreamMessageID,
				"reason":          e.Reason,
				"failed_at":       failedAt,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute DLQ pipeline: %w", err)
	}
	r.logger.Warn("Moved malformed journal entries to DLQ", "count", len(entries))
	return nil
}

// decodeOutcomes splits stream messages into decoded outcomes and entries that
// cannot be decoded. Neither list drops a message ID.
func decodeOutcomes(logger *slog.Logger, messages []redis.XMessage) ([]domain.Outcome, []domain.MalformedEntry) {
	outcomes := make([]domain.Outcome, 0, len(messages))
	var malformed []domain.MalformedEntry
	for _, msg := range messages {
		raw, ok := msg.Values[payloadField]
		payload, isString := raw.(string)
		if !ok || !isString {
			logger.Warn("Invalid message format in stream", "message_id", msg.ID)
			malformed = append(malformed, domain.MalformedEntry{
				StreamMessageID: msg.ID,
				Payload:         fmt.Sprint(msg.Values),
				Reason:          "missing " + payloadField + " field",
			})
			continue
		}

		var o domain.Outcome
		if err := json.Unmarshal([]byte(payload), &o); err != nil {
			logger.Warn("Failed to unmarshal outcome from stream", "message_id", msg.ID, "error", err)
			malformed = append(malformed, domain.MalformedEntry{StreamMessageID: msg.ID, Payload: payload, Reason: err.Error()})
			continue
		}
		o.StreamMessageID = msg.ID
		outcomes = append(outcomes, o)
	}
	return outcomes, malformed
}

func isRedisBusyGroupError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed)
}
