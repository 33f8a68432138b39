package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/reqnotify/internal/domain"
)

var errNoMessageIDs = errors.New("at least one message ID is required")

// AdminRepository implements domain.StreamAdminRepository on top of the
// XINFO, XPENDING, XCLAIM, XACK, XTRIM and XREVRANGE commands.
type AdminRepository struct {
	rdb    redis.Cmdable
	logger *slog.Logger
}

// NewAdminRepository creates a new Redis admin repository.
func NewAdminRepository(rdb redis.Cmdable, logger *slog.Logger) *AdminRepository {
	return &AdminRepository{rdb: rdb, logger: logger.With("component", "redis_admin_repository")}
}

func (r *AdminRepository) GetGroupInfo(ctx context.Context, stream string) ([]domain.ConsumerGroupInfo, error) {
	infos, err := r.rdb.XInfoGroups(ctx, stream).Result()
	if err != nil {
		return nil, fmt.Errorf("xinfo groups %s: %w", stream, err)
	}

	groups := make([]domain.ConsumerGroupInfo, 0, len(infos))
	for _, info := range infos {
		groups = append(groups, domain.ConsumerGroupInfo{
			Name:            info.Name,
			Consumers:       info.Consumers,
			Pending:         info.Pending,
			LastDeliveredID: info.LastDeliveredID,
		})
	}
	return groups, nil
}

func (r *AdminRepository) GetConsumerInfo(ctx context.Context, stream, group string) ([]domain.ConsumerInfo, error) {
	infos, err := r.rdb.XInfoConsumers(ctx, stream, group).Result()
	if err != nil {
		return nil, fmt.Errorf("xinfo consumers %s/%s: %w", stream, group, err)
	}

	consumers := make([]domain.ConsumerInfo, 0, len(infos))
	for _, info := range infos {
		consumers = append(consumers, domain.ConsumerInfo{Name: info.Name, Pending: info.Pending, Idle: info.Idle})
	}
	return consumers, nil
}

func (r *AdminRepository) GetPendingSummary(ctx context.Context, stream, group string) (*domain.PendingMessageSummary, error) {
	p, err := r.rdb.XPending(ctx, stream, group).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending %s/%s: %w", stream, group, err)
	}
	return &domain.PendingMessageSummary{
		Total:          p.Count,
		FirstMessageID: p.Lower,
		LastMessageID:  p.Higher,
		ConsumerTotals: p.Consumers,
	}, nil
}

func (r *AdminRepository) GetPendingMessages(ctx context.Context, stream, group, consumer string, startID string, count int64) ([]domain.PendingMessageDetail, error) {
	entries, err := r.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		Start:    startID,
		End:      "+",
		Count:    count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending %s/%s from %s: %w", stream, group, startID, err)
	}

	details := make([]domain.PendingMessageDetail, 0, len(entries))
	for _, e := range entries {
		details = append(details, domain.PendingMessageDetail{
			ID:         e.ID,
			Consumer:   e.Consumer,
			IdleTime:   e.Idle,
			RetryCount: e.RetryCount,
		})
	}
	return details, nil
}

// ClaimMessages moves pending journal entries to consumer and returns the
// decodable ones as outcomes.
func (r *AdminRepository) ClaimMessages(ctx context.Context, stream, group, consumer string, minIdleTime time.Duration, messageIDs []string) ([]domain.Outcome, error) {
	if len(messageIDs) == 0 {
		return nil, errNoMessageIDs
	}
	msgs, err := r.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdleTime,
		Messages: messageIDs,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xclaim %s/%s: %w", stream, group, err)
	}
	return r.outcomes(msgs), nil
}

// RecentOutcomes returns the newest count outcomes, newest first.
func (r *AdminRepository) RecentOutcomes(ctx context.Context, stream string, count int64) ([]domain.Outcome, error) {
	msgs, err := r.rdb.XRevRangeN(ctx, stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange %s: %w", stream, err)
	}
	return r.outcomes(msgs), nil
}

func (r *AdminRepository) AcknowledgeMessages(ctx context.Context, stream, group string, messageIDs ...string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, errNoMessageIDs
	}
	return r.rdb.XAck(ctx, stream, group, messageIDs...).Result()
}

func (r *AdminRepository) TrimStream(ctx context.Context, stream string, maxLen int64) (int64, error) {
	return r.rdb.XTrimMaxLen(ctx, stream, maxLen).Result()
}

func (r *AdminRepository) outcomes(msgs []redis.XMessage) []domain.Outcome {
	outcomes, malformed := decodeOutcomes(r.logger, msgs)
	if len(malformed) > 0 {
		r.logger.Debug("omitting undecodable journal entries from admin view", "count", len(malformed))
	}
	return outcomes
}
