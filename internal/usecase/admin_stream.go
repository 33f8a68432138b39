package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/V4T54L/reqnotify/internal/domain"
)

const (
	defaultPendingCount = 100
	maxRecentOutcomes   = 1000
)

// ErrInvalidArgument is returned for admin requests with unusable parameters.
var ErrInvalidArgument = errors.New("invalid argument")

// AdminStreamUseCase provides inspection and maintenance of the outcome journal.
type AdminStreamUseCase struct {
	repo domain.StreamAdminRepository
}

// NewAdminStreamUseCase creates a new AdminStreamUseCase.
func NewAdminStreamUseCase(repo domain.StreamAdminRepository) *AdminStreamUseCase {
	return &AdminStreamUseCase{repo: repo}
}

func (uc *AdminStreamUseCase) GetGroupInfo(ctx context.Context, stream string) ([]domain.ConsumerGroupInfo, error) {
	return uc.repo.GetGroupInfo(ctx, stream)
}

func (uc *AdminStreamUseCase) GetConsumerInfo(ctx context.Context, stream, group string) ([]domain.ConsumerInfo, error) {
	return uc.repo.GetConsumerInfo(ctx, stream, group)
}

func (uc *AdminStreamUseCase) GetPendingSummary(ctx context.Context, stream, group string) (*domain.PendingMessageSummary, error) {
	return uc.repo.GetPendingSummary(ctx, stream, group)
}

func (uc *AdminStreamUseCase) GetPendingMessages(ctx context.Context, stream, group, consumer, startID string, count int64) ([]domain.PendingMessageDetail, error) {
	if startID == "" {
		startID = "-"
	}
	if count <= 0 {
		count = defaultPendingCount
	}
	return uc.repo.GetPendingMessages(ctx, stream, group, consumer, startID, count)
}

func (uc *AdminStreamUseCase) ClaimMessages(ctx context.Context, stream, group, consumer string, minIdleTime time.Duration, messageIDs []string) ([]domain.Outcome, error) {
	if consumer == "" || len(messageIDs) == 0 {
		return nil, ErrInvalidArgument
	}
	return uc.repo.ClaimMessages(ctx, stream, group, consumer, minIdleTime, messageIDs)
}

func (uc *AdminStreamUseCase) AcknowledgeMessages(ctx context.Context, stream, group string, messageIDs ...string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, ErrInvalidArgument
	}
	return uc.repo.AcknowledgeMessages(ctx, stream, group, messageIDs...)
}

func (uc *AdminStreamUseCase) TrimStream(ctx context.Context, stream string, maxLen int64) (int64, error) {
	if maxLen <= 0 {
		return 0, ErrInvalidArgument
	}
	return uc.repo.TrimStream(ctx, stream, maxLen)
}

// RecentOutcomes returns the newest outcomes, newest first. count is clamped to [1, 1000].
func (uc *AdminStreamUseCase) RecentOutcomes(ctx context.Context, stream string, count int64) ([]domain.Outcome, error) {
	switch {
	case count <= 0:
		count = defaultPendingCount
	case count > maxRecentOutcomes:
		count = maxRecentOutcomes
	}
	return uc.repo.RecentOutcomes(ctx, stream, count)
}
