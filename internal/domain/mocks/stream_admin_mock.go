package mocks

import (
	"context"
	"time"

	"github.com/V4T54L/reqnotify/internal/domain"
)

// MockStreamAdminRepository is a mock implementation of domain.StreamAdminRepository.
type MockStreamAdminRepository struct {
	Groups       []domain.ConsumerGroupInfo
	Consumers    []domain.ConsumerInfo
	Summary      *domain.PendingMessageSummary
	Pending      []domain.PendingMessageDetail
	Claimed      []domain.Outcome
	Recent       []domain.Outcome
	Acked        int64
	Trimmed      int64
	Err          error
	LastStream   string
	LastCount    int64
	LastStartID  string
	LastConsumer string
}

func (m *MockStreamAdminRepository) GetGroupInfo(ctx context.Context, stream string) ([]domain.ConsumerGroupInfo, error) {
	m.LastStream = stream
	return m.Groups, m.Err
}

func (m *MockStreamAdminRepository) GetConsumerInfo(ctx context.Context, stream, group string) ([]domain.ConsumerInfo, error) {
	m.LastStream = stream
	return m.Consumers, m.Err
}

func (m *MockStreamAdminRepository) GetPendingSummary(ctx context.Context, stream, group string) (*domain.PendingMessageSummary, error) {
	m.LastStream = stream
	return m.Summary, m.Err
}

func (m *MockStreamAdminRepository) GetPendingMessages(ctx context.Context, stream, group, consumer, startID string, count int64) ([]domain.PendingMessageDetail, error) {
	m.LastStream, m.LastConsumer, m.LastStartID, m.LastCount = stream, consumer, startID, count
	return m.Pending, m.Err
}

func (m *MockStreamAdminRepository) ClaimMessages(ctx context.Context, stream, group, consumer string, minIdleTime time.Duration, messageIDs []string) ([]domain.Outcome, error) {
	m.LastStream, m.LastConsumer = stream, consumer
	return m.Claimed, m.Err
}

func (m *MockStreamAdminRepository) AcknowledgeMessages(ctx context.Context, stream, group string, messageIDs ...string) (int64, error) {
	m.LastStream = stream
	return m.Acked, m.Err
}

func (m *MockStreamAdminRepository) TrimStream(ctx context.Context, stream string, maxLen int64) (int64, error) {
	m.LastStream, m.LastCount = stream, maxLen
	return m.Trimmed, m.Err
}

func (m *MockStreamAdminRepository) RecentOutcomes(ctx context.Context, stream string, count int64) ([]domain.Outcome, error) {
	m.LastStream, m.LastCount = stream, count
	return m.Recent, m.Err
}
