package mocks

import (
	"context"
	"sync"

	"github.com/V4T54L/reqnotify/internal/domain"
)

// MockOutcomeRepository is a mock implementation of the outcome buffer, sink and journal interfaces.
type MockOutcomeRepository struct {
	mu               sync.Mutex
	AppendedOutcomes []domain.Outcome
	WrittenOutcomes  []domain.Outcome
	AckedMessageIDs  []string
	DLQOutcomes      []domain.Outcome
	DLQMalformed     []domain.MalformedEntry
	ReadBatchResult  []domain.Outcome
	ReadMalformed    []domain.MalformedEntry
	AppendErr        error
	ReadErr          error
	WriteErr         error
	AckErr           error
	DLQErr           error
	WriteCalls       int
}

func (m *MockOutcomeRepository) AppendOutcome(ctx context.Context, o domain.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.AppendedOutcomes = append(m.AppendedOutcomes, o)
	return nil
}

func (m *MockOutcomeRepository) ReadOutcomeBatch(ctx context.Context, group, consumer string, count int) (domain.OutcomeBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return domain.OutcomeBatch{}, m.ReadErr
	}
	return domain.OutcomeBatch{Outcomes: m.ReadBatchResult, Malformed: m.ReadMalformed}, nil
}

func (m *MockOutcomeRepository) WriteOutcomeBatch(ctx context.Context, outcomes []domain.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenOutcomes = append(m.WrittenOutcomes, outcomes...)
	return nil
}

func (m *MockOutcomeRepository) AcknowledgeOutcomes(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

func (m *MockOutcomeRepository) MoveToDLQ(ctx context.Context, outcomes []domain.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DLQErr != nil {
		return m.DLQErr
	}
	m.DLQOutcomes = append(m.DLQOutcomes, outcomes...)
	return nil
}

func (m *MockOutcomeRepository) MoveMalformedToDLQ(ctx context.Context, entries []domain.MalformedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DLQErr != nil {
		return m.DLQErr
	}
	m.DLQMalformed = append(m.DLQMalformed, entries...)
	return nil
}

// Appended returns a snapshot of the journaled outcomes.
func (m *MockOutcomeRepository) Appended() []domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Outcome(nil), m.AppendedOutcomes...)
}

// MockScheduler records scheduled notifications instead of delivering them.
type MockScheduler struct {
	mu        sync.Mutex
	Scheduled []domain.Notification
}

func (m *MockScheduler) Schedule(n domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scheduled = append(m.Scheduled, n)
}

// Notifications returns a snapshot of what has been scheduled so far.
func (m *MockScheduler) Notifications() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.Scheduled...)
}

// MockObserver collects observed outcomes.
type MockObserver struct {
	mu       sync.Mutex
	Outcomes []domain.Outcome
}

func (m *MockObserver) ObserveOutcome(o domain.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, o)
}

func (m *MockObserver) Observed() []domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Outcome(nil), m.Outcomes...)
}

// MockAPIKeyRepository validates keys against a fixed set.
type MockAPIKeyRepository struct {
	Keys map[string]bool
	Err  error
}

func (m *MockAPIKeyRepository) IsValid(ctx context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.Keys[key], nil
}
