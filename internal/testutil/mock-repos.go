package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/ports/output"
)

// MockLedgerRepo is a mock of LedgerRepository.
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Load(ctx context.Context, modelName string) (*domain.VersionLedger, error) {
	args := m.Called(ctx, modelName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VersionLedger), args.Error(1)
}

func (m *MockLedgerRepo) Save(ctx context.Context, ledger *domain.VersionLedger) error {
	args := m.Called(ctx, ledger)
	return args.Error(0)
}

func (m *MockLedgerRepo) ListModels(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockArtifactRepo is a mock of ArtifactRepository.
type MockArtifactRepo struct {
	mock.Mock
}

func (m *MockArtifactRepo) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockArtifactRepo) Copy(ctx context.Context, src, dst string) error {
	args := m.Called(ctx, src, dst)
	return args.Error(0)
}

func (m *MockArtifactRepo) Read(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockTrainer is a mock of Trainer.
type MockTrainer struct {
	mock.Mock
}

func (m *MockTrainer) Train(ctx context.Context, req ports.TrainRequest) (*domain.TrainResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainResult), args.Error(1)
}

// MockRunHistoryRepo is a mock of RunHistoryRepository.
type MockRunHistoryRepo struct {
	mock.Mock
}

func (m *MockRunHistoryRepo) RecordRun(ctx context.Context, run *domain.RunResult) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunHistoryRepo) GetRun(ctx context.Context, runID uuid.UUID) (*domain.RunResult, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunResult), args.Error(1)
}

func (m *MockRunHistoryRepo) ListRuns(ctx context.Context, limit int) ([]*domain.RunResult, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RunResult), args.Error(1)
}

func (m *MockRunHistoryRepo) Close() error {
	args := m.Called()
	return args.Error(0)
}
