package service

import (
	"context"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/openai"
	"github.com/stretchr/testify/mock"
)

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) CompleteText(ctx context.Context, req openai.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) CompleteStructured(ctx context.Context, req openai.ChatRequest, schemaName string, out any) error {
	args := m.Called(ctx, req, schemaName, out)
	return args.Error(0)
}

func (m *MockLLM) CompleteJSON(ctx context.Context, req openai.ChatRequest, out any) error {
	args := m.Called(ctx, req, out)
	return args.Error(0)
}

type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingClient) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockChunkBuilder struct {
	mock.Mock
}

func (m *MockChunkBuilder) BuildChunks(ctx context.Context, profileID, content string) ([]domain.ProfileChunk, error) {
	args := m.Called(ctx, profileID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProfileChunk), args.Error(1)
}

type MockProfileChunkRepository struct {
	mock.Mock
}

func (m *MockProfileChunkRepository) ReplaceChunks(ctx context.Context, profileID string, chunks []domain.ProfileChunk) error {
	args := m.Called(ctx, profileID, chunks)
	return args.Error(0)
}

type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) Create(ctx context.Context, w *domain.Workspace) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWorkspaceRepository) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) GetByName(ctx context.Context, name string) (*domain.Workspace, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Create(ctx context.Context, membership *domain.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) UpdateStatus(ctx context.Context, workspaceID, profileID string, status domain.MembershipStatus) error {
	args := m.Called(ctx, workspaceID, profileID, status)
	return args.Error(0)
}

func (m *MockMembershipRepository) GetStatus(ctx context.Context, workspaceID, profileID string) (domain.MembershipStatus, error) {
	args := m.Called(ctx, workspaceID, profileID)
	return args.Get(0).(domain.MembershipStatus), args.Error(1)
}

func (m *MockMembershipRepository) ListEligibleWorkspaceIDs(ctx context.Context, profileID string) ([]string, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockCandidateSource struct {
	mock.Mock
}

func (m *MockCandidateSource) ListEligibleProfiles(ctx context.Context, workspaceID string) ([]*domain.Profile, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Profile), args.Error(1)
}

type MockChunkSearcher struct {
	mock.Mock
}

func (m *MockChunkSearcher) SearchSimilar(ctx context.Context, embedding []float32, opts ChunkSearchOptions) ([]domain.ChunkMatch, error) {
	args := m.Called(ctx, embedding, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkMatch), args.Error(1)
}

type MockSearchLogRepository struct {
	mock.Mock
}

func (m *MockSearchLogRepository) CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

// fillOutput returns a mock Run func that copies v into the out argument at
// position idx.
func fillOutput[T any](idx int, v T) func(mock.Arguments) {
	return func(args mock.Arguments) {
		*(args.Get(idx).(*T)) = v
	}
}

func testProfile(id, name, content string) *domain.Profile {
	return &domain.Profile{
		ID:      id,
		Name:    name,
		Mail:    id + "@example.com",
		Content: content,
	}
}
