package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/florianreyes/shipba-rag/internal/api/middleware"
	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/form"
	"github.com/florianreyes/shipba-rag/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockSearchRunner struct {
	mock.Mock
}

func (m *MockSearchRunner) Search(ctx context.Context, q domain.SearchQuery) ([]domain.CandidateMatch, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CandidateMatch), args.Error(1)
}

type MockScopeResolver struct {
	mock.Mock
}

func (m *MockScopeResolver) ResolveScope(ctx context.Context, profileID, requested string) (string, error) {
	args := m.Called(ctx, profileID, requested)
	return args.String(0), args.Error(1)
}

type MockProfileManager struct {
	mock.Mock
}

func (m *MockProfileManager) Get(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileManager) Submit(ctx context.Context, in service.ProfileSubmission) (*domain.Profile, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileManager) UpdateContent(ctx context.Context, profileID, content string, social *domain.SocialHandles) (*domain.Profile, error) {
	args := m.Called(ctx, profileID, content, social)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileManager) Form() *form.Schema {
	args := m.Called()
	return args.Get(0).(*form.Schema)
}

type MockAPIKeyService struct {
	mock.Mock
}

func (m *MockAPIKeyService) CreateAPIKey(ctx context.Context, profileID, name string) (string, error) {
	args := m.Called(ctx, profileID, name)
	return args.String(0), args.Error(1)
}

func (m *MockAPIKeyService) ListAPIKeys(ctx context.Context, profileID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func requestWithProfileID(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.ProfileIDKey, "profile-1")
	return req.WithContext(ctx)
}
