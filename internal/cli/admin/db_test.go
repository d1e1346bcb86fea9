package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWorkspaceFinder struct {
	mock.Mock
}

func (m *mockWorkspaceFinder) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *mockWorkspaceFinder) GetByName(ctx context.Context, name string) (*domain.Workspace, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

type mockProfileFinder struct {
	mock.Mock
}

func (m *mockProfileFinder) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileFinder) GetByMail(ctx context.Context, mail string) (*domain.Profile, error) {
	args := m.Called(ctx, mail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

const wsID = "6f1c1c52-7c55-4c8e-9a3e-0a4a8d3c2b10"

func TestResolveWorkspaceID(t *testing.T) {
	ctx := context.Background()

	t.Run("by id", func(t *testing.T) {
		repo := new(mockWorkspaceFinder)
		repo.On("GetByID", ctx, wsID).Return(&domain.Workspace{ID: wsID}, nil)

		id, err := resolveWorkspaceID(ctx, repo, wsID)
		require.NoError(t, err)
		assert.Equal(t, wsID, id)
		repo.AssertNotCalled(t, "GetByName", mock.Anything, mock.Anything)
	})

	t.Run("by name", func(t *testing.T) {
		repo := new(mockWorkspaceFinder)
		repo.On("GetByName", ctx, "shipba").Return(&domain.Workspace{ID: wsID, Name: "shipba"}, nil)

		id, err := resolveWorkspaceID(ctx, repo, "shipba")
		require.NoError(t, err)
		assert.Equal(t, wsID, id)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(mockWorkspaceFinder)
		repo.On("GetByName", ctx, "nope").Return(nil, domain.ErrWorkspaceNotFound)

		_, err := resolveWorkspaceID(ctx, repo, "nope")
		assert.EqualError(t, err, "workspace not found: nope")
	})

	t.Run("store failure", func(t *testing.T) {
		repo := new(mockWorkspaceFinder)
		dbErr := errors.New("conn refused")
		repo.On("GetByName", ctx, "shipba").Return(nil, dbErr)

		_, err := resolveWorkspaceID(ctx, repo, "shipba")
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestResolveProfileID(t *testing.T) {
	ctx := context.Background()

	t.Run("by mail", func(t *testing.T) {
		repo := new(mockProfileFinder)
		repo.On("GetByMail", ctx, "ana@shipba.dev").Return(&domain.Profile{ID: "p-1"}, nil)

		id, err := resolveProfileID(ctx, repo, "ana@shipba.dev")
		require.NoError(t, err)
		assert.Equal(t, "p-1", id)
	})

	t.Run("by id", func(t *testing.T) {
		repo := new(mockProfileFinder)
		repo.On("GetByID", ctx, "p-1").Return(&domain.Profile{ID: "p-1"}, nil)

		id, err := resolveProfileID(ctx, repo, "p-1")
		require.NoError(t, err)
		assert.Equal(t, "p-1", id)
		repo.AssertNotCalled(t, "GetByMail", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(mockProfileFinder)
		repo.On("GetByID", ctx, "ghost").Return(nil, domain.ErrProfileNotFound)

		_, err := resolveProfileID(ctx, repo, "ghost")
		assert.EqualError(t, err, "profile not found: ghost")
	})
}
