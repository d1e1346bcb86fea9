package service

import (
	"context"
	"errors"
	"testing"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type workspaceFixture struct {
	workspaces *MockWorkspaceRepository
	members    *MockMembershipRepository
	profiles   *MockProfileRepository
	svc        *WorkspaceService
}

func newWorkspaceFixture(uuids ...string) *workspaceFixture {
	f := &workspaceFixture{
		workspaces: new(MockWorkspaceRepository),
		members:    new(MockMembershipRepository),
		profiles:   new(MockProfileRepository),
	}
	f.svc = NewWorkspaceService(f.workspaces, f.members, f.profiles, NewMockUUIDGenerator(uuids...))
	return f
}

func TestWorkspaceService_CreateWorkspace(t *testing.T) {
	f := newWorkspaceFixture("ws-1")
	ctx := context.Background()

	f.workspaces.On("GetByName", ctx, "Shipba").Return(nil, domain.ErrWorkspaceNotFound)
	f.workspaces.On("Create", ctx, mock.AnythingOfType("*domain.Workspace")).Return(nil)

	ws, err := f.svc.CreateWorkspace(ctx, "  Shipba ", "comunidad")
	require.NoError(t, err)
	assert.Equal(t, "ws-1", ws.ID)
	assert.Equal(t, "Shipba", ws.Name)
	assert.Equal(t, "comunidad", ws.Description)
	f.workspaces.AssertExpectations(t)
}

func TestWorkspaceService_CreateWorkspace_Duplicate(t *testing.T) {
	f := newWorkspaceFixture()
	ctx := context.Background()

	f.workspaces.On("GetByName", ctx, "Shipba").Return(&domain.Workspace{ID: "ws-1", Name: "Shipba"}, nil)

	_, err := f.svc.CreateWorkspace(ctx, "Shipba", "")
	assert.ErrorIs(t, err, domain.ErrWorkspaceAlreadyExists)
}

func TestWorkspaceService_CreateWorkspace_EmptyName(t *testing.T) {
	f := newWorkspaceFixture()

	_, err := f.svc.CreateWorkspace(context.Background(), "  ", "")
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}

func TestWorkspaceService_AddMember(t *testing.T) {
	f := newWorkspaceFixture("membership-1")
	ctx := context.Background()

	f.workspaces.On("GetByID", ctx, "ws-1").Return(&domain.Workspace{ID: "ws-1", Name: "Shipba"}, nil)
	f.profiles.On("GetByID", ctx, "profile-1").Return(testProfile("profile-1", "Ana", ""), nil)
	f.members.On("GetStatus", ctx, "ws-1", "profile-1").Return(domain.MembershipStatus(""), domain.ErrMembershipNotFound)
	f.members.On("Create", ctx, mock.MatchedBy(func(m *domain.Membership) bool {
		return m.ID == "membership-1" && m.Status == domain.MembershipStatusInvited
	})).Return(nil)

	m, err := f.svc.AddMember(ctx, "ws-1", "profile-1", domain.MembershipStatusInvited)
	require.NoError(t, err)
	assert.Equal(t, "ws-1", m.WorkspaceID)
	assert.Equal(t, "profile-1", m.ProfileID)
	f.members.AssertExpectations(t)
}

func TestWorkspaceService_AddMember_AlreadyMember(t *testing.T) {
	f := newWorkspaceFixture()
	ctx := context.Background()

	f.workspaces.On("GetByID", ctx, "ws-1").Return(&domain.Workspace{ID: "ws-1", Name: "Shipba"}, nil)
	f.profiles.On("GetByID", ctx, "profile-1").Return(testProfile("profile-1", "Ana", ""), nil)
	f.members.On("GetStatus", ctx, "ws-1", "profile-1").Return(domain.MembershipStatusActive, nil)

	_, err := f.svc.AddMember(ctx, "ws-1", "profile-1", domain.MembershipStatusActive)
	assert.ErrorIs(t, err, domain.ErrMembershipAlreadyExists)
}

func TestWorkspaceService_AddMember_InvalidStatus(t *testing.T) {
	f := newWorkspaceFixture()

	_, err := f.svc.AddMember(context.Background(), "ws-1", "profile-1", "owner")
	assert.ErrorIs(t, err, domain.ErrInvalidMemberStatus)
}

func TestWorkspaceService_AddMember_UnknownProfile(t *testing.T) {
	f := newWorkspaceFixture()
	ctx := context.Background()

	f.workspaces.On("GetByID", ctx, "ws-1").Return(&domain.Workspace{ID: "ws-1", Name: "Shipba"}, nil)
	f.profiles.On("GetByID", ctx, "missing").Return(nil, domain.ErrProfileNotFound)

	_, err := f.svc.AddMember(ctx, "ws-1", "missing", domain.MembershipStatusActive)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestWorkspaceService_SetMemberStatus(t *testing.T) {
	f := newWorkspaceFixture()
	ctx := context.Background()

	f.members.On("UpdateStatus", ctx, "ws-1", "profile-1", domain.MembershipStatusRejected).Return(nil)

	require.NoError(t, f.svc.SetMemberStatus(ctx, "ws-1", "profile-1", domain.MembershipStatusRejected))
	assert.ErrorIs(t, f.svc.SetMemberStatus(ctx, "ws-1", "profile-1", "banned"), domain.ErrInvalidMemberStatus)
	f.members.AssertExpectations(t)
}

func TestWorkspaceService_ResolveScope(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		requested string
		setup     func(m *MockMembershipRepository)
		want      string
		wantErr   error
	}{
		{
			name:      "requested workspace as active member",
			requested: "ws-1",
			setup: func(m *MockMembershipRepository) {
				m.On("GetStatus", ctx, "ws-1", "profile-1").Return(domain.MembershipStatusActive, nil)
			},
			want: "ws-1",
		},
		{
			name:      "requested workspace as admin",
			requested: " ws-1 ",
			setup: func(m *MockMembershipRepository) {
				m.On("GetStatus", ctx, "ws-1", "profile-1").Return(domain.MembershipStatusAdmin, nil)
			},
			want: "ws-1",
		},
		{
			name:      "invited member is refused",
			requested: "ws-1",
			setup: func(m *MockMembershipRepository) {
				m.On("GetStatus", ctx, "ws-1", "profile-1").Return(domain.MembershipStatusInvited, nil)
			},
			wantErr: domain.ErrNotWorkspaceMember,
		},
		{
			name:      "non member is refused",
			requested: "ws-2",
			setup: func(m *MockMembershipRepository) {
				m.On("GetStatus", ctx, "ws-2", "profile-1").Return(domain.MembershipStatus(""), domain.ErrMembershipNotFound)
			},
			wantErr: domain.ErrNotWorkspaceMember,
		},
		{
			name: "single eligible workspace is implied",
			setup: func(m *MockMembershipRepository) {
				m.On("ListEligibleWorkspaceIDs", ctx, "profile-1").Return([]string{"ws-3"}, nil)
			},
			want: "ws-3",
		},
		{
			name: "several workspaces need an explicit choice",
			setup: func(m *MockMembershipRepository) {
				m.On("ListEligibleWorkspaceIDs", ctx, "profile-1").Return([]string{"ws-1", "ws-2"}, nil)
			},
			wantErr: domain.ErrWorkspaceRequired,
		},
		{
			name: "no workspace at all",
			setup: func(m *MockMembershipRepository) {
				m.On("ListEligibleWorkspaceIDs", ctx, "profile-1").Return([]string{}, nil)
			},
			wantErr: domain.ErrWorkspaceRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkspaceFixture()
			tt.setup(f.members)

			got, err := f.svc.ResolveScope(ctx, "profile-1", tt.requested)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkspaceService_ResolveScope_RepositoryError(t *testing.T) {
	f := newWorkspaceFixture()
	ctx := context.Background()
	dbErr := errors.New("db down")

	f.members.On("GetStatus", ctx, "ws-1", "profile-1").Return(domain.MembershipStatus(""), dbErr)

	_, err := f.svc.ResolveScope(ctx, "profile-1", "ws-1")
	assert.ErrorIs(t, err, dbErr)
}
