package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/florianreyes/shipba-rag/internal/domain"
)

// WorkspaceRepositoryInterface defines the repository interface for workspace persistence
type WorkspaceRepositoryInterface interface {
	Create(ctx context.Context, w *domain.Workspace) error
	GetByID(ctx context.Context, id string) (*domain.Workspace, error)
	GetByName(ctx context.Context, name string) (*domain.Workspace, error)
}

// MembershipRepositoryInterface defines the repository interface for workspace memberships
type MembershipRepositoryInterface interface {
	Create(ctx context.Context, m *domain.Membership) error
	UpdateStatus(ctx context.Context, workspaceID, profileID string, status domain.MembershipStatus) error
	GetStatus(ctx context.Context, workspaceID, profileID string) (domain.MembershipStatus, error)
	ListEligibleWorkspaceIDs(ctx context.Context, profileID string) ([]string, error)
}

// WorkspaceService manages workspaces and decides which workspace a caller
// may search.
type WorkspaceService struct {
	workspaces WorkspaceRepositoryInterface
	members    MembershipRepositoryInterface
	profiles   ProfileGetter
	uuidGen    UUIDGenerator
}

func NewWorkspaceService(
	workspaces WorkspaceRepositoryInterface,
	members MembershipRepositoryInterface,
	profiles ProfileGetter,
	uuidGen UUIDGenerator,
) *WorkspaceService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &WorkspaceService{
		workspaces: workspaces,
		members:    members,
		profiles:   profiles,
		uuidGen:    uuidGen,
	}
}

func (s *WorkspaceService) CreateWorkspace(ctx context.Context, name, description string) (*domain.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "workspace name is required")
	}

	_, err := s.workspaces.GetByName(ctx, name)
	if err == nil {
		return nil, domain.ErrWorkspaceAlreadyExists
	}
	if !errors.Is(err, domain.ErrWorkspaceNotFound) {
		return nil, err
	}

	ws := domain.NewWorkspace(s.uuidGen.NewString(), name, strings.TrimSpace(description), time.Now().UTC())
	if err := domain.ValidateWorkspace(ws); err != nil {
		return nil, err
	}
	if err := s.workspaces.Create(ctx, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// AddMember links a profile to a workspace with the given status.
func (s *WorkspaceService) AddMember(ctx context.Context, workspaceID, profileID string, status domain.MembershipStatus) (*domain.Membership, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidMemberStatus
	}
	if _, err := s.workspaces.GetByID(ctx, workspaceID); err != nil {
		return nil, err
	}
	if _, err := s.profiles.GetByID(ctx, profileID); err != nil {
		return nil, err
	}

	_, err := s.members.GetStatus(ctx, workspaceID, profileID)
	if err == nil {
		return nil, domain.ErrMembershipAlreadyExists
	}
	if !errors.Is(err, domain.ErrMembershipNotFound) {
		return nil, err
	}

	m := &domain.Membership{
		ID:          s.uuidGen.NewString(),
		WorkspaceID: workspaceID,
		ProfileID:   profileID,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
	if err := domain.ValidateMembership(m); err != nil {
		return nil, err
	}
	if err := s.members.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetMemberStatus changes the status of an existing membership.
func (s *WorkspaceService) SetMemberStatus(ctx context.Context, workspaceID, profileID string, status domain.MembershipStatus) error {
	if !status.IsValid() {
		return domain.ErrInvalidMemberStatus
	}
	return s.members.UpdateStatus(ctx, workspaceID, profileID, status)
}

// ResolveScope returns the workspace a profile's search runs in. A requested
// workspace must have the caller as an active or admin member. With no
// request, the caller's only eligible workspace is used.
func (s *WorkspaceService) ResolveScope(ctx context.Context, profileID, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		status, err := s.members.GetStatus(ctx, requested, profileID)
		if err != nil {
			if errors.Is(err, domain.ErrMembershipNotFound) {
				return "", domain.ErrNotWorkspaceMember
			}
			return "", err
		}
		if !status.IsEligible() {
			return "", domain.ErrNotWorkspaceMember
		}
		return requested, nil
	}

	ids, err := s.members.ListEligibleWorkspaceIDs(ctx, profileID)
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", domain.ErrWorkspaceRequired
	}
	return ids[0], nil
}
