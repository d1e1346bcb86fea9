package domain

import (
	"fmt"
	"time"
)

// Workspace scopes which profiles are visible to each other in search.
type Workspace struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// NewWorkspace creates a new Workspace instance
func NewWorkspace(id, name, description string, createdAt time.Time) *Workspace {
	return &Workspace{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   createdAt,
	}
}

// ValidateWorkspace validates a Workspace instance
func ValidateWorkspace(w *Workspace) error {
	if w == nil {
		return fmt.Errorf("workspace cannot be nil")
	}

	if w.ID == "" {
		return fmt.Errorf("workspace ID is required")
	}

	if w.Name == "" {
		return fmt.Errorf("workspace Name is required")
	}

	return nil
}

// MembershipStatus is the state of a profile inside a workspace.
type MembershipStatus string

const (
	MembershipStatusActive   MembershipStatus = "active"
	MembershipStatusAdmin    MembershipStatus = "admin"
	MembershipStatusInvited  MembershipStatus = "invited"
	MembershipStatusRejected MembershipStatus = "rejected"
)

// EligibleStatuses are the statuses whose members appear in search results.
var EligibleStatuses = []MembershipStatus{MembershipStatusActive, MembershipStatusAdmin}

// IsValid checks if the MembershipStatus is valid
func (s MembershipStatus) IsValid() bool {
	switch s {
	case MembershipStatusActive, MembershipStatusAdmin, MembershipStatusInvited, MembershipStatusRejected:
		return true
	}
	return false
}

// IsEligible reports whether members with this status are searchable and may search.
func (s MembershipStatus) IsEligible() bool {
	return s == MembershipStatusActive || s == MembershipStatusAdmin
}

// ParseMembershipStatus parses a string into a MembershipStatus
func ParseMembershipStatus(s string) (MembershipStatus, error) {
	status := MembershipStatus(s)
	if !status.IsValid() {
		return "", ErrInvalidMemberStatus
	}
	return status, nil
}

// Membership links a profile to a workspace.
type Membership struct {
	ID          string
	WorkspaceID string
	ProfileID   string
	Status      MembershipStatus
	CreatedAt   time.Time
}

// ValidateMembership validates a Membership instance
func ValidateMembership(m *Membership) error {
	if m == nil {
		return fmt.Errorf("membership cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("membership ID is required")
	}

	if m.WorkspaceID == "" {
		return fmt.Errorf("membership WorkspaceID is required")
	}

	if m.ProfileID == "" {
		return fmt.Errorf("membership ProfileID is required")
	}

	if !m.Status.IsValid() {
		return ErrInvalidMemberStatus
	}

	return nil
}
