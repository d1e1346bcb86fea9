package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkspace(t *testing.T) {
	now := time.Now()
	ws := NewWorkspace("ws1", "Shipba BA", "builders in Buenos Aires", now)

	assert.Equal(t, "ws1", ws.ID)
	assert.Equal(t, "Shipba BA", ws.Name)
	assert.Equal(t, "builders in Buenos Aires", ws.Description)
	assert.Equal(t, now, ws.CreatedAt)
}

func TestValidateWorkspace(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		ws      *Workspace
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid workspace",
			ws:      &Workspace{ID: "ws1", Name: "Shipba", CreatedAt: now},
			wantErr: false,
		},
		{
			name:    "missing ID",
			ws:      &Workspace{Name: "Shipba", CreatedAt: now},
			wantErr: true,
			errMsg:  "ID",
		},
		{
			name:    "missing Name",
			ws:      &Workspace{ID: "ws1", CreatedAt: now},
			wantErr: true,
			errMsg:  "Name",
		},
		{
			name:    "nil workspace",
			ws:      nil,
			wantErr: true,
			errMsg:  "nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWorkspace(tt.ws)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMembershipStatus(t *testing.T) {
	tests := []struct {
		status   MembershipStatus
		valid    bool
		eligible bool
	}{
		{MembershipStatusActive, true, true},
		{MembershipStatusAdmin, true, true},
		{MembershipStatusInvited, true, false},
		{MembershipStatusRejected, true, false},
		{MembershipStatus("banned"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.IsValid())
			assert.Equal(t, tt.eligible, tt.status.IsEligible())
		})
	}
}

func TestParseMembershipStatus(t *testing.T) {
	status, err := ParseMembershipStatus("admin")
	require.NoError(t, err)
	assert.Equal(t, MembershipStatusAdmin, status)

	_, err = ParseMembershipStatus("owner")
	assert.ErrorIs(t, err, ErrInvalidMemberStatus)
}

func TestValidateMembership(t *testing.T) {
	valid := &Membership{ID: "m1", WorkspaceID: "ws1", ProfileID: "p1", Status: MembershipStatusActive}
	assert.NoError(t, ValidateMembership(valid))

	missingWorkspace := &Membership{ID: "m1", ProfileID: "p1", Status: MembershipStatusActive}
	err := ValidateMembership(missingWorkspace)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WorkspaceID")

	badStatus := &Membership{ID: "m1", WorkspaceID: "ws1", ProfileID: "p1", Status: "owner"}
	assert.ErrorIs(t, ValidateMembership(badStatus), ErrInvalidMemberStatus)
}
