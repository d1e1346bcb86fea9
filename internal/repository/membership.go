package repository

import (
	"context"
	"errors"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemberRow is a membership joined with the member's profile, for listings.
type MemberRow struct {
	ProfileID string
	Name      string
	Mail      string
	Status    domain.MembershipStatus
}

type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workspace_members (id, workspace_id, profile_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.WorkspaceID, m.ProfileID, string(m.Status), m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrMembershipAlreadyExists
	}
	return err
}

func (r *MembershipRepository) UpdateStatus(ctx context.Context, workspaceID, profileID string, status domain.MembershipStatus) error {
	if !validID(workspaceID) || !validID(profileID) {
		return domain.ErrMembershipNotFound
	}
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE workspace_members SET status = $1 WHERE workspace_id = $2 AND profile_id = $3`,
		string(status), workspaceID, profileID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

func (r *MembershipRepository) GetStatus(ctx context.Context, workspaceID, profileID string) (domain.MembershipStatus, error) {
	if !validID(workspaceID) || !validID(profileID) {
		return "", domain.ErrMembershipNotFound
	}
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM workspace_members WHERE workspace_id = $1 AND profile_id = $2`,
		workspaceID, profileID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrMembershipNotFound
		}
		return "", err
	}
	return domain.MembershipStatus(status), nil
}

// ListEligibleWorkspaceIDs returns the workspaces where profileID is active or admin.
func (r *MembershipRepository) ListEligibleWorkspaceIDs(ctx context.Context, profileID string) ([]string, error) {
	if !validID(profileID) {
		return []string{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT workspace_id FROM workspace_members
		 WHERE profile_id = $1 AND status IN ('active', 'admin')
		 ORDER BY created_at`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MembershipRepository) ListMembers(ctx context.Context, workspaceID string) ([]MemberRow, error) {
	if !validID(workspaceID) {
		return nil, domain.ErrWorkspaceNotFound
	}
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.mail, wm.status
		 FROM workspace_members wm
		 JOIN profiles p ON p.id = wm.profile_id
		 WHERE wm.workspace_id = $1
		 ORDER BY wm.created_at`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []MemberRow
	for rows.Next() {
		var m MemberRow
		var status string
		if err := rows.Scan(&m.ProfileID, &m.Name, &m.Mail, &status); err != nil {
			return nil, err
		}
		m.Status = domain.MembershipStatus(status)
		members = append(members, m)
	}
	return members, rows.Err()
}
