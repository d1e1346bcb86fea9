package repository

import (
	"context"
	"errors"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WorkspaceRepository struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepository(pool *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{pool: pool}
}

func (r *WorkspaceRepository) Create(ctx context.Context, w *domain.Workspace) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workspaces (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		w.ID, w.Name, w.Description, w.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrWorkspaceAlreadyExists
	}
	return err
}

func (r *WorkspaceRepository) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	if !validID(id) {
		return nil, domain.ErrWorkspaceNotFound
	}
	return r.getOne(ctx, `SELECT id, name, description, created_at FROM workspaces WHERE id = $1`, id)
}

func (r *WorkspaceRepository) GetByName(ctx context.Context, name string) (*domain.Workspace, error) {
	return r.getOne(ctx, `SELECT id, name, description, created_at FROM workspaces WHERE name = $1`, name)
}

func (r *WorkspaceRepository) List(ctx context.Context) ([]*domain.Workspace, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at FROM workspaces ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, &w)
	}
	return workspaces, rows.Err()
}

func (r *WorkspaceRepository) getOne(ctx context.Context, query string, arg any) (*domain.Workspace, error) {
	var w domain.Workspace
	err := r.pool.QueryRow(ctx, query, arg).Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, err
	}
	return &w, nil
}
