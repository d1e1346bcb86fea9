package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const apiKeyColumns = `id, profile_id, name, key_hash, created_at, revoked_at`

type APIKeyPageResult = pagination.Page[*domain.APIKey]

type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_keys (`+apiKeyColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.ProfileID, key.Name, key.KeyHash, key.CreatedAt, key.RevokedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAPIKeyAlreadyExists
	}
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	if !validID(id) {
		return nil, domain.ErrAPIKeyNotFound
	}
	return r.getOne(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
}

// GetByHash looks a key up by the SHA-256 hex of its token.
func (r *APIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	return r.getOne(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, hash)
}

func (r *APIKeyRepository) GetByProfileID(ctx context.Context, profileID string) ([]*domain.APIKey, error) {
	if !validID(profileID) {
		return []*domain.APIKey{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE profile_id = $1 ORDER BY created_at DESC, id DESC`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAPIKeyRows(rows)
}

// ListByProfileWithCursor pages through a profile's keys, newest first.
// Revoked keys are included.
func (r *APIKeyRepository) ListByProfileWithCursor(ctx context.Context, profileID string, cursor *pagination.Cursor, limit int) (*APIKeyPageResult, error) {
	if !validID(profileID) {
		return &APIKeyPageResult{Items: []*domain.APIKey{}}, nil
	}
	limit = pagination.Limit(limit)

	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE profile_id = $1`
	args := []any{profileID}
	if cursor != nil {
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, cursor.Timestamp, cursor.LastID)
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys, err := scanAPIKeyRows(rows)
	if err != nil {
		return nil, err
	}
	return pagination.Trim(keys, limit, func(k *domain.APIKey) (string, time.Time) { return k.ID, k.CreatedAt }), nil
}

// Revoke stamps revoked_at on an active key. Revoking twice is a miss.
func (r *APIKeyRepository) Revoke(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrAPIKeyNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

func (r *APIKeyRepository) getOne(ctx context.Context, query string, arg any) (*domain.APIKey, error) {
	key, err := scanAPIKey(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAPIKeyNotFound
	}
	return key, err
}

func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	var k domain.APIKey
	if err := row.Scan(&k.ID, &k.ProfileID, &k.Name, &k.KeyHash, &k.CreatedAt, &k.RevokedAt); err != nil {
		return nil, err
	}
	return &k, nil
}

func scanAPIKeyRows(rows pgx.Rows) ([]*domain.APIKey, error) {
	keys := []*domain.APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
