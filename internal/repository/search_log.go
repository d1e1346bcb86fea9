package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/florianreyes/shipba-rag/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchLogRow is a stored search log.
type SearchLogRow struct {
	ID          string
	ProfileID   string
	WorkspaceID string
	Query       string
	Mode        string
	Results     []string
	DurationMs  int
	CreatedAt   time.Time
}

// SearchLogRepository stores completed searches for later review.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	results := entry.Results
	if results == nil {
		results = []string{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to encode search results: %w", err)
	}

	var profileID *string
	if validID(entry.ProfileID) {
		profileID = &entry.ProfileID
	}

	var id string
	err = r.pool.QueryRow(ctx,
		`INSERT INTO search_logs (profile_id, workspace_id, query, mode, results, result_count, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		profileID,
		entry.WorkspaceID,
		entry.Query,
		entry.Mode,
		resultsJSON,
		len(results),
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListRecent returns the latest searches of a workspace, newest first.
func (r *SearchLogRepository) ListRecent(ctx context.Context, workspaceID string, limit int) ([]SearchLogRow, error) {
	if limit <= 0 {
		limit = 20
	}
	if !validID(workspaceID) {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, profile_id, workspace_id, query, mode, results, duration_ms, created_at
		 FROM search_logs
		 WHERE workspace_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		workspaceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []SearchLogRow
	for rows.Next() {
		var row SearchLogRow
		var profileID *string
		var results []byte
		if err := rows.Scan(&row.ID, &profileID, &row.WorkspaceID, &row.Query, &row.Mode, &results, &row.DurationMs, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.ProfileID = stringValue(profileID)
		if err := json.Unmarshal(results, &row.Results); err != nil {
			return nil, fmt.Errorf("failed to decode search results: %w", err)
		}
		logs = append(logs, row)
	}
	return logs, rows.Err()
}
