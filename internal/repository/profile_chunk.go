package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ProfileChunkRepository stores sentence embeddings of profile content.
type ProfileChunkRepository struct {
	db dbtx
}

func NewProfileChunkRepository(pool *pgxpool.Pool) *ProfileChunkRepository {
	return &ProfileChunkRepository{db: pool}
}

func NewProfileChunkRepositoryWithTx(tx pgx.Tx) *ProfileChunkRepository {
	return &ProfileChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a profile and inserts new ones.
// Callers run it inside a transaction so readers never see a mixed set.
func (r *ProfileChunkRepository) ReplaceChunks(ctx context.Context, profileID string, chunks []domain.ProfileChunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM profile_chunks WHERE profile_id = $1`, profileID)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		batch.Queue(
			`INSERT INTO profile_chunks (profile_id, chunk_index, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			profileID,
			c.ChunkIndex,
			c.Content,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	for range chunks {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

// ListByProfile returns a profile's chunks in index order.
func (r *ProfileChunkRepository) ListByProfile(ctx context.Context, profileID string) ([]domain.ProfileChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, profile_id, chunk_index, content, embedding, created_at
		 FROM profile_chunks WHERE profile_id = $1 ORDER BY chunk_index`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.ProfileChunk
	for rows.Next() {
		var c domain.ProfileChunk
		var id int64
		var vec pgvector.Vector
		if err := rows.Scan(&id, &c.ProfileID, &c.ChunkIndex, &c.Content, &vec, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.ID = formatChunkID(id)
		c.Embedding = vec.Slice()
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SearchSimilar returns chunks whose cosine similarity to embedding exceeds
// opts.MinSimilarity, most similar first. With a workspace set, only chunks
// of its active and admin members are considered.
func (r *ProfileChunkRepository) SearchSimilar(ctx context.Context, embedding []float32, opts service.ChunkSearchOptions) ([]domain.ChunkMatch, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 6
	}
	vec := pgvector.NewVector(embedding)

	var rows pgx.Rows
	var err error
	if opts.WorkspaceID != "" {
		if !validID(opts.WorkspaceID) {
			return []domain.ChunkMatch{}, nil
		}
		rows, err = r.db.Query(ctx,
			`SELECT pc.profile_id, pc.chunk_index, pc.content, 1 - (pc.embedding <=> $1) AS similarity
			 FROM profile_chunks pc
			 JOIN workspace_members wm ON wm.profile_id = pc.profile_id
			 WHERE wm.workspace_id = $2
			   AND wm.status IN ('active', 'admin')
			   AND 1 - (pc.embedding <=> $1) > $3
			 ORDER BY pc.embedding <=> $1
			 LIMIT $4`,
			vec, opts.WorkspaceID, opts.MinSimilarity, limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT pc.profile_id, pc.chunk_index, pc.content, 1 - (pc.embedding <=> $1) AS similarity
			 FROM profile_chunks pc
			 WHERE 1 - (pc.embedding <=> $1) > $2
			 ORDER BY pc.embedding <=> $1
			 LIMIT $3`,
			vec, opts.MinSimilarity, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []domain.ChunkMatch{}
	for rows.Next() {
		var m domain.ChunkMatch
		if err := rows.Scan(&m.ProfileID, &m.ChunkIndex, &m.Content, &m.Similarity); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func formatChunkID(id int64) string {
	return strconv.FormatInt(id, 10)
}
