package service

import (
	"context"
	"time"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingService turns profile content into embedded chunks.
type EmbeddingService struct {
	client EmbeddingClient
	now    func() time.Time
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient) *EmbeddingService {
	return &EmbeddingService{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// BuildChunks splits content into sentences and embeds them in one batch.
// Any provider failure is returned as ErrEmbeddingFailure so callers never
// persist a partial chunk set.
func (s *EmbeddingService) BuildChunks(ctx context.Context, profileID, content string) ([]domain.ProfileChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "profile.index", telemetry.SpanAttributes{
		ProfileID: profileID,
		Operation: "embed_chunks",
	})
	defer span.End()

	sentences := SplitSentences(content)
	if len(sentences) == 0 {
		return nil, nil
	}

	vectors, err := s.client.EmbedMany(ctx, sentences)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailure, domain.ErrEmbeddingFailure.Message, err)
	}

	createdAt := s.now()
	chunks := make([]domain.ProfileChunk, len(sentences))
	for i, sentence := range sentences {
		chunks[i] = domain.ProfileChunk{
			ProfileID:  profileID,
			ChunkIndex: i,
			Content:    sentence,
			Embedding:  vectors[i],
			CreatedAt:  createdAt,
		}
	}
	return chunks, nil
}

// EmbedQuery embeds a search query.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vector, err := s.client.EmbedOne(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailure, domain.ErrEmbeddingFailure.Message, err)
	}
	return vector, nil
}
