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

func unitVector(hot int) []float32 {
	v := make([]float32, 1536)
	v[hot] = 1
	return v
}

func TestEmbeddingService_BuildChunks_OneChunkPerSentence(t *testing.T) {
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client)
	ctx := context.Background()

	content := "Me gusta jugar al ajedrez. Trabajo de programador"
	client.On("EmbedMany", mock.Anything, []string{"Me gusta jugar al ajedrez", "Trabajo de programador"}).
		Return([][]float32{unitVector(0), unitVector(1)}, nil)

	chunks, err := svc.BuildChunks(ctx, "profile-1", content)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Me gusta jugar al ajedrez", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, "Trabajo de programador", chunks[1].Content)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	for _, c := range chunks {
		assert.Equal(t, "profile-1", c.ProfileID)
		assert.Len(t, c.Embedding, 1536)
		assert.False(t, c.CreatedAt.IsZero())
	}
	assert.Equal(t, float32(1), chunks[1].Embedding[1])
	client.AssertExpectations(t)
}

func TestEmbeddingService_BuildChunks_EmptyContent(t *testing.T) {
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client)

	chunks, err := svc.BuildChunks(context.Background(), "profile-1", " . . ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	client.AssertNotCalled(t, "EmbedMany", mock.Anything, mock.Anything)
}

func TestEmbeddingService_BuildChunks_ProviderFailure(t *testing.T) {
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client)
	cause := errors.New("rate limited")

	client.On("EmbedMany", mock.Anything, mock.Anything).Return(nil, cause)

	chunks, err := svc.BuildChunks(context.Background(), "profile-1", "Juego al tenis.")
	require.Error(t, err)
	assert.Nil(t, chunks)
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, domain.ErrCodeEmbeddingFailure, domain.CodeOf(err))
}

func TestEmbeddingService_EmbedQuery(t *testing.T) {
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client)
	ctx := context.Background()

	client.On("EmbedOne", ctx, "quien juega al ajedrez").Return(unitVector(3), nil)

	vector, err := svc.EmbedQuery(ctx, "quien juega al ajedrez")
	require.NoError(t, err)
	assert.Equal(t, float32(1), vector[3])
}

func TestEmbeddingService_EmbedQuery_Failure(t *testing.T) {
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client)
	ctx := context.Background()

	client.On("EmbedOne", ctx, "consulta").Return(nil, errors.New("boom"))

	_, err := svc.EmbedQuery(ctx, "consulta")
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
}
