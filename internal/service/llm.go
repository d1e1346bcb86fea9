package service

import (
	"context"

	"github.com/florianreyes/shipba-rag/internal/openai"
)

// LLMClient is the chat surface used by the search pipeline and the rewriter.
type LLMClient interface {
	CompleteText(ctx context.Context, req openai.ChatRequest) (string, error)
	CompleteStructured(ctx context.Context, req openai.ChatRequest, schemaName string, out any) error
	CompleteJSON(ctx context.Context, req openai.ChatRequest, out any) error
}
