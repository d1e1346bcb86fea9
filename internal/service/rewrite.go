package service

import (
	"context"
	"strings"

	"github.com/florianreyes/shipba-rag/internal/openai"
	"go.uber.org/zap"
)

// ProfileRewriter turns "question: answer" form content into prose with one
// aspect per sentence, which chunks better.
type ProfileRewriter struct {
	llm    LLMClient
	logger *zap.Logger
}

func NewProfileRewriter(llm LLMClient, logger *zap.Logger) *ProfileRewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileRewriter{llm: llm, logger: logger}
}

// Rewrite returns the rewritten content, or content itself when the model
// call fails or returns nothing.
func (r *ProfileRewriter) Rewrite(ctx context.Context, content string) string {
	text, err := r.llm.CompleteText(ctx, openai.ChatRequest{
		System: rewriteSystemPrompt,
		User:   rewriteUserPrompt(content),
	})
	if err != nil {
		r.logger.Warn("profile rewrite failed, indexing raw content", zap.String("stage", "rewrite"), zap.Error(err))
		return content
	}

	text = strings.TrimSpace(text)
	if text == "" {
		r.logger.Warn("profile rewrite returned empty text, indexing raw content", zap.String("stage", "rewrite"))
		return content
	}
	return text
}
