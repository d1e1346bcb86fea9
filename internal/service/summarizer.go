package service

import (
	"context"
	"strings"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/openai"
	"go.uber.org/zap"
)

const (
	defaultSummaryMaxChars = 150
	rejectedReasonFallback = "el perfil no coincide con la búsqueda"
)

type summaryOutput struct {
	ShouldRender bool   `json:"shouldRender"`
	Summary      string `json:"summary"`
	Reason       string `json:"reason"`
}

// RelevanceSummarizer decides whether a candidate answers the query and
// writes the short text shown for it.
type RelevanceSummarizer struct {
	llm      LLMClient
	maxChars int
	logger   *zap.Logger
}

func NewRelevanceSummarizer(llm LLMClient, maxChars int, logger *zap.Logger) *RelevanceSummarizer {
	if maxChars <= 0 {
		maxChars = defaultSummaryMaxChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelevanceSummarizer{llm: llm, maxChars: maxChars, logger: logger}
}

// Summarize never fails. When the model call or its output cannot be used the
// candidate is kept with its raw content and flagged for review.
func (s *RelevanceSummarizer) Summarize(ctx context.Context, content, query string) domain.SummaryResult {
	var out summaryOutput
	err := s.llm.CompleteJSON(ctx, openai.ChatRequest{
		System: summarizerSystemPrompt,
		User:   summarizerUserPrompt(content, query, s.maxChars),
	}, &out)
	if err != nil {
		parseErr := domain.NewDomainErrorWithCause(
			domain.ErrCodeSummarizationParseFailure,
			domain.ErrSummarizationParseFailure.Message,
			err,
		)
		s.logger.Warn("summary unavailable, showing raw content",
			zap.String("stage", "summarize"),
			zap.String("query", query),
			zap.Error(parseErr),
		)
		return domain.SummaryResult{
			Summary:      TruncateText(content, s.maxChars),
			ShouldRender: true,
			NeedsReview:  true,
		}
	}

	result := domain.SummaryResult{
		Summary:      TruncateText(strings.TrimSpace(out.Summary), s.maxChars),
		ShouldRender: out.ShouldRender,
		Reason:       TruncateText(strings.TrimSpace(out.Reason), s.maxChars),
	}
	if result.ShouldRender && result.Summary == "" {
		result.Summary = TruncateText(content, s.maxChars)
		result.NeedsReview = true
	}
	if !result.ShouldRender && result.Reason == "" {
		result.Reason = rejectedReasonFallback
	}
	return result
}

// TruncateText cuts s to at most maxChars runes, on a word boundary when
// possible, marking the cut with "...".
func TruncateText(s string, maxChars int) string {
	runes := []rune(s)
	if maxChars <= 0 || len(runes) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(runes[:maxChars])
	}

	cut := string(runes[:maxChars-3])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
