package service

import (
	"context"
	"strings"

	"github.com/florianreyes/shipba-rag/internal/openai"
	"github.com/florianreyes/shipba-rag/internal/telemetry"
)

// maxExpansions caps the paraphrases produced for one query.
const maxExpansions = 3

type expansionOutput struct {
	Questions []string `json:"questions" description:"preguntas similares a la consulta del usuario, en tercera persona. sé conciso."`
}

// QueryExpander paraphrases a query into third-person questions that keep
// its literal scope.
type QueryExpander struct {
	llm LLMClient
}

func NewQueryExpander(llm LLMClient) *QueryExpander {
	return &QueryExpander{llm: llm}
}

// Expand returns up to three distinct paraphrases of query.
func (e *QueryExpander) Expand(ctx context.Context, query string) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.expand", telemetry.SpanAttributes{Operation: "expand"})
	defer span.End()

	var out expansionOutput
	err := e.llm.CompleteStructured(ctx, openai.ChatRequest{
		System: expansionSystemPrompt,
		User:   expansionUserPrompt(query),
	}, "query_expansion", &out)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return normalizeExpansions(out.Questions), nil
}

func normalizeExpansions(questions []string) []string {
	result := make([]string, 0, maxExpansions)
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if len(result) >= maxExpansions {
			break
		}
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, q)
	}
	return result
}
