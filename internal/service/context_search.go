package service

import (
	"context"
	"strings"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/openai"
	"github.com/florianreyes/shipba-rag/internal/telemetry"
	"go.uber.org/zap"
)

const (
	maxCuratedMatches              = 5
	defaultCuratorSummaryMaxChars  = 400
	defaultCuratorMaxContextTokens = 100000
	contextBlockSeparator          = "\n"
)

// CandidateSource lists the profiles a workspace search may return.
type CandidateSource interface {
	ListEligibleProfiles(ctx context.Context, workspaceID string) ([]*domain.Profile, error)
}

type curatorMatch struct {
	UserID         string   `json:"userId"`
	Name           string   `json:"name"`
	Content        string   `json:"content"`
	ContentSummary string   `json:"contentSummary" description:"1-3 oraciones en español sobre cómo se relaciona con la consulta"`
	Keywords       []string `json:"keywords" description:"5 palabras clave de una sola palabra, en español"`
	MatchReason    string   `json:"matchReason"`
}

type curatorOutput struct {
	Matches []curatorMatch `json:"matches"`
}

// ContextSearchConfig holds the tunables of the curator.
type ContextSearchConfig struct {
	SummaryMaxChars  int
	MaxContextTokens int
}

// ContextSearch hands every eligible profile of a workspace to one
// structured LLM call and keeps the matches it returns.
type ContextSearch struct {
	candidates CandidateSource
	llm        LLMClient
	tokens     TokenCounter
	cfg        ContextSearchConfig
	logger     *zap.Logger
}

func NewContextSearch(candidates CandidateSource, llm LLMClient, tokens TokenCounter, cfg ContextSearchConfig, logger *zap.Logger) *ContextSearch {
	if cfg.SummaryMaxChars <= 0 {
		cfg.SummaryMaxChars = defaultCuratorSummaryMaxChars
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = defaultCuratorMaxContextTokens
	}
	if tokens == nil {
		tokens = ApproxTokenCounter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextSearch{
		candidates: candidates,
		llm:        llm,
		tokens:     tokens,
		cfg:        cfg,
		logger:     logger,
	}
}

// Search returns at most five strictly relevant members of workspaceID.
// An empty pool is not an error.
func (s *ContextSearch) Search(ctx context.Context, query, workspaceID string) ([]domain.CandidateMatch, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.context", telemetry.SpanAttributes{
		WorkspaceID: workspaceID,
		Operation:   "context_search",
	})
	defer span.End()

	profiles, err := s.candidates.ListEligibleProfiles(ctx, workspaceID)
	if err != nil {
		span.SetError(err)
		return nil, &stageError{stage: "load_candidates", err: err}
	}

	included := s.fitBudget(profiles, workspaceID)
	if len(included) == 0 {
		return []domain.CandidateMatch{}, nil
	}

	var out curatorOutput
	err = s.llm.CompleteStructured(ctx, openai.ChatRequest{
		System: curatorSystemPrompt,
		User:   curatorUserPrompt(query, BuildContext(included)),
	}, "profile_matches", &out)
	if err != nil {
		span.SetError(err)
		return nil, &stageError{stage: "curate", err: err}
	}

	return s.assemble(out.Matches, included, workspaceID), nil
}

// fitBudget keeps profiles in load order until the context budget is spent.
func (s *ContextSearch) fitBudget(profiles []*domain.Profile, workspaceID string) []*domain.Profile {
	included := make([]*domain.Profile, 0, len(profiles))
	used := s.tokens.CountTokens(curatorSystemPrompt)
	for i, p := range profiles {
		if !p.HasContent() {
			continue
		}
		cost := s.tokens.CountTokens(formatProfileBlock(p) + contextBlockSeparator)
		if used+cost > s.cfg.MaxContextTokens {
			s.logger.Warn("curator context budget exceeded, omitting profiles",
				zap.String("workspace_id", workspaceID),
				zap.Int("omitted", len(profiles)-i),
				zap.Int("included", len(included)),
				zap.Int("budget_tokens", s.cfg.MaxContextTokens),
			)
			break
		}
		used += cost
		included = append(included, p)
	}
	return included
}

// assemble trusts the model only for summary, keywords and reason. Matches
// with unknown IDs are discarded and repeated IDs collapse to the first.
func (s *ContextSearch) assemble(raw []curatorMatch, pool []*domain.Profile, workspaceID string) []domain.CandidateMatch {
	byID := make(map[string]*domain.Profile, len(pool))
	for _, p := range pool {
		byID[p.ID] = p
	}

	matches := make([]domain.CandidateMatch, 0, maxCuratedMatches)
	seen := make(map[string]struct{}, len(raw))
	unknown := 0
	for _, m := range raw {
		if len(matches) >= maxCuratedMatches {
			break
		}
		id := strings.TrimSpace(m.UserID)
		p, ok := byID[id]
		if !ok {
			unknown++
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		matches = append(matches, canonicalMatch(
			p,
			TruncateText(strings.TrimSpace(m.ContentSummary), s.cfg.SummaryMaxChars),
			SanitizeKeywords(m.Keywords, domain.MaxKeywords),
			strings.TrimSpace(m.MatchReason),
		))
	}

	if unknown > 0 {
		s.logger.Warn("curator returned unknown profile IDs", zap.Int("count", unknown), zap.String("workspace_id", workspaceID))
	}
	return matches
}

// BuildContext renders profiles as the context block given to the curator.
func BuildContext(profiles []*domain.Profile) string {
	blocks := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if !p.HasContent() {
			continue
		}
		blocks = append(blocks, formatProfileBlock(p))
	}
	return strings.Join(blocks, contextBlockSeparator)
}

func formatProfileBlock(p *domain.Profile) string {
	var b strings.Builder
	b.WriteString("USER_ID: ")
	b.WriteString(p.ID)
	b.WriteString("\nNAME: ")
	b.WriteString(p.DisplayName())
	b.WriteString("\nCONTENT: ")
	b.WriteString(p.Content)
	if social := formatSocial(p.Social); social != "" {
		b.WriteString("\nSOCIAL: ")
		b.WriteString(social)
	}
	b.WriteString("\n---\n")
	return b.String()
}

func formatSocial(s domain.SocialHandles) string {
	var parts []string
	if s.X != "" {
		parts = append(parts, "X: "+s.X)
	}
	if s.Telegram != "" {
		parts = append(parts, "Telegram: "+s.Telegram)
	}
	if s.Instagram != "" {
		parts = append(parts, "Instagram: "+s.Instagram)
	}
	return strings.Join(parts, ", ")
}
