package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/telemetry"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultVectorMinSimilarity = 0.5
	defaultVectorLimit         = 6
	defaultEnrichPoolSize      = 4
)

// ChunkSearchOptions controls one similarity search over profile chunks.
type ChunkSearchOptions struct {
	MinSimilarity float64
	Limit         int
	// WorkspaceID restricts results to eligible members when set.
	WorkspaceID string
}

// ChunkSearcher runs similarity search over profile chunks.
type ChunkSearcher interface {
	SearchSimilar(ctx context.Context, embedding []float32, opts ChunkSearchOptions) ([]domain.ChunkMatch, error)
}

// ProfileLookup loads profiles by ID.
type ProfileLookup interface {
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Profile, error)
}

// QueryEmbedder embeds search text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Expander paraphrases a query.
type Expander interface {
	Expand(ctx context.Context, query string) ([]string, error)
}

// Summarizer gates and summarizes a candidate.
type Summarizer interface {
	Summarize(ctx context.Context, content, query string) domain.SummaryResult
}

// KeywordSource tags a candidate.
type KeywordSource interface {
	Extract(ctx context.Context, content string, count int) []string
}

// VectorSearchConfig holds the tunables of the vector path.
type VectorSearchConfig struct {
	MinSimilarity float64
	Limit         int
	PoolSize      int
	KeywordCount  int
}

// VectorSearch is the embedding-based search path: expand, embed, search per
// branch, de-duplicate, then summarize and tag each candidate.
type VectorSearch struct {
	expander   Expander
	embedder   QueryEmbedder
	chunks     ChunkSearcher
	profiles   ProfileLookup
	summarizer Summarizer
	keywords   KeywordSource
	pool       *ants.Pool
	cfg        VectorSearchConfig
	logger     *zap.Logger
}

func NewVectorSearch(
	expander Expander,
	embedder QueryEmbedder,
	chunks ChunkSearcher,
	profiles ProfileLookup,
	summarizer Summarizer,
	keywords KeywordSource,
	cfg VectorSearchConfig,
	logger *zap.Logger,
) (*VectorSearch, error) {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultVectorLimit
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = defaultVectorMinSimilarity
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultEnrichPoolSize
	}
	if cfg.KeywordCount <= 0 || cfg.KeywordCount > domain.MaxKeywords {
		cfg.KeywordCount = domain.MaxKeywords
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment pool: %w", err)
	}

	return &VectorSearch{
		expander:   expander,
		embedder:   embedder,
		chunks:     chunks,
		profiles:   profiles,
		summarizer: summarizer,
		keywords:   keywords,
		pool:       pool,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Close releases the enrichment pool.
func (s *VectorSearch) Close() {
	s.pool.Release()
}

// Search returns enriched matches for query among eligible workspace members.
// Candidates keep first-seen order by branch completion, which varies between
// runs when several branches are searched.
func (s *VectorSearch) Search(ctx context.Context, query, workspaceID string) ([]domain.CandidateMatch, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.vector", telemetry.SpanAttributes{
		WorkspaceID: workspaceID,
		Operation:   "vector_search",
	})
	defer span.End()

	branches := s.branches(ctx, query)

	hits, err := s.searchBranches(ctx, branches, workspaceID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	ids := UniqueProfileIDs(hits)
	if len(ids) == 0 {
		return []domain.CandidateMatch{}, nil
	}

	stored, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		span.SetError(err)
		return nil, &stageError{stage: "load_profiles", err: err}
	}
	candidates := ResolveProfiles(ids, stored)
	if dropped := len(ids) - len(candidates); dropped > 0 {
		s.logger.Warn("dropped unresolved candidates", zap.Int("count", dropped), zap.String("workspace_id", workspaceID))
	}

	enrichments := s.enrich(ctx, candidates, query)
	// Enrichment fails open, so a deadline shows up only here.
	if err := ctx.Err(); err != nil {
		span.SetError(err)
		return nil, &stageError{stage: "enrich", err: err}
	}
	for i, e := range enrichments {
		if !e.Summary.ShouldRender {
			s.logger.Info("candidate rejected by summarizer",
				zap.String("profile_id", candidates[i].ID),
				zap.String("workspace_id", workspaceID),
				zap.String("reason", e.Summary.Reason),
			)
		}
	}
	return AssembleVectorMatches(candidates, enrichments), nil
}

func (s *VectorSearch) branches(ctx context.Context, query string) []string {
	if s.expander == nil {
		return []string{query}
	}
	expansions, err := s.expander.Expand(ctx, query)
	if err != nil {
		s.logger.Warn("query expansion failed, searching original query",
			zap.String("stage", "expand"),
			zap.String("query", query),
			zap.Error(err),
		)
		telemetry.AddBreadcrumb(ctx, "search.expand", "expansion failed, using original query")
		return []string{query}
	}
	if len(expansions) == 0 {
		return []string{query}
	}
	return expansions
}

// searchBranches embeds and searches every branch concurrently. The first
// failure cancels the rest.
func (s *VectorSearch) searchBranches(ctx context.Context, branches []string, workspaceID string) ([]domain.ChunkMatch, error) {
	var (
		mu   sync.Mutex
		hits []domain.ChunkMatch
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, branch := range branches {
		g.Go(func() error {
			vector, err := s.embedder.EmbedQuery(gctx, branch)
			if err != nil {
				return err
			}
			matches, err := s.chunks.SearchSimilar(gctx, vector, ChunkSearchOptions{
				MinSimilarity: s.cfg.MinSimilarity,
				Limit:         s.cfg.Limit,
				WorkspaceID:   workspaceID,
			})
			if err != nil {
				return &stageError{stage: "vector_search", err: err}
			}

			mu.Lock()
			hits = append(hits, matches...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hits, nil
}

// enrich summarizes and tags candidates on the shared pool. Both steps default
// locally, so enrichment never fails the search.
func (s *VectorSearch) enrich(ctx context.Context, candidates []*domain.Profile, query string) []Enrichment {
	enrichments := make([]Enrichment, len(candidates))

	var wg sync.WaitGroup
	for i, p := range candidates {
		task := func() {
			defer wg.Done()
			enrichments[i] = Enrichment{
				Summary:  s.summarizer.Summarize(ctx, p.Content, query),
				Keywords: s.keywords.Extract(ctx, p.Content, s.cfg.KeywordCount),
			}
		}

		wg.Add(1)
		if err := s.pool.Submit(task); err != nil {
			s.logger.Warn("enrichment pool unavailable, running inline", zap.Error(err))
			task()
		}
	}
	wg.Wait()

	return enrichments
}
