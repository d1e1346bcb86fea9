package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/telemetry"
	"go.uber.org/zap"
)

const defaultSearchTimeout = 30 * time.Second

// SearchPath is one way of turning a query into matches.
type SearchPath interface {
	Search(ctx context.Context, query, workspaceID string) ([]domain.CandidateMatch, error)
}

// stageError records which pipeline step failed.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return e.stage + ": " + e.err.Error()
}

func (e *stageError) Unwrap() error {
	return e.err
}

// SearchService validates queries, bounds them in time and hides pipeline
// internals behind the search error taxonomy.
type SearchService struct {
	path    SearchPath
	mode    string
	timeout time.Duration
	logs    SearchLogRepository
	logger  *zap.Logger
}

// SearchLogEntry captures a completed search and its results.
type SearchLogEntry struct {
	ProfileID   string
	WorkspaceID string
	Query       string
	Mode        string
	DurationMs  int
	Results     []string
}

// SearchLogRepository persists search logs.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
}

func NewSearchService(path SearchPath, mode string, timeout time.Duration, logger *zap.Logger) *SearchService {
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{path: path, mode: mode, timeout: timeout, logger: logger}
}

// WithSearchLog records every completed search in logs.
func (s *SearchService) WithSearchLog(logs SearchLogRepository) *SearchService {
	s.logs = logs
	return s
}

// Mode is the configured search path name.
func (s *SearchService) Mode() string {
	return s.mode
}

// Search runs the configured path. Failures surface as
// ErrSearchPipelineFailure, or ErrEmbeddingFailure when the query could not
// be embedded; the cause stays in the chain for logging only.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) ([]domain.CandidateMatch, error) {
	q.Text = strings.TrimSpace(q.Text)
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		WorkspaceID: q.WorkspaceID,
		Operation:   "search",
		SearchMode:  s.mode,
	})
	defer span.End()

	start := time.Now()
	matches, err := s.path.Search(ctx, q.Text, q.WorkspaceID)
	if err == nil {
		// Paths with fail-open steps can return after the deadline.
		err = ctx.Err()
	}
	if err != nil {
		span.SetError(err)
		s.logger.Error("search failed",
			zap.String("query", q.Text),
			zap.String("workspace_id", q.WorkspaceID),
			zap.String("mode", s.mode),
			zap.String("stage", failedStage(err)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, classifySearchError(err)
	}

	if matches == nil {
		matches = []domain.CandidateMatch{}
	}
	elapsed := time.Since(start)
	s.logger.Debug("search completed",
		zap.String("workspace_id", q.WorkspaceID),
		zap.String("mode", s.mode),
		zap.Int("matches", len(matches)),
		zap.Duration("elapsed", elapsed),
	)
	s.record(ctx, q, matches, elapsed)
	return matches, nil
}

func (s *SearchService) record(ctx context.Context, q domain.SearchQuery, matches []domain.CandidateMatch, elapsed time.Duration) {
	if s.logs == nil {
		return
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ProfileID)
	}
	_, err := s.logs.CreateSearchLog(context.WithoutCancel(ctx), SearchLogEntry{
		ProfileID:   q.ProfileID,
		WorkspaceID: q.WorkspaceID,
		Query:       q.Text,
		Mode:        s.mode,
		DurationMs:  int(elapsed.Milliseconds()),
		Results:     ids,
	})
	if err != nil {
		s.logger.Warn("failed to record search log", zap.String("workspace_id", q.WorkspaceID), zap.Error(err))
		telemetry.CaptureError(ctx, err)
	}
}

func classifySearchError(err error) error {
	if domain.CodeOf(err) == domain.ErrCodeEmbeddingFailure {
		return err
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeSearchPipelineFailure, domain.ErrSearchPipelineFailure.Message, err)
}

func failedStage(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	if domain.CodeOf(err) == domain.ErrCodeEmbeddingFailure {
		return "embed_query"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unknown"
}
