package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/florianreyes/shipba-rag/internal/api"
	"github.com/florianreyes/shipba-rag/internal/api/middleware"
	"github.com/florianreyes/shipba-rag/internal/domain"
)

type SearchRunner interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.CandidateMatch, error)
}

// ScopeResolver decides which workspace a caller may search.
type ScopeResolver interface {
	ResolveScope(ctx context.Context, profileID, requested string) (string, error)
}

type SearchHandler struct {
	search SearchRunner
	scope  ScopeResolver
}

func NewSearchHandler(search SearchRunner, scope ScopeResolver) *SearchHandler {
	return &SearchHandler{search: search, scope: scope}
}

type SearchRequest struct {
	Query       string `json:"query"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

type SearchResponse struct {
	Matches []domain.CandidateMatch `json:"matches"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	if profileID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q := domain.SearchQuery{Text: req.Query, ProfileID: profileID}
	if err := q.Validate(); err != nil && !errors.Is(err, domain.ErrWorkspaceRequired) {
		api.HandleSearchError(w, err)
		return
	}

	workspaceID, err := h.scope.ResolveScope(r.Context(), profileID, req.WorkspaceID)
	if err != nil {
		api.HandleSearchError(w, err)
		return
	}
	q.WorkspaceID = workspaceID

	matches, err := h.search.Search(r.Context(), q)
	if err != nil {
		api.HandleSearchError(w, err)
		return
	}
	if matches == nil {
		matches = []domain.CandidateMatch{}
	}

	api.JSON(w, http.StatusOK, SearchResponse{Matches: matches})
}
