package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/florianreyes/shipba-rag/internal/api"
	"github.com/florianreyes/shipba-rag/internal/api/middleware"
	"github.com/florianreyes/shipba-rag/internal/domain"
)

type APIKeyService interface {
	CreateAPIKey(ctx context.Context, profileID, name string) (string, error)
	ListAPIKeys(ctx context.Context, profileID string) ([]*domain.APIKey, error)
}

type APIKeyHandler struct {
	svc APIKeyService
}

func NewAPIKeyHandler(svc APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{svc: svc}
}

type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

type CreateAPIKeyResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type APIKeyResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedAt string  `json:"created_at"`
	RevokedAt *string `json:"revoked_at,omitempty"`
}

type APIKeyListResponse struct {
	Keys []APIKeyResponse `json:"keys"`
}

// Create issues another key for the caller. The token is only shown once.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	if profileID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	token, err := h.svc.CreateAPIKey(r.Context(), profileID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusCreated, CreateAPIKeyResponse{Token: token, Name: req.Name})
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	if profileID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keys, err := h.svc.ListAPIKeys(r.Context(), profileID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := APIKeyListResponse{Keys: make([]APIKeyResponse, 0, len(keys))}
	for _, k := range keys {
		item := APIKeyResponse{
			ID:        k.ID,
			Name:      k.Name,
			CreatedAt: k.CreatedAt.Format(time.RFC3339),
		}
		if k.RevokedAt != nil {
			revoked := k.RevokedAt.Format(time.RFC3339)
			item.RevokedAt = &revoked
		}
		resp.Keys = append(resp.Keys, item)
	}

	api.JSON(w, http.StatusOK, resp)
}
