package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/florianreyes/shipba-rag/internal/api"
	"github.com/florianreyes/shipba-rag/internal/api/middleware"
	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/form"
	"github.com/florianreyes/shipba-rag/internal/service"
)

type ProfileManager interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	Submit(ctx context.Context, in service.ProfileSubmission) (*domain.Profile, error)
	UpdateContent(ctx context.Context, profileID, content string, social *domain.SocialHandles) (*domain.Profile, error)
	Form() *form.Schema
}

type ProfileHandler struct {
	svc ProfileManager
}

func NewProfileHandler(svc ProfileManager) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

type AnswerPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type UpdateProfileRequest struct {
	Name    string                `json:"name"`
	Answers []AnswerPayload       `json:"answers"`
	Social  *domain.SocialHandles `json:"social,omitempty"`
}

type UpdateContentRequest struct {
	Content string                `json:"content"`
	Social  *domain.SocialHandles `json:"social,omitempty"`
}

type ProfileResponse struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Mail      string                 `json:"mail"`
	Content   string                 `json:"content"`
	Answers   []domain.ProfileAnswer `json:"answers"`
	Social    domain.SocialHandles   `json:"social"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
}

func profileToResponse(p *domain.Profile) *ProfileResponse {
	answers := p.Answers
	if answers == nil {
		answers = []domain.ProfileAnswer{}
	}
	return &ProfileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Mail:      p.Mail,
		Content:   p.Content,
		Answers:   answers,
		Social:    p.Social,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	if profileID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.svc.Get(r.Context(), profileID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, profileToResponse(profile))
}

// UpdateMe submits the profile form.
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	if profileID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Answers) == 0 {
		api.Error(w, http.StatusBadRequest, "answers are required")
		return
	}

	answers := make([]domain.ProfileAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = domain.ProfileAnswer{Key: a.Key, Value: a.Value}
	}

	profile, err := h.svc.Submit(r.Context(), service.ProfileSubmission{
		ProfileID: profileID,
		Name:      req.Name,
		Answers:   answers,
		Social:    req.Social,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, profileToResponse(profile))
}

// UpdateContent replaces the profile content without going through the form.
func (h *ProfileHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	if profileID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.svc.UpdateContent(r.Context(), profileID, req.Content, req.Social)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, profileToResponse(profile))
}

// Form returns the questions clients render for UpdateMe.
func (h *ProfileHandler) Form(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, h.svc.Form())
}
