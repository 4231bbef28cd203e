package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/consultbot/internal/api"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/service"
	"github.com/go-chi/chi/v5"
)

// ChatService is the conversation surface the session handlers need.
type ChatService interface {
	NewSession() *service.SessionView
	GetSession(id string) (*service.SessionView, error)
	EndSession(id string) error
	Ask(ctx context.Context, sessionID, query string) (*service.TurnResult, error)
	SetSpecialty(id, code string) (*domain.UserSpecialty, error)
	Reset(id string) error
	Specialties() domain.SpecialtyCatalog
}

type SessionHandler struct {
	svc ChatService
}

func NewSessionHandler(svc ChatService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type CreateSessionRequest struct {
	Specialty string `json:"specialty"`
}

type CreateSessionResponse struct {
	SessionID string                `json:"session_id"`
	CreatedAt string                `json:"created_at"`
	Specialty *domain.UserSpecialty `json:"specialty,omitempty"`
}

type AskRequest struct {
	Query string `json:"query"`
}

type SetSpecialtyRequest struct {
	Code string `json:"code"`
}

type SpecialtyResponse struct {
	Specialty *domain.UserSpecialty `json:"specialty"`
}

// Create starts a session. The body is optional; when it names a specialty
// the session starts with it selected.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if code := strings.TrimSpace(req.Specialty); code != "" {
		if _, err := h.svc.Specialties().Lookup(code); err != nil {
			api.HandleError(w, err)
			return
		}
	}

	view := h.svc.NewSession()
	resp := CreateSessionResponse{
		SessionID: view.ID,
		CreatedAt: view.CreatedAt.Format(time.RFC3339),
	}

	if code := strings.TrimSpace(req.Specialty); code != "" {
		sp, err := h.svc.SetSpecialty(view.ID, code)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		resp.Specialty = sp
	}

	api.Success(w, http.StatusCreated, resp)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, view)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.EndSession(chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ask answers one question within the session.
func (h *SessionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.svc.Ask(r.Context(), chi.URLParam(r, "id"), req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, result)
}

func (h *SessionHandler) SetSpecialty(w http.ResponseWriter, r *http.Request) {
	var req SetSpecialtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sp, err := h.svc.SetSpecialty(chi.URLParam(r, "id"), req.Code)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, SpecialtyResponse{Specialty: sp})
}

// ResetMemory clears the conversation memory of a session.
func (h *SessionHandler) ResetMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) ListSpecialties(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.svc.Specialties())
}
