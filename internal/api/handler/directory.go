package handler

import (
	"net/http"

	"github.com/ayo6706/trading-backoffice/internal/service"
)

// DirectoryHandler serves the admin and manager dashboards' read views.
type DirectoryHandler struct {
	svc *service.DirectoryService
}

func NewDirectoryHandler(svc *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{svc: svc}
}

// BranchClients handles GET /v1/admin/branch-clients.
func (h *DirectoryHandler) BranchClients(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	clients, err := h.svc.BranchClients(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err, "list branch clients")
		return
	}
	RespondJSON(w, http.StatusOK, clients)
}

// BranchInfo handles GET /v1/admin/branch-info.
func (h *DirectoryHandler) BranchInfo(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	info, err := h.svc.BranchInfo(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err, "get branch info")
		return
	}
	RespondJSON(w, http.StatusOK, info)
}

func (h *DirectoryHandler) Admins(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	admins, err := h.svc.Admins(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err, "list admins")
		return
	}
	RespondJSON(w, http.StatusOK, admins)
}

func (h *DirectoryHandler) Clients(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	clients, err := h.svc.Clients(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err, "list clients")
		return
	}
	RespondJSON(w, http.StatusOK, clients)
}
