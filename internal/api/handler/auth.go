package handler

import (
	"net/http"
	"strings"

	"github.com/ayo6706/trading-backoffice/internal/service"
	"github.com/google/uuid"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	BranchID string `json:"branch_id,omitempty"`
}

// Register handles POST /v1/auth/register. New users are always clients.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerBody
	if !decodeBody(w, r, &req) {
		return
	}
	in := service.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password}
	if v := strings.TrimSpace(req.BranchID); v != "" {
		branchID, err := uuid.Parse(v)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-branch-id", "Invalid branch_id")
			return
		}
		in.BranchID = &branchID
	}

	user, err := h.svc.Register(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err, "register")
		return
	}
	RespondJSON(w, http.StatusCreated, user)
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginBody
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err, "login")
		return
	}
	RespondJSON(w, http.StatusOK, session)
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshBody
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, r, err, "refresh")
		return
	}
	RespondJSON(w, http.StatusOK, session)
}

// Me handles GET /v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	user, err := h.svc.Me(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err, "get profile")
		return
	}
	RespondJSON(w, http.StatusOK, user)
}
