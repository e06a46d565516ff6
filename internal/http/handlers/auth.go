package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	"github.com/pierdell/mediaforge-backend/internal/http/middleware"
	"github.com/pierdell/mediaforge-backend/internal/http/response"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/services"
)

// AuthHandler is component C's identity surface: register, login, the
// caller's own profile, and API key issuance (spec.md §6). Grounded on
// the teacher's internal/http/handlers/auth.go, trimmed to this
// module's single-access-token scheme (no refresh/logout endpoints).
type AuthHandler struct {
	auth    *services.AuthService
	users   repos.UserRepo
	apiKeys repos.APIKeyRepo
}

func NewAuthHandler(auth *services.AuthService, users repos.UserRepo, apiKeys repos.APIKeyRepo) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, apiKeys: apiKeys}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	user, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

// Me implements `GET /auth/me`.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}
	user, err := h.users.GetByID(dbctx.Context{Ctx: c.Request.Context()}, userID)
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: user", dberrors.ErrNotFound))
		return
	}
	response.RespondOK(c, user)
}

type updateMeRequest struct {
	DisplayName *string `json:"display_name"`
}

// UpdateMe implements `PATCH /auth/me`, limited to the fields a user may
// change about themselves (email and role changes are out of scope for
// this endpoint).
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	userID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", dberrors.ErrInputInvalid, err))
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	user, err := h.users.GetByID(dbc, userID)
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: user", dberrors.ErrNotFound))
		return
	}
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if err := h.users.Update(dbc, user); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, user)
}

type issueAPIKeyRequest struct {
	Label string `json:"label"`
}

// IssueAPIKey implements `POST /auth/api-keys`.
func (h *AuthHandler) IssueAPIKey(c *gin.Context) {
	userID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}
	var req issueAPIKeyRequest
	_ = c.ShouldBindJSON(&req)

	raw, key, err := h.auth.IssueAPIKey(c.Request.Context(), userID, req.Label)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{
		"key":        raw,
		"id":         key.ID,
		"prefix":     key.Prefix,
		"label":      key.Label,
		"created_at": key.CreatedAt.Format(time.RFC3339),
	})
}

// ListAPIKeys implements `GET /auth/api-keys`; raw key material is never
// returned after issuance, only metadata.
func (h *AuthHandler) ListAPIKeys(c *gin.Context) {
	userID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}
	keys, err := h.apiKeys.ListByUser(dbctx.Context{Ctx: c.Request.Context()}, userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"api_keys": keys})
}

// DeleteAPIKey implements `DELETE /auth/api-keys/{id}`.
func (h *AuthHandler) DeleteAPIKey(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed id", dberrors.ErrInputInvalid))
		return
	}
	if err := h.apiKeys.Delete(dbctx.Context{Ctx: c.Request.Context()}, id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
