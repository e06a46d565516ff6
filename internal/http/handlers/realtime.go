package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	"github.com/pierdell/mediaforge-backend/internal/http/middleware"
	"github.com/pierdell/mediaforge-backend/internal/http/response"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
	"github.com/pierdell/mediaforge-backend/internal/realtime"
	"github.com/pierdell/mediaforge-backend/internal/realtime/collab"
	"github.com/pierdell/mediaforge-backend/internal/services"
)

// RealtimeHandler is component G's WebSocket upgrade surface (spec.md
// §6 "/ws/projects/{project_id}", "/ws/annotate/{item_id}") plus the
// job-progress SSE stream that rides on component E/D's JobNotifier.
// The WS routes authenticate the upgrade's `?token=` themselves instead
// of through RequireAuth: an auth failure must complete the handshake
// and close with code 4001, not answer 401 (spec.md §6).
type RealtimeHandler struct {
	log    *logger.Logger
	collab *collab.Manager
	hub    *realtime.SSEHub
	users  repos.UserRepo
	auth   *services.AuthService
}

func NewRealtimeHandler(log *logger.Logger, mgr *collab.Manager, hub *realtime.SSEHub, users repos.UserRepo, auth *services.AuthService) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("component", "RealtimeHandler"), collab: mgr, hub: hub, users: users, auth: auth}
}

// wsUser authenticates a WebSocket upgrade request. On failure it has
// already answered the client (upgrade + close 4001) and returns false.
func (h *RealtimeHandler) wsUser(c *gin.Context) (uuid.UUID, string, bool) {
	userID, err := h.auth.VerifyToken(c.Query("token"))
	if err == nil {
		if user, uErr := h.users.GetByID(dbctx.Context{Ctx: c.Request.Context()}, userID); uErr == nil {
			return user.ID, user.DisplayName, true
		}
	}
	collab.CloseUnauthorized(c.Writer, c.Request)
	return uuid.Nil, "", false
}

// ConnectProject upgrades `/ws/projects/{project_id}` into a project
// channel session (spec.md §4.G connect_project).
func (h *RealtimeHandler) ConnectProject(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	userID, userName, ok := h.wsUser(c)
	if !ok {
		return
	}
	if err := collab.ServeProject(h.collab, c.Writer, c.Request, projectID, userID, userName, h.log); err != nil {
		h.log.Warn("collab project session ended with error", "project_id", projectID, "error", err)
	}
}

// ConnectItem upgrades `/ws/annotate/{item_id}` into an item channel
// session (spec.md §4.G connect_item).
func (h *RealtimeHandler) ConnectItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed item_id", dberrors.ErrInputInvalid))
		return
	}
	userID, userName, ok := h.wsUser(c)
	if !ok {
		return
	}
	if err := collab.ServeItem(h.collab, c.Writer, c.Request, itemID, userID, userName, h.log); err != nil {
		h.log.Warn("collab item session ended with error", "item_id", itemID, "error", err)
	}
}

// Events streams Server-Sent Events of job-progress notifications for a
// project channel (the indexing_progress/JobDone/JobFailed events a
// worker's JobNotifier emits), so a dashboard can watch ingestion move
// without reconnecting on every poll.
func (h *RealtimeHandler) Events(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
		return
	}
	userID, ok := middleware.RequestUserID(c)
	if !ok {
		response.RespondError(c, dberrors.ErrAuthMissing)
		return
	}

	client := h.hub.NewSSEClient(userID)
	h.hub.AddChannel(client, projectID.String())
	defer h.hub.CloseClient(client)

	h.hub.ServeSSE(c.Writer, c.Request, client)
}
