package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/apierr"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
)

// RequireProjectRole enforces spec.md §6's authorization rule: the
// caller must be a member of the :project_id path param with role at
// least min, or a superuser (superusers bypass membership but not the
// project-exists check, left to the handler).
func RequireProjectRole(users repos.UserRepo, members repos.ProjectMemberRepo, min types.ProjectRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := RequestUserID(c)
		if !ok {
			respondErr(c, dberrors.ErrAuthMissing)
			return
		}
		projectID, err := uuid.Parse(c.Param("project_id"))
		if err != nil {
			respondErr(c, fmt.Errorf("%w: malformed project_id", dberrors.ErrInputInvalid))
			return
		}

		dbc := dbctx.Context{Ctx: c.Request.Context()}
		if user, uErr := users.GetByID(dbc, userID); uErr == nil && user.Superuser {
			c.Set("project_role", types.RoleOwner)
			c.Next()
			return
		}

		// A non-member gets 404, not 403: answering "forbidden" would
		// confirm the project exists (spec.md §7 existence probing).
		member, mErr := members.Get(dbc, projectID, userID)
		if mErr != nil {
			respondErr(c, fmt.Errorf("%w: project", dberrors.ErrNotFound))
			return
		}
		if !member.Role.AtLeast(min) {
			respondErr(c, fmt.Errorf("%w: requires role >= %s", dberrors.ErrForbidden, min))
			return
		}
		c.Set("project_role", member.Role)
		c.Next()
	}
}

func respondErr(c *gin.Context, err error) {
	apiErr := apierr.FromService(err)
	c.AbortWithStatusJSON(apiErr.Status, apierr.Body{Detail: apiErr.Error()})
}
