package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

const currentUserKey = "current_user"

// SetCurrentUser is called by the auth middleware.
func SetCurrentUser(c *gin.Context, user model.CurrentUser) {
	c.Set(currentUserKey, user)
}

// CurrentUser returns the authenticated caller. A missing user means the
// route was registered outside the auth group.
func CurrentUser(c *gin.Context) (model.CurrentUser, error) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return model.CurrentUser{}, apperrors.Unauthorized(nil)
	}
	user, ok := v.(model.CurrentUser)
	if !ok {
		return model.CurrentUser{}, apperrors.Unauthorized(nil)
	}
	return user, nil
}
