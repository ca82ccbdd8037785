package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-quest-api/internal/middleware"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
	"github.com/noah-isme/classroom-quest-api/pkg/response"
)

// sessionFromContext returns the authenticated session, writing a 401 when absent.
func sessionFromContext(c *gin.Context) (*models.Session, bool) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return session, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, message))
		return false
	}
	return true
}
