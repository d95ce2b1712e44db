package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dealdesk/dealdesk/internal/chat"
)

// respondError maps the service's typed failures onto HTTP statuses.
// Authorization failures say "you can't do that here" without confirming
// the target exists; anything unrecognized collapses to a generic 500 and
// the detail stays in the log.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, chat.ErrNotMember),
		errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, chat.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": "you can't do that here"})
	case errors.Is(err, chat.ErrEmptyBody),
		errors.Is(err, chat.ErrEmptyName),
		errors.Is(err, chat.ErrSelfDM),
		errors.Is(err, chat.ErrCannotRemoveSelf):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
