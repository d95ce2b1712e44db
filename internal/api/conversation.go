package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dealdesk/dealdesk/internal/chat"
	"github.com/dealdesk/dealdesk/internal/middleware"
)

// ConversationHandler serves the inbox projection.
type ConversationHandler struct {
	svc    *chat.Service
	logger *zap.Logger
}

func NewConversationHandler(svc *chat.Service, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{svc: svc, logger: logger}
}

// List handles GET /v1/conversations — the caller's channels and DM threads
// ordered by latest activity, with last-message previews.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversations, err := h.svc.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conversations)
}
