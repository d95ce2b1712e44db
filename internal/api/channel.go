package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealdesk/dealdesk/internal/chat"
	"github.com/dealdesk/dealdesk/internal/middleware"
	"github.com/dealdesk/dealdesk/internal/models"
)

// ChannelHandler maps channel lifecycle requests onto the chat service.
type ChannelHandler struct {
	svc    *chat.Service
	logger *zap.Logger
}

func NewChannelHandler(svc *chat.Service, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{svc: svc, logger: logger}
}

type createChannelRequest struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type"`
}

// Create handles POST /v1/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creatorID := middleware.GetUserID(c)
	ch, err := h.svc.CreateChannel(c.Request.Context(), req.Name, models.ChannelType(req.Type), creatorID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ch)
}

type renameChannelRequest struct {
	Name string `json:"name" binding:"required"`
}

// Rename handles POST /v1/channels/:id/rename
func (h *ChannelHandler) Rename(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	var req renameChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID := middleware.GetUserID(c)
	ch, err := h.svc.RenameChannel(c.Request.Context(), channelID, actorID, req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}
