package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealdesk/dealdesk/internal/chat"
	"github.com/dealdesk/dealdesk/internal/middleware"
)

// MessageHandler maps channel message requests onto the chat service.
type MessageHandler struct {
	svc    *chat.Service
	logger *zap.Logger
}

func NewMessageHandler(svc *chat.Service, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, logger: logger}
}

type sendMessageRequest struct {
	Body     string  `json:"body" binding:"required"`
	ImageURL *string `json:"image_url"`
}

// Send handles POST /v1/channels/:id/messages
//
// The response is the stored message with sender display fields — the
// sender's echo. Everyone else receives it through the hub.
func (h *MessageHandler) Send(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	senderID := middleware.GetUserID(c)
	msg, err := h.svc.SendChannelMessage(c.Request.Context(), channelID, senderID, req.Body, req.ImageURL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// List handles GET /v1/channels/:id/messages?before=123
//
// One fixed-size page, oldest to newest. "before" is a message id cursor;
// omit it for the newest page. Non-members get an empty page.
func (h *MessageHandler) List(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	before, ok := parseBefore(c)
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	messages, err := h.svc.GetChannelMessages(c.Request.Context(), channelID, userID, before)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func parseBefore(c *gin.Context) (int64, bool) {
	b := c.Query("before")
	if b == "" {
		return 0, true
	}
	before, err := strconv.ParseInt(b, 10, 64)
	if err != nil || before < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'before' parameter"})
		return 0, false
	}
	return before, true
}
