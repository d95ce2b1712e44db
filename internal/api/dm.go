package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealdesk/dealdesk/internal/chat"
	"github.com/dealdesk/dealdesk/internal/middleware"
)

// DMHandler maps direct-message requests onto the chat service.
type DMHandler struct {
	svc    *chat.Service
	logger *zap.Logger
}

func NewDMHandler(svc *chat.Service, logger *zap.Logger) *DMHandler {
	return &DMHandler{svc: svc, logger: logger}
}

type openThreadRequest struct {
	PeerID uuid.UUID `json:"peer_id" binding:"required"`
}

// Open handles POST /v1/dms — get-or-create the thread with a peer.
// Idempotent: opening an existing thread returns it, never a duplicate.
func (h *DMHandler) Open(c *gin.Context) {
	var req openThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	thread, err := h.svc.GetOrCreateDMThread(c.Request.Context(), userID, req.PeerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// Send handles POST /v1/dms/:id/messages
func (h *DMHandler) Send(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	senderID := middleware.GetUserID(c)
	msg, err := h.svc.SendDMMessage(c.Request.Context(), threadID, senderID, req.Body, req.ImageURL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// List handles GET /v1/dms/:id/messages?before=123
func (h *DMHandler) List(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	before, ok := parseBefore(c)
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	messages, err := h.svc.GetDMMessages(c.Request.Context(), threadID, userID, before)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}
