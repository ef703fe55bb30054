package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kamuy/apperr"
)

type addMessageRequest struct {
	Message string `form:"message" json:"message" binding:"required"`
	// The form still posts the sender's username but the stored owner
	// snapshot comes from the user document, not from client input.
	OwnerUsername string `form:"ownerUsername" json:"ownerUsername"`
	ChatID        string `form:"chatId" json:"chatId" binding:"required"`
}

// AddMessageToChat appends a message. Membership is re-verified server-side
// before the write; the live feed delivers the message to everyone with the
// chat open.
func (h *Handler) AddMessageToChat(c *gin.Context) {
	callerID, err := h.callerID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req addMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error()))
		return
	}
	chatID, err := primitive.ObjectIDFromHex(req.ChatID)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: invalid chatId", apperr.ErrValidation))
		return
	}

	msg, err := h.store.AppendMessage(c.Request.Context(), chatID, callerID, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}

	// Push notifications are best-effort and must not delay the response.
	go h.notifyChatMembers(chatID, callerID, msg)

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetMessages returns the chat's full history, oldest first.
func (h *Handler) GetMessages(c *gin.Context) {
	callerID, err := h.callerID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	chatID, err := pathID(c, "chatId")
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	chat, err := h.store.ChatByID(ctx, chatID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !chat.HasMember(callerID) {
		h.fail(c, fmt.Errorf("%w: not a member of this chat", apperr.ErrForbidden))
		return
	}

	messages, err := h.store.MessagesForChat(ctx, chatID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
