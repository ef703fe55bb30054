package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"kamuy/apperr"
	"kamuy/flash"
	"kamuy/websocket"
)

// ListChats returns every chat the caller is a member of, newest first.
func (h *Handler) ListChats(c *gin.Context) {
	callerID, err := h.callerID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	chats, err := h.store.ChatsForUser(c.Request.Context(), callerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// CreateChat creates an "Untitled" chat owned by the caller. The response
// marks it newly created so the client autofocuses the rename input.
func (h *Handler) CreateChat(c *gin.Context) {
	callerID, err := h.callerID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	chat, err := h.store.CreateChat(c.Request.Context(), callerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chat": chat, "isNewlyCreated": true})
}

// GetChat returns the chat and its member snapshots. Only members may look.
func (h *Handler) GetChat(c *gin.Context) {
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

	members, err := h.store.MembersOfChat(ctx, chatID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat, "members": members})
}

type renameChatRequest struct {
	ChatName string `form:"chatName" json:"chatName" binding:"required"`
}

// RenameChat sets the chat name. The client debounces typing by 500ms and
// keeps the optimistic value until an event with an older revision shows
// up, which it ignores.
func (h *Handler) RenameChat(c *gin.Context) {
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

	var req renameChatRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error()))
		return
	}

	chat, err := h.store.RenameChat(c.Request.Context(), chatID, callerID, req.ChatName)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat, "revision": chat.Revision})
}

// DeleteChat cascades: chat, member snapshots and messages disappear in one
// transaction, owner-only. Former members are told directly since the
// change stream cannot reconstruct the membership of a deleted chat.
func (h *Handler) DeleteChat(c *gin.Context) {
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

	chat, err := h.store.DeleteChat(c.Request.Context(), chatID, callerID)
	if err != nil {
		h.failWithFlash(c, err)
		return
	}

	memberIDs := make([]string, len(chat.MemberIDs))
	for i, id := range chat.MemberIDs {
		memberIDs[i] = id.Hex()
	}
	h.manager.PublishToUsers(memberIDs, websocket.Event{
		Type:    websocket.EventChatDeleted,
		Payload: gin.H{"id": chatID.Hex()},
	})

	flash.Set(c.Writer, h.cfg.ReleaseMode,
		flash.Success(fmt.Sprintf("Successfully deleted chat %s", chat.Name)))
	c.JSON(http.StatusOK, gin.H{})
}
