package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kamuy/apperr"
	"kamuy/websocket"
)

const (
	userNotFoundMessage  = "User not found."
	alreadyMemberMessage = "User is already a member of the chat."
)

type validateMemberRequest struct {
	Member string `form:"member" json:"member" binding:"required"`
	ChatID string `form:"chatId" json:"chatId" binding:"required"`
}

// ValidateMemberToBeAdded resolves the free-form invite input (email or
// username) to a user and rejects inputs that would not change the chat,
// flashing the same messages the settings dialog shows.
func (h *Handler) ValidateMemberToBeAdded(c *gin.Context) {
	var req validateMemberRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error()))
		return
	}
	chatID, err := primitive.ObjectIDFromHex(req.ChatID)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: invalid chatId", apperr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	chat, err := h.store.ChatByID(ctx, chatID)
	if err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.store.UserByEmailOrUsername(ctx, req.Member)
	if errors.Is(err, apperr.ErrNotFound) {
		h.failWithFlash(c, apperr.WithMessage(err, userNotFoundMessage))
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	if chat.HasMember(user.ID) {
		h.failWithFlash(c, apperr.WithMessage(apperr.ErrValidation, alreadyMemberMessage))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

type addMembersRequest struct {
	MemberIDs []string `form:"memberIds" json:"memberIds" binding:"required,min=1"`
}

// AddMembers commits the validated invitees: one member snapshot each plus
// a deduplicated membership-list update, atomically. Owner-only.
func (h *Handler) AddMembers(c *gin.Context) {
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

	var req addMembersRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error()))
		return
	}

	userIDs := make([]primitive.ObjectID, 0, len(req.MemberIDs))
	for _, raw := range req.MemberIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			h.fail(c, fmt.Errorf("%w: invalid member id %q", apperr.ErrValidation, raw))
			return
		}
		userIDs = append(userIDs, id)
	}

	added, err := h.store.AddMembers(c.Request.Context(), chatID, callerID, userIDs)
	if err != nil {
		h.failWithFlash(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"members": added})
}

type removeMemberRequest struct {
	ChatID   string `form:"chatId" json:"chatId" binding:"required"`
	MemberID string `form:"memberId" json:"memberId" binding:"required"`
}

// RemoveMember evicts a member from a chat. The owner can never be removed,
// even by themselves; the server enforces what the UI merely disables.
func (h *Handler) RemoveMember(c *gin.Context) {
	callerID, err := h.callerID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req removeMemberRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error()))
		return
	}
	chatID, err := primitive.ObjectIDFromHex(req.ChatID)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: invalid chatId", apperr.ErrValidation))
		return
	}
	memberID, err := primitive.ObjectIDFromHex(req.MemberID)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: invalid memberId", apperr.ErrValidation))
		return
	}

	if err := h.store.RemoveMember(c.Request.Context(), chatID, callerID, memberID); err != nil {
		h.failWithFlash(c, err)
		return
	}

	// The change stream routes member_removed to the chat room only, and
	// chat_updated goes to the remaining members. The evicted user gets the
	// event directly so their chat list drops the chat without a reload.
	h.manager.PublishToUsers([]string{memberID.Hex()}, websocket.Event{
		Type:    websocket.EventMemberRemoved,
		Payload: gin.H{"chatId": chatID.Hex(), "id": memberID.Hex()},
	})

	c.JSON(http.StatusOK, gin.H{})
}
