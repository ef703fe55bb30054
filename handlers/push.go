package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kamuy/apperr"
	"kamuy/logger"
	"kamuy/models"
)

// VapidPublicKey hands the browser the key it needs to subscribe.
func (h *Handler) VapidPublicKey(c *gin.Context) {
	if h.cfg.VAPIDPublicKey == "" {
		c.JSON(http.StatusOK, gin.H{"error": "push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.cfg.VAPIDPublicKey})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

// SubscribePush stores the caller's web-push subscription.
func (h *Handler) SubscribePush(c *gin.Context) {
	callerID, err := h.callerID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error()))
		return
	}

	sub := &models.PushSubscription{
		UserID: callerID,
		Sub: webpush.Subscription{
			Endpoint: req.Endpoint,
			Keys: webpush.Keys{
				P256dh: req.Keys.P256dh,
				Auth:   req.Keys.Auth,
			},
		},
	}
	if err := h.store.SavePushSubscription(c.Request.Context(), sub); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{})
}

type pushPayload struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	ChatID string `json:"chatId"`
}

// notifyChatMembers web-pushes a new message to every member except the
// sender. Dead subscriptions are pruned as they are discovered.
func (h *Handler) notifyChatMembers(chatID, senderID primitive.ObjectID, msg *models.Message) {
	if h.cfg.VAPIDPrivateKey == "" || h.cfg.VAPIDPublicKey == "" {
		return
	}
	log := logger.L()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chat, err := h.store.ChatByID(ctx, chatID)
	if err != nil {
		log.Errorw("loading chat for push", "chatId", chatID.Hex(), "err", err)
		return
	}

	recipients := make([]primitive.ObjectID, 0, len(chat.MemberIDs))
	for _, id := range chat.MemberIDs {
		if id != senderID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}

	subs, err := h.store.PushSubscriptionsForUsers(ctx, recipients)
	if err != nil {
		log.Errorw("loading push subscriptions", "chatId", chatID.Hex(), "err", err)
		return
	}

	payload, err := json.Marshal(pushPayload{
		Title:  fmt.Sprintf("%s in %s", msg.Owner.Username, chat.Name),
		Body:   msg.Text,
		ChatID: chatID.Hex(),
	})
	if err != nil {
		return
	}

	for _, sub := range subs {
		resp, err := webpush.SendNotification(payload, &sub.Sub, &webpush.Options{
			Subscriber:      h.cfg.VAPIDEmail,
			VAPIDPublicKey:  h.cfg.VAPIDPublicKey,
			VAPIDPrivateKey: h.cfg.VAPIDPrivateKey,
			TTL:             60,
		})
		if err != nil {
			log.Errorw("sending push", "userId", sub.UserID.Hex(), "err", err)
			continue
		}
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			if err := h.store.DeletePushSubscription(ctx, sub.UserID, sub.Sub.Endpoint); err != nil {
				log.Errorw("pruning push subscription", "userId", sub.UserID.Hex(), "err", err)
			}
		}
		resp.Body.Close()
	}
}
