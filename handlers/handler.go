package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kamuy/apperr"
	"kamuy/config"
	"kamuy/flash"
	"kamuy/logger"
	"kamuy/middleware"
	"kamuy/store"
	"kamuy/websocket"
)

// Handler carries the explicitly constructed dependencies every route
// needs. Nothing here is package-level state.
type Handler struct {
	cfg     *config.Config
	store   *store.Store
	manager *websocket.Manager
}

func New(cfg *config.Config, st *store.Store, manager *websocket.Manager) *Handler {
	return &Handler{cfg: cfg, store: st, manager: manager}
}

// fail is the single error-to-response mapping point: every handler funnels
// errors through here so the status and message rules live in one place.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.L().Errorw("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

// failWithFlash additionally stores the user-facing message in the
// one-time flash cookie, for actions whose errors surface as toasts.
func (h *Handler) failWithFlash(c *gin.Context, err error) {
	flash.Set(c.Writer, h.cfg.ReleaseMode, flash.Error(apperr.Message(err)))
	h.fail(c, err)
}

// callerID returns the authenticated user's id placed in the context by the
// auth middleware.
func (h *Handler) callerID(c *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.GetString(middleware.UserIDKey))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid user id", apperr.ErrUnauthenticated)
	}
	return id, nil
}

func pathID(c *gin.Context, param string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid %s", apperr.ErrValidation, param)
	}
	return id, nil
}

// GetFlash hands pending flash messages to the client exactly once.
func (h *Handler) GetFlash(c *gin.Context) {
	messages := flash.Pop(c.Writer, c.Request, h.cfg.ReleaseMode)
	if messages == nil {
		messages = []flash.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
