package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crams-api/internal/models"
	"github.com/noah-isme/crams-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type realtimeHub interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

// NotificationHandler serves the inbox and the realtime stream.
type NotificationHandler struct {
	service notificationService
	hub     realtimeHub
}

// NewNotificationHandler constructs the handler. hub may be nil when realtime is disabled.
func NewNotificationHandler(svc notificationService, hub realtimeHub) *NotificationHandler {
	return &NotificationHandler{service: svc, hub: hub}
}

// List godoc
// @Summary My notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max items"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.service.List(c.Request.Context(), actor.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// MarkRead godoc
// @Summary Mark notification read
// @Tags Notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), actor.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stream godoc
// @Summary Realtime notifications
// @Description Websocket stream of new notifications. Pass the access token as ?token= when headers cannot be set.
// @Tags Notifications
// @Param token query string false "Access token"
// @Success 101
// @Failure 401 {object} response.Envelope
// @Router /ws/notifications [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if h.hub == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	// Serve writes its own HTTP error when the upgrade fails.
	_ = h.hub.Serve(c.Writer, c.Request, actor.UserID)
}
