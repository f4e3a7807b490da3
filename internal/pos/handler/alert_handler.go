package handler

import (
	"github.com/bitfantasy/nimo-pos/internal/pos/repository"
	"github.com/bitfantasy/nimo-pos/internal/pos/service"
	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	svc      *service.AlertService
	activity *service.ActivityService
}

func NewAlertHandler(svc *service.AlertService, activity *service.ActivityService) *AlertHandler {
	return &AlertHandler{svc: svc, activity: activity}
}

func (h *AlertHandler) ListOpenAlerts(c *gin.Context) {
	alerts, err := h.svc.ListOpenAlerts(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, alerts)
}

func (h *AlertHandler) ClearAlert(c *gin.Context) {
	if err := h.svc.ClearAlert(c.Request.Context(), c.Param("product_id"), currentUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	success(c, nil)
}

func (h *AlertHandler) ListNotifications(c *gin.Context) {
	page, size := pageParams(c)
	items, total, err := h.svc.ListNotifications(c.Request.Context(), c.Query("unread") == "true", page, size)
	if err != nil {
		handleError(c, err)
		return
	}
	list(c, items, total, page, size)
}

func (h *AlertHandler) MarkNotificationRead(c *gin.Context) {
	if err := h.svc.MarkNotificationRead(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	success(c, nil)
}

func (h *AlertHandler) ListActivityLogs(c *gin.Context) {
	page, size := pageParams(c)
	params := repository.ActivityLogListParams{
		UserID:     c.Query("user_id"),
		ActionType: c.Query("action_type"),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Page:       page,
		Size:       size,
	}
	items, total, err := h.activity.List(c.Request.Context(), params)
	if err != nil {
		handleError(c, err)
		return
	}
	list(c, items, total, page, size)
}
