package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ysyyds1688-maker/drinktea_api/dto"
	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

type NotificationHandler struct {
	notificationSvc NotificationServiceInterface
}

func NewNotificationHandler(notificationSvc NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// @Summary List my notifications
// @Description List in-app notifications, newest first
// @Tags notifications
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param limit query int false "Max notifications to return" default(50)
// @Success 200 {object} shared.Response{data=dto.NotificationListResponse}
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	limit := c.QueryInt("limit", 50)

	notifications, err := h.notificationSvc.GetUserNotifications(userID, limit)
	if err != nil {
		return err
	}

	out := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, dto.NotificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Content:   n.Content,
			Link:      n.Link,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", dto.NotificationListResponse{
		Notifications: out,
		Total:         len(out),
	})
}

// @Summary Mark a notification read
// @Description Mark one of your notifications as read
// @Tags notifications
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param notificationId path string true "Notification ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/notifications/{notificationId}/read [post]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	if err := h.notificationSvc.MarkRead(c.Params("notificationId"), userID); err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Notification marked as read", nil)
}
