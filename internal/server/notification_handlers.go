package server

import (
	"github.com/gofiber/fiber/v2"
)

const defaultNotificationPage = 30

// ListNotifications handles GET /api/notifications
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Param unread query bool false "Unread only"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} object{notifications=[]models.Notification,total=int}
// @Security BearerAuth
// @Router /notifications [get]
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	page := parsePagination(c, defaultNotificationPage)
	list, total, err := s.notificationService.List(c.UserContext(), sessionFrom(c).UserID,
		c.QueryBool("unread", false), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"notifications": list, "total": total})
}

// GetUnreadCount handles GET /api/notifications/unread-count
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Success 200 {object} object{count=int}
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	count, err := s.notificationService.UnreadCount(c.UserContext(), sessionFrom(c).UserID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// GetNotificationsSince handles GET /api/notifications/since
// @Summary Notifications after a cursor
// @Description Notifications with an id above cursor in ascending order. Clients use the last id they saw to catch up after a reconnect.
// @Tags notifications
// @Produce json
// @Param cursor query int true "Last seen notification id"
// @Param limit query int false "Page size"
// @Success 200 {array} models.Notification
// @Security BearerAuth
// @Router /notifications/since [get]
func (s *Server) GetNotificationsSince(c *fiber.Ctx) error {
	cursor := c.QueryInt("cursor", -1)
	if cursor < 0 {
		return badRequest(c, "cursor must be a non-negative notification id")
	}
	page := parsePagination(c, maxPaginationLimit)
	list, err := s.notificationService.Since(c.UserContext(), sessionFrom(c).UserID, uint(cursor), page.Limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(list)
}

// MarkNotificationRead handles POST /api/notifications/:id/read
// @Summary Mark a notification read
// @Tags notifications
// @Param id path int true "Notification ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notificationService.MarkRead(c.UserContext(), sessionFrom(c).UserID, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
// @Summary Mark all notifications read
// @Tags notifications
// @Produce json
// @Success 200 {object} object{marked=int}
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	marked, err := s.notificationService.MarkAllRead(c.UserContext(), sessionFrom(c).UserID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"marked": marked})
}
