package server

import (
	"shutterhub/internal/models"
	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultFavoritePage = 30

// ListFavorites returns the caller's favorites, optionally of one type (photo or listing)
func (s *Server) ListFavorites(c *fiber.Ctx) error {
	page := parsePagination(c, defaultFavoritePage)
	favorites, total, err := s.favoriteService.ListFavorites(c.UserContext(), sessionFrom(c).UserID,
		c.Query("type"), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"favorites": favorites, "total": total})
}

// AddFavorite saves a photo or listing; adding twice is a no-op
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	var req struct {
		Type string `json:"type"`
		ID   uint   `json:"id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ref, err := models.ParseContentRef(req.Type, req.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := s.favoriteService.AddFavorite(c.UserContext(), sessionFrom(c).UserID, ref); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"type": ref.Kind(), "id": ref.ID(), "favorited": true})
}

// RemoveFavorite drops a favorite addressed as /favorites/:type/:id
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ref, err := models.ParseContentRef(c.Params("type"), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := s.favoriteService.RemoveFavorite(c.UserContext(), sessionFrom(c).UserID, ref); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateReport handles POST /api/reports
// @Summary Report content
// @Description Flag a photo, comment, topic, reply, listing, message or user for moderator review
// @Tags reports
// @Accept json
// @Produce json
// @Param request body object{type=string,id=int,reason=string,details=string} true "Report"
// @Success 201 {object} models.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /reports [post]
func (s *Server) CreateReport(c *fiber.Ctx) error {
	var req struct {
		Type    string `json:"type"`
		ID      uint   `json:"id"`
		Reason  string `json:"reason"`
		Details string `json:"details"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ref, err := models.ParseContentRef(req.Type, req.ID)
	if err != nil {
		return respondServiceError(c, err)
	}

	report, err := s.moderationService.CreateReport(c.UserContext(), service.CreateReportInput{
		ReporterID: sessionFrom(c).UserID,
		Ref:        ref,
		Reason:     req.Reason,
		Details:    req.Details,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}
