package server

import (
	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultReportPage = 50

// ListReports returns reports for the moderation queue, filtered by status and content type.
func (s *Server) ListReports(c *fiber.Ctx) error {
	page := parsePagination(c, defaultReportPage)
	reports, total, err := s.moderationService.ListReports(c.UserContext(),
		c.Query("status"), c.Query("type"), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"reports": reports, "total": total})
}

// GetReport returns a single report.
func (s *Server) GetReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.moderationService.GetReport(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(report)
}

// ApplyReportAction handles POST /api/admin/reports/:id/actions
// @Summary Act on a report
// @Description resolve, dismiss, hide (hides the reported content) or warn (warns the author; the third warning suspends them for 7 days)
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param request body object{action=string,note=string} true "Moderator action"
// @Success 200 {object} service.ReportActionResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports/{id}/actions [post]
func (s *Server) ApplyReportAction(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Action string `json:"action"`
		Note   string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := s.moderationService.ApplyReportAction(c.UserContext(), service.ReportActionInput{
		AdminID:  sessionFrom(c).UserID,
		ReportID: id,
		Action:   req.Action,
		Note:     req.Note,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}
