package server

import (
	"strings"

	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	maxAdminUserSearchLen = 64
	defaultAdminUserPage  = 50
)

// ListUsers handles GET /api/admin/users
// @Summary Search users
// @Tags admin
// @Produce json
// @Param q query string false "Username or display name"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} object{users=[]models.Profile,total=int}
// @Security BearerAuth
// @Router /admin/users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	search := strings.TrimSpace(c.Query("q"))
	if len(search) > maxAdminUserSearchLen {
		search = search[:maxAdminUserSearchLen]
	}
	page := parsePagination(c, defaultAdminUserPage)
	users, total, err := s.adminService.ListUsers(c.UserContext(), search, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "total": total})
}

// GetUserDetail handles GET /api/admin/users/:id
// @Summary User detail
// @Description Profile, roles and moderation history. Sections that fail to load are listed under warnings.
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.AdminUserDetail
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (s *Server) GetUserDetail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.adminService.GetUserDetail(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(detail)
}

// SuspendUser handles POST /api/admin/users/:id/suspend
// @Summary Suspend a user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body object{days=int} true "Suspension length in days (1-365)"
// @Success 200 {object} models.Profile
// @Security BearerAuth
// @Router /admin/users/{id}/suspend [post]
func (s *Server) SuspendUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Days int `json:"days"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	profile, err := s.adminService.SuspendUser(c.UserContext(), sessionFrom(c).UserID, id, req.Days)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// UnsuspendUser handles POST /api/admin/users/:id/unsuspend
// @Summary Lift a suspension
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body object{reset_warnings=bool} false "Also clear the warning count"
// @Success 200 {object} models.Profile
// @Security BearerAuth
// @Router /admin/users/{id}/unsuspend [post]
func (s *Server) UnsuspendUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		ResetWarnings bool `json:"reset_warnings"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	profile, err := s.adminService.UnsuspendUser(c.UserContext(), id, req.ResetWarnings)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// SetUserVIP handles PUT /api/admin/users/:id/vip
func (s *Server) SetUserVIP(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		VIP bool `json:"vip"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	profile, err := s.adminService.SetVIP(c.UserContext(), id, req.VIP)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// SetUserVerified handles PUT /api/admin/users/:id/verified
func (s *Server) SetUserVerified(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Verified bool `json:"verified"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	profile, err := s.adminService.SetVerified(c.UserContext(), id, req.Verified)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// GrantRole handles POST /api/admin/users/:id/roles
// @Summary Grant a role
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body object{role=string} true "admin or moderator"
// @Success 200 {object} object{roles=[]string}
// @Security BearerAuth
// @Router /admin/users/{id}/roles [post]
func (s *Server) GrantRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	roles, err := s.adminService.GrantRole(c.UserContext(), id, req.Role)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"roles": roles})
}

// RevokeRole handles DELETE /api/admin/users/:id/roles/:role
// @Summary Revoke a role
// @Description Admins cannot revoke their own admin role
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Param role path string true "Role"
// @Success 200 {object} object{roles=[]string}
// @Security BearerAuth
// @Router /admin/users/{id}/roles/{role} [delete]
func (s *Server) RevokeRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	roles, err := s.adminService.RevokeRole(c.UserContext(), sessionFrom(c).UserID, id, c.Params("role"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"roles": roles})
}

// SetPhotoFeatured handles PUT /api/admin/photos/:id/featured
func (s *Server) SetPhotoFeatured(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Featured bool `json:"featured"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	photo, err := s.adminService.SetFeatured(c.UserContext(), id, req.Featured)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(photo)
}

// SetPhotoHidden handles PUT /api/admin/photos/:id/hidden
func (s *Server) SetPhotoHidden(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Hidden bool `json:"hidden"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	photo, err := s.adminService.SetHidden(c.UserContext(), id, req.Hidden)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(photo)
}

type reorderRequest struct {
	IDs []uint `json:"ids"`
}

// ReorderFeatured handles POST /api/admin/featured/reorder
// @Summary Reorder featured photos
// @Description Positions are written one at a time in list order. A failure stops the run and earlier positions stay written; the response reports where it stopped.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body object{ids=[]int} true "Photo ids in display order"
// @Success 200 {object} models.ReorderResult
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/featured/reorder [post]
func (s *Server) ReorderFeatured(c *fiber.Ctx) error {
	var req reorderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	result, err := s.adminService.ReorderFeatured(c.UserContext(), req.IDs)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// ListHomepageSections handles GET /api/homepage/sections
// @Summary Visible homepage sections
// @Tags homepage
// @Produce json
// @Success 200 {array} models.HomepageSection
// @Router /homepage/sections [get]
func (s *Server) ListHomepageSections(c *fiber.Ctx) error {
	sections, err := s.adminService.ListSections(c.UserContext(), true)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(sections)
}

// ListAllHomepageSections returns every section, hidden ones included (admin)
func (s *Server) ListAllHomepageSections(c *fiber.Ctx) error {
	sections, err := s.adminService.ListSections(c.UserContext(), false)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(sections)
}

type sectionRequest struct {
	Key       *string `json:"key"`
	Title     *string `json:"title"`
	Subtitle  *string `json:"subtitle"`
	IsVisible *bool   `json:"is_visible"`
}

func (r sectionRequest) input() service.SectionInput {
	return service.SectionInput{Key: r.Key, Title: r.Title, Subtitle: r.Subtitle, IsVisible: r.IsVisible}
}

// CreateHomepageSection handles POST /api/admin/homepage/sections
func (s *Server) CreateHomepageSection(c *fiber.Ctx) error {
	var req sectionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	section, err := s.adminService.CreateSection(c.UserContext(), req.input())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(section)
}

// UpdateHomepageSection handles PUT /api/admin/homepage/sections/:id
func (s *Server) UpdateHomepageSection(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req sectionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	section, err := s.adminService.UpdateSection(c.UserContext(), id, req.input())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(section)
}

// DeleteHomepageSection handles DELETE /api/admin/homepage/sections/:id
func (s *Server) DeleteHomepageSection(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.adminService.DeleteSection(c.UserContext(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReorderHomepageSections handles POST /api/admin/homepage/sections/reorder
// @Summary Reorder homepage sections
// @Description Same partial-failure semantics as the featured reorder
// @Tags admin
// @Accept json
// @Produce json
// @Param request body object{ids=[]int} true "Section ids in display order"
// @Success 200 {object} models.ReorderResult
// @Security BearerAuth
// @Router /admin/homepage/sections/reorder [post]
func (s *Server) ReorderHomepageSections(c *fiber.Ctx) error {
	var req reorderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	result, err := s.adminService.ReorderHomepageSections(c.UserContext(), req.IDs)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// GetAdminStats handles GET /api/admin/stats
// @Summary Site statistics
// @Tags admin
// @Produce json
// @Success 200 {object} models.AdminStats
// @Security BearerAuth
// @Router /admin/stats [get]
func (s *Server) GetAdminStats(c *fiber.Ctx) error {
	stats, err := s.adminService.Stats(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	if s.hub != nil {
		return c.JSON(fiber.Map{"stats": stats, "realtime_connections": s.hub.ConnectionCount()})
	}
	return c.JSON(fiber.Map{"stats": stats})
}
