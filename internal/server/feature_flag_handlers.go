package server

import "github.com/gofiber/fiber/v2"

type featureFlagsResponse struct {
	Raw       map[string]string `json:"raw"`
	Evaluated map[string]bool   `json:"evaluated"`
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary Configured feature flags
// @Description Raw flag values plus their evaluation for the calling admin.
// @Tags admin
// @Produce json
// @Success 200 {object} featureFlagsResponse
// @Security BearerAuth
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(featureFlagsResponse{
		Raw:       s.adminService.FeatureFlags(),
		Evaluated: s.adminService.FeatureSnapshot(viewerID(c)),
	})
}

// SetFeatureFlag handles PUT /api/admin/feature-flags/:name
// @Summary Override a feature flag
// @Description Accepts on, off or a rollout percentage such as 25%. Overrides reset on restart.
// @Tags admin
// @Accept json
// @Produce json
// @Param name path string true "Flag name"
// @Param request body object{value=string} true "New value"
// @Success 200 {object} featureFlagsResponse
// @Security BearerAuth
// @Router /admin/feature-flags/{name} [put]
func (s *Server) SetFeatureFlag(c *fiber.Ctx) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	uid := sessionFrom(c).UserID
	raw, err := s.adminService.SetFeatureFlag(uid, c.Params("name"), req.Value)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(featureFlagsResponse{Raw: raw, Evaluated: s.adminService.FeatureSnapshot(uid)})
}

// GetFeatureSnapshot handles GET /api/config/features
// @Summary Feature flags for the caller
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /config/features [get]
func (s *Server) GetFeatureSnapshot(c *fiber.Ctx) error {
	return c.JSON(s.adminService.FeatureSnapshot(viewerID(c)))
}
