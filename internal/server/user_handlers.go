package server

import (
	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/me
// @Summary Get current profile
// @Tags users
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.userService.GetMyProfile(c.UserContext(), sessionFrom(c).UserID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/me
// @Summary Update current profile
// @Description Only the fields present in the body are changed
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{display_name=string,bio=string,website=string} true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		DisplayName *string `json:"display_name"`
		Bio         *string `json:"bio"`
		Website     *string `json:"website"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	profile, err := s.userService.UpdateMyProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:      sessionFrom(c).UserID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Website:     req.Website,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// UploadAvatar handles POST /api/me/avatar
// @Summary Upload avatar
// @Description Replace the avatar with a square WebP rendition of the uploaded image
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /me/avatar [post]
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	file, err := readOptionalUpload(c, "avatar", s.maxUploadBytes())
	if err != nil {
		return respondServiceError(c, err)
	}
	if file == nil {
		return badRequest(c, "avatar file is required")
	}

	profile, err := s.userService.UploadAvatar(c.UserContext(), sessionFrom(c).UserID, *file)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// GetUploadQuota handles GET /api/me/quota
// @Summary Get daily upload quota
// @Tags users
// @Produce json
// @Success 200 {object} models.UploadQuota
// @Security BearerAuth
// @Router /me/quota [get]
func (s *Server) GetUploadQuota(c *fiber.Ctx) error {
	quota, err := s.userService.GetUploadQuota(c.UserContext(), sessionFrom(c).UserID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(quota)
}

// GetPublicProfile handles GET /api/profiles/:username
// @Summary Get public profile
// @Description Public profile with photo count and average rating
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.PublicProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{username} [get]
func (s *Server) GetPublicProfile(c *fiber.Ctx) error {
	profile, err := s.userService.GetPublicProfile(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// HasRole handles GET /api/roles/:userId/:role
// @Summary Check a user's role
// @Tags users
// @Produce json
// @Param userId path int true "User ID"
// @Param role path string true "Role name"
// @Success 200 {object} object{has_role=bool}
// @Failure 400 {object} models.ErrorResponse
// @Router /roles/{userId}/{role} [get]
func (s *Server) HasRole(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	ok, err := s.userService.HasRole(c.UserContext(), userID, c.Params("role"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"has_role": ok})
}
