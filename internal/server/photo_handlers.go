package server

import (
	"strconv"
	"strings"

	"shutterhub/internal/models"
	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultPhotoPage = 24

// ListPhotos handles GET /api/photos
// @Summary List gallery photos
// @Tags photos
// @Produce json
// @Param category query string false "Category"
// @Param brand query string false "Camera brand"
// @Param user_id query int false "Owner"
// @Param tag query string false "Tag"
// @Param featured query bool false "Featured only"
// @Param sort query string false "newest, top_rated, most_liked, most_viewed"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} object{photos=[]models.Photo,total=int}
// @Router /photos [get]
func (s *Server) ListPhotos(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPhotoPage)
	photos, total, err := s.photoService.ListPhotos(c.UserContext(), service.ListPhotosInput{
		Category:     c.Query("category"),
		CameraBrand:  c.Query("brand"),
		UserID:       uint(c.QueryInt("user_id", 0)),
		Tag:          c.Query("tag"),
		FeaturedOnly: c.QueryBool("featured", false),
		Sort:         c.Query("sort"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"photos": photos, "total": total})
}

// ListFeaturedPhotos handles GET /api/photos/featured
// @Summary List featured photos in curated order
// @Tags photos
// @Produce json
// @Success 200 {array} models.Photo
// @Router /photos/featured [get]
func (s *Server) ListFeaturedPhotos(c *fiber.Ctx) error {
	photos, err := s.photoService.ListFeatured(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(photos)
}

// GetPhoto handles GET /api/photos/:id
// @Summary Get a photo
// @Description Returns the photo and counts a view. Hidden photos are visible to their owner and admins only.
// @Tags photos
// @Produce json
// @Param id path int true "Photo ID"
// @Success 200 {object} models.Photo
// @Failure 404 {object} models.ErrorResponse
// @Router /photos/{id} [get]
func (s *Server) GetPhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	photo, err := s.photoService.GetPhoto(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	resp := fiber.Map{"photo": photo}
	if uid := viewerID(c); uid != 0 {
		if liked, lerr := s.photoService.IsLiked(c.UserContext(), uid, id); lerr == nil {
			resp["liked"] = liked
		}
		if fav, ferr := s.favoriteService.IsFavorited(c.UserContext(), uid, models.PhotoRef{PhotoID: id}); ferr == nil {
			resp["favorited"] = fav
		}
	}
	return c.JSON(resp)
}

// GetRecommendations handles GET /api/photos/:id/recommendations
// @Summary Similar photos
// @Description Up to 12 photos sharing the camera brand or category, falling back to top rated
// @Tags photos
// @Produce json
// @Param id path int true "Photo ID"
// @Param limit query int false "At most 12"
// @Success 200 {array} models.Photo
// @Router /photos/{id}/recommendations [get]
func (s *Server) GetRecommendations(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	photos, err := s.photoService.Recommendations(c.UserContext(), id, viewerID(c),
		c.QueryInt("limit", service.MaxRecommendations))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(photos)
}

// UploadPhotos handles POST /api/photos
// @Summary Upload photos
// @Description Uploads one or more images under the daily quota. Files are processed in order and the batch stops at the first failure; earlier uploads are kept.
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param images formData file true "Images (repeat the field for a batch)"
// @Param title formData string false "Title"
// @Param description formData string false "Description"
// @Param category formData string false "Category"
// @Param camera_brand formData string false "Camera brand"
// @Param camera_model formData string false "Camera model"
// @Param lens formData string false "Lens"
// @Param focal_length formData string false "Focal length"
// @Param aperture formData string false "Aperture"
// @Param shutter_speed formData string false "Shutter speed"
// @Param iso formData int false "ISO"
// @Param tags formData string false "Comma separated tags"
// @Success 201 {object} service.BatchUploadResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /photos [post]
func (s *Server) UploadPhotos(c *fiber.Ctx) error {
	files, err := readUploadFiles(c, "images", s.maxUploadBytes())
	if err != nil {
		return respondServiceError(c, err)
	}

	iso := 0
	if raw := strings.TrimSpace(c.FormValue("iso")); raw != "" {
		n, perr := strconv.Atoi(raw)
		if perr != nil || n < 0 {
			return badRequest(c, "ISO must be a positive number")
		}
		iso = n
	}

	result, err := s.photoService.UploadPhotos(c.UserContext(), service.UploadPhotosInput{
		UserID: sessionFrom(c).UserID,
		Files:  files,
		Metadata: service.PhotoMetadata{
			Title:        c.FormValue("title"),
			Description:  c.FormValue("description"),
			Category:     c.FormValue("category"),
			CameraBrand:  c.FormValue("camera_brand"),
			CameraModel:  c.FormValue("camera_model"),
			Lens:         c.FormValue("lens"),
			FocalLength:  c.FormValue("focal_length"),
			Aperture:     c.FormValue("aperture"),
			ShutterSpeed: c.FormValue("shutter_speed"),
			ISO:          iso,
			Tags:         splitCSV(c.FormValue("tags")),
		},
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	if len(result.Uploaded) == 0 && result.Err != nil {
		return respondServiceError(c, result.Err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// UpdatePhoto handles PUT /api/photos/:id
// @Summary Update photo metadata
// @Tags photos
// @Accept json
// @Produce json
// @Param id path int true "Photo ID"
// @Param request body object{title=string,description=string,category=string,camera_brand=string,camera_model=string,lens=string,focal_length=string,aperture=string,shutter_speed=string,iso=int,tags=[]string} true "Fields to change"
// @Success 200 {object} models.Photo
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /photos/{id} [put]
func (s *Server) UpdatePhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Title        *string  `json:"title"`
		Description  *string  `json:"description"`
		Category     *string  `json:"category"`
		CameraBrand  *string  `json:"camera_brand"`
		CameraModel  *string  `json:"camera_model"`
		Lens         *string  `json:"lens"`
		FocalLength  *string  `json:"focal_length"`
		Aperture     *string  `json:"aperture"`
		ShutterSpeed *string  `json:"shutter_speed"`
		ISO          *int     `json:"iso"`
		Tags         []string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	photo, err := s.photoService.UpdatePhoto(c.UserContext(), service.UpdatePhotoInput{
		UserID:       sessionFrom(c).UserID,
		PhotoID:      id,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		CameraBrand:  req.CameraBrand,
		CameraModel:  req.CameraModel,
		Lens:         req.Lens,
		FocalLength:  req.FocalLength,
		Aperture:     req.Aperture,
		ShutterSpeed: req.ShutterSpeed,
		ISO:          req.ISO,
		Tags:         req.Tags,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(photo)
}

// DeletePhoto handles DELETE /api/photos/:id
// @Summary Delete a photo
// @Tags photos
// @Param id path int true "Photo ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /photos/{id} [delete]
func (s *Server) DeletePhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.photoService.DeletePhoto(c.UserContext(), sessionFrom(c).UserID, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePhoto handles POST /api/photos/:id/like
// @Summary Like a photo
// @Tags photos
// @Produce json
// @Param id path int true "Photo ID"
// @Success 200 {object} service.LikeState
// @Security BearerAuth
// @Router /photos/{id}/like [post]
func (s *Server) LikePhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.photoService.LikePhoto(c.UserContext(), sessionFrom(c).UserID, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(state)
}

// UnlikePhoto handles DELETE /api/photos/:id/like
// @Summary Unlike a photo
// @Tags photos
// @Produce json
// @Param id path int true "Photo ID"
// @Success 200 {object} service.LikeState
// @Security BearerAuth
// @Router /photos/{id}/like [delete]
func (s *Server) UnlikePhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.photoService.UnlikePhoto(c.UserContext(), sessionFrom(c).UserID, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(state)
}

// RatePhoto handles PUT /api/photos/:id/rating
// @Summary Rate a photo
// @Description Creates or replaces the caller's 1-5 star rating
// @Tags photos
// @Accept json
// @Produce json
// @Param id path int true "Photo ID"
// @Param request body object{rating=int} true "Rating"
// @Success 200 {object} repository.RatingStats
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /photos/{id}/rating [put]
func (s *Server) RatePhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Rating int `json:"rating"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	stats, err := s.photoService.RatePhoto(c.UserContext(), sessionFrom(c).UserID, id, req.Rating)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stats)
}

// GetMyRating handles GET /api/photos/:id/rating/me
// @Summary Get the caller's rating
// @Tags photos
// @Produce json
// @Param id path int true "Photo ID"
// @Success 200 {object} object{rating=int}
// @Security BearerAuth
// @Router /photos/{id}/rating/me [get]
func (s *Server) GetMyRating(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	rating, err := s.photoService.GetMyRating(c.UserContext(), sessionFrom(c).UserID, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if rating == nil {
		return c.JSON(fiber.Map{"rating": nil})
	}
	return c.JSON(fiber.Map{"rating": rating.Rating})
}
