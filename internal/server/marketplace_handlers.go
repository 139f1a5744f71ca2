package server

import (
	"strconv"
	"strings"

	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultListingPage = 20

// ListListings handles GET /api/marketplace/listings
// @Summary Browse marketplace listings
// @Tags marketplace
// @Produce json
// @Param category query string false "Category"
// @Param condition query string false "Condition"
// @Param min_price query int false "Minimum price in minor units"
// @Param max_price query int false "Maximum price in minor units"
// @Param seller_id query int false "Seller"
// @Param verified query bool false "Verified listings only"
// @Param include_sold query bool false "Include sold listings"
// @Param sort query string false "newest, price_asc, price_desc"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} object{listings=[]models.MarketplaceListing,total=int}
// @Router /marketplace/listings [get]
func (s *Server) ListListings(c *fiber.Ctx) error {
	page := parsePagination(c, defaultListingPage)
	listings, total, err := s.marketplaceService.ListListings(c.UserContext(), service.ListListingsInput{
		Category:     c.Query("category"),
		Condition:    c.Query("condition"),
		MinPrice:     int64(c.QueryInt("min_price", 0)),
		MaxPrice:     int64(c.QueryInt("max_price", 0)),
		SellerID:     uint(c.QueryInt("seller_id", 0)),
		VerifiedOnly: c.QueryBool("verified", false),
		IncludeSold:  c.QueryBool("include_sold", false),
		Sort:         c.Query("sort"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"listings": listings, "total": total})
}

// GetListing handles GET /api/marketplace/listings/:id
// @Summary Get a listing
// @Tags marketplace
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} models.MarketplaceListing
// @Failure 404 {object} models.ErrorResponse
// @Router /marketplace/listings/{id} [get]
func (s *Server) GetListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	listing, err := s.marketplaceService.GetListing(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(listing)
}

// CreateListing handles POST /api/marketplace/listings
// @Summary Create a listing
// @Description The verification photo shows the item next to a handwritten note with the seller's username; an admin checks it before the listing is marked verified.
// @Tags marketplace
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param category formData string true "Category"
// @Param price formData int true "Price in minor units"
// @Param currency formData string false "ISO currency, default USD"
// @Param condition formData string true "new, like_new, good, fair, parts"
// @Param verification_image formData file true "Verification photo"
// @Param images formData file false "Additional photos"
// @Success 201 {object} models.MarketplaceListing
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /marketplace/listings [post]
func (s *Server) CreateListing(c *fiber.Ctx) error {
	price, err := strconv.ParseInt(strings.TrimSpace(c.FormValue("price")), 10, 64)
	if err != nil {
		return badRequest(c, "price must be a whole number of minor currency units")
	}
	verification, err := readOptionalUpload(c, "verification_image", s.maxUploadBytes())
	if err != nil {
		return respondServiceError(c, err)
	}
	extra, err := readUploadFiles(c, "images", s.maxUploadBytes())
	if err != nil {
		return respondServiceError(c, err)
	}

	listing, err := s.marketplaceService.CreateListing(c.UserContext(), service.CreateListingInput{
		SellerID:          sessionFrom(c).UserID,
		Title:             c.FormValue("title"),
		Description:       c.FormValue("description"),
		Category:          c.FormValue("category"),
		Price:             price,
		Currency:          c.FormValue("currency"),
		Condition:         c.FormValue("condition"),
		VerificationImage: verification,
		AdditionalImages:  extra,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(listing)
}

// UpdateListing handles PUT /api/marketplace/listings/:id
// @Summary Edit a listing
// @Tags marketplace
// @Accept json
// @Produce json
// @Param id path int true "Listing ID"
// @Param request body object{title=string,description=string,category=string,price=int,currency=string,condition=string} true "Fields to change"
// @Success 200 {object} models.MarketplaceListing
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /marketplace/listings/{id} [put]
func (s *Server) UpdateListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Category    *string `json:"category"`
		Price       *int64  `json:"price"`
		Currency    *string `json:"currency"`
		Condition   *string `json:"condition"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	listing, err := s.marketplaceService.UpdateListing(c.UserContext(), service.UpdateListingInput{
		UserID:      sessionFrom(c).UserID,
		ListingID:   id,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Currency:    req.Currency,
		Condition:   req.Condition,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(listing)
}

// MarkListingSold handles POST /api/marketplace/listings/:id/sold
// @Summary Mark a listing as sold
// @Tags marketplace
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} models.MarketplaceListing
// @Security BearerAuth
// @Router /marketplace/listings/{id}/sold [post]
func (s *Server) MarkListingSold(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	listing, err := s.marketplaceService.MarkSold(c.UserContext(), sessionFrom(c).UserID, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(listing)
}

// DeleteListing handles DELETE /api/marketplace/listings/:id
// @Summary Delete a listing
// @Tags marketplace
// @Param id path int true "Listing ID"
// @Success 204
// @Security BearerAuth
// @Router /marketplace/listings/{id} [delete]
func (s *Server) DeleteListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.marketplaceService.DeleteListing(c.UserContext(), sessionFrom(c).UserID, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// VerifyListing handles POST /api/admin/marketplace/listings/:id/verify
// @Summary Verify a listing
// @Tags admin
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} models.MarketplaceListing
// @Security BearerAuth
// @Router /admin/marketplace/listings/{id}/verify [post]
func (s *Server) VerifyListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	listing, err := s.marketplaceService.VerifyListing(c.UserContext(), sessionFrom(c).UserID, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(listing)
}
