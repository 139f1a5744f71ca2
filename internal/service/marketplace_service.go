package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"shutterhub/internal/featureflags"
	"shutterhub/internal/models"
	"shutterhub/internal/repository"
	"shutterhub/internal/storage"

	"gorm.io/datatypes"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// CreateListingInput offers an item for sale. VerificationImage is mandatory.
type CreateListingInput struct {
	SellerID          uint
	Title             string
	Description       string
	Category          string
	Price             int64
	Currency          string
	Condition         string
	VerificationImage *UploadFile
	AdditionalImages  []UploadFile
}

// UpdateListingInput edits an unsold listing. Nil fields are left untouched.
type UpdateListingInput struct {
	UserID      uint
	ListingID   uint
	Title       *string
	Description *string
	Category    *string
	Price       *int64
	Currency    *string
	Condition   *string
}

// ListListingsInput is a marketplace query.
type ListListingsInput struct {
	Category     string
	Condition    string
	MinPrice     int64
	MaxPrice     int64
	SellerID     uint
	VerifiedOnly bool
	IncludeSold  bool
	Sort         string
	Limit        int
	Offset       int
}

// MarketplaceService runs verified-photo listings.
type MarketplaceService struct {
	listings     repository.ListingRepository
	users        repository.UserRepository
	photos       storage.ObjectStore
	verification storage.ObjectStore
	images       *ImageProcessor
	notifier     NotificationSender
	flags        *featureflags.Manager
	gate         *PostingGate
	isAdmin      func(ctx context.Context, userID uint) (bool, error)
	now          func() time.Time
}

// MarketplaceServiceDeps wires a MarketplaceService.
type MarketplaceServiceDeps struct {
	Listings     repository.ListingRepository
	Users        repository.UserRepository
	Photos       storage.ObjectStore
	Verification storage.ObjectStore
	Images       *ImageProcessor
	Notifier     NotificationSender
	Flags        *featureflags.Manager
	IsAdmin      func(ctx context.Context, userID uint) (bool, error)
}

// NewMarketplaceService creates a MarketplaceService.
func NewMarketplaceService(deps MarketplaceServiceDeps) *MarketplaceService {
	images := deps.Images
	if images == nil {
		images = NewImageProcessor(0)
	}
	return &MarketplaceService{
		listings:     deps.Listings,
		users:        deps.Users,
		photos:       deps.Photos,
		verification: deps.Verification,
		images:       images,
		notifier:     deps.Notifier,
		flags:        deps.Flags,
		gate:         NewPostingGate(deps.Users),
		isAdmin:      deps.IsAdmin,
		now:          time.Now,
	}
}

func validateListingTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > 200 {
		return "", models.NewValidationError("Title too long (max 200 characters)")
	}
	return title, nil
}

func validatePrice(price int64) error {
	if price <= 0 {
		return models.NewValidationError("Price must be greater than zero")
	}
	return nil
}

func normalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return models.DefaultCurrency, nil
	}
	if !currencyPattern.MatchString(currency) {
		return "", models.NewValidationError("Currency must be a 3-letter ISO 4217 code")
	}
	return currency, nil
}

func parseCondition(raw string) (models.ListingCondition, error) {
	c := models.ListingCondition(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", models.NewValidationError("condition must be one of new, like_new, good, fair, poor")
	}
	return c, nil
}

// CreateListing stores the verification image and gallery images, then the listing.
// Stored images are removed again if the listing cannot be saved.
func (s *MarketplaceService) CreateListing(ctx context.Context, in CreateListingInput) (*models.MarketplaceListing, error) {
	title, err := validateListingTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	currency, err := normalizeCurrency(in.Currency)
	if err != nil {
		return nil, err
	}
	condition, err := parseCondition(in.Condition)
	if err != nil {
		return nil, err
	}
	if in.VerificationImage == nil || len(in.VerificationImage.Content) == 0 {
		return nil, models.NewValidationError("A verification image is required")
	}
	if len(in.AdditionalImages) > models.MaxAdditionalImages {
		return nil, models.NewValidationError(fmt.Sprintf("Too many additional images (max %d)", models.MaxAdditionalImages))
	}
	if err := s.gate.Check(ctx, in.SellerID); err != nil {
		return nil, err
	}

	_, verificationType, err := s.images.Decode(*in.VerificationImage)
	if err != nil {
		return nil, err
	}
	galleryTypes := make([]string, len(in.AdditionalImages))
	for i, f := range in.AdditionalImages {
		if _, galleryTypes[i], err = s.images.Decode(f); err != nil {
			return nil, err
		}
	}

	var stored []storedObject
	vKey, vURL, err := putObject(ctx, s.verification, "verification", in.SellerID, in.VerificationImage.Content, verificationType)
	if err != nil {
		return nil, err
	}
	stored = append(stored, storedObject{store: s.verification, key: vKey})

	urls := make([]string, 0, len(in.AdditionalImages))
	for i, f := range in.AdditionalImages {
		key, u, err := putObject(ctx, s.photos, "listings", in.SellerID, f.Content, galleryTypes[i])
		if err != nil {
			removeObjects(ctx, stored...)
			return nil, err
		}
		stored = append(stored, storedObject{store: s.photos, key: key})
		urls = append(urls, u)
	}
	gallery, err := json.Marshal(urls)
	if err != nil {
		removeObjects(ctx, stored...)
		return nil, models.NewInternalError(err)
	}

	listing := &models.MarketplaceListing{
		SellerID:             in.SellerID,
		Title:                title,
		Description:          strings.TrimSpace(in.Description),
		Category:             strings.TrimSpace(in.Category),
		Price:                in.Price,
		Currency:             currency,
		Condition:            condition,
		VerificationImageURL: vURL,
		VerificationImageKey: vKey,
		AdditionalImages:     datatypes.JSON(gallery),
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		removeObjects(ctx, stored...)
		return nil, err
	}
	return listing, nil
}

// ListListings returns visible listings. Sold listings are excluded unless requested.
func (s *MarketplaceService) ListListings(ctx context.Context, in ListListingsInput) ([]models.MarketplaceListing, int64, error) {
	filter := repository.ListingFilter{
		Category:     strings.TrimSpace(in.Category),
		MinPrice:     in.MinPrice,
		MaxPrice:     in.MaxPrice,
		SellerID:     in.SellerID,
		VerifiedOnly: in.VerifiedOnly,
		IncludeSold:  in.IncludeSold,
	}
	if strings.TrimSpace(in.Condition) != "" {
		c, err := parseCondition(in.Condition)
		if err != nil {
			return nil, 0, err
		}
		filter.Condition = c
	}
	if in.MinPrice < 0 || in.MaxPrice < 0 {
		return nil, 0, models.NewValidationError("Prices cannot be negative")
	}
	if in.MaxPrice > 0 && in.MinPrice > in.MaxPrice {
		return nil, 0, models.NewValidationError("min_price cannot exceed max_price")
	}
	switch sort := models.ListingSort(strings.ToLower(strings.TrimSpace(in.Sort))); sort {
	case "":
		filter.Sort = models.ListingSortNewest
	case models.ListingSortNewest, models.ListingSortPriceAsc, models.ListingSortPriceDesc:
		filter.Sort = sort
	default:
		return nil, 0, models.NewValidationError("sort must be one of newest, price_asc, price_desc")
	}
	return s.listings.List(ctx, filter, in.Limit, in.Offset)
}

// GetListing returns a listing. Hidden listings are visible to the seller and admins only.
func (s *MarketplaceService) GetListing(ctx context.Context, listingID, viewerID uint) (*models.MarketplaceListing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.IsHidden && !canSeeHidden(ctx, s.isAdmin, viewerID, listing.SellerID) {
		return nil, models.NewNotFoundError("Listing", listingID)
	}
	return listing, nil
}

// UpdateListing edits a listing. Only the seller may edit and sold listings are frozen.
func (s *MarketplaceService) UpdateListing(ctx context.Context, in UpdateListingInput) (*models.MarketplaceListing, error) {
	listing, err := s.listings.GetByID(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != in.UserID {
		return nil, models.NewForbiddenError("Not authorized to edit this listing")
	}
	if listing.IsSold {
		return nil, models.NewConflictError("Sold listings cannot be edited")
	}

	fields := map[string]interface{}{}
	if in.Title != nil {
		title, err := validateListingTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		fields["category"] = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		if err := validatePrice(*in.Price); err != nil {
			return nil, err
		}
		fields["price"] = *in.Price
	}
	if in.Currency != nil {
		currency, err := normalizeCurrency(*in.Currency)
		if err != nil {
			return nil, err
		}
		fields["currency"] = currency
	}
	if in.Condition != nil {
		condition, err := parseCondition(*in.Condition)
		if err != nil {
			return nil, err
		}
		fields["condition"] = condition
	}
	if len(fields) == 0 {
		return nil, models.NewValidationError("No listing fields to update")
	}
	if err := s.listings.Update(ctx, listing.ID, fields); err != nil {
		return nil, err
	}
	return s.listings.GetByID(ctx, listing.ID)
}

// MarkSold closes a listing. Only the seller may do so, once.
func (s *MarketplaceService) MarkSold(ctx context.Context, userID, listingID uint) (*models.MarketplaceListing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != userID {
		return nil, models.NewForbiddenError("Not authorized to update this listing")
	}
	ok, err := s.listings.MarkSold(ctx, listingID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflictError("Listing is already sold")
	}
	return s.listings.GetByID(ctx, listingID)
}

// DeleteListing removes a listing and its stored images.
func (s *MarketplaceService) DeleteListing(ctx context.Context, userID, listingID uint) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, userID, listing.SellerID, "delete this listing"); err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, listingID); err != nil {
		return err
	}
	removeObjects(ctx, storedObject{store: s.verification, key: listing.VerificationImageKey})
	return nil
}

// VerifyListing marks a listing as checked by an admin and notifies the seller.
func (s *MarketplaceService) VerifyListing(ctx context.Context, adminID, listingID uint) (*models.MarketplaceListing, error) {
	if !s.flags.EnabledOr(featureflags.MarketplaceVerification, adminID, true) {
		return nil, models.NewForbiddenError("Listing verification is disabled")
	}
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.IsVerified {
		return listing, nil
	}
	if err := s.listings.Verify(ctx, listingID, adminID, s.now().UTC()); err != nil {
		return nil, err
	}
	notifyQuietly(ctx, s.notifier, NotifyInput{
		UserID:  listing.SellerID,
		Type:    models.NotificationListingVerified,
		Ref:     models.ListingRef{ListingID: listing.ID},
		ActorID: adminID,
		Title:   "Listing verified",
		Body:    fmt.Sprintf("Your listing %q has been verified", listing.Title),
	})
	return s.listings.GetByID(ctx, listingID)
}
