package service

import (
	"context"

	"shutterhub/internal/models"
	"shutterhub/internal/repository"
)

// FavoriteService bookmarks photos and listings.
type FavoriteService struct {
	favorites repository.FavoriteRepository
	content   repository.ContentRepository
}

func NewFavoriteService(favorites repository.FavoriteRepository, content repository.ContentRepository) *FavoriteService {
	return &FavoriteService{favorites: favorites, content: content}
}

func (s *FavoriteService) checkTarget(ctx context.Context, ref models.ContentRef) error {
	if ref == nil || !models.IsFavoritable(ref) {
		return models.NewValidationError("Only photos and listings can be favorited")
	}
	ok, err := s.content.Exists(ctx, ref)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError(string(ref.Kind()), ref.ID())
	}
	return nil
}

// AddFavorite bookmarks ref. Adding an existing bookmark is a no-op.
func (s *FavoriteService) AddFavorite(ctx context.Context, userID uint, ref models.ContentRef) error {
	if err := s.checkTarget(ctx, ref); err != nil {
		return err
	}
	_, err := s.favorites.Add(ctx, userID, ref)
	return err
}

func (s *FavoriteService) RemoveFavorite(ctx context.Context, userID uint, ref models.ContentRef) error {
	if ref == nil || !models.IsFavoritable(ref) {
		return models.NewValidationError("Only photos and listings can be favorited")
	}
	_, err := s.favorites.Remove(ctx, userID, ref)
	return err
}

// ListFavorites returns the user's bookmarks, newest first. kind may be empty.
func (s *FavoriteService) ListFavorites(ctx context.Context, userID uint, kind string, limit, offset int) ([]models.Favorite, int64, error) {
	k := models.ContentKind(kind)
	if kind != "" && k != models.KindPhoto && k != models.KindListing {
		return nil, 0, models.NewValidationError("Invalid favorite type")
	}
	return s.favorites.List(ctx, userID, k, limit, offset)
}

func (s *FavoriteService) IsFavorited(ctx context.Context, userID uint, ref models.ContentRef) (bool, error) {
	if ref == nil {
		return false, nil
	}
	return s.favorites.Exists(ctx, userID, ref)
}
