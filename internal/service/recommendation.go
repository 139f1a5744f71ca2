package service

import (
	"context"
	"sort"
	"strings"

	"shutterhub/internal/cache"
	"shutterhub/internal/featureflags"
	"shutterhub/internal/models"
	"shutterhub/internal/observability"
)

const (
	// MaxRecommendations caps the photos returned for one photo.
	MaxRecommendations = 12
	// recommendationPool bounds the candidates scored per request.
	recommendationPool = 200

	brandWeight    = 2
	categoryWeight = 1
)

// ScoredPhoto is a recommendation candidate with its similarity score.
type ScoredPhoto struct {
	Photo models.Photo
	Score int
}

// similarityScore weighs a shared camera brand twice as much as a shared category.
// Both compare case-insensitively, as the candidate query does. Empty values never match.
func similarityScore(target, candidate *models.Photo) int {
	score := 0
	if sameLabel(target.CameraBrand, candidate.CameraBrand) {
		score += brandWeight
	}
	if sameLabel(target.Category, candidate.Category) {
		score += categoryWeight
	}
	return score
}

func sameLabel(want, got string) bool {
	want = strings.TrimSpace(want)
	return want != "" && strings.EqualFold(want, got)
}

// RankRecommendations scores candidates against target, drops the target itself, hidden
// photos and non-matches, and orders by score, then average rating, then newest id.
func RankRecommendations(target *models.Photo, candidates []models.Photo, limit int) []models.Photo {
	if limit <= 0 || limit > MaxRecommendations {
		limit = MaxRecommendations
	}
	scored := make([]ScoredPhoto, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == target.ID || c.IsHidden {
			continue
		}
		score := similarityScore(target, &c)
		if score == 0 {
			continue
		}
		scored = append(scored, ScoredPhoto{Photo: c, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Photo.AverageRating != b.Photo.AverageRating {
			return a.Photo.AverageRating > b.Photo.AverageRating
		}
		return a.Photo.ID > b.Photo.ID
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]models.Photo, 0, len(scored))
	for _, sp := range scored {
		out = append(out, sp.Photo)
	}
	return out
}

// Recommendations returns photos similar to photoID, falling back to the globally
// top-rated photos when nothing shares its brand or category. Results are cached.
func (s *PhotoService) Recommendations(ctx context.Context, photoID, viewerID uint, limit int) ([]models.Photo, error) {
	if !s.flags.EnabledOr(featureflags.Recommendations, viewerID, true) {
		return []models.Photo{}, nil
	}
	if limit <= 0 || limit > MaxRecommendations {
		limit = MaxRecommendations
	}

	var recs []models.Photo
	err := cache.Aside(ctx, cache.PhotoRecsKey(photoID), &recs, cache.PhotoRecsTTL, func() error {
		var ferr error
		recs, ferr = s.computeRecommendations(ctx, photoID)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *PhotoService) computeRecommendations(ctx context.Context, photoID uint) ([]models.Photo, error) {
	target, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}

	if target.CameraBrand != "" || target.Category != "" {
		candidates, err := s.photos.SimilarCandidates(ctx, target, recommendationPool)
		if err != nil {
			return nil, err
		}
		if ranked := RankRecommendations(target, candidates, MaxRecommendations); len(ranked) > 0 {
			return ranked, nil
		}
	}

	observability.RecommendationFallbacks.Inc()
	top, err := s.photos.TopRated(ctx, photoID, MaxRecommendations)
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = []models.Photo{}
	}
	return top, nil
}
