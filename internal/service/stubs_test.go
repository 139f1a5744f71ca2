package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"shutterhub/internal/models"
	"shutterhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertAppError asserts that err is an AppError carrying code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeForbidden)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeNotFound)
}

func assertConflictError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeConflict)
}

func notAdmin(context.Context, uint) (bool, error) { return false, nil }

func adminIDs(ids ...uint) func(context.Context, uint) (bool, error) {
	return func(_ context.Context, userID uint) (bool, error) {
		for _, id := range ids {
			if id == userID {
				return true, nil
			}
		}
		return false, nil
	}
}

// notifierSpy records NotifyInput values.
type notifierSpy struct {
	mu   sync.Mutex
	sent []NotifyInput
	err  error
}

func (n *notifierSpy) Notify(_ context.Context, in NotifyInput) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	n.sent = append(n.sent, in)
	return &models.Notification{ID: uint(len(n.sent)), UserID: in.UserID, Type: in.Type}, nil
}

func (n *notifierSpy) Sent() []NotifyInput {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]NotifyInput(nil), n.sent...)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn                func(context.Context, *models.User, *models.Profile) error
	getByIDFn               func(context.Context, uint) (*models.User, error)
	getByEmailFn            func(context.Context, string) (*models.User, error)
	updatePasswordFn        func(context.Context, uint, string) error
	setAdminFlagFn          func(context.Context, uint, bool) error
	getProfileFn            func(context.Context, uint) (*models.Profile, error)
	getProfileByUsernameFn  func(context.Context, string) (*models.Profile, error)
	getProfilesFn           func(context.Context, []uint) (map[uint]models.Profile, error)
	updateProfileFn         func(context.Context, uint, map[string]interface{}) error
	listProfilesFn          func(context.Context, string, int, int) ([]models.Profile, int64, error)
	profileStatsFn          func(context.Context, uint) (*repository.ProfileStats, error)
	listRolesFn             func(context.Context, uint) ([]string, error)
	hasRoleFn               func(context.Context, uint, string) (bool, error)
	grantRoleFn             func(context.Context, uint, string) error
	revokeRoleFn            func(context.Context, uint, string) error
	listUserIDsWithRoleFn   func(context.Context, string) ([]uint, error)
	reserveUploadFn         func(context.Context, uint, string, int) (bool, error)
	releaseUploadFn         func(context.Context, uint, string) error
	liftExpiredSuspensionFn func(context.Context, uint, time.Time) (bool, error)
	suspendFn               func(context.Context, uint, *time.Time) error
	unsuspendFn             func(context.Context, uint, bool) error
}

func (s *userRepoStub) Create(ctx context.Context, u *models.User, p *models.Profile) error {
	return s.createFn(ctx, u, p)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}
func (s *userRepoStub) SetAdminFlag(ctx context.Context, id uint, admin bool) error {
	return s.setAdminFlagFn(ctx, id, admin)
}
func (s *userRepoStub) GetProfile(ctx context.Context, id uint) (*models.Profile, error) {
	return s.getProfileFn(ctx, id)
}
func (s *userRepoStub) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	return s.getProfileByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetProfiles(ctx context.Context, ids []uint) (map[uint]models.Profile, error) {
	return s.getProfilesFn(ctx, ids)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateProfileFn(ctx, id, fields)
}
func (s *userRepoStub) ListProfiles(ctx context.Context, search string, limit, offset int) ([]models.Profile, int64, error) {
	return s.listProfilesFn(ctx, search, limit, offset)
}
func (s *userRepoStub) ProfileStats(ctx context.Context, id uint) (*repository.ProfileStats, error) {
	return s.profileStatsFn(ctx, id)
}
func (s *userRepoStub) ListRoles(ctx context.Context, id uint) ([]string, error) {
	return s.listRolesFn(ctx, id)
}
func (s *userRepoStub) HasRole(ctx context.Context, id uint, role string) (bool, error) {
	return s.hasRoleFn(ctx, id, role)
}
func (s *userRepoStub) GrantRole(ctx context.Context, id uint, role string) error {
	return s.grantRoleFn(ctx, id, role)
}
func (s *userRepoStub) RevokeRole(ctx context.Context, id uint, role string) error {
	return s.revokeRoleFn(ctx, id, role)
}
func (s *userRepoStub) ListUserIDsWithRole(ctx context.Context, role string) ([]uint, error) {
	return s.listUserIDsWithRoleFn(ctx, role)
}
func (s *userRepoStub) ReserveUpload(ctx context.Context, id uint, day string, limit int) (bool, error) {
	return s.reserveUploadFn(ctx, id, day, limit)
}
func (s *userRepoStub) ReleaseUpload(ctx context.Context, id uint, day string) error {
	return s.releaseUploadFn(ctx, id, day)
}
func (s *userRepoStub) LiftExpiredSuspension(ctx context.Context, id uint, now time.Time) (bool, error) {
	return s.liftExpiredSuspensionFn(ctx, id, now)
}
func (s *userRepoStub) Suspend(ctx context.Context, id uint, until *time.Time) error {
	return s.suspendFn(ctx, id, until)
}
func (s *userRepoStub) Unsuspend(ctx context.Context, id uint, reset bool) error {
	return s.unsuspendFn(ctx, id, reset)
}

func testProfile(userID uint) *models.Profile {
	return &models.Profile{
		ID:          userID,
		UserID:      userID,
		Username:    fmt.Sprintf("user%d", userID),
		DisplayName: fmt.Sprintf("User %d", userID),
	}
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn: func(_ context.Context, u *models.User, p *models.Profile) error {
			u.ID = 1
			p.UserID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id)}, nil
		},
		getByEmailFn: func(_ context.Context, _ string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", 0)
		},
		updatePasswordFn: func(_ context.Context, _ uint, _ string) error { return nil },
		setAdminFlagFn:   func(_ context.Context, _ uint, _ bool) error { return nil },
		getProfileFn: func(_ context.Context, id uint) (*models.Profile, error) {
			return testProfile(id), nil
		},
		getProfileByUsernameFn: func(_ context.Context, username string) (*models.Profile, error) {
			return nil, models.NewNotFoundError("Profile", username)
		},
		getProfilesFn: func(_ context.Context, ids []uint) (map[uint]models.Profile, error) {
			out := make(map[uint]models.Profile, len(ids))
			for _, id := range ids {
				out[id] = *testProfile(id)
			}
			return out, nil
		},
		updateProfileFn: func(_ context.Context, _ uint, _ map[string]interface{}) error { return nil },
		listProfilesFn: func(_ context.Context, _ string, _, _ int) ([]models.Profile, int64, error) {
			return nil, 0, nil
		},
		profileStatsFn: func(_ context.Context, _ uint) (*repository.ProfileStats, error) {
			return &repository.ProfileStats{}, nil
		},
		listRolesFn:             func(_ context.Context, _ uint) ([]string, error) { return nil, nil },
		hasRoleFn:               func(_ context.Context, _ uint, _ string) (bool, error) { return false, nil },
		grantRoleFn:             func(_ context.Context, _ uint, _ string) error { return nil },
		revokeRoleFn:            func(_ context.Context, _ uint, _ string) error { return nil },
		listUserIDsWithRoleFn:   func(_ context.Context, _ string) ([]uint, error) { return nil, nil },
		reserveUploadFn:         func(_ context.Context, _ uint, _ string, _ int) (bool, error) { return true, nil },
		releaseUploadFn:         func(_ context.Context, _ uint, _ string) error { return nil },
		liftExpiredSuspensionFn: func(_ context.Context, _ uint, _ time.Time) (bool, error) { return true, nil },
		suspendFn:               func(_ context.Context, _ uint, _ *time.Time) error { return nil },
		unsuspendFn:             func(_ context.Context, _ uint, _ bool) error { return nil },
	}
}

// suspendedUserRepo returns a user repo whose every profile is suspended until until.
func suspendedUserRepo(until time.Time) *userRepoStub {
	repo := noopUserRepo()
	repo.getProfileFn = func(_ context.Context, id uint) (*models.Profile, error) {
		p := testProfile(id)
		p.IsSuspended = true
		p.SuspendedUntil = &until
		return p, nil
	}
	return repo
}

// photoRepoStub is a stub for repository.PhotoRepository.
type photoRepoStub struct {
	createFn            func(context.Context, *models.Photo) error
	getByIDFn           func(context.Context, uint) (*models.Photo, error)
	listFn              func(context.Context, repository.PhotoFilter, int, int) ([]models.Photo, int64, error)
	listFeaturedFn      func(context.Context) ([]models.Photo, error)
	updateFn            func(context.Context, *models.Photo, []string) error
	deleteCascadeFn     func(context.Context, uint) error
	incrementViewsFn    func(context.Context, uint) error
	likeFn              func(context.Context, uint, uint) (bool, error)
	unlikeFn            func(context.Context, uint, uint) (bool, error)
	isLikedFn           func(context.Context, uint, uint) (bool, error)
	similarCandidatesFn func(context.Context, *models.Photo, int) ([]models.Photo, error)
	topRatedFn          func(context.Context, uint, int) ([]models.Photo, error)
	setFeaturedFn       func(context.Context, uint, bool) error
	setFeaturedOrderFn  func(context.Context, uint, int) error
	setHiddenFn         func(context.Context, uint, bool) error
}

func (s *photoRepoStub) Create(ctx context.Context, p *models.Photo) error { return s.createFn(ctx, p) }
func (s *photoRepoStub) GetByID(ctx context.Context, id uint) (*models.Photo, error) {
	return s.getByIDFn(ctx, id)
}
func (s *photoRepoStub) List(ctx context.Context, f repository.PhotoFilter, limit, offset int) ([]models.Photo, int64, error) {
	return s.listFn(ctx, f, limit, offset)
}
func (s *photoRepoStub) ListFeatured(ctx context.Context) ([]models.Photo, error) {
	return s.listFeaturedFn(ctx)
}
func (s *photoRepoStub) Update(ctx context.Context, p *models.Photo, tags []string) error {
	return s.updateFn(ctx, p, tags)
}
func (s *photoRepoStub) DeleteCascade(ctx context.Context, id uint) error {
	return s.deleteCascadeFn(ctx, id)
}
func (s *photoRepoStub) IncrementViews(ctx context.Context, id uint) error {
	return s.incrementViewsFn(ctx, id)
}
func (s *photoRepoStub) Like(ctx context.Context, photoID, userID uint) (bool, error) {
	return s.likeFn(ctx, photoID, userID)
}
func (s *photoRepoStub) Unlike(ctx context.Context, photoID, userID uint) (bool, error) {
	return s.unlikeFn(ctx, photoID, userID)
}
func (s *photoRepoStub) IsLiked(ctx context.Context, photoID, userID uint) (bool, error) {
	return s.isLikedFn(ctx, photoID, userID)
}
func (s *photoRepoStub) SimilarCandidates(ctx context.Context, p *models.Photo, limit int) ([]models.Photo, error) {
	return s.similarCandidatesFn(ctx, p, limit)
}
func (s *photoRepoStub) TopRated(ctx context.Context, excludeID uint, limit int) ([]models.Photo, error) {
	return s.topRatedFn(ctx, excludeID, limit)
}
func (s *photoRepoStub) SetFeatured(ctx context.Context, id uint, featured bool) error {
	return s.setFeaturedFn(ctx, id, featured)
}
func (s *photoRepoStub) SetFeaturedOrder(ctx context.Context, id uint, order int) error {
	return s.setFeaturedOrderFn(ctx, id, order)
}
func (s *photoRepoStub) SetHidden(ctx context.Context, id uint, hidden bool) error {
	return s.setHiddenFn(ctx, id, hidden)
}

func noopPhotoRepo() *photoRepoStub {
	return &photoRepoStub{
		createFn: func(_ context.Context, p *models.Photo) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Photo, error) {
			return &models.Photo{ID: id, UserID: 100, Title: "photo"}, nil
		},
		listFn: func(_ context.Context, _ repository.PhotoFilter, _, _ int) ([]models.Photo, int64, error) {
			return nil, 0, nil
		},
		listFeaturedFn:   func(_ context.Context) ([]models.Photo, error) { return nil, nil },
		updateFn:         func(_ context.Context, _ *models.Photo, _ []string) error { return nil },
		deleteCascadeFn:  func(_ context.Context, _ uint) error { return nil },
		incrementViewsFn: func(_ context.Context, _ uint) error { return nil },
		likeFn:           func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		unlikeFn:         func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		isLikedFn:        func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		similarCandidatesFn: func(_ context.Context, _ *models.Photo, _ int) ([]models.Photo, error) {
			return nil, nil
		},
		topRatedFn:         func(_ context.Context, _ uint, _ int) ([]models.Photo, error) { return nil, nil },
		setFeaturedFn:      func(_ context.Context, _ uint, _ bool) error { return nil },
		setFeaturedOrderFn: func(_ context.Context, _ uint, _ int) error { return nil },
		setHiddenFn:        func(_ context.Context, _ uint, _ bool) error { return nil },
	}
}

// ratingRepoStub is a stub for repository.RatingRepository.
type ratingRepoStub struct {
	upsertFn func(context.Context, uint, uint, int) (*repository.RatingStats, error)
	getFn    func(context.Context, uint, uint) (*models.PhotoRating, error)
}

func (s *ratingRepoStub) Upsert(ctx context.Context, photoID, userID uint, rating int) (*repository.RatingStats, error) {
	return s.upsertFn(ctx, photoID, userID, rating)
}
func (s *ratingRepoStub) Get(ctx context.Context, photoID, userID uint) (*models.PhotoRating, error) {
	return s.getFn(ctx, photoID, userID)
}

func noopRatingRepo() *ratingRepoStub {
	return &ratingRepoStub{
		upsertFn: func(_ context.Context, _, _ uint, rating int) (*repository.RatingStats, error) {
			return &repository.RatingStats{AverageRating: float64(rating), RatingCount: 1}, nil
		},
		getFn: func(_ context.Context, _, _ uint) (*models.PhotoRating, error) {
			return nil, models.NewNotFoundError("Rating", 0)
		},
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	listByPhotoFn   func(context.Context, uint) ([]models.Comment, error)
	updateContentFn func(context.Context, uint, string) error
	deleteFn        func(context.Context, uint) (int64, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPhoto(ctx context.Context, photoID uint) ([]models.Comment, error) {
	return s.listByPhotoFn(ctx, photoID)
}
func (s *commentRepoStub) UpdateContent(ctx context.Context, id uint, content string) error {
	return s.updateContentFn(ctx, id, content)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) (int64, error) {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:        func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:       func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByPhotoFn:   func(_ context.Context, _ uint) ([]models.Comment, error) { return nil, nil },
		updateContentFn: func(_ context.Context, _ uint, _ string) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) (int64, error) { return 1, nil },
	}
}

// forumRepoStub is a stub for repository.ForumRepository.
type forumRepoStub struct {
	listCategoriesFn       func(context.Context) ([]models.ForumCategory, error)
	getCategoryFn          func(context.Context, uint) (*models.ForumCategory, error)
	getCategoryBySlugFn    func(context.Context, string) (*models.ForumCategory, error)
	createCategoryFn       func(context.Context, *models.ForumCategory) error
	updateCategoryFn       func(context.Context, *models.ForumCategory) error
	deleteCategoryFn       func(context.Context, uint) error
	categoryUsageFn        func(context.Context, uint) (int64, int64, error)
	createTopicFn          func(context.Context, *models.ForumTopic) error
	getTopicFn             func(context.Context, uint) (*models.ForumTopic, error)
	listTopicsFn           func(context.Context, repository.TopicFilter, int, int) ([]models.ForumTopic, int64, error)
	updateTopicFn          func(context.Context, uint, map[string]interface{}) error
	deleteTopicFn          func(context.Context, uint) error
	incrementTopicViewsFn  func(context.Context, uint) error
	createReplyFn          func(context.Context, *models.ForumReply) error
	getReplyFn             func(context.Context, uint) (*models.ForumReply, error)
	listRepliesFn          func(context.Context, uint, int, int) ([]models.ForumReply, int64, error)
	updateReplyContentFn   func(context.Context, uint, string) error
	deleteReplyFn          func(context.Context, uint) error
}

func (s *forumRepoStub) ListCategories(ctx context.Context) ([]models.ForumCategory, error) {
	return s.listCategoriesFn(ctx)
}
func (s *forumRepoStub) GetCategory(ctx context.Context, id uint) (*models.ForumCategory, error) {
	return s.getCategoryFn(ctx, id)
}
func (s *forumRepoStub) GetCategoryBySlug(ctx context.Context, slug string) (*models.ForumCategory, error) {
	return s.getCategoryBySlugFn(ctx, slug)
}
func (s *forumRepoStub) CreateCategory(ctx context.Context, c *models.ForumCategory) error {
	return s.createCategoryFn(ctx, c)
}
func (s *forumRepoStub) UpdateCategory(ctx context.Context, c *models.ForumCategory) error {
	return s.updateCategoryFn(ctx, c)
}
func (s *forumRepoStub) DeleteCategory(ctx context.Context, id uint) error {
	return s.deleteCategoryFn(ctx, id)
}
func (s *forumRepoStub) CategoryUsage(ctx context.Context, id uint) (int64, int64, error) {
	return s.categoryUsageFn(ctx, id)
}
func (s *forumRepoStub) CreateTopic(ctx context.Context, t *models.ForumTopic) error {
	return s.createTopicFn(ctx, t)
}
func (s *forumRepoStub) GetTopic(ctx context.Context, id uint) (*models.ForumTopic, error) {
	return s.getTopicFn(ctx, id)
}
func (s *forumRepoStub) ListTopics(ctx context.Context, f repository.TopicFilter, limit, offset int) ([]models.ForumTopic, int64, error) {
	return s.listTopicsFn(ctx, f, limit, offset)
}
func (s *forumRepoStub) UpdateTopic(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateTopicFn(ctx, id, fields)
}
func (s *forumRepoStub) DeleteTopic(ctx context.Context, id uint) error {
	return s.deleteTopicFn(ctx, id)
}
func (s *forumRepoStub) IncrementTopicViews(ctx context.Context, id uint) error {
	return s.incrementTopicViewsFn(ctx, id)
}
func (s *forumRepoStub) CreateReply(ctx context.Context, r *models.ForumReply) error {
	return s.createReplyFn(ctx, r)
}
func (s *forumRepoStub) GetReply(ctx context.Context, id uint) (*models.ForumReply, error) {
	return s.getReplyFn(ctx, id)
}
func (s *forumRepoStub) ListReplies(ctx context.Context, topicID uint, limit, offset int) ([]models.ForumReply, int64, error) {
	return s.listRepliesFn(ctx, topicID, limit, offset)
}
func (s *forumRepoStub) UpdateReplyContent(ctx context.Context, id uint, content string) error {
	return s.updateReplyContentFn(ctx, id, content)
}
func (s *forumRepoStub) DeleteReply(ctx context.Context, id uint) error {
	return s.deleteReplyFn(ctx, id)
}

func noopForumRepo() *forumRepoStub {
	return &forumRepoStub{
		listCategoriesFn: func(_ context.Context) ([]models.ForumCategory, error) { return nil, nil },
		getCategoryFn: func(_ context.Context, id uint) (*models.ForumCategory, error) {
			return &models.ForumCategory{ID: id, Name: "General", Slug: "general"}, nil
		},
		getCategoryBySlugFn: func(_ context.Context, slug string) (*models.ForumCategory, error) {
			return nil, models.NewNotFoundError("Category", slug)
		},
		createCategoryFn: func(_ context.Context, c *models.ForumCategory) error {
			c.ID = 1
			return nil
		},
		updateCategoryFn: func(_ context.Context, _ *models.ForumCategory) error { return nil },
		deleteCategoryFn: func(_ context.Context, _ uint) error { return nil },
		categoryUsageFn:  func(_ context.Context, _ uint) (int64, int64, error) { return 0, 0, nil },
		createTopicFn: func(_ context.Context, t *models.ForumTopic) error {
			t.ID = 1
			return nil
		},
		getTopicFn: func(_ context.Context, id uint) (*models.ForumTopic, error) {
			return &models.ForumTopic{ID: id, UserID: 100, Title: "topic", CategoryID: 1, Category: "general"}, nil
		},
		listTopicsFn: func(_ context.Context, _ repository.TopicFilter, _, _ int) ([]models.ForumTopic, int64, error) {
			return nil, 0, nil
		},
		updateTopicFn:         func(_ context.Context, _ uint, _ map[string]interface{}) error { return nil },
		deleteTopicFn:         func(_ context.Context, _ uint) error { return nil },
		incrementTopicViewsFn: func(_ context.Context, _ uint) error { return nil },
		createReplyFn: func(_ context.Context, r *models.ForumReply) error {
			r.ID = 1
			return nil
		},
		getReplyFn: func(_ context.Context, id uint) (*models.ForumReply, error) {
			return &models.ForumReply{ID: id, TopicID: 1, UserID: 100}, nil
		},
		listRepliesFn: func(_ context.Context, _ uint, _, _ int) ([]models.ForumReply, int64, error) {
			return nil, 0, nil
		},
		updateReplyContentFn: func(_ context.Context, _ uint, _ string) error { return nil },
		deleteReplyFn:        func(_ context.Context, _ uint) error { return nil },
	}
}

// listingRepoStub is a stub for repository.ListingRepository.
type listingRepoStub struct {
	createFn   func(context.Context, *models.MarketplaceListing) error
	getByIDFn  func(context.Context, uint) (*models.MarketplaceListing, error)
	listFn     func(context.Context, repository.ListingFilter, int, int) ([]models.MarketplaceListing, int64, error)
	updateFn   func(context.Context, uint, map[string]interface{}) error
	markSoldFn func(context.Context, uint, time.Time) (bool, error)
	verifyFn   func(context.Context, uint, uint, time.Time) error
	deleteFn   func(context.Context, uint) error
}

func (s *listingRepoStub) Create(ctx context.Context, l *models.MarketplaceListing) error {
	return s.createFn(ctx, l)
}
func (s *listingRepoStub) GetByID(ctx context.Context, id uint) (*models.MarketplaceListing, error) {
	return s.getByIDFn(ctx, id)
}
func (s *listingRepoStub) List(ctx context.Context, f repository.ListingFilter, limit, offset int) ([]models.MarketplaceListing, int64, error) {
	return s.listFn(ctx, f, limit, offset)
}
func (s *listingRepoStub) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateFn(ctx, id, fields)
}
func (s *listingRepoStub) MarkSold(ctx context.Context, id uint, at time.Time) (bool, error) {
	return s.markSoldFn(ctx, id, at)
}
func (s *listingRepoStub) Verify(ctx context.Context, id, adminID uint, at time.Time) error {
	return s.verifyFn(ctx, id, adminID, at)
}
func (s *listingRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }

func noopListingRepo() *listingRepoStub {
	return &listingRepoStub{
		createFn: func(_ context.Context, l *models.MarketplaceListing) error {
			l.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.MarketplaceListing, error) {
			return &models.MarketplaceListing{ID: id, SellerID: 100, Title: "Lens", Price: 1000, Currency: "JPY"}, nil
		},
		listFn: func(_ context.Context, _ repository.ListingFilter, _, _ int) ([]models.MarketplaceListing, int64, error) {
			return nil, 0, nil
		},
		updateFn:   func(_ context.Context, _ uint, _ map[string]interface{}) error { return nil },
		markSoldFn: func(_ context.Context, _ uint, _ time.Time) (bool, error) { return true, nil },
		verifyFn:   func(_ context.Context, _, _ uint, _ time.Time) error { return nil },
		deleteFn:   func(_ context.Context, _ uint) error { return nil },
	}
}

// chatRepoStub is a stub for repository.ChatRepository.
type chatRepoStub struct {
	findConversationFn   func(context.Context, uint, uint, *uint) (*models.Conversation, error)
	createConversationFn func(context.Context, *models.Conversation) error
	getConversationFn    func(context.Context, uint) (*models.Conversation, error)
	listConversationsFn  func(context.Context, uint) ([]models.Conversation, error)
	lastMessageFn        func(context.Context, uint) (*models.Message, error)
	unreadCountFn        func(context.Context, uint, uint) (int64, error)
	createMessageFn      func(context.Context, *models.Message) error
	listMessagesFn       func(context.Context, uint, int, int) ([]models.Message, error)
	getMessageFn         func(context.Context, uint) (*models.Message, error)
	markReadFn           func(context.Context, uint, uint) (int64, error)
}

func (s *chatRepoStub) FindConversation(ctx context.Context, a, b uint, listingID *uint) (*models.Conversation, error) {
	return s.findConversationFn(ctx, a, b, listingID)
}
func (s *chatRepoStub) CreateConversation(ctx context.Context, c *models.Conversation) error {
	return s.createConversationFn(ctx, c)
}
func (s *chatRepoStub) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	return s.getConversationFn(ctx, id)
}
func (s *chatRepoStub) ListConversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	return s.listConversationsFn(ctx, userID)
}
func (s *chatRepoStub) LastMessage(ctx context.Context, convID uint) (*models.Message, error) {
	return s.lastMessageFn(ctx, convID)
}
func (s *chatRepoStub) UnreadCount(ctx context.Context, convID, readerID uint) (int64, error) {
	return s.unreadCountFn(ctx, convID, readerID)
}
func (s *chatRepoStub) CreateMessage(ctx context.Context, m *models.Message) error {
	return s.createMessageFn(ctx, m)
}
func (s *chatRepoStub) ListMessages(ctx context.Context, convID uint, limit, offset int) ([]models.Message, error) {
	return s.listMessagesFn(ctx, convID, limit, offset)
}
func (s *chatRepoStub) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	return s.getMessageFn(ctx, id)
}
func (s *chatRepoStub) MarkRead(ctx context.Context, convID, readerID uint) (int64, error) {
	return s.markReadFn(ctx, convID, readerID)
}

func noopChatRepo() *chatRepoStub {
	return &chatRepoStub{
		findConversationFn: func(_ context.Context, _, _ uint, _ *uint) (*models.Conversation, error) {
			return nil, models.NewNotFoundError("Conversation", 0)
		},
		createConversationFn: func(_ context.Context, c *models.Conversation) error {
			c.ID = 1
			return nil
		},
		getConversationFn: func(_ context.Context, id uint) (*models.Conversation, error) {
			return &models.Conversation{ID: id, ParticipantOneID: 1, ParticipantTwoID: 2}, nil
		},
		listConversationsFn: func(_ context.Context, _ uint) ([]models.Conversation, error) { return nil, nil },
		lastMessageFn:       func(_ context.Context, _ uint) (*models.Message, error) { return nil, nil },
		unreadCountFn:       func(_ context.Context, _, _ uint) (int64, error) { return 0, nil },
		createMessageFn: func(_ context.Context, m *models.Message) error {
			m.ID = 1
			return nil
		},
		listMessagesFn: func(_ context.Context, _ uint, _, _ int) ([]models.Message, error) { return nil, nil },
		getMessageFn: func(_ context.Context, id uint) (*models.Message, error) {
			return &models.Message{ID: id}, nil
		},
		markReadFn: func(_ context.Context, _, _ uint) (int64, error) { return 0, nil },
	}
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	createFn      func(context.Context, *models.Notification) error
	listFn        func(context.Context, uint, bool, int, int) ([]models.Notification, int64, error)
	unreadCountFn func(context.Context, uint) (int64, error)
	markReadFn    func(context.Context, uint, uint) (bool, error)
	markAllReadFn func(context.Context, uint) (int64, error)
	sinceFn       func(context.Context, uint, uint, int) ([]models.Notification, error)
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	return s.createFn(ctx, n)
}
func (s *notificationRepoStub) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	return s.listFn(ctx, userID, unreadOnly, limit, offset)
}
func (s *notificationRepoStub) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.unreadCountFn(ctx, userID)
}
func (s *notificationRepoStub) MarkRead(ctx context.Context, id, userID uint) (bool, error) {
	return s.markReadFn(ctx, id, userID)
}
func (s *notificationRepoStub) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.markAllReadFn(ctx, userID)
}
func (s *notificationRepoStub) Since(ctx context.Context, userID, cursor uint, limit int) ([]models.Notification, error) {
	return s.sinceFn(ctx, userID, cursor, limit)
}

func noopNotificationRepo() *notificationRepoStub {
	return &notificationRepoStub{
		createFn: func(_ context.Context, n *models.Notification) error {
			n.ID = 1
			return nil
		},
		listFn: func(_ context.Context, _ uint, _ bool, _, _ int) ([]models.Notification, int64, error) {
			return nil, 0, nil
		},
		unreadCountFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		markReadFn:    func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		markAllReadFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		sinceFn:       func(_ context.Context, _, _ uint, _ int) ([]models.Notification, error) { return nil, nil },
	}
}

// reportRepoStub is a stub for repository.ReportRepository.
type reportRepoStub struct {
	createFn       func(context.Context, *models.Report) error
	getByIDFn      func(context.Context, uint) (*models.Report, error)
	listFn         func(context.Context, repository.ReportFilter, int, int) ([]models.Report, int64, error)
	hasPendingFn   func(context.Context, uint, models.ContentRef) (bool, error)
	countForUserFn func(context.Context, uint) (int64, int64, error)
	applyActionFn  func(context.Context, repository.ReportActionParams) (*repository.ReportActionOutcome, error)
}

func (s *reportRepoStub) Create(ctx context.Context, r *models.Report) error { return s.createFn(ctx, r) }
func (s *reportRepoStub) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	return s.getByIDFn(ctx, id)
}
func (s *reportRepoStub) List(ctx context.Context, f repository.ReportFilter, limit, offset int) ([]models.Report, int64, error) {
	return s.listFn(ctx, f, limit, offset)
}
func (s *reportRepoStub) HasPending(ctx context.Context, reporterID uint, ref models.ContentRef) (bool, error) {
	return s.hasPendingFn(ctx, reporterID, ref)
}
func (s *reportRepoStub) CountForUser(ctx context.Context, userID uint) (int64, int64, error) {
	return s.countForUserFn(ctx, userID)
}
func (s *reportRepoStub) ApplyAction(ctx context.Context, p repository.ReportActionParams) (*repository.ReportActionOutcome, error) {
	return s.applyActionFn(ctx, p)
}

func noopReportRepo() *reportRepoStub {
	return &reportRepoStub{
		createFn: func(_ context.Context, r *models.Report) error {
			r.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Report, error) {
			return &models.Report{ID: id, Status: models.ReportStatusPending}, nil
		},
		listFn: func(_ context.Context, _ repository.ReportFilter, _, _ int) ([]models.Report, int64, error) {
			return nil, 0, nil
		},
		hasPendingFn:   func(_ context.Context, _ uint, _ models.ContentRef) (bool, error) { return false, nil },
		countForUserFn: func(_ context.Context, _ uint) (int64, int64, error) { return 0, 0, nil },
		applyActionFn: func(_ context.Context, p repository.ReportActionParams) (*repository.ReportActionOutcome, error) {
			action := p.Action
			return &repository.ReportActionOutcome{Report: &models.Report{
				ID:          p.ReportID,
				ContentType: string(models.KindPhoto),
				ContentID:   1,
				Status:      p.Action.ResultingStatus(),
				Action:      &action,
			}}, nil
		},
	}
}

// contentRepoStub is a stub for repository.ContentRepository.
type contentRepoStub struct {
	ownerOfFn func(context.Context, models.ContentRef) (uint, error)
	existsFn  func(context.Context, models.ContentRef) (bool, error)
}

func (s *contentRepoStub) OwnerOf(ctx context.Context, ref models.ContentRef) (uint, error) {
	return s.ownerOfFn(ctx, ref)
}
func (s *contentRepoStub) Exists(ctx context.Context, ref models.ContentRef) (bool, error) {
	return s.existsFn(ctx, ref)
}

func noopContentRepo() *contentRepoStub {
	return &contentRepoStub{
		ownerOfFn: func(_ context.Context, _ models.ContentRef) (uint, error) { return 100, nil },
		existsFn:  func(_ context.Context, _ models.ContentRef) (bool, error) { return true, nil },
	}
}

// favoriteRepoStub is a stub for repository.FavoriteRepository.
type favoriteRepoStub struct {
	addFn    func(context.Context, uint, models.ContentRef) (bool, error)
	removeFn func(context.Context, uint, models.ContentRef) (bool, error)
	existsFn func(context.Context, uint, models.ContentRef) (bool, error)
	listFn   func(context.Context, uint, models.ContentKind, int, int) ([]models.Favorite, int64, error)
}

func (s *favoriteRepoStub) Add(ctx context.Context, userID uint, ref models.ContentRef) (bool, error) {
	return s.addFn(ctx, userID, ref)
}
func (s *favoriteRepoStub) Remove(ctx context.Context, userID uint, ref models.ContentRef) (bool, error) {
	return s.removeFn(ctx, userID, ref)
}
func (s *favoriteRepoStub) Exists(ctx context.Context, userID uint, ref models.ContentRef) (bool, error) {
	return s.existsFn(ctx, userID, ref)
}
func (s *favoriteRepoStub) List(ctx context.Context, userID uint, kind models.ContentKind, limit, offset int) ([]models.Favorite, int64, error) {
	return s.listFn(ctx, userID, kind, limit, offset)
}

func noopFavoriteRepo() *favoriteRepoStub {
	return &favoriteRepoStub{
		addFn:    func(_ context.Context, _ uint, _ models.ContentRef) (bool, error) { return true, nil },
		removeFn: func(_ context.Context, _ uint, _ models.ContentRef) (bool, error) { return true, nil },
		existsFn: func(_ context.Context, _ uint, _ models.ContentRef) (bool, error) { return false, nil },
		listFn: func(_ context.Context, _ uint, _ models.ContentKind, _, _ int) ([]models.Favorite, int64, error) {
			return nil, 0, nil
		},
	}
}

// homepageRepoStub is a stub for repository.HomepageRepository.
type homepageRepoStub struct {
	listFn          func(context.Context, bool) ([]models.HomepageSection, error)
	getByIDFn       func(context.Context, uint) (*models.HomepageSection, error)
	createFn        func(context.Context, *models.HomepageSection) error
	updateFn        func(context.Context, uint, map[string]interface{}) error
	deleteFn        func(context.Context, uint) error
	setSortOrderFn  func(context.Context, uint, int) error
	nextSortOrderFn func(context.Context) (int, error)
}

func (s *homepageRepoStub) List(ctx context.Context, visibleOnly bool) ([]models.HomepageSection, error) {
	return s.listFn(ctx, visibleOnly)
}
func (s *homepageRepoStub) GetByID(ctx context.Context, id uint) (*models.HomepageSection, error) {
	return s.getByIDFn(ctx, id)
}
func (s *homepageRepoStub) Create(ctx context.Context, sec *models.HomepageSection) error {
	return s.createFn(ctx, sec)
}
func (s *homepageRepoStub) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateFn(ctx, id, fields)
}
func (s *homepageRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *homepageRepoStub) SetSortOrder(ctx context.Context, id uint, order int) error {
	return s.setSortOrderFn(ctx, id, order)
}
func (s *homepageRepoStub) NextSortOrder(ctx context.Context) (int, error) {
	return s.nextSortOrderFn(ctx)
}

func noopHomepageRepo() *homepageRepoStub {
	return &homepageRepoStub{
		listFn: func(_ context.Context, _ bool) ([]models.HomepageSection, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.HomepageSection, error) {
			return &models.HomepageSection{ID: id, Key: "featured", Title: "Featured", IsVisible: true}, nil
		},
		createFn: func(_ context.Context, sec *models.HomepageSection) error {
			sec.ID = 1
			return nil
		},
		updateFn:        func(_ context.Context, _ uint, _ map[string]interface{}) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		setSortOrderFn:  func(_ context.Context, _ uint, _ int) error { return nil },
		nextSortOrderFn: func(_ context.Context) (int, error) { return 0, nil },
	}
}

// statsRepoStub is a stub for repository.StatsRepository.
type statsRepoStub struct {
	collectFn func(context.Context) (*models.AdminStats, error)
}

func (s *statsRepoStub) Collect(ctx context.Context) (*models.AdminStats, error) {
	return s.collectFn(ctx)
}
