package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"shutterhub/internal/cache"
	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/repository"
	"shutterhub/internal/validation"
)

const (
	maxTopicTitleLen   = 200
	maxTopicContentLen = 20000
	maxReplyLen        = 10000
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// CategoryInput creates or edits a forum category. On update, nil fields are left untouched.
type CategoryInput struct {
	ParentID    *uint
	ClearParent bool
	Name        *string
	Slug        *string
	Description *string
	Color       *string
	Icon        *string
	SortOrder   *int
}

// CreateTopicInput opens a topic in a category given by id or slug.
type CreateTopicInput struct {
	UserID       uint
	CategoryID   uint
	CategorySlug string
	Title        string
	Content      string
}

// ListTopicsInput is a topic listing query.
type ListTopicsInput struct {
	CategoryID   uint
	CategorySlug string
	UserID       uint
	Limit        int
	Offset       int
}

// UpdateTopicInput edits a topic. Nil fields are left untouched.
type UpdateTopicInput struct {
	UserID     uint
	TopicID    uint
	Title      *string
	Content    *string
	CategoryID *uint
}

// CreateReplyInput answers a topic.
type CreateReplyInput struct {
	UserID  uint
	TopicID uint
	Content string
}

// ForumService runs the two-level category tree, topics and replies.
type ForumService struct {
	forum    repository.ForumRepository
	users    repository.UserRepository
	notifier NotificationSender
	gate     *PostingGate
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
}

// NewForumService creates a ForumService.
func NewForumService(
	forum repository.ForumRepository,
	users repository.UserRepository,
	notifier NotificationSender,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *ForumService {
	return &ForumService{
		forum:    forum,
		users:    users,
		notifier: notifier,
		gate:     NewPostingGate(users),
		isAdmin:  isAdmin,
	}
}

// ListCategoryTree returns root categories with their children. Categories that would
// form a third level are dropped and logged.
func (s *ForumService) ListCategoryTree(ctx context.Context) ([]models.CategoryNode, error) {
	var nodes []models.CategoryNode
	err := cache.Aside(ctx, cache.ForumCategoriesKey, &nodes, cache.ForumCategoriesTTL, func() error {
		categories, err := s.forum.ListCategories(ctx)
		if err != nil {
			return err
		}
		var dropped []models.ForumCategory
		nodes, dropped = models.BuildCategoryTree(categories)
		for _, c := range dropped {
			middleware.Logger.WarnContext(ctx, "forum category dropped from tree", "category_id", c.ID, "slug", c.Slug)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// CreateCategory adds a category. A parent must be a root category.
func (s *ForumService) CreateCategory(ctx context.Context, in CategoryInput) (*models.ForumCategory, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, models.NewValidationError("Category name is required")
	}
	category := &models.ForumCategory{}
	if err := s.applyCategoryInput(ctx, category, in); err != nil {
		return nil, err
	}
	if err := s.forum.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	cache.InvalidateForumCategories(ctx)
	return category, nil
}

// UpdateCategory edits a category. Topics keep their slug mirror in sync.
func (s *ForumService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.ForumCategory, error) {
	category, err := s.forum.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyCategoryInput(ctx, category, in); err != nil {
		return nil, err
	}
	if category.ParentID != nil {
		_, children, err := s.forum.CategoryUsage(ctx, id)
		if err != nil {
			return nil, err
		}
		if children > 0 {
			return nil, models.NewValidationError("A category with subcategories cannot become a subcategory")
		}
	}
	if err := s.forum.UpdateCategory(ctx, category); err != nil {
		return nil, err
	}
	cache.InvalidateForumCategories(ctx)
	return category, nil
}

// DeleteCategory removes an empty category. Categories with topics or children are kept.
func (s *ForumService) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.forum.GetCategory(ctx, id); err != nil {
		return err
	}
	topics, children, err := s.forum.CategoryUsage(ctx, id)
	if err != nil {
		return err
	}
	if topics > 0 || children > 0 {
		return models.NewConflictError(fmt.Sprintf("Category still has %d topics and %d subcategories", topics, children))
	}
	if err := s.forum.DeleteCategory(ctx, id); err != nil {
		return err
	}
	cache.InvalidateForumCategories(ctx)
	return nil
}

func (s *ForumService) applyCategoryInput(ctx context.Context, c *models.ForumCategory, in CategoryInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || utf8.RuneCountInString(name) > 120 {
			return models.NewValidationError("Category name must be 1-120 characters")
		}
		c.Name = name
	}
	switch {
	case in.Slug != nil && strings.TrimSpace(*in.Slug) != "":
		c.Slug = strings.ToLower(strings.TrimSpace(*in.Slug))
	case c.Slug == "":
		c.Slug = Slugify(c.Name)
	}
	if err := validation.ValidateCategorySlug(c.Slug); err != nil {
		return models.NewValidationError(err.Error())
	}
	setTrimmed(&c.Description, in.Description)
	setTrimmed(&c.Color, in.Color)
	setTrimmed(&c.Icon, in.Icon)
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}

	if in.ClearParent {
		c.ParentID = nil
	} else if in.ParentID != nil {
		if c.ID != 0 && *in.ParentID == c.ID {
			return models.NewValidationError("A category cannot be its own parent")
		}
		parent, err := s.forum.GetCategory(ctx, *in.ParentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return models.NewValidationError("Parent category does not exist")
			}
			return err
		}
		if !parent.IsRoot() {
			return models.NewValidationError("Parent must be a top-level category")
		}
		pid := parent.ID
		c.ParentID = &pid
	}
	return nil
}

// Slugify lowercases name and joins its alphanumeric runs with hyphens.
func Slugify(name string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func (s *ForumService) resolveCategory(ctx context.Context, id uint, slug string) (*models.ForumCategory, error) {
	if id != 0 {
		c, err := s.forum.GetCategory(ctx, id)
		if err != nil && repository.IsNotFound(err) {
			return nil, models.NewValidationError("Category does not exist")
		}
		return c, err
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, models.NewValidationError("Category is required")
	}
	c, err := s.forum.GetCategoryBySlug(ctx, slug)
	if err != nil && repository.IsNotFound(err) {
		return nil, models.NewValidationError("Category does not exist")
	}
	return c, err
}

func validateTopicText(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return "", "", models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTopicTitleLen {
		return "", "", models.NewValidationError("Title too long (max 200 characters)")
	}
	if content == "" {
		return "", "", models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxTopicContentLen {
		return "", "", models.NewValidationError("Content too long (max 20000 characters)")
	}
	return title, content, nil
}

// CreateTopic opens a topic. The category text column is derived from the category slug.
func (s *ForumService) CreateTopic(ctx context.Context, in CreateTopicInput) (*models.ForumTopic, error) {
	title, content, err := validateTopicText(in.Title, in.Content)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(ctx, in.UserID); err != nil {
		return nil, err
	}
	category, err := s.resolveCategory(ctx, in.CategoryID, in.CategorySlug)
	if err != nil {
		return nil, err
	}

	topic := &models.ForumTopic{
		UserID:     in.UserID,
		CategoryID: category.ID,
		Category:   category.Slug,
		Title:      title,
		Content:    content,
	}
	if err := s.forum.CreateTopic(ctx, topic); err != nil {
		return nil, err
	}
	return s.forum.GetTopic(ctx, topic.ID)
}

// ListTopics returns visible topics, pinned first then by latest activity.
func (s *ForumService) ListTopics(ctx context.Context, in ListTopicsInput) ([]models.ForumTopic, int64, error) {
	filter := repository.TopicFilter{UserID: in.UserID}
	if in.CategoryID != 0 || strings.TrimSpace(in.CategorySlug) != "" {
		category, err := s.resolveCategory(ctx, in.CategoryID, in.CategorySlug)
		if err != nil {
			if models.ErrorCode(err) == models.CodeValidation {
				return nil, 0, models.NewNotFoundError("Category", firstNonEmpty(in.CategorySlug, fmt.Sprint(in.CategoryID)))
			}
			return nil, 0, err
		}
		filter.CategoryID = category.ID
	}
	return s.forum.ListTopics(ctx, filter, in.Limit, in.Offset)
}

// GetTopic returns a topic and counts the view. Hidden topics are visible to the author
// and admins only.
func (s *ForumService) GetTopic(ctx context.Context, topicID, viewerID uint) (*models.ForumTopic, error) {
	topic, err := s.forum.GetTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if topic.IsHidden && !canSeeHidden(ctx, s.isAdmin, viewerID, topic.UserID) {
		return nil, models.NewNotFoundError("Topic", topicID)
	}
	if err := s.forum.IncrementTopicViews(ctx, topicID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to count topic view", "topic_id", topicID, "error", err)
	} else {
		topic.ViewCount++
	}
	return topic, nil
}

// UpdateTopic edits a topic. Moving it to another category rewrites the slug mirror.
func (s *ForumService) UpdateTopic(ctx context.Context, in UpdateTopicInput) (*models.ForumTopic, error) {
	topic, err := s.forum.GetTopic(ctx, in.TopicID)
	if err != nil {
		return nil, err
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, in.UserID, topic.UserID, "edit this topic"); err != nil {
		return nil, err
	}

	title, content := topic.Title, topic.Content
	if in.Title != nil {
		title = *in.Title
	}
	if in.Content != nil {
		content = *in.Content
	}
	title, content, err = validateTopicText(title, content)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{"title": title, "content": content}
	if in.CategoryID != nil && *in.CategoryID != topic.CategoryID {
		category, err := s.resolveCategory(ctx, *in.CategoryID, "")
		if err != nil {
			return nil, err
		}
		fields["category_id"] = category.ID
		fields["category"] = category.Slug
	}
	if err := s.forum.UpdateTopic(ctx, topic.ID, fields); err != nil {
		return nil, err
	}
	return s.forum.GetTopic(ctx, topic.ID)
}

// DeleteTopic removes a topic with its replies.
func (s *ForumService) DeleteTopic(ctx context.Context, userID, topicID uint) error {
	topic, err := s.forum.GetTopic(ctx, topicID)
	if err != nil {
		return err
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, userID, topic.UserID, "delete this topic"); err != nil {
		return err
	}
	return s.forum.DeleteTopic(ctx, topicID)
}

// PinTopic pins or unpins a topic.
func (s *ForumService) PinTopic(ctx context.Context, topicID uint, pinned bool) (*models.ForumTopic, error) {
	return s.setTopicFlag(ctx, topicID, "is_pinned", pinned)
}

// LockTopic locks or unlocks a topic. Locked topics accept no replies.
func (s *ForumService) LockTopic(ctx context.Context, topicID uint, locked bool) (*models.ForumTopic, error) {
	return s.setTopicFlag(ctx, topicID, "is_locked", locked)
}

func (s *ForumService) setTopicFlag(ctx context.Context, topicID uint, column string, value bool) (*models.ForumTopic, error) {
	if _, err := s.forum.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}
	if err := s.forum.UpdateTopic(ctx, topicID, map[string]interface{}{column: value}); err != nil {
		return nil, err
	}
	return s.forum.GetTopic(ctx, topicID)
}

// CreateReply answers a topic and notifies its author.
func (s *ForumService) CreateReply(ctx context.Context, in CreateReplyInput) (*models.ForumReply, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxReplyLen {
		return nil, models.NewValidationError("Reply too long (max 10000 characters)")
	}
	if err := s.gate.Check(ctx, in.UserID); err != nil {
		return nil, err
	}
	topic, err := s.forum.GetTopic(ctx, in.TopicID)
	if err != nil {
		return nil, err
	}
	if topic.IsHidden {
		return nil, models.NewNotFoundError("Topic", in.TopicID)
	}
	if topic.IsLocked {
		return nil, models.NewForbiddenError("Topic is locked")
	}

	reply := &models.ForumReply{TopicID: topic.ID, UserID: in.UserID, Content: content}
	if err := s.forum.CreateReply(ctx, reply); err != nil {
		return nil, err
	}
	notifyQuietly(ctx, s.notifier, NotifyInput{
		UserID:  topic.UserID,
		Type:    models.NotificationReply,
		Ref:     models.TopicRef{TopicID: topic.ID},
		ActorID: in.UserID,
		Title:   "New reply",
		Body:    fmt.Sprintf("%s replied to %q", displayName(ctx, s.users, in.UserID), topic.Title),
		Data:    map[string]interface{}{"reply_id": reply.ID},
	})
	return s.forum.GetReply(ctx, reply.ID)
}

// ListReplies returns a page of visible replies, oldest first.
func (s *ForumService) ListReplies(ctx context.Context, topicID uint, limit, offset int) ([]models.ForumReply, int64, error) {
	if _, err := s.forum.GetTopic(ctx, topicID); err != nil {
		return nil, 0, err
	}
	return s.forum.ListReplies(ctx, topicID, limit, offset)
}

// UpdateReply edits the caller's own reply.
func (s *ForumService) UpdateReply(ctx context.Context, userID, replyID uint, content string) (*models.ForumReply, error) {
	reply, err := s.forum.GetReply(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if reply.UserID != userID {
		return nil, models.NewForbiddenError("Not authorized to edit this reply")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxReplyLen {
		return nil, models.NewValidationError("Reply too long (max 10000 characters)")
	}
	if err := s.forum.UpdateReplyContent(ctx, replyID, content); err != nil {
		return nil, err
	}
	return s.forum.GetReply(ctx, replyID)
}

// DeleteReply removes a reply.
func (s *ForumService) DeleteReply(ctx context.Context, userID, replyID uint) error {
	reply, err := s.forum.GetReply(ctx, replyID)
	if err != nil {
		return err
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, userID, reply.UserID, "delete this reply"); err != nil {
		return err
	}
	return s.forum.DeleteReply(ctx, replyID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
