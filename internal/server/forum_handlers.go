package server

import (
	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultTopicPage = 20
	defaultReplyPage = 50
)

type categoryRequest struct {
	ParentID    *uint   `json:"parent_id"`
	ClearParent bool    `json:"clear_parent"`
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	SortOrder   *int    `json:"sort_order"`
}

func (r categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{
		ParentID:    r.ParentID,
		ClearParent: r.ClearParent,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Color:       r.Color,
		Icon:        r.Icon,
		SortOrder:   r.SortOrder,
	}
}

// ListForumCategories handles GET /api/forum/categories
// @Summary Forum category tree
// @Description Root categories with their children, ordered by sort order
// @Tags forum
// @Produce json
// @Success 200 {array} models.CategoryNode
// @Router /forum/categories [get]
func (s *Server) ListForumCategories(c *fiber.Ctx) error {
	tree, err := s.forumService.ListCategoryTree(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(tree)
}

// ListTopics handles GET /api/forum/topics
// @Summary List topics
// @Description Pinned topics first, then by last activity
// @Tags forum
// @Produce json
// @Param category_id query int false "Category ID"
// @Param category query string false "Category slug"
// @Param user_id query int false "Author"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} object{topics=[]models.ForumTopic,total=int}
// @Router /forum/topics [get]
func (s *Server) ListTopics(c *fiber.Ctx) error {
	page := parsePagination(c, defaultTopicPage)
	topics, total, err := s.forumService.ListTopics(c.UserContext(), service.ListTopicsInput{
		CategoryID:   uint(c.QueryInt("category_id", 0)),
		CategorySlug: c.Query("category"),
		UserID:       uint(c.QueryInt("user_id", 0)),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"topics": topics, "total": total})
}

// GetTopic handles GET /api/forum/topics/:id
// @Summary Get a topic
// @Tags forum
// @Produce json
// @Param id path int true "Topic ID"
// @Success 200 {object} models.ForumTopic
// @Failure 404 {object} models.ErrorResponse
// @Router /forum/topics/{id} [get]
func (s *Server) GetTopic(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	topic, err := s.forumService.GetTopic(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(topic)
}

// CreateTopic handles POST /api/forum/topics
// @Summary Open a topic
// @Tags forum
// @Accept json
// @Produce json
// @Param request body object{category_id=int,category=string,title=string,content=string} true "Topic"
// @Success 201 {object} models.ForumTopic
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /forum/topics [post]
func (s *Server) CreateTopic(c *fiber.Ctx) error {
	var req struct {
		CategoryID uint   `json:"category_id"`
		Category   string `json:"category"`
		Title      string `json:"title"`
		Content    string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	topic, err := s.forumService.CreateTopic(c.UserContext(), service.CreateTopicInput{
		UserID:       sessionFrom(c).UserID,
		CategoryID:   req.CategoryID,
		CategorySlug: req.Category,
		Title:        req.Title,
		Content:      req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(topic)
}

// UpdateTopic handles PUT /api/forum/topics/:id
// @Summary Edit a topic
// @Tags forum
// @Accept json
// @Produce json
// @Param id path int true "Topic ID"
// @Param request body object{title=string,content=string,category_id=int} true "Fields to change"
// @Success 200 {object} models.ForumTopic
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /forum/topics/{id} [put]
func (s *Server) UpdateTopic(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Title      *string `json:"title"`
		Content    *string `json:"content"`
		CategoryID *uint   `json:"category_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	topic, err := s.forumService.UpdateTopic(c.UserContext(), service.UpdateTopicInput{
		UserID:     sessionFrom(c).UserID,
		TopicID:    id,
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(topic)
}

// DeleteTopic handles DELETE /api/forum/topics/:id
// @Summary Delete a topic
// @Tags forum
// @Param id path int true "Topic ID"
// @Success 204
// @Security BearerAuth
// @Router /forum/topics/{id} [delete]
func (s *Server) DeleteTopic(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.forumService.DeleteTopic(c.UserContext(), sessionFrom(c).UserID, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListReplies handles GET /api/forum/topics/:id/replies
// @Summary List replies
// @Tags forum
// @Produce json
// @Param id path int true "Topic ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} object{replies=[]models.ForumReply,total=int}
// @Router /forum/topics/{id}/replies [get]
func (s *Server) ListReplies(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultReplyPage)
	replies, total, err := s.forumService.ListReplies(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"replies": replies, "total": total})
}

// CreateReply handles POST /api/forum/topics/:id/replies
// @Summary Reply to a topic
// @Description Locked topics refuse replies
// @Tags forum
// @Accept json
// @Produce json
// @Param id path int true "Topic ID"
// @Param request body object{content=string} true "Reply"
// @Success 201 {object} models.ForumReply
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /forum/topics/{id}/replies [post]
func (s *Server) CreateReply(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	reply, err := s.forumService.CreateReply(c.UserContext(), service.CreateReplyInput{
		UserID:  sessionFrom(c).UserID,
		TopicID: id,
		Content: req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}

// UpdateReply handles PUT /api/forum/replies/:id
func (s *Server) UpdateReply(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	reply, err := s.forumService.UpdateReply(c.UserContext(), sessionFrom(c).UserID, id, req.Content)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(reply)
}

// DeleteReply handles DELETE /api/forum/replies/:id
func (s *Server) DeleteReply(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.forumService.DeleteReply(c.UserContext(), sessionFrom(c).UserID, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateForumCategory handles POST /api/admin/forum/categories
// @Summary Create a forum category
// @Description A category with parent_id becomes a child; children cannot have children
// @Tags admin
// @Accept json
// @Produce json
// @Param request body object{parent_id=int,name=string,slug=string,description=string,color=string,icon=string,sort_order=int} true "Category"
// @Success 201 {object} models.ForumCategory
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/forum/categories [post]
func (s *Server) CreateForumCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	category, err := s.forumService.CreateCategory(c.UserContext(), req.input())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateForumCategory handles PUT /api/admin/forum/categories/:id
// @Summary Update a forum category
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param request body object{parent_id=int,clear_parent=bool,name=string,slug=string,description=string,color=string,icon=string,sort_order=int} true "Fields to change"
// @Success 200 {object} models.ForumCategory
// @Security BearerAuth
// @Router /admin/forum/categories/{id} [put]
func (s *Server) UpdateForumCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	category, err := s.forumService.UpdateCategory(c.UserContext(), id, req.input())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(category)
}

// DeleteForumCategory handles DELETE /api/admin/forum/categories/:id
// @Summary Delete a forum category
// @Description Refused while the category has children or topics
// @Tags admin
// @Param id path int true "Category ID"
// @Success 204
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/forum/categories/{id} [delete]
func (s *Server) DeleteForumCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.forumService.DeleteCategory(c.UserContext(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PinTopic handles PUT /api/admin/forum/topics/:id/pin
// @Summary Pin or unpin a topic
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Topic ID"
// @Param request body object{pinned=bool} true "Pin state"
// @Success 200 {object} models.ForumTopic
// @Security BearerAuth
// @Router /admin/forum/topics/{id}/pin [put]
func (s *Server) PinTopic(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Pinned bool `json:"pinned"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	topic, err := s.forumService.PinTopic(c.UserContext(), id, req.Pinned)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(topic)
}

// LockTopic handles PUT /api/admin/forum/topics/:id/lock
// @Summary Lock or unlock a topic
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Topic ID"
// @Param request body object{locked=bool} true "Lock state"
// @Success 200 {object} models.ForumTopic
// @Security BearerAuth
// @Router /admin/forum/topics/{id}/lock [put]
func (s *Server) LockTopic(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Locked bool `json:"locked"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	topic, err := s.forumService.LockTopic(c.UserContext(), id, req.Locked)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(topic)
}
