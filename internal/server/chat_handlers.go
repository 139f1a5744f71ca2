// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultMessagePage = 50

// ListConversations handles GET /api/conversations
// @Summary List my conversations
// @Description Each entry carries the other participant, the last message and the unread count
// @Tags conversations
// @Produce json
// @Success 200 {array} models.ConversationSummary
// @Security BearerAuth
// @Router /conversations [get]
func (s *Server) ListConversations(c *fiber.Ctx) error {
	convs, err := s.chatService.ListConversations(c.UserContext(), sessionFrom(c).UserID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(convs)
}

// StartConversation handles POST /api/conversations
// @Summary Start or reuse a conversation
// @Description Returns the existing conversation between the two users about the same listing when there is one
// @Tags conversations
// @Accept json
// @Produce json
// @Param request body object{user_id=int,listing_id=int} true "Other participant and optional listing"
// @Success 200 {object} models.Conversation
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations [post]
func (s *Server) StartConversation(c *fiber.Ctx) error {
	var req struct {
		UserID    uint  `json:"user_id"`
		ListingID *uint `json:"listing_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	conv, err := s.chatService.StartConversation(c.UserContext(), service.StartConversationInput{
		UserID:      sessionFrom(c).UserID,
		OtherUserID: req.UserID,
		ListingID:   req.ListingID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(conv)
}

// GetMessages handles GET /api/conversations/:id/messages
// @Summary Get conversation messages
// @Tags conversations
// @Produce json
// @Param id path int true "Conversation ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Message
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultMessagePage)
	messages, err := s.chatService.GetMessages(c.UserContext(), sessionFrom(c).UserID, convID, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(messages)
}

// SendMessage handles POST /api/conversations/:id/messages
// @Summary Send a message
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path int true "Conversation ID"
// @Param request body object{content=string} true "Message"
// @Success 201 {object} models.Message
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := s.chatService.SendMessage(c.UserContext(), service.SendMessageInput{
		UserID:         sessionFrom(c).UserID,
		ConversationID: convID,
		Content:        req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkConversationRead handles POST /api/conversations/:id/read
// @Summary Mark a conversation read
// @Tags conversations
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} object{marked=int}
// @Security BearerAuth
// @Router /conversations/{id}/read [post]
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	marked, err := s.chatService.MarkConversationRead(c.UserContext(), sessionFrom(c).UserID, convID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"marked": marked})
}
