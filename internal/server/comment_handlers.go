// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListComments returns the threaded comments of a photo (public)
func (s *Server) ListComments(c *fiber.Ctx) error {
	photoID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	threads, err := s.commentService.ListComments(c.UserContext(), photoID, viewerID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(threads)
}

// CreateComment comments on a photo, optionally as a reply to a top-level comment (protected)
func (s *Server) CreateComment(c *fiber.Ctx) error {
	photoID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parent_id"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return badRequest(c, "Invalid request body")
	}

	created, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:   sessionFrom(c).UserID,
		PhotoID:  photoID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateComment edits a comment (author only)
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return badRequest(c, "Invalid request body")
	}

	updated, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    sessionFrom(c).UserID,
		CommentID: commentID,
		Content:   req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(updated)
}

// DeleteComment removes a comment (author or admin)
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    sessionFrom(c).UserID,
		CommentID: commentID,
	}); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
