package server

import (
	"context"
	"errors"

	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SessionRequired authenticates the bearer token and builds the caller's session.
// Handlers read it back with sessionFrom.
func (s *Server) SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.resolveSession(c)
		if err != nil {
			if !isAuthFailure(err) {
				return respondServiceError(c, err)
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, unauthorized(err))
		}
		s.attachSession(c, sess)
		return c.Next()
	}
}

// OptionalSession attaches a session when a valid bearer token is present and
// continues anonymously otherwise.
func (s *Server) OptionalSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		if sess, err := s.resolveSession(c); err == nil {
			s.attachSession(c, sess)
		}
		return c.Next()
	}
}

// AdminRequired must run after SessionRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := sessionFrom(c)
		if sess == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication required"))
		}
		if !sess.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

func (s *Server) resolveSession(c *fiber.Ctx) (*service.Session, error) {
	token, err := middleware.BearerToken(c)
	if err != nil {
		return nil, err
	}
	ctx := c.UserContext()
	claims, err := s.authService.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.authService.LoadSession(ctx, claims)
}

func (s *Server) attachSession(c *fiber.Ctx, sess *service.Session) {
	c.Locals(sessionLocalKey, sess)
	c.Locals("userID", sess.UserID)
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, sess.UserID))
}

// isAuthFailure separates bad credentials from storage errors raised while loading
// the session.
func isAuthFailure(err error) bool {
	if errors.Is(err, middleware.ErrMissingToken) || errors.Is(err, middleware.ErrMalformedHeader) {
		return true
	}
	return models.ErrorCode(err) == models.CodeUnauthorized
}

func unauthorized(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeUnauthorized {
		return appErr
	}
	switch {
	case errors.Is(err, middleware.ErrMissingToken):
		return models.NewUnauthorizedError("Missing authorization header")
	case errors.Is(err, middleware.ErrMalformedHeader):
		return models.NewUnauthorizedError("Invalid authorization header format")
	}
	return models.NewUnauthorizedError("Invalid or expired token")
}
