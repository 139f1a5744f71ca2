// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"unicode"

	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/service"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
	sessionLocalKey    = "session"
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "userId" -> "Invalid user ID", "commentId" -> "Invalid comment ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	// Split on camelCase boundary before the trailing "Id" suffix.
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// mapServiceError translates a service error into an HTTP status.
func mapServiceError(err error) int {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.StatusNotFound
	}
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	case models.CodeQuotaExceeded:
		return fiber.StatusTooManyRequests
	}
	return fiber.StatusInternalServerError
}

// respondServiceError writes err with the status mapServiceError picks. Unexpected
// errors are logged and returned as a generic internal error.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status == fiber.StatusNotFound && models.ErrorCode(err) == "" {
		err = models.NewNotFoundError("Resource", c.Params("id"))
	}
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "method", c.Method(), "error", err)
		if models.ErrorCode(err) == "" {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

func badRequest(c *fiber.Ctx, message string) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(message))
}

// sessionFrom returns the session stored by SessionRequired or OptionalSession.
func sessionFrom(c *fiber.Ctx) *service.Session {
	sess, _ := c.Locals(sessionLocalKey).(*service.Session)
	return sess
}

// viewerID is the signed-in user's ID, or 0 for anonymous requests.
func viewerID(c *fiber.Ctx) uint {
	if sess := sessionFrom(c); sess != nil {
		return sess.UserID
	}
	return 0
}

// readUploadFiles reads every file posted under field into memory. maxBytes bounds
// each file; the image processor validates the content afterwards.
func readUploadFiles(c *fiber.Ctx, field string, maxBytes int64) ([]service.UploadFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Expected multipart/form-data")
	}
	headers := form.File[field]
	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readUploadFile(fh, maxBytes)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// readOptionalUpload reads a single file under field; it returns nil when none was sent.
func readOptionalUpload(c *fiber.Ctx, field string, maxBytes int64) (*service.UploadFile, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	f, err := readUploadFile(fh, maxBytes)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func readUploadFile(fh *multipart.FileHeader, maxBytes int64) (service.UploadFile, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return service.UploadFile{}, models.NewValidationError(
			fmt.Sprintf("%s exceeds the %d MB upload limit", fh.Filename, maxBytes/(1024*1024)))
	}
	src, err := fh.Open()
	if err != nil {
		return service.UploadFile{}, models.NewValidationError("Unreadable file " + fh.Filename)
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return service.UploadFile{}, models.NewInternalError(err)
	}
	return service.UploadFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func (s *Server) maxUploadBytes() int64 {
	return int64(s.config.ImageMaxUploadSizeMB) * 1024 * 1024
}

// splitCSV splits a comma separated form value, dropping blanks.
func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
