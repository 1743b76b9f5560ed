package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends the standard error envelope
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(ErrorResponseStruct{
		Status:    status,
		Message:   message,
		Ok:        false,
		Timestamp: now(),
		URL:       c.OriginalURL(),
		Type:      errorType,
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponseStruct{
		Status:    fiber.StatusNotFound,
		Message:   message,
		Ok:        false,
		Timestamp: now(),
		URL:       c.OriginalURL(),
	})
}

// MutationSuccessResponse sends a success response for mutations that report whether a
// row changed (rename, delete, external ref)
func MutationSuccessResponse(c *fiber.Ctx, changed bool) error {
	return c.Status(fiber.StatusOK).JSON(SuccessResponseStruct{
		Message:   "Success",
		Ok:        true,
		Changed:   changed,
		Timestamp: now(),
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
}

// SuccessResponseStruct defines the schema for mutation success responses
type SuccessResponseStruct struct {
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Changed   bool   `json:"changed"`
	Timestamp string `json:"timestamp"`
}
