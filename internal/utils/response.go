package utils

import "github.com/gofiber/fiber/v2"

// APIResponse describes the common structure for API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// ErrorResponse is the failure body shared by every endpoint.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error codes carried in ErrorResponse.Error.
const (
	ErrCodeValidation         = "validation_error"
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeInvalidActivityID  = "invalid_activity_id"
	ErrCodeDuplicate          = "duplicate_submission"
	ErrCodeNotFound           = "activity_not_found"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeUpstreamFailed     = "upstream_failed"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeInternal           = "internal_error"
)

// SendSuccess sends a successful JSON response with a message.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}

	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendFailure sends an error JSON response with the given status code.
// details is omitted from the body when nil.
func SendFailure(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	if code == "" {
		code = ErrCodeInternal
	}
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   code,
		Message: message,
		Details: details,
	})
}
