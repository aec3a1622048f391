package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func sendInvalidBody(c *fiber.Ctx) error {
	return utils.SendFailure(c, fiber.StatusBadRequest, utils.ErrCodeInvalidRequest, "invalid request body", nil)
}

func sendValidationError(c *fiber.Ctx, err error) error {
	return utils.SendFailure(c, fiber.StatusBadRequest, utils.ErrCodeValidation, err.Error(), nil)
}

func sendInternalError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
	return utils.SendFailure(c, fiber.StatusInternalServerError, utils.ErrCodeInternal, "internal server error", nil)
}
