package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
	"github.com/noah-isme/gema-assessment-api/pkg/similarity"
)

// EvaluationHandler serves standalone similarity scoring and answer explanations.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler builds an evaluation handler.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. limiter guards
// both endpoints and may be nil.
func (h *EvaluationHandler) Register(router fiber.Router, limiter fiber.Handler) {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Post("/evaluate-descriptive", limiter, h.similarity)
	router.Post("/explain-answer", limiter, h.explain)
}

func (h *EvaluationHandler) similarity(c *fiber.Ctx) error {
	var payload dto.SimilarityRequest
	if err := c.BodyParser(&payload); err != nil {
		return sendInvalidBody(c)
	}

	response, err := h.service.Similarity(c.UserContext(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return sendValidationError(c, err)
		case errors.Is(err, similarity.ErrEmptyVocabulary):
			return utils.SendFailure(c, fiber.StatusBadRequest, utils.ErrCodeValidation, err.Error(), nil)
		default:
			return sendInternalError(c, h.logger, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *EvaluationHandler) explain(c *fiber.Ctx) error {
	var payload dto.ExplanationRequest
	if err := c.BodyParser(&payload); err != nil {
		return sendInvalidBody(c)
	}

	response, err := h.service.Explain(c.UserContext(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return sendValidationError(c, err)
		case errors.Is(err, service.ErrExplainerUnavailable):
			return utils.SendFailure(c, fiber.StatusServiceUnavailable, utils.ErrCodeServiceUnavailable, err.Error(), nil)
		case errors.Is(err, service.ErrExplanationFailed):
			requestLogger(h.logger, c).Warn().Err(err).Msg("explanation failed")
			return utils.SendFailure(c, fiber.StatusBadGateway, utils.ErrCodeUpstreamFailed, service.ErrExplanationFailed.Error(), nil)
		default:
			return sendInternalError(c, h.logger, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(response)
}
