package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// SubmissionHandler manages the submit and listing endpoints of one activity kind.
type SubmissionHandler struct {
	service service.SubmissionService
	kind    models.ActivityKind
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler for quizzes or assignments.
func NewSubmissionHandler(service service.SubmissionService, kind models.ActivityKind, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		kind:    kind,
		logger:  logger.With().Str("component", string(kind)+"_submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("", h.submit)
	router.Get("", h.list)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return sendInvalidBody(c)
	}

	result, err := h.service.Submit(c.UserContext(), h.kind, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(dto.SubmissionEnvelope{Success: true, Result: result})
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	var filter dto.SubmissionFilter
	if err := c.QueryParser(&filter); err != nil {
		return sendInvalidBody(c)
	}
	if filter.OrganizationID != nil && *filter.OrganizationID == "" {
		filter.OrganizationID = nil
	}

	submissions, err := h.service.List(c.UserContext(), h.kind, filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var notFound *service.ActivityNotFoundError
	switch {
	case isValidationError(err):
		return sendValidationError(c, err)
	case errors.Is(err, service.ErrInvalidActivityID):
		return utils.SendFailure(c, fiber.StatusBadRequest, utils.ErrCodeInvalidActivityID, err.Error(), nil)
	case errors.Is(err, service.ErrDuplicateSubmission):
		return utils.SendFailure(c, fiber.StatusBadRequest, utils.ErrCodeDuplicate, "already submitted", nil)
	case errors.As(err, &notFound):
		return utils.SendFailure(c, fiber.StatusNotFound, utils.ErrCodeNotFound, notFound.Error(), fiber.Map{
			"available_activities": notFound.Available,
		})
	case errors.Is(err, service.ErrActivityNotFound):
		return utils.SendFailure(c, fiber.StatusNotFound, utils.ErrCodeNotFound, err.Error(), nil)
	default:
		return sendInternalError(c, h.logger, err)
	}
}

// HistoryHandler serves a learner's own submission history.
type HistoryHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewHistoryHandler builds a history handler.
func NewHistoryHandler(service service.SubmissionService, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger.With().Str("component", "history_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. guards run
// before the handler with the user_id parameter resolved.
func (h *HistoryHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(guards, h.history)
	router.Get("/:user_id/submissions", handlers...)
}

func (h *HistoryHandler) history(c *fiber.Ctx) error {
	history, err := h.service.History(c.UserContext(), c.Params("user_id"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidUserID) {
			return utils.SendFailure(c, fiber.StatusBadRequest, utils.ErrCodeValidation, err.Error(), nil)
		}
		return sendInternalError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission history retrieved", history)
}
