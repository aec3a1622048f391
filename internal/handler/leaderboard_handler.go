package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/service"
)

// LeaderboardHandler exposes the cross-activity ranking.
type LeaderboardHandler struct {
	service service.LeaderboardService
	logger  zerolog.Logger
}

// NewLeaderboardHandler builds a leaderboard handler.
func NewLeaderboardHandler(service service.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("", h.build)
}

// build responds with a bare ordered array.
func (h *LeaderboardHandler) build(c *fiber.Ctx) error {
	var filter dto.LeaderboardFilter
	if err := c.QueryParser(&filter); err != nil {
		return sendInvalidBody(c)
	}
	if filter.OrganizationID != nil && *filter.OrganizationID == "" {
		filter.OrganizationID = nil
	}

	entries, err := h.service.Build(c.UserContext(), filter)
	if err != nil {
		if isValidationError(err) {
			return sendValidationError(c, err)
		}
		return sendInternalError(c, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(entries)
}
