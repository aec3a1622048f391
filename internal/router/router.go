package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
)

// Dependencies groups router dependencies for registration. A nil
// FacultyGuard leaves submission listings open and a nil HistoryGuard leaves
// every learner's history readable.
type Dependencies struct {
	QuizSubmissionHandler       *handler.SubmissionHandler
	AssignmentSubmissionHandler *handler.SubmissionHandler
	HistoryHandler              *handler.HistoryHandler
	LeaderboardHandler          *handler.LeaderboardHandler
	EvaluationHandler           *handler.EvaluationHandler
	JWTMiddleware               fiber.Handler
	FacultyGuard                fiber.Handler
	HistoryGuard                fiber.Handler
	AIRateLimiter               fiber.Handler
	HealthProbes                map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	facultyGuard := deps.FacultyGuard
	if facultyGuard == nil {
		facultyGuard = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", jwtMiddleware)

	if deps.QuizSubmissionHandler != nil {
		registerSubmissions(protected.Group("/quizzes/submissions"), deps.QuizSubmissionHandler, facultyGuard)
	}

	if deps.AssignmentSubmissionHandler != nil {
		registerSubmissions(protected.Group("/assignments/submissions"), deps.AssignmentSubmissionHandler, facultyGuard)
	}

	if deps.HistoryHandler != nil {
		var guards []fiber.Handler
		if deps.HistoryGuard != nil {
			guards = append(guards, deps.HistoryGuard)
		}
		deps.HistoryHandler.Register(protected.Group("/users"), guards...)
	}

	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(protected.Group("/leaderboard"))
	}

	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(protected, deps.AIRateLimiter)
	}
}

// registerSubmissions guards only the listing route; learners may always submit.
func registerSubmissions(group fiber.Router, h *handler.SubmissionHandler, guard fiber.Handler) {
	group.Use(func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet {
			return guard(c)
		}
		return c.Next()
	})
	h.Register(group)
}

// FacultyGuard returns the role check applied to submission listings.
func FacultyGuard() fiber.Handler {
	return middleware.RequireRole(middleware.FacultyRoles...)
}

// HistoryGuard returns the check that limits learners to their own history.
func HistoryGuard() fiber.Handler {
	return middleware.RequireSelfOrRole("user_id", middleware.FacultyRoles...)
}
