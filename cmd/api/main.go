package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/database"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/identity"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/router"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
	"github.com/noah-isme/gema-assessment-api/pkg/similarity"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, verdict cache disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
			probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, submission events disabled")
			natsConn = nil
		} else {
			defer natsConn.Drain()
			probes["nats"] = func(context.Context) error {
				if natsConn.Status() != nats.CONNECTED {
					return nats.ErrConnectionClosed
				}
				return nil
			}
		}
	}

	var (
		judge     ai.Judge
		explainer ai.Explainer
	)
	if cfg.OpenAIAPIKey != "" {
		client, err := ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.AIModel,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create openai client: %v", err)
		}
		judge = service.NewCachedJudge(client, redisClient, cfg.VerdictCacheTTL, logger)
		explainer = client
	} else {
		logger.Warn().Msg("openai api key not set, semantic grading and explanations disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	normalizer := identity.NewNormalizer(logger)
	scorer := similarity.NewScorer()

	activityRepo := repository.NewActivityRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)

	grader := service.NewAnswerGrader(judge, scorer, service.GraderConfig{
		Strategy:         service.FreeTextStrategy(cfg.FreeTextStrategy),
		JudgeTimeout:     cfg.JudgeTimeout,
		LexicalPassScore: cfg.LexicalPassScore,
	}, logger)

	var events service.SubmissionPublisher
	if natsConn != nil {
		events = service.NewNATSSubmissionPublisher(natsConn, cfg.NATSSubject)
	}

	submissionService := service.NewSubmissionService(activityRepo, submissionRepo, userRepo, grader, normalizer, events, validate, logger)
	leaderboardService := service.NewLeaderboardService(submissionRepo, userRepo, normalizer, validate, logger)
	evaluationService := service.NewEvaluationService(scorer, explainer, validate, logger)

	deps := router.Dependencies{
		QuizSubmissionHandler:       handler.NewSubmissionHandler(submissionService, models.ActivityKindQuiz, logger),
		AssignmentSubmissionHandler: handler.NewSubmissionHandler(submissionService, models.ActivityKindAssignment, logger),
		HistoryHandler:              handler.NewHistoryHandler(submissionService, logger),
		LeaderboardHandler:          handler.NewLeaderboardHandler(leaderboardService, logger),
		EvaluationHandler:           handler.NewEvaluationHandler(evaluationService, logger),
		AIRateLimiter:               middleware.RateLimit("ai", cfg.AIRateLimitMax, cfg.AIRateLimitWindow),
		HealthProbes:                probes,
	}
	if cfg.JWTSecret != "" {
		deps.JWTMiddleware = middleware.JWTProtected(cfg.JWTSecret)
		deps.FacultyGuard = router.FacultyGuard()
		deps.HistoryGuard = router.HistoryGuard()
	} else {
		logger.Warn().Msg("jwt secret not set, API is unauthenticated")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("starting http server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
