package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/identity"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

// LeaderboardService ranks learners across quiz and assignment submissions.
type LeaderboardService interface {
	Build(ctx context.Context, filter dto.LeaderboardFilter) ([]dto.LeaderboardEntry, error)
}

type leaderboardService struct {
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	identity    *identity.Normalizer
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewLeaderboardService constructs the leaderboard aggregator.
func NewLeaderboardService(submissions repository.SubmissionRepository, users repository.UserRepository, normalizer *identity.Normalizer, validate *validator.Validate, logger zerolog.Logger) LeaderboardService {
	return &leaderboardService{
		submissions: submissions,
		users:       users,
		identity:    normalizer,
		validator:   validate,
		logger:      logger.With().Str("component", "leaderboard_service").Logger(),
	}
}

type leaderboardRow struct {
	key        string
	raw        string
	quiz       int
	assignment int
}

func (s *leaderboardService) Build(ctx context.Context, filter dto.LeaderboardFilter) ([]dto.LeaderboardEntry, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/leaderboard")
	ctx, span := tracer.Start(ctx, "leaderboard.build")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.LeaderboardBuildDuration().Observe(time.Since(start).Seconds())
	}()

	if err := s.validator.Struct(filter); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return nil, err
	}

	users, err := s.users.List(ctx, filter.OrganizationID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user_lookup_failed")
		return nil, fmt.Errorf("load users: %w", err)
	}

	directory := s.identity.NewDirectory()
	for _, user := range users {
		directory.Register(user.ID, user.Name)
	}

	quizTotals, err := s.submissions.SumScoresByUser(ctx, models.ActivityKindQuiz, filter.OrganizationID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation_failed")
		return nil, fmt.Errorf("aggregate quiz scores: %w", err)
	}

	assignmentTotals, err := s.submissions.SumScoresByUser(ctx, models.ActivityKindAssignment, filter.OrganizationID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation_failed")
		return nil, fmt.Errorf("aggregate assignment scores: %w", err)
	}

	rows := make([]*leaderboardRow, 0, len(quizTotals)+len(assignmentTotals))
	byKey := make(map[string]*leaderboardRow, cap(rows))
	merge := func(total models.UserScoreTotal) *leaderboardRow {
		key := s.identity.Key(total.UserID)
		row, ok := byKey[key]
		if !ok {
			row = &leaderboardRow{key: key, raw: total.UserID}
			byKey[key] = row
			rows = append(rows, row)
		}
		return row
	}

	for _, total := range quizTotals {
		merge(total).quiz += total.Total
	}
	for _, total := range assignmentTotals {
		merge(total).assignment += total.Total
	}

	s.recoverMissingUsers(ctx, directory, rows)

	entries := make([]dto.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		name, ok := directory.Lookup(row.raw)
		if !ok {
			name = fmt.Sprintf("Unknown (ID: %s)", row.raw)
		}

		entries = append(entries, dto.LeaderboardEntry{
			UserID:               row.key,
			DisplayName:          name,
			TotalQuizScore:       row.quiz,
			TotalAssignmentScore: row.assignment,
			CombinedScore:        row.quiz + row.assignment,
		})
	}

	// equal scores fall back to display name then user id
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CombinedScore != entries[j].CombinedScore {
			return entries[i].CombinedScore > entries[j].CombinedScore
		}
		if entries[i].DisplayName != entries[j].DisplayName {
			return entries[i].DisplayName < entries[j].DisplayName
		}
		return entries[i].UserID < entries[j].UserID
	})

	span.SetAttributes(attribute.Int("leaderboard.entries", len(entries)))
	s.logger.Debug().Int("entries", len(entries)).Msg("leaderboard built")

	return entries, nil
}

// recoverMissingUsers looks up submitters outside the organization's user
// listing by native id.
func (s *leaderboardService) recoverMissingUsers(ctx context.Context, directory *identity.Directory, rows []*leaderboardRow) {
	var missing []uuid.UUID
	for _, row := range rows {
		if _, ok := directory.Lookup(row.raw); ok {
			continue
		}
		if id, ok := identity.Native(row.raw); ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return
	}

	users, err := s.users.ListByIDs(ctx, missing)
	if err != nil {
		s.logger.Warn().Err(err).Int("missing", len(missing)).Msg("failed to recover missing users")
		return
	}

	for _, user := range users {
		directory.Register(user.ID, user.Name)
	}
	s.logger.Debug().Int("missing", len(missing)).Int("recovered", len(users)).Msg("recovered missing users")
}
