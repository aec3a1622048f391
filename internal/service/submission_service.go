package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/identity"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

var (
	// ErrInvalidActivityID indicates the activity id is not a valid native identifier.
	ErrInvalidActivityID = errors.New("invalid activity id")
	// ErrActivityNotFound indicates the activity is in neither the published nor the scheduled store.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrDuplicateSubmission indicates the user already submitted a single-attempt activity.
	ErrDuplicateSubmission = errors.New("duplicate submission")
	// ErrInvalidUserID indicates an empty user identifier.
	ErrInvalidUserID = errors.New("invalid user id")
)

const descriptivePendingMessage = "Descriptive answers will be graded separately"

// ActivityNotFoundError carries the activity ids known for the caller's
// organization to help diagnose a bad reference.
type ActivityNotFoundError struct {
	Kind       models.ActivityKind
	ActivityID string
	Available  []string
}

func (e *ActivityNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", strings.ToLower(e.Kind.Label()), e.ActivityID)
}

// Is lets errors.Is match ErrActivityNotFound.
func (e *ActivityNotFoundError) Is(target error) bool {
	return target == ErrActivityNotFound
}

// SubmissionService grades and stores quiz and assignment submissions.
type SubmissionService interface {
	Submit(ctx context.Context, kind models.ActivityKind, payload dto.SubmissionRequest) (dto.SubmissionResult, error)
	List(ctx context.Context, kind models.ActivityKind, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	History(ctx context.Context, userID string) (dto.SubmissionHistoryResponse, error)
}

type submissionService struct {
	activities  repository.ActivityRepository
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	grader      AnswerGrader
	identity    *identity.Normalizer
	events      SubmissionPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance. events may be nil.
func NewSubmissionService(
	activities repository.ActivityRepository,
	submissions repository.SubmissionRepository,
	users repository.UserRepository,
	grader AnswerGrader,
	normalizer *identity.Normalizer,
	events SubmissionPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		activities:  activities,
		submissions: submissions,
		users:       users,
		grader:      grader,
		identity:    normalizer,
		events:      events,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/submission"),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, kind models.ActivityKind, payload dto.SubmissionRequest) (dto.SubmissionResult, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit")
	span.SetAttributes(attribute.String("submission.kind", string(kind)))
	defer span.End()

	result, err := s.submit(ctx, kind, payload, span)
	observability.Submissions().WithLabelValues(string(kind), submissionResultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, submissionResultLabel(err))
	}
	return result, err
}

func (s *submissionService) submit(ctx context.Context, kind models.ActivityKind, payload dto.SubmissionRequest, span trace.Span) (dto.SubmissionResult, error) {
	payload.OrganizationID = strings.TrimSpace(payload.OrganizationID)
	payload.UserID = strings.TrimSpace(payload.UserID)
	payload.ActivityID = strings.TrimSpace(payload.ActivityID)
	payload.ActivityTitle = strings.TrimSpace(payload.ActivityTitle)

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResult{}, err
	}

	activityID, err := uuid.Parse(payload.ActivityID)
	if err != nil {
		return dto.SubmissionResult{}, ErrInvalidActivityID
	}
	span.SetAttributes(attribute.String("submission.activity_id", activityID.String()))

	activity, err := s.resolveActivity(ctx, kind, activityID, payload.OrganizationID)
	if err != nil {
		return dto.SubmissionResult{}, err
	}

	userKey := s.identity.Key(payload.UserID)
	logger := s.logger.With().
		Str("activity_kind", string(kind)).
		Str("activity_id", activity.ID.String()).
		Str("user_id", userKey).
		Logger()

	exists, err := s.submissions.Exists(ctx, kind, userKey, activity.ID.String())
	if err != nil {
		return dto.SubmissionResult{}, fmt.Errorf("check existing submission: %w", err)
	}
	if exists && !activity.AllowRetakes {
		logger.Warn().Msg("duplicate submission rejected")
		return dto.SubmissionResult{}, ErrDuplicateSubmission
	}

	graded := s.grade(ctx, activity, payload.Answers)
	span.SetAttributes(
		attribute.Int("submission.score", graded.score),
		attribute.Int("submission.total_questions", graded.total),
		attribute.Bool("submission.grading_degraded", graded.degraded),
	)

	submission := models.Submission{
		OrganizationID:  payload.OrganizationID,
		UserID:          payload.UserID,
		UserKey:         userKey,
		ActivityID:      activity.ID.String(),
		ActivityTitle:   payload.ActivityTitle,
		Answers:         datatypes.NewJSONType(graded.answers),
		Score:           graded.score,
		TotalQuestions:  graded.total,
		Percentage:      percentage(graded.score, graded.total),
		AutoSubmitted:   payload.AutoSubmitted,
		RetakeReason:    s.sanitizeOptional(payload.RetakeReason),
		RetakesAllowed:  activity.AllowRetakes,
		GradingDegraded: graded.degraded,
		SubmittedAt:     s.now().UTC(),
	}

	if err := s.submissions.Create(ctx, kind, &submission); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logger.Warn().Msg("duplicate submission rejected by store")
			return dto.SubmissionResult{}, ErrDuplicateSubmission
		}
		logger.Error().Err(err).Msg("failed to persist submission")
		return dto.SubmissionResult{}, fmt.Errorf("persist submission: %w", err)
	}

	logger.Info().
		Uint("submission_id", submission.ID).
		Int("score", submission.Score).
		Int("total_questions", submission.TotalQuestions).
		Bool("grading_degraded", submission.GradingDegraded).
		Msg("submission graded")

	s.publish(ctx, kind, submission)

	message := kind.Label() + " graded successfully"
	if activity.HasFreeText() {
		message = descriptivePendingMessage
	}

	return dto.SubmissionResult{
		SubmissionID:    submission.ID,
		Score:           submission.Score,
		TotalQuestions:  submission.TotalQuestions,
		Percentage:      submission.Percentage,
		Message:         message,
		GradingDegraded: submission.GradingDegraded,
	}, nil
}

func (s *submissionService) resolveActivity(ctx context.Context, kind models.ActivityKind, id uuid.UUID, organizationID string) (models.Activity, error) {
	for _, status := range []models.ActivityStatus{models.ActivityStatusPublished, models.ActivityStatusScheduled} {
		activity, err := s.activities.GetByID(ctx, kind, status, id)
		if err == nil {
			return activity, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, fmt.Errorf("load %s activity: %w", status, err)
		}
	}

	available, err := s.activities.ListIDs(ctx, kind, organizationID)
	if err != nil {
		s.logger.Warn().Err(err).Str("organization_id", organizationID).Msg("failed to list activities for diagnostics")
		available = nil
	}
	if available == nil {
		available = []string{}
	}

	s.logger.Warn().
		Str("activity_kind", string(kind)).
		Str("activity_id", id.String()).
		Int("available", len(available)).
		Msg("activity not found")

	return models.Activity{}, &ActivityNotFoundError{Kind: kind, ActivityID: id.String(), Available: available}
}

type gradedAnswers struct {
	answers  map[string]models.StoredAnswer
	score    int
	total    int
	degraded bool
}

// grade walks the questions in activity order. Answers are looked up by
// question id first and then by prompt text.
func (s *submissionService) grade(ctx context.Context, activity models.Activity, answers map[string]dto.Answer) gradedAnswers {
	graded := gradedAnswers{answers: make(map[string]models.StoredAnswer, len(activity.Questions))}

	for _, question := range activity.Questions {
		graded.total++

		answer, ok := lookupAnswer(answers, question)
		if !ok || !answer.Present() {
			continue
		}

		result := s.grader.Grade(ctx, question, answer)
		if result.Correct {
			graded.score++
		}
		if result.Degraded {
			graded.degraded = true
		}

		stored := models.StoredAnswer{
			QuestionID:     question.ID,
			Prompt:         question.Prompt,
			Text:           s.sanitizeOptional(answer.RawText()),
			SelectedOption: answer.RawSelection(),
			Method:         result.Method,
			Feedback:       result.Feedback,
		}
		if answer.Kind() == dto.AnswerBare && question.Type == models.QuestionTypeSelection {
			stored.SelectedOption = answer.RawText()
			stored.Text = nil
		}
		if !result.Skipped {
			correct := result.Correct
			stored.IsCorrect = &correct
		}

		graded.answers[answerKey(question)] = stored
	}

	return graded
}

func lookupAnswer(answers map[string]dto.Answer, question models.Question) (dto.Answer, bool) {
	if question.ID != "" {
		if answer, ok := answers[question.ID]; ok {
			return answer, true
		}
	}
	answer, ok := answers[question.Prompt]
	return answer, ok
}

func answerKey(question models.Question) string {
	if question.ID != "" {
		return question.ID
	}
	return question.Prompt
}

func (s *submissionService) sanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	// the policy entity-encodes what it keeps; store plain text
	cleaned := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(*value)))
	return &cleaned
}

func (s *submissionService) publish(ctx context.Context, kind models.ActivityKind, submission models.Submission) {
	if s.events == nil {
		return
	}

	event := SubmissionGradedEvent{
		Type:            "submission.graded",
		SubmissionID:    submission.ID,
		ActivityKind:    string(kind),
		ActivityID:      submission.ActivityID,
		OrganizationID:  submission.OrganizationID,
		UserID:          submission.UserKey,
		Score:           submission.Score,
		TotalQuestions:  submission.TotalQuestions,
		Percentage:      submission.Percentage,
		GradingDegraded: submission.GradingDegraded,
		SubmittedAt:     submission.SubmittedAt,
	}
	if err := s.events.PublishGraded(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to publish submission event")
	}
}

func (s *submissionService) List(ctx context.Context, kind models.ActivityKind, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, kind, repository.SubmissionFilter{OrganizationID: filter.OrganizationID})
	if err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx, filter.OrganizationID)
	if err != nil {
		return nil, err
	}

	directory := s.identity.NewDirectory()
	for _, user := range users {
		directory.Register(user.ID, user.Name)
	}

	responses := dto.NewSubmissionResponseSlice(submissions)
	for i := range responses {
		name, ok := directory.Lookup(responses[i].UserID)
		if !ok {
			name = "Unknown"
		}
		responses[i].UserName = name
	}

	return responses, nil
}

func (s *submissionService) History(ctx context.Context, userID string) (dto.SubmissionHistoryResponse, error) {
	key := s.identity.Key(userID)
	if key == "" {
		return dto.SubmissionHistoryResponse{}, ErrInvalidUserID
	}

	filter := repository.SubmissionFilter{UserKey: &key}

	quizzes, err := s.submissions.List(ctx, models.ActivityKindQuiz, filter)
	if err != nil {
		return dto.SubmissionHistoryResponse{}, err
	}

	assignments, err := s.submissions.List(ctx, models.ActivityKindAssignment, filter)
	if err != nil {
		return dto.SubmissionHistoryResponse{}, err
	}

	return dto.SubmissionHistoryResponse{
		Quizzes:     dto.NewSubmissionResponseSlice(quizzes),
		Assignments: dto.NewSubmissionResponseSlice(assignments),
	}, nil
}

// percentage rounds to two decimals, halves to even; an activity with no
// questions scores 0.
func percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.RoundToEven(float64(score)*10000/float64(total)) / 100
}

func submissionResultLabel(err error) string {
	var validationErrs validator.ValidationErrors
	switch {
	case err == nil:
		return "graded"
	case errors.As(err, &validationErrs), errors.Is(err, ErrInvalidActivityID):
		return "invalid"
	case errors.Is(err, ErrActivityNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateSubmission):
		return "duplicate"
	default:
		return "error"
	}
}
