package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/database"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/identity"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
)

type recordingPublisher struct {
	events []SubmissionGradedEvent
	err    error
}

func (p *recordingPublisher) PublishGraded(_ context.Context, event SubmissionGradedEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type submissionFixture struct {
	db          *gorm.DB
	service     SubmissionService
	leaderboard LeaderboardService
	submissions repository.SubmissionRepository
	publisher   *recordingPublisher
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newSubmissionFixture(t *testing.T, judge ai.Judge) submissionFixture {
	t.Helper()

	db := openServiceTestDB(t)
	logger := zerolog.Nop()
	validate := validator.New()
	normalizer := identity.NewNormalizer(logger)

	activities := repository.NewActivityRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	users := repository.NewUserRepository(db)
	publisher := &recordingPublisher{}
	grader := NewAnswerGrader(judge, nil, GraderConfig{Strategy: FreeTextJudge}, logger)

	svc := NewSubmissionService(activities, submissions, users, grader, normalizer, publisher, validate, logger).(*submissionService)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	return submissionFixture{
		db:          db,
		service:     svc,
		leaderboard: NewLeaderboardService(submissions, users, normalizer, validate, logger),
		submissions: submissions,
		publisher:   publisher,
	}
}

func (f submissionFixture) createActivity(t *testing.T, activity models.Activity) models.Activity {
	t.Helper()
	if activity.Kind == "" {
		activity.Kind = models.ActivityKindQuiz
	}
	if activity.OrganizationID == "" {
		activity.OrganizationID = "org-1"
	}
	if activity.Title == "" {
		activity.Title = "Untitled"
	}
	require.NoError(t, f.db.Create(&activity).Error)
	return activity
}

func twoQuestionQuiz() models.Activity {
	return models.Activity{
		Title: "Letters",
		Questions: datatypes.JSONSlice[models.Question]{
			{Type: models.QuestionTypeSelection, Prompt: "Q1", Options: []string{"A", "B"}, Answer: "A"},
			{Type: models.QuestionTypeSelection, Prompt: "Q2", Options: []string{"A", "B"}, Answer: "B"},
		},
	}
}

func quizRequest(activity models.Activity, userID string, answers map[string]dto.Answer) dto.SubmissionRequest {
	return dto.SubmissionRequest{
		OrganizationID: activity.OrganizationID,
		UserID:         userID,
		ActivityID:     activity.ID.String(),
		ActivityTitle:  activity.Title,
		Answers:        answers,
	}
}

func TestSubmitGradesSelectionQuiz(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	activity := fixture.createActivity(t, twoQuestionQuiz())

	result, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(activity, "user-1", map[string]dto.Answer{
		"Q1": dto.BareAnswer("A"),
		"Q2": dto.BareAnswer("B"),
	}))
	require.NoError(t, err)
	require.Equal(t, 2, result.Score)
	require.Equal(t, 2, result.TotalQuestions)
	require.Equal(t, 100.0, result.Percentage)
	require.Equal(t, "Quiz graded successfully", result.Message)
	require.False(t, result.GradingDegraded)
	require.NotZero(t, result.SubmissionID)

	stored, err := fixture.submissions.List(context.Background(), models.ActivityKindQuiz, repository.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	answers := stored[0].Answers.Data()
	require.Len(t, answers, 2)
	require.Equal(t, "A", *answers["Q1"].SelectedOption)
	require.Nil(t, answers["Q1"].Text)
	require.True(t, *answers["Q1"].IsCorrect)
	require.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), stored[0].SubmittedAt.UTC())

	require.Len(t, fixture.publisher.events, 1)
	require.Equal(t, "submission.graded", fixture.publisher.events[0].Type)
	require.Equal(t, result.SubmissionID, fixture.publisher.events[0].SubmissionID)
}

func TestSubmitCountsUnansweredQuestions(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	activity := fixture.createActivity(t, models.Activity{
		Questions: datatypes.JSONSlice[models.Question]{
			{ID: "q1", Type: models.QuestionTypeSelection, Prompt: "Q1", Answer: "A"},
			{ID: "q2", Type: models.QuestionTypeSelection, Prompt: "Q2", Answer: "B"},
			{ID: "q3", Type: models.QuestionTypeSelection, Prompt: "Q3", Answer: "C"},
		},
	})

	// answers may be keyed by question id or by prompt; null means unanswered
	var answers map[string]dto.Answer
	require.NoError(t, json.Unmarshal([]byte(`{"q1": "a", "Q2": {"selected_option": " b "}, "Q3": null}`), &answers))

	result, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(activity, "user-1", answers))
	require.NoError(t, err)
	require.Equal(t, 2, result.Score)
	require.Equal(t, 3, result.TotalQuestions)
	require.Equal(t, 66.67, result.Percentage)
}

func TestSubmitEmptyActivityHasZeroPercentage(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	activity := fixture.createActivity(t, models.Activity{Title: "Empty"})

	result, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(activity, "user-1", map[string]dto.Answer{}))
	require.NoError(t, err)
	require.Zero(t, result.Score)
	require.Zero(t, result.TotalQuestions)
	require.Zero(t, result.Percentage)
}

func TestSubmitRejectsDuplicateWithoutRetakes(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	activity := fixture.createActivity(t, twoQuestionQuiz())
	userID := uuid.New()

	first := quizRequest(activity, userID.String(), map[string]dto.Answer{"Q1": dto.BareAnswer("A")})
	_, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, first)
	require.NoError(t, err)

	// the same user in a different representation is still a duplicate
	second := quizRequest(activity, strings.ToUpper(userID.String()), map[string]dto.Answer{"Q1": dto.BareAnswer("A"), "Q2": dto.BareAnswer("B")})
	_, err = fixture.service.Submit(context.Background(), models.ActivityKindQuiz, second)
	require.ErrorIs(t, err, ErrDuplicateSubmission)

	stored, err := fixture.submissions.List(context.Background(), models.ActivityKindQuiz, repository.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 1, stored[0].Score)
	require.Len(t, fixture.publisher.events, 1)
}

func TestSubmitDuplicateRaceIsClosedByStore(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	activity := fixture.createActivity(t, twoQuestionQuiz())

	// a concurrent writer slipped in between the existence check and the insert
	svc := fixture.service.(*submissionService)
	svc.submissions = &racingSubmissionRepo{SubmissionRepository: fixture.submissions}

	_, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(activity, "user-1", map[string]dto.Answer{"Q1": dto.BareAnswer("A")}))
	require.NoError(t, err)

	_, err = fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(activity, "user-1", map[string]dto.Answer{"Q1": dto.BareAnswer("A")}))
	require.ErrorIs(t, err, ErrDuplicateSubmission)

	stored, err := fixture.submissions.List(context.Background(), models.ActivityKindQuiz, repository.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

type racingSubmissionRepo struct {
	repository.SubmissionRepository
}

func (r *racingSubmissionRepo) Exists(context.Context, models.ActivityKind, string, string) (bool, error) {
	return false, nil
}

func TestSubmitRetakesAccumulateOnLeaderboard(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	activity := twoQuestionQuiz()
	activity.AllowRetakes = true
	activity = fixture.createActivity(t, activity)

	ada := models.User{ID: uuid.New(), Name: "Ada", OrganizationID: "org-1"}
	require.NoError(t, fixture.db.Create(&ada).Error)

	_, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(activity, ada.ID.String(), map[string]dto.Answer{"Q1": dto.BareAnswer("A")}))
	require.NoError(t, err)
	_, err = fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(activity, ada.ID.String(), map[string]dto.Answer{"Q1": dto.BareAnswer("A"), "Q2": dto.BareAnswer("B")}))
	require.NoError(t, err)

	stored, err := fixture.submissions.List(context.Background(), models.ActivityKindQuiz, repository.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 2)

	org := "org-1"
	entries, err := fixture.leaderboard.Build(context.Background(), dto.LeaderboardFilter{OrganizationID: &org})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ada.ID.String(), entries[0].UserID)
	require.Equal(t, "Ada", entries[0].DisplayName)
	require.Equal(t, 3, entries[0].TotalQuizScore)
	require.Equal(t, 3, entries[0].CombinedScore)
}

func TestSubmitPersistsWhenJudgeReplyIsUnparseable(t *testing.T) {
	judge := &stubJudge{response: ""}
	fixture := newSubmissionFixture(t, judge)
	activity := fixture.createActivity(t, models.Activity{
		Kind:  models.ActivityKindAssignment,
		Title: "Essay",
		Questions: datatypes.JSONSlice[models.Question]{
			{ID: "q1", Type: models.QuestionTypeFreeText, Prompt: "Explain gravity", Answer: "A force of attraction between masses"},
		},
	})

	request := quizRequest(activity, "user-1", map[string]dto.Answer{
		"Explain gravity": dto.StructuredAnswer(strPtr("<b>Masses attract</b> each other"), nil),
	})
	request.RetakeReason = strPtr("<script>alert(1)</script>network dropped")

	result, err := fixture.service.Submit(context.Background(), models.ActivityKindAssignment, request)
	require.NoError(t, err)
	require.Zero(t, result.Score)
	require.Equal(t, 1, result.TotalQuestions)
	require.True(t, result.GradingDegraded)
	require.Equal(t, descriptivePendingMessage, result.Message)
	require.Equal(t, 1, judge.calls)

	stored, err := fixture.submissions.List(context.Background(), models.ActivityKindAssignment, repository.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.True(t, stored[0].GradingDegraded)
	require.Equal(t, "network dropped", *stored[0].RetakeReason)

	answer := stored[0].Answers.Data()["q1"]
	require.Equal(t, "Masses attract each other", *answer.Text)
	require.False(t, *answer.IsCorrect)
	require.Equal(t, GradeMethodSemantic, answer.Method)
}

func TestSubmitRejectsInvalidActivityID(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)

	_, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, dto.SubmissionRequest{
		OrganizationID: "org-1",
		UserID:         "user-1",
		ActivityID:     "not-an-id",
		ActivityTitle:  "Quiz",
		Answers:        map[string]dto.Answer{},
	})
	require.ErrorIs(t, err, ErrInvalidActivityID)
}

func TestSubmitRequiresFields(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)

	_, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, dto.SubmissionRequest{
		OrganizationID: "org-1",
		UserID:         "   ",
		ActivityID:     uuid.NewString(),
		ActivityTitle:  "Quiz",
		Answers:        map[string]dto.Answer{},
	})
	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))

	_, err = fixture.service.Submit(context.Background(), models.ActivityKindQuiz, dto.SubmissionRequest{
		OrganizationID: "org-1",
		UserID:         "user-1",
		ActivityID:     uuid.NewString(),
		ActivityTitle:  "Quiz",
	})
	require.True(t, errors.As(err, &validationErrs))
}

func TestSubmitUnknownActivityListsAvailable(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	published := fixture.createActivity(t, twoQuestionQuiz())
	fixture.createActivity(t, models.Activity{Kind: models.ActivityKindQuiz, OrganizationID: "org-2", Title: "Other"})

	missing := uuid.New()
	request := quizRequest(published, "user-1", map[string]dto.Answer{})
	request.ActivityID = missing.String()

	_, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, request)
	require.ErrorIs(t, err, ErrActivityNotFound)

	var notFound *ActivityNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, missing.String(), notFound.ActivityID)
	require.Equal(t, []string{published.ID.String()}, notFound.Available)
}

func TestSubmitFindsScheduledActivity(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	activity := twoQuestionQuiz()
	activity.Status = models.ActivityStatusScheduled
	activity = fixture.createActivity(t, activity)

	result, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(activity, "user-1", map[string]dto.Answer{"Q2": dto.BareAnswer("b")}))
	require.NoError(t, err)
	require.Equal(t, 1, result.Score)
	require.Equal(t, 50.0, result.Percentage)

	// an assignment lookup never sees quiz activities
	_, err = fixture.service.Submit(context.Background(), models.ActivityKindAssignment, quizRequest(activity, "user-1", map[string]dto.Answer{}))
	require.ErrorIs(t, err, ErrActivityNotFound)
}

func TestSubmitPublisherFailureDoesNotFailSubmission(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	fixture.publisher.err = errors.New("nats down")
	activity := fixture.createActivity(t, twoQuestionQuiz())

	_, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(activity, "user-1", map[string]dto.Answer{"Q1": dto.BareAnswer("A")}))
	require.NoError(t, err)
	require.Len(t, fixture.publisher.events, 1)
}

func TestSubmissionListingAndHistory(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	quiz := fixture.createActivity(t, twoQuestionQuiz())
	assignment := twoQuestionQuiz()
	assignment.Kind = models.ActivityKindAssignment
	assignment = fixture.createActivity(t, assignment)

	ada := models.User{ID: uuid.New(), Name: "Ada", OrganizationID: "org-1"}
	require.NoError(t, fixture.db.Create(&ada).Error)

	_, err := fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(quiz, strings.ToUpper(ada.ID.String()), map[string]dto.Answer{"Q1": dto.BareAnswer("A")}))
	require.NoError(t, err)
	_, err = fixture.service.Submit(context.Background(), models.ActivityKindAssignment, quizRequest(assignment, ada.ID.String(), map[string]dto.Answer{"Q2": dto.BareAnswer("B")}))
	require.NoError(t, err)
	_, err = fixture.service.Submit(context.Background(), models.ActivityKindQuiz, quizRequest(quiz, "legacy-42", map[string]dto.Answer{}))
	require.NoError(t, err)

	org := "org-1"
	listing, err := fixture.service.List(context.Background(), models.ActivityKindQuiz, dto.SubmissionFilter{OrganizationID: &org})
	require.NoError(t, err)
	require.Len(t, listing, 2)

	names := map[string]string{}
	for _, row := range listing {
		names[row.UserID] = row.UserName
	}
	require.Equal(t, "Ada", names[strings.ToUpper(ada.ID.String())])
	require.Equal(t, "Unknown", names["legacy-42"])

	history, err := fixture.service.History(context.Background(), ada.ID.String())
	require.NoError(t, err)
	require.Len(t, history.Quizzes, 1)
	require.Len(t, history.Assignments, 1)

	_, err = fixture.service.History(context.Background(), "  ")
	require.ErrorIs(t, err, ErrInvalidUserID)
}

func TestPercentageRounding(t *testing.T) {
	require.Equal(t, 0.0, percentage(0, 0))
	require.Equal(t, 33.33, percentage(1, 3))
	require.Equal(t, 66.67, percentage(2, 3))
	require.Equal(t, 100.0, percentage(4, 4))
	require.Equal(t, 3.12, percentage(1, 32))
	require.Equal(t, 9.38, percentage(3, 32))
}

func TestSubmitStoresPlainTextVerbatim(t *testing.T) {
	judge := &stubJudge{response: "Correct"}
	fixture := newSubmissionFixture(t, judge)
	activity := fixture.createActivity(t, models.Activity{
		Kind:  models.ActivityKindAssignment,
		Title: "Inequalities",
		Questions: datatypes.JSONSlice[models.Question]{
			{ID: "q1", Type: models.QuestionTypeFreeText, Prompt: "When is the condition valid?", Answer: "x greater than 5 and y less than 3"},
		},
	})

	request := quizRequest(activity, "user-1", map[string]dto.Answer{
		"q1": dto.StructuredAnswer(strPtr("It's valid when x > 5 && y < 3"), nil),
	})
	request.RetakeReason = strPtr("Tom's wifi dropped")

	_, err := fixture.service.Submit(context.Background(), models.ActivityKindAssignment, request)
	require.NoError(t, err)
	require.Equal(t, "It's valid when x > 5 && y < 3", judge.inputs[0].StudentAnswer)

	history, err := fixture.service.History(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, history.Assignments, 1)
	require.Equal(t, "It's valid when x > 5 && y < 3", *history.Assignments[0].Answers["q1"].Text)
	require.Equal(t, "Tom's wifi dropped", *history.Assignments[0].RetakeReason)
}
