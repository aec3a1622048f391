package dto

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// SubmissionRequest is the answer set a learner submits for a quiz or assignment.
type SubmissionRequest struct {
	OrganizationID string            `json:"organization_id" validate:"required,max=64"`
	UserID         string            `json:"user_id" validate:"required,max=64"`
	ActivityID     string            `json:"activity_id" validate:"required"`
	ActivityTitle  string            `json:"activity_title" validate:"required,max=255"`
	Answers        map[string]Answer `json:"answers" validate:"required"`
	AutoSubmitted  bool              `json:"auto_submitted"`
	RetakeReason   *string           `json:"retake_reason" validate:"omitempty,max=1000"`
}

// SubmissionResult summarises the grading outcome of a submission.
type SubmissionResult struct {
	SubmissionID    uint    `json:"submission_id"`
	Score           int     `json:"score"`
	TotalQuestions  int     `json:"total_questions"`
	Percentage      float64 `json:"percentage"`
	Message         string  `json:"message"`
	GradingDegraded bool    `json:"grading_degraded"`
}

// SubmissionEnvelope is the success body of the submit endpoints.
type SubmissionEnvelope struct {
	Success bool             `json:"success"`
	Result  SubmissionResult `json:"result"`
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	OrganizationID *string `query:"organization_id" validate:"omitempty,max=64"`
}

// SubmissionResponse is a persisted submission as shown to API clients.
type SubmissionResponse struct {
	ID              uint                           `json:"id"`
	OrganizationID  string                         `json:"organization_id"`
	UserID          string                         `json:"user_id"`
	UserName        string                         `json:"user_name,omitempty"`
	ActivityID      string                         `json:"activity_id"`
	ActivityTitle   string                         `json:"activity_title"`
	Answers         map[string]models.StoredAnswer `json:"answers"`
	Score           int                            `json:"score"`
	TotalQuestions  int                            `json:"total_questions"`
	Percentage      float64                        `json:"percentage"`
	AutoSubmitted   bool                           `json:"auto_submitted"`
	RetakeReason    *string                        `json:"retake_reason"`
	GradingDegraded bool                           `json:"grading_degraded"`
	SubmittedAt     time.Time                      `json:"submitted_at"`
}

// SubmissionHistoryResponse groups one learner's submissions by store.
type SubmissionHistoryResponse struct {
	Quizzes     []SubmissionResponse `json:"quizzes"`
	Assignments []SubmissionResponse `json:"assignments"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	answers := model.Answers.Data()
	if answers == nil {
		answers = map[string]models.StoredAnswer{}
	}

	return SubmissionResponse{
		ID:              model.ID,
		OrganizationID:  model.OrganizationID,
		UserID:          model.UserID,
		ActivityID:      model.ActivityID,
		ActivityTitle:   model.ActivityTitle,
		Answers:         answers,
		Score:           model.Score,
		TotalQuestions:  model.TotalQuestions,
		Percentage:      model.Percentage,
		AutoSubmitted:   model.AutoSubmitted,
		RetakeReason:    model.RetakeReason,
		GradingDegraded: model.GradingDegraded,
		SubmittedAt:     model.SubmittedAt,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
