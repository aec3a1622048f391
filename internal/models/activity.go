package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionType distinguishes how a question is graded.
type QuestionType string

const (
	// QuestionTypeSelection is a multiple-choice question graded by exact normalized match.
	QuestionTypeSelection QuestionType = "selection"
	// QuestionTypeFreeText is an open-response question graded semantically or lexically.
	QuestionTypeFreeText QuestionType = "free_text"
)

// Valid reports whether the question type is one of the known enum values.
func (t QuestionType) Valid() bool {
	return t == QuestionTypeSelection || t == QuestionTypeFreeText
}

// ActivityKind identifies which family of activity a record belongs to.
type ActivityKind string

const (
	ActivityKindQuiz       ActivityKind = "quiz"
	ActivityKindAssignment ActivityKind = "assignment"
)

// SubmissionTable returns the table holding graded submissions for the kind.
func (k ActivityKind) SubmissionTable() string {
	if k == ActivityKindAssignment {
		return "assignment_submissions"
	}
	return "quiz_submissions"
}

// Label returns a human readable name used in response messages.
func (k ActivityKind) Label() string {
	if k == ActivityKindAssignment {
		return "Assignment"
	}
	return "Quiz"
}

// ActivityStatus marks which store an activity lives in.
type ActivityStatus string

const (
	// ActivityStatusPublished is the primary store consulted first.
	ActivityStatusPublished ActivityStatus = "published"
	// ActivityStatusScheduled holds scheduled or draft activities.
	ActivityStatusScheduled ActivityStatus = "scheduled"
)

// Question is a single gradable item inside an activity.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"`
	Answer  string       `json:"answer"`
}

// Activity is a quiz or assignment definition owned by the authoring service.
type Activity struct {
	ID             uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	Kind           ActivityKind                 `gorm:"size:32;not null;index" json:"kind"`
	Status         ActivityStatus               `gorm:"size:32;not null;index" json:"status"`
	OrganizationID string                       `gorm:"size:64;index" json:"organization_id"`
	Title          string                       `gorm:"size:255;not null" json:"title"`
	Questions      datatypes.JSONSlice[Question] `json:"questions"`
	AllowRetakes   bool                         `gorm:"not null;default:false" json:"allow_retakes"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}

// BeforeCreate assigns an identifier when the authoring side did not supply one.
func (a *Activity) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = ActivityStatusPublished
	}
	return nil
}

// HasFreeText reports whether any question requires descriptive grading.
func (a Activity) HasFreeText() bool {
	for _, question := range a.Questions {
		if question.Type == QuestionTypeFreeText {
			return true
		}
	}
	return false
}
