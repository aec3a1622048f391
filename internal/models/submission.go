package models

import (
	"time"

	"gorm.io/datatypes"
)

// StoredAnswer is the graded form of a submitted answer as persisted.
type StoredAnswer struct {
	QuestionID     string  `json:"question_id,omitempty"`
	Prompt         string  `json:"prompt"`
	Text           *string `json:"text"`
	SelectedOption *string `json:"selected_option"`
	IsCorrect      *bool   `json:"is_correct"`
	Method         string  `json:"method,omitempty"`
	Feedback       string  `json:"feedback,omitempty"`
}

// Submission is a graded answer set for one attempt at a quiz or assignment.
// Quiz and assignment submissions share this shape but live in separate tables.
type Submission struct {
	ID              uint                                       `gorm:"primaryKey" json:"id"`
	OrganizationID  string                                     `gorm:"size:64;not null" json:"organization_id"`
	UserID          string                                     `gorm:"size:64;not null" json:"user_id"`
	UserKey         string                                     `gorm:"size:64;not null" json:"-"`
	ActivityID      string                                     `gorm:"size:64;not null" json:"activity_id"`
	ActivityTitle   string                                     `gorm:"size:255;not null" json:"activity_title"`
	Answers         datatypes.JSONType[map[string]StoredAnswer] `json:"answers"`
	Score           int                                        `gorm:"not null" json:"score"`
	TotalQuestions  int                                        `gorm:"not null" json:"total_questions"`
	Percentage      float64                                    `gorm:"not null" json:"percentage"`
	AutoSubmitted   bool                                       `gorm:"not null;default:false" json:"auto_submitted"`
	RetakeReason    *string                                    `gorm:"type:text" json:"retake_reason"`
	RetakesAllowed  bool                                       `gorm:"not null;default:false" json:"-"`
	GradingDegraded bool                                       `gorm:"not null;default:false" json:"grading_degraded"`
	SubmittedAt     time.Time                                  `gorm:"not null" json:"submitted_at"`
	CreatedAt       time.Time                                  `json:"created_at"`
}

// UserScoreTotal is one row of a per-user score aggregation.
type UserScoreTotal struct {
	UserID string
	Total  int
}
