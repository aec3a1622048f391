package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// SubmissionGradedEvent is broadcast after a graded submission is stored.
type SubmissionGradedEvent struct {
	Type            string    `json:"type"`
	SubmissionID    uint      `json:"submission_id"`
	ActivityKind    string    `json:"activity_kind"`
	ActivityID      string    `json:"activity_id"`
	OrganizationID  string    `json:"organization_id"`
	UserID          string    `json:"user_id"`
	Score           int       `json:"score"`
	TotalQuestions  int       `json:"total_questions"`
	Percentage      float64   `json:"percentage"`
	GradingDegraded bool      `json:"grading_degraded"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// SubmissionPublisher announces graded submissions to downstream consumers.
type SubmissionPublisher interface {
	PublishGraded(ctx context.Context, event SubmissionGradedEvent) error
}

type natsSubmissionPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSubmissionPublisher publishes events on subject. It returns nil when
// no connection is available so callers can skip publishing.
func NewNATSSubmissionPublisher(conn *nats.Conn, subject string) SubmissionPublisher {
	if conn == nil || subject == "" {
		return nil
	}
	return &natsSubmissionPublisher{conn: conn, subject: subject}
}

func (p *natsSubmissionPublisher) PublishGraded(_ context.Context, event SubmissionGradedEvent) error {
	if event.Type == "" {
		event.Type = "submission.graded"
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.conn.Publish(p.subject, payload)
}
