package ai

import "context"

// JudgeInput carries everything the reasoning service needs to judge one
// free-text answer.
type JudgeInput struct {
	Question        string
	ReferenceAnswer string
	StudentAnswer   string
}

// Judge issues a binary correctness verdict for a free-text answer. It returns
// the raw model response; callers parse it with ParseVerdict.
type Judge interface {
	Judge(ctx context.Context, input JudgeInput) (string, error)
}

// ExplanationInput describes an answer a learner wants explained.
type ExplanationInput struct {
	Question      string
	UserAnswer    string
	CorrectAnswer string
	QuestionType  string
}

// Explainer produces a short learner-facing explanation of an answer.
type Explainer interface {
	Explain(ctx context.Context, input ExplanationInput) (string, error)
}
