package dto

// SimilarityRequest asks for a lexical comparison of two free-text answers.
type SimilarityRequest struct {
	SubmittedAnswer string `json:"submitted_answer" validate:"required"`
	ReferenceAnswer string `json:"reference_answer" validate:"required"`
}

// SimilarityResponse is the 0-100 score with its feedback band.
type SimilarityResponse struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// ExplanationRequest asks for a learner-facing explanation of an answer. An
// empty UserAnswer explains an unanswered question. QuestionType also accepts
// the legacy names mcq and descriptive.
type ExplanationRequest struct {
	Question      string `json:"question" validate:"required"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer" validate:"required"`
	QuestionType  string `json:"question_type" validate:"required,oneof=selection free_text mcq descriptive"`
}

// ExplanationResponse carries the generated explanation.
type ExplanationResponse struct {
	Explanation string `json:"explanation"`
}
