package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
	"github.com/noah-isme/gema-assessment-api/pkg/similarity"
)

type stubExplainer struct {
	response string
	err      error
	input    ai.ExplanationInput
}

func (s *stubExplainer) Explain(_ context.Context, input ai.ExplanationInput) (string, error) {
	s.input = input
	return s.response, s.err
}

func TestEvaluationSimilarity(t *testing.T) {
	svc := NewEvaluationService(nil, nil, validator.New(), zerolog.Nop())

	response, err := svc.Similarity(context.Background(), dto.SimilarityRequest{
		SubmittedAnswer: "Mitochondria produce energy",
		ReferenceAnswer: "mitochondria produce energy",
	})
	require.NoError(t, err)
	require.Equal(t, 100, response.Score)
	require.Equal(t, similarity.FeedbackExcellent, response.Feedback)

	response, err = svc.Similarity(context.Background(), dto.SimilarityRequest{SubmittedAnswer: "banana", ReferenceAnswer: "mitochondria"})
	require.NoError(t, err)
	require.Equal(t, 0, response.Score)
	require.Equal(t, similarity.FeedbackNeedsWork, response.Feedback)
}

func TestEvaluationSimilarityValidation(t *testing.T) {
	svc := NewEvaluationService(nil, nil, validator.New(), zerolog.Nop())

	_, err := svc.Similarity(context.Background(), dto.SimilarityRequest{SubmittedAnswer: "   ", ReferenceAnswer: "energy"})
	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))

	_, err = svc.Similarity(context.Background(), dto.SimilarityRequest{SubmittedAnswer: "?", ReferenceAnswer: "!"})
	require.ErrorIs(t, err, similarity.ErrEmptyVocabulary)
}

func TestEvaluationExplain(t *testing.T) {
	explainer := &stubExplainer{response: "  Paris is the capital of France.  "}
	svc := NewEvaluationService(nil, explainer, validator.New(), zerolog.Nop())

	response, err := svc.Explain(context.Background(), dto.ExplanationRequest{
		Question:      "Capital of France?",
		UserAnswer:    "Rome",
		CorrectAnswer: "Paris",
		QuestionType:  "selection",
	})
	require.NoError(t, err)
	require.Equal(t, "Paris is the capital of France.", response.Explanation)
	require.Equal(t, "Rome", explainer.input.UserAnswer)
	require.Equal(t, "selection", explainer.input.QuestionType)
}

func TestEvaluationExplainFailures(t *testing.T) {
	request := dto.ExplanationRequest{Question: "Q", UserAnswer: "A", CorrectAnswer: "B", QuestionType: "free_text"}

	svc := NewEvaluationService(nil, nil, validator.New(), zerolog.Nop())
	_, err := svc.Explain(context.Background(), request)
	require.ErrorIs(t, err, ErrExplainerUnavailable)

	svc = NewEvaluationService(nil, &stubExplainer{err: errors.New("boom")}, validator.New(), zerolog.Nop())
	_, err = svc.Explain(context.Background(), request)
	require.ErrorIs(t, err, ErrExplanationFailed)

	svc = NewEvaluationService(nil, &stubExplainer{response: "   "}, validator.New(), zerolog.Nop())
	_, err = svc.Explain(context.Background(), request)
	require.ErrorIs(t, err, ErrExplanationFailed)

	request.QuestionType = "essay"
	_, err = svc.Explain(context.Background(), request)
	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))
}

func TestEvaluationExplainAcceptsLegacyTypesAndBlankAnswers(t *testing.T) {
	explainer := &stubExplainer{response: "Osmosis moves water across a membrane."}
	svc := NewEvaluationService(nil, explainer, validator.New(), zerolog.Nop())

	for legacy, canonical := range map[string]string{"mcq": "selection", "descriptive": "free_text"} {
		_, err := svc.Explain(context.Background(), dto.ExplanationRequest{
			Question:      "Define osmosis",
			CorrectAnswer: "Movement of water across a membrane",
			QuestionType:  legacy,
		})
		require.NoError(t, err)
		require.Equal(t, canonical, explainer.input.QuestionType)
		require.Empty(t, explainer.input.UserAnswer)
	}
}
