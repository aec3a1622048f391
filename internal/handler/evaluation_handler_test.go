package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
	"github.com/noah-isme/gema-assessment-api/pkg/similarity"
)

type fakeExplainer struct {
	text string
	err  error
}

func (f fakeExplainer) Explain(context.Context, ai.ExplanationInput) (string, error) {
	return f.text, f.err
}

var explainBody = map[string]interface{}{
	"question":       "Capital of France?",
	"user_answer":    "Rome",
	"correct_answer": "Paris",
	"question_type":  "selection",
}

func TestDescriptiveSimilarityScoresAnswers(t *testing.T) {
	env := setupAssessmentApp(t, nil, nil)

	resp, raw := env.do(t, http.MethodPost, "/api/v1/evaluate-descriptive", map[string]interface{}{
		"submitted_answer": "The mitochondria produces energy for the cell",
		"reference_answer": "The mitochondria produces energy for the cell",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var payload dto.SimilarityResponse
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Equal(t, 100, payload.Score)
	require.Equal(t, similarity.FeedbackExcellent, payload.Feedback)
}

func TestDescriptiveSimilarityRejectsEmptyVocabulary(t *testing.T) {
	env := setupAssessmentApp(t, nil, nil)

	resp, raw := env.do(t, http.MethodPost, "/api/v1/evaluate-descriptive", map[string]interface{}{
		"submitted_answer": "a ?",
		"reference_answer": "! b",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var failure utils.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &failure))
	require.Equal(t, utils.ErrCodeValidation, failure.Error)
}

func TestExplainAnswerReturnsExplanation(t *testing.T) {
	env := setupAssessmentApp(t, fakeExplainer{text: "Paris is the capital of France."}, nil)

	resp, raw := env.do(t, http.MethodPost, "/api/v1/explain-answer", explainBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var payload dto.ExplanationResponse
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Equal(t, "Paris is the capital of France.", payload.Explanation)
}

func TestExplainAnswerWithoutExplainer(t *testing.T) {
	env := setupAssessmentApp(t, nil, nil)

	resp, raw := env.do(t, http.MethodPost, "/api/v1/explain-answer", explainBody)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var failure utils.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &failure))
	require.Equal(t, utils.ErrCodeServiceUnavailable, failure.Error)
}

func TestExplainAnswerUpstreamFailure(t *testing.T) {
	for name, explainer := range map[string]fakeExplainer{
		"error": {err: errors.New("connection reset")},
		"empty": {text: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			env := setupAssessmentApp(t, explainer, nil)

			resp, raw := env.do(t, http.MethodPost, "/api/v1/explain-answer", explainBody)
			require.Equal(t, http.StatusBadGateway, resp.StatusCode)

			var failure utils.ErrorResponse
			require.NoError(t, json.Unmarshal(raw, &failure))
			require.Equal(t, utils.ErrCodeUpstreamFailed, failure.Error)
			require.NotContains(t, failure.Message, "connection reset")
		})
	}
}

func TestExplainAnswerValidatesQuestionType(t *testing.T) {
	env := setupAssessmentApp(t, fakeExplainer{text: "ok"}, nil)

	body := map[string]interface{}{}
	for k, v := range explainBody {
		body[k] = v
	}
	body["question_type"] = "essay"

	resp, _ := env.do(t, http.MethodPost, "/api/v1/explain-answer", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExplainAnswerAcceptsLegacyQuestionType(t *testing.T) {
	env := setupAssessmentApp(t, fakeExplainer{text: "Paris is the capital of France."}, nil)

	resp, raw := env.do(t, http.MethodPost, "/api/v1/explain-answer", map[string]interface{}{
		"question":       "Capital of France?",
		"correct_answer": "Paris",
		"question_type":  "mcq",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
}
