package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
	"github.com/noah-isme/gema-assessment-api/pkg/similarity"
)

var (
	// ErrExplainerUnavailable indicates no reasoning service is configured.
	ErrExplainerUnavailable = errors.New("explanation service unavailable")
	// ErrExplanationFailed indicates the reasoning service failed or returned nothing.
	ErrExplanationFailed = errors.New("failed to generate explanation")
)

// EvaluationService exposes standalone scoring and explanation of answers.
type EvaluationService interface {
	Similarity(ctx context.Context, payload dto.SimilarityRequest) (dto.SimilarityResponse, error)
	Explain(ctx context.Context, payload dto.ExplanationRequest) (dto.ExplanationResponse, error)
}

type evaluationService struct {
	scorer    *similarity.Scorer
	explainer ai.Explainer
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEvaluationService constructs the service. explainer may be nil.
func NewEvaluationService(scorer *similarity.Scorer, explainer ai.Explainer, validate *validator.Validate, logger zerolog.Logger) EvaluationService {
	if scorer == nil {
		scorer = similarity.NewScorer()
	}
	return &evaluationService{
		scorer:    scorer,
		explainer: explainer,
		validator: validate,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
	}
}

func (s *evaluationService) Similarity(_ context.Context, payload dto.SimilarityRequest) (dto.SimilarityResponse, error) {
	payload.SubmittedAnswer = strings.TrimSpace(payload.SubmittedAnswer)
	payload.ReferenceAnswer = strings.TrimSpace(payload.ReferenceAnswer)
	if err := s.validator.Struct(payload); err != nil {
		return dto.SimilarityResponse{}, err
	}

	result, err := s.scorer.Score(payload.ReferenceAnswer, payload.SubmittedAnswer)
	if err != nil {
		return dto.SimilarityResponse{}, err
	}

	return dto.SimilarityResponse{Score: result.Score, Feedback: result.Feedback}, nil
}

func (s *evaluationService) Explain(ctx context.Context, payload dto.ExplanationRequest) (dto.ExplanationResponse, error) {
	payload.Question = strings.TrimSpace(payload.Question)
	payload.UserAnswer = strings.TrimSpace(payload.UserAnswer)
	payload.CorrectAnswer = strings.TrimSpace(payload.CorrectAnswer)
	payload.QuestionType = strings.TrimSpace(payload.QuestionType)
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExplanationResponse{}, err
	}

	if s.explainer == nil {
		return dto.ExplanationResponse{}, ErrExplainerUnavailable
	}

	explanation, err := s.explainer.Explain(ctx, ai.ExplanationInput{
		Question:      payload.Question,
		UserAnswer:    payload.UserAnswer,
		CorrectAnswer: payload.CorrectAnswer,
		QuestionType:  canonicalQuestionType(payload.QuestionType),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("explanation request failed")
		return dto.ExplanationResponse{}, fmt.Errorf("%w: %v", ErrExplanationFailed, err)
	}

	explanation = strings.TrimSpace(explanation)
	if explanation == "" {
		s.logger.Warn().Msg("explanation service returned an empty response")
		return dto.ExplanationResponse{}, ErrExplanationFailed
	}

	return dto.ExplanationResponse{Explanation: explanation}, nil
}

// canonicalQuestionType maps legacy question type names onto the stored ones.
func canonicalQuestionType(value string) string {
	switch value {
	case "mcq":
		return string(models.QuestionTypeSelection)
	case "descriptive":
		return string(models.QuestionTypeFreeText)
	default:
		return value
	}
}
