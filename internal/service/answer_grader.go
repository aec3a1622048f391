package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
	"github.com/noah-isme/gema-assessment-api/pkg/similarity"
)

// FreeTextStrategy selects how descriptive answers are graded.
type FreeTextStrategy string

const (
	// FreeTextJudge grades through the semantic judge.
	FreeTextJudge FreeTextStrategy = "judge"
	// FreeTextLexical grades by TF-IDF similarity against the canonical answer.
	FreeTextLexical FreeTextStrategy = "lexical"
)

// Grading methods recorded alongside each stored answer.
const (
	GradeMethodExact    = "exact"
	GradeMethodSemantic = "semantic"
	GradeMethodLexical  = "lexical"
)

const (
	defaultJudgeTimeout     = 15 * time.Second
	defaultLexicalPassScore = 50
)

// GradeResult is the outcome of grading one question.
type GradeResult struct {
	Correct bool
	// Skipped is set for free-text questions with no text; they are ungraded.
	Skipped bool
	// Degraded is set when the judge failed and the answer was failed closed.
	Degraded bool
	Method   string
	Feedback string
}

// AnswerGrader scores a single question/answer pair.
type AnswerGrader interface {
	Grade(ctx context.Context, question models.Question, answer dto.Answer) GradeResult
}

// GraderConfig tunes free-text grading.
type GraderConfig struct {
	Strategy         FreeTextStrategy
	JudgeTimeout     time.Duration
	LexicalPassScore int
}

type answerGrader struct {
	judge  ai.Judge
	scorer *similarity.Scorer
	cfg    GraderConfig
	logger zerolog.Logger
}

// NewAnswerGrader constructs an AnswerGrader. Without a judge, free-text
// answers are graded lexically whatever strategy is configured.
func NewAnswerGrader(judge ai.Judge, scorer *similarity.Scorer, cfg GraderConfig, logger zerolog.Logger) AnswerGrader {
	if cfg.JudgeTimeout <= 0 {
		cfg.JudgeTimeout = defaultJudgeTimeout
	}
	if cfg.LexicalPassScore <= 0 {
		cfg.LexicalPassScore = defaultLexicalPassScore
	}
	if cfg.Strategy == "" {
		cfg.Strategy = FreeTextJudge
	}
	if scorer == nil {
		scorer = similarity.NewScorer()
	}

	componentLogger := logger.With().Str("component", "answer_grader").Logger()
	if cfg.Strategy == FreeTextJudge && judge == nil {
		componentLogger.Warn().Msg("semantic judge not configured, grading free text lexically")
		cfg.Strategy = FreeTextLexical
	}

	return &answerGrader{
		judge:  judge,
		scorer: scorer,
		cfg:    cfg,
		logger: componentLogger,
	}
}

func (g *answerGrader) Grade(ctx context.Context, question models.Question, answer dto.Answer) GradeResult {
	var result GradeResult
	switch {
	case !question.Type.Valid():
		g.logger.Warn().Str("question_id", question.ID).Str("type", string(question.Type)).Msg("unknown question type")
		result = GradeResult{Skipped: true, Feedback: "unsupported question type"}
	case question.Type == models.QuestionTypeSelection:
		result = g.gradeSelection(question, answer)
	default:
		result = g.gradeFreeText(ctx, question, answer)
	}

	observability.GradingOutcomes().WithLabelValues(string(question.Type), outcomeLabel(result)).Inc()
	return result
}

func (g *answerGrader) gradeSelection(question models.Question, answer dto.Answer) GradeResult {
	selection, ok := answer.Selection()
	if !ok {
		return GradeResult{Method: GradeMethodExact, Feedback: "no option selected"}
	}

	return GradeResult{
		Correct: normalizeChoice(selection) == normalizeChoice(question.Answer),
		Method:  GradeMethodExact,
	}
}

func (g *answerGrader) gradeFreeText(ctx context.Context, question models.Question, answer dto.Answer) GradeResult {
	text := answer.Text()
	if text == "" {
		return GradeResult{Skipped: true}
	}

	if g.cfg.Strategy == FreeTextLexical {
		return g.gradeLexically(question, text)
	}

	judgeCtx, cancel := context.WithTimeout(ctx, g.cfg.JudgeTimeout)
	defer cancel()

	raw, err := g.judge.Judge(judgeCtx, ai.JudgeInput{
		Question:        question.Prompt,
		ReferenceAnswer: question.Answer,
		StudentAnswer:   text,
	})
	if err != nil {
		g.logger.Warn().Err(err).Str("question_id", question.ID).Msg("semantic judge failed, answer marked incorrect")
		return GradeResult{Degraded: true, Method: GradeMethodSemantic, Feedback: "semantic grading unavailable"}
	}

	verdict, ok := ai.ParseVerdict(raw)
	if !ok {
		g.logger.Warn().Str("question_id", question.ID).Str("response", raw).Msg("unparseable judge verdict, answer marked incorrect")
		return GradeResult{Degraded: true, Method: GradeMethodSemantic, Feedback: "semantic grading unavailable"}
	}

	return GradeResult{Correct: verdict.IsCorrect(), Method: GradeMethodSemantic}
}

func (g *answerGrader) gradeLexically(question models.Question, text string) GradeResult {
	scored, err := g.scorer.Score(question.Answer, text)
	if err != nil {
		g.logger.Debug().Err(err).Str("question_id", question.ID).Msg("lexical scoring produced no terms")
		return GradeResult{Method: GradeMethodLexical, Feedback: similarity.FeedbackNeedsWork}
	}

	return GradeResult{
		Correct:  scored.Score >= g.cfg.LexicalPassScore,
		Method:   GradeMethodLexical,
		Feedback: fmt.Sprintf("%s (similarity %d/100)", scored.Feedback, scored.Score),
	}
}

func normalizeChoice(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func outcomeLabel(result GradeResult) string {
	switch {
	case result.Skipped:
		return "skipped"
	case result.Degraded:
		return "degraded"
	case result.Correct:
		return "correct"
	default:
		return "incorrect"
	}
}
