package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of reasoning service requests",
	}, []string{"model", "operation"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed reasoning service requests",
	}, []string{"model", "operation"})
)

const (
	judgeSystemPrompt   = "You are a strict but fair examiner who only responds with Correct or Incorrect."
	explainSystemPrompt = `You are an expert teacher explaining answers to students. Provide clear, concise explanations in simple language.

For selection questions:
1. Explain why the correct answer is right
2. Explain why the student's answer was right or wrong
3. Keep it brief (1-2 sentences)

For free-text questions:
1. Point out key elements in the correct answer
2. Compare with the student's answer
3. Provide constructive feedback
4. Keep it brief (2-3 sentences)`
)

// OpenAIConfig defines configuration options for the OpenAI client.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    zerolog.Logger
}

// OpenAIClient implements Judge and Explainer against the chat completion API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-assessment-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_client").Logger(),
	}, nil
}

// Judge asks the model for a one-word verdict on a free-text answer.
func (c *OpenAIClient) Judge(ctx context.Context, input JudgeInput) (string, error) {
	c.logger.Debug().Str("question", truncate(input.Question, 80)).Msg("semantic grading requested")
	return c.complete(ctx, "judge", 0, judgeSystemPrompt, buildJudgePrompt(input))
}

// Explain asks the model for a short explanation of an answer.
func (c *OpenAIClient) Explain(ctx context.Context, input ExplanationInput) (string, error) {
	return c.complete(ctx, "explain", 0.3, explainSystemPrompt, buildExplanationPrompt(input))
}

func (c *OpenAIClient) complete(parent context.Context, operation string, temperature float32, system, user string) (string, error) {
	ctx, span := c.tracer.Start(parent, "openai."+operation, trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	if temperature == 0 {
		// the request encoder drops a zero temperature
		temperature = math.SmallestNonzeroFloat32
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	aiDuration.WithLabelValues(c.cfg.Model, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", c.fail(span, operation, fmt.Errorf("openai %s: %w", operation, err))
	}

	if len(resp.Choices) == 0 {
		return "", c.fail(span, operation, fmt.Errorf("openai %s: no choices returned", operation))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	span.SetAttributes(attribute.Int("response.length", len(content)))
	return content, nil
}

func (c *OpenAIClient) fail(span trace.Span, operation string, err error) error {
	aiFailures.WithLabelValues(c.cfg.Model, operation).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func buildJudgePrompt(input JudgeInput) string {
	builder := strings.Builder{}
	builder.WriteString("You are an examiner evaluating a student's answer. Decide if the answer is logically and factually correct, even if it is written in a different style than the reference.\n\n")
	builder.WriteString("Grading rules:\n")
	builder.WriteString("- Accept correct answers even if they are written differently or are shorter.\n")
	builder.WriteString("- Accept valid paraphrasing, alternate explanations, or simpler words that still reflect the right concept.\n")
	builder.WriteString("- Ignore spelling, grammar, or small formatting differences.\n")
	builder.WriteString("- Do not compare word-for-word or expect exact phrasing.\n")
	builder.WriteString("- Reject only if the answer is wrong, incomplete, or unrelated.\n\n")
	builder.WriteString("Respond with only ONE word: Correct or Incorrect.\n\n")
	builder.WriteString("## Question\n")
	builder.WriteString(input.Question)
	builder.WriteString("\n\n## Reference Answer\n")
	builder.WriteString(input.ReferenceAnswer)
	builder.WriteString("\n\n## Student Answer\n")
	builder.WriteString(input.StudentAnswer)
	builder.WriteString("\n\nFinal grade (one word only):")
	return builder.String()
}

func buildExplanationPrompt(input ExplanationInput) string {
	builder := strings.Builder{}
	builder.WriteString("Question: ")
	builder.WriteString(input.Question)
	builder.WriteString("\nQuestion Type: ")
	builder.WriteString(input.QuestionType)
	builder.WriteString("\nCorrect Answer: ")
	builder.WriteString(input.CorrectAnswer)
	builder.WriteString("\nStudent's Answer: ")
	if strings.TrimSpace(input.UserAnswer) == "" {
		builder.WriteString("(no answer given)")
	} else {
		builder.WriteString(input.UserAnswer)
	}
	builder.WriteString("\n\nProvide a simple explanation that a student can easily understand:")
	return builder.String()
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
