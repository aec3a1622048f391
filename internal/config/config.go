package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	NATSSubject       string
	JWTSecret         string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	AIModel           string
	JudgeTimeout      time.Duration
	FreeTextStrategy  string
	LexicalPassScore  int
	VerdictCacheTTL   time.Duration
	AIRateLimitMax    int
	AIRateLimitWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("openai_api_key", "GEMA_OPENAI_API_KEY", "OPENAI_API_KEY")

	v.SetDefault("app.name", "GEMA Assessment API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "gema.submissions.graded")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.judge_timeout", "15s")
	v.SetDefault("grading.free_text_strategy", "judge")
	v.SetDefault("grading.lexical_pass_score", 50)
	v.SetDefault("grading.verdict_cache_ttl", "24h")
	v.SetDefault("rate_limit.ai_max", 30)
	v.SetDefault("rate_limit.ai_window", "1m")

	judgeTimeout, err := parseDuration(v, "ai.judge_timeout")
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := parseDuration(v, "grading.verdict_cache_ttl")
	if err != nil {
		return Config{}, err
	}

	rateWindow, err := parseDuration(v, "rate_limit.ai_window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		NATSSubject:       v.GetString("nats.subject"),
		JWTSecret:         v.GetString("jwt.secret"),
		OpenAIAPIKey:      v.GetString("openai_api_key"),
		OpenAIBaseURL:     v.GetString("ai.base_url"),
		AIModel:           v.GetString("ai.model"),
		JudgeTimeout:      judgeTimeout,
		FreeTextStrategy:  strings.ToLower(strings.TrimSpace(v.GetString("grading.free_text_strategy"))),
		LexicalPassScore:  v.GetInt("grading.lexical_pass_score"),
		VerdictCacheTTL:   cacheTTL,
		AIRateLimitMax:    v.GetInt("rate_limit.ai_max"),
		AIRateLimitWindow: rateWindow,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	switch cfg.FreeTextStrategy {
	case "judge", "lexical":
	default:
		return Config{}, fmt.Errorf("unknown free text strategy %q", cfg.FreeTextStrategy)
	}

	if cfg.LexicalPassScore <= 0 || cfg.LexicalPassScore > 100 {
		return Config{}, fmt.Errorf("lexical pass score must be between 1 and 100")
	}

	if cfg.AIRateLimitMax <= 0 {
		cfg.AIRateLimitMax = 30
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}
