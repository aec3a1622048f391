package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
)

const verdictCachePrefix = "grading:verdict:"

// CachedJudge memoises parsed verdicts for identical question, reference and
// answer triples. Failed or unparseable judgments are never stored.
type CachedJudge struct {
	next   ai.Judge
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedJudge wraps next with a redis-backed verdict cache. A nil client
// returns next unchanged.
func NewCachedJudge(next ai.Judge, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ai.Judge {
	if next == nil || cache == nil {
		return next
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &CachedJudge{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "verdict_cache").Logger(),
	}
}

// Judge returns a cached verdict when available and otherwise delegates.
func (j *CachedJudge) Judge(ctx context.Context, input ai.JudgeInput) (string, error) {
	key := verdictCacheKey(input)

	cached, err := j.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		if verdict, ok := ai.ParseVerdict(cached); ok {
			observability.VerdictCacheLookups().WithLabelValues("hit").Inc()
			return string(verdict), nil
		}
	case !errors.Is(err, redis.Nil):
		j.logger.Warn().Err(err).Msg("failed to read verdict cache")
	}
	observability.VerdictCacheLookups().WithLabelValues("miss").Inc()

	raw, err := j.next.Judge(ctx, input)
	if err != nil {
		return "", err
	}

	if verdict, ok := ai.ParseVerdict(raw); ok {
		if err := j.cache.Set(ctx, key, string(verdict), j.ttl).Err(); err != nil {
			j.logger.Warn().Err(err).Msg("failed to store verdict cache")
		}
	}

	return raw, nil
}

func verdictCacheKey(input ai.JudgeInput) string {
	hash := sha256.New()
	for _, part := range []string{input.Question, input.ReferenceAnswer, input.StudentAnswer} {
		hash.Write([]byte(part))
		hash.Write([]byte{0})
	}
	return verdictCachePrefix + hex.EncodeToString(hash.Sum(nil))
}
