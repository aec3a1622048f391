package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/pkg/ai"
)

func TestCachedJudgeStoresParsedVerdicts(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	inner := &stubJudge{response: "Correct. The student explains it well."}
	judge := NewCachedJudge(inner, client, time.Hour, zerolog.Nop())

	input := ai.JudgeInput{Question: "Define osmosis", ReferenceAnswer: "water diffusion", StudentAnswer: "water moves"}

	raw, err := judge.Judge(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "Correct. The student explains it well.", raw)
	require.Equal(t, 1, inner.calls)

	raw, err = judge.Judge(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "correct", raw)
	require.Equal(t, 1, inner.calls)

	stored, err := mini.Get(verdictCacheKey(input))
	require.NoError(t, err)
	require.Equal(t, "correct", stored)
	require.Greater(t, mini.TTL(verdictCacheKey(input)), time.Duration(0))

	// a different answer is a different entry
	input.StudentAnswer = "salt moves"
	_, err = judge.Judge(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestCachedJudgeNeverStoresFailures(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	inner := &stubJudge{err: errors.New("timeout")}
	judge := NewCachedJudge(inner, client, time.Hour, zerolog.Nop())
	input := ai.JudgeInput{Question: "Q", ReferenceAnswer: "R", StudentAnswer: "S"}

	_, err = judge.Judge(context.Background(), input)
	require.Error(t, err)
	require.False(t, mini.Exists(verdictCacheKey(input)))

	inner.err = nil
	inner.response = "no idea"
	raw, err := judge.Judge(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "no idea", raw)
	require.False(t, mini.Exists(verdictCacheKey(input)))
	require.Equal(t, 2, inner.calls)
}

func TestCachedJudgeWithoutRedisIsPassthrough(t *testing.T) {
	inner := &stubJudge{response: "Incorrect"}
	require.Same(t, inner, NewCachedJudge(inner, nil, time.Hour, zerolog.Nop()))
}
