package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrRetriesExhausted 重试次数用尽
var ErrRetriesExhausted = errors.New("retries exhausted")

// OutcomeKind 单次请求的结果类型
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeTerminal
)

// Outcome 单次请求的显式结果：成功 / 可重试（带服务端要求的等待时间）/ 终止
type Outcome[T any] struct {
	Kind       OutcomeKind
	Value      T
	RetryAfter time.Duration
	Err        error
}

// Success 成功
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeSuccess, Value: v}
}

// Retryable 服务端要求等待 wait 后重试
func Retryable[T any](wait time.Duration, err error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeRetryable, RetryAfter: wait, Err: err}
}

// Terminal 不可恢复的失败
func Terminal[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeTerminal, Err: err}
}

// RateLimitedFetcher 在限流时按服务端给出的时间等待后重试
//
// A retryable outcome with a non-positive wait is treated as terminal.
// After MaxRetries retries the last failure is returned; the loop is always
// bounded.
type RateLimitedFetcher struct {
	MaxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRateLimitedFetcher 创建 fetcher，maxRetries<=0 时使用 1 次
func NewRateLimitedFetcher(maxRetries int) *RateLimitedFetcher {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &RateLimitedFetcher{MaxRetries: maxRetries, sleep: sleepContext}
}

// Do runs attempt until it succeeds, fails terminally, or the retry budget
// is spent.
func Do[T any](ctx context.Context, f *RateLimitedFetcher, name string, attempt func(ctx context.Context) Outcome[T]) (T, error) {
	var zero T
	for try := 0; ; try++ {
		out := attempt(ctx)
		switch out.Kind {
		case OutcomeSuccess:
			return out.Value, nil
		case OutcomeTerminal:
			return zero, out.Err
		}

		if out.RetryAfter <= 0 {
			log.Error().Err(out.Err).Str("request", name).Msg("request failed without retry-after")
			return zero, out.Err
		}
		if try >= f.MaxRetries {
			log.Error().Err(out.Err).Str("request", name).Int("retries", try).Msg("request failed after retry")
			return zero, errors.Join(ErrRetriesExhausted, out.Err)
		}

		log.Warn().Str("request", name).Dur("wait", out.RetryAfter).Msgf("waiting %s", out.RetryAfter)
		if err := f.sleep(ctx, out.RetryAfter); err != nil {
			return zero, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
