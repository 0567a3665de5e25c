package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"rental_valuation/pkg/core/apperr"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Result is a successful generation.
type Result struct {
	Text     string
	Model    string
	Attempts int // total provider calls, across models
}

// FallbackRunner tries an ordered model list with a bounded number of
// attempts per model.
type FallbackRunner struct {
	provider    Provider
	models      []string
	attempts    int
	step        time.Duration
	callTimeout time.Duration
	sleep       Sleeper
}

// NewFallbackRunner builds a runner. attemptsPerModel below 1 is treated as 1;
// step is the linear backoff unit (attempt n waits n*step); callTimeout bounds
// each provider call (zero disables).
func NewFallbackRunner(p Provider, models []string, attemptsPerModel int, step, callTimeout time.Duration) *FallbackRunner {
	if attemptsPerModel < 1 {
		attemptsPerModel = 1
	}
	return &FallbackRunner{
		provider:    p,
		models:      append([]string(nil), models...),
		attempts:    attemptsPerModel,
		step:        step,
		callTimeout: callTimeout,
		sleep:       sleepContext,
	}
}

// WithSleeper replaces the backoff wait (tests record instead of sleeping).
func (r *FallbackRunner) WithSleeper(s Sleeper) *FallbackRunner {
	r.sleep = s
	return r
}

// Models returns the ranked model list.
func (r *FallbackRunner) Models() []string {
	return append([]string(nil), r.models...)
}

// attemptState is the loop position: which model, and how many calls it has had.
type attemptState struct {
	modelIndex int
	attempt    int
}

func (s attemptState) nextModel() attemptState {
	return attemptState{modelIndex: s.modelIndex + 1}
}

// Generate runs the prompt through the model list. It fails only when every
// model is exhausted (the last error is kept as the cause) or a Fatal error
// occurs.
func (r *FallbackRunner) Generate(ctx context.Context, prompt, systemPrompt string) (Result, error) {
	if len(r.models) == 0 {
		return Result{}, apperr.Configuration("生成モデルが設定されていません")
	}

	var (
		state   attemptState
		lastErr error
		calls   int
	)
	bo := &linearBackOff{step: r.step}

	for state.modelIndex < len(r.models) {
		model := r.models[state.modelIndex]
		state.attempt++
		calls++

		zap.L().Debug("llm: generating", zap.String("model", model), zap.Int("attempt", state.attempt))
		text, err := r.call(ctx, model, prompt, systemPrompt)
		if err == nil {
			return Result{Text: text, Model: model, Attempts: calls}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		decision := Classify(err)
		zap.L().Warn("llm: attempt failed",
			zap.String("model", model),
			zap.Int("attempt", state.attempt),
			zap.Stringer("decision", decision),
			zap.Error(err))

		switch decision {
		case Fatal:
			return Result{}, err
		case RetrySameModel:
			if state.attempt < r.attempts {
				if err := r.sleep(ctx, bo.NextBackOff()); err != nil {
					return Result{}, err
				}
				continue
			}
		}

		state = state.nextModel()
		bo.Reset()
	}

	return Result{}, apperr.Transport(
		fmt.Sprintf("全てのモデル(%d)で生成に失敗しました", len(r.models)), lastErr)
}

func (r *FallbackRunner) call(ctx context.Context, model, prompt, systemPrompt string) (string, error) {
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}
	return r.provider.GenerateResponse(ctx, prompt, systemPrompt, map[string]interface{}{"model": model})
}

// linearBackOff waits step, 2*step, 3*step, ... between retries of one model.
type linearBackOff struct {
	step time.Duration
	n    int
}

var _ backoff.BackOff = (*linearBackOff)(nil)

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(b.n) * b.step
}

func (b *linearBackOff) Reset() { b.n = 0 }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
