package completion

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// shrinkFactor is applied to the working max_tokens each time the service
// rejects a batch for exceeding the model's context window.
const shrinkFactor = 0.8

// RetryPolicy bounds the per-batch retry loop. The zero value reproduces
// the classic long-running-job behaviour: retry until the batch succeeds,
// with no pause between attempts and no token floor beyond zero.
type RetryPolicy struct {
	// MaxAttempts caps attempts per batch; 0 means unbounded.
	MaxAttempts int

	// Sleep is the pause before retrying a transient failure.
	// Context-length rejections retry immediately regardless.
	Sleep time.Duration

	// MinTokens is the floor for context-window shrinking. A shrink that
	// would reach or cross the floor fails the call instead of looping
	// forever on a prompt that can never fit.
	MinTokens int
}

// completeBatch attempts one batch until it succeeds or the policy gives
// up. args is the batch's own working copy; shrinking it here never
// affects any other batch. Two failure classes get distinct recovery:
// context-window rejections shrink max_tokens and retry at once, while
// everything else retryable sleeps for policy.Sleep and retries with the
// arguments unchanged. Malformed responses are fatal immediately.
func (c *Client) completeBatch(ctx context.Context, batchID int, batch []any, model string, args DecodingArgs, extra map[string]any, policy RetryPolicy) ([]Choice, error) {
	log := c.logger()

	for attempt := 1; ; attempt++ {
		choices, err := c.sendBatch(ctx, model, batch, args, extra)
		if err == nil {
			return choices, nil
		}

		var te *TransportError
		if errors.As(err, &te) {
			return nil, err
		}

		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return nil, &RetryBudgetExceededError{Batch: batchID, Attempts: attempt, Err: err}
		}

		var ae *APIError
		if errors.As(err, &ae) && ae.Kind == FailureContextLength {
			shrunk := int(float64(args.MaxTokens) * shrinkFactor)
			if shrunk <= policy.MinTokens {
				return nil, &RetryBudgetExceededError{Batch: batchID, Attempts: attempt, Err: err}
			}

			args.MaxTokens = shrunk
			log.Warn("prompt exceeds context window, reducing target length",
				zap.Int("batch", batchID),
				zap.Int("max_tokens", shrunk),
			)

			continue
		}

		log.Warn("completion request failed, backing off",
			zap.Int("batch", batchID),
			zap.Int("attempt", attempt),
			zap.Duration("sleep", policy.Sleep),
			zap.Error(err),
		)

		if err := c.sleep(ctx, policy.Sleep); err != nil {
			return nil, err
		}
	}
}
