package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/metrics"
	"github.com/Dzen-J/multi-agent-LLM-interviewer/internal/utils"
)

const (
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
	defaultRetryPause = 500 * time.Millisecond
	defaultMaxLogLen  = 200
)

// CallerConfig holds the retry, timeout and logging knobs of the protocol.
type CallerConfig struct {
	MaxRetries int
	Timeout    time.Duration
	RetryPause time.Duration
	MaxLogLen  int
}

func (c CallerConfig) withDefaults() CallerConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RetryPause < 0 {
		c.RetryPause = defaultRetryPause
	}
	if c.MaxLogLen <= 0 {
		c.MaxLogLen = defaultMaxLogLen
	}
	return c
}

// Caller submits prompts to the reasoning service with bounded retries and, for
// structured requests, repairs and decodes the output. It holds no session
// state of its own.
type Caller struct {
	generator Generator
	cfg       CallerConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewCaller(generator Generator, cfg CallerConfig, m *metrics.Metrics, logger *zap.Logger) *Caller {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Caller{
		generator: generator,
		cfg:       cfg.withDefaults(),
		metrics:   m,
		logger:    logger,
	}
}

// Text submits the prompt and returns the raw completion. Transport failures
// are retried up to MaxRetries with a short pause; exhaustion yields an error
// wrapping ErrUnavailable.
func (c *Caller) Text(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		output, err := c.generator.GenerateContent(callCtx, prompt)
		cancel()

		c.metrics.ReasoningCall(err == nil)

		if err == nil {
			c.logger.Debug("reasoning call succeeded",
				zap.Int("attempt", attempt),
				zap.String("response_preview", utils.TruncateForLog(output, c.cfg.MaxLogLen)),
			)
			return output, nil
		}

		lastErr = err
		c.logger.Debug("reasoning call failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.MaxRetries),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}

		if attempt < c.cfg.MaxRetries {
			if err := utils.WaitFor(ctx, c.cfg.RetryPause); err != nil {
				break
			}
		}
	}

	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Object submits the prompt, repairs the response into a JSON object and
// decodes it into out. Decoding is weakly typed: numbers and booleans arriving
// as strings are coerced, since the provider enforces no schema.
func (c *Caller) Object(ctx context.Context, prompt string, out any) error {
	raw, err := c.Text(ctx, prompt)
	if err != nil {
		return err
	}

	payload, err := Repair(raw)
	if err != nil {
		c.logger.Debug("unparsable reasoning output",
			zap.String("response_preview", utils.TruncateForLog(raw, c.cfg.MaxLogLen)),
			zap.Error(err),
		)
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("building decoder: %w", err)
	}

	if err := decoder.Decode(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return nil
}
