package compare

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sportcar/internal/model"
)

// ErrTransient marks a scoring failure that may succeed when retried, such
// as a timeout of a remote model.
var ErrTransient = eris.New("compare: transient scoring failure")

// RetryConfig controls retries of a ScoreProvider with exponential backoff
// and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, the first one included.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// JitterFraction adds +/- this fraction of the computed delay.
	JitterFraction float64
}

// DefaultRetryConfig returns the retry settings used in front of the scorer.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.Multiplier <= 0 {
		c.Multiplier = d.Multiplier
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	return c
}

// RetryScorer retries transient failures of the wrapped ScoreProvider.
type RetryScorer struct {
	next ScoreProvider
	cfg  RetryConfig
}

// WithRetry wraps next so errors matching ErrTransient are retried.
func WithRetry(next ScoreProvider, cfg RetryConfig) *RetryScorer {
	return &RetryScorer{next: next, cfg: cfg.withDefaults()}
}

func (r *RetryScorer) Score(ctx context.Context, v model.Vehicle) (int, error) {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		score, err := r.next.Score(ctx, v)
		if err == nil {
			return score, nil
		}
		lastErr = err

		if ctx.Err() != nil || !errors.Is(err, ErrTransient) {
			return 0, lastErr
		}
		// No sleep after the last attempt.
		if attempt >= r.cfg.MaxAttempts-1 {
			break
		}

		zap.L().Warn("compare: retrying score",
			zap.String("vehicle_id", v.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff(attempt, r.cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, lastErr
		case <-timer.C:
		}
	}
	return 0, eris.Wrapf(lastErr, "compare: score %s after %d attempts", v.ID, r.cfg.MaxAttempts)
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	if cfg.JitterFraction > 0 {
		spread := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * spread
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
