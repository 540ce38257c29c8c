package llamacpp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/spamsense/ai"
	"github.com/poiesic/spamsense/core"
	"github.com/sony/gobreaker"
)

// BreakerConfig controls when the embedding circuit breaker trips.
type BreakerConfig struct {
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	// Zero never clears counts while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// MinRequests is the number of requests observed before the ratio is considered.
	MinRequests uint32

	// FailureRatio trips the breaker once failures/requests reaches it.
	FailureRatio float64
}

// DefaultBreakerConfig returns settings suited to a single local embedding server.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "embedding",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

type breakerEmbedder struct {
	inner  ai.Embedder
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewBreaker wraps an embedder with a circuit breaker. While the breaker is open,
// calls fail immediately with an error wrapping core.ErrTransport.
// Invalid input and caller cancellation do not count as service failures.
func NewBreaker(inner ai.Embedder, cfg BreakerConfig) ai.Embedder {
	logger := slog.Default().With("component", "embedding-breaker")

	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warn("circuit breaker tripped, embedding requests will fail fast",
					"breaker", name, "from", from.String(), "to", to.String())
				return
			}
			logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, core.ErrInvalidInput) ||
				errors.Is(err, context.Canceled)
		},
	}

	return &breakerEmbedder{
		inner:  inner,
		cb:     gobreaker.NewCircuitBreaker(st),
		logger: logger,
	}
}

// EmbedText implements ai.Embedder.
func (b *breakerEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.EmbedText(ctx, text)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return resp.([]float32), nil
}

// EmbedTexts implements ai.Embedder.
func (b *breakerEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.EmbedTexts(ctx, texts)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return resp.([][]float32), nil
}

func (b *breakerEmbedder) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", core.ErrTransport, err)
	}
	return err
}
