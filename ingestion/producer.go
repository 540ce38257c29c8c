// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/poiesic/spamsense/ai"
	"github.com/poiesic/spamsense/core"
)

// Result is the outcome of embedding one corpus item.
// Exactly one of Record and Err is set.
type Result struct {
	// Index is the position of Item in the input slice.
	Index  int
	Item   core.LabeledText
	Record *core.EmbeddingRecord
	Err    error
}

// Failed reports whether the item could not be embedded.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Producer embeds labeled texts one at a time, in input order.
type Producer struct {
	embedder    ai.Embedder
	maxAttempts int
	baseDelay   time.Duration
	retryable   RetryPolicy
	dropText    bool
	logger      *slog.Logger
}

// Option configures a Producer.
type Option func(*Producer) error

// WithRetry retries each failed item up to maxAttempts times in total, sleeping
// baseDelay (doubling every retry) in between. Invalid input is never retried.
// Default is a single attempt.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Producer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		if baseDelay < 0 {
			baseDelay = 0
		}
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
		return nil
	}
}

// WithRetryPolicy overrides which errors are considered retryable.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(p *Producer) error {
		p.retryable = policy
		return nil
	}
}

// WithoutText omits the source text from produced records.
func WithoutText() Option {
	return func(p *Producer) error {
		p.dropText = true
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Producer) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewProducer creates a producer that embeds texts with embedder.
func NewProducer(embedder ai.Embedder, opts ...Option) (*Producer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Producer{
		embedder:    embedder,
		maxAttempts: 1,
		retryable:   Retryable,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "producer")

	return p, nil
}

// Produce returns a lazy sequence with one Result per item, in input order.
// No request is made until the consumer pulls the next result. The sequence
// ends early when the consumer stops ranging or ctx is cancelled; ranging over
// it again starts from the first item.
func (p *Producer) Produce(ctx context.Context, items []core.LabeledText) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		for i, item := range items {
			if ctx.Err() != nil {
				p.logger.Debug("production cancelled", "index", i, "remaining", len(items)-i)
				return
			}
			if !yield(p.produceOne(ctx, i, item)) {
				return
			}
		}
	}
}

func (p *Producer) produceOne(ctx context.Context, index int, item core.LabeledText) Result {
	result := Result{Index: index, Item: item}

	if !core.IsFinite(item.Label) {
		result.Err = fmt.Errorf("item %d: %w: %w", index, core.ErrInvalidInput, core.ErrNonFiniteLabel)
		return result
	}

	var vector []float32
	err := RetryWithBackoff(ctx, func() error {
		v, err := p.embedder.EmbedText(ctx, item.Text)
		if err != nil {
			return err
		}
		vector = v
		return nil
	}, p.maxAttempts, p.baseDelay, p.retryable)
	if err != nil {
		p.logger.Debug("item failed", "index", index, "err", err)
		result.Err = fmt.Errorf("item %d: %w", index, err)
		return result
	}

	record := &core.EmbeddingRecord{
		Embedding: vector,
		Label:     item.Label,
	}
	if !p.dropText {
		record.Text = item.Text
	}
	result.Record = record
	return result
}
