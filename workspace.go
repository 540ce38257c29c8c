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


package spamsense

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/poiesic/spamsense/ai"
	"github.com/poiesic/spamsense/ai/llamacpp"
	"github.com/poiesic/spamsense/classify"
	"github.com/poiesic/spamsense/core"
	"github.com/poiesic/spamsense/dataset"
	"github.com/poiesic/spamsense/ingestion"
	"github.com/poiesic/spamsense/persist"
	"github.com/poiesic/spamsense/storage"
	"github.com/poiesic/spamsense/storage/badger"
)

// ErrEmbedderNotConfigured is returned by operations that need the embedding
// service when the workspace was opened without one.
var ErrEmbedderNotConfigured = errors.New("embedding service not configured")

// Workspace ties together the local state database, the embedding service
// and the model.
type Workspace struct {
	backend        *badger.Backend
	checkpointRepo storage.CheckpointRepository
	modelRepo      storage.ModelRepository
	embedder       ai.Embedder
	logger         *slog.Logger
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*workspaceOptions)

type workspaceOptions struct {
	aiConfig *ai.Config
	breaker  *llamacpp.BreakerConfig
	embedder ai.Embedder
	inMemory bool
}

// WithAIConfig connects the workspace to the embedding service described by config.
func WithAIConfig(config *ai.Config) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.aiConfig = config
	}
}

// WithBreaker wraps the embedding client in a circuit breaker.
func WithBreaker(config llamacpp.BreakerConfig) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.breaker = &config
	}
}

// WithEmbedder uses embedder instead of building a client from an AI config.
func WithEmbedder(embedder ai.Embedder) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.embedder = embedder
	}
}

// WithInMemoryStorage keeps all state in memory. filePath is ignored.
func WithInMemoryStorage() WorkspaceOption {
	return func(o *workspaceOptions) {
		o.inMemory = true
	}
}

// OpenWorkspace opens or creates the state database at filePath.
func OpenWorkspace(filePath string, opts ...WorkspaceOption) (*Workspace, error) {
	options := &workspaceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	embedder := options.embedder
	if embedder == nil && options.aiConfig != nil {
		var err error
		embedder, err = llamacpp.NewEmbedder(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}
	if embedder != nil && options.breaker != nil {
		embedder = llamacpp.NewBreaker(embedder, *options.breaker)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: opening state database: %w", core.ErrIOFailure, err)
	}

	return &Workspace{
		backend:        backend,
		checkpointRepo: badger.NewCheckpointRepository(backend),
		modelRepo:      badger.NewModelRepository(backend),
		embedder:       embedder,
		logger:         slog.Default().With("component", "workspace"),
	}, nil
}

// Close releases the state database.
func (w *Workspace) Close() error {
	if err := w.backend.Close(); err != nil {
		w.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (w *Workspace) CheckpointRepository() storage.CheckpointRepository {
	return w.checkpointRepo
}

func (w *Workspace) ModelRepository() storage.ModelRepository {
	return w.modelRepo
}

// Embedder returns the embedding client, or nil when none is configured.
func (w *Workspace) Embedder() ai.Embedder {
	return w.embedder
}

func (w *Workspace) NewProducer(opts ...ingestion.Option) (*ingestion.Producer, error) {
	if w.embedder == nil {
		return nil, ErrEmbedderNotConfigured
	}
	return ingestion.NewProducer(w.embedder, opts...)
}

func (w *Workspace) NewLoader(opts ...dataset.LoaderOption) *dataset.Loader {
	return dataset.NewLoader(opts...)
}

func (w *Workspace) NewModel(opts ...classify.Option) (*classify.KNN, error) {
	return classify.NewKNN(w.modelRepo, opts...)
}

// RunKey derives the checkpoint key of a generation run from its inputs.
func RunKey(inputs ...string) string {
	return fmt.Sprintf("generate:%016x", uint64(core.IDFromContent(strings.Join(inputs, "\x00"))))
}

// GenerateOptions controls a generation run.
type GenerateOptions struct {
	// BatchSize is the number of records per write. Zero means persist.DefaultBatchSize.
	BatchSize int
	// Progress receives a progress line every ReportInterval items when set.
	Progress       io.Writer
	ReportInterval int
	// RunKey names the checkpoint of this run. Empty disables checkpoints.
	RunKey string
	// Resume skips the items a previous run with the same RunKey accounted for.
	Resume bool
	// ProducerOptions configure the embedding producer (retries, logging).
	ProducerOptions []ingestion.Option
}

// GenerateResult reports a generation run.
type GenerateResult struct {
	persist.Summary
	// Resumed is the number of corpus items skipped because a previous run handled them.
	Resumed int
}

// Generate embeds items and appends the records to sink.
func (w *Workspace) Generate(ctx context.Context, items []core.LabeledText, sink io.Writer, opts GenerateOptions) (*GenerateResult, error) {
	producer, err := w.NewProducer(opts.ProducerOptions...)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{}
	if opts.Resume && opts.RunKey != "" {
		checkpoint, err := w.checkpointRepo.LoadCheckpoint(ctx, opts.RunKey)
		if err != nil {
			return nil, fmt.Errorf("loading checkpoint: %w", err)
		}
		if checkpoint != nil {
			result.Resumed = min(checkpoint.Position, len(items))
			w.logger.Info("resuming generation", "key", opts.RunKey, "skipped", result.Resumed, "remaining", len(items)-result.Resumed)
		}
	}
	remaining := items[result.Resumed:]

	persistOpts := []persist.Option{}
	if opts.BatchSize > 0 {
		persistOpts = append(persistOpts, persist.WithBatchSize(opts.BatchSize))
	}
	if opts.Progress != nil {
		persistOpts = append(persistOpts, persist.WithProgress(opts.Progress, opts.ReportInterval))
	}
	if opts.RunKey != "" {
		persistOpts = append(persistOpts, persist.WithCheckpoints(w.checkpointRepo, opts.RunKey, result.Resumed))
	}

	persister, err := persist.NewPersister(sink, persistOpts...)
	if err != nil {
		return nil, err
	}

	summary, err := persister.Persist(ctx, producer.Produce(ctx, remaining), len(remaining))
	result.Summary = summary
	return result, err
}

// TrainOptions controls how a loaded dataset is used for training.
type TrainOptions struct {
	// Eval holds out part of the data for testing instead of testing on the training data.
	Eval bool
	// Ratio is the share of entries used for training when Eval is set.
	Ratio float64
	// Seed makes the shuffle before the evaluation split reproducible.
	Seed uint64
}

// TrainReport holds the outcome of Train.
type TrainReport struct {
	Stats dataset.Stats
	Train *classify.Metrics
	// Test is nil unless TrainOptions.Eval was set.
	Test *classify.Metrics
}

// Train updates model with d and tests it. Without Eval the model is tested
// on its own training data; with Eval d is shuffled and split first.
func (w *Workspace) Train(ctx context.Context, model classify.Model, d *core.Dataset, opts TrainOptions) (*TrainReport, error) {
	if err := dataset.CheckShape(d); err != nil {
		return nil, err
	}
	if d.Len() == 0 {
		return nil, fmt.Errorf("%w: no embeddings to train on", core.ErrInvalidInput)
	}

	report := &TrainReport{Stats: dataset.Summarize(d)}

	train := d
	var test *core.Dataset
	if opts.Eval {
		shuffled := dataset.Shuffle(d, rand.New(rand.NewPCG(opts.Seed, opts.Seed)))
		var err error
		train, test, err = dataset.Split(shuffled, opts.Ratio)
		if err != nil {
			return nil, err
		}
		if train.Len() == 0 {
			return nil, fmt.Errorf("%w: ratio %v leaves no training entries", core.ErrInvalidInput, opts.Ratio)
		}
	}

	if err := model.Update(ctx, train); err != nil {
		return nil, err
	}

	var err error
	report.Train, err = model.Test(ctx, train)
	if err != nil {
		return nil, err
	}
	if test != nil {
		report.Test, err = model.Test(ctx, test)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Predict embeds texts and scores them with model. Texts must not be empty.
func (w *Workspace) Predict(ctx context.Context, model classify.Model, texts []string) ([]float64, error) {
	if w.embedder == nil {
		return nil, ErrEmbedderNotConfigured
	}
	vectors, err := w.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	return model.Predict(ctx, vectors)
}
