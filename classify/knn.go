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


package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/spamsense/core"
	"github.com/poiesic/spamsense/dataset"
	"github.com/poiesic/spamsense/storage"
)

const (
	// DefaultK is the number of neighbors averaged per prediction.
	DefaultK = 3

	// DefaultModelName is the slot the training set is stored under.
	DefaultModelName = "knn"
)

// KNN is a k-nearest-neighbors regressor using Euclidean distance.
// A prediction is the mean label of the k closest training vectors.
type KNN struct {
	k       int
	name    string
	repo    storage.ModelRepository
	workers int
	logger  *slog.Logger

	mu    sync.RWMutex
	train *core.Dataset
}

var _ Model = (*KNN)(nil)

// Option configures a KNN model.
type Option func(*KNN) error

// WithK sets the number of neighbors.
// Default is DefaultK.
func WithK(k int) Option {
	return func(m *KNN) error {
		if k < 1 {
			return ErrInvalidK
		}
		m.k = k
		return nil
	}
}

// WithModelName sets the repository slot used for the training set.
// The name must not be empty or contain ':'. Default is DefaultModelName.
func WithModelName(name string) Option {
	return func(m *KNN) error {
		if name == "" || strings.Contains(name, ":") {
			return storage.ErrInvalidKey
		}
		m.name = name
		return nil
	}
}

// WithWorkers sets how many vectors are scored concurrently.
// Default is runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(m *KNN) error {
		if n < 1 {
			n = 1
		}
		m.workers = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *KNN) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewKNN creates a KNN model. With a nil repo the training set only lives in memory.
func NewKNN(repo storage.ModelRepository, opts ...Option) (*KNN, error) {
	m := &KNN{
		k:       DefaultK,
		name:    DefaultModelName,
		repo:    repo,
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "knn")
	return m, nil
}

// Update replaces the training set and persists it.
func (m *KNN) Update(ctx context.Context, d *core.Dataset) error {
	if err := dataset.CheckShape(d); err != nil {
		return err
	}
	if d.Len() == 0 {
		return fmt.Errorf("%w: empty training set", core.ErrInvalidInput)
	}

	train := &core.Dataset{
		Features: append([][]float32(nil), d.Features...),
		Labels:   append([]float64(nil), d.Labels...),
	}

	if m.repo != nil {
		if err := m.repo.SaveTrainingSet(ctx, m.name, train); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.train = train
	m.mu.Unlock()

	m.logger.Info("model updated", "entries", train.Len(), "dim", train.Dim(), "k", m.k)
	return nil
}

// Test predicts every entry of d and compares the scores with its labels.
func (m *KNN) Test(ctx context.Context, d *core.Dataset) (*Metrics, error) {
	if err := core.ValidateDataset(d); err != nil {
		return nil, err
	}
	predictions, err := m.Predict(ctx, d.Features)
	if err != nil {
		return nil, err
	}
	metrics, err := Evaluate(predictions, d.Labels)
	if err != nil {
		return nil, err
	}
	m.logger.Info("model tested", "entries", metrics.Count, "mse", metrics.MSE, "accuracy", metrics.Accuracy)
	return metrics, nil
}

// Predict scores each feature vector. All vectors must have the training dimension.
func (m *KNN) Predict(ctx context.Context, features [][]float32) ([]float64, error) {
	train, err := m.trainingSet(ctx)
	if err != nil {
		return nil, err
	}

	dim := train.Dim()
	for i, f := range features {
		if len(f) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, model expects %d", core.ErrShapeMismatch, i, len(f), dim)
		}
	}

	predictions := make([]float64, len(features))
	if len(features) == 0 {
		return predictions, nil
	}

	pool, err := ants.NewPool(min(m.workers, len(features)))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, f := range features {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			predictions[i] = m.score(train, f)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return predictions, nil
}

// trainingSet returns the in-memory training set, loading it from the repository on first use.
func (m *KNN) trainingSet(ctx context.Context) (*core.Dataset, error) {
	m.mu.RLock()
	train := m.train
	m.mu.RUnlock()
	if train != nil {
		return train, nil
	}

	if m.repo == nil {
		return nil, ErrNotTrained
	}

	loaded, err := m.repo.LoadTrainingSet(ctx, m.name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotTrained
		}
		return nil, err
	}
	if err := dataset.CheckShape(loaded); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.train == nil {
		m.train = loaded
	}
	train = m.train
	m.mu.Unlock()

	m.logger.Debug("loaded training set", "name", m.name, "entries", train.Len())
	return train, nil
}

// neighbor is a training index and its squared distance to the query.
type neighbor struct {
	index int
	dist  float64
}

// score averages the labels of the k nearest training vectors.
func (m *KNN) score(train *core.Dataset, query []float32) float64 {
	k := min(m.k, train.Len())
	nearest := make([]neighbor, 0, k+1)

	for i, f := range train.Features {
		d := squaredDistance(query, f)
		if len(nearest) == k && d >= nearest[k-1].dist {
			continue
		}
		// Insert keeping nearest sorted by distance; ties keep training order.
		pos := len(nearest)
		for pos > 0 && nearest[pos-1].dist > d {
			pos--
		}
		nearest = append(nearest, neighbor{})
		copy(nearest[pos+1:], nearest[pos:])
		nearest[pos] = neighbor{index: i, dist: d}
		if len(nearest) > k {
			nearest = nearest[:k]
		}
	}

	var sum float64
	for _, n := range nearest {
		sum += train.Labels[n.index]
	}
	return sum / float64(len(nearest))
}

// squaredDistance is the squared Euclidean distance; ordering by it matches Euclidean ordering.
func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
