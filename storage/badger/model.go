package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/spamsense/core"
	"github.com/poiesic/spamsense/storage"
)

// ModelRepository implements storage.ModelRepository for BadgerDB.
// Each row of a training set is stored under its own key so that large sets
// are not limited by the transaction size.
type ModelRepository struct {
	backend *Backend
}

var _ storage.ModelRepository = (*ModelRepository)(nil)

// NewModelRepository creates a new ModelRepository.
func NewModelRepository(backend *Backend) *ModelRepository {
	return &ModelRepository{
		backend: backend,
	}
}

// SaveTrainingSet replaces the training set stored under name.
func (r *ModelRepository) SaveTrainingSet(ctx context.Context, name string, dataset *core.Dataset) error {
	if err := checkTrainingSetName(name); err != nil {
		return err
	}
	if err := core.ValidateDataset(dataset); err != nil {
		return err
	}

	if err := r.backend.DeletePrefix(ctx, makeTrainingSetPrefix(name)); err != nil {
		return fmt.Errorf("clearing training set %q: %w", name, err)
	}

	err := r.backend.WriteBatch(ctx, func(wb *badger.WriteBatch) error {
		for i := range dataset.Labels {
			value, err := storage.MarshalRow(dataset.Features[i], dataset.Labels[i])
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			if err := wb.Set(makeTrainingRowKey(name, i), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving training set %q: %w", name, err)
	}

	r.backend.logger.Debug("saved training set", "name", name, "entries", dataset.Len())
	return nil
}

// LoadTrainingSet retrieves the training set stored under name, in row order.
func (r *ModelRepository) LoadTrainingSet(ctx context.Context, name string) (*core.Dataset, error) {
	if err := checkTrainingSetName(name); err != nil {
		return nil, err
	}

	dataset := core.NewDataset(0)
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeTrainingSetPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				features, label, err := storage.UnmarshalRow(val)
				if err != nil {
					return err
				}
				dataset.Features = append(dataset.Features, features)
				dataset.Labels = append(dataset.Labels, label)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if dataset.Len() == 0 {
		return nil, fmt.Errorf("training set %q: %w", name, storage.ErrNotFound)
	}
	return dataset, nil
}

// DeleteTrainingSet removes the training set stored under name.
func (r *ModelRepository) DeleteTrainingSet(ctx context.Context, name string) error {
	if err := checkTrainingSetName(name); err != nil {
		return err
	}
	return r.backend.DeletePrefix(ctx, makeTrainingSetPrefix(name))
}
