package storage

import (
	"context"

	"github.com/poiesic/spamsense/core"
)

// CheckpointRepository tracks how far generation runs have progressed.
// Implementations must be thread-safe and support concurrent access.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint under checkpoint.Key.
	// Sets UpdatedAt automatically.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint stored under key.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, key string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the checkpoint stored under key.
	// Deleting a missing checkpoint is not an error.
	DeleteCheckpoint(ctx context.Context, key string) error
}

// ModelRepository stores named training sets for models that keep their
// examples around, such as nearest-neighbor regressors.
type ModelRepository interface {
	// SaveTrainingSet replaces the training set stored under name.
	SaveTrainingSet(ctx context.Context, name string, dataset *core.Dataset) error

	// LoadTrainingSet retrieves the training set stored under name.
	// Returns ErrNotFound if nothing has been saved under name.
	LoadTrainingSet(ctx context.Context, name string) (*core.Dataset, error)

	// DeleteTrainingSet removes the training set stored under name.
	DeleteTrainingSet(ctx context.Context, name string) error
}
