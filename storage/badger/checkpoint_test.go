package badger

import (
	"context"
	"testing"

	"github.com/poiesic/spamsense/core"
	"github.com/poiesic/spamsense/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRepository_SaveLoad(t *testing.T) {
	repo := NewCheckpointRepository(openMemoryBackend(t))
	ctx := context.Background()

	checkpoint, err := repo.LoadCheckpoint(ctx, "run-a")
	require.NoError(t, err)
	assert.Nil(t, checkpoint, "missing checkpoint is not an error")

	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "run-a", Position: 100}))
	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "run-a", Position: 200}))
	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "run-b", Position: 7}))

	checkpoint, err = repo.LoadCheckpoint(ctx, "run-a")
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, 200, checkpoint.Position)
	assert.False(t, checkpoint.UpdatedAt.IsZero())

	checkpoint, err = repo.LoadCheckpoint(ctx, "run-b")
	require.NoError(t, err)
	assert.Equal(t, 7, checkpoint.Position)
}

func TestCheckpointRepository_Delete(t *testing.T) {
	repo := NewCheckpointRepository(openMemoryBackend(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Key: "run", Position: 3}))
	require.NoError(t, repo.DeleteCheckpoint(ctx, "run"))
	require.NoError(t, repo.DeleteCheckpoint(ctx, "never-saved"))

	checkpoint, err := repo.LoadCheckpoint(ctx, "run")
	require.NoError(t, err)
	assert.Nil(t, checkpoint)
}

func TestCheckpointRepository_InvalidKey(t *testing.T) {
	repo := NewCheckpointRepository(openMemoryBackend(t))
	ctx := context.Background()

	assert.ErrorIs(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{}), storage.ErrInvalidKey)
	assert.ErrorIs(t, repo.SaveCheckpoint(ctx, nil), storage.ErrInvalidKey)
	_, err := repo.LoadCheckpoint(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
	assert.ErrorIs(t, repo.DeleteCheckpoint(ctx, ""), storage.ErrInvalidKey)
}
