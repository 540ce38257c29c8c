package spamsense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/spamsense/ai/mock"
	"github.com/poiesic/spamsense/classify"
	"github.com/poiesic/spamsense/core"
	"github.com/poiesic/spamsense/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestWorkspace(t *testing.T, opts ...WorkspaceOption) *Workspace {
	t.Helper()
	ws, err := OpenWorkspace("", append(opts, WithInMemoryStorage())...)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestOpenWorkspace(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "state")
		ws, err := OpenWorkspace(dir)
		require.NoError(t, err)
		require.NotNil(t, ws)
		defer ws.Close()

		assert.NotNil(t, ws.CheckpointRepository())
		assert.NotNil(t, ws.ModelRepository())
		assert.Nil(t, ws.Embedder())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		ws, err := OpenWorkspace(tmpFile)
		assert.ErrorIs(t, err, core.ErrIOFailure)
		assert.Nil(t, ws)
	})
}

func TestWorkspace_Close(t *testing.T) {
	ws, err := OpenWorkspace(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, ws.Close())
}

func TestWorkspace_RequiresEmbedder(t *testing.T) {
	ws := openTestWorkspace(t)

	_, err := ws.NewProducer()
	assert.ErrorIs(t, err, ErrEmbedderNotConfigured)

	model, err := ws.NewModel()
	require.NoError(t, err)
	_, err = ws.Predict(context.Background(), model, []string{"hi"})
	assert.ErrorIs(t, err, ErrEmbedderNotConfigured)
}

func TestWorkspace_Generate(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithDim(4)
	ws := openTestWorkspace(t, WithEmbedder(embedder))

	items := []core.LabeledText{
		{Text: "WINNER!! claim your prize", Label: 1},
		{Text: "see you at lunch", Label: 0},
		{Text: "", Label: 0},
	}

	var out bytes.Buffer
	key := RunKey("corpus.csv", "out.ndjson")
	result, err := ws.Generate(context.Background(), items, &out, GenerateOptions{BatchSize: 2, RunKey: key})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Resumed)
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 2)

	checkpoint, err := ws.CheckpointRepository().LoadCheckpoint(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, 3, checkpoint.Position)
}

func TestWorkspace_GenerateResume(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithDim(4)
	ws := openTestWorkspace(t, WithEmbedder(embedder))
	ctx := context.Background()

	key := RunKey("corpus.csv")
	require.NoError(t, ws.CheckpointRepository().SaveCheckpoint(ctx, &core.Checkpoint{Key: key, Position: 2}))

	items := []core.LabeledText{{Text: "a", Label: 0}, {Text: "b", Label: 1}, {Text: "c", Label: 1}}
	var out bytes.Buffer
	result, err := ws.Generate(ctx, items, &out, GenerateOptions{RunKey: key, Resume: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Resumed)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, []string{"c"}, embedder.Texts())

	checkpoint, err := ws.CheckpointRepository().LoadCheckpoint(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, checkpoint.Position)

	// Without Resume the checkpoint is ignored.
	embedder.Reset()
	out.Reset()
	result, err = ws.Generate(ctx, items, &out, GenerateOptions{RunKey: key})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Resumed)
	assert.Equal(t, 3, result.Processed)
}

func TestWorkspace_GenerateResumeAfterCancel(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithDim(4)
	ws := openTestWorkspace(t, WithEmbedder(embedder))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	embedder.WithEmbedTextFunc(func(_ context.Context, text string) ([]float32, error) {
		if text == "b" {
			cancel()
			return nil, fmt.Errorf("%w: %w", core.ErrTransport, context.Canceled)
		}
		return mock.GenerateDeterministicVector(text, 4), nil
	})

	items := []core.LabeledText{{Text: "a", Label: 0}, {Text: "b", Label: 1}, {Text: "c", Label: 1}}
	key := RunKey("corpus.csv", "out.ndjson")

	var out bytes.Buffer
	result, err := ws.Generate(ctx, items, &out, GenerateOptions{RunKey: key})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 1, result.Interrupted)
	assert.Equal(t, 0, result.Failed)

	checkpoint, err := ws.CheckpointRepository().LoadCheckpoint(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 1, checkpoint.Position)

	embedder.Reset()
	result, err = ws.Generate(context.Background(), items, &out, GenerateOptions{RunKey: key, Resume: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Resumed)
	assert.Equal(t, []string{"b", "c"}, embedder.Texts())

	var texts []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var record core.EmbeddingRecord
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		texts = append(texts, record.Text)
	}
	assert.Equal(t, []string{"a", "b", "c"}, texts)
}

func TestRunKey(t *testing.T) {
	assert.Equal(t, RunKey("a.csv", "out"), RunKey("a.csv", "out"))
	assert.NotEqual(t, RunKey("a.csv", "out"), RunKey("b.csv", "out"))
	assert.NotEqual(t, RunKey("a", "b"), RunKey("ab"))
	assert.True(t, strings.HasPrefix(RunKey("x"), "generate:"))
}

func clusters() *core.Dataset {
	d := core.NewDataset(10)
	for i := 0; i < 5; i++ {
		d.Append(&core.EmbeddingRecord{Embedding: []float32{float32(i) * 0.1, 0}, Label: core.LabelHam})
		d.Append(&core.EmbeddingRecord{Embedding: []float32{10 + float32(i)*0.1, 10}, Label: core.LabelSpam})
	}
	return d
}

func TestWorkspace_Train(t *testing.T) {
	ws := openTestWorkspace(t)
	model, err := ws.NewModel()
	require.NoError(t, err)

	report, err := ws.Train(context.Background(), model, clusters(), TrainOptions{})
	require.NoError(t, err)
	assert.Equal(t, dataset.Stats{Spam: 5, Ham: 5, Total: 10}, report.Stats)
	assert.Equal(t, 10, report.Train.Count)
	assert.Equal(t, 1.0, report.Train.Accuracy)
	assert.Nil(t, report.Test)
}

func TestWorkspace_TrainEval(t *testing.T) {
	ws := openTestWorkspace(t)
	model, err := ws.NewModel()
	require.NoError(t, err)

	report, err := ws.Train(context.Background(), model, clusters(), TrainOptions{Eval: true, Ratio: 0.8, Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, 8, report.Train.Count)
	require.NotNil(t, report.Test)
	assert.Equal(t, 2, report.Test.Count)
	assert.Equal(t, 1.0, report.Test.Accuracy)
}

func TestWorkspace_TrainRejectsEmptyDataset(t *testing.T) {
	ws := openTestWorkspace(t)
	model, err := ws.NewModel()
	require.NoError(t, err)

	_, err = ws.Train(context.Background(), model, core.NewDataset(0), TrainOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = ws.Train(context.Background(), model, clusters(), TrainOptions{Eval: true, Ratio: 1.5})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestWorkspace_Predict(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithDim(8)
	ws := openTestWorkspace(t, WithEmbedder(embedder))
	ctx := context.Background()

	texts := []string{"free entry in a weekly competition", "are we still on for dinner"}
	d := core.NewDataset(len(texts))
	for i, text := range texts {
		vector, err := embedder.EmbedText(ctx, text)
		require.NoError(t, err)
		d.Append(&core.EmbeddingRecord{Embedding: vector, Label: float64(1 - i)})
	}

	trained, err := ws.NewModel(classify.WithK(1))
	require.NoError(t, err)
	require.NoError(t, trained.Update(ctx, d))

	// A fresh model reads the training set stored by the first one.
	model, err := ws.NewModel(classify.WithK(1))
	require.NoError(t, err)
	scores, err := ws.Predict(ctx, model, texts)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, scores)
}
