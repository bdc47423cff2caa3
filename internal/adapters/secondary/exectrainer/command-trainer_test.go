package exectrainer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-training-service/internal/core/ports/output"
)

func TestCommandTrainer_ParsesResultLine(t *testing.T) {
	trainer := NewCommandTrainer("/bin/sh", "-c",
		`echo "epoch 1/3"; echo "epoch 2/3"; echo '{"artifactPath":"/tmp/out.bin","score":0.87,"metadata":{"loss":"0.3"}}'`)

	result, err := trainer.Train(context.Background(), ports.TrainRequest{ModelName: "sentiment"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out.bin", result.ArtifactPath)
	assert.Equal(t, 0.87, result.Score)
	assert.Equal(t, "0.3", result.Metadata["loss"])
}

func TestCommandTrainer_WritesArtifactAtOutputPath(t *testing.T) {
	out := filepath.Join(t.TempDir(), "model.bin")
	trainer := NewCommandTrainer("/bin/sh", "-c",
		`printf 'trained-weights' > "$TRAIN_OUTPUT" && printf '{"artifactPath":"%s","score":0.9}\n' "$TRAIN_OUTPUT"`)

	result, err := trainer.Train(context.Background(), ports.TrainRequest{
		ModelName:  "sentiment",
		DatasetRef: "s3://datasets/day1",
		OutputPath: out,
	})
	require.NoError(t, err)
	assert.Equal(t, out, result.ArtifactPath)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("trained-weights"), data)
}

func TestCommandTrainer_DefaultsArtifactPath(t *testing.T) {
	trainer := NewCommandTrainer("/bin/sh", "-c", `echo '{"score":0.5}'`)

	result, err := trainer.Train(context.Background(), ports.TrainRequest{OutputPath: "/data/live/m.bin"})
	require.NoError(t, err)
	assert.Equal(t, "/data/live/m.bin", result.ArtifactPath)
}

func TestCommandTrainer_NonZeroExit(t *testing.T) {
	trainer := NewCommandTrainer("/bin/sh", "-c", `echo "cuda out of memory" >&2; exit 3`)

	_, err := trainer.Train(context.Background(), ports.TrainRequest{ModelName: "sentiment"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trainer command failed")
	assert.Contains(t, err.Error(), "cuda out of memory")
}

func TestCommandTrainer_NoResultLine(t *testing.T) {
	trainer := NewCommandTrainer("/bin/sh", "-c", `echo "all done"`)

	_, err := trainer.Train(context.Background(), ports.TrainRequest{ModelName: "sentiment"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result JSON")
}

func TestCommandTrainer_ContextTimeout(t *testing.T) {
	trainer := NewCommandTrainer("/bin/sh", "-c", `sleep 30`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := trainer.Train(ctx, ports.TrainRequest{ModelName: "sentiment"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
