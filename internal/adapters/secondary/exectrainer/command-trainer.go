package exectrainer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/ports/output"
)

// commandTrainer runs an external training command in its own process. The
// command receives the job through TRAIN_MODEL, TRAIN_DATASET and
// TRAIN_OUTPUT environment variables and must print its result as a JSON
// line on stdout: {"artifactPath": "...", "score": 0.87, "metadata": {...}}.
// The last parsable JSON line wins, so trainers are free to log above it.
// A non-zero exit or missing result line is a trainer failure.
type commandTrainer struct {
	command string
	args    []string
}

func NewCommandTrainer(command string, args ...string) ports.Trainer {
	return &commandTrainer{command: command, args: args}
}

func (t *commandTrainer) Train(ctx context.Context, req ports.TrainRequest) (*domain.TrainResult, error) {
	cmd := exec.CommandContext(ctx, t.command, t.args...)
	cmd.Env = append(os.Environ(),
		"TRAIN_MODEL="+req.ModelName,
		"TRAIN_DATASET="+req.DatasetRef,
		"TRAIN_OUTPUT="+req.OutputPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("trainer command timed out: %w", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("trainer command failed: %w", err)
		}
		return nil, fmt.Errorf("trainer command failed: %w: %s", err, msg)
	}

	result, err := parseResult(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	if result.ArtifactPath == "" {
		result.ArtifactPath = req.OutputPath
	}
	return result, nil
}

// parseResult extracts the last JSON result line from the trainer's stdout.
func parseResult(out []byte) (*domain.TrainResult, error) {
	var result *domain.TrainResult

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var candidate domain.TrainResult
		if err := json.Unmarshal(line, &candidate); err != nil {
			continue
		}
		r := candidate
		result = &r
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trainer output: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("trainer produced no result JSON on stdout")
	}
	return result, nil
}
