package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"model-training-service/internal/adapters/secondary/fsstore"
	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/ports/output"
	"model-training-service/internal/testutil"
)

type trainerFunc func(ctx context.Context, req ports.TrainRequest) (*domain.TrainResult, error)

func (f trainerFunc) Train(ctx context.Context, req ports.TrainRequest) (*domain.TrainResult, error) {
	return f(ctx, req)
}

// scoringTrainer writes payload to the live artifact path and reports score,
// mimicking a real trainer that retrains the model in place.
func scoringTrainer(payload string, score float64) trainerFunc {
	return func(ctx context.Context, req ports.TrainRequest) (*domain.TrainResult, error) {
		if err := os.WriteFile(req.OutputPath, []byte(payload), 0o644); err != nil {
			return nil, err
		}
		return &domain.TrainResult{ArtifactPath: req.OutputPath, Score: score}, nil
	}
}

type orchestratorEnv struct {
	root  string
	store *ArtifactStoreService
}

func newOrchestratorEnv(t *testing.T) *orchestratorEnv {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "live"), 0o755))

	store := NewArtifactStoreService(
		fsstore.NewLedgerRepository(filepath.Join(root, "ledgers")),
		fsstore.NewArtifactRepository(),
		filepath.Join(root, "versions"),
	)
	return &orchestratorEnv{root: root, store: store}
}

func (e *orchestratorEnv) livePath(name string) string {
	return filepath.Join(e.root, "live", name+".bin")
}

func (e *orchestratorEnv) job(name string, trainer ports.Trainer) TrainingJob {
	return TrainingJob{Name: name, ArtifactPath: e.livePath(name), Trainer: trainer}
}

func (e *orchestratorEnv) orchestrator(opts OrchestratorOptions) *OrchestratorService {
	return NewOrchestratorService(e.store, nil, opts)
}

func TestOrchestrator_FirstRunKeepsNewVersion(t *testing.T) {
	env := newOrchestratorEnv(t)
	orch := env.orchestrator(OrchestratorOptions{})

	result := orch.Run(context.Background(), []TrainingJob{
		env.job("sentiment", scoringTrainer("weights-a", 0.80)),
	}, "s3://datasets/day1")

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
	assert.False(t, result.Failed())

	job := result.PerJob["sentiment"]
	require.NotNil(t, job)
	assert.True(t, job.Success)
	assert.Equal(t, domain.JobStateAccepted, job.State)
	assert.False(t, job.RolledBack)

	versions, err := env.store.ListVersions(context.Background(), "sentiment")
	require.NoError(t, err)
	require.Len(t, versions, 1)

	score, err := env.store.GetCurrentScore(context.Background(), "sentiment")
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 0.80, *score)

	// With no live artifact there was nothing to back up.
	require.NotEmpty(t, result.Notifications)
	assert.Equal(t, domain.NotificationInfo, result.Notifications[0].Status)
	assert.Contains(t, result.Notifications[0].Message, "no live artifact")
}

func TestOrchestrator_RejectedScoreRollsBack(t *testing.T) {
	env := newOrchestratorEnv(t)
	orch := env.orchestrator(OrchestratorOptions{})
	ctx := context.Background()

	first := orch.Run(ctx, []TrainingJob{env.job("sentiment", scoringTrainer("good-weights", 0.85))}, "day1")
	require.Equal(t, 1, first.SuccessCount)

	second := orch.Run(ctx, []TrainingJob{env.job("sentiment", scoringTrainer("bad-weights", 0.70))}, "day2")
	assert.Equal(t, 0, second.SuccessCount)
	assert.Equal(t, 1, second.FailureCount)

	job := second.PerJob["sentiment"]
	require.NotNil(t, job)
	assert.False(t, job.Success)
	assert.True(t, job.RolledBack)
	assert.Equal(t, domain.JobStateRolledBack, job.State)
	assert.Contains(t, job.Error, "0.7")
	assert.Contains(t, job.Error, "0.85")

	// Rollback restored the known-good bytes and score.
	live, err := os.ReadFile(env.livePath("sentiment"))
	require.NoError(t, err)
	assert.Equal(t, []byte("good-weights"), live)

	score, err := env.store.GetCurrentScore(ctx, "sentiment")
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 0.85, *score)

	var warnings int
	for _, n := range second.Notifications {
		if n.Status == domain.NotificationWarning {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestOrchestrator_HigherScoreSupersedesOldVersion(t *testing.T) {
	env := newOrchestratorEnv(t)
	orch := env.orchestrator(OrchestratorOptions{})
	ctx := context.Background()

	orch.Run(ctx, []TrainingJob{env.job("sentiment", scoringTrainer("weights-a", 0.85))}, "day1")
	result := orch.Run(ctx, []TrainingJob{env.job("sentiment", scoringTrainer("weights-b", 0.90))}, "day2")

	require.Equal(t, 1, result.SuccessCount)

	score, err := env.store.GetCurrentScore(ctx, "sentiment")
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 0.90, *score)

	live, err := os.ReadFile(env.livePath("sentiment"))
	require.NoError(t, err)
	assert.Equal(t, []byte("weights-b"), live)

	// The superseded version stays listed.
	versions, err := env.store.ListVersions(ctx, "sentiment")
	require.NoError(t, err)
	var superseded int
	for _, v := range versions {
		if v.Status == domain.VersionStatusSuperseded {
			superseded++
		}
	}
	assert.Equal(t, 1, superseded)
}

func TestOrchestrator_TrainerErrorTriggersRollback(t *testing.T) {
	env := newOrchestratorEnv(t)
	orch := env.orchestrator(OrchestratorOptions{})
	ctx := context.Background()

	orch.Run(ctx, []TrainingJob{env.job("sentiment", scoringTrainer("good-weights", 0.85))}, "day1")

	failing := trainerFunc(func(ctx context.Context, req ports.TrainRequest) (*domain.TrainResult, error) {
		// Simulate a trainer that corrupts the live artifact before dying.
		os.WriteFile(req.OutputPath, []byte("corrupt"), 0o644)
		return nil, fmt.Errorf("loss diverged")
	})
	result := orch.Run(ctx, []TrainingJob{env.job("sentiment", failing)}, "day2")

	require.Equal(t, 1, result.FailureCount)
	job := result.PerJob["sentiment"]
	require.NotNil(t, job)
	assert.True(t, job.RolledBack)
	assert.Contains(t, job.Error, "loss diverged")

	live, err := os.ReadFile(env.livePath("sentiment"))
	require.NoError(t, err)
	assert.Equal(t, []byte("good-weights"), live)

	var errorNotes int
	for _, n := range result.Notifications {
		if n.Status == domain.NotificationError {
			errorNotes++
		}
	}
	assert.Equal(t, 1, errorNotes)
}

func TestOrchestrator_TrainerPanicIsIsolated(t *testing.T) {
	env := newOrchestratorEnv(t)
	orch := env.orchestrator(OrchestratorOptions{})

	panicking := trainerFunc(func(ctx context.Context, req ports.TrainRequest) (*domain.TrainResult, error) {
		panic("segfault in native code")
	})
	result := orch.Run(context.Background(), []TrainingJob{
		env.job("broken", panicking),
		env.job("healthy", scoringTrainer("weights", 0.75)),
	}, "day1")

	// The panicking job fails, the run continues to the next job.
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, 1, result.SuccessCount)
	require.NotNil(t, result.PerJob["broken"])
	assert.Contains(t, result.PerJob["broken"].Error, "panicked")
	require.NotNil(t, result.PerJob["healthy"])
	assert.True(t, result.PerJob["healthy"].Success)
}

func TestOrchestrator_TrainerTimeout(t *testing.T) {
	env := newOrchestratorEnv(t)
	orch := env.orchestrator(OrchestratorOptions{TrainTimeout: 30 * time.Millisecond})

	hanging := trainerFunc(func(ctx context.Context, req ports.TrainRequest) (*domain.TrainResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	result := orch.Run(context.Background(), []TrainingJob{env.job("slow", hanging)}, "day1")

	require.Equal(t, 1, result.FailureCount)
	job := result.PerJob["slow"]
	require.NotNil(t, job)
	assert.False(t, job.Success)
	assert.Contains(t, job.Error, "time budget")
}

func TestOrchestrator_ParallelModelsDoNotLoseUpdates(t *testing.T) {
	env := newOrchestratorEnv(t)
	orch := env.orchestrator(OrchestratorOptions{Parallelism: 2})
	ctx := context.Background()

	result := orch.Run(ctx, []TrainingJob{
		env.job("alpha", scoringTrainer("alpha-weights", 0.70)),
		env.job("beta", scoringTrainer("beta-weights", 0.80)),
	}, "day1")

	assert.Equal(t, 2, result.SuccessCount)

	for name, wantScore := range map[string]float64{"alpha": 0.70, "beta": 0.80} {
		score, err := env.store.GetCurrentScore(ctx, name)
		require.NoError(t, err)
		require.NotNil(t, score, name)
		assert.Equal(t, wantScore, *score, name)

		versions, err := env.store.ListVersions(ctx, name)
		require.NoError(t, err)
		assert.Len(t, versions, 1, name)
	}
}

func TestOrchestrator_SequentialRunPreservesJobOrder(t *testing.T) {
	env := newOrchestratorEnv(t)
	orch := env.orchestrator(OrchestratorOptions{})

	var order []string
	recording := func(name string, score float64) trainerFunc {
		return func(ctx context.Context, req ports.TrainRequest) (*domain.TrainResult, error) {
			order = append(order, name)
			return scoringTrainer(name+"-weights", score)(ctx, req)
		}
	}

	orch.Run(context.Background(), []TrainingJob{
		env.job("base", recording("base", 0.6)),
		env.job("derived", recording("derived", 0.7)),
		env.job("last", recording("last", 0.8)),
	}, "day1")

	assert.Equal(t, []string{"base", "derived", "last"}, order)
}

func TestOrchestrator_RecordsRunHistory(t *testing.T) {
	env := newOrchestratorEnv(t)
	history := new(testutil.MockRunHistoryRepo)
	orch := NewOrchestratorService(env.store, history, OrchestratorOptions{})

	history.On("RecordRun", mock.Anything, mock.AnythingOfType("*domain.RunResult")).Return(nil)

	result := orch.Run(context.Background(), []TrainingJob{
		env.job("sentiment", scoringTrainer("weights", 0.8)),
	}, "day1")

	history.AssertCalled(t, "RecordRun", mock.Anything, result)
}

func TestOrchestrator_HistoryFailureDoesNotFailRun(t *testing.T) {
	env := newOrchestratorEnv(t)
	history := new(testutil.MockRunHistoryRepo)
	orch := NewOrchestratorService(env.store, history, OrchestratorOptions{})

	history.On("RecordRun", mock.Anything, mock.Anything).Return(fmt.Errorf("disk full"))

	result := orch.Run(context.Background(), []TrainingJob{
		env.job("sentiment", scoringTrainer("weights", 0.8)),
	}, "day1")

	assert.Equal(t, 1, result.SuccessCount)
}

func TestOrchestrator_StartRunSingleFlight(t *testing.T) {
	env := newOrchestratorEnv(t)
	orch := env.orchestrator(OrchestratorOptions{})

	release := make(chan struct{})
	blocking := trainerFunc(func(ctx context.Context, req ports.TrainRequest) (*domain.TrainResult, error) {
		<-release
		return scoringTrainer("weights", 0.8)(ctx, req)
	})

	jobs := []TrainingJob{env.job("sentiment", blocking)}
	runID, err := orch.StartRun(jobs, "day1")
	require.NoError(t, err)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", runID.String())

	active, ok := orch.ActiveRun()
	assert.True(t, ok)
	assert.Equal(t, runID, active)

	_, err = orch.StartRun(jobs, "day1")
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(release)
	require.Eventually(t, func() bool {
		_, ok := orch.ActiveRun()
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestOrchestrator_StartRunRequiresJobs(t *testing.T) {
	env := newOrchestratorEnv(t)
	orch := env.orchestrator(OrchestratorOptions{})

	_, err := orch.StartRun(nil, "day1")
	assert.ErrorIs(t, err, domain.ErrNoJobsDefined)
}
