package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/ports/output"
)

// DefaultTrainTimeout bounds a single trainer invocation.
const DefaultTrainTimeout = 600 * time.Second

// TrainingJob binds a model name to its live artifact path and the trainer
// that produces new candidates for it.
type TrainingJob struct {
	Name         string
	ArtifactPath string
	Trainer      ports.Trainer
}

type OrchestratorOptions struct {
	// Parallelism caps how many jobs train at once. Values below 2 run the
	// jobs sequentially in their given order.
	Parallelism int
	// TrainTimeout bounds each trainer invocation. Zero means the default.
	TrainTimeout time.Duration
}

// OrchestratorService drives the backup, train, register-or-reject, rollback
// lifecycle across a set of training jobs. One job's failure never aborts the
// run: every outcome is folded into the RunResult.
type OrchestratorService struct {
	store        *ArtifactStoreService
	history      ports.RunHistoryRepository
	parallelism  int
	trainTimeout time.Duration

	mu       sync.Mutex
	runLocks map[string]*sync.Mutex
	active   uuid.UUID

	now func() time.Time
}

// NewOrchestratorService wires the orchestrator. history may be nil; runs are
// then not archived.
func NewOrchestratorService(store *ArtifactStoreService, history ports.RunHistoryRepository, opts OrchestratorOptions) *OrchestratorService {
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	timeout := opts.TrainTimeout
	if timeout <= 0 {
		timeout = DefaultTrainTimeout
	}
	return &OrchestratorService{
		store:        store,
		history:      history,
		parallelism:  parallelism,
		trainTimeout: timeout,
		runLocks:     make(map[string]*sync.Mutex),
		now:          time.Now,
	}
}

// Run executes every job and returns the aggregated result. It never returns
// an error: trainer failures, rejected scores and rollback outcomes are all
// reported through the result and its notifications.
func (s *OrchestratorService) Run(ctx context.Context, jobs []TrainingJob, datasetRef string) *domain.RunResult {
	return s.run(ctx, uuid.New(), jobs, datasetRef)
}

// StartRun launches a run in the background and returns its id. Only one
// background run may be active at a time; a second request is refused with
// domain.ErrRunInProgress.
func (s *OrchestratorService) StartRun(jobs []TrainingJob, datasetRef string) (uuid.UUID, error) {
	if len(jobs) == 0 {
		return uuid.Nil, domain.ErrNoJobsDefined
	}

	s.mu.Lock()
	if s.active != uuid.Nil {
		s.mu.Unlock()
		return uuid.Nil, domain.ErrRunInProgress
	}
	runID := uuid.New()
	s.active = runID
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.active = uuid.Nil
			s.mu.Unlock()
		}()
		s.run(context.Background(), runID, jobs, datasetRef)
	}()
	return runID, nil
}

// ActiveRun reports the id of the background run in flight, if any.
func (s *OrchestratorService) ActiveRun() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != uuid.Nil
}

func (s *OrchestratorService) run(ctx context.Context, runID uuid.UUID, jobs []TrainingJob, datasetRef string) *domain.RunResult {
	notes := domain.NewNotificationLog()
	result := &domain.RunResult{
		RunID:      runID,
		DatasetRef: datasetRef,
		StartedAt:  s.now().UTC(),
		PerJob:     make(map[string]*domain.JobResult, len(jobs)),
	}

	log.WithFields(log.Fields{
		"runId":       runID,
		"jobs":        len(jobs),
		"parallelism": s.parallelism,
	}).Info("training run started")

	if s.parallelism == 1 {
		for _, job := range jobs {
			result.PerJob[job.Name] = s.runJob(ctx, job, datasetRef, notes)
		}
	} else {
		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		sem := make(chan struct{}, s.parallelism)
		for _, job := range jobs {
			wg.Add(1)
			go func(job TrainingJob) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				jobResult := s.runJob(ctx, job, datasetRef, notes)
				mu.Lock()
				result.PerJob[job.Name] = jobResult
				mu.Unlock()
			}(job)
		}
		wg.Wait()
	}

	result.FinishedAt = s.now().UTC()
	result.Notifications = notes.Snapshot()
	result.Tally()

	log.WithFields(log.Fields{
		"runId":     runID,
		"succeeded": result.SuccessCount,
		"failed":    result.FailureCount,
	}).Info("training run finished")

	s.recordRun(ctx, result)
	return result
}

// runJob walks one model through backup, train and register-or-rollback.
// Jobs sharing a model name are serialized so the backup, register, rollback
// sequence for one name is never interleaved.
func (s *OrchestratorService) runJob(ctx context.Context, job TrainingJob, datasetRef string, notes *domain.NotificationLog) *domain.JobResult {
	result := &domain.JobResult{
		ModelName: job.Name,
		State:     domain.JobStatePending,
		StartedAt: s.now().UTC(),
	}
	defer func() { result.FinishedAt = s.now().UTC() }()

	lock := s.jobLock(job.Name)
	lock.Lock()
	defer lock.Unlock()

	s.store.RegisterModel(job.Name, job.ArtifactPath)

	// 1. Protect the live artifact before the trainer can touch it.
	backupID, err := s.store.Backup(ctx, job.Name)
	if err != nil {
		result.Error = fmt.Sprintf("backup: %v", err)
		notes.Append(domain.Notification{
			ModelName: job.Name,
			Message:   "backup failed, training skipped",
			Status:    domain.NotificationError,
			Error:     err.Error(),
		})
		return result
	}
	result.State = domain.JobStateBackedUp
	if backupID == "" {
		notes.Append(domain.Notification{
			ModelName: job.Name,
			Message:   "no live artifact to back up",
			Status:    domain.NotificationInfo,
		})
	} else {
		notes.Append(domain.Notification{
			ModelName: job.Name,
			Message:   fmt.Sprintf("backed up live artifact as %s", backupID),
			Status:    domain.NotificationInfo,
		})
	}

	// 2. Train under a bounded timeout, isolated from panics.
	trained, err := s.train(ctx, job, datasetRef)
	if err != nil {
		result.Error = err.Error()
		s.rollbackAfterFailure(ctx, job.Name, err, result, notes)
		return result
	}
	result.Score = &trained.Score

	// 3. Offer the new artifact to the store; the score gate decides.
	promotion, err := s.store.RegisterNewVersion(ctx, job.Name, trained.ArtifactPath, trained.Score, backupID)
	if err != nil {
		result.Error = err.Error()
		s.rollbackAfterFailure(ctx, job.Name, err, result, notes)
		return result
	}

	if promotion.Kept {
		result.State = domain.JobStateAccepted
		result.Success = true
		result.VersionID = promotion.VersionID
		notes.Append(domain.Notification{
			ModelName: job.Name,
			Message:   fmt.Sprintf("kept new version %s (score %g)", promotion.VersionID, promotion.NewScore),
			Status:    domain.NotificationSuccess,
		})
		return result
	}

	// 4. Rejected on score: restore the previous version.
	result.Error = promotion.Reason
	if _, rbErr := s.store.Rollback(ctx, job.Name); rbErr != nil {
		result.State = domain.JobStateRollbackFailed
		notes.Append(domain.Notification{
			ModelName: job.Name,
			Message:   fmt.Sprintf("rejected: %s; rollback failed", promotion.Reason),
			Status:    domain.NotificationError,
			Error:     rbErr.Error(),
		})
		return result
	}
	result.State = domain.JobStateRolledBack
	result.RolledBack = true
	notes.Append(domain.Notification{
		ModelName: job.Name,
		Message:   fmt.Sprintf("rejected: %s; previous version restored", promotion.Reason),
		Status:    domain.NotificationWarning,
	})
	return result
}

// rollbackAfterFailure handles the trainer-failed leg of the job state
// machine. The notification is an error regardless of the rollback outcome.
func (s *OrchestratorService) rollbackAfterFailure(ctx context.Context, modelName string, cause error, result *domain.JobResult, notes *domain.NotificationLog) {
	if _, rbErr := s.store.Rollback(ctx, modelName); rbErr != nil {
		result.State = domain.JobStateRollbackFailed
		notes.Append(domain.Notification{
			ModelName: modelName,
			Message:   fmt.Sprintf("training failed: %v; rollback failed, operator attention required", cause),
			Status:    domain.NotificationError,
			Error:     rbErr.Error(),
		})
		return
	}
	result.State = domain.JobStateRolledBack
	result.RolledBack = true
	notes.Append(domain.Notification{
		ModelName: modelName,
		Message:   fmt.Sprintf("training failed: %v; previous version restored", cause),
		Status:    domain.NotificationError,
	})
}

// train invokes the job's trainer in its own goroutine so a panicking or
// hanging trainer becomes an ordinary error instead of taking down the run.
func (s *OrchestratorService) train(ctx context.Context, job TrainingJob, datasetRef string) (*domain.TrainResult, error) {
	tctx, cancel := context.WithTimeout(ctx, s.trainTimeout)
	defer cancel()

	type outcome struct {
		result *domain.TrainResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", domain.ErrTrainerPanic, r)}
			}
		}()
		res, err := job.Trainer.Train(tctx, ports.TrainRequest{
			ModelName:  job.Name,
			DatasetRef: datasetRef,
			OutputPath: job.ArtifactPath,
		})
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if out.result == nil {
			return nil, errors.New("trainer returned no result")
		}
		return out.result, nil
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w (%s)", domain.ErrTrainerTimeout, s.trainTimeout)
		}
		return nil, tctx.Err()
	}
}

func (s *OrchestratorService) jobLock(modelName string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.runLocks[modelName]
	if !ok {
		l = &sync.Mutex{}
		s.runLocks[modelName] = l
	}
	return l
}

func (s *OrchestratorService) recordRun(ctx context.Context, result *domain.RunResult) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordRun(ctx, result); err != nil {
		log.WithField("runId", result.RunID).WithError(err).Warn("failed to archive run result")
	}
}
