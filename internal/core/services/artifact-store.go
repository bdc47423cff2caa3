package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/ports/output"
)

// ArtifactStoreService owns the version lifecycle of named model artifacts:
// backup before training, score-gated promotion, rollback to the last good
// version. Every mutating operation runs under a per-model mutex; a ledger
// write for one model never races a writer for another.
type ArtifactStoreService struct {
	ledgerRepo   ports.LedgerRepository
	artifactRepo ports.ArtifactRepository
	versionsDir  string

	mu        sync.Mutex
	livePaths map[string]string
	locks     map[string]*sync.Mutex

	now func() time.Time
}

func NewArtifactStoreService(ledgerRepo ports.LedgerRepository, artifactRepo ports.ArtifactRepository, versionsDir string) *ArtifactStoreService {
	return &ArtifactStoreService{
		ledgerRepo:   ledgerRepo,
		artifactRepo: artifactRepo,
		versionsDir:  versionsDir,
		livePaths:    make(map[string]string),
		locks:        make(map[string]*sync.Mutex),
		now:          time.Now,
	}
}

// RegisterModel binds a model name to the path its live artifact is served
// from. Backup and Rollback refuse to touch models without a registered path.
func (s *ArtifactStoreService) RegisterModel(modelName, livePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.livePaths[modelName] = livePath
}

func (s *ArtifactStoreService) livePathFor(modelName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.livePaths[modelName]
	if !ok || path == "" {
		return "", fmt.Errorf("%s: %w", modelName, domain.ErrModelNotRegistered)
	}
	return path, nil
}

// modelLock returns the named mutex serializing mutations for one model.
func (s *ArtifactStoreService) modelLock(modelName string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[modelName]
	if !ok {
		l = &sync.Mutex{}
		s.locks[modelName] = l
	}
	return l
}

// loadOrEmpty reads the model's ledger, treating both "never written" and
// "corrupted" as an empty history. Corruption is logged as a warning: the
// store stays available at the cost of the recorded history.
func (s *ArtifactStoreService) loadOrEmpty(ctx context.Context, modelName string) (*domain.VersionLedger, error) {
	ledger, err := s.ledgerRepo.Load(ctx, modelName)
	if err != nil {
		if errors.Is(err, domain.ErrModelNotFound) {
			return domain.NewVersionLedger(modelName), nil
		}
		if errors.Is(err, domain.ErrLedgerCorrupted) {
			log.WithField("model", modelName).WithError(err).Warn("ledger unreadable, treating as empty history")
			return domain.NewVersionLedger(modelName), nil
		}
		return nil, err
	}
	return ledger, nil
}

func (s *ArtifactStoreService) backupPath(modelName, versionID string) string {
	return filepath.Join(s.versionsDir, modelName, versionID+".bin")
}

func copyScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	v := *score
	return &v
}

// ============================================================================
// Mutations
// ============================================================================

// Backup copies the model's live artifact to a new backup location and
// records it as a backed_up version carrying the current score. Returns the
// new version id, or "" when there is no live artifact to protect (a no-op
// that leaves the ledger untouched, safe on a first-ever run).
func (s *ArtifactStoreService) Backup(ctx context.Context, modelName string) (string, error) {
	if modelName == "" {
		return "", domain.ErrInvalidModelName
	}
	livePath, err := s.livePathFor(modelName)
	if err != nil {
		return "", err
	}

	lock := s.modelLock(modelName)
	lock.Lock()
	defer lock.Unlock()

	exists, err := s.artifactRepo.Exists(ctx, livePath)
	if err != nil {
		return "", fmt.Errorf("check live artifact for %s: %w", modelName, err)
	}
	if !exists {
		return "", nil
	}

	ledger, err := s.loadOrEmpty(ctx, modelName)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	versionID := ledger.NextVersionID(now)
	backupPath := s.backupPath(modelName, versionID)

	if err := s.artifactRepo.Copy(ctx, livePath, backupPath); err != nil {
		return "", fmt.Errorf("backup %s: %w", modelName, err)
	}

	ledger.Append(domain.Version{
		VersionID:  versionID,
		Score:      copyScore(ledger.CurrentScore()),
		Status:     domain.VersionStatusBackedUp,
		BackupPath: backupPath,
		CreatedAt:  now,
	})
	if err := s.ledgerRepo.Save(ctx, ledger); err != nil {
		return "", fmt.Errorf("persist ledger for %s: %w", modelName, err)
	}

	log.WithFields(log.Fields{"model": modelName, "version": versionID}).Info("backed up live artifact")
	return versionID, nil
}

// RegisterNewVersion gates a freshly trained artifact on its score. The new
// artifact is kept when there is no scored current version or when newScore
// is at least the current score (ties keep the newer model). A kept artifact
// is promoted to the current version; a rejection leaves the ledger's current
// version untouched and is reported in the result, not as an error.
func (s *ArtifactStoreService) RegisterNewVersion(ctx context.Context, modelName, newArtifactPath string, newScore float64, precedingVersionID string) (*domain.Promotion, error) {
	if modelName == "" {
		return nil, domain.ErrInvalidModelName
	}
	if newArtifactPath == "" {
		return nil, domain.ErrInvalidArtifactPath
	}
	if math.IsNaN(newScore) || math.IsInf(newScore, 0) {
		return nil, domain.ErrInvalidScore
	}

	lock := s.modelLock(modelName)
	lock.Lock()
	defer lock.Unlock()

	ledger, err := s.loadOrEmpty(ctx, modelName)
	if err != nil {
		return nil, err
	}

	priorScore := copyScore(ledger.CurrentScore())
	if priorScore != nil && newScore < *priorScore {
		log.WithFields(log.Fields{"model": modelName, "newScore": newScore, "priorScore": *priorScore}).Info("rejected new version")
		return &domain.Promotion{
			Kept:       false,
			Reason:     fmt.Sprintf("new score %g is below current score %g", newScore, *priorScore),
			PriorScore: priorScore,
			NewScore:   newScore,
		}, nil
	}

	now := s.now().UTC()
	target := ledger.Find(precedingVersionID)
	if target == nil {
		versionID := ledger.NextVersionID(now)
		ledger.Append(domain.Version{
			VersionID: versionID,
			Status:    domain.VersionStatusBackedUp,
			CreatedAt: now,
		})
		target = ledger.Find(versionID)
	}

	target.Score = &newScore
	target.LiveSnapshotPath = newArtifactPath
	ledger.Promote(target.VersionID)

	if err := s.ledgerRepo.Save(ctx, ledger); err != nil {
		return nil, fmt.Errorf("persist ledger for %s: %w", modelName, err)
	}

	log.WithFields(log.Fields{"model": modelName, "version": target.VersionID, "score": newScore}).Info("promoted new version")
	return &domain.Promotion{
		Kept:       true,
		VersionID:  target.VersionID,
		PriorScore: priorScore,
		NewScore:   newScore,
	}, nil
}

// Rollback restores the most recent restorable version over the live
// artifact. The failed live artifact is snapshotted to a failed_<id> backup
// first so a bad promotion is never silently lost, then the target's backup
// is copied over the live path and the target becomes the current version.
func (s *ArtifactStoreService) Rollback(ctx context.Context, modelName string) (*domain.Version, error) {
	if modelName == "" {
		return nil, domain.ErrInvalidModelName
	}
	livePath, err := s.livePathFor(modelName)
	if err != nil {
		return nil, err
	}

	lock := s.modelLock(modelName)
	lock.Lock()
	defer lock.Unlock()

	ledger, err := s.loadOrEmpty(ctx, modelName)
	if err != nil {
		return nil, err
	}

	if len(ledger.Versions) < 2 {
		return nil, fmt.Errorf("rollback %s: %w", modelName, domain.ErrNoRollbackTarget)
	}
	target := ledger.RollbackTarget()
	if target == nil {
		return nil, fmt.Errorf("rollback %s: %w", modelName, domain.ErrNoRollbackTarget)
	}

	targetID, backupPath := target.VersionID, target.BackupPath
	restorable, err := s.artifactRepo.Exists(ctx, backupPath)
	if err != nil {
		return nil, fmt.Errorf("check backup for %s: %w", modelName, err)
	}
	if !restorable {
		return nil, fmt.Errorf("rollback %s to %s: %w", modelName, targetID, domain.ErrBackupMissing)
	}

	now := s.now().UTC()

	// 1. Snapshot the failed live artifact before it is overwritten.
	liveExists, err := s.artifactRepo.Exists(ctx, livePath)
	if err != nil {
		return nil, fmt.Errorf("check live artifact for %s: %w", modelName, err)
	}
	if liveExists {
		s.snapshotFailed(ctx, ledger, modelName, livePath, now)
	}

	// 2. Restore the backup over the live path.
	if err := s.artifactRepo.Copy(ctx, backupPath, livePath); err != nil {
		return nil, fmt.Errorf("restore backup for %s: %w", modelName, err)
	}

	// 3. The restored version becomes current.
	ledger.Promote(targetID)
	if err := s.ledgerRepo.Save(ctx, ledger); err != nil {
		return nil, fmt.Errorf("persist ledger for %s: %w", modelName, err)
	}

	log.WithFields(log.Fields{"model": modelName, "version": targetID}).Info("rolled back to previous version")
	restored := *ledger.Find(targetID)
	return &restored, nil
}

// snapshotFailed preserves the demoted live artifact as a failed version.
// A failed snapshot copy is logged, not fatal: rollback proceeds regardless.
func (s *ArtifactStoreService) snapshotFailed(ctx context.Context, ledger *domain.VersionLedger, modelName, livePath string, now time.Time) {
	base := "failed_" + ledger.CurrentVersion
	if ledger.CurrentVersion == "" {
		base = "failed_" + domain.NewVersionID(modelName, now)
	}
	snapID := base
	for n := 2; ledger.Find(snapID) != nil; n++ {
		snapID = fmt.Sprintf("%s_%d", base, n)
	}

	snapPath := s.backupPath(modelName, snapID)
	if err := s.artifactRepo.Copy(ctx, livePath, snapPath); err != nil {
		log.WithField("model", modelName).WithError(err).Warn("failed to snapshot demoted live artifact")
		return
	}

	ledger.Append(domain.Version{
		VersionID:  snapID,
		Score:      copyScore(ledger.CurrentScore()),
		Status:     domain.VersionStatusFailed,
		BackupPath: snapPath,
		CreatedAt:  now,
	})
}

// ============================================================================
// Queries
// ============================================================================

// GetCurrentVersion returns the model's current version, or
// domain.ErrVersionNotFound when the model has no current version.
func (s *ArtifactStoreService) GetCurrentVersion(ctx context.Context, modelName string) (*domain.Version, error) {
	ledger, err := s.loadOrEmpty(ctx, modelName)
	if err != nil {
		return nil, err
	}
	cur := ledger.Current()
	if cur == nil {
		return nil, fmt.Errorf("%s: %w", modelName, domain.ErrVersionNotFound)
	}
	out := *cur
	return &out, nil
}

// GetCurrentScore returns the current version's score, or nil when the model
// has no current version or it was never scored.
func (s *ArtifactStoreService) GetCurrentScore(ctx context.Context, modelName string) (*float64, error) {
	ledger, err := s.loadOrEmpty(ctx, modelName)
	if err != nil {
		return nil, err
	}
	return copyScore(ledger.CurrentScore()), nil
}

// ListVersions returns the model's recorded versions sorted newest first.
func (s *ArtifactStoreService) ListVersions(ctx context.Context, modelName string) ([]domain.Version, error) {
	ledger, err := s.ledgerRepo.Load(ctx, modelName)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerCorrupted) {
			log.WithField("model", modelName).WithError(err).Warn("ledger unreadable, treating as empty history")
			return []domain.Version{}, nil
		}
		return nil, err
	}

	out := make([]domain.Version, 0, len(ledger.Versions))
	for i := len(ledger.Versions) - 1; i >= 0; i-- {
		out = append(out, ledger.Versions[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListModels returns the names of every model with a recorded ledger, sorted.
func (s *ArtifactStoreService) ListModels(ctx context.Context) ([]string, error) {
	return s.ledgerRepo.ListModels(ctx)
}

// CurrentArtifact returns the current version together with the live artifact
// bytes. Used by the serving layer to hand out cached artifact payloads.
func (s *ArtifactStoreService) CurrentArtifact(ctx context.Context, modelName string) (*domain.Version, []byte, error) {
	cur, err := s.GetCurrentVersion(ctx, modelName)
	if err != nil {
		return nil, nil, err
	}
	livePath, err := s.livePathFor(modelName)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.artifactRepo.Read(ctx, livePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", modelName, domain.ErrArtifactNotFound)
	}
	return cur, data, nil
}
