package fsstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-training-service/internal/core/domain"
)

func TestLedgerRepo_LoadMissing(t *testing.T) {
	repo := NewLedgerRepository(t.TempDir())

	_, err := repo.Load(context.Background(), "sentiment")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestLedgerRepo_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	repo := NewLedgerRepository(dir)

	score := 0.85
	ledger := domain.NewVersionLedger("sentiment")
	ledger.Append(domain.Version{
		VersionID:  "sentiment_20260101_120000",
		Score:      &score,
		Status:     domain.VersionStatusActive,
		BackupPath: filepath.Join(dir, "sentiment", "sentiment_20260101_120000.bin"),
		CreatedAt:  time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	})
	ledger.CurrentVersion = "sentiment_20260101_120000"

	require.NoError(t, repo.Save(context.Background(), ledger))

	loaded, err := repo.Load(context.Background(), "sentiment")
	require.NoError(t, err)
	assert.Equal(t, "sentiment", loaded.ModelName)
	assert.Equal(t, "sentiment_20260101_120000", loaded.CurrentVersion)
	require.Len(t, loaded.Versions, 1)
	assert.Equal(t, domain.VersionStatusActive, loaded.Versions[0].Status)
	require.NotNil(t, loaded.Versions[0].Score)
	assert.Equal(t, 0.85, *loaded.Versions[0].Score)
}

func TestLedgerRepo_SaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	repo := NewLedgerRepository(dir)

	ledger := domain.NewVersionLedger("churn")
	require.NoError(t, repo.Save(context.Background(), ledger))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "churn.json", entries[0].Name())
}

func TestLedgerRepo_LoadCorrupted(t *testing.T) {
	dir := t.TempDir()
	repo := NewLedgerRepository(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))

	_, err := repo.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, domain.ErrLedgerCorrupted)
}

func TestLedgerRepo_ListModels(t *testing.T) {
	dir := t.TempDir()
	repo := NewLedgerRepository(dir)

	require.NoError(t, repo.Save(context.Background(), domain.NewVersionLedger("zeta")))
	require.NoError(t, repo.Save(context.Background(), domain.NewVersionLedger("alpha")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	models, err := repo.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, models)
}

func TestLedgerRepo_ListModelsMissingDir(t *testing.T) {
	repo := NewLedgerRepository(filepath.Join(t.TempDir(), "nope"))

	models, err := repo.ListModels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestArtifactRepo_CopyAndRead(t *testing.T) {
	dir := t.TempDir()
	repo := NewArtifactRepository()

	src := filepath.Join(dir, "live.bin")
	require.NoError(t, os.WriteFile(src, []byte("weights-v1"), 0o644))

	dst := filepath.Join(dir, "versions", "sentiment", "backup.bin")
	require.NoError(t, repo.Copy(context.Background(), src, dst))

	data, err := repo.Read(context.Background(), dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("weights-v1"), data)
}

func TestArtifactRepo_CopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	repo := NewArtifactRepository()

	err := repo.Copy(context.Background(), filepath.Join(dir, "absent.bin"), filepath.Join(dir, "out.bin"))
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "out.bin"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestArtifactRepo_Exists(t *testing.T) {
	dir := t.TempDir()
	repo := NewArtifactRepository()

	ok, err := repo.Exists(context.Background(), filepath.Join(dir, "absent.bin"))
	require.NoError(t, err)
	assert.False(t, ok)

	path := filepath.Join(dir, "present.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ok, err = repo.Exists(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, ok)
}
