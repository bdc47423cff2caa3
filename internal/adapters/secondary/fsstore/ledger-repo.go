package fsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"model-training-service/internal/core/domain"
	"model-training-service/internal/core/ports/output"
)

// ledgerRepo stores one JSON ledger file per model under its root directory:
// <dir>/<model>.json. Writes go through a temp file plus rename so a crashed
// process never leaves a half-written ledger behind.
type ledgerRepo struct {
	dir string
}

func NewLedgerRepository(dir string) ports.LedgerRepository {
	return &ledgerRepo{dir: dir}
}

func (r *ledgerRepo) path(modelName string) string {
	return filepath.Join(r.dir, modelName+".json")
}

func (r *ledgerRepo) Load(ctx context.Context, modelName string) (*domain.VersionLedger, error) {
	data, err := os.ReadFile(r.path(modelName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrModelNotFound
		}
		return nil, fmt.Errorf("read ledger for %s: %w", modelName, err)
	}

	ledger := domain.NewVersionLedger(modelName)
	if err := json.Unmarshal(data, ledger); err != nil {
		return nil, fmt.Errorf("parse ledger for %s: %w", modelName, domain.ErrLedgerCorrupted)
	}
	return ledger, nil
}

func (r *ledgerRepo) Save(ctx context.Context, ledger *domain.VersionLedger) error {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger for %s: %w", ledger.ModelName, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	path := r.path(ledger.ModelName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename ledger file: %w", err)
	}
	return nil
}

func (r *ledgerRepo) ListModels(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list ledger dir: %w", err)
	}

	models := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		models = append(models, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(models)
	return models, nil
}
