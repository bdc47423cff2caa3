package domain

import "errors"

// ============================================================================
// Version Store Errors
// ============================================================================

// Not found errors
var (
	ErrModelNotFound    = errors.New("no versions recorded for model")
	ErrVersionNotFound  = errors.New("model version not found")
	ErrArtifactNotFound = errors.New("live artifact not found")
)

// Validation errors
var (
	ErrInvalidModelName    = errors.New("model name is required")
	ErrInvalidArtifactPath = errors.New("artifact path is required")
	ErrInvalidScore        = errors.New("score must be a finite number")
)

// Business rule errors
var (
	ErrModelNotRegistered = errors.New("model has no registered live artifact path")
	ErrNoRollbackTarget   = errors.New("no previous version to rollback to")
	ErrBackupMissing      = errors.New("backup artifact missing from version store")
)

// ============================================================================
// Ledger Backend Errors
// ============================================================================

var (
	ErrLedgerConflict  = errors.New("ledger was modified concurrently")
	ErrLedgerCorrupted = errors.New("ledger file is corrupted")
)

// ============================================================================
// Training Run Errors
// ============================================================================

var (
	ErrRunInProgress   = errors.New("a training run is already in progress")
	ErrRunNotFound     = errors.New("training run not found")
	ErrNoJobsDefined   = errors.New("no training jobs configured")
	ErrTrainerPanic    = errors.New("trainer panicked")
	ErrTrainerTimeout  = errors.New("trainer exceeded its time budget")
	ErrHistoryDisabled = errors.New("run history is not enabled")
)
