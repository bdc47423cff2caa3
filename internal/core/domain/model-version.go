package domain

import (
	"fmt"
	"time"
)

type VersionStatus string

const (
	VersionStatusBackedUp   VersionStatus = "backed_up"
	VersionStatusActive     VersionStatus = "active"
	VersionStatusSuperseded VersionStatus = "superseded"
	VersionStatusFailed     VersionStatus = "failed"
)

// Version is one recorded state of a model's artifact. A version is created
// when the live artifact is backed up before training; it becomes active when
// its training run is accepted, superseded when a newer version replaces it,
// or failed when rollback preserved it as the snapshot of a bad promotion.
type Version struct {
	VersionID        string        `json:"versionId"`
	Score            *float64      `json:"score"`
	Status           VersionStatus `json:"status"`
	BackupPath       string        `json:"backupPath"`
	LiveSnapshotPath string        `json:"liveSnapshotPath,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// VersionLedger is the persisted version history for one model name: all
// recorded versions in insertion order plus a pointer to the version that is
// currently live.
//
// Invariant: when CurrentVersion is non-empty, exactly one version carries
// that id with status active; every other non-failed version is backed_up or
// superseded.
type VersionLedger struct {
	ModelName      string    `json:"-"`
	Versions       []Version `json:"versions"`
	CurrentVersion string    `json:"currentVersion"`

	// Revision is the optimistic-concurrency token used by ledger backends
	// with compare-and-swap semantics. Always zero for file-backed ledgers.
	Revision int64 `json:"-"`
}

func NewVersionLedger(modelName string) *VersionLedger {
	return &VersionLedger{ModelName: modelName, Versions: []Version{}}
}

// Current returns the version CurrentVersion points at, or nil.
func (l *VersionLedger) Current() *Version {
	if l.CurrentVersion == "" {
		return nil
	}
	return l.Find(l.CurrentVersion)
}

// CurrentScore returns the score of the current version, or nil when there is
// no current version or it was never scored.
func (l *VersionLedger) CurrentScore() *float64 {
	cur := l.Current()
	if cur == nil {
		return nil
	}
	return cur.Score
}

func (l *VersionLedger) Find(versionID string) *Version {
	for i := range l.Versions {
		if l.Versions[i].VersionID == versionID {
			return &l.Versions[i]
		}
	}
	return nil
}

func (l *VersionLedger) Append(v Version) {
	l.Versions = append(l.Versions, v)
}

// Promote marks the version with the given id active and makes it the current
// version, demoting the previously active version to superseded. It preserves
// the single-active invariant and reports false when the id is not recorded.
func (l *VersionLedger) Promote(versionID string) bool {
	target := l.Find(versionID)
	if target == nil {
		return false
	}
	for i := range l.Versions {
		if l.Versions[i].Status == VersionStatusActive && l.Versions[i].VersionID != versionID {
			l.Versions[i].Status = VersionStatusSuperseded
		}
	}
	target.Status = VersionStatusActive
	l.CurrentVersion = versionID
	return true
}

// RollbackTarget returns the most recent version that can be restored after a
// bad promotion: the newest superseded or backed_up version other than the
// current one. Failed versions are never restore candidates.
func (l *VersionLedger) RollbackTarget() *Version {
	for i := len(l.Versions) - 1; i >= 0; i-- {
		v := &l.Versions[i]
		if v.VersionID == l.CurrentVersion {
			continue
		}
		if v.Status == VersionStatusSuperseded || v.Status == VersionStatusBackedUp {
			return v
		}
	}
	return nil
}

// NextVersionID derives a version id from the model name and timestamp,
// suffixing a counter when the second-resolution id is already taken.
func (l *VersionLedger) NextVersionID(t time.Time) string {
	base := NewVersionID(l.ModelName, t)
	id := base
	for n := 2; l.Find(id) != nil; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	return id
}

// NewVersionID formats the canonical version id: <model>_<YYYYMMDD_HHMMSS>.
func NewVersionID(modelName string, t time.Time) string {
	return fmt.Sprintf("%s_%s", modelName, t.Format("20060102_150405"))
}
