package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobState string

const (
	JobStatePending        JobState = "pending"
	JobStateBackedUp       JobState = "backed_up"
	JobStateAccepted       JobState = "trained_accepted"
	JobStateRejected       JobState = "trained_rejected"
	JobStateTrainerFailed  JobState = "trainer_failed"
	JobStateRolledBack     JobState = "rolled_back"
	JobStateRollbackFailed JobState = "rollback_failed"
)

// JobResult is the per-model outcome of one training run. Success means the
// new version was kept; a rejected or failed attempt counts as a failure even
// when the previous version was cleanly restored.
type JobResult struct {
	ModelName  string    `json:"modelName"`
	State      JobState  `json:"state"`
	Success    bool      `json:"success"`
	Score      *float64  `json:"score,omitempty"`
	VersionID  string    `json:"versionId,omitempty"`
	RolledBack bool      `json:"rolledBack"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

func (j *JobResult) Duration() time.Duration {
	return j.FinishedAt.Sub(j.StartedAt)
}

// RunResult aggregates a whole orchestrated run: one JobResult per configured
// model plus every notification emitted along the way.
type RunResult struct {
	RunID         uuid.UUID             `json:"runId"`
	DatasetRef    string                `json:"datasetRef,omitempty"`
	StartedAt     time.Time             `json:"startedAt"`
	FinishedAt    time.Time             `json:"finishedAt"`
	SuccessCount  int                   `json:"successCount"`
	FailureCount  int                   `json:"failureCount"`
	PerJob        map[string]*JobResult `json:"perJob"`
	Notifications []Notification        `json:"notifications"`
}

// Failed reports whether any job ended the run in an unhealthy state.
func (r *RunResult) Failed() bool {
	return r.FailureCount > 0
}

// Tally recomputes the success and failure counters from PerJob.
func (r *RunResult) Tally() {
	r.SuccessCount, r.FailureCount = 0, 0
	for _, j := range r.PerJob {
		if j.Success {
			r.SuccessCount++
		} else {
			r.FailureCount++
		}
	}
}
