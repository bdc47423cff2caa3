package domain

// TrainResult is what a trainer hands back on success: the path of the newly
// produced artifact and the evaluation score used to gate promotion.
type TrainResult struct {
	ArtifactPath string            `json:"artifactPath"`
	Score        float64           `json:"score"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Promotion is the outcome of offering a freshly trained artifact to the
// version store. Kept reports whether the artifact was promoted to the new
// active version; a rejection is a normal outcome, not an error.
type Promotion struct {
	Kept       bool     `json:"kept"`
	Reason     string   `json:"reason,omitempty"`
	VersionID  string   `json:"versionId,omitempty"`
	PriorScore *float64 `json:"priorScore,omitempty"`
	NewScore   float64  `json:"newScore"`
}
